package datrie

// This file implements §4.7/§6.3 "Serialization" and SPEC_FULL.md §C.4:
// raw node-array dump/load plus an optional snappy-compressed sidecar
// carrying node-info and block records for fast reload, with a trailing
// BLAKE2b-256 checksum over the primary record stream.

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const cellRecordSize = 8 // two little-endian int32 fields

// Save writes the node array to w starting at byte offset off, followed by
// a BLAKE2b-256 checksum of the just-written bytes (§4.7, SPEC_FULL.md
// §C.4 point 4: an offset parameter lets multiple tries share one file,
// generalizing the original's path-only save).
func (t *Trie) Save(w io.WriterAt, off int64) error {
	buf := make([]byte, len(t.array)*cellRecordSize)
	h, err := blake2b.New256(nil)
	if err != nil {
		return wrapIOErr(err, "save: init checksum")
	}
	for i, c := range t.array {
		binary.LittleEndian.PutUint32(buf[i*cellRecordSize:], uint32(c.base))
		binary.LittleEndian.PutUint32(buf[i*cellRecordSize+4:], uint32(c.check))
	}
	if _, err := h.Write(buf); err != nil {
		return wrapIOErr(err, "save: hash")
	}
	if _, err := w.WriteAt(buf, off); err != nil {
		return wrapIOErr(err, "save: write node array")
	}
	if _, err := w.WriteAt(h.Sum(nil), off+int64(len(buf))); err != nil {
		return wrapIOErr(err, "save: write checksum")
	}
	return nil
}

// SaveFile is the path-based convenience wrapper matching the literal
// save(path) contract of §6.1.
func (t *Trie) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapIOErr(err, "save: create file")
	}
	defer f.Close()
	return t.Save(f, 0)
}

// Load reallocates the node array by reading size cells from r starting at
// off, verifies the trailing BLAKE2b-256 checksum, and reconstructs the
// node-info array and block table by a linear pass over the node array
// (§4.7 "if a sidecar is not used"). On any failure the receiver is left
// with a clear, empty trie (§7 "state on load failure is clear").
func (t *Trie) Load(r io.ReaderAt, off int64, size int) error {
	buf := make([]byte, size*cellRecordSize)
	if _, err := r.ReadAt(buf, off); err != nil {
		t.reset()
		return wrapIOErr(err, "load: read node array")
	}

	sum := make([]byte, blake2b.Size256)
	if _, err := r.ReadAt(sum, off+int64(len(buf))); err != nil {
		t.reset()
		return wrapIOErr(err, "load: read checksum")
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		t.reset()
		return wrapIOErr(err, "load: init checksum")
	}
	h.Write(buf)
	if string(h.Sum(nil)) != string(sum) {
		t.reset()
		return errors.New("load: checksum mismatch")
	}

	array := make([]cell, size)
	for i := range array {
		array[i].base = int32(binary.LittleEndian.Uint32(buf[i*cellRecordSize:]))
		array[i].check = int32(binary.LittleEndian.Uint32(buf[i*cellRecordSize+4:]))
	}
	t.array = array
	t.rebuildFromArray()
	return nil
}

// LoadFile is the path-based convenience wrapper matching the literal
// load(path) contract of §6.1. size is the number of cells previously
// written (the caller tracks this out of band, e.g. from Stat().Size
// recorded alongside the file).
func (t *Trie) LoadFile(path string, size int) error {
	f, err := os.Open(path)
	if err != nil {
		return wrapIOErr(err, "load: open file")
	}
	defer f.Close()
	return t.Load(f, 0, size)
}

// reset clears the trie back to its just-constructed state.
func (t *Trie) reset() {
	t.keys = 0
	t.headFull, t.headClosed, t.headOpen = 0, 0, 0
	for i := range t.reject {
		t.reject[i] = 0
	}
	t.initArrays()
}

// rebuildFromArray reconstructs t.info and t.blk from t.array alone (§4.7
// "load... if a sidecar is not used, the node-info and block arrays are
// reconstructed by a linear pass"): for each used cell, reinstall its
// sibling link under its parent; for each block, count empty cells,
// choose an ehead, and classify it onto Full/Closed/Open by num.
func (t *Trie) rebuildFromArray() {
	n := len(t.array)
	t.info = make([]nodeInfo, n)
	numBlocks := n / blockCells
	t.blk = make([]block, numBlocks+1)
	t.headFull, t.headClosed, t.headOpen = 0, 0, 0
	t.keys = 0

	// Pass 1: reinstall sibling links. Children of each parent are
	// discovered in ascending label order since we scan labels 0..255 in
	// order for every used cell's parent, so repeated prepend-at-head
	// insertion below naturally ends up in descending order; fix by
	// walking labels from high to low instead, which yields ascending
	// child/sibling chains with a single prepend pass.
	for p := 0; p < n; p++ {
		// check[0] == -1 permanently (spec.md:63 "check[0] = -1"), which
		// would otherwise look identical to an empty cell; root is never
		// empty, so it must not be skipped here the way a genuinely empty
		// non-root cell is.
		if p != 0 && t.array[p].check < 0 {
			continue
		}
		base := t.array[p].base
		if base < 0 {
			continue
		}
		for label := 255; label >= 0; label-- {
			c := int(base) ^ label
			if c < 0 || c >= n {
				continue
			}
			if t.array[c].check != int32(p) {
				continue
			}
			t.info[c].sibling = t.info[p].child
			t.info[p].child = byte(label)
			if label == 0 {
				t.keys++
			}
		}
	}

	// Pass 2: per-block empty-cell bookkeeping.
	for b := 0; b < numBlocks; b++ {
		start := b * blockCells
		blk := block{}
		var ringCells []int32
		for i := start; i < start+blockCells; i++ {
			if i == 0 {
				continue // permanent root sentinel, never counted
			}
			if t.array[i].check < 0 {
				ringCells = append(ringCells, int32(i))
			}
		}
		blk.num = int32(len(ringCells))
		bIdx := int32(b + 1)
		if len(ringCells) > 0 {
			blk.ehead = ringCells[0]
			buildRingFromSlice(t.array, ringCells)
		}
		t.blk[bIdx] = blk
		switch {
		case blk.num == 0:
			t.linkBlock(bIdx, listFull)
		case blk.num == 1:
			t.linkBlock(bIdx, listClosed)
		default:
			t.linkBlock(bIdx, listOpen)
		}
	}
}

// buildRingFromSlice relinks the given empty-cell indices (not necessarily
// block-contiguous after a load, since some cells in the middle of a block
// may be used) into a circular doubly-linked ring in the order given.
func buildRingFromSlice(array []cell, cells []int32) {
	n := len(cells)
	for i, c := range cells {
		prev := cells[(i-1+n)%n]
		next := cells[(i+1)%n]
		array[c] = cell{base: -prev, check: -next}
	}
}

// Sidecar describes what the sidecar carries: the three free-list heads,
// the node-info array and the block table (§4.7). encodeSidecar and
// decodeSidecarInto use their own fixed binary layout and do not use this
// type. Load always runs the O(size) reconstruction pass itself.
type Sidecar struct {
	HeadFull, HeadClosed, HeadOpen int32
	Info                           []nodeInfoRecord
	Blocks                         []blockRecord
}

// nodeInfoRecord and blockRecord mirror nodeInfo and block with exported
// fields. The sidecar encoder and decoder do not use them.
type nodeInfoRecord struct {
	Child, Sibling byte
}

type blockRecord struct {
	Prev, Next, Ehead int32
	Num, Reject       int16
	Trial             int32
}

// SaveSidecar snappy-compresses and writes the three list heads, the node-
// info array and the block table behind a 4-byte length prefix (§6.3
// "Sidecar (optional)"). The sidecar carries no checksum.
func (t *Trie) SaveSidecar(w io.WriterAt, off int64) error {
	raw := encodeSidecar(t)
	compressed := snappy.Encode(nil, raw)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(compressed)))
	if _, err := w.WriteAt(lenBuf[:], off); err != nil {
		return wrapIOErr(err, "save sidecar: write length")
	}
	if _, err := w.WriteAt(compressed, off+4); err != nil {
		return wrapIOErr(err, "save sidecar: write body")
	}
	return nil
}

// LoadSidecar reads back a sidecar written by SaveSidecar into a trie whose
// array is already loaded, replacing the node-info array and block table
// that Load's reconstruction pass built.
func (t *Trie) LoadSidecar(r io.ReaderAt, off int64) error {
	var lenBuf [4]byte
	if _, err := r.ReadAt(lenBuf[:], off); err != nil {
		return wrapIOErr(err, "load sidecar: read length")
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	compressed := make([]byte, n)
	if _, err := r.ReadAt(compressed, off+4); err != nil {
		return wrapIOErr(err, "load sidecar: read body")
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return wrapIOErr(err, "load sidecar: decompress")
	}
	return decodeSidecarInto(t, raw)
}

func encodeSidecar(t *Trie) []byte {
	size := len(t.array)
	out := make([]byte, 12+size*2+ (len(t.blk)-1)*16)
	binary.LittleEndian.PutUint32(out[0:], uint32(t.headFull))
	binary.LittleEndian.PutUint32(out[4:], uint32(t.headClosed))
	binary.LittleEndian.PutUint32(out[8:], uint32(t.headOpen))
	p := 12
	for _, ni := range t.info {
		out[p] = ni.child
		out[p+1] = ni.sibling
		p += 2
	}
	for _, b := range t.blk[1:] {
		binary.LittleEndian.PutUint32(out[p:], uint32(b.prev))
		binary.LittleEndian.PutUint32(out[p+4:], uint32(b.next))
		binary.LittleEndian.PutUint16(out[p+8:], uint16(b.num))
		binary.LittleEndian.PutUint16(out[p+10:], uint16(b.reject))
		binary.LittleEndian.PutUint32(out[p+12:], uint32(b.trial))
		p += 16
	}
	return out
}

func decodeSidecarInto(t *Trie, raw []byte) error {
	if len(raw) < 12 {
		return errors.New("load sidecar: truncated header")
	}
	t.headFull = int32(binary.LittleEndian.Uint32(raw[0:]))
	t.headClosed = int32(binary.LittleEndian.Uint32(raw[4:]))
	t.headOpen = int32(binary.LittleEndian.Uint32(raw[8:]))

	size := len(t.array)
	p := 12
	if len(raw) < p+size*2 {
		return errors.New("load sidecar: truncated node-info section")
	}
	t.info = make([]nodeInfo, size)
	for i := 0; i < size; i++ {
		t.info[i] = nodeInfo{child: raw[p], sibling: raw[p+1]}
		p += 2
	}

	numBlocks := size / blockCells
	t.blk = make([]block, numBlocks+1)
	for b := 1; b <= numBlocks; b++ {
		if len(raw) < p+16 {
			return errors.New("load sidecar: truncated block section")
		}
		prev := int32(binary.LittleEndian.Uint32(raw[p:]))
		next := int32(binary.LittleEndian.Uint32(raw[p+4:]))
		num := int16(binary.LittleEndian.Uint16(raw[p+8:]))
		reject := int16(binary.LittleEndian.Uint16(raw[p+10:]))
		trial := int32(binary.LittleEndian.Uint32(raw[p+12:]))
		p += 16
		t.blk[b] = block{prev: prev, next: next, num: int32(num), reject: int32(reject), trial: trial}
		start := (b - 1) * blockCells
		for i := start; i < start+blockCells && i < len(t.array); i++ {
			if i == 0 {
				continue // permanent root sentinel, never an empty-ring head
			}
			if t.array[i].check < 0 {
				t.blk[b].ehead = int32(i)
				break
			}
		}
	}
	// prev/next came straight from the file, but the list field (which of
	// Full/Closed/Open each block belongs to) didn't; recover it by
	// walking each head's chain, same topology linkBlock would have built.
	for kind, head := range [...]int32{t.headFull, t.headClosed, t.headOpen} {
		if head == 0 {
			continue
		}
		for b := head; ; {
			t.blk[b].list = blockListKind(kind)
			b = t.blk[b].next
			if b == head {
				break
			}
		}
	}
	t.keys = t.countLeaves()
	return nil
}

func (t *Trie) countLeaves() int {
	n := 0
	for i, c := range t.array {
		if c.check >= 0 {
			parent := c.check
			if base := t.array[parent].base; base >= 0 && base^int32(i) == 0 {
				n++
			}
		}
	}
	return n
}
