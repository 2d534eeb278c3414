// Package datrie implements an efficiently-updatable double-array trie: an
// in-memory associative container mapping byte-string keys (bytes 1..255,
// NUL reserved) to machine-integer values.
//
// The representation is a single contiguous array of fixed-size cells
// encoding trie edges via XOR arithmetic: for parent p with base B and
// child label c, the child cell lives at B^c. A per-cell (child, sibling)
// pair keeps each node's children in an ascending-label singly linked list,
// and a per-256-cell block table with three intrusive free lists (Full /
// Closed / Open) makes incremental insertion, slot relocation under
// collision, and deletion cheap without ever scanning the whole array.
//
// The trie is single-writer: concurrent lookups are safe only while no
// mutation (Update/Erase) is in flight.
package datrie

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cedartrie/datrie/internal/metrics"
)

// RelocationFunc is invoked synchronously during collision resolution for
// every moved cell, with its old and new index (§4.4 step 5, §5 "Relocation
// callback"). It must not call back into the Trie. A nil func is the
// production no-op (§9 "Relocation callback ... production builds can pass
// a no-op").
type RelocationFunc func(oldSlot, newSlot int)

// Trie is a double-array trie. The zero value is not usable; construct one
// with New.
//
// Not safe for concurrent mutation; concurrent read-only lookups are safe
// only while no mutation is in progress (§5).
type Trie struct {
	array []cell
	info  []nodeInfo
	blk   []block

	headFull   int32
	headClosed int32
	headOpen   int32

	reject [maxRejectLen]int32

	keys       int
	growByFixed bool // if true, grow by fixedAllocCells; else by doubling (§9 "Growth")
	fixedAllocCells int

	onRelocate RelocationFunc

	log     log.Logger
	metrics *metrics.Set

	// readOnlyArray marks a trie constructed over a borrowed node array
	// (§5 "read-only mode"); such a trie never grows or frees that buffer.
	readOnlyArray bool
}

// Option configures a Trie at construction time.
type Option func(*Trie)

// WithRelocationCallback installs cf as the callback invoked on every cell
// move performed by resolve (§4.4, §5). Host code uses this to keep an
// external slot -> key index in sync; see Capture for a ready-made tracker.
func WithRelocationCallback(cf RelocationFunc) Option {
	return func(t *Trie) { t.onRelocate = cf }
}

// WithLogger overrides the default root logger (SPEC_FULL.md §A.1). The
// logger is never consulted on the insert/lookup hot path.
func WithLogger(l log.Logger) Option {
	return func(t *Trie) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics attaches a prometheus registerer the trie reports block-list
// transitions, relocation counts and find_place trial counts to
// (SPEC_FULL.md §B). A nil registerer disables instrumentation.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(t *Trie) { t.metrics = metrics.NewSet(reg) }
}

// WithFixedGrowth caps capacity growth at chunkCells-sized chunks instead
// of doubling (§9 "Growth", EXACT_FIT mode). chunkCells must be a positive
// multiple of 256; values that aren't are rounded up.
func WithFixedGrowth(chunkCells int) Option {
	return func(t *Trie) {
		if chunkCells <= 0 {
			return
		}
		t.growByFixed = true
		t.fixedAllocCells = roundUpBlock(chunkCells)
	}
}

func roundUpBlock(n int) int {
	if n%blockCells == 0 {
		return n
	}
	return (n/blockCells + 1) * blockCells
}

// New creates an empty trie with exactly one 256-cell block, as required
// by §3.2 "Lifecycle": cell 0 is the root (check=-1, base=0), cells 1..255
// form the initial empty ring, and block 0 starts on the Open list.
func New(opts ...Option) *Trie {
	t := &Trie{
		log:             log.Root(),
		growByFixed:     false,
		fixedAllocCells: blockCells,
	}
	for _, o := range opts {
		o(t)
	}
	if t.metrics == nil {
		t.metrics = metrics.NewSet(nil)
	}
	t.initArrays()
	return t
}

func (t *Trie) initArrays() {
	t.array = make([]cell, blockCells)
	t.info = make([]nodeInfo, blockCells)
	t.blk = make([]block, 1) // index 0 is the sentinel, never a real block

	// Cell 0: the root, used, no parent.
	t.array[0] = cell{base: 0, check: -1}

	// Cells 1..255 form the initial empty ring (§3.2): cell 0 is the only
	// permanently reserved cell in the whole array, so it is excluded here
	// but no other block ever needs this special case.
	buildRing(t.array, 1, blockCells-1)
	t.blk = append(t.blk, block{num: blockCells - 1, ehead: 1, prev: 1, next: 1, list: listOpen})
	t.headOpen = 1 // block-table index 1 corresponds to array block 0
}

// buildRing links array[lo..hi] into a circular doubly-linked empty ring,
// via the negative base/check encoding of §3.1.
func buildRing(array []cell, lo, hi int32) {
	for i := lo; i <= hi; i++ {
		prev := i - 1
		if i == lo {
			prev = hi
		}
		next := i + 1
		if i == hi {
			next = lo
		}
		array[i] = cell{base: -prev, check: -next}
	}
}

// NumKeys returns the number of distinct keys currently stored.
func (t *Trie) NumKeys() int { return t.keys }

// Size returns the number of cells currently allocated (used + empty),
// i.e. the capacity of the backing array, per §6.1 size().
func (t *Trie) Size() int { return len(t.array) }

// NonzeroSize returns the number of used cells, §6.1 nonzero_size().
func (t *Trie) NonzeroSize() int {
	n := 0
	for _, c := range t.array {
		if c.used() {
			n++
		}
	}
	return n
}

// Stats summarizes the engine's current internal state for introspection
// (used by cmd/datriecli serve's /stats endpoint).
type Stats struct {
	Keys       int
	Size       int
	NonzeroSize int
	Blocks      int
	Ordered     bool
}

// Stat returns a snapshot of Stats. Ordered is always true: this module
// implements only the ORDERED=true variant (§3.1).
func (t *Trie) Stat() Stats {
	return Stats{
		Keys:        t.keys,
		Size:        t.Size(),
		NonzeroSize: t.NonzeroSize(),
		Blocks:      len(t.blk) - 1,
		Ordered:     true,
	}
}

func (t *Trie) numBlocks() int32 { return int32(len(t.blk) - 1) }

func (t *Trie) blockOf(cellIdx int32) int32 { return cellIdx/blockCells + 1 }
