package datrie

// This file implements §4.3 "Free-list management": the three intrusive
// doubly-linked block lists (Full / Closed / Open), the per-block empty
// cell ring, pop_empty/push_empty, and find_place.

func (t *Trie) listHead(k blockListKind) *int32 {
	switch k {
	case listFull:
		return &t.headFull
	case listClosed:
		return &t.headClosed
	default:
		return &t.headOpen
	}
}

// unlinkBlock removes b from whichever list it is currently on.
func (t *Trie) unlinkBlock(b int32) {
	blk := &t.blk[b]
	head := t.listHead(blk.list)
	if blk.next == b {
		*head = 0
	} else {
		t.blk[blk.prev].next = blk.next
		t.blk[blk.next].prev = blk.prev
		if *head == b {
			*head = blk.next
		}
	}
	blk.prev, blk.next = 0, 0
}

// linkBlock inserts b at the front of list kind.
func (t *Trie) linkBlock(b int32, kind blockListKind) {
	head := t.listHead(kind)
	blk := &t.blk[b]
	if *head == 0 {
		blk.prev, blk.next = b, b
	} else {
		h := *head
		tail := t.blk[h].prev
		t.blk[tail].next = b
		blk.prev = tail
		blk.next = h
		t.blk[h].prev = b
	}
	*head = b
	blk.list = kind
}

// migrateBlock moves b from its current list to kind. It leaves trial
// unchanged; pushEmpty is what resets that counter.
func (t *Trie) migrateBlock(b int32, kind blockListKind) {
	if t.blk[b].list == kind {
		return
	}
	t.unlinkBlock(b)
	t.linkBlock(b, kind)
	t.metrics.BlockMigrated(int(kind))
}

// appendBlock grows the array by either doubling the current block count
// or by a fixed chunk (§9 "Growth"), and returns the block-table index of
// the first newly appended block. New blocks start fully empty and land on
// the Open list.
func (t *Trie) appendBlock() int32 {
	cur := int32(len(t.blk) - 1)
	var add int32
	if t.growByFixed {
		add = int32(t.fixedAllocCells / blockCells)
		if add < 1 {
			add = 1
		}
	} else {
		add = cur
		if add < 1 {
			add = 1
		}
	}
	first := int32(0)
	for i := int32(0); i < add; i++ {
		start := int32(len(t.array))
		t.array = append(t.array, make([]cell, blockCells)...)
		t.info = append(t.info, make([]nodeInfo, blockCells)...)
		buildRing(t.array, start, start+blockCells-1)
		t.blk = append(t.blk, block{num: blockCells, ehead: start})
		bIdx := int32(len(t.blk) - 1)
		t.linkBlock(bIdx, listOpen)
		if i == 0 {
			first = bIdx
		}
	}
	t.log.Debug("datrie: grew array", "addedBlocks", add, "totalBlocks", len(t.blk)-1)
	t.metrics.ArrayGrown(int(add))
	return first
}

// unlinkEmpty removes cell e from its block's empty ring and updates the
// block's num/ehead bookkeeping, migrating the block's list membership as
// needed (§4.3 pop_empty).
func (t *Trie) unlinkEmpty(e int32) {
	b := t.blockOf(e)
	blk := &t.blk[b]
	prev := -t.array[e].base
	next := -t.array[e].check
	if next == e {
		// last empty cell in this block.
	} else {
		t.array[prev].check = -next
		t.array[next].base = -prev
	}
	if blk.ehead == e {
		blk.ehead = next
	}
	blk.num--
	if blk.num == 0 {
		t.migrateBlock(b, listFull)
	} else if blk.num == 1 && blk.trial != maxTrial {
		t.migrateBlock(b, listClosed)
	}
}

// popEmpty allocates a cell to host the edge (from, label), per §4.3.
func (t *Trie) popEmpty(base int32, label byte, from int32) int32 {
	var e int32
	if base >= 0 {
		e = base ^ int32(label)
	} else {
		e = t.findPlaceSingle()
	}
	t.unlinkEmpty(e)

	t.array[e].check = from
	if label == 0 {
		t.array[e].base = 0
	} else {
		t.array[e].base = -1
	}
	if base < 0 {
		t.array[from].base = e ^ int32(label)
	}
	return e
}

// pushEmpty returns cell e to its block's empty ring, per §4.3.
func (t *Trie) pushEmpty(e int32) {
	b := t.blockOf(e)
	blk := &t.blk[b]

	if blk.num == 0 {
		t.array[e] = cell{base: -e, check: -e}
		blk.ehead = e
		blk.num = 1
		t.migrateBlock(b, listClosed)
	} else {
		ehead := blk.ehead
		prev := -t.array[ehead].base
		t.array[prev].check = -e
		t.array[e].base = -prev
		t.array[e].check = -ehead
		t.array[ehead].base = -e
		blk.num++
		if blk.num == 2 {
			t.migrateBlock(b, listOpen)
		} else if blk.trial == maxTrial {
			t.migrateBlock(b, listOpen)
		}
	}
	blk.trial = 0

	if e == 0 {
		// Cell 0 is the permanent root sentinel and must never be counted
		// as a real empty cell, even if a caller mistakenly frees it
		// (§4.3 "Cell 0, if ever pushed, is compensated").
		blk.num--
	}

	if int(blk.num) < len(t.reject) && t.reject[blk.num] > blk.reject {
		blk.reject = t.reject[blk.num]
	}
	t.info[e] = nodeInfo{}
}

// findPlaceSingle returns an arbitrary empty cell, preferring a Closed
// block (to keep Open blocks available for wider placements) and falling
// back to Open, then to a freshly appended block (§4.3 pop_empty "find_place").
func (t *Trie) findPlaceSingle() int32 {
	if t.headClosed != 0 {
		return t.blk[t.headClosed].ehead
	}
	if t.headOpen != 0 {
		return t.blk[t.headOpen].ehead
	}
	b := t.appendBlock()
	return t.blk[b].ehead
}

// findPlaceSet locates a base such that base^l is empty for every label l
// in labels (which must be sorted ascending), per §4.3 find_place(first..last).
func (t *Trie) findPlaceSet(labels []byte) int32 {
	width := int32(len(labels))

	if start := t.headOpen; start != 0 {
		// Snapshot the Open list before visiting it: a candidate block may
		// migrate to Closed mid-scan (trial exhaustion) which would
		// otherwise corrupt an in-place circular walk.
		open := make([]int32, 0, 8)
		for b := start; ; {
			open = append(open, b)
			b = t.blk[b].next
			if b == start {
				break
			}
		}

		for _, b := range open {
			blk := &t.blk[b]
			if blk.num >= width && (blk.reject == 0 || width < blk.reject) {
				if base, ok := t.tryFit(b, labels); ok {
					return base
				}
				blk.reject = width
			}
			if blk.reject != 0 && (t.reject[blk.num] == 0 || blk.reject < t.reject[blk.num]) {
				t.reject[blk.num] = blk.reject
			}
			blk.trial++
			if blk.trial == maxTrial {
				t.migrateBlock(b, listClosed)
			}
			t.metrics.FindPlaceTrial()
		}
	}

	newBlock := t.appendBlock()
	base, ok := t.tryFit(newBlock, labels)
	if !ok {
		// A freshly appended, fully empty block must always admit any
		// width <= blockCells placement; failure here indicates caller
		// passed more labels than fit in one block, a contract violation.
		panic("datrie: child set does not fit in an empty block")
	}
	return base
}

// tryFit walks block b's empty ring looking for a base such that base^l is
// empty for every l in labels, using the first label as the probe anchor.
func (t *Trie) tryFit(b int32, labels []byte) (int32, bool) {
	blk := &t.blk[b]
	if blk.num == 0 {
		return 0, false
	}
	first := labels[0]
	e := blk.ehead
	start := e
	for {
		base := e ^ int32(first)
		if fits := t.allEmpty(base, labels); fits {
			return base, true
		}
		e = -t.array[e].check
		if e == start {
			break
		}
	}
	return 0, false
}

func (t *Trie) allEmpty(base int32, labels []byte) bool {
	for _, l := range labels {
		idx := base ^ int32(l)
		if idx < 0 || int(idx) >= len(t.array) || !t.array[idx].empty() {
			return false
		}
	}
	return true
}
