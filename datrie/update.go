package datrie

// Update implements §4.2: walk down key creating edges as needed, then add
// val to the terminal cell's value. Calling with val == 0 inserts the key
// if absent (value starts at 0) or touches it if already present, leaving
// its value unchanged. Returns the leaf cell's new value and its slot
// index (the latter is what a RelocationFunc tracker should key its
// external index on, see Capture).
//
// key must be non-empty and must not contain byte 0 (§1, §4.2); violating
// either is a contract error and panics, matching the hot-path policy in
// §7.
func (t *Trie) Update(key []byte, val int32) (value int32, leaf int32) {
	if len(key) == 0 {
		panic(ErrEmptyKey)
	}
	for _, b := range key {
		if b == 0 {
			panic(ErrNulByte)
		}
	}

	wasNew := false
	from := int32(0)
	for _, b := range key {
		var created bool
		from, created = t.followOrCreate(from, b)
		wasNew = wasNew || created
	}
	leafIdx, created := t.followOrCreate(from, 0)
	wasNew = wasNew || created

	t.array[leafIdx].base += val
	if wasNew {
		t.keys++
	}
	return t.array[leafIdx].base, leafIdx
}

// followOrCreate descends one edge labeled b from from, creating the edge
// (and, if needed, relocating a colliding sibling set) when it doesn't
// already exist. Implements §4.2 steps 1-4. created reports whether this
// particular edge did not exist before the call.
func (t *Trie) followOrCreate(from int32, b byte) (to int32, created bool) {
	base := t.array[from].base

	if base < 0 {
		e := t.popEmpty(base, b, from)
		t.insertSibling(from, b, true)
		return e, true
	}

	target := base ^ int32(b)
	switch {
	case t.array[target].check < 0:
		e := t.popEmpty(base, b, from)
		t.insertSibling(from, b, t.hasNoChildren(from))
		return e, true

	case t.array[target].check == from:
		return target, false

	default:
		// Collision: target is owned by a different parent. resolve
		// relocates the smaller sibling set and returns where label b now
		// lives (§4.4).
		return t.resolve(from, target, b), true
	}
}

// hasNoChildren reports whether from currently owns zero outgoing edges,
// the signal followOrCreate/resolve need to decide whether inserting a new
// edge is from's very first child (insertSibling's wasFirstChild). Every
// non-root cell starts with base < 0 until its first edge is created, and
// goes back to that placeholder once its last child is removed, so
// base < 0 doubles as that signal there. Root starts at base == 0 with
// zero children (spec.md:63 "base[0] = 0") and, unlike every other cell,
// can later be relocated by resolve to some other non-negative base while
// still owning children — so for root, base alone never distinguishes
// "zero children" from "relocated but populated", and base must never be
// reset to the -1 placeholder either, since root is never on the free
// ring (see popSibling). Root can never own a label-0 (terminal) child
// since Update rejects the empty key, making info[0].child == 0 an
// unambiguous "no children yet" signal for root specifically, regardless
// of its current base.
func (t *Trie) hasNoChildren(from int32) bool {
	if from == 0 {
		return t.info[0].child == 0
	}
	return t.array[from].base < 0
}

// insertSibling links label b into from's ordered child list (§3.1
// "Node-info record", §4.2 step 2). wasFirstChild must be true exactly
// when from had no outgoing edges before this call.
func (t *Trie) insertSibling(from int32, b byte, wasFirstChild bool) {
	base := t.array[from].base
	info := &t.info[from]
	slot := base ^ int32(b)

	if wasFirstChild {
		info.child = b
		t.info[slot].sibling = 0
		return
	}

	if b < info.child {
		t.info[slot].sibling = info.child
		info.child = b
		return
	}

	c := info.child
	for {
		next := t.info[base^int32(c)].sibling
		if next == 0 || next > b {
			break
		}
		c = next
	}
	cur := base ^ int32(c)
	t.info[slot].sibling = t.info[cur].sibling
	t.info[cur].sibling = b
}
