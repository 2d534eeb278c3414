package datrie

// This file implements §4.5 "Deletion (erase)".

// Erase removes key and returns the value it held. It returns ErrNoPath or
// ErrNoValue (and leaves the trie unchanged) if key was absent, matching
// §4.5 "Erasing an absent key returns a negative sentinel and is a no-op".
//
// Freed cells are returned to their block's free list for reuse by future
// insertions; erase never rebalances or compacts, so size() is monotone
// non-decreasing across insert/erase cycles (§9 "Open questions").
func (t *Trie) Erase(key []byte) (int32, error) {
	from, err := t.followPath(0, key)
	if err != nil {
		return 0, err
	}
	base := t.array[from].base
	if base < 0 {
		return 0, ErrNoValue
	}
	leaf := base ^ 0
	if t.array[leaf].check != from {
		return 0, ErrNoValue
	}
	value := t.array[leaf].base

	t.popSiblingOrCascade(leaf)
	t.keys--
	return value, nil
}

// popSiblingOrCascade implements §4.5: starting at node, walk upward via
// check. At each step, if the node being freed was its parent's only
// child, push it back to the free ring and continue upward (the parent is
// now itself a candidate for removal, unless it is the root). If the node
// has a remaining sibling chain in its parent's child list, unlink just
// this label and stop: the branch is still shared.
func (t *Trie) popSiblingOrCascade(node int32) {
	for node != 0 {
		parent := t.array[node].check
		label := byte(t.array[parent].base ^ node)

		if t.popSibling(parent, label) {
			// parent lost its only child; free node and keep walking up.
			t.pushEmpty(node)
			node = parent
			continue
		}
		// parent still has other children: just free this one cell.
		t.pushEmpty(node)
		return
	}
}

// popSibling removes label from parent's ordered child list. It returns
// true if label was parent's only remaining child, in which case parent's
// base is reset to -1 (the "no outgoing edges" placeholder, §3.1) and the
// caller should consider freeing parent too.
//
// child==0 is ambiguous on its own (§3.1 defines it as both "no children"
// and, legitimately, "label 0 is the smallest child"), so solely-child is
// decided before mutating anything: label is the only child exactly when
// it is currently the head and has no sibling.
func (t *Trie) popSibling(parent int32, label byte) bool {
	info := &t.info[parent]
	base := t.array[parent].base
	slot := base ^ int32(label)

	if info.child == label && t.info[slot].sibling == 0 {
		info.child = 0
		if parent != 0 {
			// Root is never pushed onto the free ring and never ceases to
			// exist the way a non-root cell does when its last child is
			// removed, so root's base must never be reset to the "no
			// outgoing edges" -1 placeholder that convention uses for every
			// other cell: that would make popEmpty's base<0 branch treat
			// root as if it had never been allocated, routing its next
			// child through findPlaceSingle's arbitrary-slot fallback
			// instead of root's existing (possibly relocated) base.
			t.array[parent].base = -1
		}
		return true
	}

	if info.child == label {
		info.child = t.info[slot].sibling
	} else {
		c := info.child
		for {
			cur := base ^ int32(c)
			next := t.info[cur].sibling
			if next == label {
				t.info[cur].sibling = t.info[slot].sibling
				break
			}
			c = next
		}
	}
	return false
}
