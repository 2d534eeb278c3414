package datrie

// This file implements §4.4 "Collision resolution (resolve)": picking which
// of two colliding sibling sets to relocate, finding it a new base, moving
// it cell-by-cell, and notifying the host via the relocation callback.

// resolve is invoked when inserting edge (fromN, labelN) would land on
// toPN = base[fromN]^labelN, a cell already owned by a different parent.
// It relocates the smaller of the two sibling sets (fromN's, including the
// newcomer, or the existing owner's) and returns the cell where labelN's
// edge now lives.
func (t *Trie) resolve(fromN, toPN int32, labelN byte) int32 {
	fromP := t.array[toPN].check
	baseP := t.array[fromP].base
	baseN := t.array[fromN].base

	// Compare arities by walking each node's *existing* child chain in
	// lockstep (the newcomer labelN is not part of this comparison, only
	// of the buffer built below): whichever chain is shorter gets moved.
	relocateN := t.consult(baseN, baseP, t.info[fromN].child, t.info[fromP].child)

	var movingParent int32
	var buffer []byte
	if relocateN {
		movingParent = fromN
		buffer = insertSorted(t.gatherChildren(fromN), labelN)
	} else {
		movingParent = fromP
		buffer = t.gatherChildren(fromP)
	}

	oldBase := t.array[movingParent].base
	newBase := t.findPlaceSet(buffer)
	t.array[movingParent].base = newBase

	var newcomerSlot int32 = -1
	for i, l := range buffer {
		var sibling byte
		if i+1 < len(buffer) {
			sibling = buffer[i+1]
		}

		isNewcomer := relocateN && l == labelN
		newSlot := t.popEmpty(newBase, l, movingParent)
		t.info[newSlot].sibling = sibling

		if isNewcomer {
			newcomerSlot = newSlot
			continue
		}

		oldSlot := oldBase ^ int32(l)
		old := t.array[oldSlot]
		t.array[newSlot].base = old.base

		if l != 0 && old.base != -1 {
			// l!=0 means oldSlot is an internal node, not a leaf (§4.1:
			// only the label-0 edge is ever terminal); old.base != -1
			// means it already owns real children (-1 is popEmpty's
			// "no children yet" placeholder, §4.3), so its grandchildren
			// need their check pointers rewritten to point at newSlot.
			t.relinkGrandchildren(oldSlot, newSlot, old.base)
		}

		if t.onRelocate != nil {
			t.onRelocate(int(oldSlot), int(newSlot))
		}

		if !relocateN && oldSlot == fromN {
			fromN = newSlot
		}
		t.pushEmpty(oldSlot)
	}

	if relocateN {
		t.info[fromN].child = buffer[0]
	}

	t.metrics.Relocation(len(buffer))
	if newcomerSlot >= 0 {
		return newcomerSlot
	}
	// Relocating from_p's set: toPN is now free (its occupant moved away
	// in the loop above) and fromN's own base never changed, so the
	// newcomer's edge goes right back where it was originally aimed.
	e := t.popEmpty(baseN, labelN, fromN)
	t.insertSibling(fromN, labelN, t.hasNoChildren(fromN))
	return e
}

// consult walks the existing sibling chains of from_n (seeded at cN, its
// current first child) and from_p (seeded at cP, its current first child)
// in lockstep, ignoring the not-yet-inserted newcomer. Whichever chain
// runs out first belongs to the smaller set (§4.4 step 2).
func (t *Trie) consult(baseN, baseP int32, cN, cP byte) bool {
	for {
		cN = t.info[baseN^int32(cN)].sibling
		cP = t.info[baseP^int32(cP)].sibling
		if cN == 0 || cP == 0 {
			break
		}
	}
	return cP != 0
}

// gatherChildren returns node's children labels in ascending order by
// walking its (child, sibling) chain (§3.1).
func (t *Trie) gatherChildren(node int32) []byte {
	base := t.array[node].base
	if base < 0 {
		return nil
	}
	var out []byte
	c := t.info[node].child
	for {
		out = append(out, c)
		next := t.info[base^int32(c)].sibling
		if next == 0 {
			break
		}
		c = next
	}
	return out
}

// insertSorted inserts label into the ascending-sorted list, preserving
// order.
func insertSorted(list []byte, label byte) []byte {
	i := 0
	for i < len(list) && list[i] < label {
		i++
	}
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = label
	return list
}

// relinkGrandchildren rewrites the check pointer of every child of the
// node formerly at oldSlot (now at newSlot, with the same base childBase)
// to point at newSlot instead, and copies over the child-list head
// (§4.4 step 5).
func (t *Trie) relinkGrandchildren(oldSlot, newSlot, childBase int32) {
	c := t.info[oldSlot].child
	for {
		gc := childBase ^ int32(c)
		t.array[gc].check = newSlot
		next := t.info[gc].sibling
		if next == 0 {
			break
		}
		c = next
	}
	t.info[newSlot].child = t.info[oldSlot].child
}
