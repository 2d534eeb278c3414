package datrie

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkInvariants verifies §8 invariants 1-4 against the live structure:
// edge consistency, sibling-list completeness, block-count accuracy, and
// empty-ring closure.
func checkInvariants(t *testing.T, tr *Trie) {
	t.Helper()

	// 1 & 2: for every used cell, its parent's child/sibling chain must
	// name it under exactly one label, and that chain must name exactly
	// the set of cells whose check points back at the parent.
	for p := 0; p < len(tr.array); p++ {
		// check[0] == -1 permanently and must not be mistaken for an
		// empty cell the way it would for any other index.
		if p != 0 && tr.array[p].check < 0 {
			continue
		}
		if p != 0 {
			// Leaf cells (reached via label 0 from their own parent) store
			// the terminal value in base, not an outgoing base; they never
			// have children, so skip the child-list check for them.
			parentOfP := tr.array[p].check
			if parentOfP >= 0 {
				parentBase := tr.array[parentOfP].base
				if parentBase >= 0 && parentBase^int32(p) == 0 {
					continue
				}
			}
		}
		base := tr.array[p].base
		if base < 0 {
			continue
		}
		fromChain := map[byte]bool{}
		if tr.info[p].child != 0 || cellOwnedBy(tr, base^0, int32(p)) {
			c := tr.info[p].child
			for {
				cur := base ^ int32(c)
				require.Equal(t, int32(p), tr.array[cur].check, "chain cell %d claims parent %d", cur, p)
				fromChain[c] = true
				next := tr.info[cur].sibling
				if next == 0 {
					break
				}
				c = next
			}
		}
		for label := 0; label < 256; label++ {
			cur := base ^ int32(label)
			if cur < 0 || cur >= int32(len(tr.array)) {
				continue
			}
			owned := tr.array[cur].check == int32(p)
			assert.Equal(t, owned, fromChain[byte(label)], "cell %d label %d ownership vs chain mismatch", p, label)
		}
	}

	// 3 & 4: block num matches the count of empty cells, and the empty
	// ring closes after exactly num steps.
	for b := 1; b < len(tr.blk); b++ {
		blk := tr.blk[b]
		start := int32(b-1) * blockCells
		count := int32(0)
		for i := start; i < start+blockCells; i++ {
			// Cell 0 (root, check == -1) is never part of a block's count.
			if i != 0 && tr.array[i].check < 0 {
				count++
			}
		}
		assert.Equal(t, count, blk.num, "block %d num mismatch", b)

		if blk.num == 0 {
			continue
		}
		seen := int32(0)
		e := blk.ehead
		start0 := e
		for {
			seen++
			e = -tr.array[e].check
			if e == start0 {
				break
			}
			require.LessOrEqual(t, seen, blk.num, "empty ring for block %d did not close", b)
		}
		assert.Equal(t, blk.num, seen, "empty ring for block %d has wrong length", b)
	}
}

func cellOwnedBy(tr *Trie, cell, parent int32) bool {
	if cell < 0 || int(cell) >= len(tr.array) {
		return false
	}
	return tr.array[cell].check == parent
}

func TestInvariantsAfterRandomInsertsAndErases(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := New()
	alive := map[string]int32{}

	for i := 0; i < 3000; i++ {
		length := 1 + rng.Intn(6)
		key := make([]byte, length)
		for j := range key {
			key[j] = byte(1 + rng.Intn(8)) // small alphabet to force heavy sharing/collisions
		}
		if rng.Intn(4) == 0 && len(alive) > 0 {
			// erase a random currently-alive key
			for k := range alive {
				tr.Erase([]byte(k))
				delete(alive, k)
				break
			}
			continue
		}
		tr.Update(key, int32(i))
		alive[string(key)] += int32(i) // Update adds to any existing value
	}

	checkInvariants(t, tr)

	for k, want := range alive {
		got, err := tr.ExactMatch([]byte(k))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, len(alive), tr.NumKeys())
}
