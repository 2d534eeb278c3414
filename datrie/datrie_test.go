package datrie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNestedPrefixes(t *testing.T) {
	tr := New()
	tr.Update([]byte("abc"), 0)
	tr.Update([]byte("abcd"), 1)
	tr.Update([]byte("abcde"), 2)

	assert.Equal(t, 3, tr.NumKeys())

	_, err := tr.ExactMatch([]byte("ab"))
	assert.ErrorIs(t, err, ErrNoValue)

	_, err = tr.ExactMatch([]byte("abcdef"))
	assert.ErrorIs(t, err, ErrNoPath)

	matches := tr.CommonPrefixSearch([]byte("abcdef"))
	require.Len(t, matches, 3)
	assert.Equal(t, PrefixMatch{Value: 0, Length: 3}, matches[0])
	assert.Equal(t, PrefixMatch{Value: 1, Length: 4}, matches[1])
	assert.Equal(t, PrefixMatch{Value: 2, Length: 5}, matches[2])

	completions, err := tr.CommonPrefixPredict([]byte("ab"))
	require.NoError(t, err)
	require.Len(t, completions, 3)

	lengths := map[int]bool{}
	for _, c := range completions {
		lengths[c.SuffixLen] = true
		suffix, err := tr.Suffix(c.LeafSlot, c.SuffixLen)
		require.NoError(t, err)
		assert.Equal(t, "ab"+string(suffix), mustKeyFor(c.Value))
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, lengths)
}

func mustKeyFor(value int32) string {
	switch value {
	case 0:
		return "abc"
	case 1:
		return "abcd"
	case 2:
		return "abcde"
	default:
		return "?"
	}
}

func TestEraseBranchKeepsSharedPrefix(t *testing.T) {
	tr := New()
	tr.Update([]byte("abc"), 0)
	tr.Update([]byte("abcd"), 1)
	tr.Update([]byte("abcde"), 2)

	_, err := tr.Erase([]byte("abcd"))
	require.NoError(t, err)

	v, err := tr.ExactMatch([]byte("abc"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, v)

	v, err = tr.ExactMatch([]byte("abcde"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)

	_, err = tr.ExactMatch([]byte("abcd"))
	assert.ErrorIs(t, err, ErrNoValue)

	assert.Equal(t, 2, tr.NumKeys())
}

func TestEmptyTrie(t *testing.T) {
	tr := New()
	_, err := tr.ExactMatch([]byte("x"))
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Empty(t, tr.CommonPrefixSearch([]byte("x")))
	assert.Equal(t, 0, tr.NumKeys())
}

// TestBeginAtRoot exercises Begin/CommonPrefixPredict rooted directly at
// cell 0, both before root has any children (must report ErrNoPath, not
// misread cell 0 itself as a leaf) and after several keys exist (must
// enumerate every key in the trie, not just those under some non-root
// prefix).
func TestBeginAtRoot(t *testing.T) {
	tr := New()

	_, err := tr.Begin(0)
	assert.ErrorIs(t, err, ErrNoPath)

	completions, err := tr.CommonPrefixPredict(nil)
	require.NoError(t, err)
	assert.Empty(t, completions)

	keys := []string{"apple", "banana", "cherry", "date"}
	for i, k := range keys {
		tr.Update([]byte(k), int32(i))
	}

	leaf, err := tr.Begin(0)
	require.NoError(t, err)
	assert.NotZero(t, leaf)

	completions, err = tr.CommonPrefixPredict(nil)
	require.NoError(t, err)
	require.Len(t, completions, len(keys))

	got := map[string]int32{}
	for _, c := range completions {
		suffix, err := tr.Suffix(c.LeafSlot, c.SuffixLen)
		require.NoError(t, err)
		got[string(suffix)] = c.Value
	}
	want := map[string]int32{}
	for i, k := range keys {
		want[k] = int32(i)
	}
	assert.Equal(t, want, got)
}

// TestEraseToEmptyThenReinsert drives popSiblingOrCascade all the way up
// to root (erasing every key leaves root with zero children) and then
// inserts again, guarding against root's base being reset to the -1
// placeholder by the last cascade step.
func TestEraseToEmptyThenReinsert(t *testing.T) {
	tr := New()
	tr.Update([]byte("solo"), 42)

	_, err := tr.Erase([]byte("solo"))
	require.NoError(t, err)
	assert.Equal(t, 0, tr.NumKeys())

	_, err = tr.Begin(0)
	assert.ErrorIs(t, err, ErrNoPath)

	tr.Update([]byte("again"), 7)
	v, err := tr.ExactMatch([]byte("again"))
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)
	assert.Equal(t, 1, tr.NumKeys())

	leaf, err := tr.Begin(0)
	require.NoError(t, err)
	assert.NotZero(t, leaf)
}

func TestEraseAbsentKeyIsNoop(t *testing.T) {
	tr := New()
	tr.Update([]byte("abc"), 1)

	_, err := tr.Erase([]byte("xyz"))
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Equal(t, 1, tr.NumKeys())
}

func TestUpdateAddsToExistingValue(t *testing.T) {
	tr := New()
	tr.Update([]byte("a"), 5)
	tr.Update([]byte("a"), 3)

	v, err := tr.ExactMatch([]byte("a"))
	require.NoError(t, err)
	assert.EqualValues(t, 8, v)
	assert.Equal(t, 1, tr.NumKeys())
}

func TestUpdateEmptyKeyPanics(t *testing.T) {
	tr := New()
	assert.Panics(t, func() { tr.Update(nil, 0) })
}

func TestUpdateNulByteKeyPanics(t *testing.T) {
	tr := New()
	assert.Panics(t, func() { tr.Update([]byte{'a', 0, 'b'}, 0) })
}

func TestSharedSingleByteAlphabetForcesCollisions(t *testing.T) {
	// All keys share prefixes and diverge on tightly packed bytes, driving
	// many collisions through resolve so the free-list and relocation
	// paths both get real exercise, not just the common case.
	tr := New()
	keys := []string{
		"a", "b", "c", "d", "e", "f", "g", "h",
		"aa", "ab", "ac", "ba", "bb", "bc",
		"aaa", "aab", "aba", "baa",
	}
	for i, k := range keys {
		tr.Update([]byte(k), int32(i))
	}
	assert.Equal(t, len(keys), tr.NumKeys())
	for i, k := range keys {
		v, err := tr.ExactMatch([]byte(k))
		require.NoError(t, err, "key %q", k)
		assert.EqualValues(t, i, v, "key %q", k)
	}
}
