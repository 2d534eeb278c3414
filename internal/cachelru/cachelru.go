// Package cachelru wraps hashicorp/golang-lru to cache the results of
// repeated CommonPrefixPredict calls, whose cost grows with the size of the
// matched subtree (SPEC_FULL.md §B).
package cachelru

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/cedartrie/datrie/internal/tstats"
)

// Cache memoizes predictive-completion results keyed by the queried
// prefix. It does not itself invalidate entries on trie mutation; callers
// that mutate the trie between lookups must call Purge.
type Cache struct {
	inner *lru.Cache
	stats tstats.Stats
}

// New creates a Cache holding up to maxSize entries. maxSize below 16 is
// raised to 16, matching the floor used elsewhere in this codebase's LRU
// wrappers.
func New(maxSize int) *Cache {
	if maxSize < 16 {
		maxSize = 16
	}
	c, _ := lru.New(maxSize)
	return &Cache{inner: c}
}

// Loader computes the value to cache for a prefix on a miss.
type Loader func(prefix string) (interface{}, error)

// GetOrLoad returns the cached value for prefix, computing and storing it
// via loader on a miss.
func (c *Cache) GetOrLoad(prefix string, loader Loader) (interface{}, error) {
	if v, ok := c.inner.Get(prefix); ok {
		c.stats.Hit()
		return v, nil
	}
	v, err := loader(prefix)
	if err != nil {
		return nil, err
	}
	c.inner.Add(prefix, v)
	c.stats.Miss()
	return v, nil
}

// Purge discards every cached entry. Call this after any Update or Erase
// that could change a previously cached prediction set.
func (c *Cache) Purge() { c.inner.Purge() }

// Stats returns the underlying hit/miss counters.
func (c *Cache) Stats() *tstats.Stats { return &c.stats }
