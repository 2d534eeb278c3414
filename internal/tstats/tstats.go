// Package tstats collects cache hit/miss counters in the style used
// elsewhere in this codebase's cache helpers, reported by cmd/datriecli
// serve's /stats endpoint.
package tstats

import "sync/atomic"

// Stats is a utility for collecting cache hit/miss counts.
type Stats struct {
	hit, miss atomic.Int64
}

// Hit records a hit.
func (s *Stats) Hit() int64 { return s.hit.Add(1) }

// Miss records a miss.
func (s *Stats) Miss() int64 { return s.miss.Add(1) }

// Snapshot returns the current hit count, miss count, and hit rate.
func (s *Stats) Snapshot() (hits, misses int64, rate float64) {
	hits = s.hit.Load()
	misses = s.miss.Load()
	lookups := hits + misses
	if lookups > 0 {
		rate = float64(hits) / float64(lookups)
	}
	return hits, misses, rate
}
