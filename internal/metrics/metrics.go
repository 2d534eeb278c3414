// Package metrics wraps prometheus instrumentation for a single datrie
// instance, in the style of the teacher pack's own metrics helpers
// (Counter/Gauge/Histogram over a shared registry). A nil registerer
// disables collection entirely: every method becomes a no-op so the hot
// mutation path never pays for instrumentation it wasn't asked for.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set holds the counters and histograms reported by one trie instance.
type Set struct {
	enabled bool

	blockMigrations *prometheus.CounterVec
	arrayGrowths    prometheus.Counter
	findPlaceTrials prometheus.Counter
	relocations     prometheus.Counter
	relocatedCells  prometheus.Histogram
}

// NewSet registers (or no-ops) a metrics Set against reg. Passing nil
// disables metrics.
func NewSet(reg prometheus.Registerer) *Set {
	if reg == nil {
		return &Set{}
	}
	s := &Set{
		enabled: true,
		blockMigrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datrie",
			Name:      "block_migrations_total",
			Help:      "Block free-list transitions by destination list (full/closed/open).",
		}, []string{"to"}),
		arrayGrowths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datrie",
			Name:      "array_growths_total",
			Help:      "Number of blocks appended to the node array.",
		}),
		findPlaceTrials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datrie",
			Name:      "find_place_trials_total",
			Help:      "Number of Open-block placement attempts by find_place that found no fit.",
		}),
		relocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "datrie",
			Name:      "relocations_total",
			Help:      "Number of collision-resolution relocations performed.",
		}),
		relocatedCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "datrie",
			Name:      "relocated_cells",
			Help:      "Size of the child set moved per relocation.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
	reg.MustRegister(s.blockMigrations, s.arrayGrowths, s.findPlaceTrials, s.relocations, s.relocatedCells)
	return s
}

var listNames = [...]string{"full", "closed", "open"}

// BlockMigrated records a block moving to list kind (0=full,1=closed,2=open).
func (s *Set) BlockMigrated(kind int) {
	if s == nil || !s.enabled {
		return
	}
	name := "unknown"
	if kind >= 0 && kind < len(listNames) {
		name = listNames[kind]
	}
	s.blockMigrations.WithLabelValues(name).Inc()
}

// ArrayGrown records n new blocks appended to the node array.
func (s *Set) ArrayGrown(n int) {
	if s == nil || !s.enabled {
		return
	}
	s.arrayGrowths.Add(float64(n))
}

// FindPlaceTrial records one per-block placement attempt that found no fit.
func (s *Set) FindPlaceTrial() {
	if s == nil || !s.enabled {
		return
	}
	s.findPlaceTrials.Inc()
}

// Relocation records one completed collision-resolution relocation moving
// setSize cells.
func (s *Set) Relocation(setSize int) {
	if s == nil || !s.enabled {
		return
	}
	s.relocations.Inc()
	s.relocatedCells.Observe(float64(setSize))
}
