package metric

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/montanaflynn/stats"

	"github.com/sells-group/london-map/internal/area"
)

// Tercile cut points used for Low/Medium/High buckets.
const (
	lowQuantile  = 1.0 / 3.0
	highQuantile = 2.0 / 3.0
)

// Thresholds are the tercile boundaries of a transformed population.
type Thresholds struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Range is the extent of a transformed population.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Degenerate reports whether every value in the population is equal.
func (r Range) Degenerate() bool {
	return r.Min == r.Max
}

// Stats memoizes thresholds and ranges per Key over a fixed Store. Each key
// is computed at most once; entries are never invalidated, so a new Store
// needs a new Stats.
type Stats struct {
	store *area.Store

	mu      sync.Mutex
	entries map[Key]*statsEntry

	hits   atomic.Int64
	misses atomic.Int64
}

type statsEntry struct {
	thresholds Thresholds
	rng        Range
	size       int
}

// CacheStats reports cache usage.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewStats creates an empty cache over store.
func NewStats(store *area.Store) *Stats {
	return &Stats{
		store:   store,
		entries: make(map[Key]*statsEntry),
	}
}

// Thresholds returns the tercile thresholds for the population, or false when
// no area at that level has a value.
func (s *Stats) Thresholds(k Kind, level area.Level, year int) (Thresholds, bool) {
	e := s.lookup(NewKey(k, level, year))
	if e.size == 0 {
		return Thresholds{}, false
	}
	return e.thresholds, true
}

// Range returns the min/max of the population, or false when it is empty.
func (s *Stats) Range(k Kind, level area.Level, year int) (Range, bool) {
	e := s.lookup(NewKey(k, level, year))
	if e.size == 0 {
		return Range{}, false
	}
	return e.rng, true
}

// PopulationSize returns the number of values behind key.
func (s *Stats) PopulationSize(k Kind, level area.Level, year int) int {
	return s.lookup(NewKey(k, level, year)).size
}

// Stats returns cache usage counters.
func (s *Stats) Stats() CacheStats {
	s.mu.Lock()
	entries := len(s.entries)
	s.mu.Unlock()

	hits := s.hits.Load()
	misses := s.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{Entries: entries, Hits: hits, Misses: misses, HitRate: hitRate}
}

// lookup computes the entry for key if absent. The lock is held across the
// computation so concurrent callers never build the same key twice.
func (s *Stats) lookup(key Key) *statsEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.hits.Add(1)
		return e
	}
	s.misses.Add(1)

	e := summarize(Population(s.store, key))
	s.entries[key] = e
	return e
}

func summarize(sorted []float64) *statsEntry {
	if len(sorted) == 0 {
		return &statsEntry{}
	}
	lo, _ := stats.Min(sorted)
	hi, _ := stats.Max(sorted)
	return &statsEntry{
		thresholds: Thresholds{
			Low:  Quantile(sorted, lowQuantile),
			High: Quantile(sorted, highQuantile),
		},
		rng:  Range{Min: lo, Max: hi},
		size: len(sorted),
	}
}

// Population collects the transformed values of key.Kind across every
// record at key.Level, sorted ascending. Price has its own aggregation path
// and always yields an empty population.
func Population(store *area.Store, key Key) []float64 {
	var values []float64
	store.Each(key.Level, func(rec *area.Record) {
		if v := RawValue(rec, key.Kind, key.Year); v != nil {
			values = append(values, Transform(key.Kind, *v))
		}
	})
	slices.Sort(values)
	return values
}

// Quantile interpolates linearly between order statistics of an ascending
// slice: index = (n-1)*p, weighted between floor and ceil.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	index := float64(len(sorted)-1) * p
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
