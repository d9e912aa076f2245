package metric

import (
	"math"

	"github.com/sells-group/london-map/internal/area"
)

// Bucket is the qualitative tercile of a value.
type Bucket string

// Buckets, lowest first.
const (
	BucketUnavailable Bucket = "unavailable"
	BucketLow         Bucket = "low"
	BucketMedium      Bucket = "medium"
	BucketHigh        Bucket = "high"
)

// NotAvailable is the label shown for missing data.
const NotAvailable = "Data Not Available"

// Rank orders buckets; unavailable ranks below low.
func (b Bucket) Rank() int {
	switch b {
	case BucketLow:
		return 1
	case BucketMedium:
		return 2
	case BucketHigh:
		return 3
	default:
		return 0
	}
}

// Label is the display text for the bucket.
func (b Bucket) Label() string {
	switch b {
	case BucketLow:
		return "Low"
	case BucketMedium:
		return "Medium"
	case BucketHigh:
		return "High"
	default:
		return NotAvailable
	}
}

// Result is the outcome of classifying one value. Normalized is nil whenever
// Bucket is unavailable.
type Result struct {
	Normalized *float64 `json:"normalized"`
	Bucket     Bucket   `json:"bucket"`
}

// Available reports whether the value could be placed in its population.
func (r Result) Available() bool {
	return r.Bucket != BucketUnavailable
}

var unavailable = Result{Bucket: BucketUnavailable}

// Engine classifies metric values using a shared Stats cache.
type Engine struct {
	stats *Stats
}

// NewEngine creates an Engine over stats.
func NewEngine(stats *Stats) *Engine {
	return &Engine{stats: stats}
}

// Stats exposes the underlying cache.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// Classify places raw within the population for (k, level, year). It yields
// a continuous position in [0,1] from the population range and a bucket from
// the population terciles. Missing values and empty populations are
// unavailable; a population whose values are all equal normalizes to 0.5.
func (e *Engine) Classify(k Kind, raw *float64, level area.Level, year int) Result {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return unavailable
	}
	rng, ok := e.stats.Range(k, level, year)
	if !ok {
		return unavailable
	}
	th, ok := e.stats.Thresholds(k, level, year)
	if !ok {
		return unavailable
	}

	t := Transform(k, *raw)
	return Result{
		Normalized: normalize(t, rng),
		Bucket:     bucketOf(t, th),
	}
}

// ClassifyRecord classifies rec's own value of k.
func (e *Engine) ClassifyRecord(rec *area.Record, k Kind, year int) Result {
	if rec == nil {
		return unavailable
	}
	return e.Classify(k, RawValue(rec, k, year), rec.Level, year)
}

func normalize(t float64, rng Range) *float64 {
	if rng.Degenerate() {
		return area.Float(0.5)
	}
	n := (t - rng.Min) / (rng.Max - rng.Min)
	// Values from outside the population are pinned to its extremes.
	n = math.Max(0, math.Min(1, n))
	return area.Float(n)
}

func bucketOf(t float64, th Thresholds) Bucket {
	switch {
	case t > th.High:
		return BucketHigh
	case t > th.Low:
		return BucketMedium
	default:
		return BucketLow
	}
}
