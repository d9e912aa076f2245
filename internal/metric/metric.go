// Package metric normalizes and classifies per-area metric values against
// their population at the same level (and year, for yearly metrics).
package metric

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/london-map/internal/area"
)

// Kind identifies one of the four displayable metrics.
type Kind int

// Supported metrics.
const (
	KindPrice Kind = iota + 1
	KindCrime
	KindCentral
	KindCulture
)

// Kinds returns every metric in display order.
func Kinds() []Kind {
	return []Kind{KindPrice, KindCrime, KindCentral, KindCulture}
}

func (k Kind) String() string {
	switch k {
	case KindPrice:
		return "price"
	case KindCrime:
		return "crime"
	case KindCentral:
		return "central"
	case KindCulture:
		return "culture"
	default:
		return "unknown"
	}
}

// Title is the label used in detail views.
func (k Kind) Title() string {
	switch k {
	case KindPrice:
		return "Avg Price"
	case KindCrime:
		return "Crime Rate"
	case KindCentral:
		return "Central Proximity"
	case KindCulture:
		return "Cultural Score"
	default:
		return ""
	}
}

// Yearly reports whether the metric is a per-year series.
func (k Kind) Yearly() bool {
	switch k {
	case KindPrice, KindCrime:
		return true
	case KindCentral, KindCulture:
		return false
	default:
		return false
	}
}

// Valid reports whether k is one of the supported metrics.
func (k Kind) Valid() bool {
	return k >= KindPrice && k <= KindCulture
}

// MarshalText encodes the metric by name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, eris.Errorf("metric: invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a metric name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses a metric name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price":
		return KindPrice, nil
	case "crime":
		return KindCrime, nil
	case "central":
		return KindCentral, nil
	case "culture":
		return KindCulture, nil
	default:
		return 0, eris.Errorf("metric: unknown kind %q", s)
	}
}

// Transform maps a raw value onto a scale where larger means "more" of the
// displayed quality. Central proximity is stored as a distance, so it is
// negated. It must be applied identically when building a population and when
// comparing a single value against it.
func Transform(k Kind, raw float64) float64 {
	switch k {
	case KindCentral:
		return -raw
	case KindPrice, KindCrime, KindCulture:
		return raw
	default:
		return raw
	}
}

// RawValue extracts the untransformed value of k from rec. Price is resolved
// through area.ResolvePrice with the selection filters and is never returned
// here.
func RawValue(rec *area.Record, k Kind, year int) *float64 {
	if rec == nil {
		return nil
	}
	switch k {
	case KindCrime:
		if v, ok := rec.CrimeAt(year); ok {
			return area.Float(v)
		}
		return nil
	case KindCentral:
		return rec.Central
	case KindCulture:
		return rec.Culture
	case KindPrice:
		return nil
	default:
		return nil
	}
}

// Key identifies one cached population. Year is zero for metrics that do
// not vary by year.
type Key struct {
	Kind  Kind
	Level area.Level
	Year  int
}

// NewKey builds the cache key, dropping the year for non-yearly metrics.
func NewKey(k Kind, level area.Level, year int) Key {
	if !k.Yearly() {
		year = 0
	}
	return Key{Kind: k, Level: level, Year: year}
}

func (k Key) String() string {
	year := "all"
	if k.Kind.Yearly() {
		year = strconv.Itoa(k.Year)
	}
	return k.Kind.String() + ":" + k.Level.String() + ":" + year
}
