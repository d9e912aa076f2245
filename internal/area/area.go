// Package area holds the immutable per-area data snapshot behind the map
// layers: price tables, crime series and the central/culture scalars for
// every borough and postcode district.
package area

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnknownArea is returned when a name resolves to no record at any level.
var ErrUnknownArea = eris.New("area: unknown area")

// Level is the geographic granularity of an area.
type Level int

// Supported levels.
const (
	LevelBorough Level = iota + 1
	LevelPostcode
)

// Levels returns every level in display order.
func Levels() []Level {
	return []Level{LevelBorough, LevelPostcode}
}

func (l Level) String() string {
	switch l {
	case LevelBorough:
		return "borough"
	case LevelPostcode:
		return "postcode"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	if l != LevelBorough && l != LevelPostcode {
		return nil, eris.Errorf("area: invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses "borough"/"boroughs" or "postcode"/"postcodes".
func ParseLevel(s string) (Level, error) {
	switch NormalizeKey(s) {
	case "borough", "boroughs":
		return LevelBorough, nil
	case "postcode", "postcodes":
		return LevelPostcode, nil
	default:
		return 0, eris.Errorf("area: unknown level %q", s)
	}
}

// NormalizeKey is the join key between geometry, prices and metrics.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// All selects every size band or dwelling type.
const All = "all"

// TypePrices maps dwelling type to price.
type TypePrices map[string]float64

// SizePrices maps size band to dwelling-type prices.
type SizePrices map[string]TypePrices

// PriceTable maps year to size-band prices. A missing year, band or type
// means no data; zero never appears.
type PriceTable map[int]SizePrices

// ScalarTable maps year to a scalar (crime rate).
type ScalarTable map[int]float64

// Record is the data attached to one area. Records are shared read-only once
// the Store is built.
type Record struct {
	Key     string      `json:"key"`
	Name    string      `json:"name"`
	Level   Level       `json:"level"`
	Prices  PriceTable  `json:"prices"`
	Crime   ScalarTable `json:"crime,omitempty"`
	Central *float64    `json:"central,omitempty"`
	Culture *float64    `json:"culture,omitempty"`
	Summary string      `json:"summary"`
}

// CrimeAt returns the crime scalar for year.
func (r *Record) CrimeAt(year int) (float64, bool) {
	if r == nil || r.Crime == nil {
		return 0, false
	}
	v, ok := r.Crime[year]
	return v, ok
}

// DisplayName falls back to the key when no geometry name was seen.
func (r *Record) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Key
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// finite reports whether v is usable as a metric value.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
