package area

import (
	"sort"
)

// DefaultSummary is the summary line shown for every loaded area.
const DefaultSummary = "Market Data"

// Store is the per-session snapshot of area records, keyed by level and
// normalized name. It is never mutated after Build.
type Store struct {
	records map[Level]map[string]*Record
}

// Get returns the record for name at level.
func (s *Store) Get(level Level, name string) (*Record, bool) {
	if s == nil {
		return nil, false
	}
	rec, ok := s.records[level][NormalizeKey(name)]
	return rec, ok
}

// Find resolves name at any level, boroughs first.
func (s *Store) Find(name string) (*Record, error) {
	for _, level := range Levels() {
		if rec, ok := s.Get(level, name); ok {
			return rec, nil
		}
	}
	return nil, ErrUnknownArea
}

// Len returns the number of records at level.
func (s *Store) Len(level Level) int {
	if s == nil {
		return 0
	}
	return len(s.records[level])
}

// Records returns the records at level ordered by key.
func (s *Store) Records(level Level) []*Record {
	if s == nil {
		return nil
	}
	m := s.records[level]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// Each calls fn for every record at level in unspecified order.
func (s *Store) Each(level Level, fn func(*Record)) {
	if s == nil {
		return
	}
	for _, rec := range s.records[level] {
		fn(rec)
	}
}

// Builder accumulates records during the load phase.
type Builder struct {
	records map[Level]map[string]*Record
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		records: map[Level]map[string]*Record{
			LevelBorough:  {},
			LevelPostcode: {},
		},
	}
}

// record returns the record for name at level, creating it on first use.
// Empty keys are rejected.
func (b *Builder) record(level Level, name string) *Record {
	key := NormalizeKey(name)
	if key == "" {
		return nil
	}
	m, ok := b.records[level]
	if !ok {
		return nil
	}
	rec, ok := m[key]
	if !ok {
		rec = &Record{
			Key:     key,
			Level:   level,
			Prices:  PriceTable{},
			Summary: DefaultSummary,
		}
		m[key] = rec
	}
	return rec
}

// AddFeature registers a geometry feature name. The first spelling seen wins
// as the display name.
func (b *Builder) AddFeature(level Level, name string) {
	rec := b.record(level, name)
	if rec != nil && rec.Name == "" {
		rec.Name = name
	}
}

// SetPrice stores one price cell. Non-positive or non-finite prices are
// dropped. Reports whether the cell was stored.
func (b *Builder) SetPrice(level Level, name string, year int, size, dwelling string, price float64) bool {
	if price <= 0 || !finite(price) || size == "" || dwelling == "" {
		return false
	}
	rec := b.record(level, name)
	if rec == nil {
		return false
	}
	sizes, ok := rec.Prices[year]
	if !ok {
		sizes = SizePrices{}
		rec.Prices[year] = sizes
	}
	types, ok := sizes[size]
	if !ok {
		types = TypePrices{}
		sizes[size] = types
	}
	types[dwelling] = price
	return true
}

// SetCrime stores the crime scalar for year.
func (b *Builder) SetCrime(level Level, name string, year int, v float64) {
	if !finite(v) {
		return
	}
	rec := b.record(level, name)
	if rec == nil {
		return
	}
	if rec.Crime == nil {
		rec.Crime = ScalarTable{}
	}
	rec.Crime[year] = v
}

// SetCentral stores the central-proximity scalar.
func (b *Builder) SetCentral(level Level, name string, v float64) {
	if !finite(v) {
		return
	}
	if rec := b.record(level, name); rec != nil {
		rec.Central = Float(v)
	}
}

// SetCulture stores the culture scalar.
func (b *Builder) SetCulture(level Level, name string, v float64) {
	if !finite(v) {
		return
	}
	if rec := b.record(level, name); rec != nil {
		rec.Culture = Float(v)
	}
}

// Build freezes the builder into a Store. The builder must not be used
// afterwards.
func (b *Builder) Build() *Store {
	s := &Store{records: b.records}
	b.records = nil
	return s
}
