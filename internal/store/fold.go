package store

import (
	"math"
	"sort"
	"strings"

	"github.com/sells-group/london-map/internal/area"
)

// typeCodes expands the single-letter dwelling codes used by the Land
// Registry extracts.
var typeCodes = map[string]string{
	"D": "detached",
	"S": "semi",
	"T": "terraced",
	"F": "flat",
}

// DwellingType maps a raw property type to its table key: known letter
// codes expand, anything else is trimmed and lowercased.
func DwellingType(raw string) string {
	raw = strings.TrimSpace(raw)
	if t, ok := typeCodes[strings.ToUpper(raw)]; ok {
		return t
	}
	return strings.ToLower(raw)
}

// Normalize canonicalizes a record's keys: outward codes and size bands are
// uppercased, boroughs lowercased, property types expanded.
func (r PriceRecord) Normalize() PriceRecord {
	r.Outward = strings.ToUpper(strings.TrimSpace(r.Outward))
	r.Borough = strings.ToLower(strings.TrimSpace(r.Borough))
	r.AreaBin = strings.ToUpper(strings.TrimSpace(r.AreaBin))
	r.PropertyType = DwellingType(r.PropertyType)
	return r
}

// cellKey identifies one price cell.
type cellKey struct {
	outward, propertyType, areaBin string
	year                           int
}

func (r PriceRecord) key() cellKey {
	return cellKey{outward: r.Outward, propertyType: r.PropertyType, areaBin: r.AreaBin, year: r.Year}
}

// Dedupe normalizes records and keeps the last record per cell, preserving
// first-seen order. Records without an outward code are dropped.
func Dedupe(records []PriceRecord) []PriceRecord {
	idx := make(map[cellKey]int, len(records))
	out := make([]PriceRecord, 0, len(records))
	for _, r := range records {
		r = r.Normalize()
		if r.Outward == "" {
			continue
		}
		if i, ok := idx[r.key()]; ok {
			out[i] = r
			continue
		}
		idx[r.key()] = len(out)
		out = append(out, r)
	}
	return out
}

// FoldResult counts what Fold did.
type FoldResult struct {
	Applied  int // postcode cells stored
	Skipped  int // records without a usable price or key
	Boroughs int // borough cells derived from record averages
}

// Fold writes records into the builder's postcode price tables, keyed by
// lowercased outward code. Later records overwrite earlier ones for the
// same cell. Records naming a borough also feed borough cells with the
// rounded mean of their prices.
func Fold(b *area.Builder, records []PriceRecord) FoldResult {
	var res FoldResult
	type boroughCell struct {
		borough, size, dwelling string
		year                    int
	}
	sums := map[boroughCell]float64{}
	counts := map[boroughCell]int{}

	for _, r := range Dedupe(records) {
		if r.Price == nil || r.AreaBin == "" || r.PropertyType == "" {
			res.Skipped++
			continue
		}
		if !b.SetPrice(area.LevelPostcode, r.Outward, r.Year, r.AreaBin, r.PropertyType, *r.Price) {
			res.Skipped++
			continue
		}
		res.Applied++
		if r.Borough != "" {
			c := boroughCell{borough: r.Borough, size: r.AreaBin, dwelling: r.PropertyType, year: r.Year}
			sums[c] += *r.Price
			counts[c]++
		}
	}

	cells := make([]boroughCell, 0, len(sums))
	for c := range sums {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		x, y := cells[i], cells[j]
		if x.borough != y.borough {
			return x.borough < y.borough
		}
		if x.year != y.year {
			return x.year < y.year
		}
		if x.size != y.size {
			return x.size < y.size
		}
		return x.dwelling < y.dwelling
	})
	for _, c := range cells {
		mean := math.Round(sums[c] / float64(counts[c]))
		if b.SetPrice(area.LevelBorough, c.borough, c.year, c.size, c.dwelling, mean) {
			res.Boroughs++
		}
	}
	return res
}
