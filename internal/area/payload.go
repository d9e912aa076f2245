package area

import (
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// PricePayload is the shape of the postcode and borough price files.
// Cell values are decoded loosely; anything that is not a JSON number is
// treated as missing.
type PricePayload struct {
	Postcodes map[string]PriceEntry `json:"postcodes"`
	Boroughs  map[string]PriceEntry `json:"boroughs"`
}

// PriceEntry holds one area's raw year → size → type → price table.
type PriceEntry struct {
	Prices map[string]map[string]map[string]any `json:"prices"`
}

// MetricsPayload is the shape of the metrics file.
type MetricsPayload struct {
	Postcodes map[string]MetricsEntry `json:"postcodes"`
	Boroughs  map[string]MetricsEntry `json:"boroughs"`
}

// MetricsEntry holds one area's raw crime series and scalars.
type MetricsEntry struct {
	Crime   map[string]any `json:"crime"`
	Central any            `json:"central"`
	Culture any            `json:"culture"`
}

// ApplyPrices loads every priced area of the payload at level. A nil payload
// is treated as empty.
func (b *Builder) ApplyPrices(level Level, p *PricePayload) int {
	if p == nil {
		return 0
	}
	entries := p.Postcodes
	if level == LevelBorough {
		entries = p.Boroughs
	}

	var cells int
	for name, entry := range entries {
		if b.record(level, name) == nil {
			continue
		}
		for yearKey, sizes := range entry.Prices {
			year, ok := parseYear(yearKey)
			if !ok {
				zap.L().Debug("area: skipping non-numeric year", zap.String("area", name), zap.String("year", yearKey))
				continue
			}
			for size, types := range sizes {
				for dwelling, raw := range types {
					v, ok := numeric(raw)
					if !ok {
						continue
					}
					if b.SetPrice(level, name, year, size, dwelling, v) {
						cells++
					}
				}
			}
		}
	}
	return cells
}

// ApplyMetrics loads every metrics entry of the payload at level. A nil
// payload is treated as empty.
func (b *Builder) ApplyMetrics(level Level, p *MetricsPayload) int {
	if p == nil {
		return 0
	}
	entries := p.Postcodes
	if level == LevelBorough {
		entries = p.Boroughs
	}

	var n int
	for name, entry := range entries {
		if b.record(level, name) == nil {
			continue
		}
		n++
		for yearKey, raw := range entry.Crime {
			year, ok := parseYear(yearKey)
			if !ok {
				continue
			}
			if v, ok := numeric(raw); ok {
				b.SetCrime(level, name, year, v)
			}
		}
		if v, ok := numeric(entry.Central); ok {
			b.SetCentral(level, name, v)
		}
		if v, ok := numeric(entry.Culture); ok {
			b.SetCulture(level, name, v)
		}
	}
	return n
}

func parseYear(s string) (int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return year, true
}

// numeric accepts only decoded JSON numbers.
func numeric(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || !finite(f) {
		return 0, false
	}
	return f, true
}
