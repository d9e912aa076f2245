package area

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// ResolvePrice returns the representative price of rec for the given year,
// size band and dwelling type. Either filter may be All.
//
// The result is a flat mean over every included (size, type) cell, so sparse
// bands weigh as much as dense ones. Callers rely on this exact behavior.
func ResolvePrice(rec *Record, year int, size, dwelling string) (float64, bool) {
	if rec == nil {
		return 0, false
	}
	sizes, ok := rec.Prices[year]
	if !ok {
		return 0, false
	}

	var sizeKeys []string
	if size == All {
		sizeKeys = sortedKeys(sizes)
	} else {
		sizeKeys = []string{size}
	}

	var values []float64
	for _, sk := range sizeKeys {
		types, ok := sizes[sk]
		if !ok {
			continue
		}
		if dwelling == All {
			for _, tk := range sortedKeys(types) {
				values = append(values, types[tk])
			}
			continue
		}
		if v, ok := types[dwelling]; ok {
			values = append(values, v)
		}
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return 0, false
	}
	return mean, true
}

// sortedKeys keeps summation order stable so repeated calls agree bit for bit.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
