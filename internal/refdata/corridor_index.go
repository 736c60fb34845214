package refdata

import (
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

type corridorKey struct {
	country  string
	category string
}

// CorridorIndex looks up corridor bounds by (country, category).
type CorridorIndex struct {
	bounds map[corridorKey]domain.CorridorRow
}

// NewCorridorIndex builds an index over the corridor table. On duplicate
// (country, category) keys the first row wins.
func NewCorridorIndex(rows []domain.CorridorRow) *CorridorIndex {
	bounds := make(map[corridorKey]domain.CorridorRow, len(rows))
	for _, r := range rows {
		key := corridorKey{country: r.Country, category: r.Category}
		if _, exists := bounds[key]; !exists {
			bounds[key] = r
		}
	}
	return &CorridorIndex{bounds: bounds}
}

// Lookup returns the (min, max) bounds for a country and category.
// A missing entry yields (NaN, NaN, false): an absent corridor propagates
// as an undefined operating corridor, never as a silent zero.
func (ix *CorridorIndex) Lookup(country, category string) (min, max float64, ok bool) {
	r, ok := ix.bounds[corridorKey{country: country, category: category}]
	if !ok {
		nan := math.NaN()
		return nan, nan, false
	}
	return r.Min, r.Max, true
}

// Len returns the number of indexed corridor entries.
func (ix *CorridorIndex) Len() int {
	return len(ix.bounds)
}
