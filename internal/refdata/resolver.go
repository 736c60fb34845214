// Package refdata joins raw transaction rows against the static reference
// tables, producing the resolved calc table the risk pipeline operates on.
package refdata

import (
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Resolve enriches transactions with comparable product, category, peer
// group, corridor bounds and (optionally) area. It is a pure function: the
// inputs are never mutated and every call produces a fresh table.
//
// Join semantics follow the source tables left-outer: a row whose product or
// corridor has no match stays in the output with empty strings / NaN bounds.
// Rows whose customer has no peer group are dropped only when the engine
// configuration says so.
func Resolve(datasetID string, txs []domain.TransactionRow, refs *domain.ReferenceSet, cfg domain.EngineConfig) (*domain.CalcTable, error) {
	grouper, err := NewPeerGrouper(cfg, refs)
	if err != nil {
		return nil, err
	}

	products := indexProducts(refs.Products)
	corridors := NewCorridorIndex(refs.Corridors)

	var areas map[string]string
	if cfg.AreaEnabled {
		areas = indexAreas(refs.Areas)
	}

	nan := domain.NaN()
	rows := make([]domain.CalcRow, 0, len(txs))

	for _, tx := range txs {
		row := domain.CalcRow{
			Product:  tx.Product,
			Country:  tx.Country,
			Customer: tx.Customer,
			Volume:   tx.Volume,
			NetPrice: tx.NetPrice,

			MinCorridor: nan,
			MaxCorridor: nan,

			ComparableVolume: nan,
			ComparablePrice:  nan,
			MinPrice:         nan,
		}

		if ref, ok := products[tx.Product]; ok {
			row.Comparable = ref.Comparable
			row.Category = ref.Category
		}

		group, ok := grouper.GroupFor(tx.Customer)
		if !ok && cfg.DropUnmappedPeerGroup {
			continue
		}
		row.PeerGroup = group

		// Under the dual policy the min bound depends on the generating
		// country, which only the aggregator can produce; the evaluator
		// does that lookup. The max bound is always keyed by the
		// suffering country.
		min, max, found := corridors.Lookup(tx.Country, row.Category)
		if found {
			row.MaxCorridor = domain.Float(max)
			if cfg.CorridorPolicy != domain.CorridorDual {
				row.MinCorridor = domain.Float(min)
			}
		}

		if areas != nil {
			row.Area = areas[tx.Country]
		}

		rows = append(rows, row)
	}

	return &domain.CalcTable{DatasetID: datasetID, Rows: rows}, nil
}

// indexProducts builds the product -> (comparable, category) lookup.
// First occurrence wins; a product maps to at most one comparable.
func indexProducts(refs []domain.ProductRef) map[string]domain.ProductRef {
	idx := make(map[string]domain.ProductRef, len(refs))
	for _, r := range refs {
		if r.Product == "" {
			continue
		}
		if _, exists := idx[r.Product]; !exists {
			idx[r.Product] = r
		}
	}
	return idx
}

func indexAreas(rows []domain.AreaRow) map[string]string {
	idx := make(map[string]string, len(rows))
	for _, r := range rows {
		if _, exists := idx[r.Country]; !exists {
			idx[r.Country] = r.Area
		}
	}
	return idx
}
