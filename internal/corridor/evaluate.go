// Package corridor derives the per-row risk amount and risk ratio from the
// aggregated calc table and the corridor bounds.
package corridor

import (
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/refdata"
)

// Evaluator applies the corridor-based discount-tolerance rule.
type Evaluator struct {
	policy    domain.CorridorPolicy
	corridors *refdata.CorridorIndex
}

// NewEvaluator creates an evaluator for the given lookup policy.
// The corridor index is only consulted under the dual policy; the single
// policy uses the bounds the resolver already attached.
func NewEvaluator(policy domain.CorridorPolicy, corridors *refdata.CorridorIndex) *Evaluator {
	return &Evaluator{policy: policy, corridors: corridors}
}

// Evaluate computes the risk columns for every row. Rows must already carry
// the aggregator's columns: under the dual policy the min bound is keyed by
// the generating country, which does not exist before aggregation.
//
// NaN policy: an undefined operating corridor or price clamps the risk
// amount to zero, while the risk ratio stays NaN when net sales is zero so
// "no sales" remains distinguishable from "no risk".
func (e *Evaluator) Evaluate(rows []domain.CalcRow) []domain.RiskRow {
	out := make([]domain.RiskRow, len(rows))
	for i, row := range rows {
		out[i] = e.evaluateRow(row)
	}
	return out
}

func (e *Evaluator) evaluateRow(row domain.CalcRow) domain.RiskRow {
	minBound := float64(row.MinCorridor)
	maxBound := float64(row.MaxCorridor)

	if e.policy == domain.CorridorDual {
		if row.GeneratingCountry != "" {
			minBound, _, _ = e.corridors.Lookup(row.GeneratingCountry, row.Category)
		} else {
			minBound = math.NaN()
		}
	}

	operating := math.NaN()
	if !math.IsNaN(minBound) && minBound != 0 {
		operating = maxBound / minBound
	}

	netSales := float64(row.ComparablePrice) * row.Volume
	minPriceNetSales := float64(row.MinPrice) * row.Volume

	risk := netSales - minPriceNetSales*operating
	if math.IsNaN(risk) || risk < 0 {
		risk = 0
	}

	ratio := math.NaN()
	if netSales != 0 {
		ratio = risk / netSales
	}

	return domain.RiskRow{
		SufferingCountry:   row.Country,
		GeneratingCountry:  row.GeneratingCountry,
		SufferingCustomer:  row.Customer,
		GeneratingCustomer: row.GeneratingCustomer,
		PeerGroup:          row.PeerGroup,
		Category:           row.Category,
		Comparable:         row.Comparable,
		Area:               row.Area,
		Volume:             row.Volume,
		NetPrice:           row.NetPrice,
		ComparablePrice:    row.ComparablePrice,
		MinPrice:           row.MinPrice,
		OperatingCorridor:  domain.Float(operating),
		NetSales:           domain.Float(netSales),
		MinPriceNetSales:   domain.Float(minPriceNetSales),
		Risk:               risk,
		RiskRatio:          domain.Float(ratio),
	}
}
