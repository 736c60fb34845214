// Package aggregate computes volume-weighted comparable prices per
// (comparable, country, customer) and minimum comparable prices per
// (comparable, peer group), including where each minimum originates.
package aggregate

import (
	"github.com/opensource-finance/kestrel/internal/domain"
)

type tripleKey struct {
	comparable string
	country    string
	customer   string
}

type groupKey struct {
	comparable string
	peerGroup  string
}

type tripleAgg struct {
	volume      float64
	weightedSum float64 // Σ price·volume
}

// minRecord is the cheapest comparable price seen in a (comparable, peer
// group) and the triple that achieves it.
type minRecord struct {
	price    float64
	country  string
	customer string
}

// Recompute derives the comparable volumes/prices and the per-group minimum
// price columns from the given rows and nothing else. Callers must pass the
// currently filtered subset: minimum prices are never carried over from an
// unfiltered baseline, because filtering changes the comparison universe.
//
// The input is not mutated; a new slice is returned.
func Recompute(rows []domain.CalcRow) []domain.CalcRow {
	out := make([]domain.CalcRow, len(rows))
	copy(out, rows)

	triples := make(map[tripleKey]*tripleAgg)
	for _, row := range out {
		// Rows without a comparable product have no comparison group.
		// Pooling them under an empty key would invent a shared weighted
		// price across unrelated unknown products.
		if row.Comparable == "" {
			continue
		}
		key := tripleKey{comparable: row.Comparable, country: row.Country, customer: row.Customer}
		agg, ok := triples[key]
		if !ok {
			agg = &tripleAgg{}
			triples[key] = agg
		}
		agg.volume += row.Volume
		agg.weightedSum += row.NetPrice * row.Volume
	}

	for i := range out {
		if out[i].Comparable == "" {
			// Undefined all the way down: net sales derived from this
			// price stay NaN and drop out of the summaries.
			out[i].ComparableVolume = domain.NaN()
			out[i].ComparablePrice = domain.NaN()
			continue
		}
		key := tripleKey{comparable: out[i].Comparable, country: out[i].Country, customer: out[i].Customer}
		agg := triples[key]
		out[i].ComparableVolume = domain.Float(agg.volume)
		if agg.volume == 0 {
			// Zero comparable volume leaves the weighted price
			// undefined; the sentinel propagates downstream.
			out[i].ComparablePrice = domain.NaN()
		} else {
			out[i].ComparablePrice = domain.Float(agg.weightedSum / agg.volume)
		}
	}

	minimums := make(map[groupKey]minRecord)
	for _, row := range out {
		if row.Comparable == "" || row.PeerGroup == "" {
			continue
		}
		if row.ComparablePrice.IsNaN() {
			continue
		}

		key := groupKey{comparable: row.Comparable, peerGroup: row.PeerGroup}
		candidate := minRecord{price: float64(row.ComparablePrice), country: row.Country, customer: row.Customer}
		best, ok := minimums[key]
		if !ok || candidate.less(best) {
			minimums[key] = candidate
		}
	}

	for i := range out {
		key := groupKey{comparable: out[i].Comparable, peerGroup: out[i].PeerGroup}
		if rec, ok := minimums[key]; ok && out[i].Comparable != "" && out[i].PeerGroup != "" {
			out[i].MinPrice = domain.Float(rec.price)
			out[i].GeneratingCountry = rec.country
			out[i].GeneratingCustomer = rec.customer
		} else {
			out[i].MinPrice = domain.NaN()
			out[i].GeneratingCountry = ""
			out[i].GeneratingCustomer = ""
		}
	}

	return out
}

// less orders candidates by price, then country, then customer ascending.
// Exact price ties resolve to the lexicographically smallest origin so the
// generating location never depends on input row order.
func (r minRecord) less(other minRecord) bool {
	if r.price != other.price {
		return r.price < other.price
	}
	if r.country != other.country {
		return r.country < other.country
	}
	return r.customer < other.customer
}
