package pipeline

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// GrandTotalLabel marks the appended grand-total row of a summary.
const GrandTotalLabel = "Total"

type summaryKey struct {
	country  string
	category string
}

type sums struct {
	netSales float64
	risk     float64
}

// summarizeByCountry groups the risk rows by country (suffering or
// generating per the mode) and sums net sales and risk.
func summarizeByCountry(rows []domain.RiskRow, mode domain.GroupingMode) domain.Summary {
	return summarize(rows, mode, false)
}

// summarizeByCountryCategory groups by (country, category).
func summarizeByCountryCategory(rows []domain.RiskRow, mode domain.GroupingMode) domain.Summary {
	return summarize(rows, mode, true)
}

func summarize(rows []domain.RiskRow, mode domain.GroupingMode, byCategory bool) domain.Summary {
	groups := make(map[summaryKey]*sums)
	for _, row := range rows {
		country := row.SufferingCountry
		if mode == domain.GroupGenerated {
			country = row.GeneratingCountry
		}
		// Rows without a group key (no generating country, or no
		// category in the category split) stay out of the grouped
		// view, as with any unmatched reference.
		if country == "" {
			continue
		}

		key := summaryKey{country: country}
		if byCategory {
			if row.Category == "" {
				continue
			}
			key.category = row.Category
		}

		agg, ok := groups[key]
		if !ok {
			agg = &sums{}
			groups[key] = agg
		}
		agg.netSales += nanToZero(row.NetSales)
		agg.risk += row.Risk
	}

	keys := make([]summaryKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].country != keys[j].country {
			return keys[i].country < keys[j].country
		}
		return keys[i].category < keys[j].category
	})

	summary := domain.Summary{Rows: make([]domain.SummaryRow, 0, len(keys))}
	var totalNetSales, totalRisk float64
	for _, key := range keys {
		agg := groups[key]
		summary.Rows = append(summary.Rows, domain.SummaryRow{
			Country:   key.country,
			Category:  key.category,
			NetSales:  agg.netSales,
			Risk:      agg.risk,
			RiskRatio: ratio(agg.risk, agg.netSales),
		})
		totalNetSales += agg.netSales
		totalRisk += agg.risk
	}

	// The grand total is a sum of sums; averaging the group ratios would
	// overweight small groups.
	summary.Total = domain.SummaryRow{
		Country:   GrandTotalLabel,
		NetSales:  totalNetSales,
		Risk:      totalRisk,
		RiskRatio: ratio(totalRisk, totalNetSales),
	}

	return summary
}

// ratio leaves a zero denominator as NaN so empty groups are visible.
func ratio(num, den float64) domain.Float {
	if den == 0 {
		return domain.NaN()
	}
	return domain.Float(num / den)
}

// nanToZero keeps undefined per-row values from poisoning a group sum.
func nanToZero(v domain.Float) float64 {
	if v.IsNaN() {
		return 0
	}
	return float64(v)
}
