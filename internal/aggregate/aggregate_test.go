package aggregate

import (
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func calcRow(comparable, country, customer string, volume, price float64) domain.CalcRow {
	return domain.CalcRow{
		Comparable: comparable,
		PeerGroup:  "Alliance One",
		Country:    country,
		Customer:   customer,
		Volume:     volume,
		NetPrice:   price,
	}
}

func TestWeightedComparablePrice(t *testing.T) {
	// Two rows of the same (comparable, country, customer) triple:
	// 100 q at 10 and 50 q at 16 -> 150 q at (1000+800)/150 = 12.
	rows := []domain.CalcRow{
		calcRow("COMP-A", "Italy", "Acme", 100, 10),
		calcRow("COMP-A", "Italy", "Acme", 50, 16),
	}

	out := Recompute(rows)

	for i, row := range out {
		if row.ComparableVolume != 150 {
			t.Errorf("row %d: expected comparable volume 150, got %v", i, row.ComparableVolume)
		}
		if row.ComparablePrice != 12 {
			t.Errorf("row %d: expected comparable price 12, got %v", i, row.ComparablePrice)
		}
	}
}

func TestZeroVolumeYieldsNaNPrice(t *testing.T) {
	rows := []domain.CalcRow{
		calcRow("COMP-A", "Italy", "Acme", 0, 10),
	}

	out := Recompute(rows)

	if !out[0].ComparablePrice.IsNaN() {
		t.Errorf("expected NaN comparable price for zero volume, got %v", out[0].ComparablePrice)
	}
	if out[0].ComparableVolume != 0 {
		t.Errorf("expected comparable volume 0, got %v", out[0].ComparableVolume)
	}
}

func TestMinimumPriceAndOrigin(t *testing.T) {
	rows := []domain.CalcRow{
		calcRow("COMP-A", "Italy", "Acme", 100, 10),
		calcRow("COMP-A", "France", "Beta", 50, 8),
	}

	out := Recompute(rows)

	for i, row := range out {
		if row.MinPrice != 8 {
			t.Errorf("row %d: expected min price 8, got %v", i, row.MinPrice)
		}
		if row.GeneratingCountry != "France" {
			t.Errorf("row %d: expected generating country France, got %q", i, row.GeneratingCountry)
		}
		if row.GeneratingCustomer != "Beta" {
			t.Errorf("row %d: expected generating customer Beta, got %q", i, row.GeneratingCustomer)
		}
	}
}

func TestMinimumTieBreakIsDeterministic(t *testing.T) {
	// Same price in two countries; the lexicographically smaller
	// (country, customer) must win regardless of row order.
	forward := []domain.CalcRow{
		calcRow("COMP-A", "France", "Zeta", 10, 8),
		calcRow("COMP-A", "Austria", "Acme", 10, 8),
	}
	reversed := []domain.CalcRow{forward[1], forward[0]}

	for name, rows := range map[string][]domain.CalcRow{"forward": forward, "reversed": reversed} {
		out := Recompute(rows)
		for i, row := range out {
			if row.GeneratingCountry != "Austria" || row.GeneratingCustomer != "Acme" {
				t.Errorf("%s row %d: expected Austria/Acme, got %s/%s",
					name, i, row.GeneratingCountry, row.GeneratingCustomer)
			}
		}
	}
}

func TestSingleMemberGroupIsItsOwnMinimum(t *testing.T) {
	rows := []domain.CalcRow{
		calcRow("COMP-B", "Italy", "Acme", 10, 7),
	}

	out := Recompute(rows)

	if out[0].MinPrice != 7 {
		t.Errorf("expected own price as minimum, got %v", out[0].MinPrice)
	}
	if out[0].GeneratingCountry != "Italy" || out[0].GeneratingCustomer != "Acme" {
		t.Errorf("expected own triple as origin, got %s/%s", out[0].GeneratingCountry, out[0].GeneratingCustomer)
	}
}

func TestUnmappedProductsAreNotPooled(t *testing.T) {
	// Two distinct unknown products for the same customer must not share a
	// weighted price under an empty comparable key.
	rows := []domain.CalcRow{
		{Comparable: "", PeerGroup: "Alliance One", Country: "Italy", Customer: "Acme", Volume: 100, NetPrice: 5},
		{Comparable: "", PeerGroup: "Alliance One", Country: "Italy", Customer: "Acme", Volume: 100, NetPrice: 9},
		calcRow("COMP-A", "Italy", "Acme", 10, 10),
	}

	out := Recompute(rows)

	for i, row := range out[:2] {
		if !row.ComparablePrice.IsNaN() {
			t.Errorf("row %d: expected NaN comparable price, got %v", i, row.ComparablePrice)
		}
		if !row.ComparableVolume.IsNaN() {
			t.Errorf("row %d: expected NaN comparable volume, got %v", i, row.ComparableVolume)
		}
	}

	// The mapped row is unaffected.
	if out[2].ComparablePrice != 10 || out[2].ComparableVolume != 10 {
		t.Errorf("expected mapped row 10q at 10, got %vq at %v", out[2].ComparableVolume, out[2].ComparablePrice)
	}
}

func TestRowsWithoutGroupGetNoMinimum(t *testing.T) {
	rows := []domain.CalcRow{
		{Comparable: "", PeerGroup: "Alliance One", Country: "Italy", Customer: "Acme", Volume: 10, NetPrice: 5},
		{Comparable: "COMP-A", PeerGroup: "", Country: "Italy", Customer: "Acme", Volume: 10, NetPrice: 5},
	}

	out := Recompute(rows)

	for i, row := range out {
		if !row.MinPrice.IsNaN() {
			t.Errorf("row %d: expected NaN min price, got %v", i, row.MinPrice)
		}
		if row.GeneratingCountry != "" || row.GeneratingCustomer != "" {
			t.Errorf("row %d: expected empty origin, got %s/%s", i, row.GeneratingCountry, row.GeneratingCustomer)
		}
	}
}

func TestFilteredSubsetRecomputesMinimum(t *testing.T) {
	all := []domain.CalcRow{
		calcRow("COMP-A", "Italy", "Acme", 100, 10),
		calcRow("COMP-A", "France", "Beta", 50, 8),
	}

	// Full set: minimum is France at 8.
	full := Recompute(all)
	if full[0].MinPrice != 8 {
		t.Fatalf("expected full-set min 8, got %v", full[0].MinPrice)
	}

	// Filtering out the minimizing member must recompute the minimum from
	// the survivors, never reuse the stale one. The subset minimum can
	// only be >= the superset minimum.
	subset := Recompute(all[:1])
	if subset[0].MinPrice != 10 {
		t.Errorf("expected subset min 10, got %v", subset[0].MinPrice)
	}
	if subset[0].MinPrice < full[0].MinPrice {
		t.Error("subset minimum fell below superset minimum")
	}
	if subset[0].GeneratingCountry != "Italy" {
		t.Errorf("expected origin recomputed to Italy, got %q", subset[0].GeneratingCountry)
	}
}

func TestRecomputeDoesNotMutateInput(t *testing.T) {
	rows := []domain.CalcRow{
		calcRow("COMP-A", "Italy", "Acme", 100, 10),
	}
	original := rows[0]

	Recompute(rows)

	if rows[0] != original {
		t.Error("Recompute mutated its input")
	}
}
