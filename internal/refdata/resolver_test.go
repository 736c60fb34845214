package refdata

import (
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func testRefs() *domain.ReferenceSet {
	return &domain.ReferenceSet{
		Products: []domain.ProductRef{
			{Product: "SKU-1", Comparable: "COMP-A", Category: "Snacks"},
			{Product: "SKU-2", Comparable: "COMP-A", Category: "Snacks"},
			{Product: "SKU-3", Comparable: "COMP-B", Category: "Drinks"},
		},
		PeerMappings: map[string][]domain.PeerGroupRow{
			domain.DefaultMappingName: {
				{Customer: "Acme Retail", PeerGroup: "Alliance One"},
				{Customer: "Beta Markets", PeerGroup: "Alliance One"},
			},
			"intl": {
				{Customer: "Acme Retail", PeerGroup: "Intl Alliance"},
			},
		},
		Corridors: []domain.CorridorRow{
			{Country: "Italy", Category: "Snacks", Min: 0.9, Max: 1.1},
			{Country: "France", Category: "Snacks", Min: 0.8, Max: 1.2},
		},
		Areas: []domain.AreaRow{
			{Country: "Italy", Area: "South Europe"},
			{Country: "France", Area: "West Europe"},
		},
	}
}

func TestResolveJoins(t *testing.T) {
	txs := []domain.TransactionRow{
		{Product: "SKU-1", Country: "Italy", Customer: "Acme Retail", Volume: 100, NetPrice: 10},
	}

	cfg := domain.DefaultEngineConfig()
	table, err := Resolve("ds-1", txs, testRefs(), cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table.Rows))
	}

	row := table.Rows[0]
	if row.Comparable != "COMP-A" {
		t.Errorf("expected comparable COMP-A, got %q", row.Comparable)
	}
	if row.Category != "Snacks" {
		t.Errorf("expected category Snacks, got %q", row.Category)
	}
	if row.PeerGroup != "Alliance One" {
		t.Errorf("expected peer group Alliance One, got %q", row.PeerGroup)
	}
	if row.MinCorridor != 0.9 || row.MaxCorridor != 1.1 {
		t.Errorf("expected corridor [0.9, 1.1], got [%v, %v]", row.MinCorridor, row.MaxCorridor)
	}
}

func TestResolveUnmatchedProduct(t *testing.T) {
	txs := []domain.TransactionRow{
		{Product: "SKU-UNKNOWN", Country: "Italy", Customer: "Acme Retail", Volume: 10, NetPrice: 5},
	}

	cfg := domain.DefaultEngineConfig()
	table, err := Resolve("ds-1", txs, testRefs(), cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// The row stays in the output with empty comparable and NaN bounds.
	if len(table.Rows) != 1 {
		t.Fatalf("expected unmatched row to be retained, got %d rows", len(table.Rows))
	}
	row := table.Rows[0]
	if row.Comparable != "" || row.Category != "" {
		t.Errorf("expected empty comparable/category, got %q/%q", row.Comparable, row.Category)
	}
	if !row.MinCorridor.IsNaN() || !row.MaxCorridor.IsNaN() {
		t.Errorf("expected NaN corridor bounds, got [%v, %v]", row.MinCorridor, row.MaxCorridor)
	}
}

func TestResolveDropUnmappedPeerGroup(t *testing.T) {
	txs := []domain.TransactionRow{
		{Product: "SKU-1", Country: "Italy", Customer: "Acme Retail", Volume: 10, NetPrice: 5},
		{Product: "SKU-1", Country: "Italy", Customer: "No Alliance Co", Volume: 10, NetPrice: 5},
	}

	t.Run("drop", func(t *testing.T) {
		cfg := domain.DefaultEngineConfig()
		cfg.DropUnmappedPeerGroup = true

		table, err := Resolve("ds-1", txs, testRefs(), cfg)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(table.Rows) != 1 {
			t.Fatalf("expected 1 row after drop, got %d", len(table.Rows))
		}
		if table.Rows[0].Customer != "Acme Retail" {
			t.Errorf("wrong row survived: %q", table.Rows[0].Customer)
		}
	})

	t.Run("retain", func(t *testing.T) {
		cfg := domain.DefaultEngineConfig()
		cfg.DropUnmappedPeerGroup = false

		table, err := Resolve("ds-1", txs, testRefs(), cfg)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(table.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(table.Rows))
		}
		if table.Rows[1].PeerGroup != "" {
			t.Errorf("expected empty peer group, got %q", table.Rows[1].PeerGroup)
		}
	})
}

func TestResolveDualPolicyDefersMinCorridor(t *testing.T) {
	txs := []domain.TransactionRow{
		{Product: "SKU-1", Country: "Italy", Customer: "Acme Retail", Volume: 10, NetPrice: 5},
	}

	cfg := domain.DefaultEngineConfig()
	cfg.CorridorPolicy = domain.CorridorDual

	table, err := Resolve("ds-1", txs, testRefs(), cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	row := table.Rows[0]
	if row.MaxCorridor != 1.1 {
		t.Errorf("expected max corridor 1.1 by suffering country, got %v", row.MaxCorridor)
	}
	if !row.MinCorridor.IsNaN() {
		t.Errorf("expected min corridor deferred to evaluator, got %v", row.MinCorridor)
	}
}

func TestResolveAreaDimension(t *testing.T) {
	txs := []domain.TransactionRow{
		{Product: "SKU-1", Country: "Italy", Customer: "Acme Retail", Volume: 10, NetPrice: 5},
	}

	cfg := domain.DefaultEngineConfig()
	cfg.AreaEnabled = true

	table, err := Resolve("ds-1", txs, testRefs(), cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if table.Rows[0].Area != "South Europe" {
		t.Errorf("expected area South Europe, got %q", table.Rows[0].Area)
	}
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	txs := []domain.TransactionRow{
		{Product: "SKU-1", Country: "Italy", Customer: "Acme Retail", Volume: 10, NetPrice: 5},
	}
	original := txs[0]

	cfg := domain.DefaultEngineConfig()
	if _, err := Resolve("ds-1", txs, testRefs(), cfg); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if txs[0] != original {
		t.Error("Resolve mutated its input")
	}
}
