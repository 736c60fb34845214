// Offline reporting tool for running the corridor risk engine against CSV
// exports without a running server.
//
// Usage:
//   go run cmd/kestrel-report/main.go -sales sales.csv -products products.csv \
//     -peers peers.csv -corridors corridors.csv
//
// This tool:
//   1. Reads the sales and reference CSV exports
//   2. Resolves the calc table and runs one filtered risk pass
//   3. Prints the by-country and by-country-category summaries
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/pipeline"
	"github.com/opensource-finance/kestrel/internal/refdata"
	"github.com/opensource-finance/kestrel/internal/source"
)

func main() {
	// Parse flags
	salesPath := flag.String("sales", "", "Path to the sales CSV export")
	productsPath := flag.String("products", "", "Path to the product registry CSV")
	peersPath := flag.String("peers", "", "Path to the peer-group mapping CSV")
	corridorsPath := flag.String("corridors", "", "Path to the corridor CSV")
	areasPath := flag.String("areas", "", "Path to the country-area CSV (optional)")
	countries := flag.String("countries", "", "Comma-separated country filter")
	categories := flag.String("categories", "", "Comma-separated category filter")
	peerGroups := flag.String("peer-groups", "", "Comma-separated peer-group filter")
	expression := flag.String("expression", "", "Row filter expression, e.g. 'volume > 100.0'")
	grouping := flag.String("grouping", "suffered", "Summary grouping: suffered or generated")
	ruleMatch := flag.String("rule-match", "", "Group customers by name match instead of the mapping table")
	dual := flag.Bool("dual", false, "Key the min corridor bound by the generating country")
	keepUnmapped := flag.Bool("keep-unmapped", false, "Keep rows whose customer has no peer group")
	topRows := flag.Int("top", 20, "Number of highest-risk rows to print (0 = none)")
	flag.Parse()

	if *salesPath == "" || *productsPath == "" || *peersPath == "" || *corridorsPath == "" {
		fmt.Println("Usage: kestrel-report -sales sales.csv -products products.csv -peers peers.csv -corridors corridors.csv")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	txs, err := readCSV(*salesPath, source.ReadTransactions)
	if err != nil {
		fatalf("failed to read sales: %v", err)
	}
	products, err := readCSV(*productsPath, source.ReadProductRegistry)
	if err != nil {
		fatalf("failed to read products: %v", err)
	}
	peers, err := readCSV(*peersPath, source.ReadPeerMapping)
	if err != nil {
		fatalf("failed to read peer mapping: %v", err)
	}
	corridors, err := readCSV(*corridorsPath, source.ReadCorridors)
	if err != nil {
		fatalf("failed to read corridors: %v", err)
	}

	var areas []domain.AreaRow
	if *areasPath != "" {
		areas, err = readCSV(*areasPath, source.ReadAreas)
		if err != nil {
			fatalf("failed to read areas: %v", err)
		}
	}

	refs := &domain.ReferenceSet{
		Products: products,
		PeerMappings: map[string][]domain.PeerGroupRow{
			domain.DefaultMappingName: peers,
		},
		Corridors: corridors,
		Areas:     areas,
	}

	cfg := domain.DefaultEngineConfig()
	cfg.DropUnmappedPeerGroup = !*keepUnmapped
	cfg.AreaEnabled = len(areas) > 0
	if *ruleMatch != "" {
		cfg.PeerGroupStrategy = domain.PeerGroupRule
		cfg.RuleMatch = *ruleMatch
	}
	if *dual {
		cfg.CorridorPolicy = domain.CorridorDual
	}

	table, err := refdata.Resolve("local", txs, refs, cfg)
	if err != nil {
		fatalf("failed to resolve dataset: %v", err)
	}

	fmt.Printf("Sales rows:     %d\n", len(txs))
	fmt.Printf("Resolved rows:  %d\n", len(table.Rows))
	fmt.Printf("Dropped rows:   %d\n", len(txs)-len(table.Rows))

	p, err := pipeline.New(cfg, refdata.NewCorridorIndex(corridors))
	if err != nil {
		fatalf("failed to build pipeline: %v", err)
	}

	req := &pipeline.Request{
		Filter: pipeline.Filter{
			Countries:  splitList(*countries),
			Categories: splitList(*categories),
			PeerGroups: splitList(*peerGroups),
			Expression: *expression,
		},
		GroupingMode: domain.GroupingMode(*grouping),
	}

	result, err := p.Run(context.Background(), table, req)
	if err != nil {
		fatalf("recompute failed: %v", err)
	}

	printSummary("RISK BY COUNTRY", result.ByCountry, false)
	printSummary("RISK BY COUNTRY AND CATEGORY", result.ByCountryCategory, true)

	if *topRows > 0 {
		printTopRows(result.Rows, *topRows)
	}
}

// readCSV opens a file and feeds it through one of the source readers.
func readCSV[T any](path string, read func(r io.Reader) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return read(file)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printSummary(title string, s domain.Summary, byCategory bool) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", 72))
	if byCategory {
		fmt.Printf("%-20s %-16s %14s %12s %8s\n", "Country", "Category", "Net Sales", "Risk", "Ratio")
	} else {
		fmt.Printf("%-20s %14s %12s %8s\n", "Country", "Net Sales", "Risk", "Ratio")
	}

	for _, row := range s.Rows {
		if byCategory {
			fmt.Printf("%-20s %-16s %14.2f %12.2f %8s\n",
				row.Country, row.Category, row.NetSales, row.Risk, formatRatio(row.RiskRatio))
		} else {
			fmt.Printf("%-20s %14.2f %12.2f %8s\n",
				row.Country, row.NetSales, row.Risk, formatRatio(row.RiskRatio))
		}
	}

	fmt.Println(strings.Repeat("-", 72))
	if byCategory {
		fmt.Printf("%-20s %-16s %14.2f %12.2f %8s\n",
			"TOTAL", "", s.Total.NetSales, s.Total.Risk, formatRatio(s.Total.RiskRatio))
	} else {
		fmt.Printf("%-20s %14.2f %12.2f %8s\n",
			"TOTAL", s.Total.NetSales, s.Total.Risk, formatRatio(s.Total.RiskRatio))
	}
}

func printTopRows(rows []domain.RiskRow, limit int) {
	flagged := make([]domain.RiskRow, 0, len(rows))
	for _, r := range rows {
		if r.Risk > 0 {
			flagged = append(flagged, r)
		}
	}
	sort.Slice(flagged, func(i, j int) bool { return flagged[i].Risk > flagged[j].Risk })
	if len(flagged) > limit {
		flagged = flagged[:limit]
	}

	fmt.Printf("\nHIGHEST-RISK ROWS (%d of %d flagged)\n", len(flagged), countFlagged(rows))
	fmt.Println(strings.Repeat("-", 96))
	fmt.Printf("%-16s %-16s %-20s %-16s %12s %10s\n",
		"Country", "Generating", "Customer", "Comparable", "Risk", "Price")

	for _, r := range flagged {
		fmt.Printf("%-16s %-16s %-20s %-16s %12.2f %10.2f\n",
			r.SufferingCountry, r.GeneratingCountry, r.SufferingCustomer, r.Comparable, r.Risk, r.NetPrice)
	}
}

func countFlagged(rows []domain.RiskRow) int {
	n := 0
	for _, r := range rows {
		if r.Risk > 0 {
			n++
		}
	}
	return n
}

func formatRatio(v domain.Float) string {
	if math.IsNaN(float64(v)) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", float64(v)*100)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
