// Package source reads the tabular input files into typed tables.
// Headers are matched exactly against the historical export format; a
// missing required column is a SchemaError, never a silent null column.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Column names of the historical export files.
const (
	ColProduct    = "Product Hierarchy - Product"
	ColComparable = "Product Hierarchy - Comparable Product"
	ColCategory   = "Product Hierarchy - Category"
	ColCountry    = "Sellin Country Hierarchy - Country"
	ColCustomer   = "Customer Hierarchy - Customer"
	ColVolume     = "Volumes [q]"
	ColNetPrice   = "3Net Price [EUR/kg]"

	ColCustomerName   = "Customer Name"
	ColBuyingAlliance = "Buying Alliance"

	ColCorridorCountry = "Country"
	ColCorridorAttr    = "Attribute"
	ColCorridorMin     = "Corridor Min"
	ColCorridorMax     = "Corridor Max"

	ColAreaCountry = "Country"
	ColArea        = "Area"
)

// Table names used in schema errors.
const (
	TableTransactions = "transactions"
	TableProducts     = "product registry"
	TablePeerGroups   = "peer mapping"
	TableCorridors    = "corridors"
	TableAreas        = "areas"
)

// ReadTransactions parses the sales export.
func ReadTransactions(r io.Reader) ([]domain.TransactionRow, error) {
	records, idx, err := readTable(r, TableTransactions,
		ColProduct, ColCountry, ColCustomer, ColVolume, ColNetPrice)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.TransactionRow, 0, len(records))
	for i, rec := range records {
		volume, err := parseFloat(rec[idx[ColVolume]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid %s: %w", TableTransactions, i+2, ColVolume, err)
		}
		price, err := parseFloat(rec[idx[ColNetPrice]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid %s: %w", TableTransactions, i+2, ColNetPrice, err)
		}
		rows = append(rows, domain.TransactionRow{
			Product:  rec[idx[ColProduct]],
			Country:  rec[idx[ColCountry]],
			Customer: rec[idx[ColCustomer]],
			Volume:   volume,
			NetPrice: price,
		})
	}
	return rows, nil
}

// ReadProductRegistry parses the product registry. One file serves both the
// product -> comparable and comparable -> category mappings.
func ReadProductRegistry(r io.Reader) ([]domain.ProductRef, error) {
	records, idx, err := readTable(r, TableProducts, ColProduct, ColComparable, ColCategory)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.ProductRef, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.ProductRef{
			Product:    rec[idx[ColProduct]],
			Comparable: rec[idx[ColComparable]],
			Category:   rec[idx[ColCategory]],
		})
	}
	return rows, nil
}

// ReadPeerMapping parses a customer -> peer-group mapping file.
func ReadPeerMapping(r io.Reader) ([]domain.PeerGroupRow, error) {
	records, idx, err := readTable(r, TablePeerGroups, ColCustomerName, ColBuyingAlliance)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.PeerGroupRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.PeerGroupRow{
			Customer:  rec[idx[ColCustomerName]],
			PeerGroup: rec[idx[ColBuyingAlliance]],
		})
	}
	return rows, nil
}

// ReadCorridors parses the corridor table.
func ReadCorridors(r io.Reader) ([]domain.CorridorRow, error) {
	records, idx, err := readTable(r, TableCorridors,
		ColCorridorCountry, ColCorridorAttr, ColCorridorMin, ColCorridorMax)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.CorridorRow, 0, len(records))
	for i, rec := range records {
		min, err := parseFloat(rec[idx[ColCorridorMin]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid %s: %w", TableCorridors, i+2, ColCorridorMin, err)
		}
		max, err := parseFloat(rec[idx[ColCorridorMax]])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid %s: %w", TableCorridors, i+2, ColCorridorMax, err)
		}
		rows = append(rows, domain.CorridorRow{
			Country:  rec[idx[ColCorridorCountry]],
			Category: rec[idx[ColCorridorAttr]],
			Min:      min,
			Max:      max,
		})
	}
	return rows, nil
}

// ReadAreas parses the optional country -> area mapping.
func ReadAreas(r io.Reader) ([]domain.AreaRow, error) {
	records, idx, err := readTable(r, TableAreas, ColAreaCountry, ColArea)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.AreaRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, domain.AreaRow{
			Country: rec[idx[ColAreaCountry]],
			Area:    rec[idx[ColArea]],
		})
	}
	return rows, nil
}

// readTable reads all CSV records and locates the required columns.
func readTable(r io.Reader, table string, required ...string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are validated per cell access

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	if len(records) == 0 {
		return nil, nil, domain.NewSchemaError(table, required[0])
	}

	header := records[0]
	idx := make(map[string]int, len(required))
	for _, col := range required {
		pos := -1
		for i, name := range header {
			if strings.TrimSpace(name) == col {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, nil, domain.NewSchemaError(table, col)
		}
		idx[col] = pos
	}

	rows := records[1:]
	for i, rec := range rows {
		if len(rec) < len(header) {
			return nil, nil, fmt.Errorf("%s row %d: expected %d fields, got %d", table, i+2, len(header), len(rec))
		}
	}
	return rows, idx, nil
}

// parseFloat accepts an empty cell as zero; the engine's NaN sentinels are
// reserved for values that are undefined by computation, not by omission.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
