// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"time"
)

// TransactionRow is one observed sale from the export table. Immutable input.
type TransactionRow struct {
	Product  string  `json:"product"`
	Country  string  `json:"country"`
	Customer string  `json:"customer"`
	Volume   float64 `json:"volume"`   // quantity [q]
	NetPrice float64 `json:"netPrice"` // unit net price [EUR/kg]
}

// ProductRef maps a product to its comparable product and category.
// Product -> Comparable is many-to-one; Comparable -> Category is many-to-one.
type ProductRef struct {
	Product    string `json:"product"`
	Comparable string `json:"comparable"`
	Category   string `json:"category"`
}

// PeerGroupRow maps a customer name to a peer-group label (buying alliance).
type PeerGroupRow struct {
	Customer  string `json:"customer"`
	PeerGroup string `json:"peerGroup"`
}

// CorridorRow gives the allowed price-dispersion band for a category in a country.
type CorridorRow struct {
	Country  string  `json:"country"`
	Category string  `json:"category"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// AreaRow maps a country to an area label, an optional grouping dimension.
type AreaRow struct {
	Country string `json:"country"`
	Area    string `json:"area"`
}

// ReferenceSet bundles the static reference tables a dataset is resolved against.
type ReferenceSet struct {
	Products []ProductRef `json:"products"`

	// PeerMappings holds one or more named customer -> peer-group tables.
	// Which one is active is selected by EngineConfig. The rule-derived
	// strategy ignores these entirely.
	PeerMappings map[string][]PeerGroupRow `json:"peerMappings"`

	Corridors []CorridorRow `json:"corridors"`
	Areas     []AreaRow     `json:"areas,omitempty"`
}

// Dataset describes one ingested set of input tables.
type Dataset struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	RowCount  int       `json:"rowCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
