package domain

// CalcRow is a TransactionRow enriched by the reference resolver and the
// peer-group aggregator. String fields use "" for an unmatched reference;
// Float fields use NaN. Rows are never mutated in place: each pipeline
// stage returns a new slice.
type CalcRow struct {
	// Base transaction fields. Country and Customer are where the sale
	// occurred (the "suffering" side).
	Product  string  `json:"product"`
	Country  string  `json:"country"`
	Customer string  `json:"customer"`
	Volume   float64 `json:"volume"`
	NetPrice float64 `json:"netPrice"`

	// Attached by the reference resolver.
	Comparable  string `json:"comparable"`
	Category    string `json:"category"`
	PeerGroup   string `json:"peerGroup"`
	Area        string `json:"area,omitempty"`
	MinCorridor Float  `json:"minCorridor"`
	MaxCorridor Float  `json:"maxCorridor"`

	// Attached by the peer-group aggregator, always recomputed on the
	// currently filtered subset.
	ComparableVolume   Float  `json:"comparableVolume"`
	ComparablePrice    Float  `json:"comparablePrice"`
	MinPrice           Float  `json:"minPrice"`
	GeneratingCountry  string `json:"generatingCountry"`
	GeneratingCustomer string `json:"generatingCustomer"`
}

// CalcTable is the resolved dataset, the read-only base for every filtered view.
type CalcTable struct {
	DatasetID string    `json:"datasetId"`
	Rows      []CalcRow `json:"rows"`
}

// RiskRow is one row of the evaluator output.
type RiskRow struct {
	SufferingCountry   string  `json:"sufferingCountry"`
	GeneratingCountry  string  `json:"generatingCountry"`
	SufferingCustomer  string  `json:"sufferingCustomer"`
	GeneratingCustomer string  `json:"generatingCustomer"`
	PeerGroup          string  `json:"peerGroup"`
	Category           string  `json:"category"`
	Comparable         string  `json:"comparable"`
	Area               string  `json:"area,omitempty"`
	Volume             float64 `json:"volume"`
	NetPrice           float64 `json:"netPrice"`
	ComparablePrice    Float   `json:"comparablePrice"`
	MinPrice           Float   `json:"minPrice"`
	OperatingCorridor  Float   `json:"operatingCorridor"`
	NetSales           Float   `json:"netSales"`
	MinPriceNetSales   Float   `json:"minPriceNetSales"`
	Risk               float64 `json:"risk"`
	RiskRatio          Float   `json:"riskRatio"`
}

// SummaryRow is one group of a grouped summary. Category is empty for the
// by-country summary and for the grand-total row. Sums are plain floats
// (undefined row values count as zero); only the ratio can be undefined.
type SummaryRow struct {
	Country   string  `json:"country"`
	Category  string  `json:"category,omitempty"`
	NetSales  float64 `json:"netSales"`
	Risk      float64 `json:"risk"`
	RiskRatio Float   `json:"riskRatio"`
}

// Summary is a grouped roll-up of a risk table. Total is the sum of the
// groups' net sales and risk; its ratio is sum-of-sums, never an average
// of the group ratios.
type Summary struct {
	Rows  []SummaryRow `json:"rows"`
	Total SummaryRow   `json:"total"`
}

// GroupingMode selects which country column drives the grouped summaries.
type GroupingMode string

const (
	// GroupSuffered groups by where the sale occurred.
	GroupSuffered GroupingMode = "suffered"

	// GroupGenerated groups by where the group minimum price originates.
	GroupGenerated GroupingMode = "generated"
)

// Valid reports whether the grouping mode is one of the known values.
func (m GroupingMode) Valid() bool {
	return m == GroupSuffered || m == GroupGenerated
}
