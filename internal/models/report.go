package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ComparisonItem holds the comparison outcome for a single invoice
// line. Nullable money fields are pointers so that unmatched lines and
// zero-catalogue-price percentage gaps render as JSON null instead of
// a misleading zero.
type ComparisonItem struct {
	InvoiceItem           *InvoiceLineItem `json:"invoice_item"`
	CatalogueItem         *CatalogueItem   `json:"catalogue_item,omitempty"`
	InvoicePrice          decimal.Decimal  `json:"invoice_price"`
	InvoicePriceConverted *decimal.Decimal `json:"invoice_price_converted,omitempty"`
	CataloguePrice        *decimal.Decimal `json:"catalogue_price,omitempty"`
	PriceDifference       *decimal.Decimal `json:"price_difference,omitempty"`
	PercentageDiff        *decimal.Decimal `json:"percentage_diff,omitempty"`
	ExchangeRate          *decimal.Decimal `json:"exchange_rate,omitempty"`
	MatchConfidence       MatchConfidence  `json:"match_confidence"`
	MatchScore            float64          `json:"match_score,omitempty"`
	MatchedOn             MatchedField     `json:"matched_on,omitempty"`
	Status                ItemStatus       `json:"status"`
	Note                  string           `json:"note,omitempty"`
}

// IsMatched reports whether the line was matched to a catalogue item
func (ci *ComparisonItem) IsMatched() bool {
	return ci.CatalogueItem != nil && ci.Status != StatusUnmatched
}

// String returns a string representation of the ComparisonItem
func (ci *ComparisonItem) String() string {
	matched := "none"
	if ci.CatalogueItem != nil {
		matched = ci.CatalogueItem.ID
	}
	return fmt.Sprintf("ComparisonItem{Line: %d, Catalogue: %s, Status: %s, Confidence: %s}",
		ci.InvoiceItem.LineNumber, matched, ci.Status, ci.MatchConfidence)
}

// ComparisonReport aggregates the comparison of a whole invoice
// against a catalogue.
type ComparisonReport struct {
	Items             []*ComparisonItem `json:"items"`
	TotalItems        int               `json:"total_items"`
	MatchedItems      int               `json:"matched_items"`
	TotalOvercharge   decimal.Decimal   `json:"total_overcharge"`
	TotalUndercharge  decimal.Decimal   `json:"total_undercharge"`
	InvoiceCurrency   string            `json:"invoice_currency"`
	CatalogueCurrency string            `json:"catalogue_currency"`
	ExchangeRate      *decimal.Decimal  `json:"exchange_rate,omitempty"`
	Warnings          []string          `json:"warnings,omitempty"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// NewComparisonReport creates an empty report for the given currencies
func NewComparisonReport(invoiceCurrency, catalogueCurrency string) *ComparisonReport {
	return &ComparisonReport{
		Items:             make([]*ComparisonItem, 0),
		TotalOvercharge:   decimal.Zero,
		TotalUndercharge:  decimal.Zero,
		InvoiceCurrency:   NormalizeCurrencyCode(invoiceCurrency),
		CatalogueCurrency: NormalizeCurrencyCode(catalogueCurrency),
		GeneratedAt:       time.Now(),
	}
}

// IsCrossCurrency reports whether invoice and catalogue use different
// currencies.
func (r *ComparisonReport) IsCrossCurrency() bool {
	return r.InvoiceCurrency != r.CatalogueCurrency
}

// CountByStatus returns the number of items with the given status
func (r *ComparisonReport) CountByStatus(status ItemStatus) int {
	count := 0
	for _, item := range r.Items {
		if item.Status == status {
			count++
		}
	}
	return count
}

// MatchRate returns the fraction of items matched, in [0, 1]
func (r *ComparisonReport) MatchRate() float64 {
	if r.TotalItems == 0 {
		return 0
	}
	return float64(r.MatchedItems) / float64(r.TotalItems)
}

// AddWarning appends a report-level warning
func (r *ComparisonReport) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}

// Validate checks internal consistency of the report aggregates
func (r *ComparisonReport) Validate() error {
	if r.TotalItems != len(r.Items) {
		return fmt.Errorf("total items %d does not match item count %d", r.TotalItems, len(r.Items))
	}

	if r.MatchedItems > r.TotalItems {
		return fmt.Errorf("matched items %d exceeds total items %d", r.MatchedItems, r.TotalItems)
	}

	if r.TotalOvercharge.IsNegative() {
		return fmt.Errorf("total overcharge cannot be negative: %s", r.TotalOvercharge.String())
	}

	if r.TotalUndercharge.IsNegative() {
		return fmt.Errorf("total undercharge cannot be negative: %s", r.TotalUndercharge.String())
	}

	return nil
}
