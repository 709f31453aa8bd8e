// Package models defines the core data structures for price comparison:
// catalogue items, invoice line items, match suggestions and the
// comparison report. All monetary values use decimal.Decimal to avoid
// floating point drift in price math.
package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MatchConfidence represents how confident the matcher is that an
// invoice line refers to a given catalogue item.
type MatchConfidence string

const (
	// ConfidenceExact means the normalized name or SKU matched exactly
	ConfidenceExact MatchConfidence = "EXACT"
	// ConfidenceHigh means a near-certain heuristic or fuzzy match
	ConfidenceHigh MatchConfidence = "HIGH"
	// ConfidenceMedium means a probable match that may need review
	ConfidenceMedium MatchConfidence = "MEDIUM"
	// ConfidenceLow means a weak match kept only as a suggestion
	ConfidenceLow MatchConfidence = "LOW"
	// ConfidenceNone means no acceptable match was found
	ConfidenceNone MatchConfidence = "NONE"
)

// String returns the string representation of MatchConfidence
func (c MatchConfidence) String() string {
	return string(c)
}

// IsValid checks if the confidence value is one of the known tiers
func (c MatchConfidence) IsValid() bool {
	switch c {
	case ConfidenceExact, ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNone:
		return true
	}
	return false
}

// AutoAccepted reports whether a match at this confidence is applied
// without manual review. Only exact and high confidence matches are
// accepted automatically; medium and low stay as suggestions.
func (c MatchConfidence) AutoAccepted() bool {
	return c == ConfidenceExact || c == ConfidenceHigh
}

// MatchedField identifies which catalogue field produced a match
type MatchedField string

const (
	MatchedOnName MatchedField = "product_name"
	MatchedOnSKU  MatchedField = "sku"
	MatchedOnBoth MatchedField = "both"
)

// String returns the string representation of MatchedField
func (f MatchedField) String() string {
	return string(f)
}

// ItemStatus classifies the price outcome for a single invoice line
type ItemStatus string

const (
	// StatusMatch means the invoiced price equals the catalogue price
	StatusMatch ItemStatus = "MATCH"
	// StatusOvercharge means the invoiced price exceeds the catalogue price
	StatusOvercharge ItemStatus = "OVERCHARGE"
	// StatusUndercharge means the invoiced price is below the catalogue price
	StatusUndercharge ItemStatus = "UNDERCHARGE"
	// StatusUnmatched means no catalogue item could be matched
	StatusUnmatched ItemStatus = "UNMATCHED"
)

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid checks if the status is one of the known values
func (s ItemStatus) IsValid() bool {
	switch s {
	case StatusMatch, StatusOvercharge, StatusUndercharge, StatusUnmatched:
		return true
	}
	return false
}

// CatalogueItem represents one entry in a supplier price catalogue
type CatalogueItem struct {
	ID          string          `json:"id" csv:"id"`
	ProductName string          `json:"product_name" csv:"product_name"`
	SKU         string          `json:"sku,omitempty" csv:"sku"`
	Price       decimal.Decimal `json:"price" csv:"price"`
	Unit        string          `json:"unit,omitempty" csv:"unit"`
	Category    string          `json:"category,omitempty" csv:"category"`
}

// NewCatalogueItem creates a new CatalogueItem instance
func NewCatalogueItem(id, productName, sku string, price decimal.Decimal) *CatalogueItem {
	return &CatalogueItem{
		ID:          id,
		ProductName: productName,
		SKU:         sku,
		Price:       price,
	}
}

// Validate performs basic validation on the CatalogueItem
func (ci *CatalogueItem) Validate() error {
	if strings.TrimSpace(ci.ID) == "" {
		return fmt.Errorf("catalogue item ID cannot be empty")
	}

	if strings.TrimSpace(ci.ProductName) == "" {
		return fmt.Errorf("catalogue item product name cannot be empty")
	}

	if ci.Price.IsNegative() {
		return fmt.Errorf("catalogue item price cannot be negative: %s", ci.Price.String())
	}

	return nil
}

// String returns a string representation of the CatalogueItem
func (ci *CatalogueItem) String() string {
	return fmt.Sprintf("CatalogueItem{ID: %s, Name: %s, SKU: %s, Price: %s}",
		ci.ID, ci.ProductName, ci.SKU, ci.Price.String())
}

// MarshalJSON implements custom JSON marshaling for CatalogueItem
func (ci *CatalogueItem) MarshalJSON() ([]byte, error) {
	type Alias CatalogueItem
	return json.Marshal(&struct {
		Price string `json:"price"`
		*Alias
	}{
		Price: ci.Price.String(),
		Alias: (*Alias)(ci),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for CatalogueItem
func (ci *CatalogueItem) UnmarshalJSON(data []byte) error {
	type Alias CatalogueItem
	aux := &struct {
		Price string `json:"price"`
		*Alias
	}{
		Alias: (*Alias)(ci),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	ci.Price, err = decimal.NewFromString(aux.Price)
	if err != nil {
		return fmt.Errorf("invalid price format: %w", err)
	}

	return nil
}

// Equals compares two CatalogueItem instances for equality
func (ci *CatalogueItem) Equals(other *CatalogueItem) bool {
	if other == nil {
		return false
	}

	return ci.ID == other.ID &&
		ci.ProductName == other.ProductName &&
		ci.SKU == other.SKU &&
		ci.Price.Equal(other.Price)
}

// InvoiceLineItem represents one line on an invoice or receipt
type InvoiceLineItem struct {
	LineNumber  int             `json:"line_number" csv:"line_number"`
	ProductName string          `json:"product_name" csv:"product_name"`
	Quantity    decimal.Decimal `json:"quantity" csv:"quantity"`
	Unit        string          `json:"unit,omitempty" csv:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price" csv:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" csv:"total_price"`
}

// NewInvoiceLineItem creates a new InvoiceLineItem instance
func NewInvoiceLineItem(lineNumber int, productName string, quantity, unitPrice decimal.Decimal) *InvoiceLineItem {
	return &InvoiceLineItem{
		LineNumber:  lineNumber,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  quantity.Mul(unitPrice),
	}
}

// Validate performs basic validation on the InvoiceLineItem
func (li *InvoiceLineItem) Validate() error {
	if li.LineNumber <= 0 {
		return fmt.Errorf("invoice line number must be positive, got %d", li.LineNumber)
	}

	if strings.TrimSpace(li.ProductName) == "" {
		return fmt.Errorf("invoice line product name cannot be empty")
	}

	if !li.Quantity.IsPositive() {
		return fmt.Errorf("invoice line quantity must be positive: %s", li.Quantity.String())
	}

	if li.UnitPrice.IsNegative() {
		return fmt.Errorf("invoice line unit price cannot be negative: %s", li.UnitPrice.String())
	}

	if li.TotalPrice.IsNegative() {
		return fmt.Errorf("invoice line total price cannot be negative: %s", li.TotalPrice.String())
	}

	return nil
}

// String returns a string representation of the InvoiceLineItem
func (li *InvoiceLineItem) String() string {
	return fmt.Sprintf("InvoiceLineItem{Line: %d, Name: %s, Qty: %s, UnitPrice: %s}",
		li.LineNumber, li.ProductName, li.Quantity.String(), li.UnitPrice.String())
}

// MarshalJSON implements custom JSON marshaling for InvoiceLineItem
func (li *InvoiceLineItem) MarshalJSON() ([]byte, error) {
	type Alias InvoiceLineItem
	return json.Marshal(&struct {
		Quantity   string `json:"quantity"`
		UnitPrice  string `json:"unit_price"`
		TotalPrice string `json:"total_price"`
		*Alias
	}{
		Quantity:   li.Quantity.String(),
		UnitPrice:  li.UnitPrice.String(),
		TotalPrice: li.TotalPrice.String(),
		Alias:      (*Alias)(li),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for InvoiceLineItem
func (li *InvoiceLineItem) UnmarshalJSON(data []byte) error {
	type Alias InvoiceLineItem
	aux := &struct {
		Quantity   string `json:"quantity"`
		UnitPrice  string `json:"unit_price"`
		TotalPrice string `json:"total_price"`
		*Alias
	}{
		Alias: (*Alias)(li),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	li.Quantity, err = decimal.NewFromString(aux.Quantity)
	if err != nil {
		return fmt.Errorf("invalid quantity format: %w", err)
	}

	li.UnitPrice, err = decimal.NewFromString(aux.UnitPrice)
	if err != nil {
		return fmt.Errorf("invalid unit price format: %w", err)
	}

	li.TotalPrice, err = decimal.NewFromString(aux.TotalPrice)
	if err != nil {
		return fmt.Errorf("invalid total price format: %w", err)
	}

	return nil
}

// Equals compares two InvoiceLineItem instances for equality
func (li *InvoiceLineItem) Equals(other *InvoiceLineItem) bool {
	if other == nil {
		return false
	}

	return li.LineNumber == other.LineNumber &&
		li.ProductName == other.ProductName &&
		li.Quantity.Equal(other.Quantity) &&
		li.UnitPrice.Equal(other.UnitPrice) &&
		li.TotalPrice.Equal(other.TotalPrice)
}

// MatchSuggestion is a candidate catalogue item for an invoice line.
// Score is a similarity in [0, 1] where 1 is a perfect match.
type MatchSuggestion struct {
	CatalogueItemID string          `json:"catalogue_item_id"`
	Score           float64         `json:"score"`
	Confidence      MatchConfidence `json:"confidence"`
	MatchedOn       MatchedField    `json:"matched_on"`
}

// String returns a string representation of the MatchSuggestion
func (ms *MatchSuggestion) String() string {
	return fmt.Sprintf("MatchSuggestion{ID: %s, Score: %.3f, Confidence: %s, MatchedOn: %s}",
		ms.CatalogueItemID, ms.Score, ms.Confidence, ms.MatchedOn)
}

// Utility functions for type conversion and validation

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	for _, symbol := range []string{"$", "€", "£", ","} {
		s = strings.ReplaceAll(s, symbol, "")
	}
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// NormalizeCurrencyCode cleans a currency code for comparison
func NormalizeCurrencyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateCatalogueItemFromCSV creates a CatalogueItem from CSV field values
func CreateCatalogueItemFromCSV(id, productName, sku, priceStr, unit, category string) (*CatalogueItem, error) {
	price, err := ParseDecimalFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid price in CSV: %w", err)
	}

	item := NewCatalogueItem(strings.TrimSpace(id), strings.TrimSpace(productName), strings.TrimSpace(sku), price)
	item.Unit = strings.TrimSpace(unit)
	item.Category = strings.TrimSpace(category)

	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalogue item data: %w", err)
	}

	return item, nil
}

// CreateInvoiceLineItemFromCSV creates an InvoiceLineItem from CSV field values.
// When totalStr is empty, the total is computed as quantity times unit price.
func CreateInvoiceLineItemFromCSV(lineNumber int, productName, quantityStr, unit, unitPriceStr, totalStr string) (*InvoiceLineItem, error) {
	quantity, err := ParseDecimalFromString(quantityStr)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity in CSV: %w", err)
	}

	unitPrice, err := ParseDecimalFromString(unitPriceStr)
	if err != nil {
		return nil, fmt.Errorf("invalid unit price in CSV: %w", err)
	}

	item := NewInvoiceLineItem(lineNumber, strings.TrimSpace(productName), quantity, unitPrice)
	item.Unit = strings.TrimSpace(unit)

	if strings.TrimSpace(totalStr) != "" {
		total, err := ParseDecimalFromString(totalStr)
		if err != nil {
			return nil, fmt.Errorf("invalid total price in CSV: %w", err)
		}
		item.TotalPrice = total
	}

	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice line data: %w", err)
	}

	return item, nil
}
