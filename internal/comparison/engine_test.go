package comparison

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"price-comparison-service/internal/currency"
	"price-comparison-service/internal/models"
)

func testCatalogue() []*models.CatalogueItem {
	return []*models.CatalogueItem{
		models.NewCatalogueItem("CAT-001", "Olive Oil 1L", "OIL-1000", decimal.NewFromFloat(10.00)),
		models.NewCatalogueItem("CAT-002", "Organic Milk 1L", "MLK-1000", decimal.NewFromFloat(4.99)),
		models.NewCatalogueItem("CAT-003", "Whole Wheat Bread 800g", "BRD-0800", decimal.NewFromFloat(2.49)),
		models.NewCatalogueItem("CAT-004", "Free Sample Pack", "FSP-0000", decimal.Zero),
	}
}

func testRateProvider(t *testing.T) currency.RateProvider {
	t.Helper()
	provider, err := currency.NewStaticRateProvider([]currency.Rate{
		{From: "EUR", To: "GBP", Rate: decimal.NewFromFloat(0.85)},
	})
	if err != nil {
		t.Fatalf("failed to build rate provider: %v", err)
	}
	return provider
}

func buildEngine(t *testing.T, provider currency.RateProvider) *Engine {
	t.Helper()
	engine, err := NewEngine(testCatalogue(), provider, nil)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return engine
}

func TestNewEngine_EmptyCatalogue(t *testing.T) {
	_, err := NewEngine(nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for empty catalogue, got nil")
	}
}

func TestEngine_Compare_Overcharge(t *testing.T) {
	engine := buildEngine(t, nil)

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(2), decimal.NewFromFloat(12.00)),
	}

	report, err := engine.Compare(context.Background(), lines, "USD", "USD")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if report.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", report.TotalItems)
	}

	item := report.Items[0]
	if item.Status != models.StatusOvercharge {
		t.Errorf("expected OVERCHARGE, got %s", item.Status)
	}
	if item.PriceDifference.String() != "2" {
		t.Errorf("expected difference 2, got %s", item.PriceDifference.String())
	}
	if item.PercentageDiff.String() != "20" {
		t.Errorf("expected 20 percent, got %s", item.PercentageDiff.String())
	}
	if item.MatchConfidence != models.ConfidenceExact {
		t.Errorf("expected EXACT confidence, got %s", item.MatchConfidence)
	}

	if report.TotalOvercharge.String() != "2" {
		t.Errorf("expected total overcharge 2, got %s", report.TotalOvercharge.String())
	}
	if !report.TotalUndercharge.IsZero() {
		t.Errorf("expected zero undercharge, got %s", report.TotalUndercharge.String())
	}
}

func TestEngine_Compare_WithProgressReporting(t *testing.T) {
	config := DefaultConfig()
	config.ProgressReporting = true

	engine, err := NewEngine(testCatalogue(), nil, config)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(1), decimal.NewFromFloat(10.00)),
		models.NewInvoiceLineItem(2, "Organic Milk 1L", decimal.NewFromInt(3), decimal.NewFromFloat(4.99)),
	}

	report, err := engine.Compare(context.Background(), lines, "USD", "USD")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if report.TotalItems != 2 {
		t.Errorf("expected 2 items, got %d", report.TotalItems)
	}
}

func TestEngine_Compare_ExactPriceMatch(t *testing.T) {
	engine := buildEngine(t, nil)

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Organic Milk 1L", decimal.NewFromInt(1), decimal.NewFromFloat(4.99)),
	}

	report, err := engine.Compare(context.Background(), lines, "USD", "USD")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	item := report.Items[0]
	if item.Status != models.StatusMatch {
		t.Errorf("expected MATCH, got %s", item.Status)
	}
	if !item.PriceDifference.IsZero() {
		t.Errorf("expected zero difference, got %s", item.PriceDifference.String())
	}
	if report.ExchangeRate != nil {
		t.Error("same-currency report should have nil exchange rate")
	}
}

func TestEngine_Compare_CrossCurrency(t *testing.T) {
	engine := buildEngine(t, testRateProvider(t))

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(1), decimal.NewFromInt(100)),
	}

	report, err := engine.Compare(context.Background(), lines, "EUR", "GBP")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	item := report.Items[0]
	if item.InvoicePriceConverted == nil || item.InvoicePriceConverted.String() != "85" {
		t.Fatalf("expected converted price 85, got %v", item.InvoicePriceConverted)
	}
	if item.PriceDifference.String() != "75" {
		t.Errorf("expected difference 75, got %s", item.PriceDifference.String())
	}
	if item.Status != models.StatusOvercharge {
		t.Errorf("expected OVERCHARGE, got %s", item.Status)
	}
	if item.ExchangeRate == nil || item.ExchangeRate.String() != "0.85" {
		t.Errorf("expected item exchange rate 0.85, got %v", item.ExchangeRate)
	}
	if report.ExchangeRate == nil || report.ExchangeRate.String() != "0.85" {
		t.Errorf("expected report exchange rate 0.85, got %v", report.ExchangeRate)
	}
}

func TestEngine_Compare_Undercharge(t *testing.T) {
	// 100 EUR at 0.85 = 85 GBP against a 90 GBP catalogue price
	catalogue := []*models.CatalogueItem{
		models.NewCatalogueItem("CAT-001", "Olive Oil 1L", "OIL-1000", decimal.NewFromInt(90)),
	}
	engine, err := NewEngine(catalogue, testRateProvider(t), nil)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(1), decimal.NewFromInt(100)),
	}

	report, err := engine.Compare(context.Background(), lines, "EUR", "GBP")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	item := report.Items[0]
	if item.Status != models.StatusUndercharge {
		t.Errorf("expected UNDERCHARGE, got %s", item.Status)
	}
	if item.PriceDifference.String() != "-5" {
		t.Errorf("expected difference -5, got %s", item.PriceDifference.String())
	}
	if report.TotalUndercharge.String() != "5" {
		t.Errorf("expected total undercharge 5, got %s", report.TotalUndercharge.String())
	}
}

func TestEngine_Compare_ZeroCataloguePrice(t *testing.T) {
	engine := buildEngine(t, nil)

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Free Sample Pack", decimal.NewFromInt(1), decimal.NewFromFloat(0.50)),
	}

	report, err := engine.Compare(context.Background(), lines, "USD", "USD")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	item := report.Items[0]
	if item.PercentageDiff != nil {
		t.Errorf("expected nil percentage for zero catalogue price, got %s", item.PercentageDiff.String())
	}
	if item.Status != models.StatusOvercharge {
		t.Errorf("status still computed from difference sign, got %s", item.Status)
	}
}

func TestEngine_Compare_UnmatchedLine(t *testing.T) {
	engine := buildEngine(t, nil)

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Xylophone", decimal.NewFromInt(1), decimal.NewFromInt(50)),
	}

	report, err := engine.Compare(context.Background(), lines, "USD", "USD")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	item := report.Items[0]
	if item.Status != models.StatusUnmatched {
		t.Errorf("expected UNMATCHED, got %s", item.Status)
	}
	if item.CatalogueItem != nil {
		t.Error("unmatched item should have nil catalogue item")
	}
	if item.PriceDifference != nil {
		t.Error("unmatched item should have nil price difference")
	}
	if report.MatchedItems != 0 {
		t.Errorf("expected 0 matched items, got %d", report.MatchedItems)
	}
}

func TestEngine_Compare_InvalidLineSkipAndReport(t *testing.T) {
	engine := buildEngine(t, nil)

	invalid := &models.InvoiceLineItem{
		LineNumber:  2,
		ProductName: "",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(5),
	}

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(1), decimal.NewFromInt(10)),
		invalid,
	}

	report, err := engine.Compare(context.Background(), lines, "USD", "USD")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if report.TotalItems != 2 {
		t.Fatalf("invalid lines must still appear in the report, got %d items", report.TotalItems)
	}

	second := report.Items[1]
	if second.InvoiceItem.LineNumber != 2 {
		t.Fatalf("items should be sorted by line number")
	}
	if second.Status != models.StatusUnmatched {
		t.Errorf("expected UNMATCHED for invalid line, got %s", second.Status)
	}
	if second.Note == "" {
		t.Error("invalid line should carry an explanatory note")
	}
}

func TestEngine_Compare_MissingRatePairDegradesLine(t *testing.T) {
	engine := buildEngine(t, testRateProvider(t))

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(1), decimal.NewFromInt(100)),
	}

	// Provider only knows EUR/GBP
	report, err := engine.Compare(context.Background(), lines, "USD", "GBP")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	item := report.Items[0]
	if item.Status != models.StatusUnmatched {
		t.Errorf("expected UNMATCHED when rate is missing, got %s", item.Status)
	}
	if item.Note == "" {
		t.Error("expected a note explaining the missing rate")
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("expected 1 report warning, got %d", len(report.Warnings))
	}
}

func TestEngine_Compare_CrossCurrencyWithoutProvider(t *testing.T) {
	engine := buildEngine(t, nil)

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(1), decimal.NewFromInt(100)),
	}

	_, err := engine.Compare(context.Background(), lines, "EUR", "GBP")
	if err == nil {
		t.Fatal("expected error for cross-currency comparison without rates")
	}
}

func TestEngine_Compare_InvalidCurrencyCode(t *testing.T) {
	engine := buildEngine(t, nil)

	_, err := engine.Compare(context.Background(), nil, "DOLLARS", "USD")
	if err == nil {
		t.Fatal("expected error for invalid currency code")
	}
}

func TestEngine_Compare_AggregateConsistency(t *testing.T) {
	engine := buildEngine(t, nil)

	lines := []*models.InvoiceLineItem{
		models.NewInvoiceLineItem(1, "Olive Oil 1L", decimal.NewFromInt(1), decimal.NewFromInt(12)),
		models.NewInvoiceLineItem(2, "Organic Milk 1L", decimal.NewFromInt(2), decimal.NewFromFloat(4.50)),
		models.NewInvoiceLineItem(3, "Whole Wheat Bread 800g", decimal.NewFromInt(1), decimal.NewFromFloat(2.49)),
		models.NewInvoiceLineItem(4, "Xylophone", decimal.NewFromInt(1), decimal.NewFromInt(99)),
	}

	report, err := engine.Compare(context.Background(), lines, "USD", "USD")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}

	if err := report.Validate(); err != nil {
		t.Errorf("report should be internally consistent: %v", err)
	}

	unmatched := report.CountByStatus(models.StatusUnmatched)
	if report.TotalItems != report.MatchedItems+unmatched {
		t.Errorf("totalItems %d != matched %d + unmatched %d",
			report.TotalItems, report.MatchedItems, unmatched)
	}

	// 12 - 10 overcharge, 4.99 - 4.50 undercharge, bread exact
	if report.TotalOvercharge.String() != "2" {
		t.Errorf("expected overcharge 2, got %s", report.TotalOvercharge.String())
	}
	if report.TotalUndercharge.String() != "0.49" {
		t.Errorf("expected undercharge 0.49, got %s", report.TotalUndercharge.String())
	}
	if report.CountByStatus(models.StatusMatch) != 1 {
		t.Errorf("expected 1 exact price match, got %d", report.CountByStatus(models.StatusMatch))
	}
}
