// Package reporter renders comparison results for people and machines.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: one row per invoice line for spreadsheet analysis
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(nil)
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"price-comparison-service/internal/comparison"
	"price-comparison-service/internal/models"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	// Output format
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeMatchedItems    bool `json:"include_matched_items"`
	IncludeUnmatchedItems  bool `json:"include_unmatched_items"`
	IncludeWarnings        bool `json:"include_warnings"`
	IncludeProcessingStats bool `json:"include_processing_stats"`

	// Console formatting options
	MaxListedItems int `json:"max_listed_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	// Sorting options
	SortByDifference bool `json:"sort_by_difference"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                 FormatConsole,
		IncludeMatchedItems:    true,
		IncludeUnmatchedItems:  true,
		IncludeWarnings:        true,
		IncludeProcessingStats: true,
		MaxListedItems:         50,
		CSVDelimiter:           ',',
		CSVHeaders:             true,
		SortByDifference:       false,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.MaxListedItems < 1 {
		return fmt.Errorf("max listed items must be at least 1, got %d", c.MaxListedItems)
	}

	return nil
}

// ReportGenerator renders comparison results in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a report generator with the given configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders a comparison result to the provided writer
func (rg *ReportGenerator) GenerateReport(result *comparison.ComparisonResult, writer io.Writer) error {
	if result == nil || result.Report == nil {
		return fmt.Errorf("comparison result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result.Report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport renders a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(result *comparison.ComparisonResult, writer io.Writer) error {
	report := result.Report

	fmt.Fprintf(writer, "PRICE COMPARISON REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))
	if report.IsCrossCurrency() {
		fmt.Fprintf(writer, "Currencies: invoice %s, catalogue %s\n", report.InvoiceCurrency, report.CatalogueCurrency)
		if report.ExchangeRate != nil {
			fmt.Fprintf(writer, "Exchange Rate: %s\n", report.ExchangeRate.String())
		}
	} else {
		fmt.Fprintf(writer, "Currency: %s\n", report.InvoiceCurrency)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	rg.printSummary(report, writer)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== FINANCIAL SUMMARY ===\n")
	rg.printFinancialSummary(report, writer)
	fmt.Fprintf(writer, "\n")

	discrepant := rg.discrepantItems(report)
	if rg.config.IncludeMatchedItems && len(discrepant) > 0 {
		fmt.Fprintf(writer, "=== PRICE DISCREPANCIES ===\n")
		rg.printDiscrepantItems(discrepant, report, writer)
		fmt.Fprintf(writer, "\n")
	}

	unmatched := rg.itemsByStatus(report, models.StatusUnmatched)
	if rg.config.IncludeUnmatchedItems && len(unmatched) > 0 {
		fmt.Fprintf(writer, "=== UNMATCHED LINES ===\n")
		rg.printUnmatchedItems(unmatched, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeWarnings && len(report.Warnings) > 0 {
		fmt.Fprintf(writer, "=== WARNINGS ===\n")
		for _, warning := range report.Warnings {
			fmt.Fprintf(writer, "  - %s\n", warning)
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeProcessingStats && result.ProcessingStats != nil {
		fmt.Fprintf(writer, "=== PROCESSING STATISTICS ===\n")
		rg.printProcessingStats(result.ProcessingStats, writer)
	}

	return nil
}

// generateJSONReport renders a structured JSON report
func (rg *ReportGenerator) generateJSONReport(result *comparison.ComparisonResult, writer io.Writer) error {
	filtered := rg.filterResultForOutput(result)

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(filtered)
}

// generateCSVReport renders one CSV row per invoice line. Converted
// price and exchange rate columns only appear on cross-currency
// reports.
func (rg *ReportGenerator) generateCSVReport(report *models.ComparisonReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	crossCurrency := report.IsCrossCurrency()

	if rg.config.CSVHeaders {
		headers := []string{
			"line_number",
			"product_name",
			"quantity",
			"invoice_price",
		}
		if crossCurrency {
			headers = append(headers, "converted_price", "exchange_rate")
		}
		headers = append(headers,
			"catalogue_id",
			"catalogue_price",
			"price_difference",
			"percentage_diff",
			"match_confidence",
			"status",
			"note",
		)
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, item := range rg.selectItems(report) {
		record := []string{
			fmt.Sprintf("%d", item.InvoiceItem.LineNumber),
			item.InvoiceItem.ProductName,
			item.InvoiceItem.Quantity.String(),
			item.InvoicePrice.StringFixed(2),
		}
		if crossCurrency {
			record = append(record,
				decimalOrEmpty(item.InvoicePriceConverted, 2),
				decimalOrEmptyRaw(item.ExchangeRate),
			)
		}

		catalogueID := ""
		if item.CatalogueItem != nil {
			catalogueID = item.CatalogueItem.ID
		}
		record = append(record,
			catalogueID,
			decimalOrEmpty(item.CataloguePrice, 2),
			decimalOrEmpty(item.PriceDifference, 2),
			decimalOrEmpty(item.PercentageDiff, 2),
			string(item.MatchConfidence),
			string(item.Status),
			item.Note,
		)

		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write item record for line %d: %w", item.InvoiceItem.LineNumber, err)
		}
	}

	return nil
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummary(report *models.ComparisonReport, writer io.Writer) {
	fmt.Fprintf(writer, "Invoice Lines:\n")
	fmt.Fprintf(writer, "  Total:     %d\n", report.TotalItems)
	fmt.Fprintf(writer, "  Matched:   %d (%.1f%%)\n",
		report.MatchedItems,
		rg.calculatePercentage(report.MatchedItems, report.TotalItems))
	unmatched := report.CountByStatus(models.StatusUnmatched)
	fmt.Fprintf(writer, "  Unmatched: %d (%.1f%%)\n",
		unmatched,
		rg.calculatePercentage(unmatched, report.TotalItems))

	fmt.Fprintf(writer, "\nOutcome Breakdown:\n")
	fmt.Fprintf(writer, "  Price Match:  %d\n", report.CountByStatus(models.StatusMatch))
	fmt.Fprintf(writer, "  Overcharged:  %d\n", report.CountByStatus(models.StatusOvercharge))
	fmt.Fprintf(writer, "  Undercharged: %d\n", report.CountByStatus(models.StatusUndercharge))
}

func (rg *ReportGenerator) printFinancialSummary(report *models.ComparisonReport, writer io.Writer) {
	currency := report.CatalogueCurrency

	fmt.Fprintf(writer, "Total Overcharge:  %s %s\n", report.TotalOvercharge.StringFixed(2), currency)
	fmt.Fprintf(writer, "Total Undercharge: %s %s\n", report.TotalUndercharge.StringFixed(2), currency)

	net := report.TotalOvercharge.Sub(report.TotalUndercharge)
	fmt.Fprintf(writer, "Net Difference:    %s %s\n", net.StringFixed(2), currency)
}

func (rg *ReportGenerator) printDiscrepantItems(items []*models.ComparisonItem, report *models.ComparisonReport, writer io.Writer) {
	fmt.Fprintf(writer, "Lines with price discrepancies: %d\n\n", len(items))

	for i, item := range items {
		direction := "overcharged"
		if item.Status == models.StatusUndercharge {
			direction = "undercharged"
		}

		fmt.Fprintf(writer, "  %d. Line %d: %s, %s by %s %s",
			i+1,
			item.InvoiceItem.LineNumber,
			item.InvoiceItem.ProductName,
			direction,
			item.PriceDifference.Abs().StringFixed(2),
			report.CatalogueCurrency)
		if item.PercentageDiff != nil {
			fmt.Fprintf(writer, " (%s%%)", item.PercentageDiff.StringFixed(1))
		}
		fmt.Fprintf(writer, "\n")

		if i >= rg.config.MaxListedItems-1 && len(items) > rg.config.MaxListedItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(items)-rg.config.MaxListedItems)
			break
		}
	}
}

func (rg *ReportGenerator) printUnmatchedItems(items []*models.ComparisonItem, writer io.Writer) {
	fmt.Fprintf(writer, "Lines with no catalogue match: %d\n\n", len(items))

	for i, item := range items {
		fmt.Fprintf(writer, "  %d. Line %d: %s, Qty: %s, Unit Price: %s",
			i+1,
			item.InvoiceItem.LineNumber,
			item.InvoiceItem.ProductName,
			item.InvoiceItem.Quantity.String(),
			item.InvoicePrice.StringFixed(2))
		if item.Note != "" {
			fmt.Fprintf(writer, " (%s)", item.Note)
		}
		fmt.Fprintf(writer, "\n")

		if i >= rg.config.MaxListedItems-1 && len(items) > rg.config.MaxListedItems {
			fmt.Fprintf(writer, "  ... and %d more\n", len(items)-rg.config.MaxListedItems)
			break
		}
	}
}

func (rg *ReportGenerator) printProcessingStats(stats *comparison.ProcessingStats, writer io.Writer) {
	fmt.Fprintf(writer, "Catalogue Items:   %d\n", stats.CatalogueItems)
	fmt.Fprintf(writer, "Invoice Lines:     %d\n", stats.InvoiceLines)
	fmt.Fprintf(writer, "Parse Errors:      %d\n", stats.ParseErrors)
	fmt.Fprintf(writer, "Total Processing:  %v\n", stats.TotalProcessingTime)
	fmt.Fprintf(writer, "Parsing Time:      %v\n", stats.ParsingTime)
	fmt.Fprintf(writer, "Comparison Time:   %v\n", stats.ComparisonTime)
}

// Helper methods

// discrepantItems returns overcharged and undercharged lines, worst
// first when sorting by difference is enabled.
func (rg *ReportGenerator) discrepantItems(report *models.ComparisonReport) []*models.ComparisonItem {
	items := make([]*models.ComparisonItem, 0)
	for _, item := range report.Items {
		if item.Status == models.StatusOvercharge || item.Status == models.StatusUndercharge {
			items = append(items, item)
		}
	}

	if rg.config.SortByDifference {
		sort.Slice(items, func(i, j int) bool {
			return items[i].PriceDifference.Abs().GreaterThan(items[j].PriceDifference.Abs())
		})
	}

	return items
}

func (rg *ReportGenerator) itemsByStatus(report *models.ComparisonReport, status models.ItemStatus) []*models.ComparisonItem {
	items := make([]*models.ComparisonItem, 0)
	for _, item := range report.Items {
		if item.Status == status {
			items = append(items, item)
		}
	}
	return items
}

// selectItems applies the include filters to the report items for
// row-oriented formats.
func (rg *ReportGenerator) selectItems(report *models.ComparisonReport) []*models.ComparisonItem {
	items := make([]*models.ComparisonItem, 0, len(report.Items))
	for _, item := range report.Items {
		if item.Status == models.StatusUnmatched {
			if rg.config.IncludeUnmatchedItems {
				items = append(items, item)
			}
			continue
		}
		if rg.config.IncludeMatchedItems {
			items = append(items, item)
		}
	}
	return items
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func (rg *ReportGenerator) filterResultForOutput(result *comparison.ComparisonResult) map[string]interface{} {
	report := result.Report

	output := map[string]interface{}{
		"total_items":        report.TotalItems,
		"matched_items":      report.MatchedItems,
		"total_overcharge":   report.TotalOvercharge,
		"total_undercharge":  report.TotalUndercharge,
		"invoice_currency":   report.InvoiceCurrency,
		"catalogue_currency": report.CatalogueCurrency,
		"generated_at":       report.GeneratedAt,
	}

	if report.ExchangeRate != nil {
		output["exchange_rate"] = report.ExchangeRate
	}

	items := rg.selectItems(report)
	output["items"] = items

	if rg.config.IncludeWarnings && len(report.Warnings) > 0 {
		output["warnings"] = report.Warnings
	}

	if rg.config.IncludeProcessingStats && result.ProcessingStats != nil {
		output["processing_stats"] = result.ProcessingStats
	}

	return output
}

// UpdateConfiguration replaces the generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func decimalOrEmpty(value *decimal.Decimal, places int32) string {
	if value == nil {
		return ""
	}
	return value.StringFixed(places)
}

func decimalOrEmptyRaw(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return value.String()
}
