// Package comparison orchestrates the complete price verification
// process: matching invoice lines to catalogue items, converting
// prices across currencies, and classifying each line as a match,
// overcharge, undercharge, or unmatched.
package comparison

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"price-comparison-service/internal/currency"
	"price-comparison-service/internal/matcher"
	"price-comparison-service/internal/models"
	"price-comparison-service/pkg/errors"
	"price-comparison-service/pkg/logger"
)

// Engine compares invoice line items against a supplier catalogue.
// An Engine is built once per catalogue and can run multiple invoices
// against it.
type Engine struct {
	matchingEngine *matcher.MatchingEngine
	converter      *currency.Converter
	config         *Config
	log            logger.Logger
}

// NewEngine creates a comparison engine for the given catalogue.
// The rate provider may be nil for same-currency runs; cross-currency
// comparisons without a provider fail per line with a report warning.
func NewEngine(
	catalogue []*models.CatalogueItem,
	provider currency.RateProvider,
	config *Config,
) (*Engine, error) {

	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ComparisonError(errors.CodeProcessingError, "configuration validation", err)
	}

	if len(catalogue) == 0 {
		return nil, errors.ComparisonError(errors.CodeEmptyCatalogue, "engine construction", nil)
	}

	matchingEngine, err := matcher.NewMatchingEngine(catalogue, config.Matching)
	if err != nil {
		return nil, errors.ComparisonError(errors.CodeMatchingFailed, "matching engine construction", err)
	}

	var converter *currency.Converter
	if provider != nil {
		converter = currency.NewConverter(provider)
	}

	return &Engine{
		matchingEngine: matchingEngine,
		converter:      converter,
		config:         config,
		log:            logger.WithComponent("comparison"),
	}, nil
}

// SetSuggester installs an external match suggester used as the last
// cascade layer when AI fallback is enabled.
func (e *Engine) SetSuggester(suggester matcher.MatchSuggester) {
	e.matchingEngine.SetSuggester(suggester)
}

// Compare runs the invoice lines through the matching cascade and the
// price comparison, producing an immutable report. Invalid lines are
// skipped and recorded as UNMATCHED with a note rather than aborting
// the run.
func (e *Engine) Compare(
	ctx context.Context,
	lines []*models.InvoiceLineItem,
	invoiceCurrency, catalogueCurrency string,
) (*models.ComparisonReport, error) {

	if err := currency.ValidateCode(invoiceCurrency); err != nil {
		return nil, err
	}
	if err := currency.ValidateCode(catalogueCurrency); err != nil {
		return nil, err
	}

	report := models.NewComparisonReport(invoiceCurrency, catalogueCurrency)

	if report.IsCrossCurrency() && e.converter == nil {
		return nil, errors.CurrencyError(errors.CodeUnsupportedCurrency,
			report.InvoiceCurrency, report.CatalogueCurrency,
			fmt.Errorf("cross-currency comparison requires exchange rates"))
	}

	e.log.WithFields(map[string]interface{}{
		"lines":              len(lines),
		"invoice_currency":   report.InvoiceCurrency,
		"catalogue_currency": report.CatalogueCurrency,
	}).Info("Starting price comparison")

	valid, invalid := e.partitionLines(lines)

	results := e.matchingEngine.MatchAll(ctx, valid)
	if err := ctx.Err(); err != nil {
		return nil, errors.ComparisonError(errors.CodeProcessingError, "invoice matching", err)
	}

	var progress *logger.ProgressTracker
	if e.config.ProgressReporting {
		progress = logger.NewProgressTracker(logger.ProgressConfig{
			Operation: "price comparison",
			Total:     int64(len(valid)),
			Logger:    e.log,
		})
	}

	for i, line := range valid {
		item := e.compareLine(line, results[i], report)
		report.Items = append(report.Items, item)
		if progress != nil {
			progress.Increment()
		}
	}
	if progress != nil {
		progress.Complete()
	}
	report.Items = append(report.Items, invalid...)

	sortItemsByLine(report.Items)

	report.TotalItems = len(report.Items)
	for _, item := range report.Items {
		if item.Status != models.StatusUnmatched {
			report.MatchedItems++
		}
		switch item.Status {
		case models.StatusOvercharge:
			report.TotalOvercharge = report.TotalOvercharge.Add(*item.PriceDifference)
		case models.StatusUndercharge:
			report.TotalUndercharge = report.TotalUndercharge.Add(item.PriceDifference.Abs())
		}
	}

	e.log.WithFields(map[string]interface{}{
		"total_items":   report.TotalItems,
		"matched_items": report.MatchedItems,
		"overcharge":    report.TotalOvercharge.String(),
		"undercharge":   report.TotalUndercharge.String(),
	}).Info("Price comparison complete")

	return report, nil
}

// partitionLines separates valid lines from invalid ones, turning
// invalid lines into UNMATCHED report entries so nothing is silently
// dropped.
func (e *Engine) partitionLines(lines []*models.InvoiceLineItem) ([]*models.InvoiceLineItem, []*models.ComparisonItem) {
	valid := make([]*models.InvoiceLineItem, 0, len(lines))
	var invalid []*models.ComparisonItem

	for _, line := range lines {
		if line == nil {
			continue
		}
		if err := line.Validate(); err != nil {
			e.log.WithError(err).WithField("line", line.LineNumber).Warn("Skipping invalid invoice line")
			invalid = append(invalid, &models.ComparisonItem{
				InvoiceItem:     line,
				InvoicePrice:    line.UnitPrice,
				MatchConfidence: models.ConfidenceNone,
				Status:          models.StatusUnmatched,
				Note:            fmt.Sprintf("invalid line: %v", err),
			})
			continue
		}
		valid = append(valid, line)
	}

	return valid, invalid
}

// compareLine builds the ComparisonItem for a single matched or
// unmatched invoice line.
func (e *Engine) compareLine(
	line *models.InvoiceLineItem,
	match *matcher.MatchResult,
	report *models.ComparisonReport,
) *models.ComparisonItem {

	item := &models.ComparisonItem{
		InvoiceItem:     line,
		InvoicePrice:    line.UnitPrice,
		MatchConfidence: models.ConfidenceNone,
		Status:          models.StatusUnmatched,
	}

	if !match.Matched() {
		return item
	}

	item.CatalogueItem = match.CatalogueItem
	item.MatchConfidence = match.Suggestion.Confidence
	item.MatchScore = match.Suggestion.Score
	item.MatchedOn = match.Suggestion.MatchedOn

	cataloguePrice := match.CatalogueItem.Price
	item.CataloguePrice = &cataloguePrice

	converted, err := e.convertPrice(line.UnitPrice, report)
	if err != nil {
		// A missing rate pair degrades the line, not the run
		item.Status = models.StatusUnmatched
		item.Note = fmt.Sprintf("cannot convert %s to %s", report.InvoiceCurrency, report.CatalogueCurrency)
		e.log.WithError(err).WithField("line", line.LineNumber).Warn("Currency conversion failed")
		return item
	}

	item.InvoicePriceConverted = &converted.Amount
	if report.IsCrossCurrency() {
		rate := converted.Rate
		item.ExchangeRate = &rate
		if report.ExchangeRate == nil {
			report.ExchangeRate = &rate
		}
	}

	diff := converted.Amount.Sub(cataloguePrice)
	item.PriceDifference = &diff

	if !cataloguePrice.IsZero() {
		pct := diff.Div(cataloguePrice).Mul(decimal.NewFromInt(100))
		item.PercentageDiff = &pct
	}

	switch {
	case diff.IsPositive():
		item.Status = models.StatusOvercharge
	case diff.IsNegative():
		item.Status = models.StatusUndercharge
	default:
		item.Status = models.StatusMatch
	}

	return item
}

// convertPrice converts an invoice price into the catalogue currency,
// recording a report warning the first time a pair is unsupported.
func (e *Engine) convertPrice(price decimal.Decimal, report *models.ComparisonReport) (*currency.Conversion, error) {
	if !report.IsCrossCurrency() {
		return &currency.Conversion{Amount: price, Rate: decimal.NewFromInt(1)}, nil
	}

	conv, err := e.converter.Convert(price, report.InvoiceCurrency, report.CatalogueCurrency)
	if err != nil {
		if currency.IsUnsupportedCurrency(err) && !e.hasRateWarning(report) {
			report.AddWarning(fmt.Sprintf("no exchange rate for %s, affected lines reported as unmatched",
				currency.FormatPair(report.InvoiceCurrency, report.CatalogueCurrency)))
		}
		return nil, err
	}
	return conv, nil
}

func (e *Engine) hasRateWarning(report *models.ComparisonReport) bool {
	return len(report.Warnings) > 0
}

func sortItemsByLine(items []*models.ComparisonItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].InvoiceItem.LineNumber < items[j].InvoiceItem.LineNumber
	})
}
