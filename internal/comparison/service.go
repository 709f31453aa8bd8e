package comparison

import (
	"context"
	"fmt"
	"time"

	"price-comparison-service/internal/currency"
	"price-comparison-service/internal/matcher"
	"price-comparison-service/internal/models"
	"price-comparison-service/internal/parsers"
	"price-comparison-service/pkg/logger"
)

// Service runs file-based comparisons: it parses the catalogue,
// invoice, and optional rates files, then hands the data to the
// comparison engine.
type Service struct {
	catalogueParser *parsers.CatalogueParser
	invoiceParser   *parsers.InvoiceParser
	ratesParser     *parsers.RatesParser
	suggester       matcher.MatchSuggester
	config          *Config
	log             logger.Logger
}

// ComparisonRequest describes a file-based comparison run
type ComparisonRequest struct {
	CatalogueFile     string
	InvoiceFile       string
	InvoiceCurrency   string
	CatalogueCurrency string
	RatesFile         string

	CatalogueConfig *parsers.CatalogueParserConfig
	InvoiceConfig   *parsers.InvoiceParserConfig
}

// Validate validates the comparison request
func (r *ComparisonRequest) Validate() error {
	if r.CatalogueFile == "" {
		return fmt.Errorf("catalogue file path is required")
	}

	if r.InvoiceFile == "" {
		return fmt.Errorf("invoice file path is required")
	}

	if err := currency.ValidateCode(r.InvoiceCurrency); err != nil {
		return fmt.Errorf("invalid invoice currency: %w", err)
	}

	if err := currency.ValidateCode(r.CatalogueCurrency); err != nil {
		return fmt.Errorf("invalid catalogue currency: %w", err)
	}

	crossCurrency := models.NormalizeCurrencyCode(r.InvoiceCurrency) != models.NormalizeCurrencyCode(r.CatalogueCurrency)
	if crossCurrency && r.RatesFile == "" {
		return fmt.Errorf("rates file is required for cross-currency comparison")
	}

	return nil
}

// ComparisonResult bundles the report with processing statistics
type ComparisonResult struct {
	Report          *models.ComparisonReport `json:"report"`
	ProcessingStats *ProcessingStats         `json:"processing_stats,omitempty"`
	ProcessedAt     time.Time                `json:"processed_at"`
}

// ProcessingStats contains detailed processing statistics
type ProcessingStats struct {
	CatalogueItems      int           `json:"catalogue_items"`
	InvoiceLines        int           `json:"invoice_lines"`
	ParseErrors         int           `json:"parse_errors"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
	ParsingTime         time.Duration `json:"parsing_time"`
	ComparisonTime      time.Duration `json:"comparison_time"`
}

// NewService creates a comparison service
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	catalogueParser, err := parsers.NewCatalogueParser(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalogue parser: %w", err)
	}

	invoiceParser, err := parsers.NewInvoiceParser(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice parser: %w", err)
	}

	ratesParser, err := parsers.NewRatesParser(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rates parser: %w", err)
	}

	return &Service{
		catalogueParser: catalogueParser,
		invoiceParser:   invoiceParser,
		ratesParser:     ratesParser,
		config:          config,
		log:             logger.WithComponent("comparison"),
	}, nil
}

// SetSuggester installs an external match suggester for engines built
// by subsequent ProcessComparison calls.
func (s *Service) SetSuggester(suggester matcher.MatchSuggester) {
	s.suggester = suggester
}

// ProcessComparison performs the complete file-based comparison
func (s *Service) ProcessComparison(ctx context.Context, request *ComparisonRequest) (*ComparisonResult, error) {
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	startTime := time.Now()
	result := &ComparisonResult{
		ProcessedAt:     startTime,
		ProcessingStats: &ProcessingStats{},
	}

	// Step 1: parse inputs
	parsingStart := time.Now()

	catalogue, catalogueStats, err := s.parseCatalogue(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	lines, invoiceStats, err := s.parseInvoice(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice: %w", err)
	}

	provider, err := s.loadRates(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}

	parsingDuration := time.Since(parsingStart)

	// Step 2: build the engine and compare
	engine, err := NewEngine(catalogue, provider, s.config)
	if err != nil {
		return nil, err
	}
	if s.suggester != nil {
		engine.SetSuggester(s.suggester)
	}

	comparisonStart := time.Now()
	report, err := engine.Compare(ctx, lines, request.InvoiceCurrency, request.CatalogueCurrency)
	if err != nil {
		return nil, err
	}
	comparisonDuration := time.Since(comparisonStart)

	// Step 3: surface parse errors as report warnings
	if catalogueStats != nil && catalogueStats.HasErrors() {
		report.AddWarning(fmt.Sprintf("%d catalogue rows skipped due to parse errors", catalogueStats.ErrorCount))
	}
	if invoiceStats != nil && invoiceStats.HasErrors() {
		report.AddWarning(fmt.Sprintf("%d invoice rows skipped due to parse errors", invoiceStats.ErrorCount))
	}

	result.Report = report

	if s.config.IncludeStatistics {
		stats := result.ProcessingStats
		stats.CatalogueItems = len(catalogue)
		stats.InvoiceLines = len(lines)
		if catalogueStats != nil {
			stats.ParseErrors += catalogueStats.ErrorCount
		}
		if invoiceStats != nil {
			stats.ParseErrors += invoiceStats.ErrorCount
		}
		stats.ParsingTime = parsingDuration
		stats.ComparisonTime = comparisonDuration
		stats.TotalProcessingTime = time.Since(startTime)
	} else {
		result.ProcessingStats = nil
	}

	return result, nil
}

func (s *Service) parseCatalogue(ctx context.Context, request *ComparisonRequest) ([]*models.CatalogueItem, *parsers.ParseStats, error) {
	parser := s.catalogueParser
	if request.CatalogueConfig != nil {
		custom, err := parsers.NewCatalogueParser(request.CatalogueConfig)
		if err != nil {
			return nil, nil, err
		}
		parser = custom
	}

	return parser.ParseCatalogueWithContext(ctx, request.CatalogueFile)
}

func (s *Service) parseInvoice(ctx context.Context, request *ComparisonRequest) ([]*models.InvoiceLineItem, *parsers.ParseStats, error) {
	parser := s.invoiceParser
	if request.InvoiceConfig != nil {
		custom, err := parsers.NewInvoiceParser(request.InvoiceConfig)
		if err != nil {
			return nil, nil, err
		}
		parser = custom
	}

	return parser.ParseInvoiceWithContext(ctx, request.InvoiceFile)
}

// loadRates builds a rate provider from the request's rates file, or
// returns nil when no file was given (same-currency runs).
func (s *Service) loadRates(ctx context.Context, request *ComparisonRequest) (currency.RateProvider, error) {
	if request.RatesFile == "" {
		return nil, nil
	}

	rates, _, err := s.ratesParser.ParseRatesWithContext(ctx, request.RatesFile)
	if err != nil {
		return nil, err
	}

	provider, err := currency.NewStaticRateProvider(rates)
	if err != nil {
		return nil, err
	}

	s.log.WithField("pairs", len(rates)).Debug("Loaded exchange rates")
	return provider, nil
}
