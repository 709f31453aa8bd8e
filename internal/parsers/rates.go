package parsers

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"price-comparison-service/internal/currency"
	"price-comparison-service/internal/models"
	"price-comparison-service/pkg/errors"
	"price-comparison-service/pkg/logger"
)

// RatesParser handles parsing of exchange rate CSV files
type RatesParser struct {
	*BaseParser
	config *RatesParserConfig
	logger logger.Logger
}

// NewRatesParser creates a new RatesParser with the given
// configuration
func NewRatesParser(config *RatesParserConfig) (*RatesParser, error) {
	if config == nil {
		config = DefaultRatesParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"rates_parser_config",
			config,
			err,
		).WithSuggestion("Check the rates parser configuration values")
	}

	parseConfig := &ParseConfig{
		HasHeader:        config.HasHeader,
		Delimiter:        config.Delimiter,
		Comment:          0,
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		MaxFieldSize:     1000000,
		ValidateEncoding: true,
	}

	return &RatesParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("rates_parser"),
	}, nil
}

// ParseRates parses a CSV file containing exchange rates
func (rp *RatesParser) ParseRates(filePath string) ([]currency.Rate, *ParseStats, error) {
	return rp.ParseRatesWithContext(context.Background(), filePath)
}

// ParseRatesWithContext parses exchange rates with cancellation
// support. A rates file with no valid rows is an error since the run
// that needs it cannot convert anything.
func (rp *RatesParser) ParseRatesWithContext(ctx context.Context, filePath string) ([]currency.Rate, *ParseStats, error) {
	rp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"operation": "parse_rates",
	}).Info("Starting rates parsing")

	file, reader, err := rp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := []string{rp.config.FromColumn, rp.config.ToColumn, rp.config.RateColumn}
	if err := rp.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		if len(parseCtx.Headers) > 0 {
			return nil, stats, errors.MissingColumnError(filePath, requiredHeaders, parseCtx.Headers)
		}
		return nil, stats, errors.ParseError(
			errors.CodeMissingColumn,
			filePath,
			parseCtx.LineNumber,
			"headers",
			"",
			err,
		).WithSuggestion("Ensure the CSV file has the required headers: " + fmt.Sprintf("%v", requiredHeaders))
	}

	var rates []currency.Rate

	for {
		if parseCtx.IsCancelled() {
			return rates, stats, errors.InternalError(
				errors.CodeUnexpectedError,
				"rates_parsing",
				fmt.Errorf("parsing cancelled by context"),
			)
		}

		record, err := rp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "failed to read record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		rate, parseErr := rp.parseRateFromRecord(record, parseCtx, filePath)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		rates = append(rates, *rate)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	rp.logger.WithFields(logger.Fields{
		"file_path":     filePath,
		"records_valid": stats.RecordsValid,
		"error_count":   len(stats.Errors),
	}).Info("Rates parsing completed")

	if len(rates) == 0 && stats.RecordsParsed > 0 {
		return nil, stats, errors.ValidationError(
			errors.CodeInvalidData,
			"rates_file",
			filePath,
			fmt.Errorf("no valid rates out of %d records", stats.RecordsParsed),
		).WithSuggestion("Fix the rate format issues and try again")
	}

	return rates, stats, nil
}

// parseRateFromRecord creates a currency.Rate from a CSV record
func (rp *RatesParser) parseRateFromRecord(record []string, parseCtx *ParseContext, filePath string) (*currency.Rate, *ParseError) {
	from, err := rp.GetFieldValue(record, parseCtx, rp.config.FromColumn)
	if err != nil {
		return nil, rp.fieldError(parseCtx, rp.config.FromColumn, "", err)
	}

	to, err := rp.GetFieldValue(record, parseCtx, rp.config.ToColumn)
	if err != nil {
		return nil, rp.fieldError(parseCtx, rp.config.ToColumn, "", err)
	}

	rateStr, err := rp.GetFieldValue(record, parseCtx, rp.config.RateColumn)
	if err != nil {
		return nil, rp.fieldError(parseCtx, rp.config.RateColumn, "", err)
	}

	rate, err := models.ParseDecimalFromString(rateStr)
	if err != nil {
		var enhanced *errors.EnhancedParseError
		if rateStr == "" {
			enhanced = errors.EmptyValueError(filePath, parseCtx.LineNumber, rp.config.RateColumn)
		} else {
			enhanced = errors.NewEnhancedParseError(errors.CodeInvalidRate, &errors.ParseContext{
				File:     filePath,
				Line:     parseCtx.LineNumber,
				Column:   rp.config.RateColumn,
				Value:    rateStr,
				Expected: "positive decimal number",
			}, "invalid exchange rate", err).
				WithExamples("0.92", "1.0845").
				WithSuggestion("Rates must be positive decimal numbers like '0.92'")
		}

		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   rp.config.RateColumn,
			Value:   rateStr,
			Message: enhanced.Message,
			Err:     enhanced,
		}
	}

	if rate.LessThanOrEqual(decimal.Zero) {
		enhanced := errors.NewEnhancedParseError(errors.CodeInvalidRate, &errors.ParseContext{
			File:     filePath,
			Line:     parseCtx.LineNumber,
			Column:   rp.config.RateColumn,
			Value:    rateStr,
			Expected: "positive decimal number",
		}, "exchange rate must be positive", nil)

		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   rp.config.RateColumn,
			Value:   rateStr,
			Message: enhanced.Message,
			Err:     enhanced,
		}
	}

	return &currency.Rate{
		From: models.NormalizeCurrencyCode(from),
		To:   models.NormalizeCurrencyCode(to),
		Rate: rate,
	}, nil
}

func (rp *RatesParser) fieldError(parseCtx *ParseContext, field, value string, err error) *ParseError {
	return &ParseError{
		Line:    parseCtx.LineNumber,
		Field:   field,
		Value:   value,
		Message: "missing required field",
		Err:     err,
	}
}
