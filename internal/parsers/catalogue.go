package parsers

import (
	"context"
	"fmt"
	"io"

	"price-comparison-service/internal/models"
	"price-comparison-service/pkg/errors"
	"price-comparison-service/pkg/logger"
)

// CatalogueParser handles parsing of supplier catalogue CSV files
type CatalogueParser struct {
	*BaseParser
	config *CatalogueParserConfig
	logger logger.Logger
}

// NewCatalogueParser creates a new CatalogueParser with the given
// configuration
func NewCatalogueParser(config *CatalogueParserConfig) (*CatalogueParser, error) {
	if config == nil {
		config = DefaultCatalogueParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"catalogue_parser_config",
			config,
			err,
		).WithSuggestion("Check the catalogue parser configuration values")
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

	baseParser := NewBaseParser(parseConfig)
	log := logger.GetGlobalLogger().WithComponent("catalogue_parser")

	log.WithFields(logger.Fields{
		"has_header": config.HasHeader,
		"delimiter":  string(config.Delimiter),
	}).Debug("Created catalogue parser")

	return &CatalogueParser{
		BaseParser: baseParser,
		config:     config,
		logger:     log,
	}, nil
}

// ParseCatalogue parses a CSV file containing catalogue items
func (cp *CatalogueParser) ParseCatalogue(filePath string) ([]*models.CatalogueItem, *ParseStats, error) {
	return cp.ParseCatalogueWithContext(context.Background(), filePath)
}

// ParseCatalogueWithContext parses catalogue items with cancellation
// support. Rows that fail to parse or validate are recorded in the
// stats and skipped; the call fails only when the file itself cannot
// be read or yields no valid items.
func (cp *CatalogueParser) ParseCatalogueWithContext(ctx context.Context, filePath string) ([]*models.CatalogueItem, *ParseStats, error) {
	cp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"operation": "parse_catalogue",
	}).Info("Starting catalogue parsing")

	file, reader, err := cp.OpenFile(filePath)
	if err != nil {
		cp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open catalogue file")
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := cp.getRequiredHeaders()
	if err := cp.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		cp.logger.WithError(err).WithFields(logger.Fields{
			"file_path":        filePath,
			"required_headers": requiredHeaders,
		}).Error("Failed to read or validate headers")

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

	var items []*models.CatalogueItem
	seenIDs := make(map[string]int)

	for {
		if parseCtx.IsCancelled() {
			cp.logger.Warn("Catalogue parsing was cancelled")
			return items, stats, errors.InternalError(
				errors.CodeUnexpectedError,
				"catalogue_parsing",
				fmt.Errorf("parsing cancelled by context"),
			)
		}

		record, err := cp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}

			cp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Warn("Failed to read record")

			parseError := errors.ParseError(
				errors.CodeInvalidFormat,
				filePath,
				parseCtx.LineNumber,
				"record",
				"",
				err,
			)

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: parseError.Message,
				Err:     parseError,
			})
			continue
		}

		stats.RecordsParsed++

		item, parseErr := cp.parseCatalogueItemFromRecord(record, parseCtx, filePath)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		if err := item.Validate(); err != nil {
			cp.logger.WithError(err).WithFields(logger.Fields{
				"line_number": parseCtx.LineNumber,
				"item_id":     item.ID,
			}).Warn("Catalogue item validation failed")

			validationError := errors.ValidationError(
				errors.CodeInvalidData,
				"catalogue_item",
				item.ID,
				err,
			)

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: validationError.Message,
				Err:     validationError,
			})
			continue
		}

		// Duplicate IDs keep the first occurrence
		if firstLine, exists := seenIDs[item.ID]; exists {
			cp.logger.WithFields(logger.Fields{
				"item_id":     item.ID,
				"line_number": parseCtx.LineNumber,
				"first_seen":  firstLine,
			}).Warn("Duplicate catalogue item ID, keeping first occurrence")

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   cp.config.GetColumnName("id"),
				Value:   item.ID,
				Message: fmt.Sprintf("duplicate item ID, first seen at line %d", firstLine),
			})
			continue
		}
		seenIDs[item.ID] = parseCtx.LineNumber

		items = append(items, item)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	cp.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    len(stats.Errors),
	}).Info("Catalogue parsing completed")

	if len(stats.Errors) > 0 {
		cp.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	if len(items) == 0 && stats.RecordsParsed > 0 {
		return nil, stats, errors.ValidationError(
			errors.CodeInvalidData,
			"catalogue_file",
			filePath,
			fmt.Errorf("no valid catalogue items out of %d records", stats.RecordsParsed),
		).WithSuggestion("Fix the data format issues and try again")
	}

	return items, stats, nil
}

// getRequiredHeaders returns the list of required header names
func (cp *CatalogueParser) getRequiredHeaders() []string {
	return []string{
		cp.config.GetColumnName("id"),
		cp.config.GetColumnName("product_name"),
		cp.config.GetColumnName("price"),
	}
}

// parseCatalogueItemFromRecord creates a CatalogueItem from a CSV
// record
func (cp *CatalogueParser) parseCatalogueItemFromRecord(record []string, parseCtx *ParseContext, filePath string) (*models.CatalogueItem, *ParseError) {
	id, err := cp.GetFieldValue(record, parseCtx, cp.config.GetColumnName("id"))
	if err != nil {
		return nil, cp.requiredFieldError(parseCtx, filePath, "id", err,
			"Ensure the item ID column exists and has a value")
	}

	productName, err := cp.GetFieldValue(record, parseCtx, cp.config.GetColumnName("product_name"))
	if err != nil {
		return nil, cp.requiredFieldError(parseCtx, filePath, "product_name", err,
			"Ensure the product name column exists and has a value")
	}

	priceStr, err := cp.GetFieldValue(record, parseCtx, cp.config.GetColumnName("price"))
	if err != nil {
		return nil, cp.requiredFieldError(parseCtx, filePath, "price", err,
			"Ensure the price column exists and has a valid decimal value")
	}

	// Optional columns; absence is not an error
	sku := cp.optionalFieldValue(record, parseCtx, "sku")
	unit := cp.optionalFieldValue(record, parseCtx, "unit")
	category := cp.optionalFieldValue(record, parseCtx, "category")

	item, err := models.CreateCatalogueItemFromCSV(id, productName, sku, priceStr, unit, category)
	if err != nil {
		cp.logger.WithError(err).WithFields(logger.Fields{
			"line_number": parseCtx.LineNumber,
			"item_id":     id,
			"price":       priceStr,
		}).Warn("Failed to create catalogue item from CSV data")

		var enhanced *errors.EnhancedParseError
		switch {
		case priceStr == "":
			enhanced = errors.EmptyValueError(filePath, parseCtx.LineNumber, cp.config.GetColumnName("price"))
		case !isDecimalValue(priceStr):
			enhanced = errors.InvalidPriceError(filePath, parseCtx.LineNumber, cp.config.GetColumnName("price"), priceStr)
		default:
			enhanced = errors.NewEnhancedParseError(errors.CodeInvalidData, &errors.ParseContext{
				File:   filePath,
				Line:   parseCtx.LineNumber,
				Column: "catalogue_data",
				Value:  fmt.Sprintf("id=%s, name=%s, price=%s", id, productName, priceStr),
			}, "invalid catalogue item data", err).
				WithSuggestion("Check the price format - use decimal numbers like '4.99'")
		}

		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Message: enhanced.Message,
			Err:     enhanced,
		}
	}

	return item, nil
}

func (cp *CatalogueParser) requiredFieldError(parseCtx *ParseContext, filePath, field string, err error, suggestion string) *ParseError {
	columnName := cp.config.GetColumnName(field)
	parseError := errors.ParseError(
		errors.CodeMissingField,
		filePath,
		parseCtx.LineNumber,
		columnName,
		"",
		err,
	).WithSuggestion(suggestion)

	return &ParseError{
		Line:    parseCtx.LineNumber,
		Field:   columnName,
		Message: parseError.Message,
		Err:     parseError,
	}
}

// asEnhancedError converts a row-level ParseError into an enhanced
// parse error, passing through errors that already carry full context.
func (cp *CatalogueParser) asEnhancedError(parseErr *ParseError, filePath string) *errors.EnhancedParseError {
	if enhanced, ok := parseErr.Err.(*errors.EnhancedParseError); ok {
		return enhanced
	}
	return errors.NewEnhancedParseError(errors.CodeInvalidData, &errors.ParseContext{
		File:   filePath,
		Line:   parseErr.Line,
		Column: parseErr.Field,
		Value:  parseErr.Value,
	}, parseErr.Message, parseErr.Err)
}

func (cp *CatalogueParser) optionalFieldValue(record []string, parseCtx *ParseContext, field string) string {
	columnName := cp.config.GetColumnName(field)
	if columnName == "" {
		return ""
	}
	value, err := cp.GetFieldValue(record, parseCtx, columnName)
	if err != nil {
		return ""
	}
	return value
}

// ValidateCatalogueFile validates that a CSV file has the correct
// format for catalogue items without loading the whole file
func (cp *CatalogueParser) ValidateCatalogueFile(filePath string) error {
	cp.logger.WithField("file_path", filePath).Info("Validating catalogue file format")

	file, reader, err := cp.OpenFile(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	parseCtx := NewParseContext(context.Background())

	requiredHeaders := cp.getRequiredHeaders()
	if err := cp.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		return errors.ParseError(
			errors.CodeMissingColumn,
			filePath,
			parseCtx.LineNumber,
			"headers",
			"",
			err,
		).WithSuggestion("Ensure the CSV file has the required headers: " + fmt.Sprintf("%v", requiredHeaders))
	}

	recordCount := 0
	maxValidation := 10
	collector := errors.NewParseErrorCollector(maxValidation, true)

	for recordCount < maxValidation {
		record, err := cp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}
			collector.Add(errors.NewEnhancedParseError(errors.CodeInvalidFormat, &errors.ParseContext{
				File: filePath,
				Line: parseCtx.LineNumber,
			}, "failed to read record", err))
			continue
		}

		recordCount++

		if _, parseErr := cp.parseCatalogueItemFromRecord(record, parseCtx, filePath); parseErr != nil {
			collector.Add(cp.asEnhancedError(parseErr, filePath))
		}
	}

	if recordCount == 0 {
		return errors.ValidationError(
			errors.CodeMissingField,
			"data_records",
			0,
			nil,
		).WithSuggestion("Ensure the file contains data rows after the header")
	}

	if collector.HasErrors() {
		collected := collector.GetErrors()
		return errors.ValidationError(
			errors.CodeInvalidData,
			"file_format",
			fmt.Sprintf("%d validation errors out of %d records tested", len(collected), recordCount),
			collected[0],
		).WithSuggestion(errors.FormatParseErrorsForUser(collected))
	}

	cp.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"records_tested": recordCount,
	}).Info("Catalogue file validation completed successfully")

	return nil
}
