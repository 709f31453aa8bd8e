package parsers

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"price-comparison-service/internal/models"
	"price-comparison-service/pkg/errors"
	"price-comparison-service/pkg/logger"
)

// InvoiceParser handles parsing of invoice line item CSV files
type InvoiceParser struct {
	*BaseParser
	config *InvoiceParserConfig
	logger logger.Logger
}

// NewInvoiceParser creates a new InvoiceParser with the given
// configuration
func NewInvoiceParser(config *InvoiceParserConfig) (*InvoiceParser, error) {
	if config == nil {
		config = DefaultInvoiceParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"invoice_parser_config",
			config,
			err,
		).WithSuggestion("Check the invoice parser configuration values")
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
	log := logger.GetGlobalLogger().WithComponent("invoice_parser")

	log.WithFields(logger.Fields{
		"has_header": config.HasHeader,
		"delimiter":  string(config.Delimiter),
	}).Debug("Created invoice parser")

	return &InvoiceParser{
		BaseParser: baseParser,
		config:     config,
		logger:     log,
	}, nil
}

// ParseInvoice parses a CSV file containing invoice line items
func (ip *InvoiceParser) ParseInvoice(filePath string) ([]*models.InvoiceLineItem, *ParseStats, error) {
	return ip.ParseInvoiceWithContext(context.Background(), filePath)
}

// ParseInvoiceWithContext parses invoice line items with cancellation
// support. Rows that fail to parse are recorded in the stats and
// skipped so one bad line never loses the rest of the invoice.
func (ip *InvoiceParser) ParseInvoiceWithContext(ctx context.Context, filePath string) ([]*models.InvoiceLineItem, *ParseStats, error) {
	ip.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"operation": "parse_invoice",
	}).Info("Starting invoice parsing")

	file, reader, err := ip.OpenFile(filePath)
	if err != nil {
		ip.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open invoice file")
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := ip.getRequiredHeaders()
	if err := ip.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		ip.logger.WithError(err).WithFields(logger.Fields{
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

	var lines []*models.InvoiceLineItem

	for {
		if parseCtx.IsCancelled() {
			ip.logger.Warn("Invoice parsing was cancelled")
			return lines, stats, errors.InternalError(
				errors.CodeUnexpectedError,
				"invoice_parsing",
				fmt.Errorf("parsing cancelled by context"),
			)
		}

		record, err := ip.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}

			ip.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Warn("Failed to read record")

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

		line, parseErr := ip.parseInvoiceLineFromRecord(record, parseCtx, filePath)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		if err := line.Validate(); err != nil {
			ip.logger.WithError(err).WithFields(logger.Fields{
				"line_number":  parseCtx.LineNumber,
				"invoice_line": line.LineNumber,
			}).Warn("Invoice line validation failed")

			validationError := errors.ValidationError(
				errors.CodeInvalidData,
				"invoice_line",
				line.LineNumber,
				err,
			)

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: validationError.Message,
				Err:     validationError,
			})
			continue
		}

		lines = append(lines, line)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	ip.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    len(stats.Errors),
	}).Info("Invoice parsing completed")

	if len(stats.Errors) > 0 {
		ip.logger.WithField("sample_errors", stats.GetSampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return lines, stats, nil
}

// getRequiredHeaders returns the list of required header names
func (ip *InvoiceParser) getRequiredHeaders() []string {
	return []string{
		ip.config.GetColumnName("line_number"),
		ip.config.GetColumnName("product_name"),
		ip.config.GetColumnName("quantity"),
		ip.config.GetColumnName("unit_price"),
	}
}

// parseInvoiceLineFromRecord creates an InvoiceLineItem from a CSV
// record
func (ip *InvoiceParser) parseInvoiceLineFromRecord(record []string, parseCtx *ParseContext, filePath string) (*models.InvoiceLineItem, *ParseError) {
	lineNumberStr, err := ip.GetFieldValue(record, parseCtx, ip.config.GetColumnName("line_number"))
	if err != nil {
		return nil, ip.requiredFieldError(parseCtx, filePath, "line_number", err,
			"Ensure the line number column exists and has a value")
	}

	productName, err := ip.GetFieldValue(record, parseCtx, ip.config.GetColumnName("product_name"))
	if err != nil {
		return nil, ip.requiredFieldError(parseCtx, filePath, "product_name", err,
			"Ensure the product name column exists and has a value")
	}

	quantityStr, err := ip.GetFieldValue(record, parseCtx, ip.config.GetColumnName("quantity"))
	if err != nil {
		return nil, ip.requiredFieldError(parseCtx, filePath, "quantity", err,
			"Ensure the quantity column exists and has a positive value")
	}

	unitPriceStr, err := ip.GetFieldValue(record, parseCtx, ip.config.GetColumnName("unit_price"))
	if err != nil {
		return nil, ip.requiredFieldError(parseCtx, filePath, "unit_price", err,
			"Ensure the unit price column exists and has a valid decimal value")
	}

	lineNumber, err := strconv.Atoi(lineNumberStr)
	if err != nil {
		parseError := errors.ParseError(
			errors.CodeInvalidData,
			filePath,
			parseCtx.LineNumber,
			ip.config.GetColumnName("line_number"),
			lineNumberStr,
			err,
		).WithSuggestion("Line numbers must be positive integers")

		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   ip.config.GetColumnName("line_number"),
			Value:   lineNumberStr,
			Message: parseError.Message,
			Err:     parseError,
		}
	}

	// Optional columns; absence is not an error
	unit := ip.optionalFieldValue(record, parseCtx, "unit")
	totalPriceStr := ip.optionalFieldValue(record, parseCtx, "total_price")

	line, err := models.CreateInvoiceLineItemFromCSV(lineNumber, productName, quantityStr, unit, unitPriceStr, totalPriceStr)
	if err != nil {
		ip.logger.WithError(err).WithFields(logger.Fields{
			"line_number": parseCtx.LineNumber,
			"quantity":    quantityStr,
			"unit_price":  unitPriceStr,
		}).Warn("Failed to create invoice line from CSV data")

		var enhanced *errors.EnhancedParseError
		switch {
		case quantityStr == "":
			enhanced = errors.EmptyValueError(filePath, parseCtx.LineNumber, ip.config.GetColumnName("quantity"))
		case unitPriceStr == "":
			enhanced = errors.EmptyValueError(filePath, parseCtx.LineNumber, ip.config.GetColumnName("unit_price"))
		case !isDecimalValue(quantityStr):
			enhanced = errors.InvalidQuantityError(filePath, parseCtx.LineNumber, ip.config.GetColumnName("quantity"), quantityStr)
		case !isDecimalValue(unitPriceStr):
			enhanced = errors.InvalidPriceError(filePath, parseCtx.LineNumber, ip.config.GetColumnName("unit_price"), unitPriceStr)
		default:
			enhanced = errors.NewEnhancedParseError(errors.CodeInvalidData, &errors.ParseContext{
				File:   filePath,
				Line:   parseCtx.LineNumber,
				Column: "invoice_data",
				Value:  fmt.Sprintf("line=%d, name=%s, quantity=%s, unit_price=%s", lineNumber, productName, quantityStr, unitPriceStr),
			}, "invalid invoice line data", err).
				WithSuggestion("Check the quantity and price formats - use decimal numbers like '2' and '4.99'")
		}

		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Message: enhanced.Message,
			Err:     enhanced,
		}
	}

	return line, nil
}

func (ip *InvoiceParser) requiredFieldError(parseCtx *ParseContext, filePath, field string, err error, suggestion string) *ParseError {
	columnName := ip.config.GetColumnName(field)
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

func (ip *InvoiceParser) optionalFieldValue(record []string, parseCtx *ParseContext, field string) string {
	columnName := ip.config.GetColumnName(field)
	if columnName == "" {
		return ""
	}
	value, err := ip.GetFieldValue(record, parseCtx, columnName)
	if err != nil {
		return ""
	}
	return value
}

// ParseInvoiceCallback defines a callback function for streaming
// parsing
type ParseInvoiceCallback func([]*models.InvoiceLineItem) error

// ParseInvoiceStream parses invoice lines in streaming mode with
// batching
func (ip *InvoiceParser) ParseInvoiceStream(
	filePath string,
	batchSize int,
	callback ParseInvoiceCallback,
) (*ParseStats, error) {
	return ip.ParseInvoiceStreamWithContext(context.Background(), filePath, batchSize, callback)
}

// ParseInvoiceStreamWithContext parses invoice lines in streaming
// mode with context support
func (ip *InvoiceParser) ParseInvoiceStreamWithContext(
	ctx context.Context,
	filePath string,
	batchSize int,
	callback ParseInvoiceCallback,
) (*ParseStats, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	file, reader, err := ip.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := ip.getRequiredHeaders()
	if err := ip.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		return stats, fmt.Errorf("failed to read headers: %w", err)
	}

	batch := make([]*models.InvoiceLineItem, 0, batchSize)

	for {
		if parseCtx.IsCancelled() {
			return stats, fmt.Errorf("parsing cancelled")
		}

		record, err := ip.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				if len(batch) > 0 {
					if callbackErr := callback(batch); callbackErr != nil {
						return stats, fmt.Errorf("callback error: %w", callbackErr)
					}
				}
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

		line, parseErr := ip.parseInvoiceLineFromRecord(record, parseCtx, filePath)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		if err := line.Validate(); err != nil {
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "invoice line validation failed",
				Err:     err,
			})
			continue
		}

		batch = append(batch, line)
		stats.RecordsValid++

		if len(batch) >= batchSize {
			if err := callback(batch); err != nil {
				return stats, fmt.Errorf("callback error: %w", err)
			}
			batch = batch[:0]
		}
	}

	stats.TotalLines = parseCtx.LineNumber

	return stats, nil
}
