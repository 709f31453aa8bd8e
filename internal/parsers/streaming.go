package parsers

import (
	"context"
	"fmt"
	"time"

	"price-comparison-service/internal/models"
)

// ProgressReport contains information about parsing progress for
// long-running operations, generated at configurable intervals during
// streaming.
type ProgressReport struct {
	ProcessedRecords int
	ValidRecords     int
	ErrorCount       int
	ElapsedTime      time.Duration
	EstimatedTotal   int
	PercentComplete  float64
}

// ProgressCallback is called periodically to report parsing progress
type ProgressCallback func(*ProgressReport)

// StreamingInvoiceParser provides batched streaming for large invoice
// files, such as month-end extraction batches, that should not be
// loaded into memory at once.
type StreamingInvoiceParser struct {
	*InvoiceParser
	config *StreamingConfig
}

// NewStreamingInvoiceParser creates a new streaming invoice parser
func NewStreamingInvoiceParser(invoiceConfig *InvoiceParserConfig, streamConfig *StreamingConfig) (*StreamingInvoiceParser, error) {
	if streamConfig == nil {
		streamConfig = DefaultStreamingConfig()
	}

	if err := streamConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid streaming configuration: %w", err)
	}

	invoiceParser, err := NewInvoiceParser(invoiceConfig)
	if err != nil {
		return nil, err
	}

	return &StreamingInvoiceParser{
		InvoiceParser: invoiceParser,
		config:        streamConfig,
	}, nil
}

// ParseInvoiceStreamAdvanced parses invoice lines in batches with
// optional progress reporting
func (sip *StreamingInvoiceParser) ParseInvoiceStreamAdvanced(
	ctx context.Context,
	filePath string,
	callback ParseInvoiceCallback,
	progressCallback ProgressCallback,
) (*ParseStats, error) {
	startTime := time.Now()
	stats := NewParseStats()

	// Estimate total records if progress reporting is enabled
	var estimatedTotal int
	if sip.config.ReportProgress && progressCallback != nil {
		if total, err := sip.estimateRecordCount(filePath); err == nil {
			estimatedTotal = total
		}
	}

	batchCallback := func(lines []*models.InvoiceLineItem) error {
		select {
		case <-ctx.Done():
			return fmt.Errorf("processing cancelled")
		default:
		}

		if err := callback(lines); err != nil {
			return fmt.Errorf("user callback error: %w", err)
		}

		stats.RecordsValid += len(lines)

		if sip.config.ReportProgress && progressCallback != nil &&
			stats.RecordsValid%sip.config.ProgressInterval == 0 {
			progressCallback(sip.buildProgress(stats, startTime, estimatedTotal, false))
		}

		return nil
	}

	parseStats, err := sip.ParseInvoiceStreamWithContext(ctx, filePath, sip.config.BatchSize, batchCallback)
	if parseStats != nil {
		stats.TotalLines = parseStats.TotalLines
		stats.RecordsParsed = parseStats.RecordsParsed
		stats.ErrorCount = parseStats.ErrorCount
		stats.Errors = parseStats.Errors
	}

	if sip.config.ReportProgress && progressCallback != nil {
		progressCallback(sip.buildProgress(stats, startTime, estimatedTotal, true))
	}

	return stats, err
}

func (sip *StreamingInvoiceParser) buildProgress(stats *ParseStats, startTime time.Time, estimatedTotal int, final bool) *ProgressReport {
	var percentComplete float64
	switch {
	case final:
		percentComplete = 100.0
	case estimatedTotal > 0:
		percentComplete = float64(stats.RecordsValid) / float64(estimatedTotal) * 100
	}

	return &ProgressReport{
		ProcessedRecords: stats.RecordsParsed,
		ValidRecords:     stats.RecordsValid,
		ErrorCount:       stats.ErrorCount,
		ElapsedTime:      time.Since(startTime),
		EstimatedTotal:   estimatedTotal,
		PercentComplete:  percentComplete,
	}
}

// estimateRecordCount counts records by reading through the file once
func (sip *StreamingInvoiceParser) estimateRecordCount(filePath string) (int, error) {
	file, reader, err := sip.OpenFile(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	parseCtx := NewParseContext(context.Background())

	if sip.InvoiceParser.config.HasHeader {
		if err := sip.ReadHeaders(reader, parseCtx, nil); err != nil {
			return 0, err
		}
	}

	count := 0
	for {
		if _, err := sip.ReadRecord(reader, parseCtx); err != nil {
			break
		}
		count++
	}

	return count, nil
}
