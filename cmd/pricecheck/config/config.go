// Package config builds the parser, matcher, comparison, and report
// configurations used by the CLI from flag values.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"price-comparison-service/internal/comparison"
	"price-comparison-service/internal/matcher"
	"price-comparison-service/internal/parsers"
	"price-comparison-service/internal/reporter"
)

// CreateCatalogueParserConfig resolves the catalogue parser
// configuration for the given format preset. An empty preset falls
// back to auto-detection against the file's header row, and the
// returned config carries the common column aliases either way.
func CreateCatalogueParserConfig(preset, catalogueFile string) (*parsers.CatalogueParserConfig, error) {
	var config *parsers.CatalogueParserConfig

	if preset != "" {
		resolved, err := ResolveCatalogueConfig(preset)
		if err != nil {
			return nil, err
		}
		config = resolved
	} else {
		headers, err := readHeaderRow(catalogueFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalogue headers: %w", err)
		}
		config = parsers.AutoDetectCatalogueConfig(headers)
	}

	// Presets are shared, so work on a copy before adding aliases
	config = cloneCatalogueConfig(config)
	for alias, canonical := range commonCatalogueAliases() {
		if _, taken := config.ColumnAliases[alias]; !taken {
			config.ColumnAliases[alias] = canonical
		}
	}

	return config, nil
}

// ResolveCatalogueConfig looks up a named catalogue format preset
func ResolveCatalogueConfig(preset string) (*parsers.CatalogueParserConfig, error) {
	config := parsers.GetCatalogueConfig(preset)
	if config == nil {
		return nil, fmt.Errorf("unknown catalogue format '%s'. Valid formats: standard, legacy-erp", preset)
	}
	return config, nil
}

// readHeaderRow reads the first line of a CSV file and splits it on
// the detected delimiter.
func readHeaderRow(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("file is empty: %s", filePath)
	}

	line := scanner.Text()
	delimiter := ","
	if strings.Count(line, ";") > strings.Count(line, ",") {
		delimiter = ";"
	}

	return strings.Split(line, delimiter), nil
}

func cloneCatalogueConfig(config *parsers.CatalogueParserConfig) *parsers.CatalogueParserConfig {
	clone := *config
	clone.ColumnAliases = make(map[string]string, len(config.ColumnAliases))
	for alias, canonical := range config.ColumnAliases {
		clone.ColumnAliases[alias] = canonical
	}
	return &clone
}

func commonCatalogueAliases() map[string]string {
	return map[string]string{
		// Common aliases for catalogue columns
		"item_id":       "id",
		"product_id":    "id",
		"catalogue_id":  "id",
		"name":          "product_name",
		"item_name":     "product_name",
		"article":       "sku",
		"stock_code":    "sku",
		"unit_price":    "price",
		"cost":          "price",
		"product_group": "category",
	}
}

// CreateMatchingConfig creates a matching configuration with the
// specified CLI overrides.
func CreateMatchingConfig(overlapThreshold, fuzzyThreshold float64, aiFallback bool, maxConcurrency int) *matcher.MatchingConfig {
	config := matcher.DefaultMatchingConfig()

	// Apply CLI overrides
	config.HeuristicOverlapThreshold = overlapThreshold
	config.FuzzyDistanceThreshold = fuzzyThreshold
	config.EnableAIFallback = aiFallback
	config.MaxConcurrency = maxConcurrency

	return config
}

// CreateComparisonConfig creates a comparison engine configuration
func CreateComparisonConfig(matchingConfig *matcher.MatchingConfig, showProgress bool) *comparison.Config {
	config := comparison.DefaultConfig()

	// Apply CLI overrides
	config.Matching = matchingConfig
	config.ProgressReporting = showProgress
	config.IncludeStatistics = true

	return config
}

// CreateReportConfig creates a report configuration for the specified
// output format.
func CreateReportConfig(format string) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "console":
		config.Format = reporter.FormatConsole
		config.IncludeMatchedItems = true
		config.IncludeUnmatchedItems = true
		config.IncludeWarnings = true
		config.IncludeProcessingStats = true
	case "json":
		config.Format = reporter.FormatJSON
		config.IncludeMatchedItems = true
		config.IncludeUnmatchedItems = true
		config.IncludeWarnings = true
		config.IncludeProcessingStats = true
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
		config.IncludeMatchedItems = true
		config.IncludeUnmatchedItems = true
		// CSV is row-oriented line data
		config.IncludeWarnings = false
		config.IncludeProcessingStats = false
	}

	return config
}
