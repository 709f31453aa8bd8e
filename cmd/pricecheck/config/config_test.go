package config

import (
	"os"
	"path/filepath"
	"testing"

	"price-comparison-service/internal/parsers"
	"price-comparison-service/internal/reporter"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestResolveCatalogueConfig(t *testing.T) {
	config, err := ResolveCatalogueConfig("standard")
	if err != nil {
		t.Fatalf("ResolveCatalogueConfig(standard) error = %v", err)
	}
	if config.IDColumn != "id" {
		t.Errorf("expected id column, got %s", config.IDColumn)
	}

	config, err = ResolveCatalogueConfig("legacy-erp")
	if err != nil {
		t.Fatalf("ResolveCatalogueConfig(legacy-erp) error = %v", err)
	}
	if config.Delimiter != ';' {
		t.Errorf("expected semicolon delimiter, got %q", config.Delimiter)
	}

	if _, err := ResolveCatalogueConfig("sap"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestCreateCatalogueParserConfig_Preset(t *testing.T) {
	config, err := CreateCatalogueParserConfig("standard", "")
	if err != nil {
		t.Fatalf("CreateCatalogueParserConfig() error = %v", err)
	}

	if config.ColumnAliases["unit_price"] != "price" {
		t.Error("expected common aliases to be applied")
	}

	// The shared preset must not pick up the aliases
	if _, present := parsers.StandardCatalogueConfig.ColumnAliases["unit_price"]; present {
		t.Error("preset config was mutated")
	}
}

func TestCreateCatalogueParserConfig_AutoDetect(t *testing.T) {
	legacyFile := writeFile(t, "legacy.csv", "item_no;description;article_code;list_price\nERP-01;Olive Oil 1L;OIL-1000;10.00\n")

	config, err := CreateCatalogueParserConfig("", legacyFile)
	if err != nil {
		t.Fatalf("CreateCatalogueParserConfig() error = %v", err)
	}
	if config.IDColumn != "item_no" {
		t.Errorf("expected legacy-erp detection, got id column %s", config.IDColumn)
	}

	standardFile := writeFile(t, "standard.csv", "id,product_name,sku,price\nCAT-001,Olive Oil 1L,OIL-1000,10.00\n")

	config, err = CreateCatalogueParserConfig("", standardFile)
	if err != nil {
		t.Fatalf("CreateCatalogueParserConfig() error = %v", err)
	}
	if config.IDColumn != "id" {
		t.Errorf("expected standard detection, got id column %s", config.IDColumn)
	}
}

func TestCreateCatalogueParserConfig_MissingFile(t *testing.T) {
	if _, err := CreateCatalogueParserConfig("", "/non/existent/catalogue.csv"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCreateMatchingConfig(t *testing.T) {
	config := CreateMatchingConfig(0.8, 0.3, true, 4)

	if config.HeuristicOverlapThreshold != 0.8 {
		t.Errorf("expected overlap threshold 0.8, got %f", config.HeuristicOverlapThreshold)
	}
	if config.FuzzyDistanceThreshold != 0.3 {
		t.Errorf("expected fuzzy threshold 0.3, got %f", config.FuzzyDistanceThreshold)
	}
	if !config.EnableAIFallback {
		t.Error("expected AI fallback enabled")
	}
	if config.MaxConcurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", config.MaxConcurrency)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("config should validate: %v", err)
	}
}

func TestCreateComparisonConfig(t *testing.T) {
	matching := CreateMatchingConfig(0.7, 0.5, false, 1)
	config := CreateComparisonConfig(matching, true)

	if config.Matching != matching {
		t.Error("expected matching config to be wired in")
	}
	if !config.ProgressReporting {
		t.Error("expected progress reporting enabled")
	}
	if !config.IncludeStatistics {
		t.Error("expected statistics enabled")
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format       string
		wantFormat   reporter.OutputFormat
		wantStats    bool
		wantWarnings bool
	}{
		{"console", reporter.FormatConsole, true, true},
		{"json", reporter.FormatJSON, true, true},
		{"csv", reporter.FormatCSV, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			config := CreateReportConfig(tt.format)

			if config.Format != tt.wantFormat {
				t.Errorf("expected format %s, got %s", tt.wantFormat, config.Format)
			}
			if config.IncludeProcessingStats != tt.wantStats {
				t.Errorf("expected stats %v, got %v", tt.wantStats, config.IncludeProcessingStats)
			}
			if config.IncludeWarnings != tt.wantWarnings {
				t.Errorf("expected warnings %v, got %v", tt.wantWarnings, config.IncludeWarnings)
			}
			if err := config.Validate(); err != nil {
				t.Errorf("config should validate: %v", err)
			}
		})
	}
}
