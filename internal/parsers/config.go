package parsers

import (
	"fmt"
	"strings"
)

// CatalogueParserConfig holds configuration for parsing supplier
// catalogue CSV files
type CatalogueParserConfig struct {
	IDColumn       string            `json:"id_column"`
	NameColumn     string            `json:"name_column"`
	SKUColumn      string            `json:"sku_column"`
	PriceColumn    string            `json:"price_column"`
	UnitColumn     string            `json:"unit_column"`
	CategoryColumn string            `json:"category_column"`
	HasHeader      bool              `json:"has_header"`
	Delimiter      rune              `json:"delimiter"`
	ColumnAliases  map[string]string `json:"column_aliases,omitempty"`
}

// Validate checks if the catalogue parser configuration is valid
func (cpc *CatalogueParserConfig) Validate() error {
	if strings.TrimSpace(cpc.IDColumn) == "" {
		return fmt.Errorf("id column cannot be empty")
	}

	if strings.TrimSpace(cpc.NameColumn) == "" {
		return fmt.Errorf("product name column cannot be empty")
	}

	if strings.TrimSpace(cpc.PriceColumn) == "" {
		return fmt.Errorf("price column cannot be empty")
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (cpc *CatalogueParserConfig) GetColumnName(standardName string) string {
	if alias, exists := cpc.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case "id":
		return cpc.IDColumn
	case "product_name":
		return cpc.NameColumn
	case "sku":
		return cpc.SKUColumn
	case "price":
		return cpc.PriceColumn
	case "unit":
		return cpc.UnitColumn
	case "category":
		return cpc.CategoryColumn
	default:
		return standardName
	}
}

// DefaultCatalogueParserConfig returns a configuration with standard
// defaults
func DefaultCatalogueParserConfig() *CatalogueParserConfig {
	return &CatalogueParserConfig{
		IDColumn:       "id",
		NameColumn:     "product_name",
		SKUColumn:      "sku",
		PriceColumn:    "price",
		UnitColumn:     "unit",
		CategoryColumn: "category",
		HasHeader:      true,
		Delimiter:      ',',
		ColumnAliases:  make(map[string]string),
	}
}

// InvoiceParserConfig holds configuration for parsing invoice line
// item CSV files
type InvoiceParserConfig struct {
	LineNumberColumn string            `json:"line_number_column"`
	NameColumn       string            `json:"name_column"`
	QuantityColumn   string            `json:"quantity_column"`
	UnitColumn       string            `json:"unit_column"`
	UnitPriceColumn  string            `json:"unit_price_column"`
	TotalPriceColumn string            `json:"total_price_column"`
	HasHeader        bool              `json:"has_header"`
	Delimiter        rune              `json:"delimiter"`
	ColumnAliases    map[string]string `json:"column_aliases,omitempty"`
}

// Validate checks if the invoice parser configuration is valid
func (ipc *InvoiceParserConfig) Validate() error {
	if strings.TrimSpace(ipc.LineNumberColumn) == "" {
		return fmt.Errorf("line number column cannot be empty")
	}

	if strings.TrimSpace(ipc.NameColumn) == "" {
		return fmt.Errorf("product name column cannot be empty")
	}

	if strings.TrimSpace(ipc.QuantityColumn) == "" {
		return fmt.Errorf("quantity column cannot be empty")
	}

	if strings.TrimSpace(ipc.UnitPriceColumn) == "" {
		return fmt.Errorf("unit price column cannot be empty")
	}

	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (ipc *InvoiceParserConfig) GetColumnName(standardName string) string {
	if alias, exists := ipc.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case "line_number":
		return ipc.LineNumberColumn
	case "product_name":
		return ipc.NameColumn
	case "quantity":
		return ipc.QuantityColumn
	case "unit":
		return ipc.UnitColumn
	case "unit_price":
		return ipc.UnitPriceColumn
	case "total_price":
		return ipc.TotalPriceColumn
	default:
		return standardName
	}
}

// DefaultInvoiceParserConfig returns a configuration with standard
// defaults
func DefaultInvoiceParserConfig() *InvoiceParserConfig {
	return &InvoiceParserConfig{
		LineNumberColumn: "line_number",
		NameColumn:       "product_name",
		QuantityColumn:   "quantity",
		UnitColumn:       "unit",
		UnitPriceColumn:  "unit_price",
		TotalPriceColumn: "total_price",
		HasHeader:        true,
		Delimiter:        ',',
		ColumnAliases:    make(map[string]string),
	}
}

// RatesParserConfig holds configuration for parsing exchange rate
// CSV files
type RatesParserConfig struct {
	FromColumn string `json:"from_column"`
	ToColumn   string `json:"to_column"`
	RateColumn string `json:"rate_column"`
	HasHeader  bool   `json:"has_header"`
	Delimiter  rune   `json:"delimiter"`
}

// Validate checks if the rates parser configuration is valid
func (rpc *RatesParserConfig) Validate() error {
	if strings.TrimSpace(rpc.FromColumn) == "" {
		return fmt.Errorf("from column cannot be empty")
	}

	if strings.TrimSpace(rpc.ToColumn) == "" {
		return fmt.Errorf("to column cannot be empty")
	}

	if strings.TrimSpace(rpc.RateColumn) == "" {
		return fmt.Errorf("rate column cannot be empty")
	}

	return nil
}

// DefaultRatesParserConfig returns a configuration with standard
// defaults
func DefaultRatesParserConfig() *RatesParserConfig {
	return &RatesParserConfig{
		FromColumn: "from",
		ToColumn:   "to",
		RateColumn: "rate",
		HasHeader:  true,
		Delimiter:  ',',
	}
}

// Predefined catalogue configurations for common supplier export
// formats
var (
	// StandardCatalogueConfig represents a generic catalogue export
	StandardCatalogueConfig = DefaultCatalogueParserConfig()

	// LegacyERPCatalogueConfig represents exports from older ERP
	// systems with abbreviated column names and semicolon delimiters
	LegacyERPCatalogueConfig = &CatalogueParserConfig{
		IDColumn:       "item_no",
		NameColumn:     "description",
		SKUColumn:      "article_code",
		PriceColumn:    "list_price",
		UnitColumn:     "uom",
		CategoryColumn: "group",
		HasHeader:      true,
		Delimiter:      ';',
	}
)

// GetCatalogueConfig returns a predefined catalogue configuration by
// name
func GetCatalogueConfig(name string) *CatalogueParserConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return StandardCatalogueConfig
	case "legacy-erp":
		return LegacyERPCatalogueConfig
	default:
		return nil
	}
}

// ListAvailableCatalogueConfigs returns all available predefined
// catalogue configurations
func ListAvailableCatalogueConfigs() []*CatalogueParserConfig {
	return []*CatalogueParserConfig{
		StandardCatalogueConfig,
		LegacyERPCatalogueConfig,
	}
}

// AutoDetectCatalogueConfig attempts to detect the catalogue format
// from headers
func AutoDetectCatalogueConfig(headers []string) *CatalogueParserConfig {
	headerMap := make(map[string]bool)
	for _, header := range headers {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = true
	}

	for _, config := range ListAvailableCatalogueConfigs() {
		score := 0
		totalFields := 3 // id, name, price

		if headerMap[strings.ToLower(config.IDColumn)] {
			score++
		}
		if headerMap[strings.ToLower(config.NameColumn)] {
			score++
		}
		if headerMap[strings.ToLower(config.PriceColumn)] {
			score++
		}

		// If all key fields match, this is likely the right config
		if score == totalFields {
			return config
		}
	}

	// Return standard config as fallback
	return StandardCatalogueConfig
}

// StreamingConfig holds configuration for streaming operations
type StreamingConfig struct {
	BatchSize        int  `json:"batch_size"`
	ContinueOnError  bool `json:"continue_on_error"`
	MaxErrors        int  `json:"max_errors"`
	ReportProgress   bool `json:"report_progress"`
	ProgressInterval int  `json:"progress_interval"`
}

// DefaultStreamingConfig returns a configuration with sensible
// defaults for streaming
func DefaultStreamingConfig() *StreamingConfig {
	return &StreamingConfig{
		BatchSize:        1000,
		ContinueOnError:  true,
		MaxErrors:        100,
		ReportProgress:   false,
		ProgressInterval: 10000,
	}
}

// Validate checks if the streaming configuration is valid
func (sc *StreamingConfig) Validate() error {
	if sc.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", sc.BatchSize)
	}

	if sc.MaxErrors < 0 {
		return fmt.Errorf("max errors cannot be negative, got %d", sc.MaxErrors)
	}

	if sc.ProgressInterval <= 0 {
		return fmt.Errorf("progress interval must be positive, got %d", sc.ProgressInterval)
	}

	return nil
}
