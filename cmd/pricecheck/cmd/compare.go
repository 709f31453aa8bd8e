package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"price-comparison-service/cmd/pricecheck/config"
	"price-comparison-service/internal/comparison"
	"price-comparison-service/internal/currency"
	"price-comparison-service/internal/matcher"
	"price-comparison-service/internal/models"
	"price-comparison-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the compare command
var (
	catalogueFile     string
	invoiceFile       string
	invoiceCurrency   string
	catalogueCurrency string
	ratesFile         string
	outputFormat      string
	outputFile        string
	catalogueFormat   string
	showProgress      bool

	// Matching flags
	overlapThreshold float64
	fuzzyThreshold   float64
	aiFallback       bool
	maxConcurrency   int
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare invoice prices against a price catalogue",
	Long: `Compare matches each invoice line to a catalogue item, converts
currencies where needed, and classifies every line as a price match,
an overcharge, an undercharge, or unmatched.

This command requires:
- A price catalogue file (CSV format)
- An invoice file (CSV format)

Examples:
  # Basic same-currency comparison
  pricecheck compare --catalogue-file catalogue.csv --invoice-file invoice.csv

  # Cross-currency comparison with an exchange rate table
  pricecheck compare --catalogue-file cat.csv --invoice-file inv.csv \
    --invoice-currency EUR --catalogue-currency GBP --rates-file rates.csv

  # Custom output format and matching thresholds
  pricecheck compare --catalogue-file cat.csv --invoice-file inv.csv \
    --output-format json --output-file report.json \
    --overlap-threshold 0.8 --fuzzy-threshold 0.3

  # Enable the AI fallback for lines no deterministic layer can place
  pricecheck compare --catalogue-file cat.csv --invoice-file inv.csv --ai-fallback`,

	PreRunE: validateCompareFlags,
	RunE:    runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	// Required flags
	compareCmd.Flags().StringVarP(&catalogueFile, "catalogue-file", "c", "", "path to price catalogue CSV file (required)")
	compareCmd.Flags().StringVarP(&invoiceFile, "invoice-file", "i", "", "path to invoice CSV file (required)")

	// Currency flags
	compareCmd.Flags().StringVar(&invoiceCurrency, "invoice-currency", "USD", "currency of the invoice prices (ISO 4217 code)")
	compareCmd.Flags().StringVar(&catalogueCurrency, "catalogue-currency", "USD", "currency of the catalogue prices (ISO 4217 code)")
	compareCmd.Flags().StringVarP(&ratesFile, "rates-file", "r", "", "path to exchange rate CSV file (required for cross-currency runs)")

	// Output flags
	compareCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	compareCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Parsing flags
	compareCmd.Flags().StringVar(&catalogueFormat, "catalogue-format", "", "catalogue file format preset: standard, legacy-erp (default: auto-detect)")

	// Matching configuration flags
	compareCmd.Flags().Float64Var(&overlapThreshold, "overlap-threshold", 0.7, "minimum word-overlap ratio for heuristic matches (0.0-1.0)")
	compareCmd.Flags().Float64Var(&fuzzyThreshold, "fuzzy-threshold", 0.5, "maximum weighted distance for fuzzy matches (0.0-1.0)")
	compareCmd.Flags().BoolVar(&aiFallback, "ai-fallback", false, "ask an external AI provider about lines no deterministic layer can match")
	compareCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 1, "number of parallel matching workers")

	// UI flags
	compareCmd.Flags().BoolVar(&showProgress, "progress", false, "show progress indicators")

	// Mark required flags
	compareCmd.MarkFlagRequired("catalogue-file")
	compareCmd.MarkFlagRequired("invoice-file")

	// Bind flags to viper
	viper.BindPFlag("catalogue-file", compareCmd.Flags().Lookup("catalogue-file"))
	viper.BindPFlag("invoice-file", compareCmd.Flags().Lookup("invoice-file"))
	viper.BindPFlag("invoice-currency", compareCmd.Flags().Lookup("invoice-currency"))
	viper.BindPFlag("catalogue-currency", compareCmd.Flags().Lookup("catalogue-currency"))
	viper.BindPFlag("rates-file", compareCmd.Flags().Lookup("rates-file"))
	viper.BindPFlag("output-format", compareCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", compareCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("catalogue-format", compareCmd.Flags().Lookup("catalogue-format"))
	viper.BindPFlag("overlap-threshold", compareCmd.Flags().Lookup("overlap-threshold"))
	viper.BindPFlag("fuzzy-threshold", compareCmd.Flags().Lookup("fuzzy-threshold"))
	viper.BindPFlag("ai-fallback", compareCmd.Flags().Lookup("ai-fallback"))
	viper.BindPFlag("max-concurrency", compareCmd.Flags().Lookup("max-concurrency"))
	viper.BindPFlag("progress", compareCmd.Flags().Lookup("progress"))
}

func validateCompareFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	catalogueFile = viper.GetString("catalogue-file")
	invoiceFile = viper.GetString("invoice-file")
	invoiceCurrency = viper.GetString("invoice-currency")
	catalogueCurrency = viper.GetString("catalogue-currency")
	ratesFile = viper.GetString("rates-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	catalogueFormat = viper.GetString("catalogue-format")
	overlapThreshold = viper.GetFloat64("overlap-threshold")
	fuzzyThreshold = viper.GetFloat64("fuzzy-threshold")
	aiFallback = viper.GetBool("ai-fallback")
	maxConcurrency = viper.GetInt("max-concurrency")
	showProgress = viper.GetBool("progress")

	// Validate required flags
	if catalogueFile == "" {
		return fmt.Errorf("catalogue-file is required")
	}
	if invoiceFile == "" {
		return fmt.Errorf("invoice-file is required")
	}

	// Validate file existence
	if err := validateFileExists(catalogueFile, "catalogue file"); err != nil {
		return err
	}
	if err := validateFileExists(invoiceFile, "invoice file"); err != nil {
		return err
	}

	// Validate currencies
	if err := currency.ValidateCode(invoiceCurrency); err != nil {
		return fmt.Errorf("invalid invoice currency: %w", err)
	}
	if err := currency.ValidateCode(catalogueCurrency); err != nil {
		return fmt.Errorf("invalid catalogue currency: %w", err)
	}

	// Cross-currency runs need an exchange rate table
	crossCurrency := models.NormalizeCurrencyCode(invoiceCurrency) != models.NormalizeCurrencyCode(catalogueCurrency)
	if crossCurrency && ratesFile == "" {
		return fmt.Errorf("rates-file is required when invoice and catalogue currencies differ")
	}
	if ratesFile != "" {
		if err := validateFileExists(ratesFile, "rates file"); err != nil {
			return err
		}
	}

	// Validate output format
	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate catalogue format preset
	if catalogueFormat != "" {
		if _, err := config.ResolveCatalogueConfig(catalogueFormat); err != nil {
			return err
		}
	}

	// Validate matching thresholds
	if overlapThreshold < 0.0 || overlapThreshold > 1.0 {
		return fmt.Errorf("overlap threshold must be between 0.0 and 1.0")
	}
	if fuzzyThreshold < 0.0 || fuzzyThreshold > 1.0 {
		return fmt.Errorf("fuzzy threshold must be between 0.0 and 1.0")
	}
	if maxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting price comparison...\n")
		fmt.Fprintf(os.Stderr, "Catalogue file: %s\n", catalogueFile)
		fmt.Fprintf(os.Stderr, "Invoice file: %s\n", invoiceFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if ratesFile != "" {
			fmt.Fprintf(os.Stderr, "Rates file: %s\n", ratesFile)
		}
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	// Create configurations
	matchingConfig := config.CreateMatchingConfig(overlapThreshold, fuzzyThreshold, aiFallback, maxConcurrency)
	comparisonConfig := config.CreateComparisonConfig(matchingConfig, showProgress)

	catalogueConfig, err := config.CreateCatalogueParserConfig(catalogueFormat, catalogueFile)
	if err != nil {
		return fmt.Errorf("failed to create catalogue parser config: %w", err)
	}

	// Create comparison service
	service, err := comparison.NewService(comparisonConfig)
	if err != nil {
		return fmt.Errorf("failed to create comparison service: %w", err)
	}

	// Install the AI suggester when the fallback is requested
	if aiFallback {
		suggester, err := buildSuggester()
		if err != nil {
			return fmt.Errorf("failed to initialize AI fallback: %w", err)
		}
		service.SetSuggester(suggester)
	}

	// Create comparison request
	request := &comparison.ComparisonRequest{
		CatalogueFile:     catalogueFile,
		InvoiceFile:       invoiceFile,
		InvoiceCurrency:   invoiceCurrency,
		CatalogueCurrency: catalogueCurrency,
		RatesFile:         ratesFile,
		CatalogueConfig:   catalogueConfig,
	}

	if showProgress {
		fmt.Fprintf(os.Stderr, "Processing comparison...\n")
	}

	result, err := service.ProcessComparison(ctx, request)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	// Generate report
	reportConfig := config.CreateReportConfig(outputFormat)
	reportGenerator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		report := result.Report
		fmt.Fprintf(os.Stderr, "\nComparison completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d invoice lines, matched %d.\n",
			report.TotalItems, report.MatchedItems)
		fmt.Fprintf(os.Stderr, "Total overcharge: %s %s, total undercharge: %s %s.\n",
			report.TotalOvercharge.StringFixed(2), report.CatalogueCurrency,
			report.TotalUndercharge.StringFixed(2), report.CatalogueCurrency)
		if result.ProcessingStats != nil {
			fmt.Fprintf(os.Stderr, "Processing time: %v\n", result.ProcessingStats.TotalProcessingTime)
		}
	}

	return nil
}

// buildSuggester creates the OpenAI suggester from the environment.
// The key is read from PRICECHECK_OPENAI_API_KEY or OPENAI_API_KEY.
func buildSuggester() (matcher.MatchSuggester, error) {
	apiKey := viper.GetString("openai_api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	suggesterConfig := matcher.DefaultOpenAISuggesterConfig()
	suggesterConfig.APIKey = apiKey

	return matcher.NewOpenAISuggester(suggesterConfig)
}
