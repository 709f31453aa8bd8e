// Command dataset_generator produces matching catalogue, invoice, and
// exchange rate CSV files for manual testing and benchmarks.
//
// Usage:
//
//	go run dataset_generator.go -count=500 -overcharge-ratio=0.2 -output-dir=../generated
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// DatasetGenerator generates linked catalogue and invoice CSV files
type DatasetGenerator struct {
	Count            int
	OverchargeRatio  float64
	UnderchargeRatio float64
	UnmatchedRatio   float64
	MisspellRatio    float64
	MinPrice         decimal.Decimal
	MaxPrice         decimal.Decimal
	Seed             int64

	rng *rand.Rand
}

// CatalogueRow is one generated catalogue entry
type CatalogueRow struct {
	ID       string
	Name     string
	SKU      string
	Price    decimal.Decimal
	Unit     string
	Category string
}

// InvoiceRow is one generated invoice line
type InvoiceRow struct {
	LineNumber int
	Name       string
	Quantity   decimal.Decimal
	Unit       string
	UnitPrice  decimal.Decimal
}

var productWords = []string{
	"Olive Oil", "Organic Milk", "Wheat Bread", "Basmati Rice", "Green Tea",
	"Dark Chocolate", "Tomato Paste", "Sea Salt", "Black Pepper", "Honey",
	"Almond Butter", "Oat Flakes", "Apple Juice", "Cane Sugar", "Soy Sauce",
}

var sizes = []string{"250g", "500g", "1kg", "1L", "2L", "6-pack", "XL"}

var units = []string{"each", "bottle", "pack", "box", "litre"}

var categories = []string{"pantry", "dairy", "bakery", "beverages", "condiments"}

func main() {
	var (
		outputDir        = flag.String("output-dir", "../generated", "Output directory for generated files")
		count            = flag.Int("count", 500, "Number of catalogue items to generate")
		overchargeRatio  = flag.Float64("overcharge-ratio", 0.15, "Fraction of invoice lines priced above catalogue")
		underchargeRatio = flag.Float64("undercharge-ratio", 0.10, "Fraction of invoice lines priced below catalogue")
		unmatchedRatio   = flag.Float64("unmatched-ratio", 0.05, "Fraction of invoice lines with no catalogue item")
		misspellRatio    = flag.Float64("misspell-ratio", 0.10, "Fraction of invoice lines with perturbed product names")
		minPrice         = flag.Float64("min-price", 0.50, "Minimum catalogue price")
		maxPrice         = flag.Float64("max-price", 200.00, "Maximum catalogue price")
		seed             = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
		withRates        = flag.Bool("with-rates", false, "Also generate an exchange rate file")
	)
	flag.Parse()

	generator := &DatasetGenerator{
		Count:            *count,
		OverchargeRatio:  *overchargeRatio,
		UnderchargeRatio: *underchargeRatio,
		UnmatchedRatio:   *unmatchedRatio,
		MisspellRatio:    *misspellRatio,
		MinPrice:         decimal.NewFromFloat(*minPrice),
		MaxPrice:         decimal.NewFromFloat(*maxPrice),
		Seed:             *seed,
		rng:              rand.New(rand.NewSource(*seed)),
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	catalogue := generator.GenerateCatalogue()
	invoice := generator.GenerateInvoice(catalogue)

	cataloguePath := filepath.Join(*outputDir, "catalogue.csv")
	if err := generator.WriteCatalogueCSV(cataloguePath, catalogue); err != nil {
		log.Fatalf("Failed to write catalogue CSV: %v", err)
	}

	invoicePath := filepath.Join(*outputDir, "invoice.csv")
	if err := generator.WriteInvoiceCSV(invoicePath, invoice); err != nil {
		log.Fatalf("Failed to write invoice CSV: %v", err)
	}

	if *withRates {
		ratesPath := filepath.Join(*outputDir, "rates.csv")
		if err := generator.WriteRatesCSV(ratesPath); err != nil {
			log.Fatalf("Failed to write rates CSV: %v", err)
		}
		fmt.Printf("Generated exchange rates in %s\n", ratesPath)
	}

	fmt.Printf("Generated %d catalogue items in %s\n", len(catalogue), cataloguePath)
	fmt.Printf("Generated %d invoice lines in %s\n", len(invoice), invoicePath)
	fmt.Printf("Seed used: %d\n", generator.Seed)
}

// GenerateCatalogue creates catalogue rows with unique names and SKUs
func (dg *DatasetGenerator) GenerateCatalogue() []CatalogueRow {
	rows := make([]CatalogueRow, 0, dg.Count)
	seen := make(map[string]bool)

	for i := 0; len(rows) < dg.Count; i++ {
		word := productWords[dg.rng.Intn(len(productWords))]
		size := sizes[dg.rng.Intn(len(sizes))]
		name := fmt.Sprintf("%s %s", word, size)
		if seen[name] {
			// Disambiguate duplicates with a brand number
			name = fmt.Sprintf("%s Brand %d", name, dg.rng.Intn(90)+10)
			if seen[name] {
				continue
			}
		}
		seen[name] = true

		priceRange := dg.MaxPrice.Sub(dg.MinPrice)
		price := decimal.NewFromFloat(dg.rng.Float64()).Mul(priceRange).Add(dg.MinPrice).Round(2)

		rows = append(rows, CatalogueRow{
			ID:       fmt.Sprintf("CAT-%05d", len(rows)+1),
			Name:     name,
			SKU:      fmt.Sprintf("SKU-%05d", len(rows)+1),
			Price:    price,
			Unit:     units[dg.rng.Intn(len(units))],
			Category: categories[dg.rng.Intn(len(categories))],
		})
	}

	return rows
}

// GenerateInvoice derives invoice lines from the catalogue with the
// configured discrepancy mix.
func (dg *DatasetGenerator) GenerateInvoice(catalogue []CatalogueRow) []InvoiceRow {
	lines := make([]InvoiceRow, 0, len(catalogue))

	for i, item := range catalogue {
		name := item.Name
		if dg.rng.Float64() < dg.MisspellRatio {
			name = dg.perturbName(name)
		}

		price := item.Price
		roll := dg.rng.Float64()
		switch {
		case roll < dg.OverchargeRatio:
			markup := decimal.NewFromFloat(1 + dg.rng.Float64()*0.5)
			price = price.Mul(markup).Round(2)
		case roll < dg.OverchargeRatio+dg.UnderchargeRatio:
			discount := decimal.NewFromFloat(1 - dg.rng.Float64()*0.4)
			price = price.Mul(discount).Round(2)
		}

		lines = append(lines, InvoiceRow{
			LineNumber: i + 1,
			Name:       name,
			Quantity:   decimal.NewFromInt(int64(dg.rng.Intn(20) + 1)),
			Unit:       item.Unit,
			UnitPrice:  price,
		})
	}

	// Append lines that reference no catalogue item at all
	unmatchedCount := int(float64(len(catalogue)) * dg.UnmatchedRatio)
	for i := 0; i < unmatchedCount; i++ {
		lines = append(lines, InvoiceRow{
			LineNumber: len(lines) + 1,
			Name:       fmt.Sprintf("Unlisted Item %04d", dg.rng.Intn(10000)),
			Quantity:   decimal.NewFromInt(int64(dg.rng.Intn(5) + 1)),
			Unit:       "each",
			UnitPrice:  decimal.NewFromFloat(dg.rng.Float64() * 100).Round(2),
		})
	}

	return lines
}

// perturbName introduces a small typo the fuzzy matcher should absorb
func (dg *DatasetGenerator) perturbName(name string) string {
	runes := []rune(name)
	if len(runes) < 4 {
		return name
	}

	pos := dg.rng.Intn(len(runes)-2) + 1
	switch dg.rng.Intn(3) {
	case 0:
		// Swap adjacent characters
		runes[pos], runes[pos+1] = runes[pos+1], runes[pos]
	case 1:
		// Drop a character
		runes = append(runes[:pos], runes[pos+1:]...)
	default:
		// Duplicate a character
		runes = append(runes[:pos+1], runes[pos:]...)
	}

	return string(runes)
}

// WriteCatalogueCSV writes catalogue rows in the standard format
func (dg *DatasetGenerator) WriteCatalogueCSV(path string, rows []CatalogueRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"id", "product_name", "sku", "price", "unit", "category"}); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.ID, row.Name, row.SKU, row.Price.StringFixed(2), row.Unit, row.Category}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteInvoiceCSV writes invoice rows in the standard format
func (dg *DatasetGenerator) WriteInvoiceCSV(path string, rows []InvoiceRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"line_number", "product_name", "quantity", "unit", "unit_price", "total_price"}); err != nil {
		return err
	}

	for _, row := range rows {
		total := row.Quantity.Mul(row.UnitPrice).Round(2)
		record := []string{
			strconv.Itoa(row.LineNumber),
			row.Name,
			row.Quantity.String(),
			row.Unit,
			row.UnitPrice.StringFixed(2),
			total.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteRatesCSV writes a small exchange rate table
func (dg *DatasetGenerator) WriteRatesCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	rates := [][]string{
		{"from", "to", "rate"},
		{"EUR", "USD", "1.09"},
		{"USD", "EUR", "0.92"},
		{"GBP", "USD", "1.27"},
		{"USD", "GBP", "0.79"},
		{"EUR", "GBP", "0.85"},
		{"GBP", "EUR", "1.18"},
	}

	for _, record := range rates {
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}
