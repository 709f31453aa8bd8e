package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestValidateFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := filepath.Join(tmpDir, "valid.csv")
	if err := os.WriteFile(validFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name        string
		filePath    string
		description string
		expectError bool
	}{
		{
			name:        "valid file",
			filePath:    validFile,
			description: "test file",
			expectError: false,
		},
		{
			name:        "empty path",
			filePath:    "",
			description: "test file",
			expectError: true,
		},
		{
			name:        "non-existent file",
			filePath:    "/non/existent/file.csv",
			description: "test file",
			expectError: true,
		},
		{
			name:        "directory instead of file",
			filePath:    tmpDir,
			description: "test file",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileExists(tt.filePath, tt.description)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateCompareFlags(t *testing.T) {
	tmpDir := t.TempDir()
	catalogueFile := filepath.Join(tmpDir, "catalogue.csv")
	invoiceFile := filepath.Join(tmpDir, "invoice.csv")
	ratesFile := filepath.Join(tmpDir, "rates.csv")

	if err := os.WriteFile(catalogueFile, []byte("id,product_name,sku,price\nCAT-001,Olive Oil 1L,OIL-1000,10.00"), 0644); err != nil {
		t.Fatalf("failed to create catalogue file: %v", err)
	}
	if err := os.WriteFile(invoiceFile, []byte("line_number,product_name,quantity,unit_price\n1,Olive Oil 1L,2,12.00"), 0644); err != nil {
		t.Fatalf("failed to create invoice file: %v", err)
	}
	if err := os.WriteFile(ratesFile, []byte("from,to,rate\nEUR,GBP,0.85"), 0644); err != nil {
		t.Fatalf("failed to create rates file: %v", err)
	}

	baseFlags := func() {
		viper.Set("catalogue-file", catalogueFile)
		viper.Set("invoice-file", invoiceFile)
		viper.Set("invoice-currency", "USD")
		viper.Set("catalogue-currency", "USD")
		viper.Set("output-format", "console")
		viper.Set("overlap-threshold", 0.7)
		viper.Set("fuzzy-threshold", 0.5)
		viper.Set("max-concurrency", 1)
	}

	tests := []struct {
		name          string
		setupFlags    func()
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid flags",
			setupFlags:  baseFlags,
			expectError: false,
		},
		{
			name: "missing catalogue file",
			setupFlags: func() {
				baseFlags()
				viper.Set("catalogue-file", "")
			},
			expectError:   true,
			errorContains: "catalogue-file is required",
		},
		{
			name: "missing invoice file",
			setupFlags: func() {
				baseFlags()
				viper.Set("invoice-file", "")
			},
			expectError:   true,
			errorContains: "invoice-file is required",
		},
		{
			name: "invalid invoice currency",
			setupFlags: func() {
				baseFlags()
				viper.Set("invoice-currency", "DOLLARS")
			},
			expectError:   true,
			errorContains: "invalid invoice currency",
		},
		{
			name: "cross-currency without rates file",
			setupFlags: func() {
				baseFlags()
				viper.Set("invoice-currency", "EUR")
				viper.Set("catalogue-currency", "GBP")
			},
			expectError:   true,
			errorContains: "rates-file is required",
		},
		{
			name: "cross-currency with rates file",
			setupFlags: func() {
				baseFlags()
				viper.Set("invoice-currency", "EUR")
				viper.Set("catalogue-currency", "GBP")
				viper.Set("rates-file", ratesFile)
			},
			expectError: false,
		},
		{
			name: "invalid output format",
			setupFlags: func() {
				baseFlags()
				viper.Set("output-format", "xml")
			},
			expectError:   true,
			errorContains: "invalid output format",
		},
		{
			name: "unknown catalogue format preset",
			setupFlags: func() {
				baseFlags()
				viper.Set("catalogue-format", "sap")
			},
			expectError:   true,
			errorContains: "unknown catalogue format",
		},
		{
			name: "overlap threshold out of range",
			setupFlags: func() {
				baseFlags()
				viper.Set("overlap-threshold", 1.5)
			},
			expectError:   true,
			errorContains: "overlap threshold must be between 0.0 and 1.0",
		},
		{
			name: "fuzzy threshold out of range",
			setupFlags: func() {
				baseFlags()
				viper.Set("fuzzy-threshold", -0.1)
			},
			expectError:   true,
			errorContains: "fuzzy threshold must be between 0.0 and 1.0",
		},
		{
			name: "zero max concurrency",
			setupFlags: func() {
				baseFlags()
				viper.Set("max-concurrency", 0)
			},
			expectError:   true,
			errorContains: "max concurrency must be at least 1",
		},
		{
			name: "output directory does not exist",
			setupFlags: func() {
				baseFlags()
				viper.Set("output-file", "/non/existent/dir/report.json")
			},
			expectError:   true,
			errorContains: "output directory does not exist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset viper
			viper.Reset()
			tt.setupFlags()

			cmd := &cobra.Command{}
			err := validateCompareFlags(cmd, []string{})

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("expected error to contain '%s', got: %v", tt.errorContains, err)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestCompareCommandHelp(t *testing.T) {
	cmd := compareCmd

	// Test that command has required flags
	for _, flagName := range []string{
		"catalogue-file",
		"invoice-file",
		"invoice-currency",
		"catalogue-currency",
		"rates-file",
		"output-format",
		"overlap-threshold",
		"fuzzy-threshold",
		"ai-fallback",
		"max-concurrency",
	} {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("%s flag not found", flagName)
		}
	}

	// Test help output contains key information
	var helpOutput bytes.Buffer
	cmd.SetOut(&helpOutput)
	cmd.Help()

	helpText := helpOutput.String()

	expectedSections := []string{
		"Usage:",
		"Examples:",
		"Flags:",
		"--catalogue-file",
		"--invoice-file",
		"--output-format",
	}

	for _, section := range expectedSections {
		if !strings.Contains(helpText, section) {
			t.Errorf("help text should contain '%s'", section)
		}
	}
}

func TestCompareCommandRun(t *testing.T) {
	tmpDir := t.TempDir()
	catalogueFile := filepath.Join(tmpDir, "catalogue.csv")
	invoiceFile := filepath.Join(tmpDir, "invoice.csv")
	outputFile := filepath.Join(tmpDir, "report.json")

	catalogueData := "id,product_name,sku,price\nCAT-001,Olive Oil 1L,OIL-1000,10.00\nCAT-002,Organic Milk 1L,MLK-1000,4.99\n"
	invoiceData := "line_number,product_name,quantity,unit_price\n1,Olive Oil 1L,2,12.00\n2,Organic Milk 1L,1,4.99\n"

	if err := os.WriteFile(catalogueFile, []byte(catalogueData), 0644); err != nil {
		t.Fatalf("failed to create catalogue file: %v", err)
	}
	if err := os.WriteFile(invoiceFile, []byte(invoiceData), 0644); err != nil {
		t.Fatalf("failed to create invoice file: %v", err)
	}

	viper.Reset()
	viper.Set("catalogue-file", catalogueFile)
	viper.Set("invoice-file", invoiceFile)
	viper.Set("invoice-currency", "USD")
	viper.Set("catalogue-currency", "USD")
	viper.Set("output-format", "json")
	viper.Set("output-file", outputFile)
	viper.Set("overlap-threshold", 0.7)
	viper.Set("fuzzy-threshold", 0.5)
	viper.Set("max-concurrency", 1)

	cmd := &cobra.Command{}
	if err := validateCompareFlags(cmd, []string{}); err != nil {
		t.Fatalf("validateCompareFlags() error = %v", err)
	}
	if err := runCompare(cmd, []string{}); err != nil {
		t.Fatalf("runCompare() error = %v", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("failed to read report file: %v", err)
	}
	if !strings.Contains(string(data), "\"total_items\": 2") {
		t.Errorf("report should contain 2 items, got:\n%s", string(data))
	}
}
