package currency

import (
	"testing"

	"github.com/shopspring/decimal"

	"price-comparison-service/pkg/errors"
)

func testRates() []Rate {
	return []Rate{
		{From: "USD", To: "EUR", Rate: decimal.NewFromFloat(0.92)},
		{From: "EUR", To: "USD", Rate: decimal.NewFromFloat(1.087)},
		{From: "GBP", To: "USD", Rate: decimal.NewFromFloat(1.27)},
	}
}

func TestStaticRateProvider(t *testing.T) {
	provider, err := NewStaticRateProvider(testRates())
	if err != nil {
		t.Fatalf("failed to build provider: %v", err)
	}

	tests := []struct {
		name     string
		from     string
		to       string
		wantRate string
		wantErr  bool
	}{
		{"known pair", "USD", "EUR", "0.92", false},
		{"reverse pair configured separately", "EUR", "USD", "1.087", false},
		{"same currency", "USD", "USD", "1", false},
		{"lowercase codes normalized", "usd", "eur", "0.92", false},
		{"codes with whitespace", " GBP ", "USD", "1.27", false},
		{"unknown pair", "USD", "JPY", "", true},
		{"reverse of known pair not implied", "USD", "GBP", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := provider.GetRate(tt.from, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsUnsupportedCurrency(err) {
					t.Errorf("expected unsupported currency error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rate.String() != tt.wantRate {
				t.Errorf("expected rate %s, got %s", tt.wantRate, rate.String())
			}
		})
	}
}

func TestNewStaticRateProviderRejectsBadRates(t *testing.T) {
	tests := []struct {
		name  string
		rates []Rate
	}{
		{"zero rate", []Rate{{From: "USD", To: "EUR", Rate: decimal.Zero}}},
		{"negative rate", []Rate{{From: "USD", To: "EUR", Rate: decimal.NewFromFloat(-0.5)}}},
		{"empty currency code", []Rate{{From: "", To: "EUR", Rate: decimal.NewFromInt(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticRateProvider(tt.rates)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			pcErr, ok := errors.AsPriceCheckError(err)
			if !ok {
				t.Fatalf("expected a categorized error, got %v", err)
			}
			if pcErr.Code != errors.CodeInvalidRate {
				t.Errorf("expected code %s, got %s", errors.CodeInvalidRate, pcErr.Code)
			}
		})
	}
}

func TestStaticRateProviderLastEntryWins(t *testing.T) {
	provider, err := NewStaticRateProvider([]Rate{
		{From: "USD", To: "EUR", Rate: decimal.NewFromFloat(0.90)},
		{From: "USD", To: "EUR", Rate: decimal.NewFromFloat(0.95)},
	})
	if err != nil {
		t.Fatalf("failed to build provider: %v", err)
	}

	rate, err := provider.GetRate("USD", "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate.String() != "0.95" {
		t.Errorf("expected 0.95, got %s", rate.String())
	}
}

func TestConverterConvert(t *testing.T) {
	provider, err := NewStaticRateProvider(testRates())
	if err != nil {
		t.Fatalf("failed to build provider: %v", err)
	}
	converter := NewConverter(provider)

	t.Run("Cross currency", func(t *testing.T) {
		conv, err := converter.Convert(decimal.NewFromInt(100), "USD", "EUR")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if conv.Amount.String() != "92" {
			t.Errorf("expected 92, got %s", conv.Amount.String())
		}
		if conv.Rate.String() != "0.92" {
			t.Errorf("expected rate 0.92, got %s", conv.Rate.String())
		}
	})

	t.Run("Same currency preserves amount", func(t *testing.T) {
		amount := decimal.NewFromFloat(4.99)
		conv, err := converter.Convert(amount, "EUR", "eur")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !conv.Amount.Equal(amount) {
			t.Errorf("expected %s, got %s", amount.String(), conv.Amount.String())
		}
		if conv.Rate.String() != "1" {
			t.Errorf("expected rate 1, got %s", conv.Rate.String())
		}
	})

	t.Run("Unsupported pair", func(t *testing.T) {
		_, err := converter.Convert(decimal.NewFromInt(10), "USD", "JPY")
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !IsUnsupportedCurrency(err) {
			t.Errorf("expected unsupported currency error, got %v", err)
		}
	})

	t.Run("Rate is cached per pair", func(t *testing.T) {
		counting := &countingProvider{inner: provider}
		cached := NewConverter(counting)

		for i := 0; i < 3; i++ {
			if _, err := cached.Convert(decimal.NewFromInt(1), "USD", "EUR"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if counting.calls != 1 {
			t.Errorf("expected 1 provider call, got %d", counting.calls)
		}
	})
}

type countingProvider struct {
	inner RateProvider
	calls int
}

func (p *countingProvider) GetRate(from, to string) (decimal.Decimal, error) {
	p.calls++
	return p.inner.GetRate(from, to)
}

func TestValidateCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"USD", false},
		{"eur", false},
		{" gbp ", false},
		{"US", true},
		{"DOLLARS", true},
		{"U$D", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := ValidateCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}
