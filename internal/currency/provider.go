// Package currency provides exchange rate lookup and price conversion
// for cross-currency comparisons.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"price-comparison-service/internal/models"
	"price-comparison-service/pkg/errors"
)

// RateProvider supplies the exchange rate between two currencies.
// Implementations return an UnsupportedCurrency error when the pair
// is unknown.
type RateProvider interface {
	GetRate(from, to string) (decimal.Decimal, error)
}

// Rate is a single directional exchange rate
type Rate struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

// StaticRateProvider holds a fixed table of exchange rates, typically
// loaded from a rates file at startup.
type StaticRateProvider struct {
	rates map[string]decimal.Decimal
}

// NewStaticRateProvider builds a provider from a list of rates.
// Currency codes are normalized, and the last entry wins for
// duplicate pairs.
func NewStaticRateProvider(rates []Rate) (*StaticRateProvider, error) {
	provider := &StaticRateProvider{
		rates: make(map[string]decimal.Decimal, len(rates)),
	}

	for i, r := range rates {
		from := models.NormalizeCurrencyCode(r.From)
		to := models.NormalizeCurrencyCode(r.To)
		if from == "" || to == "" {
			return nil, errors.CurrencyError(errors.CodeInvalidRate, r.From, r.To,
				fmt.Errorf("rate %d has an empty currency code", i+1))
		}
		if r.Rate.LessThanOrEqual(decimal.Zero) {
			return nil, errors.CurrencyError(errors.CodeInvalidRate, from, to,
				fmt.Errorf("rate %d must be positive, got %s", i+1, r.Rate.String()))
		}
		provider.rates[pairKey(from, to)] = r.Rate
	}

	return provider, nil
}

// GetRate returns the rate for converting from one currency to
// another. Identical currencies always convert at 1.
func (p *StaticRateProvider) GetRate(from, to string) (decimal.Decimal, error) {
	from = models.NormalizeCurrencyCode(from)
	to = models.NormalizeCurrencyCode(to)

	if from == to {
		return decimal.NewFromInt(1), nil
	}

	rate, ok := p.rates[pairKey(from, to)]
	if !ok {
		return decimal.Zero, errors.CurrencyError(errors.CodeUnsupportedCurrency, from, to,
			fmt.Errorf("no exchange rate configured for %s to %s", from, to))
	}
	return rate, nil
}

// Pairs returns the configured currency pairs, for diagnostics
func (p *StaticRateProvider) Pairs() []string {
	pairs := make([]string, 0, len(p.rates))
	for key := range p.rates {
		pairs = append(pairs, key)
	}
	return pairs
}

func pairKey(from, to string) string {
	return from + "/" + to
}

// IsUnsupportedCurrency reports whether err indicates a missing
// exchange rate pair
func IsUnsupportedCurrency(err error) bool {
	pcErr, ok := errors.AsPriceCheckError(err)
	if !ok {
		return false
	}
	return pcErr.Code == errors.CodeUnsupportedCurrency
}

// ValidateCode checks that a currency code looks like an ISO 4217
// code after normalization
func ValidateCode(code string) error {
	normalized := models.NormalizeCurrencyCode(code)
	if len(normalized) != 3 {
		return errors.CurrencyError(errors.CodeUnsupportedCurrency, code, "",
			fmt.Errorf("currency code must be 3 letters, got %q", code))
	}
	for _, r := range normalized {
		if r < 'A' || r > 'Z' {
			return errors.CurrencyError(errors.CodeUnsupportedCurrency, code, "",
				fmt.Errorf("currency code must be alphabetic, got %q", code))
		}
	}
	return nil
}

// FormatPair renders a currency pair for log and report output
func FormatPair(from, to string) string {
	return strings.ToUpper(strings.TrimSpace(from)) + "/" + strings.ToUpper(strings.TrimSpace(to))
}
