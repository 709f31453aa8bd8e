package currency

import (
	"github.com/shopspring/decimal"

	"price-comparison-service/internal/models"
	"price-comparison-service/pkg/logger"
)

// Conversion is the result of converting an amount between currencies
type Conversion struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
}

// Converter converts monetary amounts using a RateProvider. Rates are
// cached per pair so a batch run hits the provider once per currency
// pair rather than once per line.
type Converter struct {
	provider RateProvider
	cache    map[string]decimal.Decimal
	log      logger.Logger
}

// NewConverter creates a converter backed by the given provider
func NewConverter(provider RateProvider) *Converter {
	return &Converter{
		provider: provider,
		cache:    make(map[string]decimal.Decimal),
		log:      logger.WithComponent("currency"),
	}
}

// Convert converts amount from one currency to another. Identical
// currencies short-circuit with a rate of 1 and the amount untouched,
// so full precision is preserved for same-currency runs.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (*Conversion, error) {
	from = models.NormalizeCurrencyCode(from)
	to = models.NormalizeCurrencyCode(to)

	if from == to {
		return &Conversion{Amount: amount, Rate: decimal.NewFromInt(1)}, nil
	}

	rate, err := c.rateFor(from, to)
	if err != nil {
		return nil, err
	}

	return &Conversion{Amount: amount.Mul(rate), Rate: rate}, nil
}

func (c *Converter) rateFor(from, to string) (decimal.Decimal, error) {
	key := pairKey(from, to)
	if rate, ok := c.cache[key]; ok {
		return rate, nil
	}

	rate, err := c.provider.GetRate(from, to)
	if err != nil {
		return decimal.Zero, err
	}

	c.log.WithFields(map[string]interface{}{
		"pair": FormatPair(from, to),
		"rate": rate.String(),
	}).Debug("Resolved exchange rate")

	c.cache[key] = rate
	return rate, nil
}
