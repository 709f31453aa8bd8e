package comparison

import (
	"fmt"

	"price-comparison-service/internal/matcher"
)

// Config holds configuration options for the comparison service
type Config struct {
	// Matching configuration passed through to the matching engine
	Matching *matcher.MatchingConfig

	// Processing options
	ProgressReporting bool

	// Validation options
	ValidateInputs bool

	// Output options
	IncludeStatistics bool
}

// DefaultConfig returns a default configuration for the comparison
// service
func DefaultConfig() *Config {
	return &Config{
		Matching:          matcher.DefaultMatchingConfig(),
		ProgressReporting: false,
		ValidateInputs:    true,
		IncludeStatistics: true,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Matching == nil {
		return fmt.Errorf("matching configuration is required")
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("invalid matching configuration: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	if c.Matching != nil {
		clone.Matching = c.Matching.Clone()
	}
	return &clone
}
