// Package matcher provides the product matching engine that links
// invoice line items to catalogue items.
//
// Matching runs as a layered cascade, cheapest layer first:
//  1. Exact lookup on normalized product name or SKU
//  2. Heuristic substring containment and word-overlap scoring
//  3. Fuzzy similarity search over a prebuilt catalogue index
//  4. Optional external suggestion provider for everything else
//
// Each layer short-circuits the cascade on a hit. The fuzzy index is
// built once per catalogue and is safe for concurrent searches, which
// lets batch runs fan out across workers without re-normalizing the
// catalogue per line.
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.FuzzyDistanceThreshold = 0.4
//
//	engine, err := matcher.NewMatchingEngine(catalogueItems, config)
//	if err != nil {
//		return err
//	}
//
//	result := engine.Match(ctx, "Organic Mi1k 1L")
package matcher

import (
	"encoding/json"
	"fmt"
)

// MatchingConfig holds the tunable parameters of the matching cascade.
// The defaults are conservative enough for typical supplier catalogues
// but every threshold can be adjusted per run.
type MatchingConfig struct {
	// HeuristicOverlapThreshold is the minimum word-overlap ratio for
	// a heuristic match to be accepted
	HeuristicOverlapThreshold float64 `json:"heuristic_overlap_threshold"`

	// SubstringScore is the score assigned to substring containment
	// matches in the heuristic layer
	SubstringScore float64 `json:"substring_score"`

	// HeuristicHighScore is the minimum heuristic score that earns
	// HIGH confidence; lower accepted scores get MEDIUM
	HeuristicHighScore float64 `json:"heuristic_high_score"`

	// MinTokenLength is the minimum word length (exclusive) counted in
	// word-overlap scoring; shorter words are noise
	MinTokenLength int `json:"min_token_length"`

	// FuzzyDistanceThreshold is the maximum weighted distance for a
	// fuzzy index candidate to be kept (0 is identical)
	FuzzyDistanceThreshold float64 `json:"fuzzy_distance_threshold"`

	// NameWeight and SKUWeight weight the per-field distances in the
	// fuzzy index; they must sum to 1.0
	NameWeight float64 `json:"name_weight"`
	SKUWeight  float64 `json:"sku_weight"`

	// MinFragmentLength is the minimum query length searched by the
	// fuzzy index; shorter fragments produce meaningless distances
	MinFragmentLength int `json:"min_fragment_length"`

	// MaxSuggestions caps the number of candidates returned per query
	MaxSuggestions int `json:"max_suggestions"`

	// Distance cutoffs mapping fuzzy distance to confidence tiers.
	// Distances at or below HighDistance are HIGH, at or below
	// MediumDistance are MEDIUM, at or below LowDistance are LOW,
	// anything further is NONE.
	HighDistance   float64 `json:"high_distance"`
	MediumDistance float64 `json:"medium_distance"`
	LowDistance    float64 `json:"low_distance"`

	// EnableAIFallback turns on the external suggestion provider for
	// lines the deterministic layers could not match
	EnableAIFallback bool `json:"enable_ai_fallback"`

	// MaxConcurrency bounds parallel matching in batch runs; 1 means
	// sequential
	MaxConcurrency int `json:"max_concurrency"`
}

// DefaultMatchingConfig returns the default matching configuration
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		HeuristicOverlapThreshold: 0.7,
		SubstringScore:            0.9,
		HeuristicHighScore:        0.9,
		MinTokenLength:            2,
		FuzzyDistanceThreshold:    0.5,
		NameWeight:                0.7,
		SKUWeight:                 0.3,
		MinFragmentLength:         2,
		MaxSuggestions:            5,
		HighDistance:              0.10,
		MediumDistance:            0.25,
		LowDistance:               0.40,
		EnableAIFallback:          false,
		MaxConcurrency:            1,
	}
}

// StrictMatchingConfig returns a configuration that only accepts very
// close matches
func StrictMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.HeuristicOverlapThreshold = 0.85
	config.FuzzyDistanceThreshold = 0.25
	config.HighDistance = 0.05
	config.MediumDistance = 0.15
	config.LowDistance = 0.25
	return config
}

// RelaxedMatchingConfig returns a configuration that tolerates noisier
// input such as OCR output
func RelaxedMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.HeuristicOverlapThreshold = 0.5
	config.FuzzyDistanceThreshold = 0.6
	config.MediumDistance = 0.35
	config.LowDistance = 0.5
	return config
}

// Validate checks the configuration for invalid values
func (c *MatchingConfig) Validate() error {
	if c.HeuristicOverlapThreshold < 0 || c.HeuristicOverlapThreshold > 1 {
		return fmt.Errorf("heuristic overlap threshold must be between 0 and 1, got %f", c.HeuristicOverlapThreshold)
	}

	if c.SubstringScore < 0 || c.SubstringScore > 1 {
		return fmt.Errorf("substring score must be between 0 and 1, got %f", c.SubstringScore)
	}

	if c.HeuristicHighScore < 0 || c.HeuristicHighScore > 1 {
		return fmt.Errorf("heuristic high score must be between 0 and 1, got %f", c.HeuristicHighScore)
	}

	if c.MinTokenLength < 0 {
		return fmt.Errorf("min token length cannot be negative, got %d", c.MinTokenLength)
	}

	if c.FuzzyDistanceThreshold < 0 || c.FuzzyDistanceThreshold > 1 {
		return fmt.Errorf("fuzzy distance threshold must be between 0 and 1, got %f", c.FuzzyDistanceThreshold)
	}

	weightSum := c.NameWeight + c.SKUWeight
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("name and SKU weights must sum to 1.0, got %f", weightSum)
	}

	if c.NameWeight < 0 || c.SKUWeight < 0 {
		return fmt.Errorf("field weights cannot be negative")
	}

	if c.MinFragmentLength < 1 {
		return fmt.Errorf("min fragment length must be at least 1, got %d", c.MinFragmentLength)
	}

	if c.MaxSuggestions < 1 {
		return fmt.Errorf("max suggestions must be at least 1, got %d", c.MaxSuggestions)
	}

	if c.HighDistance < 0 || c.MediumDistance < c.HighDistance || c.LowDistance < c.MediumDistance {
		return fmt.Errorf("distance cutoffs must satisfy 0 <= high <= medium <= low, got %f/%f/%f",
			c.HighDistance, c.MediumDistance, c.LowDistance)
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1, got %d", c.MaxConcurrency)
	}

	return nil
}

// Clone returns a copy of the configuration
func (c *MatchingConfig) Clone() *MatchingConfig {
	clone := *c
	return &clone
}

// String returns a JSON representation of the configuration
func (c *MatchingConfig) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("MatchingConfig{error: %v}", err)
	}
	return string(data)
}
