package matcher

import (
	"context"
	"fmt"
	"sync"

	"price-comparison-service/internal/models"
	"price-comparison-service/pkg/logger"
)

// MatchLayer identifies which cascade layer produced a match
type MatchLayer string

const (
	LayerExact     MatchLayer = "exact"
	LayerHeuristic MatchLayer = "heuristic"
	LayerFuzzy     MatchLayer = "fuzzy"
	LayerAI        MatchLayer = "ai"
	LayerNone      MatchLayer = "none"
)

// MatchResult is the outcome of running the cascade for one invoice
// line. Suggestion and CatalogueItem are nil when nothing matched.
type MatchResult struct {
	Suggestion    *models.MatchSuggestion `json:"suggestion,omitempty"`
	CatalogueItem *models.CatalogueItem   `json:"catalogue_item,omitempty"`
	Layer         MatchLayer              `json:"layer"`
}

// Matched reports whether the cascade found a catalogue item
func (r *MatchResult) Matched() bool {
	return r.Suggestion != nil && r.CatalogueItem != nil
}

// MatchingEngine runs the matching cascade against a fixed catalogue
type MatchingEngine struct {
	config    *MatchingConfig
	index     *CatalogueIndex
	suggester MatchSuggester
	log       logger.Logger
}

// NewMatchingEngine builds an engine, indexing the catalogue once
func NewMatchingEngine(items []*models.CatalogueItem, config *MatchingConfig) (*MatchingEngine, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	index, err := NewCatalogueIndex(items, config)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalogue index: %w", err)
	}

	return &MatchingEngine{
		config: config,
		index:  index,
		log:    logger.GetGlobalLogger().WithComponent("matcher"),
	}, nil
}

// SetSuggester installs the fallback suggestion provider. The provider
// is only consulted when EnableAIFallback is set and every
// deterministic layer missed.
func (e *MatchingEngine) SetSuggester(suggester MatchSuggester) {
	e.suggester = suggester
}

// Index exposes the underlying catalogue index
func (e *MatchingEngine) Index() *CatalogueIndex {
	return e.index
}

// Match runs the cascade for a single invoice line description. Layers
// run cheapest first and the first hit short-circuits the rest. A
// failing or declining fallback provider degrades to no match.
func (e *MatchingEngine) Match(ctx context.Context, invoiceName string) *MatchResult {
	if suggestion := e.index.ExactMatch(invoiceName); suggestion != nil {
		return e.resolve(suggestion, LayerExact)
	}

	if suggestion := e.index.HeuristicMatch(invoiceName); suggestion != nil {
		return e.resolve(suggestion, LayerHeuristic)
	}

	if suggestions := e.index.Search(invoiceName, 1); len(suggestions) > 0 {
		if suggestions[0].Confidence != models.ConfidenceNone {
			return e.resolve(suggestions[0], LayerFuzzy)
		}
	}

	if e.config.EnableAIFallback && e.suggester != nil {
		if result := e.askSuggester(ctx, invoiceName); result != nil {
			return result
		}
	}

	return &MatchResult{Layer: LayerNone}
}

// askSuggester consults the fallback provider. Any error is logged and
// swallowed: an unavailable provider must never fail the comparison.
func (e *MatchingEngine) askSuggester(ctx context.Context, invoiceName string) *MatchResult {
	suggestion, err := e.suggester.SuggestMatch(ctx, invoiceName, e.index.Items())
	if err != nil {
		if err != ErrNoSuggestion {
			e.log.WithError(err).WithField("invoice_item", invoiceName).
				Warn("Match provider failed, treating line as unmatched")
		}
		return nil
	}

	item, ok := e.index.ItemByID(suggestion.CatalogueItemID)
	if !ok {
		e.log.WithField("catalogue_item_id", suggestion.CatalogueItemID).
			Warn("Match provider suggested unknown catalogue item")
		return nil
	}

	return &MatchResult{
		Suggestion: &models.MatchSuggestion{
			CatalogueItemID: suggestion.CatalogueItemID,
			Score:           0,
			Confidence:      suggestion.Confidence,
			MatchedOn:       models.MatchedOnName,
		},
		CatalogueItem: item,
		Layer:         LayerAI,
	}
}

func (e *MatchingEngine) resolve(suggestion *models.MatchSuggestion, layer MatchLayer) *MatchResult {
	item, ok := e.index.ItemByID(suggestion.CatalogueItemID)
	if !ok {
		return &MatchResult{Layer: LayerNone}
	}
	return &MatchResult{
		Suggestion:    suggestion,
		CatalogueItem: item,
		Layer:         layer,
	}
}

// MatchAll matches every invoice line and returns results in input
// order. With MaxConcurrency above 1 the lines are matched by a
// bounded worker pool writing into a position-indexed slice, so the
// output is identical to a sequential run.
func (e *MatchingEngine) MatchAll(ctx context.Context, items []*models.InvoiceLineItem) []*MatchResult {
	results := make([]*MatchResult, len(items))

	workers := e.config.MaxConcurrency
	if workers <= 1 || len(items) < 2 {
		for i, item := range items {
			results[i] = e.Match(ctx, item.ProductName)
		}
		return results
	}

	if workers > len(items) {
		workers = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = e.Match(ctx, items[i].ProductName)
			}
		}()
	}

	for i := range items {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			// Fill in anything the cancelled run never reached
			for j := range results {
				if results[j] == nil {
					results[j] = &MatchResult{Layer: LayerNone}
				}
			}
			return results
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
