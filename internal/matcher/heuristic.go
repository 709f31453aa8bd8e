package matcher

import (
	"strings"

	"price-comparison-service/internal/models"
)

// HeuristicMatch scores the query against every catalogue entry using
// substring containment and word overlap. Containment in either
// direction scores SubstringScore; otherwise the word-overlap ratio of
// tokens longer than MinTokenLength is used when it reaches
// HeuristicOverlapThreshold. The best-scoring entry wins and earlier
// catalogue entries win ties, so results are deterministic for a given
// catalogue order.
func (idx *CatalogueIndex) HeuristicMatch(query string) *models.MatchSuggestion {
	normalized := idx.normalizer.Normalize(query)
	if normalized == "" {
		return nil
	}

	queryTokens := idx.normalizer.Tokenize(query, idx.config.MinTokenLength)

	bestScore := 0.0
	bestPos := -1

	for i := range idx.entries {
		entry := &idx.entries[i]
		if entry.normName == "" {
			continue
		}

		score := 0.0
		if strings.Contains(entry.normName, normalized) || strings.Contains(normalized, entry.normName) {
			score = idx.config.SubstringScore
		} else {
			overlap := TokenOverlapRatio(queryTokens, entry.nameTokens)
			if overlap >= idx.config.HeuristicOverlapThreshold {
				score = overlap
			}
		}

		// Strictly greater keeps the earliest entry on ties
		if score > bestScore {
			bestScore = score
			bestPos = i
		}
	}

	if bestPos < 0 {
		return nil
	}

	confidence := models.ConfidenceMedium
	if bestScore >= idx.config.HeuristicHighScore {
		confidence = models.ConfidenceHigh
	}

	return &models.MatchSuggestion{
		CatalogueItemID: idx.entries[bestPos].item.ID,
		Score:           bestScore,
		Confidence:      confidence,
		MatchedOn:       models.MatchedOnName,
	}
}
