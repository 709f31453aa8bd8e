package matcher

import (
	"price-comparison-service/internal/models"
)

// ExactMatch looks up the query against the normalized product names
// and SKUs in the index. Catalogue order decides ties: when several
// items normalize to the same key, the earliest entry wins.
func (idx *CatalogueIndex) ExactMatch(query string) *models.MatchSuggestion {
	normalized := idx.normalizer.Normalize(query)
	if normalized == "" {
		return nil
	}

	namePos, nameOK := idx.byName[normalized]
	skuPos, skuOK := idx.bySKU[normalized]

	switch {
	case nameOK && skuOK:
		// Prefer whichever catalogue entry comes first
		pos := namePos
		matchedOn := models.MatchedOnName
		if skuPos < namePos {
			pos = skuPos
			matchedOn = models.MatchedOnSKU
		}
		if idx.entries[namePos].item == idx.entries[skuPos].item {
			matchedOn = models.MatchedOnBoth
			pos = namePos
		}
		return exactSuggestion(idx.entries[pos].item, matchedOn)
	case nameOK:
		return exactSuggestion(idx.entries[namePos].item, models.MatchedOnName)
	case skuOK:
		return exactSuggestion(idx.entries[skuPos].item, models.MatchedOnSKU)
	}

	return nil
}

func exactSuggestion(item *models.CatalogueItem, matchedOn models.MatchedField) *models.MatchSuggestion {
	return &models.MatchSuggestion{
		CatalogueItemID: item.ID,
		Score:           1.0,
		Confidence:      models.ConfidenceExact,
		MatchedOn:       matchedOn,
	}
}
