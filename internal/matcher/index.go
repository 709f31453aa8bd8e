package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"price-comparison-service/internal/models"
)

// indexEntry is a catalogue item with its precomputed normalized forms
type indexEntry struct {
	item       *models.CatalogueItem
	position   int
	normName   string
	normSKU    string
	nameTokens []string
}

// CatalogueIndex is a read-only similarity index over a catalogue.
// It is built once per catalogue and safe for concurrent searches,
// so batch matching can fan out across workers against a single index.
type CatalogueIndex struct {
	config     *MatchingConfig
	normalizer *Normalizer
	entries    []indexEntry
	byName     map[string]int
	bySKU      map[string]int
	byID       map[string]*models.CatalogueItem
}

// IndexStats describes the contents of a built index
type IndexStats struct {
	TotalItems   int `json:"total_items"`
	ItemsWithSKU int `json:"items_with_sku"`
	UniqueNames  int `json:"unique_names"`
	UniqueSKUs   int `json:"unique_skus"`
	EmptyNames   int `json:"empty_names"`
}

// NewCatalogueIndex builds an index over the given catalogue items.
// Duplicate normalized keys keep their first occurrence so catalogue
// order decides exact-match ties.
func NewCatalogueIndex(items []*models.CatalogueItem, config *MatchingConfig) (*CatalogueIndex, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}

	idx := &CatalogueIndex{
		config:     config,
		normalizer: NewNormalizer(),
		entries:    make([]indexEntry, 0, len(items)),
		byName:     make(map[string]int, len(items)),
		bySKU:      make(map[string]int),
		byID:       make(map[string]*models.CatalogueItem, len(items)),
	}

	for i, item := range items {
		if item == nil {
			continue
		}

		entry := indexEntry{
			item:       item,
			position:   i,
			normName:   idx.normalizer.Normalize(item.ProductName),
			normSKU:    idx.normalizer.Normalize(item.SKU),
			nameTokens: idx.normalizer.Tokenize(item.ProductName, config.MinTokenLength),
		}

		pos := len(idx.entries)
		idx.entries = append(idx.entries, entry)
		idx.byID[item.ID] = item

		if entry.normName != "" {
			if _, exists := idx.byName[entry.normName]; !exists {
				idx.byName[entry.normName] = pos
			}
		}
		if entry.normSKU != "" {
			if _, exists := idx.bySKU[entry.normSKU]; !exists {
				idx.bySKU[entry.normSKU] = pos
			}
		}
	}

	return idx, nil
}

// Size returns the number of indexed items
func (idx *CatalogueIndex) Size() int {
	return len(idx.entries)
}

// ItemByID returns the indexed catalogue item with the given ID
func (idx *CatalogueIndex) ItemByID(id string) (*models.CatalogueItem, bool) {
	item, ok := idx.byID[id]
	return item, ok
}

// Items returns the indexed catalogue items in catalogue order
func (idx *CatalogueIndex) Items() []*models.CatalogueItem {
	items := make([]*models.CatalogueItem, len(idx.entries))
	for i := range idx.entries {
		items[i] = idx.entries[i].item
	}
	return items
}

// GetStats returns statistics about the index contents
func (idx *CatalogueIndex) GetStats() IndexStats {
	stats := IndexStats{
		TotalItems:  len(idx.entries),
		UniqueNames: len(idx.byName),
		UniqueSKUs:  len(idx.bySKU),
	}

	for i := range idx.entries {
		if idx.entries[i].normSKU != "" {
			stats.ItemsWithSKU++
		}
		if idx.entries[i].normName == "" {
			stats.EmptyNames++
		}
	}

	return stats
}

// scoredCandidate pairs an entry with its weighted fuzzy distance
type scoredCandidate struct {
	position int
	distance float64
}

// Search runs a fuzzy similarity search for the query and returns up
// to maxResults suggestions ordered by ascending distance, catalogue
// order breaking ties. Queries shorter than MinFragmentLength after
// normalization return no results. Returned scores are similarities
// (1 minus distance) so callers see 1.0 as a perfect match.
func (idx *CatalogueIndex) Search(query string, maxResults int) []*models.MatchSuggestion {
	normalized := idx.normalizer.Normalize(query)
	if len([]rune(normalized)) < idx.config.MinFragmentLength {
		return nil
	}

	if maxResults <= 0 {
		maxResults = idx.config.MaxSuggestions
	}

	var candidates []scoredCandidate
	for i := range idx.entries {
		entry := &idx.entries[i]
		if entry.normName == "" {
			continue
		}

		nameDist := fieldDistance(normalized, entry.normName)

		var weighted float64
		if entry.normSKU == "" {
			// No SKU to compare, name carries all the weight
			weighted = nameDist
		} else {
			skuDist := fieldDistance(normalized, entry.normSKU)
			weighted = idx.config.NameWeight*nameDist + idx.config.SKUWeight*skuDist
		}

		if weighted <= idx.config.FuzzyDistanceThreshold {
			candidates = append(candidates, scoredCandidate{position: i, distance: weighted})
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].distance != candidates[b].distance {
			return candidates[a].distance < candidates[b].distance
		}
		return candidates[a].position < candidates[b].position
	})

	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	suggestions := make([]*models.MatchSuggestion, 0, len(candidates))
	for _, c := range candidates {
		entry := &idx.entries[c.position]
		suggestions = append(suggestions, &models.MatchSuggestion{
			CatalogueItemID: entry.item.ID,
			Score:           1 - c.distance,
			Confidence:      idx.distanceToConfidence(c.distance),
			MatchedOn:       matchedField(normalized, entry),
		})
	}

	return suggestions
}

// fieldDistance computes the distance between the query and one field
// on the scale where 0 is identical. Jaro-Winkler provides the base
// similarity; containment in either direction halves the distance so
// fragments matching mid-string are not penalized for their position.
func fieldDistance(query, field string) float64 {
	distance := 1 - matchr.JaroWinkler(query, field, true)

	if strings.Contains(field, query) || strings.Contains(query, field) {
		distance = distance / 2
	}

	if distance < 0 {
		distance = 0
	}
	return distance
}

// distanceToConfidence maps a weighted distance to a confidence tier
func (idx *CatalogueIndex) distanceToConfidence(distance float64) models.MatchConfidence {
	switch {
	case distance <= idx.config.HighDistance:
		return models.ConfidenceHigh
	case distance <= idx.config.MediumDistance:
		return models.ConfidenceMedium
	case distance <= idx.config.LowDistance:
		return models.ConfidenceLow
	default:
		return models.ConfidenceNone
	}
}

// matchedField reports which entry fields contain the normalized query.
// When neither field contains it the match is attributed to the name,
// which dominates the weighted distance.
func matchedField(normalized string, entry *indexEntry) models.MatchedField {
	inName := strings.Contains(entry.normName, normalized)
	inSKU := entry.normSKU != "" && strings.Contains(entry.normSKU, normalized)

	switch {
	case inName && inSKU:
		return models.MatchedOnBoth
	case inSKU:
		return models.MatchedOnSKU
	default:
		return models.MatchedOnName
	}
}
