package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"price-comparison-service/internal/models"
)

func createTestCatalogue() []*models.CatalogueItem {
	return []*models.CatalogueItem{
		models.NewCatalogueItem("CAT-001", "Organic Milk 1L", "MLK-1000", decimal.NewFromFloat(4.99)),
		models.NewCatalogueItem("CAT-002", "Whole Wheat Bread 800g", "BRD-0800", decimal.NewFromFloat(2.49)),
		models.NewCatalogueItem("CAT-003", "Free Range Eggs 12pk", "EGG-0012", decimal.NewFromFloat(5.49)),
		models.NewCatalogueItem("CAT-004", "Unsalted Butter 250g", "BTR-0250", decimal.NewFromFloat(3.25)),
		models.NewCatalogueItem("CAT-005", "Cheddar Cheese 400g", "", decimal.NewFromFloat(6.75)),
	}
}

func buildTestIndex(t *testing.T, config *MatchingConfig) *CatalogueIndex {
	t.Helper()
	idx, err := NewCatalogueIndex(createTestCatalogue(), config)
	if err != nil {
		t.Fatalf("NewCatalogueIndex failed: %v", err)
	}
	return idx
}

func TestNewCatalogueIndex(t *testing.T) {
	idx := buildTestIndex(t, nil)

	if idx.Size() != 5 {
		t.Errorf("expected 5 indexed items, got %d", idx.Size())
	}

	stats := idx.GetStats()
	if stats.TotalItems != 5 {
		t.Errorf("expected 5 total items, got %d", stats.TotalItems)
	}
	if stats.ItemsWithSKU != 4 {
		t.Errorf("expected 4 items with SKU, got %d", stats.ItemsWithSKU)
	}
	if stats.UniqueNames != 5 {
		t.Errorf("expected 5 unique names, got %d", stats.UniqueNames)
	}
}

func TestNewCatalogueIndex_InvalidConfig(t *testing.T) {
	config := DefaultMatchingConfig()
	config.NameWeight = 0.9
	config.SKUWeight = 0.9

	if _, err := NewCatalogueIndex(createTestCatalogue(), config); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestCatalogueIndex_ExactMatch(t *testing.T) {
	idx := buildTestIndex(t, nil)

	tests := []struct {
		name       string
		query      string
		expectID   string
		expectOn   models.MatchedField
		expectNone bool
	}{
		{"Exact name", "Organic Milk 1L", "CAT-001", models.MatchedOnName, false},
		{"Case insensitive", "ORGANIC MILK 1L", "CAT-001", models.MatchedOnName, false},
		{"Punctuation ignored", "Organic Milk, 1L!", "CAT-001", models.MatchedOnName, false},
		{"Exact SKU", "MLK-1000", "CAT-001", models.MatchedOnSKU, false},
		{"SKU lowercase", "egg-0012", "CAT-003", models.MatchedOnSKU, false},
		{"No match", "Sparkling Water 500ml", "", "", true},
		{"Empty query", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.ExactMatch(tt.query)
			if tt.expectNone {
				if got != nil {
					t.Fatalf("expected no match, got %s", got.String())
				}
				return
			}
			if got == nil {
				t.Fatal("expected a match, got nil")
			}
			if got.CatalogueItemID != tt.expectID {
				t.Errorf("expected item %s, got %s", tt.expectID, got.CatalogueItemID)
			}
			if got.Confidence != models.ConfidenceExact {
				t.Errorf("expected EXACT confidence, got %s", got.Confidence)
			}
			if got.Score != 1.0 {
				t.Errorf("expected score 1.0, got %f", got.Score)
			}
			if got.MatchedOn != tt.expectOn {
				t.Errorf("expected matched on %s, got %s", tt.expectOn, got.MatchedOn)
			}
		})
	}
}

func TestCatalogueIndex_ExactMatchFirstWinsOnDuplicates(t *testing.T) {
	items := []*models.CatalogueItem{
		models.NewCatalogueItem("CAT-A", "Organic Milk", "", decimal.NewFromFloat(4.99)),
		models.NewCatalogueItem("CAT-B", "Organic Milk", "", decimal.NewFromFloat(5.49)),
	}
	idx, err := NewCatalogueIndex(items, nil)
	if err != nil {
		t.Fatalf("NewCatalogueIndex failed: %v", err)
	}

	got := idx.ExactMatch("Organic Milk")
	if got == nil {
		t.Fatal("expected a match")
	}
	if got.CatalogueItemID != "CAT-A" {
		t.Errorf("expected first catalogue entry CAT-A to win, got %s", got.CatalogueItemID)
	}
}

func TestCatalogueIndex_HeuristicMatch(t *testing.T) {
	idx := buildTestIndex(t, nil)

	t.Run("Substring containment", func(t *testing.T) {
		got := idx.HeuristicMatch("Organic Milk")
		if got == nil {
			t.Fatal("expected a match")
		}
		if got.CatalogueItemID != "CAT-001" {
			t.Errorf("expected CAT-001, got %s", got.CatalogueItemID)
		}
		if got.Score != 0.9 {
			t.Errorf("expected substring score 0.9, got %f", got.Score)
		}
		if got.Confidence != models.ConfidenceHigh {
			t.Errorf("expected HIGH confidence, got %s", got.Confidence)
		}
	})

	t.Run("Word overlap above threshold", func(t *testing.T) {
		// Tokens: {eggs, range, free, 24pk} vs {free, range, eggs, 12pk} = 3/4 overlap
		got := idx.HeuristicMatch("Eggs Range Free 24pk")
		if got == nil {
			t.Fatal("expected a match")
		}
		if got.CatalogueItemID != "CAT-003" {
			t.Errorf("expected CAT-003, got %s", got.CatalogueItemID)
		}
		if got.Score != 0.75 {
			t.Errorf("expected overlap score 0.75, got %f", got.Score)
		}
		if got.Confidence != models.ConfidenceMedium {
			t.Errorf("expected MEDIUM confidence, got %s", got.Confidence)
		}
	})

	t.Run("Below threshold", func(t *testing.T) {
		if got := idx.HeuristicMatch("Sparkling Water 500ml"); got != nil {
			t.Errorf("expected no match, got %s", got.String())
		}
	})

	t.Run("Empty query", func(t *testing.T) {
		if got := idx.HeuristicMatch("   "); got != nil {
			t.Errorf("expected no match for empty query, got %s", got.String())
		}
	})
}

func TestCatalogueIndex_Search(t *testing.T) {
	idx := buildTestIndex(t, nil)

	t.Run("Misspelled name", func(t *testing.T) {
		got := idx.Search("Organik Milk 1L", 3)
		if len(got) == 0 {
			t.Fatal("expected suggestions for close misspelling")
		}
		if got[0].CatalogueItemID != "CAT-001" {
			t.Errorf("expected best suggestion CAT-001, got %s", got[0].CatalogueItemID)
		}
		if got[0].Confidence == models.ConfidenceNone {
			t.Errorf("expected a usable confidence, got NONE")
		}
		if got[0].Score <= 0 || got[0].Score > 1 {
			t.Errorf("expected score in (0, 1], got %f", got[0].Score)
		}
	})

	t.Run("Results sorted by distance", func(t *testing.T) {
		got := idx.Search("Organic Milk", 5)
		for i := 1; i < len(got); i++ {
			if got[i].Score > got[i-1].Score {
				t.Errorf("suggestions not sorted: %f before %f", got[i-1].Score, got[i].Score)
			}
		}
	})

	t.Run("Unrelated query", func(t *testing.T) {
		got := idx.Search("Industrial Lawnmower XXL", 3)
		for _, s := range got {
			if s.Confidence == models.ConfidenceHigh {
				t.Errorf("unexpected HIGH confidence for unrelated query: %s", s.String())
			}
		}
	})

	t.Run("Too short after normalization", func(t *testing.T) {
		if got := idx.Search("!", 3); got != nil {
			t.Errorf("expected no suggestions for short fragment, got %d", len(got))
		}
	})

	t.Run("Empty query", func(t *testing.T) {
		if got := idx.Search("", 3); got != nil {
			t.Errorf("expected no suggestions for empty query, got %d", len(got))
		}
	})

	t.Run("Respects max results", func(t *testing.T) {
		got := idx.Search("Cheese", 1)
		if len(got) > 1 {
			t.Errorf("expected at most 1 suggestion, got %d", len(got))
		}
	})
}

func TestCatalogueIndex_SearchDeterministic(t *testing.T) {
	idx := buildTestIndex(t, nil)

	first := idx.Search("Organic Milk 1L", 5)
	for i := 0; i < 10; i++ {
		again := idx.Search("Organic Milk 1L", 5)
		if len(again) != len(first) {
			t.Fatalf("result count changed between runs: %d vs %d", len(first), len(again))
		}
		for j := range again {
			if again[j].CatalogueItemID != first[j].CatalogueItemID {
				t.Fatalf("result order changed between runs at %d: %s vs %s",
					j, first[j].CatalogueItemID, again[j].CatalogueItemID)
			}
		}
	}
}

func TestDistanceToConfidence(t *testing.T) {
	idx := buildTestIndex(t, nil)

	tests := []struct {
		distance float64
		expected models.MatchConfidence
	}{
		{0.0, models.ConfidenceHigh},
		{0.10, models.ConfidenceHigh},
		{0.11, models.ConfidenceMedium},
		{0.25, models.ConfidenceMedium},
		{0.30, models.ConfidenceLow},
		{0.40, models.ConfidenceLow},
		{0.41, models.ConfidenceNone},
		{0.9, models.ConfidenceNone},
	}

	for _, tt := range tests {
		if got := idx.distanceToConfidence(tt.distance); got != tt.expected {
			t.Errorf("distanceToConfidence(%f) = %s, want %s", tt.distance, got, tt.expected)
		}
	}
}

func TestFieldDistance(t *testing.T) {
	if d := fieldDistance("organic milk 1l", "organic milk 1l"); d != 0 {
		t.Errorf("expected zero distance for identical strings, got %f", d)
	}

	contained := fieldDistance("milk", "organic milk 1l")
	unrelated := fieldDistance("lawnmower", "organic milk 1l")
	if contained >= unrelated {
		t.Errorf("expected contained fragment closer than unrelated query: %f vs %f", contained, unrelated)
	}
}
