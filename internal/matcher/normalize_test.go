package matcher

import (
	"testing"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Lowercase", "Organic Milk", "organic milk"},
		{"Strip punctuation", "Milk, 1L (Organic)!", "milk 1l organic"},
		{"Collapse whitespace", "  Organic   Milk  ", "organic milk"},
		{"Punctuation separates tokens", "semi-skimmed", "semi skimmed"},
		{"Diacritics preserved", "Crème Fraîche", "crème fraîche"},
		{"Digits kept", "Eggs 12pk", "eggs 12pk"},
		{"Empty input", "", ""},
		{"Only punctuation", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_NormalizeIdempotent(t *testing.T) {
	n := NewNormalizer()

	inputs := []string{
		"Organic Milk 1L",
		"Crème Fraîche 200ml",
		"  MIXED   case, with; punctuation!  ",
	}

	for _, input := range inputs {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestNormalizer_NormalizeComposesUnicode(t *testing.T) {
	n := NewNormalizer()

	// "é" composed vs "e" + combining acute accent
	composed := "café"
	decomposed := "café"

	if n.Normalize(composed) != n.Normalize(decomposed) {
		t.Errorf("expected composed and decomposed forms to normalize equal: %q vs %q",
			n.Normalize(composed), n.Normalize(decomposed))
	}
}

func TestNormalizer_Tokenize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name     string
		input    string
		minLen   int
		expected []string
	}{
		{"Drops short words", "1L of Organic Milk", 2, []string{"organic", "milk"}},
		{"Deduplicates", "milk milk milk", 2, []string{"milk"}},
		{"Empty input", "", 2, nil},
		{"All short", "a b cd", 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Tokenize(tt.input, tt.minLen)
			if len(got) != len(tt.expected) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestTokenOverlapRatio(t *testing.T) {
	tests := []struct {
		name     string
		a        []string
		b        []string
		expected float64
	}{
		{"Identical", []string{"organic", "milk"}, []string{"organic", "milk"}, 1.0},
		{"Half overlap against larger set", []string{"organic", "milk"}, []string{"organic", "milk", "whole", "fresh"}, 0.5},
		{"No overlap", []string{"organic", "milk"}, []string{"wheat", "bread"}, 0},
		{"Empty side", nil, []string{"milk"}, 0},
		{"Both empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenOverlapRatio(tt.a, tt.b); got != tt.expected {
				t.Errorf("TokenOverlapRatio(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}
