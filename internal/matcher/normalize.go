package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes product names and SKUs before comparison.
// Normalization is pure and idempotent: applying it twice yields the
// same result, so normalized values can be cached and compared freely.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize lowercases the input, applies Unicode NFC composition so
// decomposed diacritics from OCR sources compare equal, strips
// punctuation and symbols, and collapses runs of whitespace. Letters
// and digits from any script are preserved.
func (n *Normalizer) Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// Punctuation separates tokens rather than joining them
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// Tokenize normalizes the input and returns its unique words longer
// than minLen, preserving first-occurrence order.
func (n *Normalizer) Tokenize(s string, minLen int) []string {
	normalized := n.Normalize(s)
	if normalized == "" {
		return nil
	}

	seen := make(map[string]bool)
	var tokens []string
	for _, word := range strings.Fields(normalized) {
		if len([]rune(word)) <= minLen {
			continue
		}
		if seen[word] {
			continue
		}
		seen[word] = true
		tokens = append(tokens, word)
	}

	return tokens
}

// TokenOverlapRatio computes the word-overlap ratio between two token
// sets: the size of the intersection divided by the size of the larger
// set. Returns 0 when either set is empty.
func TokenOverlapRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(a))
	for _, token := range a {
		setA[token] = true
	}

	intersection := 0
	for _, token := range b {
		if setA[token] {
			intersection++
		}
	}

	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}

	return float64(intersection) / float64(larger)
}
