package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"price-comparison-service/internal/models"
	pkgerrors "price-comparison-service/pkg/errors"
	"price-comparison-service/pkg/logger"
)

// ErrNoSuggestion is returned when the provider answered but found no
// plausible catalogue match for the invoice line.
var ErrNoSuggestion = errors.New("no suggestion from match provider")

// AISuggestion is the provider's answer for a single invoice line
type AISuggestion struct {
	CatalogueItemID string                 `json:"catalogue_item_id"`
	Confidence      models.MatchConfidence `json:"confidence"`
	Reason          string                 `json:"reason,omitempty"`
}

// MatchSuggester proposes catalogue matches for invoice lines that the
// deterministic layers could not place. Implementations may call
// external services; errors must be treated by callers as "no match",
// never as fatal.
type MatchSuggester interface {
	SuggestMatch(ctx context.Context, invoiceName string, candidates []*models.CatalogueItem) (*AISuggestion, error)
}

// OpenAISuggesterConfig configures the OpenAI-backed suggester
type OpenAISuggesterConfig struct {
	APIKey      string        `json:"-"`
	Model       string        `json:"model"`
	MaxRetries  int           `json:"max_retries"`
	MinInterval time.Duration `json:"min_interval"`
	Temperature float32       `json:"temperature"`
}

// DefaultOpenAISuggesterConfig returns the default suggester configuration
func DefaultOpenAISuggesterConfig() *OpenAISuggesterConfig {
	return &OpenAISuggesterConfig{
		Model:       openai.GPT4oMini,
		MaxRetries:  2,
		MinInterval: 500 * time.Millisecond,
		Temperature: 0,
	}
}

// OpenAISuggester asks an OpenAI chat model to pick the catalogue item
// an invoice line most likely refers to. Calls are rate limited with a
// minimum interval between requests.
type OpenAISuggester struct {
	client *openai.Client
	config *OpenAISuggesterConfig
	log    logger.Logger

	mu       sync.Mutex
	lastCall time.Time
}

// NewOpenAISuggester creates a suggester from the given configuration
func NewOpenAISuggester(config *OpenAISuggesterConfig) (*OpenAISuggester, error) {
	if config == nil {
		config = DefaultOpenAISuggesterConfig()
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, pkgerrors.ConfigurationError(pkgerrors.CodeMissingConfig, "openai_api_key", "", nil)
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}

	return &OpenAISuggester{
		client: openai.NewClient(config.APIKey),
		config: config,
		log:    logger.GetGlobalLogger().WithComponent("ai-suggester"),
	}, nil
}

// SuggestMatch asks the model to pick one of the candidate catalogue
// items for the invoice line. It returns ErrNoSuggestion when the
// model declines to pick a candidate.
func (s *OpenAISuggester) SuggestMatch(ctx context.Context, invoiceName string, candidates []*models.CatalogueItem) (*AISuggestion, error) {
	if len(candidates) == 0 {
		return nil, ErrNoSuggestion
	}

	if err := s.waitForSlot(ctx); err != nil {
		return nil, err
	}

	prompt := buildSuggestionPrompt(invoiceName, candidates)

	var lastErr error
	attempts := s.config.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       s.config.Model,
			Temperature: s.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleSystem,
					Content: "You match invoice line descriptions to supplier catalogue items. " +
						"Respond with JSON only, no prose and no markdown.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		})
		if err != nil {
			lastErr = err
			s.log.WithError(err).WithField("attempt", attempt).Warn("Match provider request failed")
			if attempt < attempts {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(attempt) * time.Second):
				}
			}
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = pkgerrors.MatchProviderError(pkgerrors.CodeMalformedResponse, "openai", nil)
			continue
		}

		suggestion, err := parseSuggestionResponse(resp.Choices[0].Message.Content, candidates)
		if err != nil {
			if errors.Is(err, ErrNoSuggestion) {
				return nil, err
			}
			lastErr = err
			s.log.WithError(err).WithField("attempt", attempt).Warn("Match provider returned malformed response")
			continue
		}

		return suggestion, nil
	}

	return nil, pkgerrors.MatchProviderError(pkgerrors.CodeProviderUnavailable, "openai", lastErr)
}

// waitForSlot enforces the minimum interval between provider calls
func (s *OpenAISuggester) waitForSlot(ctx context.Context) error {
	s.mu.Lock()
	now := time.Now()
	wait := s.lastCall.Add(s.config.MinInterval).Sub(now)
	if wait < 0 {
		wait = 0
	}
	// Reserve the slot before releasing the lock so concurrent callers
	// queue behind each other
	s.lastCall = now.Add(wait)
	s.mu.Unlock()

	if wait == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func buildSuggestionPrompt(invoiceName string, candidates []*models.CatalogueItem) string {
	var b strings.Builder
	b.WriteString("Invoice line description:\n")
	b.WriteString(invoiceName)
	b.WriteString("\n\nCatalogue candidates:\n")
	for i, item := range candidates {
		if item.SKU != "" {
			fmt.Fprintf(&b, "%d. %s (SKU %s)\n", i+1, item.ProductName, item.SKU)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, item.ProductName)
		}
	}
	b.WriteString("\nPick the candidate the invoice line refers to, or null if none fits.\n")
	b.WriteString(`Answer with JSON: {"matched_index": <1-based number or null>, "confidence": "high"|"medium"|"low", "reason": "<short>"}`)
	return b.String()
}

// parseSuggestionResponse decodes the model's answer tolerantly: the
// payload may be wrapped in markdown fences and the confidence may
// arrive as a string or a number.
func parseSuggestionResponse(content string, candidates []*models.CatalogueItem) (*AISuggestion, error) {
	cleaned := stripJSONFences(content)

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, pkgerrors.MatchProviderError(pkgerrors.CodeMalformedResponse, "openai", err)
	}

	idxVal, ok := raw["matched_index"]
	if !ok || idxVal == nil {
		return nil, ErrNoSuggestion
	}

	idxFloat, ok := idxVal.(float64)
	if !ok {
		return nil, pkgerrors.MatchProviderError(pkgerrors.CodeMalformedResponse, "openai", nil).
			WithContext("matched_index", idxVal)
	}

	index := int(idxFloat) - 1
	if index < 0 || index >= len(candidates) {
		return nil, pkgerrors.MatchProviderError(pkgerrors.CodeMalformedResponse, "openai", nil).
			WithContext("matched_index", idxFloat)
	}

	return &AISuggestion{
		CatalogueItemID: candidates[index].ID,
		Confidence:      parseConfidenceValue(raw["confidence"]),
		Reason:          getStringValue(raw, "reason"),
	}, nil
}

// stripJSONFences removes markdown code fences around a JSON payload
func stripJSONFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// parseConfidenceValue accepts "high"/"medium"/"low" strings or a
// numeric score in [0, 1] and maps both to confidence tiers. Unknown
// values degrade to LOW rather than failing the suggestion.
func parseConfidenceValue(value interface{}) models.MatchConfidence {
	switch v := value.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "high":
			return models.ConfidenceHigh
		case "medium":
			return models.ConfidenceMedium
		case "low":
			return models.ConfidenceLow
		}
	case float64:
		switch {
		case v >= 0.8:
			return models.ConfidenceHigh
		case v >= 0.5:
			return models.ConfidenceMedium
		default:
			return models.ConfidenceLow
		}
	}
	return models.ConfidenceLow
}

func getStringValue(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
