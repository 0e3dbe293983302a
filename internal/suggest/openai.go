package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultModel = "gpt-4o-mini"

var systemPrompts = map[Kind]string{
	KindCategorize: "You are an assistant that classifies compliance documents. " +
		"Return JSON with keys: category (string), secondary_categories (list), " +
		"tags (list), keywords (list), summary (string), confidence (0-1 float), notes (list).",
	KindDuplicates: "You identify potential duplicate or superseded compliance documents. " +
		"Given one candidate and many existing records, return JSON with keys: " +
		"duplicates (list of {id, title, similarity, reasoning}), has_exact_match (bool), notes (list).",
	KindRecommend: "You recommend compliance documents tailored to a user's activity. " +
		"Return JSON with keys: recommendations (list of {id, title, reason, priority}), summary (string).",
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint (Azure, proxies, tests).
	BaseURL     string
	Temperature float32
	MaxTokens   int
	// Timeout bounds each completion call. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// OpenAIProvider asks an OpenAI chat model for JSON suggestions.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *zap.Logger
}

// NewOpenAIProvider creates a provider. The API key is required.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger.Info("initializing openai suggestion provider", zap.String("model", cfg.Model))
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

func userPayload(req SuggestionRequest) (any, error) {
	switch req.Kind {
	case KindCategorize:
		return map[string]any{
			"title":                req.Title,
			"description":          req.Description,
			"existing_tags":        nonNil(req.ExistingTags),
			"existing_keywords":    nonNil(req.ExistingKeywords),
			"available_categories": nonNil(req.AvailableCategories),
			"text_preview":         req.TextPreview,
		}, nil
	case KindDuplicates:
		if req.Candidate == nil {
			return nil, errors.New("duplicate check requires a candidate")
		}
		return map[string]any{"candidate": req.Candidate, "existing": req.Existing}, nil
	case KindRecommend:
		return map[string]any{"user": req.User, "recent": req.Recent, "library": req.Library}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, req.Kind)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (o *OpenAIProvider) Suggest(ctx context.Context, req SuggestionRequest) (*Suggestion, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}
	payload, err := userPayload(req)
	if err != nil {
		return nil, err
	}
	user, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompts[req.Kind]},
			{Role: openai.ChatMessageRoleUser, Content: string(user)},
		},
		Temperature:         o.cfg.Temperature,
		MaxCompletionTokens: o.cfg.MaxTokens,
		ResponseFormat:      &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	o.logger.Debug("openai suggestion received",
		zap.String("kind", string(req.Kind)),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)
	return parseSuggestion(req.Kind, raw)
}

// modelAnswer mirrors the JSON the prompts ask for. Similarity and ids are
// loosely typed because models return them as numbers or strings.
type modelAnswer struct {
	Category            string   `json:"category"`
	SecondaryCategories []string `json:"secondary_categories"`
	Tags                []string `json:"tags"`
	Keywords            []string `json:"keywords"`
	Summary             string   `json:"summary"`
	Confidence          *float64 `json:"confidence"`
	Notes               []string `json:"notes"`
	HasExactMatch       bool     `json:"has_exact_match"`
	Duplicates          []struct {
		ID         json.RawMessage `json:"id"`
		Title      string          `json:"title"`
		Similarity json.Number     `json:"similarity"`
		Reasoning  string          `json:"reasoning"`
		Reason     string          `json:"reason"`
	} `json:"duplicates"`
	Recommendations []struct {
		ID          json.RawMessage `json:"id"`
		Title       string          `json:"title"`
		Reason      string          `json:"reason"`
		Explanation string          `json:"explanation"`
		Priority    string          `json:"priority"`
	} `json:"recommendations"`
}

// extractJSON recovers the outermost object from a reply that wraps it in prose.
func extractJSON(raw string) ([]byte, bool) {
	if json.Valid([]byte(raw)) {
		return []byte(raw), true
	}
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	candidate := []byte(raw[start : end+1])
	return candidate, json.Valid(candidate)
}

func idString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func parseSuggestion(kind Kind, raw string) (*Suggestion, error) {
	body, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("openai reply is not JSON: %q", truncate(raw, 120))
	}
	var ans modelAnswer
	if err := json.Unmarshal(body, &ans); err != nil {
		return nil, fmt.Errorf("decode openai reply: %w", err)
	}

	s := &Suggestion{
		Kind:                kind,
		Source:              "openai",
		Category:            ans.Category,
		SecondaryCategories: ans.SecondaryCategories,
		Tags:                ans.Tags,
		Keywords:            ans.Keywords,
		Confidence:          ans.Confidence,
		Summary:             ans.Summary,
		Notes:               ans.Notes,
		HasExactMatch:       ans.HasExactMatch,
		Raw:                 raw,
	}
	for _, d := range ans.Duplicates {
		id := idString(d.ID)
		if id == "" {
			continue
		}
		sim, _ := d.Similarity.Float64()
		reason := d.Reasoning
		if reason == "" {
			reason = d.Reason
		}
		title := d.Title
		if title == "" {
			title = "Potential duplicate"
		}
		s.Duplicates = append(s.Duplicates, DuplicateMatch{ID: id, Title: title, Similarity: sim, Reasoning: reason})
	}
	for _, r := range ans.Recommendations {
		id := idString(r.ID)
		if id == "" {
			continue
		}
		reason := r.Reason
		if reason == "" {
			reason = r.Explanation
		}
		s.Recommendations = append(s.Recommendations, Recommendation{ID: id, Title: r.Title, Reason: reason, Priority: r.Priority})
	}
	return s, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
