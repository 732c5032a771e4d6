package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/genai"
)

// Defaults for GeminiCompleter.
const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultHistorySize = 512
)

// GeminiConfig configures a GeminiCompleter.
type GeminiConfig struct {
	APIKey      string
	Model       string
	HistorySize int
}

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiCompleter calls Gemini through the native genai SDK. Gemini has no
// server-side response chaining, so the conversation up to each generated
// response is kept in a bounded LRU keyed by the response ID it returned.
// An unknown or evicted ID starts a fresh conversation.
type GeminiCompleter struct {
	model    string
	generate generateFunc
	history  *lru.Cache[string, []*genai.Content]
}

// NewGeminiCompleter creates a completer backed by the Gemini API.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGeminiCompleter(cfg, client.Models.GenerateContent)
}

func newGeminiCompleter(cfg GeminiConfig, generate generateFunc) (*GeminiCompleter, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	history, err := lru.New[string, []*genai.Content](cfg.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}
	return &GeminiCompleter{model: cfg.Model, generate: generate, history: history}, nil
}

// Complete sends the stored conversation plus the new input.
func (c *GeminiCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	var contents []*genai.Content
	if req.PreviousResponseID != "" {
		if prior, ok := c.history.Get(req.PreviousResponseID); ok {
			contents = append(contents, prior...)
		} else {
			slog.Debug("gemini history not found, starting new conversation", "previous_response_id", req.PreviousResponseID)
		}
	}
	contents = append(contents, genai.NewContentFromText(req.Input, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if req.Instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(req.Instructions, genai.RoleUser)
	}

	result, err := c.generate(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text := responseText(result)
	id := "gemini-" + uuid.NewString()
	if text != "" {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
	}
	c.history.Add(id, contents)

	slog.Debug("gemini response received", "response_id", id, "content_length", len(text))
	return &Response{Text: text, ResponseID: id}, nil
}

// responseText concatenates the non-thought text parts of all candidates.
func responseText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range result.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
