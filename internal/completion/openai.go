package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures an OpenAICompleter.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxRetries is handed to the SDK. The zero value disables retries.
	MaxRetries int
}

// OpenAICompleter calls the OpenAI Responses API, which continues
// conversations natively through previous_response_id.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer. BaseURL allows any
// OpenAI-compatible endpoint.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai API key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))

	client := openai.NewClient(opts...)
	return &OpenAICompleter{client: &client, model: cfg.Model}, nil
}

// Complete sends one request to /responses.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Input),
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	if req.PreviousResponseID != "" {
		params.PreviousResponseID = openai.String(req.PreviousResponseID)
	}

	result, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai complete: %w", err)
	}

	text := result.OutputText()
	slog.Debug("openai response received", "response_id", result.ID, "content_length", len(text))
	return &Response{Text: text, ResponseID: result.ID}, nil
}
