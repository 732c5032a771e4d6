// Package completion provides text-completion clients used by the assistant.
//
// A Completer takes system instructions and an input text and returns the
// generated text together with an opaque response ID. Passing that ID back as
// PreviousResponseID continues the same conversation.
package completion

import (
	"context"
	"fmt"
	"time"
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Request is a single completion call.
type Request struct {
	Instructions       string
	Input              string
	PreviousResponseID string
}

// Response is the result of a completion call. Text may be empty when the
// provider returned no text content; that is not an error.
type Response struct {
	Text       string
	ResponseID string
}

// Completer is an external text-completion service.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (*Response, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Config selects and configures a provider.
type Config struct {
	Provider      string
	Model         string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Timeout       time.Duration
	HistorySize   int
}

// New builds the completer for cfg.Provider, wrapped with cfg.Timeout.
func New(ctx context.Context, cfg Config) (Completer, error) {
	var (
		c   Completer
		err error
	)
	switch cfg.Provider {
	case ProviderGemini, "":
		c, err = NewGeminiCompleter(ctx, GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.Model,
			HistorySize: cfg.HistorySize,
		})
	case ProviderOpenAI:
		c, err = NewOpenAICompleter(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(c, cfg.Timeout), nil
}

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. A non-positive d returns next
// unchanged.
func WithTimeout(next Completer, d time.Duration) Completer {
	if d <= 0 {
		return next
	}
	return &timeoutCompleter{next: next, timeout: d}
}

func (c *timeoutCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.Complete(ctx, req)
}
