// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides the model capability shared by the refiner, the query
// generator, the reranker and the structuring tiers. A Client sends one prompt
// and returns the model's text; parsing the text is the caller's business.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// Client sends a single-turn prompt to a model.
type Client interface {
	// Name identifies the provider and model, e.g. "anthropic/claude-sonnet-4-5".
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrUnsupportedProvider is returned by NewClient for an unknown provider name.
type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported LLM provider: %q", e.Provider)
}

const defaultMaxTokens = 4096

// NewClient builds a Client for cfg. The HTTP client may be nil, in which case
// one is created with cfg.Timeout.
func NewClient(cfg types.AIConfig, httpClient *http.Client) (Client, error) {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	switch cfg.Provider {
	case "anthropic":
		return &Anthropic{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   defaultIfEmpty(cfg.BaseURL, anthropicAPIURL),
			MaxTokens: maxTokens,
			Client:    httpClient,
		}, nil
	case "openai":
		return &OpenAI{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   defaultIfEmpty(cfg.BaseURL, openAIAPIURL),
			MaxTokens: maxTokens,
			Client:    httpClient,
		}, nil
	case "openrouter":
		return &OpenAI{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			BaseURL:   defaultIfEmpty(cfg.BaseURL, "https://openrouter.ai/api/v1"),
			MaxTokens: maxTokens,
			Client:    httpClient,
		}, nil
	default:
		return nil, ErrUnsupportedProvider{Provider: cfg.Provider}
	}
}

// WithModel returns a copy of cfg pointing at a different model on the same
// provider. Used to build the alternate-model tiers.
func WithModel(cfg types.AIConfig, model string) types.AIConfig {
	cfg.Model = model
	return cfg
}

func defaultIfEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
