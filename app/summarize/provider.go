package summarize

import (
	"context"
	"errors"
)

// Provider is a text completion backend.
type Provider interface {
	Name() string
	// Complete sends the instructions followed by the content and returns
	// the generated text.
	Complete(ctx context.Context, instructions, content string) (string, error)
}

type Config struct {
	Provider string // anthropic, openai
	APIKey   string
	BaseURL  string // optional; lets the openai provider target compatible APIs
	Model    string
}

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

var (
	ErrInvalidProvider = errors.New("invalid provider")
	ErrMissingAPIKey   = errors.New("API key is required")
	ErrMissingModel    = errors.New("model is required")
)

func NewProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		return nil, ErrMissingModel
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, ErrInvalidProvider
	}
}
