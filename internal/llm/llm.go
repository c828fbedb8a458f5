package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Provider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Config struct {
	Provider         string
	Model            string
	BaseURL          string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	Temperature      float64
	Timeout          time.Duration
}

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openRouterTitle   = "prodscout"
)

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "local":
		return LocalProvider{}, nil
	case "", "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}), nil
	case "openrouter":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.OpenRouterAPIKey,
			Model:       cfg.Model,
			BaseURL:     defaultIfEmpty(cfg.BaseURL, openRouterBaseURL),
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			Headers:     map[string]string{"X-Title": openRouterTitle},
		}), nil
	default:
		return nil, ErrUnsupportedProvider{Provider: cfg.Provider}
	}
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
