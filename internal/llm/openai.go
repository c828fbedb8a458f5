package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAITimeout = 35 * time.Second
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	errorBodyLimit       = 512
)

type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	// Headers are added to every request, e.g. OpenRouter attribution.
	Headers map[string]string
}

// OpenAIProvider sends one chat completion per Generate call to an
// OpenAI-compatible endpoint.
type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	headers     map[string]string
	client      *http.Client
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	return &OpenAIProvider{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       strings.TrimSpace(cfg.Model),
		baseURL:     strings.TrimRight(defaultIfEmpty(cfg.BaseURL, defaultOpenAIBaseURL), "/"),
		temperature: cfg.Temperature,
		headers:     cfg.Headers,
		client:      &http.Client{Timeout: timeout},
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: missing API key", ErrNotConfigured)
	}
	if p.model == "" {
		return "", fmt.Errorf("%w: missing model", ErrNotConfigured)
	}
	body, err := json.Marshal(chatRequest{Model: p.model, Messages: messages, Temperature: p.temperature})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range p.headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(detail))}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode LLM response: %w", err)
	}
	// OpenRouter reports upstream model failures in a 200 body.
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("LLM returned error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("LLM response had no choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("LLM response was empty")
	}
	return content, nil
}
