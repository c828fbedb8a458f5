package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultCozeBaseURL       = "https://api.coze.cn"
	DefaultEnrichmentTimeout = 120 * time.Second
	nullFieldsMessage        = "fields cannot be extracted from null values"
)

type CozeConfig struct {
	BaseURL    string
	APIKey     string
	WorkflowID string
	Timeout    time.Duration
}

// CozeClient runs the deep-research workflow hosted on Coze.
type CozeClient struct {
	baseURL    string
	apiKey     string
	workflowID string
	client     *http.Client
}

func NewCozeClient(cfg CozeConfig) *CozeClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultCozeBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultEnrichmentTimeout
	}
	return &CozeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		workflowID: strings.TrimSpace(cfg.WorkflowID),
		client:     &http.Client{Timeout: timeout},
	}
}

type cozeRunRequest struct {
	WorkflowID string            `json:"workflow_id"`
	Parameters map[string]string `json:"parameters"`
}

type cozeRunResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data string `json:"data"`
}

// Run executes the workflow for pageURL and returns its output text.
func (c *CozeClient) Run(ctx context.Context, pageURL string) (string, error) {
	if c.apiKey == "" || c.workflowID == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(cozeRunRequest{
		WorkflowID: c.workflowID,
		Parameters: map[string]string{"input": pageURL},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/workflow/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &EnrichmentFetchError{URL: pageURL, Message: "deep research request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &EnrichmentFetchError{URL: pageURL, Message: "deep research request failed", Err: err}
	}
	var parsed cozeRunResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", &EnrichmentFetchError{URL: pageURL, Message: "deep research failed", Err: fmt.Errorf("workflow API returned HTTP %d", resp.StatusCode)}
		}
		return "", &EnrichmentFetchError{URL: pageURL, Message: UnscrapableMessage, Err: fmt.Errorf("decode workflow response: %w", err)}
	}
	if parsed.Code != 0 {
		if strings.Contains(parsed.Msg, nullFieldsMessage) {
			return "", &EnrichmentFetchError{URL: pageURL, Message: UnscrapableMessage}
		}
		message := strings.TrimSpace(parsed.Msg)
		if message == "" {
			message = "deep research failed"
		}
		return "", &EnrichmentFetchError{URL: pageURL, Message: message, Err: fmt.Errorf("workflow code %d", parsed.Code)}
	}
	if resp.StatusCode >= 400 {
		return "", &EnrichmentFetchError{URL: pageURL, Message: "deep research failed", Err: fmt.Errorf("workflow API returned HTTP %d", resp.StatusCode)}
	}

	var payload struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal([]byte(parsed.Data), &payload); err != nil {
		return "", &EnrichmentFetchError{URL: pageURL, Message: UnscrapableMessage, Err: fmt.Errorf("decode workflow data: %w", err)}
	}
	if strings.TrimSpace(payload.Output) == "" {
		return "", &EnrichmentFetchError{URL: pageURL, Message: UnscrapableMessage}
	}
	return payload.Output, nil
}
