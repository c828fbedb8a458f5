// Package directory implements research.ProductSource against the Product Hunt
// GraphQL API.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Keyring-Network/prodscout/internal/metrics"
	"github.com/Keyring-Network/prodscout/internal/product"
	"github.com/Keyring-Network/prodscout/internal/research"
)

const (
	DefaultBaseURL       = "https://api.producthunt.com/v2/api/graphql"
	DefaultMaxPerKeyword = 50
	defaultTimeout       = 15 * time.Second
)

const postsQuery = `query($topic: String!, $first: Int!) {
  posts(first: $first, topic: $topic, order: RANKING) {
    edges {
      node {
        id
        name
        tagline
        description
        url
        votesCount
        website
        createdAt
        topics {
          edges {
            node {
              name
            }
          }
        }
      }
    }
  }
}`

type Config struct {
	BaseURL       string
	Token         string
	MaxPerKeyword int
	// RequestsPerSecond caps outgoing requests across all keywords. Zero or
	// less disables limiting.
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

type Client struct {
	baseURL       string
	token         string
	maxPerKeyword int
	limiter       *rate.Limiter
	client        *http.Client
	logger        *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxPerKeyword := cfg.MaxPerKeyword
	if maxPerKeyword < 1 {
		maxPerKeyword = DefaultMaxPerKeyword
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:       baseURL,
		token:         strings.TrimSpace(cfg.Token),
		maxPerKeyword: maxPerKeyword,
		limiter:       limiter,
		client:        client,
		logger:        logger,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type postsResponse struct {
	Data struct {
		Posts struct {
			Edges []struct {
				Node postNode `json:"node"`
			} `json:"edges"`
		} `json:"posts"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type postNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Tagline     string    `json:"tagline"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	VotesCount  int       `json:"votesCount"`
	Website     string    `json:"website"`
	CreatedAt   time.Time `json:"createdAt"`
	Topics      struct {
		Edges []struct {
			Node struct {
				Name string `json:"name"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"topics"`
}

// Search returns up to count posts tagged with keyword, ranked by the
// directory. Rejected or unauthenticated requests return *research.SourceError;
// every other failure is returned as a plain error the caller may absorb.
func (c *Client) Search(ctx context.Context, keyword string, count int) ([]product.Product, error) {
	if c.token == "" {
		return nil, &research.SourceError{Keyword: keyword, Err: errors.New("PRODUCTHUNT_DEVELOPER_TOKEN is not set")}
	}
	first := c.clamp(count)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for directory rate limit: %w", err)
	}

	body, err := json.Marshal(graphQLRequest{
		Query:     postsQuery,
		Variables: map[string]any{"topic": keyword, "first": first},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &research.SourceError{Keyword: keyword, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveDirectoryRequest("error", time.Since(started))
		return nil, fmt.Errorf("product hunt request: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveDirectoryRequest(strconv.Itoa(resp.StatusCode), time.Since(started))

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		srcErr := &research.SourceError{Keyword: keyword, StatusCode: resp.StatusCode}
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if text := strings.TrimSpace(string(detail)); text != "" {
			srcErr.Err = errors.New(text)
		}
		return nil, srcErr
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("product hunt returned HTTP %d", resp.StatusCode)
	}

	var parsed postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode product hunt response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("product hunt graphql error: %s", strings.Join(messages, "; "))
	}

	products := make([]product.Product, 0, len(parsed.Data.Posts.Edges))
	for _, edge := range parsed.Data.Posts.Edges {
		products = append(products, edge.Node.toProduct())
	}
	c.logger.Debug("product hunt search",
		zap.String("keyword", keyword),
		zap.Int("first", first),
		zap.Int("results", len(products)),
	)
	return products, nil
}

func (c *Client) clamp(count int) int {
	if count < 1 {
		return 1
	}
	if count > c.maxPerKeyword {
		return c.maxPerKeyword
	}
	return count
}

func (n postNode) toProduct() product.Product {
	topics := make([]string, 0, len(n.Topics.Edges))
	for _, edge := range n.Topics.Edges {
		topics = append(topics, edge.Node.Name)
	}
	return product.Product{
		ID:          n.ID,
		Name:        n.Name,
		Tagline:     n.Tagline,
		Description: n.Description,
		URL:         n.URL,
		Website:     n.Website,
		VotesCount:  n.VotesCount,
		CreatedAt:   n.CreatedAt,
		Topics:      topics,
	}
}
