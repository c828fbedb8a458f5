package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Keyring-Network/prodscout/internal/research"
)

const samplePosts = `{
  "data": {
    "posts": {
      "edges": [
        {"node": {"id": "1", "name": "Acme CRM", "tagline": "CRM for teams", "description": "d", "url": "https://www.producthunt.com/posts/acme", "votesCount": 120, "website": "https://acme.io", "createdAt": "2024-03-01T10:00:00Z", "topics": {"edges": [{"node": {"name": "CRM"}}, {"node": {"name": "Sales"}}]}}},
        {"node": {"id": "2", "name": "Pipeline", "tagline": "t", "description": "", "url": "https://www.producthunt.com/posts/pipeline", "votesCount": 50, "website": "", "createdAt": "2024-02-01T10:00:00Z", "topics": {"edges": []}}}
      ]
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.BaseURL = server.URL
	if cfg.Token == "" {
		cfg.Token = "dev-token"
	}
	return NewClient(cfg, nil)
}

func TestSearchMapsPosts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer dev-token", r.Header.Get("Authorization"))

		var body graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body.Query, "order: RANKING")
		require.Equal(t, "crm", body.Variables["topic"])
		require.Equal(t, float64(10), body.Variables["first"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePosts))
	}, Config{})

	products, err := client.Search(context.Background(), "crm", 10)
	require.NoError(t, err)
	require.Len(t, products, 2)

	first := products[0]
	require.Equal(t, "1", first.ID)
	require.Equal(t, "Acme CRM", first.Name)
	require.Equal(t, "https://acme.io", first.Website)
	require.Equal(t, 120, first.VotesCount)
	require.Equal(t, []string{"CRM", "Sales"}, first.Topics)
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), first.CreatedAt.UTC())

	require.Empty(t, products[1].Website)
	require.Empty(t, products[1].Topics)
}

func TestSearchClampsFirst(t *testing.T) {
	var seen []float64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		seen = append(seen, body.Variables["first"].(float64))
		w.Write([]byte(`{"data":{"posts":{"edges":[]}}}`))
	}, Config{MaxPerKeyword: 20})

	for _, count := range []int{0, 5, 500} {
		_, err := client.Search(context.Background(), "crm", count)
		require.NoError(t, err)
	}
	require.Equal(t, []float64{1, 5, 20}, seen)
}

func TestSearchMissingTokenIsFatal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, nil)
	_, err := client.Search(context.Background(), "crm", 10)

	var srcErr *research.SourceError
	require.ErrorAs(t, err, &srcErr)
	require.Equal(t, "crm", srcErr.Keyword)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestSearchStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		fatal  bool
	}{
		{status: http.StatusBadRequest, fatal: true},
		{status: http.StatusUnauthorized, fatal: true},
		{status: http.StatusForbidden, fatal: true},
		{status: http.StatusNotFound, fatal: false},
		{status: http.StatusTooManyRequests, fatal: false},
		{status: http.StatusBadGateway, fatal: false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}, Config{})

			products, err := client.Search(context.Background(), "crm", 10)
			require.Error(t, err)
			require.Nil(t, products)

			var srcErr *research.SourceError
			require.Equal(t, tt.fatal, errors.As(err, &srcErr))
			if tt.fatal {
				require.Equal(t, tt.status, srcErr.StatusCode)
			}
		})
	}
}

func TestSearchGraphQLErrorsAreSoft(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"topic not found"},{"message":"try again"}]}`))
	}, Config{})

	_, err := client.Search(context.Background(), "zzz", 10)
	require.EqualError(t, err, "product hunt graphql error: topic not found; try again")
	var srcErr *research.SourceError
	require.False(t, errors.As(err, &srcErr))
}

func TestSearchUndecodableBodyIsSoft(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}, Config{})

	_, err := client.Search(context.Background(), "crm", 10)
	require.ErrorContains(t, err, "decode product hunt response")
}

func TestSearchNetworkErrorIsSoft(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Token: "dev-token", Timeout: time.Second}, nil)
	_, err := client.Search(context.Background(), "crm", 10)
	require.Error(t, err)
	var srcErr *research.SourceError
	require.False(t, errors.As(err, &srcErr))
}

func TestSearchRespectsRateLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"posts":{"edges":[]}}}`))
	}, Config{RequestsPerSecond: 1})

	_, err := client.Search(context.Background(), "a", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, "b", 1)
	require.ErrorContains(t, err, "rate limit")
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{Token: " t "}, nil)
	require.Equal(t, DefaultBaseURL, client.baseURL)
	require.Equal(t, DefaultMaxPerKeyword, client.maxPerKeyword)
	require.Equal(t, "t", client.token)
	require.Equal(t, defaultTimeout, client.client.Timeout)
}
