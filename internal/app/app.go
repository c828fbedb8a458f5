// Package app assembles the research and enrichment components from
// configuration. The API server, the worker and the CLI share it.
package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/config"
	"github.com/Keyring-Network/prodscout/internal/directory"
	"github.com/Keyring-Network/prodscout/internal/enrichment"
	"github.com/Keyring-Network/prodscout/internal/keywords"
	"github.com/Keyring-Network/prodscout/internal/llm"
	"github.com/Keyring-Network/prodscout/internal/research"
	"github.com/Keyring-Network/prodscout/internal/store"
	"github.com/Keyring-Network/prodscout/internal/store/memory"
	"github.com/Keyring-Network/prodscout/internal/store/postgres"
	"github.com/Keyring-Network/prodscout/internal/store/redis"
)

var (
	openPostgres = func(conn string) (*postgres.PostgresStore, error) {
		return postgres.New(conn)
	}
	openRedis = func(url string) (*redis.RedisStore, error) {
		return redis.New(url)
	}
)

// OpenStore returns the configured backend and a function that releases it.
func OpenStore(cfg config.Config) (store.Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "memory":
		return memory.New(), func() error { return nil }, nil
	case "postgres":
		st, err := openPostgres(cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, st.Close, nil
	case "redis":
		st, err := openRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

func NewResearcher(cfg config.Config, logger *zap.Logger) (*research.Orchestrator, error) {
	provider, err := llm.NewProvider(llm.Config{
		Provider:         cfg.LLMProvider,
		Model:            cfg.LLMModel,
		BaseURL:          cfg.LLMBaseURL,
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenRouterAPIKey: cfg.OpenRouterAPIKey,
		Temperature:      cfg.LLMTemperature,
		Timeout:          cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	generator := keywords.NewGenerator(provider, cfg.KeywordCount, logger.Named("keywords"))
	source := directory.NewClient(directory.Config{
		BaseURL:           cfg.ProductHuntAPIURL,
		Token:             cfg.ProductHuntToken,
		MaxPerKeyword:     cfg.DirectoryMaxPerKeyword,
		RequestsPerSecond: cfg.DirectoryRPS,
	}, logger.Named("directory"))
	return research.NewOrchestrator(generator, source, research.Config{
		DefaultWeight: cfg.DefaultKeywordWeight,
		Concurrency:   cfg.SearchConcurrency,
	}, logger.Named("research")), nil
}

func NewResolver(cfg config.Config) *enrichment.Resolver {
	return enrichment.NewResolver(enrichment.ResolverConfig{
		Timeout:      cfg.ResolveTimeout,
		MaxRedirects: cfg.ResolveMaxRedirects,
		UseCanonical: cfg.UseCanonicalLink,
	})
}

func NewDeepResearch(cfg config.Config) *enrichment.CozeClient {
	return enrichment.NewCozeClient(enrichment.CozeConfig{
		BaseURL:    cfg.CozeAPIURL,
		APIKey:     cfg.CozeAPIKey,
		WorkflowID: cfg.CozeWorkflowID,
		Timeout:    cfg.EnrichmentTimeout,
	})
}

// NewFetcher runs enrichment in process.
func NewFetcher(cfg config.Config, logger *zap.Logger) *enrichment.Fetcher {
	return enrichment.NewFetcher(NewResolver(cfg), NewDeepResearch(cfg), logger.Named("enrichment"))
}
