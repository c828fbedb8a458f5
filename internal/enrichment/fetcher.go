// Package enrichment fetches deep-research annotations for a product website.
package enrichment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/metrics"
)

type URLResolver interface {
	Resolve(ctx context.Context, website string) (string, error)
}

type Workflow interface {
	Run(ctx context.Context, pageURL string) (string, error)
}

type Result struct {
	Output string `json:"output"`
	URL    string `json:"url"`
}

// Fetcher resolves a website and runs the deep-research workflow on the
// resolved address.
type Fetcher struct {
	resolver URLResolver
	workflow Workflow
	logger   *zap.Logger
}

func NewFetcher(resolver URLResolver, workflow Workflow, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{resolver: resolver, workflow: workflow, logger: logger}
}

func (f *Fetcher) Fetch(ctx context.Context, website string) (Result, error) {
	started := time.Now()
	logger := f.logger.With(zap.String("website", website))

	resolved, err := f.resolver.Resolve(ctx, website)
	if err != nil {
		logger.Warn("website resolution failed", zap.Error(err))
		metrics.EnrichmentFetchesTotal.WithLabelValues(OutcomeLabel(err)).Inc()
		return Result{}, err
	}

	output, err := f.workflow.Run(ctx, resolved)
	if err != nil {
		logger.Warn("deep research failed", zap.String("resolved_url", resolved), zap.Error(err))
		metrics.EnrichmentFetchesTotal.WithLabelValues(OutcomeLabel(err)).Inc()
		return Result{}, err
	}

	logger.Info("deep research completed",
		zap.String("resolved_url", resolved),
		zap.Int("output_bytes", len(output)),
		zap.Duration("elapsed", time.Since(started)),
	)
	metrics.EnrichmentFetchesTotal.WithLabelValues("success").Inc()
	return Result{Output: output, URL: resolved}, nil
}

func OutcomeLabel(err error) string {
	var unavailable *SiteUnavailableError
	var fetchErr *EnrichmentFetchError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &unavailable):
		return "site_unavailable"
	case errors.As(err, &fetchErr):
		return "fetch_error"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	default:
		return "error"
	}
}
