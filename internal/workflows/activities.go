package workflows

import (
	"context"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"github.com/Keyring-Network/prodscout/internal/enrichment"
	"github.com/Keyring-Network/prodscout/internal/store"
)

type EnrichmentActivities struct {
	resolver enrichment.URLResolver
	workflow enrichment.Workflow
	store    store.Store
	logger   *zap.Logger
}

// NewEnrichmentActivities builds the activity set. A nil store turns
// SaveEnrichment into a no-op.
func NewEnrichmentActivities(resolver enrichment.URLResolver, workflow enrichment.Workflow, st store.Store, logger *zap.Logger) *EnrichmentActivities {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentActivities{resolver: resolver, workflow: workflow, store: st, logger: logger}
}

func (a *EnrichmentActivities) ResolveWebsite(ctx context.Context, input ResolveInput) (ResolveOutput, error) {
	resolved, err := a.resolver.Resolve(ctx, input.Website)
	if err != nil {
		a.logger.Warn("website resolution failed",
			zap.String("website", input.Website),
			zap.Int32("attempt", attempt(ctx)),
			zap.Error(err),
		)
		return ResolveOutput{}, toApplicationError(err)
	}
	return ResolveOutput{URL: resolved}, nil
}

func (a *EnrichmentActivities) RunDeepResearch(ctx context.Context, input DeepResearchInput) (DeepResearchOutput, error) {
	output, err := a.workflow.Run(ctx, input.URL)
	if err != nil {
		a.logger.Warn("deep research failed",
			zap.String("website", input.Website),
			zap.String("url", input.URL),
			zap.Int32("attempt", attempt(ctx)),
			zap.Error(err),
		)
		return DeepResearchOutput{}, toApplicationError(err)
	}
	return DeepResearchOutput{Output: output}, nil
}

func (a *EnrichmentActivities) SaveEnrichment(ctx context.Context, input SaveInput) error {
	if a.store == nil {
		return nil
	}
	key := strings.TrimSpace(input.Key)
	if key == "" {
		return nil
	}
	return a.store.SaveEnrichment(ctx, store.Enrichment{
		Key:         key,
		Output:      input.Output,
		ResolvedURL: input.URL,
	})
}

func attempt(ctx context.Context) int32 {
	if !activity.IsActivity(ctx) {
		return 0
	}
	return activity.GetInfo(ctx).Attempt
}
