package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	ResolveWebsiteActivity  = "ResolveWebsite"
	RunDeepResearchActivity = "RunDeepResearch"
	SaveEnrichmentActivity  = "SaveEnrichment"
)

type EnrichmentInput struct {
	Website string
}

type EnrichmentOutput struct {
	Output string
	URL    string
}

type ResolveInput struct {
	Website string
}

type ResolveOutput struct {
	URL string
}

type DeepResearchInput struct {
	Website string
	URL     string
}

type DeepResearchOutput struct {
	Output string
}

type SaveInput struct {
	Key    string
	Output string
	URL    string
}

// EnrichmentWorkflow resolves a product website, runs deep research on the
// resolved page and caches the annotation. Typed failures are not retried.
func EnrichmentWorkflow(ctx workflow.Context, input EnrichmentInput) (EnrichmentOutput, error) {
	logger := workflow.GetLogger(ctx)
	retry := &temporal.RetryPolicy{
		InitialInterval:        time.Second,
		BackoffCoefficient:     2,
		MaximumAttempts:        3,
		NonRetryableErrorTypes: nonRetryableTypes,
	}

	resolveCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         retry,
	})
	var resolved ResolveOutput
	if err := workflow.ExecuteActivity(resolveCtx, ResolveWebsiteActivity, ResolveInput{Website: input.Website}).Get(ctx, &resolved); err != nil {
		logger.Warn("website resolution failed", "website", input.Website, "error", err)
		return EnrichmentOutput{}, err
	}

	researchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         retry,
	})
	var research DeepResearchOutput
	if err := workflow.ExecuteActivity(researchCtx, RunDeepResearchActivity, DeepResearchInput{
		Website: input.Website,
		URL:     resolved.URL,
	}).Get(ctx, &research); err != nil {
		logger.Warn("deep research failed", "website", input.Website, "url", resolved.URL, "error", err)
		return EnrichmentOutput{}, err
	}

	saveCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         retry,
	})
	if err := workflow.ExecuteActivity(saveCtx, SaveEnrichmentActivity, SaveInput{
		Key:    input.Website,
		Output: research.Output,
		URL:    resolved.URL,
	}).Get(ctx, nil); err != nil {
		// The annotation is still returned; the API persists it again.
		logger.Error("failed to cache enrichment", "website", input.Website, "error", err)
	}

	return EnrichmentOutput{Output: research.Output, URL: resolved.URL}, nil
}
