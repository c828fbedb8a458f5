package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/Keyring-Network/prodscout/internal/enrichment"
	"github.com/Keyring-Network/prodscout/internal/metrics"
)

const DefaultTaskQueue = "prodscout-enrichment"

// Service starts enrichment workflows and waits for their result.
type Service struct {
	client    client.Client
	taskQueue string
}

func NewService(client client.Client, taskQueue string) *Service {
	if taskQueue == "" {
		taskQueue = DefaultTaskQueue
	}
	return &Service{client: client, taskQueue: taskQueue}
}

func (s *Service) Fetch(ctx context.Context, website string) (enrichment.Result, error) {
	website = strings.TrimSpace(website)
	options := client.StartWorkflowOptions{
		ID:        workflowID(uuid.NewString()),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, options, EnrichmentWorkflow, EnrichmentInput{Website: website})
	if err != nil {
		metrics.EnrichmentFetchesTotal.WithLabelValues("error").Inc()
		return enrichment.Result{}, fmt.Errorf("start enrichment workflow: %w", err)
	}

	var out EnrichmentOutput
	if err := run.Get(ctx, &out); err != nil {
		mapped := fromWorkflowError(website, err)
		metrics.EnrichmentFetchesTotal.WithLabelValues(enrichment.OutcomeLabel(mapped)).Inc()
		return enrichment.Result{}, mapped
	}
	metrics.EnrichmentFetchesTotal.WithLabelValues("success").Inc()
	return enrichment.Result{Output: out.Output, URL: out.URL}, nil
}

func workflowID(id string) string {
	return fmt.Sprintf("enrichment:%s", id)
}
