package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"

	"github.com/Keyring-Network/prodscout/internal/enrichment"
)

func matchOptions(taskQueue string) any {
	return mock.MatchedBy(func(opts client.StartWorkflowOptions) bool {
		return strings.HasPrefix(opts.ID, "enrichment:") && opts.TaskQueue == taskQueue
	})
}

func TestNewService_DefaultTaskQueue(t *testing.T) {
	service := NewService(mocks.NewClient(t), "")
	require.Equal(t, DefaultTaskQueue, service.taskQueue)
}

func TestFetch_Success(t *testing.T) {
	mockClient := mocks.NewClient(t)
	workflowRun := mocks.NewWorkflowRun(t)
	taskQueue := "prodscout-enrichment-test"

	mockClient.On("ExecuteWorkflow", mock.Anything, matchOptions(taskQueue), mock.Anything, EnrichmentInput{Website: "https://acme.io"}).
		Return(workflowRun, nil)
	workflowRun.On("Get", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(1).(*EnrichmentOutput)
			*out = EnrichmentOutput{Output: "Acme builds anvils.", URL: "https://www.acme.io/"}
		}).
		Return(nil)

	service := NewService(mockClient, taskQueue)
	result, err := service.Fetch(context.Background(), "  https://acme.io ")
	require.NoError(t, err)
	require.Equal(t, enrichment.Result{Output: "Acme builds anvils.", URL: "https://www.acme.io/"}, result)
}

func TestFetch_StartError(t *testing.T) {
	mockClient := mocks.NewClient(t)
	expectedErr := errors.New("start failed")

	mockClient.On("ExecuteWorkflow", mock.Anything, matchOptions(DefaultTaskQueue), mock.Anything, EnrichmentInput{Website: "https://acme.io"}).
		Return((*mocks.WorkflowRun)(nil), expectedErr)

	service := NewService(mockClient, "")
	_, err := service.Fetch(context.Background(), "https://acme.io")
	require.ErrorIs(t, err, expectedErr)
}

func TestFetch_MapsSiteUnavailable(t *testing.T) {
	mockClient := mocks.NewClient(t)
	workflowRun := mocks.NewWorkflowRun(t)

	mockClient.On("ExecuteWorkflow", mock.Anything, matchOptions(DefaultTaskQueue), mock.Anything, EnrichmentInput{Website: "https://down.example"}).
		Return(workflowRun, nil)
	workflowRun.On("Get", mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("unavailable", ErrTypeSiteUnavailable, nil,
			failureDetails{URL: "https://down.example", StatusCode: 404}))

	service := NewService(mockClient, "")
	_, err := service.Fetch(context.Background(), "https://down.example")

	var unavailable *enrichment.SiteUnavailableError
	require.True(t, errors.As(err, &unavailable))
	require.Equal(t, 404, unavailable.StatusCode)
	require.Contains(t, err.Error(), enrichment.SiteUnavailableMessage)
}

func TestFetch_MapsFetchError(t *testing.T) {
	mockClient := mocks.NewClient(t)
	workflowRun := mocks.NewWorkflowRun(t)

	mockClient.On("ExecuteWorkflow", mock.Anything, matchOptions(DefaultTaskQueue), mock.Anything, EnrichmentInput{Website: "https://spa.example"}).
		Return(workflowRun, nil)
	workflowRun.On("Get", mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("unscrapable", ErrTypeEnrichmentFetch, nil,
			failureDetails{URL: "https://spa.example", Message: enrichment.UnscrapableMessage}))

	service := NewService(mockClient, "")
	_, err := service.Fetch(context.Background(), "https://spa.example")

	var fetchErr *enrichment.EnrichmentFetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, enrichment.UnscrapableMessage, fetchErr.Message)
}
