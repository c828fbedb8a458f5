package workflows

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/Keyring-Network/prodscout/internal/enrichment"
)

const (
	ErrTypeSiteUnavailable = "SiteUnavailable"
	ErrTypeEnrichmentFetch = "EnrichmentFetch"
	ErrTypeNotConfigured   = "NotConfigured"
)

var nonRetryableTypes = []string{ErrTypeSiteUnavailable, ErrTypeEnrichmentFetch, ErrTypeNotConfigured}

// failureDetails travels with a typed application error so the caller can
// rebuild the enrichment error on its side of the workflow.
type failureDetails struct {
	URL        string
	StatusCode int
	Message    string
}

// toApplicationError converts enrichment errors into non-retryable
// application errors. Anything else is returned as is and retried.
func toApplicationError(err error) error {
	if err == nil {
		return nil
	}
	var unavailable *enrichment.SiteUnavailableError
	var fetchErr *enrichment.EnrichmentFetchError
	switch {
	case errors.As(err, &unavailable):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSiteUnavailable, err, failureDetails{
			URL:        unavailable.URL,
			StatusCode: unavailable.StatusCode,
			Message:    enrichment.SiteUnavailableMessage,
		})
	case errors.As(err, &fetchErr):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeEnrichmentFetch, err, failureDetails{
			URL:     fetchErr.URL,
			Message: fetchErr.Message,
		})
	case errors.Is(err, enrichment.ErrNotConfigured):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNotConfigured, err)
	default:
		return err
	}
}

// fromWorkflowError maps a failed workflow back to the enrichment error the
// activity raised. Untyped failures are returned unchanged.
func fromWorkflowError(website string, err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	var details failureDetails
	if appErr.HasDetails() {
		if detailErr := appErr.Details(&details); detailErr != nil {
			details = failureDetails{}
		}
	}
	if details.URL == "" {
		details.URL = website
	}
	switch appErr.Type() {
	case ErrTypeSiteUnavailable:
		return &enrichment.SiteUnavailableError{URL: details.URL, StatusCode: details.StatusCode}
	case ErrTypeEnrichmentFetch:
		message := details.Message
		if message == "" {
			message = enrichment.UnscrapableMessage
		}
		return &enrichment.EnrichmentFetchError{URL: details.URL, Message: message}
	case ErrTypeNotConfigured:
		return enrichment.ErrNotConfigured
	default:
		return err
	}
}
