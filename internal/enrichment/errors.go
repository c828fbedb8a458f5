package enrichment

import (
	"errors"
	"fmt"
)

const (
	SiteUnavailableMessage = "site may be unavailable"
	UnscrapableMessage     = "this page may not be scrapable, please visit it manually"
)

// ErrNotConfigured is returned when the deep-research workflow credentials
// are missing.
var ErrNotConfigured = errors.New("deep research is not configured: set COZE_API_KEY and COZE_WORKFLOW_ID")

// SiteUnavailableError means the website could not be resolved: an HTTP error
// status, a timeout, too many redirects or an unusable URL.
type SiteUnavailableError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *SiteUnavailableError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s returned HTTP %d", SiteUnavailableMessage, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", SiteUnavailableMessage, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s: %s", SiteUnavailableMessage, e.URL)
	}
}

func (e *SiteUnavailableError) Unwrap() error { return e.Err }

// EnrichmentFetchError means the deep-research workflow ran but produced no
// usable annotation. Message is safe to show to end users.
type EnrichmentFetchError struct {
	URL     string
	Message string
	Err     error
}

func (e *EnrichmentFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EnrichmentFetchError) Unwrap() error { return e.Err }
