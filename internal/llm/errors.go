package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured reports a remote provider without credentials or model.
var ErrNotConfigured = errors.New("LLM provider not configured")

type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported LLM provider: %s", e.Provider)
}

// StatusError is returned when the completion endpoint answers with an HTTP
// error status.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM request failed: %s", e.Status)
}
