package research

import "fmt"

// InvalidKeywordSetError rejects an adjusted re-run whose keyword set is
// empty once blank entries are dropped.
type InvalidKeywordSetError struct{}

func (InvalidKeywordSetError) Error() string {
	return "provide at least one valid keyword"
}

// GenerationError reports that keyword generation failed or produced nothing
// usable.
type GenerationError struct {
	Topic  string
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("keyword generation failed for %q", e.Topic)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// SourceError is a directory failure that no other keyword could recover
// from, such as missing or rejected credentials. It aborts the run.
type SourceError struct {
	Keyword    string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	msg := "product directory rejected the request"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Keyword != "" {
		msg += fmt.Sprintf(" for keyword %q", e.Keyword)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error { return e.Err }
