package docparse

import (
	"fmt"
	"time"
)

// ErrInvalidResultType indicates an unsupported result format was requested.
// Rejected before any network call is made.
type ErrInvalidResultType struct {
	ResultType string
}

func (e *ErrInvalidResultType) Error() string {
	return fmt.Sprintf("invalid result type %q: must be one of markdown, text, json", e.ResultType)
}

// ErrMissingJobID indicates the provider's upload response carried no job
// identifier under any of the accepted field names.
type ErrMissingJobID struct{}

func (e *ErrMissingJobID) Error() string {
	return "provider response contained no job id"
}

// ProviderError indicates the parsing provider reported a failure: a
// non-success HTTP status, an explicit failed job status, or an error field
// in a response. The provider's message is passed through to the caller.
type ProviderError struct {
	Operation  string // upload, status, result
	StatusCode int    // 0 when the failure was reported in a 200 body
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("parse provider %s failed: HTTP %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("parse provider %s failed: %s", e.Operation, e.Message)
}

// TimeoutError indicates the polling budget was exhausted without the job
// reaching a terminal state. Distinguishable from ProviderError so callers
// can decide whether to retry the whole operation.
type TimeoutError struct {
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("parse job did not complete after %d polls (~%s)", e.Attempts, e.Elapsed)
}
