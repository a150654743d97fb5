package completion

import (
	"errors"
	"fmt"
)

// Validation errors surfaced before any network call is attempted.
var (
	// ErrInvalidPromptShape reports a prompt that is neither a string, a
	// key/value object, nor an array of prompts.
	ErrInvalidPromptShape = errors.New("completion: prompt must be a string, an object, or an array")

	// ErrInvalidBatchSize reports a non-positive batch size.
	ErrInvalidBatchSize = errors.New("completion: batch size must be positive")
)

// FailureKind classifies a non-success response from the completion
// endpoint so the retry loop can pick a recovery strategy without sniffing
// message strings itself.
type FailureKind int

const (
	// FailureOther covers failures with no dedicated recovery strategy.
	// They are treated as transient and retried after a pause.
	FailureOther FailureKind = iota

	// FailureRateLimited marks an HTTP 429 from the service.
	FailureRateLimited

	// FailureContextLength marks a rejection because the prompt plus the
	// requested completion exceeds the model's context window.
	FailureContextLength
)

// String returns the kind as a short lowercase label for log fields.
func (k FailureKind) String() string {
	switch k {
	case FailureRateLimited:
		return "rate_limited"
	case FailureContextLength:
		return "context_length"
	default:
		return "other"
	}
}

// APIError is a non-success status returned by the completion endpoint,
// carrying the service-provided message and its classification.
type APIError struct {
	StatusCode int
	Message    string
	Kind       FailureKind
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion: api error (status %d, %s): %s", e.StatusCode, e.Kind, e.Message)
}

// TransportError reports a response the client could not interpret: a 200
// whose body does not decode, or one missing the "choices" array. Retrying
// cannot repair a malformed response, so it fails the whole call.
type TransportError struct {
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion: bad response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("completion: bad response: %s", e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RetryBudgetExceededError reports that a batch exhausted its retry
// policy: the attempt limit was reached, or context-length shrinking hit
// the token floor.
type RetryBudgetExceededError struct {
	Batch    int   // Zero-based index of the batch that gave up.
	Attempts int   // Attempts made before giving up.
	Err      error // Last failure observed for the batch.
}

func (e *RetryBudgetExceededError) Error() string {
	return fmt.Sprintf("completion: batch %d gave up after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *RetryBudgetExceededError) Unwrap() error { return e.Err }
