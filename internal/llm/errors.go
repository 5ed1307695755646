package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks a failed call that may succeed when repeated:
	// network errors, throttling and server-side failures.
	ErrTransport = errors.New("model transport failure")

	// ErrRejected marks a call the provider refused permanently, such as an
	// invalid request or bad credentials.
	ErrRejected = errors.New("model request rejected")

	// ErrEmptyResponse is returned when a call succeeds but yields no text.
	ErrEmptyResponse = errors.New("model returned no text")

	// ErrMalformedOutput is returned when model output cannot be parsed into
	// the required structure. It is never retried.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrUnsupportedModel is returned for an unknown model name.
	ErrUnsupportedModel = errors.New("unsupported model name")

	// ErrMissingAPIKey is returned when a backend is built without credentials.
	ErrMissingAPIKey = errors.New("missing model API key")
)

// ModelError describes a failed model invocation.
type ModelError struct {
	// Op is the operation that failed.
	Op string

	// Backend is the model name the call was routed to.
	Backend string

	// Err is the underlying error.
	Err error

	// Retryable is true when the same call may succeed later.
	Retryable bool
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("llm: %s via %s failed: %v", e.Op, e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a retryable failure.
func NewTransportError(op, backend string, err error) *ModelError {
	return &ModelError{Op: op, Backend: backend, Err: fmt.Errorf("%w: %v", ErrTransport, err), Retryable: true}
}

// NewRejectedError wraps a permanent failure.
func NewRejectedError(op, backend string, err error) *ModelError {
	return &ModelError{Op: op, Backend: backend, Err: fmt.Errorf("%w: %v", ErrRejected, err)}
}

// IsRetryable reports whether err is a transient model failure.
func IsRetryable(err error) bool {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return errors.Is(err, ErrTransport)
}

// MalformedOutput wraps a parse failure of model output.
func MalformedOutput(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrMalformedOutput)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrMalformedOutput, err)
}

// retryableStatus reports whether an HTTP status is worth retrying.
func retryableStatus(code int) bool {
	return code == 408 || code == 409 || code == 429 || code >= 500
}
