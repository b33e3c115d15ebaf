package catalog

import (
	"errors"
	"fmt"
)

// Error kinds returned by the catalog client. Use errors.Is to test for them.
var (
	// ErrInvalidInput is a client-side pre-check failure; no request was sent.
	ErrInvalidInput = errors.New("invalid input")
	// ErrValidationFailed means the backend rejected a submission.
	ErrValidationFailed = errors.New("validation failed")
	// ErrBackendUnavailable means the backend could not be reached after retrying.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNotFound means the requested preprint does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the admin key was missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBackendError is any other non-success response.
	ErrBackendError = errors.New("backend error")
)

// UnavailableMessage is shown when list retries are exhausted. It must never
// read like an empty result.
const UnavailableMessage = "The preprint service is not responding. It may still be starting up, please try again in a moment."

// APIError carries a user-facing message alongside its kind and HTTP status.
type APIError struct {
	Kind    error
	Status  int
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *APIError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newAPIError(kind error, status int, message string, cause error) *APIError {
	return &APIError{Kind: kind, Status: status, Message: message, Cause: cause}
}

// statusError is the retryable failure produced by a non-2xx read.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Body)
}

// Message extracts the user-facing text of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
