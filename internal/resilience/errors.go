// Package resilience classifies endpoint failures and provides the
// cancellable waits used between attempts.
package resilience

import (
	"errors"
	"net/http"
)

// TransientError marks a failure where the endpoint produced no usable
// response, so the same request may succeed on a later attempt.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient. statusCode is 0 when no
// response was received.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsTransient reports whether err's chain contains a TransientError.
// Anything else, such as a payload that cannot be encoded, fails the same
// way on every attempt.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRetryableStatus reports whether an endpoint status should be treated
// like a missing response: every 5xx. Anything below 500 is an answer, even
// when it is not a success.
func IsRetryableStatus(statusCode int) bool {
	return statusCode >= http.StatusInternalServerError
}
