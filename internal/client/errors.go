package client

import (
	"fmt"
)

// NetworkError reports a request that never produced a response: DNS,
// connect, timeout or an I/O failure while reading the body.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError reports a response that was received but is an application
// level failure: success:false, a schema mismatch or a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && (e.StatusCode < 200 || e.StatusCode > 299) {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// AuthError is an APIError returned by the login endpoint. Malformed is
// set when the response could not be parsed; otherwise the server
// reported success:false explicitly.
type AuthError struct {
	APIError
	Malformed bool
}

func (e *AuthError) Error() string { return e.APIError.Error() }

func (e *AuthError) Unwrap() error { return &e.APIError }

// ValidationError reports missing user input. No request is issued when
// one is returned.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
