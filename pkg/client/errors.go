package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrRenewalFailed matches every error produced by a failed credential renewal
	ErrRenewalFailed = errors.New("credential renewal failed")

	// ErrRetryExhausted matches a request that was rejected as expired again
	// after it had already been replayed with a renewed credential
	ErrRetryExhausted = errors.New("request rejected after credential renewal")

	// ErrMalformedRenewal is returned when the refresh endpoint answers 2xx
	// with a body that does not carry a new access credential
	ErrMalformedRenewal = errors.New("malformed renewal response")
)

// errorBody is the error envelope returned by the backend
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusError is returned for every non-2xx response.
// It carries the status code and the raw response body.
type StatusError struct {
	Code   int
	Method string
	URL    string
	Body   []byte
	err    error
}

// NewStatusError builds a StatusError, using the backend's error message when
// the body is a JSON error envelope and the status text otherwise
func NewStatusError(code int, method, url string, body []byte) *StatusError {
	e := errors.New(http.StatusText(code))

	if len(body) > 0 {
		var r errorBody
		if err := json.Unmarshal(body, &r); err == nil {
			switch {
			case r.Error != "":
				e = errors.New(r.Error)
			case r.Message != "":
				e = errors.New(r.Message)
			}
		}
	}

	return &StatusError{
		Code:   code,
		Method: method,
		URL:    url,
		Body:   body,
		err:    e,
	}
}

func (e *StatusError) Error() string {
	return errors.Wrap(e.err, fmt.Sprintf("%s %s: server returned status %d", e.Method, e.URL, e.Code)).Error()
}

// StatusCode returns the HTTP status code
func (e *StatusError) StatusCode() int {
	return e.Code
}

// ExtractStatusCode returns the status code of the first StatusError in err's chain
func ExtractStatusCode(err error) (int, bool) {
	var se *StatusError
	if !errors.As(err, &se) {
		return 0, false
	}
	return se.Code, true
}

// IsExpiredCredential reports whether err is the backend's expired credential signal
func IsExpiredCredential(err error) bool {
	code, ok := ExtractStatusCode(err)
	return ok && code == http.StatusUnauthorized
}

// RenewalError is delivered to the triggering request and to every request
// queued behind the same renewal attempt
type RenewalError struct {
	Err error
}

func (e *RenewalError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRenewalFailed, e.Err)
}

func (e *RenewalError) Unwrap() error {
	return e.Err
}

// Is matches ErrRenewalFailed
func (e *RenewalError) Is(target error) bool {
	return target == ErrRenewalFailed
}

// RetryExhaustedError wraps the second expired credential response of a
// request that had already been replayed once
type RetryExhaustedError struct {
	Err error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRetryExhausted, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Is matches ErrRetryExhausted
func (e *RetryExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}
