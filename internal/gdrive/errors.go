// Package gdrive provides an HTTP client for the Google Drive v2 REST API
// with automatic retry, error classification, chunked range downloads, and
// push notification channel plumbing.
package gdrive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, gdrive.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("gdrive: bad request")
	ErrUnauthorized = errors.New("gdrive: unauthorized")
	ErrForbidden    = errors.New("gdrive: forbidden")
	ErrNotFound     = errors.New("gdrive: not found")
	ErrConflict     = errors.New("gdrive: conflict")
	ErrThrottled    = errors.New("gdrive: throttled")
	ErrServerError  = errors.New("gdrive: server error")
)

// APIError wraps a sentinel error with the HTTP status code and the reason
// and message Google returns in the error body.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gdrive: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("gdrive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorEnvelope mirrors Google's JSON error body.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// newAPIError builds an APIError from a status code and raw body. Bodies that
// are not Google error JSON are kept verbatim as the message.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: string(body)}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		if len(env.Error.Errors) > 0 {
			apiErr.Reason = env.Error.Errors[0].Reason
		}
	}

	apiErr.Err = classify(status, apiErr.Reason)

	return apiErr
}

// rateLimitReasons are the 403 reasons Drive uses for throttling.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// classify maps an HTTP status code (and, for 403, the error reason) to a
// sentinel error. Returns nil for codes without a sentinel.
func classify(code int, reason string) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		if rateLimitReasons[reason] {
			return ErrThrottled
		}

		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether a failed response should be retried.
// Drive signals throttling with 403 + rateLimitExceeded as well as 429.
func isRetryable(code int, reason string) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		return rateLimitReasons[reason]
	default:
		return false
	}
}
