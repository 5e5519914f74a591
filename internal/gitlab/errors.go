package gitlab

import (
	"context"
	"errors"
	"fmt"
)

// InvalidRequestError marks input that fails validation before any network
// call (malformed MR URL, missing token, non-reviewable MR state).
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string { return e.Message }

// AuthError is returned for 401/403 responses. It deliberately carries no
// response body so token material can never leak into logs or API responses.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gitlab authentication failed (status %d): check GITLAB_TOKEN and its API scope", e.Status)
}

// NotFoundError is returned for 404 responses.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("gitlab resource not found: %s", e.Resource)
}

// RateLimitError is returned after retries for 429 responses are exhausted.
type RateLimitError struct{}

func (e *RateLimitError) Error() string { return "gitlab rate limit exceeded" }

// PositionError is returned when GitLab rejects a positioned line comment,
// typically because the line is not part of the diff context.
type PositionError struct {
	Path    string
	Line    int
	Message string
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("gitlab rejected comment position %s:%d: %s", e.Path, e.Line, e.Message)
}

// APIError covers any other non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gitlab API error (status %d): %s", e.Status, e.Message)
}

// TransportError wraps a network-level failure (DNS, connect, TLS, read)
// so the retry policy and the HTTP layer can distinguish it from API
// rejections.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "gitlab request failed: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// isTransient reports whether an error is worth retrying: rate limits,
// 5xx responses, and network failures. Context cancellation and all
// 4xx responses are terminal.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	var te *TransportError
	return errors.As(err, &te)
}
