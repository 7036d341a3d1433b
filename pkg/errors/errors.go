package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies every failure the proxy can produce
type Kind string

const (
	// Client-caused errors
	KindMethodNotAllowed Kind = "METHOD_NOT_ALLOWED"
	KindMissingParameter Kind = "MISSING_PARAMETER"
	KindInvalidEncoding  Kind = "INVALID_ENCODING"
	KindPathNotAllowed   Kind = "PATH_NOT_ALLOWED"
	KindRateLimited      Kind = "RATE_LIMITED"

	// Operator-caused errors
	KindConfiguration Kind = "CONFIGURATION"

	// Upstream errors
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindUpstreamError       Kind = "UPSTREAM_ERROR"
	KindUpstreamMalformed   Kind = "UPSTREAM_MALFORMED"
)

// ProxyError is the single error type crossing component boundaries
type ProxyError struct {
	Kind       Kind                   `json:"kind"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`

	// Set only for KindUpstreamError; the original upstream response is
	// forwarded verbatim instead of being remapped.
	UpstreamStatus int    `json:"-"`
	UpstreamBody   []byte `json:"-"`
}

// Error implements the error interface
func (e *ProxyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *ProxyError) Unwrap() error {
	return e.Cause
}

// WithDetails adds detail fields for the JSON error body
func (e *ProxyError) WithDetails(details map[string]interface{}) *ProxyError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *ProxyError) WithCause(err error) *ProxyError {
	e.Cause = err
	return e
}

// Constructor functions for the proxy error taxonomy

// NewMethodNotAllowed creates an error for non-GET requests
func NewMethodNotAllowed(method string) *ProxyError {
	return &ProxyError{
		Kind:       KindMethodNotAllowed,
		Message:    fmt.Sprintf("method %s is not allowed, use GET", method),
		HTTPStatus: http.StatusMethodNotAllowed,
	}
}

// NewMissingParameter creates an error for a missing required query parameter
func NewMissingParameter(param string) *ProxyError {
	return &ProxyError{
		Kind:       KindMissingParameter,
		Message:    fmt.Sprintf("required query parameter '%s' is missing", param),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidEncoding creates an error for a malformed percent-encoded endpoint
func NewInvalidEncoding(err error) *ProxyError {
	return &ProxyError{
		Kind:       KindInvalidEncoding,
		Message:    "endpoint parameter is not valid percent-encoding",
		Cause:      err,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewPathNotAllowed creates an error for an endpoint outside the allowlist.
// The permitted prefixes are included so callers can self-correct.
func NewPathNotAllowed(path string, allowed []string) *ProxyError {
	return &ProxyError{
		Kind:       KindPathNotAllowed,
		Message:    fmt.Sprintf("path '%s' is not allowed", path),
		HTTPStatus: http.StatusForbidden,
		Details: map[string]interface{}{
			"allowedPrefixes": allowed,
		},
	}
}

// NewRateLimited creates an error for a client over its request budget
func NewRateLimited(limit, remaining int, resetAt time.Time, retryAfter time.Duration) *ProxyError {
	return &ProxyError{
		Kind:       KindRateLimited,
		Message:    "rate limit exceeded",
		HTTPStatus: http.StatusTooManyRequests,
		Details: map[string]interface{}{
			"limit":      limit,
			"remaining":  remaining,
			"reset":      resetAt.Unix(),
			"retryAfter": int(retryAfter.Seconds()),
		},
	}
}

// NewConfigurationError creates an error for a deployment fault such as a
// missing upstream credential. Requires operator action, not client retry.
func NewConfigurationError(message string) *ProxyError {
	return &ProxyError{
		Kind:       KindConfiguration,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewUpstreamUnavailable creates an error for a transport-level upstream
// failure where no HTTP status was obtained
func NewUpstreamUnavailable(err error) *ProxyError {
	return &ProxyError{
		Kind:       KindUpstreamUnavailable,
		Message:    "upstream request failed",
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewUpstreamError creates an error carrying a non-success upstream response.
// Status and body are forwarded to the caller unmodified and never cached.
func NewUpstreamError(status int, body []byte) *ProxyError {
	return &ProxyError{
		Kind:           KindUpstreamError,
		Message:        fmt.Sprintf("upstream returned status %d", status),
		HTTPStatus:     status,
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

// NewUpstreamMalformed creates an error for a success response whose body
// could not be parsed as JSON
func NewUpstreamMalformed(err error) *ProxyError {
	return &ProxyError{
		Kind:       KindUpstreamMalformed,
		Message:    "upstream returned a malformed response",
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Helper functions

// GetProxyError extracts a ProxyError from an error chain
func GetProxyError(err error) *ProxyError {
	var pe *ProxyError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}

// IsKind checks if an error is of a specific kind
func IsKind(err error, kind Kind) bool {
	pe := GetProxyError(err)
	return pe != nil && pe.Kind == kind
}

// IsClientFault reports whether the error was caused by the client rather
// than the operator or the upstream
func IsClientFault(err error) bool {
	pe := GetProxyError(err)
	if pe == nil {
		return false
	}
	switch pe.Kind {
	case KindMethodNotAllowed, KindMissingParameter, KindInvalidEncoding, KindPathNotAllowed, KindRateLimited:
		return true
	}
	return false
}
