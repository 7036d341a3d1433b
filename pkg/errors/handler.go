package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON shape of every failure response
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Kind      string                 `json:"kind,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Reference string                 `json:"reference,omitempty"`
}

// HTTPHandler converts errors at the HTTP boundary into structured JSON
// responses. No error escapes as an unstructured failure.
type HTTPHandler struct {
	logger *zap.Logger
}

// NewHTTPHandler creates a new error handler
func NewHTTPHandler(logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{logger: logger}
}

// Handle processes an error and writes the HTTP response
func (h *HTTPHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	pe := GetProxyError(err)
	if pe == nil {
		pe = NewConfigurationError("internal error").WithCause(err)
	}

	// Upstream errors pass through verbatim so callers can run their own
	// retry/backoff logic against the original status.
	if pe.Kind == KindUpstreamError {
		h.logError(r, pe)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(pe.UpstreamStatus)
		w.Write(pe.UpstreamBody)
		return
	}

	reference := uuid.New().String()
	h.logError(r, pe, zap.String("reference", reference))

	if pe.Kind == KindRateLimited {
		writeRateLimitHeaders(w, pe.Details)
	}

	status := pe.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:     pe.Message,
		Kind:      string(pe.Kind),
		Details:   pe.Details,
		Reference: reference,
	})
}

// logError logs client faults at info and everything else at error level.
// Configuration faults need operator action, not client retry.
func (h *HTTPHandler) logError(r *http.Request, pe *ProxyError, extra ...zap.Field) {
	fields := append([]zap.Field{
		zap.String("kind", string(pe.Kind)),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.Error(pe),
	}, extra...)

	switch {
	case pe.Kind == KindConfiguration:
		h.logger.Error("Operational fault", fields...)
	case IsClientFault(pe):
		h.logger.Info("Request rejected", fields...)
	default:
		h.logger.Error("Upstream failure", fields...)
	}
}

// writeRateLimitHeaders exposes the limiter state on 429 responses
func writeRateLimitHeaders(w http.ResponseWriter, details map[string]interface{}) {
	if limit, ok := details["limit"].(int); ok {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	}
	if remaining, ok := details["remaining"].(int); ok {
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	}
	if reset, ok := details["reset"].(int64); ok {
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset))
	}
	if retryAfter, ok := details["retryAfter"].(int); ok {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	}
}
