package handlers

import (
	"fmt"
	"net/http"

	"ebird-proxy/application/proxy"
	"ebird-proxy/pkg/common"
	apperrors "ebird-proxy/pkg/errors"
	"ebird-proxy/pkg/ratelimit"

	"go.uber.org/zap"
)

// ProxyHandler translates HTTP requests into pipeline invocations
type ProxyHandler struct {
	pipeline *proxy.Pipeline
	errors   *apperrors.HTTPHandler
	logger   *zap.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(pipeline *proxy.Pipeline, errorHandler *apperrors.HTTPHandler, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		pipeline: pipeline,
		errors:   errorHandler,
		logger:   logger,
	}
}

// Proxy handles GET /api/proxy?endpoint=<percent-encoded upstream path>
func (h *ProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	// The raw value is taken before Go's query decoding so that a malformed
	// percent-encoding is reported as such rather than as a missing param.
	rawEndpoint, ok := common.RawQueryParam(r.URL.RawQuery, "endpoint")
	if !ok || rawEndpoint == "" {
		h.errors.Handle(w, r, apperrors.NewMissingParameter("endpoint"))
		return
	}

	result, err := h.pipeline.Handle(r.Context(), rawEndpoint, common.ClientKey(r))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	setRateLimitHeaders(w, result.Rate)
	w.Header().Set("X-Cache", string(result.Cache))

	maxAge := int(result.TTL.Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))

	common.WriteRawJSON(w, http.StatusOK, result.Payload)
}

// setRateLimitHeaders exposes the limiter state on successful responses
func setRateLimitHeaders(w http.ResponseWriter, dec ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", dec.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", dec.Remaining))
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", dec.ResetAt.Unix()))
}
