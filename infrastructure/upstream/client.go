package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "ebird-proxy/pkg/errors"

	"go.uber.org/zap"
)

// tokenHeader carries the eBird API credential. The credential comes from
// server configuration only, never from the inbound request.
const tokenHeader = "X-eBirdApiToken"

// maxBodyBytes bounds how much of an upstream response is read
const maxBodyBytes = 10 << 20

// Client fetches payloads from the eBird API. It performs exactly one
// attempt per call; retry policy, if any, belongs to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a fetcher for the given base URL and credential with a
// bounded per-request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch performs a GET for the validated, decoded path and returns the raw
// JSON payload. A timeout surfaces as an unavailable upstream.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set(tokenHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Upstream request failed",
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, apperrors.NewUpstreamUnavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable(fmt.Errorf("read body: %w", err))
	}

	c.logger.Debug("Upstream response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Preserved for diagnostic forwarding; never cached.
		return nil, apperrors.NewUpstreamError(resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, apperrors.NewUpstreamMalformed(fmt.Errorf("response is not valid JSON"))
	}

	return body, nil
}
