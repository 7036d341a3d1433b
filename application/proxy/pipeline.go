package proxy

import (
	"context"
	"math/rand"
	"time"

	"ebird-proxy/application/ports"
	"ebird-proxy/domain/policy"
	apperrors "ebird-proxy/pkg/errors"
	"ebird-proxy/pkg/observability"
	"ebird-proxy/pkg/ratelimit"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheStatus marks whether a response was served from cache
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// Result is a successful pipeline outcome. TTL is the remaining entry
// lifetime on a hit and the freshly assigned lifetime on a miss, so
// downstream Cache-Control windows never outlive the proxy's own entry.
type Result struct {
	Payload []byte
	Cache   CacheStatus
	TTL     time.Duration
	Rate    ratelimit.Decision
}

// Pipeline mediates one inbound request: allowlist validation, rate
// limiting, cache lookup, upstream fetch, cache population. It owns the
// process-wide stores exclusively and receives them as dependencies.
type Pipeline struct {
	allowlist *policy.Allowlist
	ttl       *policy.TTLPolicy
	cache     ports.CacheStore
	limiter   ports.RateLimiter
	fetcher   ports.Fetcher

	hasCredential    bool
	sweepProbability float64

	metrics *observability.Metrics
	logger  *zap.Logger

	// Concurrent misses for one key are collapsed into a single upstream
	// fetch. Redundant fetches would be harmless, this just avoids them.
	flight singleflight.Group
	random func() float64
}

// NewPipeline assembles the pipeline from its collaborators
func NewPipeline(
	allowlist *policy.Allowlist,
	ttl *policy.TTLPolicy,
	cache ports.CacheStore,
	limiter ports.RateLimiter,
	fetcher ports.Fetcher,
	hasCredential bool,
	sweepProbability float64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		allowlist:        allowlist,
		ttl:              ttl,
		cache:            cache,
		limiter:          limiter,
		fetcher:          fetcher,
		hasCredential:    hasCredential,
		sweepProbability: sweepProbability,
		metrics:          metrics,
		logger:           logger,
		random:           rand.Float64,
	}
}

type fetched struct {
	payload []byte
	ttl     time.Duration
}

// Handle runs one request through the pipeline, terminal at the first
// applicable exit. rawEndpoint is the still-percent-encoded endpoint
// parameter; clientKey identifies the caller for rate limiting.
func (p *Pipeline) Handle(ctx context.Context, rawEndpoint, clientKey string) (*Result, error) {
	if rawEndpoint == "" {
		return nil, apperrors.NewMissingParameter("endpoint")
	}

	// Allowlist check precedes any upstream contact.
	path, err := p.allowlist.Validate(rawEndpoint)
	if err != nil {
		return nil, err
	}

	dec := p.limiter.Admit(clientKey)
	if !dec.Allowed {
		p.metrics.RateLimited.Inc()
		retryAfter := time.Until(dec.ResetAt)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return nil, apperrors.NewRateLimited(dec.Limit, dec.Remaining, dec.ResetAt, roundUpSeconds(retryAfter))
	}

	if !p.hasCredential {
		return nil, apperrors.NewConfigurationError("upstream API key is not configured")
	}

	if entry, ok := p.cache.Get(path); ok {
		p.metrics.CacheHits.Inc()
		return &Result{
			Payload: entry.Payload,
			Cache:   CacheHit,
			TTL:     time.Until(entry.ExpiresAt),
			Rate:    dec,
		}, nil
	}

	p.metrics.CacheMisses.Inc()

	v, err, _ := p.flight.Do(path, func() (interface{}, error) {
		payload, err := p.fetcher.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		ttl := p.ttl.TTLFor(path)
		p.cache.Put(path, payload, ttl)
		return fetched{payload: payload, ttl: ttl}, nil
	})
	if err != nil {
		p.metrics.UpstreamErrors.Inc()
		return nil, err
	}

	p.maybeSweep()

	f := v.(fetched)
	p.logger.Debug("Cached upstream payload",
		zap.String("path", path),
		zap.Duration("ttl", f.ttl),
		zap.Int("bytes", len(f.payload)),
	)

	return &Result{
		Payload: f.payload,
		Cache:   CacheMiss,
		TTL:     f.ttl,
		Rate:    dec,
	}, nil
}

// maybeSweep runs expiry sweeps on a small fraction of requests, bounding
// amortized cost without a dedicated background task. The host may be a
// short-lived invocation, so a ticker is not an option here.
func (p *Pipeline) maybeSweep() {
	if p.random() < p.sweepProbability {
		p.cache.Sweep()
		p.limiter.Sweep()
	}
}

// roundUpSeconds rounds a duration up to whole seconds, minimum one, so the
// retry hint is always positive and never overshoots the window.
func roundUpSeconds(d time.Duration) time.Duration {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
