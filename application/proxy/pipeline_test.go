package proxy

import (
	"context"
	"testing"
	"time"

	"ebird-proxy/application/ports"
	"ebird-proxy/domain/policy"
	apperrors "ebird-proxy/pkg/errors"
	"ebird-proxy/pkg/observability"
	"ebird-proxy/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCache struct {
	entries map[string]ports.CachedPayload
	puts    map[string]time.Duration
	sweeps  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string]ports.CachedPayload),
		puts:    make(map[string]time.Duration),
	}
}

func (c *fakeCache) Get(key string) (ports.CachedPayload, bool) {
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *fakeCache) Put(key string, payload []byte, ttl time.Duration) {
	c.entries[key] = ports.CachedPayload{Payload: payload, ExpiresAt: time.Now().Add(ttl)}
	c.puts[key] = ttl
}

func (c *fakeCache) Sweep() { c.sweeps++ }

type fakeLimiter struct {
	decision ratelimit.Decision
	keys     []string
	sweeps   int
}

func (l *fakeLimiter) Admit(clientKey string) ratelimit.Decision {
	l.keys = append(l.keys, clientKey)
	return l.decision
}

func (l *fakeLimiter) Sweep() { l.sweeps++ }

type fakeFetcher struct {
	payload []byte
	err     error
	paths   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	f.paths = append(f.paths, path)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func allowedDecision() ratelimit.Decision {
	return ratelimit.Decision{Allowed: true, Limit: 100, Remaining: 99, ResetAt: time.Now().Add(time.Minute)}
}

func newTestPipeline(cache *fakeCache, limiter *fakeLimiter, fetcher *fakeFetcher, hasCredential bool) *Pipeline {
	p := NewPipeline(
		policy.NewAllowlist(nil),
		policy.NewTTLPolicy(nil, 0),
		cache,
		limiter,
		fetcher,
		hasCredential,
		0, // sweeps are opted into per test
		observability.NewMetrics(prometheus.NewRegistry()),
		zap.NewNop(),
	)
	return p
}

func TestPipeline_MissingEndpoint(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := newTestPipeline(newFakeCache(), &fakeLimiter{decision: allowedDecision()}, fetcher, true)

	_, err := p.Handle(context.Background(), "", "1.2.3.4")

	assert.True(t, apperrors.IsKind(err, apperrors.KindMissingParameter))
	assert.Empty(t, fetcher.paths)
}

func TestPipeline_PathNotAllowed_NeverContactsUpstream(t *testing.T) {
	fetcher := &fakeFetcher{payload: []byte(`[]`)}
	limiter := &fakeLimiter{decision: allowedDecision()}
	p := newTestPipeline(newFakeCache(), limiter, fetcher, true)

	_, err := p.Handle(context.Background(), "/unsafe/path", "1.2.3.4")

	assert.True(t, apperrors.IsKind(err, apperrors.KindPathNotAllowed))
	assert.Empty(t, fetcher.paths)
	assert.Empty(t, limiter.keys, "allowlist check precedes rate limiting")
}

func TestPipeline_RateLimited(t *testing.T) {
	fetcher := &fakeFetcher{payload: []byte(`[]`)}
	limiter := &fakeLimiter{decision: ratelimit.Decision{
		Allowed:   false,
		Limit:     100,
		Remaining: 0,
		ResetAt:   time.Now().Add(30 * time.Second),
	}}
	p := newTestPipeline(newFakeCache(), limiter, fetcher, true)

	_, err := p.Handle(context.Background(), "/data/obs/US-MA/recent", "1.2.3.4")

	require.True(t, apperrors.IsKind(err, apperrors.KindRateLimited))
	assert.Empty(t, fetcher.paths)

	pe := apperrors.GetProxyError(err)
	retryAfter, ok := pe.Details["retryAfter"].(int)
	require.True(t, ok)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)
}

func TestPipeline_MissingCredential(t *testing.T) {
	fetcher := &fakeFetcher{payload: []byte(`[]`)}
	p := newTestPipeline(newFakeCache(), &fakeLimiter{decision: allowedDecision()}, fetcher, false)

	_, err := p.Handle(context.Background(), "/data/obs/US-MA/recent", "1.2.3.4")

	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
	assert.Empty(t, fetcher.paths)
}

func TestPipeline_CacheMissFetchesAndStores(t *testing.T) {
	cache := newFakeCache()
	fetcher := &fakeFetcher{payload: []byte(`[{"speciesCode":"amecro"}]`)}
	p := newTestPipeline(cache, &fakeLimiter{decision: allowedDecision()}, fetcher, true)

	result, err := p.Handle(context.Background(), "%2Fdata%2Fobs%2FUS-MA%2Frecent", "1.2.3.4")
	require.NoError(t, err)

	assert.Equal(t, CacheMiss, result.Cache)
	assert.Equal(t, []byte(`[{"speciesCode":"amecro"}]`), result.Payload)
	assert.Equal(t, 5*time.Minute, result.TTL, "observation data gets the 5-minute TTL class")
	assert.Equal(t, []string{"/data/obs/US-MA/recent"}, fetcher.paths, "fetch uses the decoded path")
	assert.Equal(t, 5*time.Minute, cache.puts["/data/obs/US-MA/recent"])
}

func TestPipeline_CacheHitSkipsUpstream(t *testing.T) {
	cache := newFakeCache()
	cache.entries["/data/obs/US-MA/recent"] = ports.CachedPayload{
		Payload:   []byte(`["cached"]`),
		ExpiresAt: time.Now().Add(2 * time.Minute),
	}
	fetcher := &fakeFetcher{payload: []byte(`["fresh"]`)}
	p := newTestPipeline(cache, &fakeLimiter{decision: allowedDecision()}, fetcher, true)

	result, err := p.Handle(context.Background(), "/data/obs/US-MA/recent", "1.2.3.4")
	require.NoError(t, err)

	assert.Equal(t, CacheHit, result.Cache)
	assert.Equal(t, []byte(`["cached"]`), result.Payload)
	assert.Empty(t, fetcher.paths)

	// Downstream caching window is the remaining lifetime, not the full TTL.
	assert.InDelta(t, (2 * time.Minute).Seconds(), result.TTL.Seconds(), 1)
}

func TestPipeline_UpstreamErrorNotCached(t *testing.T) {
	cache := newFakeCache()
	fetcher := &fakeFetcher{err: apperrors.NewUpstreamError(404, []byte(`{"errors":[]}`))}
	p := newTestPipeline(cache, &fakeLimiter{decision: allowedDecision()}, fetcher, true)

	_, err := p.Handle(context.Background(), "/data/obs/XX-XX/recent", "1.2.3.4")
	require.True(t, apperrors.IsKind(err, apperrors.KindUpstreamError))
	assert.Empty(t, cache.puts)

	// A subsequent identical request hits upstream again.
	_, err = p.Handle(context.Background(), "/data/obs/XX-XX/recent", "1.2.3.4")
	require.Error(t, err)
	assert.Len(t, fetcher.paths, 2)
}

func TestPipeline_ProbabilisticSweep(t *testing.T) {
	cache := newFakeCache()
	limiter := &fakeLimiter{decision: allowedDecision()}
	fetcher := &fakeFetcher{payload: []byte(`[]`)}

	p := newTestPipeline(cache, limiter, fetcher, true)
	p.sweepProbability = 1
	p.random = func() float64 { return 0 }

	_, err := p.Handle(context.Background(), "/data/obs/US-MA/recent", "1.2.3.4")
	require.NoError(t, err)

	assert.Equal(t, 1, cache.sweeps)
	assert.Equal(t, 1, limiter.sweeps)

	// With zero probability nothing sweeps.
	p.sweepProbability = 0
	p.random = func() float64 { return 0.5 }
	_, err = p.Handle(context.Background(), "/data/obs/CR/recent", "1.2.3.4")
	require.NoError(t, err)

	assert.Equal(t, 1, cache.sweeps)
	assert.Equal(t, 1, limiter.sweeps)
}
