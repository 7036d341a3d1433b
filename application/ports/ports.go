package ports

import (
	"context"
	"time"

	"ebird-proxy/pkg/ratelimit"
)

// CachedPayload is a cache entry as seen by the pipeline
type CachedPayload struct {
	Payload   []byte
	ExpiresAt time.Time
}

// CacheStore maps normalized upstream paths to previously fetched payloads.
// Implementations hold at most one entry per key; Put is a whole-entry
// replacement. Losing all entries at any time is equivalent to a cold start.
type CacheStore interface {
	// Get returns the entry for key, treating an expired entry as a miss.
	Get(key string) (CachedPayload, bool)
	// Put creates or replaces the entry with expiry now+ttl.
	Put(key string, payload []byte, ttl time.Duration)
	// Sweep removes all expired entries.
	Sweep()
}

// RateLimiter admits or rejects requests per client key
type RateLimiter interface {
	Admit(clientKey string) ratelimit.Decision
	Sweep()
}

// Fetcher performs the upstream call with the secret credential attached
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}
