package cache

import (
	"sync"
	"time"

	"ebird-proxy/application/ports"
)

// Memory is an in-memory TTL cache keyed by normalized upstream path.
// Expiry is lazy: Get never returns a stale entry, but stale entries stay in
// the map until the next Sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]ports.CachedPayload
	now     func() time.Time
}

// NewMemory creates an empty cache
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]ports.CachedPayload),
		now:     time.Now,
	}
}

// Get returns the entry for key. An entry whose expiry has passed is a miss
// even if still physically present.
func (c *Memory) Get(key string) (ports.CachedPayload, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return ports.CachedPayload{}, false
	}
	if c.now().After(entry.ExpiresAt) {
		return ports.CachedPayload{}, false
	}
	return entry, true
}

// Put creates or replaces the entry for key with expiry now+ttl
func (c *Memory) Put(key string, payload []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = ports.CachedPayload{
		Payload:   payload,
		ExpiresAt: c.now().Add(ttl),
	}
}

// Sweep removes all entries whose expiry has passed
func (c *Memory) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of physically present entries, expired included
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
