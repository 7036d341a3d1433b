package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of admitting one request
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type record struct {
	count   int
	resetAt time.Time
}

// FixedWindow implements fixed-window rate limiting: one counter and one
// reset time per client key. The counter is incremented before the limit
// check, so the request that pushes the count over the limit is itself the
// rejected one. This boundary behavior is observable through Remaining and
// must not be "fixed".
type FixedWindow struct {
	mu      sync.Mutex
	records map[string]*record
	limit   int
	window  time.Duration
	grace   time.Duration
	now     func() time.Time
}

// NewFixedWindow creates a limiter admitting at most limit requests per
// window per key. Stale records are removed by Sweep once a full window
// past their reset time has elapsed.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		records: make(map[string]*record),
		limit:   limit,
		window:  window,
		grace:   window,
		now:     time.Now,
	}
}

// Admit records one request for key and decides whether it is allowed.
// Creates the key's record lazily on first use.
func (l *FixedWindow) Admit(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok || now.After(rec.resetAt) {
		rec = &record{resetAt: now.Add(l.window)}
		l.records[key] = rec
	}

	rec.count++

	remaining := l.limit - rec.count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   rec.count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   rec.resetAt,
	}
}

// Sweep deletes records whose window expired longer than the grace margin
// ago, bounding memory under churning client keys.
func (l *FixedWindow) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, rec := range l.records {
		if now.After(rec.resetAt.Add(l.grace)) {
			delete(l.records, key)
		}
	}
}

// Len returns the number of tracked client keys
func (l *FixedWindow) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
