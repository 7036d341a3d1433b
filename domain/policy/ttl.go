package policy

import (
	"strings"
	"time"
)

// TTLRule pairs an upstream path prefix with a cache lifetime
type TTLRule struct {
	Prefix string
	TTL    time.Duration
}

// DefaultTTLRules reflects upstream data volatility: observations change
// constantly, taxonomy almost never.
func DefaultTTLRules() []TTLRule {
	return []TTLRule{
		{Prefix: "/data/obs", TTL: 5 * time.Minute},
		{Prefix: "/ref/hotspot", TTL: 30 * time.Minute},
		{Prefix: "/ref/region", TTL: 60 * time.Minute},
		{Prefix: "/product/spplist", TTL: 60 * time.Minute},
		{Prefix: "/ref/taxonomy", TTL: 24 * time.Hour},
	}
}

// DefaultTTL applies when no rule matches
const DefaultTTL = 5 * time.Minute

// TTLPolicy assigns cache lifetimes by upstream path family. Rules are
// checked in order; the first prefix match wins.
type TTLPolicy struct {
	rules    []TTLRule
	fallback time.Duration
}

// NewTTLPolicy creates a policy from an ordered rule table, falling back to
// the defaults when none are configured.
func NewTTLPolicy(rules []TTLRule, fallback time.Duration) *TTLPolicy {
	if len(rules) == 0 {
		rules = DefaultTTLRules()
	}
	if fallback <= 0 {
		fallback = DefaultTTL
	}
	return &TTLPolicy{rules: rules, fallback: fallback}
}

// TTLFor returns the cache lifetime for a normalized upstream path
func (p *TTLPolicy) TTLFor(path string) time.Duration {
	for _, rule := range p.rules {
		if strings.HasPrefix(path, rule.Prefix) {
			return rule.TTL
		}
	}
	return p.fallback
}
