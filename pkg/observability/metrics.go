package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the proxy's Prometheus collectors
type Metrics struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	RateLimited    prometheus.Counter
	UpstreamErrors prometheus.Counter
}

// NewMetrics registers the proxy counters on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_hits_total",
			Help: "Requests served from the in-memory cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxy_cache_misses_total",
			Help: "Requests that required an upstream fetch.",
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxy_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),
		UpstreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "proxy_upstream_errors_total",
			Help: "Upstream fetches that failed or returned a non-success status.",
		}),
	}
}
