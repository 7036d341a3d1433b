package di

import (
	"ebird-proxy/application/ports"
	"ebird-proxy/application/proxy"
	"ebird-proxy/domain/policy"
	"ebird-proxy/infrastructure/cache"
	"ebird-proxy/infrastructure/config"
	"ebird-proxy/infrastructure/upstream"
	"ebird-proxy/pkg/observability"
	"ebird-proxy/pkg/ratelimit"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideRegistry creates the Prometheus registry
func ProvideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// ProvideMetrics registers the proxy collectors
func ProvideMetrics(reg *prometheus.Registry) *observability.Metrics {
	return observability.NewMetrics(reg)
}

// ProvideCacheStore creates the in-memory payload cache
func ProvideCacheStore() ports.CacheStore {
	return cache.NewMemory()
}

// ProvideRateLimiter creates the per-client fixed-window limiter
func ProvideRateLimiter(cfg *config.Config) ports.RateLimiter {
	return ratelimit.NewFixedWindow(cfg.RateLimitMax, cfg.RateLimitWindow)
}

// ProvideFetcher creates the upstream eBird client
func ProvideFetcher(cfg *config.Config, logger *zap.Logger) ports.Fetcher {
	return upstream.NewClient(cfg.UpstreamBaseURL, cfg.APIKey, cfg.UpstreamTimeout, logger)
}

// ProvidePipeline assembles the request-mediation pipeline
func ProvidePipeline(
	cfg *config.Config,
	cacheStore ports.CacheStore,
	limiter ports.RateLimiter,
	fetcher ports.Fetcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *proxy.Pipeline {
	return proxy.NewPipeline(
		policy.NewAllowlist(cfg.AllowedPrefixes),
		policy.NewTTLPolicy(cfg.TTLRules, cfg.DefaultTTL),
		cacheStore,
		limiter,
		fetcher,
		cfg.HasCredential(),
		cfg.SweepProbability,
		metrics,
		logger,
	)
}
