package di

import (
	"context"

	"ebird-proxy/application/ports"
	"ebird-proxy/application/proxy"
	"ebird-proxy/infrastructure/config"
	"ebird-proxy/pkg/observability"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Cache    ports.CacheStore
	Limiter  ports.RateLimiter
	Fetcher  ports.Fetcher
	Pipeline *proxy.Pipeline
}

// InitializeContainer wires the dependency graph
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	registry := ProvideRegistry()
	metrics := ProvideMetrics(registry)
	cacheStore := ProvideCacheStore()
	limiter := ProvideRateLimiter(cfg)
	fetcher := ProvideFetcher(cfg, logger)

	if !cfg.HasCredential() {
		logger.Error("EBIRD_API_KEY is not configured; all proxied requests will fail until it is set")
	}

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics,
		Cache:    cacheStore,
		Limiter:  limiter,
		Fetcher:  fetcher,
		Pipeline: ProvidePipeline(cfg, cacheStore, limiter, fetcher, metrics, logger),
	}, nil
}
