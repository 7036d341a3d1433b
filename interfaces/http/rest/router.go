package rest

import (
	"net/http"

	"ebird-proxy/application/proxy"
	"ebird-proxy/interfaces/http/rest/handlers"
	"ebird-proxy/interfaces/http/rest/middleware"
	apperrors "ebird-proxy/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	pipeline *proxy.Pipeline
	registry *prometheus.Registry
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(pipeline *proxy.Pipeline, registry *prometheus.Registry, logger *zap.Logger) *Router {
	return &Router{
		pipeline: pipeline,
		registry: registry,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	// The proxy is called from browser front-ends on other origins, so CORS
	// is allow-all. Preflight OPTIONS short-circuits here with no body.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))

	errorHandler := apperrors.NewHTTPHandler(rt.logger)

	// Non-GET methods on any route get the structured 405 body.
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.Handle(w, r, apperrors.NewMethodNotAllowed(r.Method))
	})

	// Health check
	router.Get("/healthz", rt.healthCheck)

	// Metrics exposition
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

	// The proxy endpoint
	proxyHandler := handlers.NewProxyHandler(rt.pipeline, errorHandler, rt.logger)
	router.Route("/api/proxy", func(r chi.Router) {
		r.Get("/", proxyHandler.Proxy)
		r.Options("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
