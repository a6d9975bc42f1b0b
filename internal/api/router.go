// Package api provides the HTTP API for FieldRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fieldroute/fieldroute/internal/api/handler"
	"github.com/fieldroute/fieldroute/internal/api/middleware"
	"github.com/fieldroute/fieldroute/internal/route"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	ServiceName  string
	Metrics      *middleware.Metrics
	RouteService *route.Service

	// Checks and Providers feed the ops readiness and status endpoints.
	Checks    map[string]handler.DependencyCheck
	Providers map[string]handler.ProviderProbe
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "fieldroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Checks, cfg.Providers)
	routeHandler := handler.NewRouteHandler(cfg.RouteService)
	waypointHandler := handler.NewWaypointHandler(cfg.RouteService)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Route planning endpoints
		r.With(standardRateLimit).Post("/routes", routeHandler.Create)

		// Suggestions run the estimator over candidate orderings
		r.With(expensiveRateLimit).Post("/routes:suggestions", routeHandler.Suggest)

		r.Route("/routes/{routeId}", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", routeHandler.Get)
			r.Delete("/", routeHandler.Delete)
			r.Get("/efficiency", routeHandler.Efficiency)
		})

		// Optimization calls the external directions oracle
		r.With(expensiveRateLimit).Post("/routes/{routeId}:optimize", routeHandler.Optimize)
		r.With(standardRateLimit).Post("/routes/{routeId}:cancel", routeHandler.Cancel)

		// Waypoint lifecycle endpoints used by the field app
		r.With(standardRateLimit).Post("/waypoints/{waypointId}:arrive", waypointHandler.Arrive)
		r.With(standardRateLimit).Post("/waypoints/{waypointId}:depart", waypointHandler.Depart)
		r.With(standardRateLimit).Post("/waypoints/{waypointId}:skip", waypointHandler.Skip)
	})

	return r
}
