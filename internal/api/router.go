// Package api provides the HTTP API of the farm-to-market route engine.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/api/handler"
	"github.com/farmroute/farmroute/internal/api/middleware"
	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/api/response"
	"github.com/farmroute/farmroute/internal/catalog"
	"github.com/farmroute/farmroute/internal/planner"
	"github.com/farmroute/farmroute/internal/session"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	RequireTLS bool

	Planner  *planner.Planner
	Sessions *session.Store
	Tokens   *session.Tokens
	Catalog  *catalog.Catalog

	// Ops carries version info and the health sources for /v1/ops.
	Ops handler.OpsConfig
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Dehradun()
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewMethodNotAllowed(middleware.GetRequestID(r.Context()), r.Method+" is not supported on this endpoint"))
	})

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	routeHandler := handler.NewRouteHandler(cfg.Planner, cfg.Sessions, cfg.Tokens, cat, cfg.Logger)
	sessionHandler := handler.NewSessionHandler(cfg.Planner, cfg.Sessions, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler(cat, cfg.Planner.Calculator(), cfg.Planner.DefaultProfile())

	sessionAuth := middleware.Session(cfg.Tokens)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Compute hits the routing provider and creates sessions: strictest tier, per IP.
		r.With(middleware.RateLimitByIP(middleware.ExpensiveRateLimit)).
			Post("/routes:compute", routeHandler.Compute)

		r.Route("/session", func(r chi.Router) {
			r.Use(sessionAuth)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitBySession(middleware.StandardRateLimit))
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/select", sessionHandler.Select)
				r.Put("/cargo", sessionHandler.SetCargo)
				r.Post("/reset", sessionHandler.Reset)
			})

			r.With(middleware.RateLimitBySession(middleware.ExpensiveRateLimit)).
				Post("/weather:check", sessionHandler.CheckWeather)
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit))
			r.Get("/locations", metadataHandler.ListLocations)
			r.Get("/cargo-profiles", metadataHandler.ListCargoProfiles)
			r.Get("/enums", metadataHandler.GetEnums)
		})
	})

	return r
}
