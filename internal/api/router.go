package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dlt194/ipn-webmanager/internal/api/common"
	"github.com/dlt194/ipn-webmanager/internal/api/handlers"
	"github.com/dlt194/ipn-webmanager/internal/auth"
	"github.com/dlt194/ipn-webmanager/internal/config"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
	"github.com/dlt194/ipn-webmanager/internal/middleware"
	"github.com/dlt194/ipn-webmanager/internal/store"
)

// NewRouter creates and configures the API router
func NewRouter(cfg *config.Config, authService *auth.Service, db *pgxpool.Pool, ipoClient *ipo.Client, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	// CORS (if enabled)
	if cfg.CORS.Enabled {
		r.Use(middleware.CORS(
			cfg.CORS.AllowedOrigins,
			cfg.CORS.AllowedMethods,
			cfg.CORS.AllowedHeaders,
			cfg.CORS.MaxAgeSeconds,
		))
	}

	// Initialize dependencies
	deps := &common.Dependencies{
		Q:         store.New(db),
		Auth:      authService,
		IPO:       ipoClient,
		Appliance: cfg.Appliance,
		Logger:    logger,
	}

	// Initialize handlers
	healthHandler := NewHealthHandler(db)
	systemHandler := handlers.NewSystemHandler(deps)
	serverConfigHandler := handlers.NewServerConfigHandler(deps)
	applianceHandler := handlers.NewApplianceHandler(deps)

	// Public routes (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoint
		r.Post("/login", systemHandler.Login)

		// Protected routes (require JWT)
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(authService))

			r.Route("/server-configs", func(r chi.Router) {
				r.Get("/", serverConfigHandler.List)
				r.Post("/", serverConfigHandler.Create)
				r.Get("/{id}", serverConfigHandler.Get)
				r.Patch("/{id}", serverConfigHandler.Update)
				r.Delete("/{id}", serverConfigHandler.Delete)

				// Proxied appliance resources
				r.Route("/{id}/users", func(r chi.Router) {
					r.Get("/", applianceHandler.ListUsers)
					r.Post("/", applianceHandler.UpdateUser)
					r.Delete("/", applianceHandler.DeleteUser)
				})
				r.Route("/{id}/extensions", func(r chi.Router) {
					r.Get("/", applianceHandler.ListExtensions)
					r.Post("/", applianceHandler.CreateExtension)
					r.Put("/", applianceHandler.UpdateExtension)
					r.Delete("/", applianceHandler.DeleteExtension)
				})
				r.Get("/{id}/licenses", applianceHandler.ListLicenses)
				r.Get("/{id}/systems", applianceHandler.ListSystems)
				r.Route("/{id}/stats", func(r chi.Router) {
					r.Get("/", applianceHandler.GetStats)
					r.Post("/", applianceHandler.RefreshStats)
				})
				r.Get("/{id}/status", applianceHandler.Status)
			})
		})
	})

	return r
}
