package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"orgie/internal/container"
	"orgie/internal/middleware"
	apperrors "orgie/pkg/errors"
)

// NewRouter configures the HTTP router over the container's services
func NewRouter(c *container.Container) chi.Router {
	cfg := c.GetConfig()
	log := c.GetLogger()

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.RequestID())
	if cfg.TrustProxy {
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	authMw := middleware.Auth(c.Auth, log)
	limit := middleware.RateLimit(c.GetRedisClient(), cfg.AuthRateLimit, cfg.AuthRateWindow, log)

	healthHandler := NewHealthHandler(c)
	authHandler := NewAuthHandler(c.Auth, cfg.CookieSecure, log)
	eventHandler := NewEventHandler(c.Events, log)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authMw, limit)
		eventHandler.RegisterRoutes(r, authMw)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, apperrors.NewNotFoundError("Endpoint not found"), log)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
	})

	log.Info("Router configured successfully")
	return r
}
