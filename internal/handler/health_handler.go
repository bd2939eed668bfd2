package handler

import (
	"context"
	"net/http"
	"time"

	"orgie/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health. Unconfigured backends are reported as
// "disabled" and do not fail the check.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	logger := h.container.GetLogger()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "orgie",
		Checks:    map[string]string{"database": "memory", "redis": "disabled"},
	}

	if h.container.HasDatabase() {
		response.Checks["database"] = "ok"
		if err := h.container.DB.Health(ctx); err != nil {
			logger.WithError(err).Warn("Database health check failed")
			response.Checks["database"] = "unavailable"
			response.Status = "unhealthy"
		}
	}
	if h.container.HasRedis() {
		response.Checks["redis"] = "ok"
		if err := h.container.GetRedisClient().Health(ctx); err != nil {
			logger.WithError(err).Warn("Redis health check failed")
			// the cache is optional
			response.Checks["redis"] = "unavailable"
			if response.Status == "healthy" {
				response.Status = "degraded"
			}
		}
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, response)
}
