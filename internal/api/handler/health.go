package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/skillmint/lms-data/internal/api/respond"
)

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"environment": h.Cfg.Environment,
		"database":    h.Cfg.HasDatabase(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthDB handles GET /health/db.
func (h *Handler) HealthDB(w http.ResponseWriter, r *http.Request) {
	if h.Pool == nil {
		respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
			"status":   "not_configured",
			"database": "disabled",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Pool.HealthCheck(ctx); err != nil {
		h.Logger.Error("database health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":   "healthy",
		"database": "connected",
	})
}

// HealthCache handles GET /health/cache.
func (h *Handler) HealthCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"cache":  h.Cache.Stats(),
	})
}
