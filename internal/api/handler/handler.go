// Package handler implements the HTTP handlers for the normalization API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillmint/lms-data/internal/api/respond"
	"github.com/skillmint/lms-data/internal/cache"
	"github.com/skillmint/lms-data/internal/config"
	"github.com/skillmint/lms-data/internal/connector"
	"github.com/skillmint/lms-data/internal/db"
	"github.com/skillmint/lms-data/internal/lms"
	"github.com/skillmint/lms-data/internal/lms/canvas"
	"github.com/skillmint/lms-data/internal/lms/edx"
	"github.com/skillmint/lms-data/internal/lms/gclass"
	"github.com/skillmint/lms-data/internal/lms/moodle"
	"github.com/skillmint/lms-data/internal/store"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	Cfg    *config.Config
	Pool   *db.Pool // nil when persistence is not configured
	Cache  *cache.Cache
	Logger *slog.Logger

	Edx    *connector.EdxConnector
	Canvas *connector.CanvasConnector
	Moodle *connector.MoodleConnector
	GClass *connector.GClassConnector
}

// New wires up a Handler from config. Connectors are created for every
// source; ones without credentials still work against open endpoints.
func New(cfg *config.Config, pool *db.Pool, c *cache.Cache, logger *slog.Logger) *Handler {
	rpm := cfg.ConnectorRequestsPerMinute
	return &Handler{
		Cfg:    cfg,
		Pool:   pool,
		Cache:  c,
		Logger: logger,
		Edx:    connector.NewEdxConnector(cfg.EdxBaseURL, cfg.EdxToken, rpm, logger),
		Canvas: connector.NewCanvasConnector(cfg.CanvasBaseURL, cfg.CanvasToken, rpm, logger),
		Moodle: connector.NewMoodleConnector(cfg.MoodleBaseURL, cfg.MoodleToken, rpm, logger),
		GClass: connector.NewGClassConnector(cfg.GClassBaseURL, cfg.GClassToken, rpm, logger),
	}
}

// Root handles GET / with basic service info.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	sources := make([]string, 0, len(config.LMSRegistry))
	for id := range config.LMSRegistry {
		sources = append(sources, id)
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"service": "lms-data",
		"status":  "ok",
		"sources": sources,
		"docs":    "/docs/index.html",
	})
}

// --------------------------------------------------------------------------
// Shared fetch-and-normalize path
// --------------------------------------------------------------------------

// fetchNormalized fetches a course from the named source and normalizes it.
func (h *Handler) fetchNormalized(ctx context.Context, lmsID, courseID string) (lms.NormalizedPayload, error) {
	switch lmsID {
	case lms.SourceEdx:
		raw, err := h.Edx.FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return edx.Normalize(*raw), nil
	case lms.SourceCanvas:
		raw, err := h.Canvas.FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return canvas.Normalize(*raw), nil
	case lms.SourceMoodle:
		raw, err := h.Moodle.FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return moodle.Normalize(*raw), nil
	case lms.SourceGoogleClassroom:
		raw, err := h.GClass.FetchCourse(ctx, courseID)
		if err != nil {
			return lms.NormalizedPayload{}, err
		}
		return gclass.Normalize(*raw), nil
	}
	return lms.NormalizedPayload{}, fmt.Errorf("unknown lms %q", lmsID)
}

// cachedPayload returns the JSON-encoded normalized payload for a course,
// serving from cache when possible. Fresh fetches are archived in the
// background when persistence is configured.
func (h *Handler) cachedPayload(ctx context.Context, lmsID, courseID string) (data []byte, etag string, hit bool, err error) {
	key := cache.Key(lmsID, courseID)
	if data, etag, ok := h.Cache.Get(key); ok {
		return data, etag, true, nil
	}

	payload, err := h.fetchNormalized(ctx, lmsID, courseID)
	if err != nil {
		return nil, "", false, err
	}
	if h.Pool != nil {
		go h.persistPayload(payload)
	}
	data, err = json.Marshal(payload)
	if err != nil {
		return nil, "", false, fmt.Errorf("marshal payload: %w", err)
	}
	etag = h.Cache.Set(key, data, h.Cfg.CacheTTL)
	return data, etag, false, nil
}

// persistPayload archives a freshly fetched payload off the request path.
func (h *Handler) persistPayload(payload lms.NormalizedPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := store.Save(ctx, h.Pool.Pool, payload)
	if len(result.Errors) > 0 {
		h.Logger.Warn("payload persistence incomplete",
			"lms", payload.Source.LMS, "course_id", payload.Course.ID, "summary", result.Summary())
		return
	}
	h.Logger.Info("payload persisted",
		"lms", payload.Source.LMS, "course_id", payload.Course.ID, "summary", result.Summary())
}

// knownLMS validates the {lms} path parameter against the registry.
func knownLMS(lmsID string) bool {
	_, ok := config.LMSRegistry[lmsID]
	return ok
}

// fetchTimeout bounds one fetch-and-normalize round trip.
const fetchTimeout = 60 * time.Second
