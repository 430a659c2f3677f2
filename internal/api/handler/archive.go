package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/skillmint/lms-data/internal/api/respond"
	"github.com/skillmint/lms-data/internal/lms"
	"github.com/skillmint/lms-data/internal/store"
)

// archiveTimeout bounds one archive lookup.
const archiveTimeout = 5 * time.Second

// ArchivedPayloadResponse wraps an archived payload with its archive time.
type ArchivedPayloadResponse struct {
	FetchedAt time.Time             `json:"fetched_at"`
	Payload   lms.NormalizedPayload `json:"payload"`
}

// ListArchive handles GET /api/v1/archive?limit=N: persisted courses,
// most recently fetched first.
func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.Pool == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, respond.CodeNoDatabase,
			"persistence is not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), archiveTimeout)
	defer cancel()

	courses, err := store.Courses(ctx, h.Pool.Pool, limit)
	if err != nil {
		h.Logger.Error("archive listing failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal,
			"listing archived courses failed")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"count":   len(courses),
		"courses": courses,
	})
}

// GetArchived handles GET /api/v1/archive/{lms}/{courseID}: the most
// recently archived payload for a course, without touching the source LMS.
func (h *Handler) GetArchived(w http.ResponseWriter, r *http.Request) {
	lmsID := chi.URLParam(r, "lms")
	courseID := chi.URLParam(r, "courseID")
	if !knownLMS(lmsID) {
		respond.WriteError(w, http.StatusNotFound, respond.CodeUnknownLMS, "unsupported lms: "+lmsID)
		return
	}
	if h.Pool == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, respond.CodeNoDatabase,
			"persistence is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), archiveTimeout)
	defer cancel()

	payload, fetchedAt, err := store.ArchivedPayload(ctx, h.Pool.Pool, lmsID, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respond.WriteError(w, http.StatusNotFound, respond.CodeNotFound,
				"no archived payload for "+lmsID+" course "+courseID)
			return
		}
		h.Logger.Error("archive lookup failed", "lms", lmsID, "course_id", courseID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal,
			"archive lookup failed")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, ArchivedPayloadResponse{
		FetchedAt: fetchedAt,
		Payload:   payload,
	})
}
