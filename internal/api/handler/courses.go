package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skillmint/lms-data/internal/api/respond"
	"github.com/skillmint/lms-data/internal/cache"
	"github.com/skillmint/lms-data/internal/connector"
	"github.com/skillmint/lms-data/internal/lms"
)

// ListCourses handles GET /api/v1/courses/{lms}?q=...&limit=N.
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	lmsID := chi.URLParam(r, "lms")
	if !knownLMS(lmsID) {
		respond.WriteError(w, http.StatusNotFound, respond.CodeUnknownLMS, "unsupported lms: "+lmsID)
		return
	}

	query := r.URL.Query().Get("q")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	var (
		courses []connector.CourseSummary
		err     error
	)
	switch lmsID {
	case lms.SourceEdx:
		courses, err = h.Edx.ListCourses(ctx, query, limit)
	case lms.SourceCanvas:
		courses, err = h.Canvas.ListCourses(ctx, query, limit)
	case lms.SourceMoodle:
		courses, err = h.Moodle.ListCourses(ctx, query, limit)
	default:
		courses, err = h.GClass.ListCourses(ctx, query, limit)
	}
	if err != nil {
		h.Logger.Error("course search failed", "lms", lmsID, "query", query, "error", err)
		respond.WriteErrorDetail(w, http.StatusBadGateway, respond.CodeUpstreamError,
			"course search against "+lmsID+" failed", err.Error())
		return
	}

	if courses == nil {
		courses = []connector.CourseSummary{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"lms":     lmsID,
		"count":   len(courses),
		"courses": courses,
	})
}

// GetCourse handles GET /api/v1/courses/{lms}/{courseID}. The response is a
// normalized payload, served from cache with ETag revalidation.
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	lmsID := chi.URLParam(r, "lms")
	courseID := chi.URLParam(r, "courseID")
	if !knownLMS(lmsID) {
		respond.WriteError(w, http.StatusNotFound, respond.CodeUnknownLMS, "unsupported lms: "+lmsID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	data, etag, hit, err := h.cachedPayload(ctx, lmsID, courseID)
	if err != nil {
		h.Logger.Error("course fetch failed", "lms", lmsID, "course_id", courseID, "error", err)
		respond.WriteErrorDetail(w, http.StatusBadGateway, respond.CodeUpstreamError,
			"fetching course "+courseID+" from "+lmsID+" failed", err.Error())
		return
	}

	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, h.Cfg.CacheTTL, hit)
}
