package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skillmint/lms-data/internal/api/respond"
	"github.com/skillmint/lms-data/internal/eligibility"
	"github.com/skillmint/lms-data/internal/lms"
)

// Eligibility handles GET /api/v1/eligibility/{lms}/{courseID}?threshold=N.
// It normalizes the course (through the cache) and reports per-learner
// completion against the threshold.
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	lmsID := chi.URLParam(r, "lms")
	courseID := chi.URLParam(r, "courseID")
	if !knownLMS(lmsID) {
		respond.WriteError(w, http.StatusNotFound, respond.CodeUnknownLMS, "unsupported lms: "+lmsID)
		return
	}

	threshold := h.Cfg.EligibilityThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			respond.WriteError(w, http.StatusBadRequest, respond.CodeBadThreshold,
				"threshold must be a number between 0 and 100")
			return
		}
		threshold = f
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	data, _, _, err := h.cachedPayload(ctx, lmsID, courseID)
	if err != nil {
		h.Logger.Error("eligibility fetch failed", "lms", lmsID, "course_id", courseID, "error", err)
		respond.WriteErrorDetail(w, http.StatusBadGateway, respond.CodeUpstreamError,
			"fetching course "+courseID+" from "+lmsID+" failed", err.Error())
		return
	}

	var payload lms.NormalizedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeInternal,
			"cached payload could not be decoded")
		return
	}

	report := eligibility.Build(payload, threshold)
	respond.WriteJSONObject(w, http.StatusOK, report)
}
