package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillmint/lms-data/internal/api/respond"
	"github.com/skillmint/lms-data/internal/lms"
	"github.com/skillmint/lms-data/internal/lms/canvas"
	"github.com/skillmint/lms-data/internal/lms/edx"
	"github.com/skillmint/lms-data/internal/lms/gclass"
	"github.com/skillmint/lms-data/internal/lms/moodle"
	"github.com/skillmint/lms-data/internal/validate"
)

// maxBodyBytes caps the raw aggregate size a client may post.
const maxBodyBytes = 32 << 20 // 32 MiB

// NormalizeResponse wraps a normalized payload with its validation result.
type NormalizeResponse struct {
	Payload    lms.NormalizedPayload `json:"payload"`
	Validation validate.Result       `json:"validation"`
}

// Normalize handles POST /api/v1/normalize/{lms}. The request body is a raw
// course aggregate in the source's native shape; the response is the
// normalized payload plus its validation result.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	lmsID := chi.URLParam(r, "lms")
	if !knownLMS(lmsID) {
		respond.WriteError(w, http.StatusNotFound, respond.CodeUnknownLMS, "unsupported lms: "+lmsID)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeReadBody, "could not read request body")
		return
	}

	payload, err := normalizeRaw(lmsID, body)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusUnprocessableEntity, respond.CodeDecodeFailed,
			"request body is not a valid raw course aggregate", err.Error())
		return
	}

	resp := NormalizeResponse{
		Payload:    payload,
		Validation: validate.Normalized(payload),
	}
	respond.WriteJSONObject(w, http.StatusOK, resp)
}

// normalizeRaw decodes a raw aggregate for the named source and normalizes it.
func normalizeRaw(lmsID string, body []byte) (lms.NormalizedPayload, error) {
	switch lmsID {
	case lms.SourceEdx:
		var raw edx.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return edx.Normalize(raw), nil
	case lms.SourceCanvas:
		var raw canvas.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return canvas.Normalize(raw), nil
	case lms.SourceMoodle:
		var raw moodle.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return moodle.Normalize(raw), nil
	default:
		var raw gclass.RawCourse
		if err := json.Unmarshal(body, &raw); err != nil {
			return lms.NormalizedPayload{}, err
		}
		return gclass.Normalize(raw), nil
	}
}
