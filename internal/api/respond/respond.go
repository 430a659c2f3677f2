// Package respond provides the JSON response vocabulary for the API:
// cache-aware payload writes and the error-code set handlers answer with.
package respond

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Error codes used across the API surface. Clients switch on these, not on
// the human-readable messages.
const (
	CodeUnknownLMS    = "UNKNOWN_LMS"
	CodeUpstreamError = "UPSTREAM_ERROR"
	CodeDecodeFailed  = "DECODE_FAILED"
	CodeReadBody      = "READ_BODY"
	CodeBadThreshold  = "BAD_THRESHOLD"
	CodeRateLimited   = "RATE_LIMITED"
	CodeNoDatabase    = "NO_DATABASE"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL"
)

// ErrorResponse is the standard error shape for all API errors.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// WriteJSON writes pre-marshaled payload bytes with ETag and cache headers.
// cacheHit drives the X-Cache header so clients can tell a fresh fetch
// from a cached one.
func WriteJSON(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	w.Header().Set("Vary", "Accept-Encoding")
	setCacheHeaders(w, ttl, cacheHit)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// WriteNotModified sends a 304 with the matching ETag.
func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

// WriteError sends a structured JSON error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErr(w, status, code, message, "")
}

// WriteErrorDetail sends a structured error with additional detail, usually
// the underlying upstream or decode failure.
func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	writeErr(w, status, code, message, detail)
}

// WriteJSONObject marshals a Go value to JSON and writes it. Used for
// non-cached responses (health checks, validation results, reports).
func WriteJSONObject(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message, detail string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Detail = detail
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func setCacheHeaders(w http.ResponseWriter, ttl time.Duration, cacheHit bool) {
	maxAge := int(ttl.Seconds())
	swr := maxAge / 2
	if cacheHit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", maxAge, swr))
}
