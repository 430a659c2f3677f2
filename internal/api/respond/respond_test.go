package respond

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONSetsCacheHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, []byte(`{"ok":true}`), `W/"abc"`, 5*time.Minute, false)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `W/"abc"`, rec.Header().Get("ETag"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=300, stale-while-revalidate=150", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestWriteJSONCacheHit(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, []byte(`{}`), `W/"abc"`, time.Minute, true)

	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestWriteNotModified(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNotModified(rec, `W/"abc"`)

	assert.Equal(t, 304, rec.Code)
	assert.Equal(t, `W/"abc"`, rec.Header().Get("ETag"))
	assert.Empty(t, rec.Body.String())
}

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, 404, CodeUnknownLMS, "unsupported lms: blackboard")

	assert.Equal(t, 404, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CodeUnknownLMS, resp.Error.Code)
	assert.Equal(t, "unsupported lms: blackboard", resp.Error.Message)
	assert.Empty(t, resp.Error.Detail)
}

func TestWriteErrorDetailCarriesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorDetail(rec, 502, CodeUpstreamError, "fetch failed", "connection refused")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CodeUpstreamError, resp.Error.Code)
	assert.Equal(t, "connection refused", resp.Error.Detail)
}
