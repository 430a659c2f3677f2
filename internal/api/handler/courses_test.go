package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmint/lms-data/internal/api/respond"
	"github.com/skillmint/lms-data/internal/cache"
	"github.com/skillmint/lms-data/internal/config"
	"github.com/skillmint/lms-data/internal/lms"
)

const testCourseID = "course-v1:TestX+101+2026"

// fakeEdx answers the course record and degrades everything else to empty
// responses.
func fakeEdx() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/api/courses/v1/courses/") &&
			!strings.HasSuffix(r.URL.Path, "/staff") &&
			!strings.HasSuffix(r.URL.Path, "/updates") {
			fmt.Fprintf(w, `{"id":%q,"name":"Test Course","org":"TestX"}`, testCourseID)
			return
		}
		fmt.Fprint(w, `{}`)
	}))
}

func newTestHandler(baseURL string) *Handler {
	cfg := &config.Config{
		EdxBaseURL:                 baseURL,
		ConnectorRequestsPerMinute: 6000,
		CacheEnabled:               true,
		CacheTTL:                   time.Minute,
	}
	return New(cfg, nil, cache.New(true), slog.Default())
}

func TestGetCourseWithoutDatabase(t *testing.T) {
	srv := fakeEdx()
	defer srv.Close()

	h := newTestHandler(srv.URL)

	get := func(etag string) *httptest.ResponseRecorder {
		req := withRouteParams(
			httptest.NewRequest(http.MethodGet, "/api/v1/courses/edx/"+testCourseID, nil),
			map[string]string{"lms": "edx", "courseID": testCourseID},
		)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		rec := httptest.NewRecorder()
		h.GetCourse(rec, req)
		return rec
	}

	// Fresh fetch is normalized and served even with no pool configured.
	rec := get("")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var payload lms.NormalizedPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, testCourseID, payload.Course.ID)
	assert.Equal(t, lms.SourceEdx, payload.Source.LMS)
	assert.NotNil(t, payload.Instructors)

	// Second request is a cache hit with the same ETag.
	rec = get("")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, etag, rec.Header().Get("ETag"))

	// Conditional request revalidates.
	rec = get(etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestGetCourseUnknownLMS(t *testing.T) {
	srv := fakeEdx()
	defer srv.Close()

	h := newTestHandler(srv.URL)
	req := withRouteParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/courses/blackboard/c1", nil),
		map[string]string{"lms": "blackboard", "courseID": "c1"},
	)
	rec := httptest.NewRecorder()
	h.GetCourse(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, respond.CodeUnknownLMS, decodeError(t, rec).Error.Code)
}

func TestGetCourseUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	h := newTestHandler(srv.URL)
	req := withRouteParams(
		httptest.NewRequest(http.MethodGet, "/api/v1/courses/edx/"+testCourseID, nil),
		map[string]string{"lms": "edx", "courseID": testCourseID},
	)
	rec := httptest.NewRecorder()
	h.GetCourse(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, respond.CodeUpstreamError, decodeError(t, rec).Error.Code)
}
