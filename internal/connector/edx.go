package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/skillmint/lms-data/internal/lms/edx"
)

// EdxConnector fetches raw course aggregates from an Open edX instance.
type EdxConnector struct {
	client *client
	logger *slog.Logger
}

// NewEdxConnector creates an edX connector with bearer-token auth.
func NewEdxConnector(baseURL, token string, requestsPerMinute int, logger *slog.Logger) *EdxConnector {
	return &EdxConnector{
		client: newClient(baseURL, requestsPerMinute, logger, bearerAuth(token)),
		logger: logger,
	}
}

// FetchCourse assembles the raw edX aggregate for one course. The course
// record itself is required; enrollment, gradebook and discussion fetches
// degrade to empty sections with a warning.
func (c *EdxConnector) FetchCourse(ctx context.Context, courseID string) (*edx.RawCourse, error) {
	raw := &edx.RawCourse{}

	var info edx.RawCourseInfo
	if err := c.client.getJSON(ctx, "/api/courses/v1/courses/"+url.PathEscape(courseID), nil, &info); err != nil {
		return nil, fmt.Errorf("fetch edx course %s: %w", courseID, err)
	}
	raw.Course = &info

	var enrollments struct {
		Results []edx.RawEnrollment `json:"results"`
	}
	if err := c.client.getJSON(ctx, "/api/enrollment/v1/enrollments",
		url.Values{"course_id": {courseID}}, &enrollments); err != nil {
		c.logger.Warn("edx enrollments fetch failed", "course_id", courseID, "error", err)
	}
	raw.Enrollments = enrollments.Results

	var staff []edx.RawStaffMember
	if err := c.client.getJSON(ctx, "/api/courses/v1/courses/"+url.PathEscape(courseID)+"/staff", nil, &staff); err != nil {
		c.logger.Warn("edx staff fetch failed", "course_id", courseID, "error", err)
	}
	raw.Staff = staff

	var gradebook struct {
		Results []edx.RawGradebookEntry `json:"results"`
	}
	if err := c.client.getJSON(ctx, "/api/grades/v1/gradebook/"+url.PathEscape(courseID), nil, &gradebook); err != nil {
		c.logger.Warn("edx gradebook fetch failed", "course_id", courseID, "error", err)
	}
	raw.Gradebook = gradebook.Results

	var threads struct {
		Results []edx.RawThread `json:"results"`
	}
	if err := c.client.getJSON(ctx, "/api/discussion/v1/threads",
		url.Values{"course_id": {courseID}}, &threads); err != nil {
		c.logger.Warn("edx discussions fetch failed", "course_id", courseID, "error", err)
	}
	raw.Discussions = threads.Results

	var updates []edx.RawUpdate
	if err := c.client.getJSON(ctx, "/api/courses/v1/courses/"+url.PathEscape(courseID)+"/updates", nil, &updates); err != nil {
		c.logger.Warn("edx updates fetch failed", "course_id", courseID, "error", err)
	}
	raw.Updates = updates

	return raw, nil
}

// ListCourses searches the course catalog.
func (c *EdxConnector) ListCourses(ctx context.Context, query string, limit int) ([]CourseSummary, error) {
	params := url.Values{"page_size": {strconv.Itoa(limit)}}
	if query != "" {
		params.Set("search_term", query)
	}

	var resp struct {
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Org  string `json:"org"`
		} `json:"results"`
	}
	if err := c.client.getJSON(ctx, "/api/courses/v1/courses/", params, &resp); err != nil {
		return nil, fmt.Errorf("list edx courses: %w", err)
	}

	summaries := make([]CourseSummary, 0, len(resp.Results))
	for _, r := range resp.Results {
		summaries = append(summaries, CourseSummary{ID: r.ID, Name: r.Name, Org: r.Org})
	}
	return summaries, nil
}
