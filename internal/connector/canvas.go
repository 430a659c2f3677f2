package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/skillmint/lms-data/internal/lms/canvas"
)

// CanvasConnector fetches raw course aggregates from a Canvas instance.
type CanvasConnector struct {
	client *client
	logger *slog.Logger
}

// NewCanvasConnector creates a Canvas connector with bearer-token auth.
func NewCanvasConnector(baseURL, token string, requestsPerMinute int, logger *slog.Logger) *CanvasConnector {
	return &CanvasConnector{
		client: newClient(baseURL, requestsPerMinute, logger, bearerAuth(token)),
		logger: logger,
	}
}

// FetchCourse assembles the raw Canvas aggregate for one course.
func (c *CanvasConnector) FetchCourse(ctx context.Context, courseID string) (*canvas.RawCourse, error) {
	raw := &canvas.RawCourse{}
	base := "/api/v1/courses/" + url.PathEscape(courseID)

	var info canvas.RawCourseInfo
	if err := c.client.getJSON(ctx, base, url.Values{"include[]": {"account"}}, &info); err != nil {
		return nil, fmt.Errorf("fetch canvas course %s: %w", courseID, err)
	}
	raw.Course = &info

	if err := c.client.getJSON(ctx, base+"/enrollments",
		url.Values{"include[]": {"user"}, "per_page": {"100"}}, &raw.Enrollments); err != nil {
		c.logger.Warn("canvas enrollments fetch failed", "course_id", courseID, "error", err)
	}

	if err := c.client.getJSON(ctx, base+"/users",
		url.Values{"enrollment_type[]": {"student"}, "per_page": {"100"}}, &raw.Students); err != nil {
		c.logger.Warn("canvas students fetch failed", "course_id", courseID, "error", err)
	}

	if err := c.client.getJSON(ctx, base+"/users",
		url.Values{"enrollment_type[]": {"teacher"}, "per_page": {"100"}}, &raw.Teachers); err != nil {
		c.logger.Warn("canvas teachers fetch failed", "course_id", courseID, "error", err)
	}

	if err := c.client.getJSON(ctx, base+"/assignments",
		url.Values{"per_page": {"100"}}, &raw.Assignments); err != nil {
		c.logger.Warn("canvas assignments fetch failed", "course_id", courseID, "error", err)
	}

	if err := c.client.getJSON(ctx, base+"/students/submissions",
		url.Values{"student_ids[]": {"all"}, "include[]": {"assignment"}, "per_page": {"100"}}, &raw.Submissions); err != nil {
		c.logger.Warn("canvas submissions fetch failed", "course_id", courseID, "error", err)
	}

	if err := c.client.getJSON(ctx, base+"/discussion_topics",
		url.Values{"per_page": {"100"}}, &raw.DiscussionTopics); err != nil {
		c.logger.Warn("canvas discussion topics fetch failed", "course_id", courseID, "error", err)
	}

	return raw, nil
}

// ListCourses searches courses visible to the configured token.
func (c *CanvasConnector) ListCourses(ctx context.Context, query string, limit int) ([]CourseSummary, error) {
	params := url.Values{"per_page": {strconv.Itoa(limit)}}
	if query != "" {
		params.Set("search_term", query)
	}

	var resp []struct {
		ID         interface{} `json:"id"`
		Name       string      `json:"name"`
		CourseCode string      `json:"course_code"`
	}
	if err := c.client.getJSON(ctx, "/api/v1/courses", params, &resp); err != nil {
		return nil, fmt.Errorf("list canvas courses: %w", err)
	}

	summaries := make([]CourseSummary, 0, len(resp))
	for _, r := range resp {
		summaries = append(summaries, CourseSummary{
			ID:   fmt.Sprintf("%v", r.ID),
			Name: r.Name,
			Org:  r.CourseCode,
		})
	}
	return summaries, nil
}
