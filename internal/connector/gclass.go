package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/skillmint/lms-data/internal/lms/gclass"
)

// GClassConnector fetches raw course aggregates from the Google Classroom
// REST API. OAuth token acquisition and refresh happen upstream; this
// connector only spends an access token it was given.
type GClassConnector struct {
	client *client
	logger *slog.Logger
}

// NewGClassConnector creates a Google Classroom connector.
func NewGClassConnector(baseURL, accessToken string, requestsPerMinute int, logger *slog.Logger) *GClassConnector {
	return &GClassConnector{
		client: newClient(baseURL, requestsPerMinute, logger, bearerAuth(accessToken)),
		logger: logger,
	}
}

// FetchCourse assembles the raw Classroom aggregate for one course.
func (c *GClassConnector) FetchCourse(ctx context.Context, courseID string) (*gclass.RawCourse, error) {
	raw := &gclass.RawCourse{}
	base := "/v1/courses/" + url.PathEscape(courseID)

	var info gclass.RawCourseInfo
	if err := c.client.getJSON(ctx, base, nil, &info); err != nil {
		return nil, fmt.Errorf("fetch classroom course %s: %w", courseID, err)
	}
	raw.Course = &info

	var teachers struct {
		Teachers []gclass.RawMember `json:"teachers"`
	}
	if err := c.client.getJSON(ctx, base+"/teachers", nil, &teachers); err != nil {
		c.logger.Warn("classroom teachers fetch failed", "course_id", courseID, "error", err)
	}
	raw.Teachers = teachers.Teachers

	var students struct {
		Students []gclass.RawMember `json:"students"`
	}
	if err := c.client.getJSON(ctx, base+"/students", nil, &students); err != nil {
		c.logger.Warn("classroom students fetch failed", "course_id", courseID, "error", err)
	}
	raw.Students = students.Students

	var courseWork struct {
		CourseWork []gclass.RawCourseWork `json:"courseWork"`
	}
	if err := c.client.getJSON(ctx, base+"/courseWork", nil, &courseWork); err != nil {
		c.logger.Warn("classroom courseWork fetch failed", "course_id", courseID, "error", err)
	}
	raw.CourseWork = courseWork.CourseWork

	var submissions struct {
		StudentSubmissions []gclass.RawStudentSubmission `json:"studentSubmissions"`
	}
	if err := c.client.getJSON(ctx, base+"/courseWork/-/studentSubmissions", nil, &submissions); err != nil {
		c.logger.Warn("classroom submissions fetch failed", "course_id", courseID, "error", err)
	}
	raw.Submissions = submissions.StudentSubmissions

	var announcements struct {
		Announcements []gclass.RawAnnouncement `json:"announcements"`
	}
	if err := c.client.getJSON(ctx, base+"/announcements", nil, &announcements); err != nil {
		c.logger.Warn("classroom announcements fetch failed", "course_id", courseID, "error", err)
	}
	raw.Announcements = announcements.Announcements

	return raw, nil
}

// ListCourses lists courses visible to the configured token. Classroom has
// no server-side name search; the query filters client-side.
func (c *GClassConnector) ListCourses(ctx context.Context, query string, limit int) ([]CourseSummary, error) {
	var resp struct {
		Courses []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Section string `json:"section"`
		} `json:"courses"`
	}
	if err := c.client.getJSON(ctx, "/v1/courses",
		url.Values{"pageSize": {strconv.Itoa(limit)}}, &resp); err != nil {
		return nil, fmt.Errorf("list classroom courses: %w", err)
	}

	summaries := make([]CourseSummary, 0, len(resp.Courses))
	for _, r := range resp.Courses {
		if query != "" && !containsFold(r.Name, query) {
			continue
		}
		summaries = append(summaries, CourseSummary{ID: r.ID, Name: r.Name, Org: r.Section})
	}
	return summaries, nil
}
