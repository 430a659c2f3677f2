package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/skillmint/lms-data/internal/lms/moodle"
)

// MoodleConnector fetches raw course aggregates through the Moodle web
// service REST endpoint. Moodle authenticates with a wstoken query
// parameter rather than a header.
type MoodleConnector struct {
	client *client
	token  string
	logger *slog.Logger
}

// NewMoodleConnector creates a Moodle connector.
func NewMoodleConnector(baseURL, wsToken string, requestsPerMinute int, logger *slog.Logger) *MoodleConnector {
	return &MoodleConnector{
		client: newClient(baseURL, requestsPerMinute, logger, nil),
		token:  wsToken,
		logger: logger,
	}
}

// call invokes one Moodle web service function.
func (c *MoodleConnector) call(ctx context.Context, wsFunction string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("wstoken", c.token)
	params.Set("wsfunction", wsFunction)
	params.Set("moodlewsrestformat", "json")
	return c.client.getJSON(ctx, "/webservice/rest/server.php", params, out)
}

// FetchCourse assembles the raw Moodle aggregate for one course.
func (c *MoodleConnector) FetchCourse(ctx context.Context, courseID string) (*moodle.RawCourse, error) {
	raw := &moodle.RawCourse{}

	var byField struct {
		Courses []moodle.RawCourseInfo `json:"courses"`
	}
	if err := c.call(ctx, "core_course_get_courses_by_field",
		url.Values{"field": {"id"}, "value": {courseID}}, &byField); err != nil {
		return nil, fmt.Errorf("fetch moodle course %s: %w", courseID, err)
	}
	if len(byField.Courses) == 0 {
		return nil, fmt.Errorf("moodle course %s not found", courseID)
	}
	raw.Course = &byField.Courses[0]

	if err := c.call(ctx, "core_enrol_get_enrolled_users",
		url.Values{"courseid": {courseID}}, &raw.Users); err != nil {
		c.logger.Warn("moodle enrolled users fetch failed", "course_id", courseID, "error", err)
	}

	// core_course_get_contents returns sections; flatten to modules.
	var sections []struct {
		Modules []moodle.RawActivity `json:"modules"`
	}
	if err := c.call(ctx, "core_course_get_contents",
		url.Values{"courseid": {courseID}}, &sections); err != nil {
		c.logger.Warn("moodle course contents fetch failed", "course_id", courseID, "error", err)
	}
	for _, s := range sections {
		raw.Activities = append(raw.Activities, s.Modules...)
	}

	var report struct {
		UserGrades []moodle.RawUserGrades `json:"usergrades"`
	}
	if err := c.call(ctx, "gradereport_user_get_grade_items",
		url.Values{"courseid": {courseID}}, &report); err != nil {
		c.logger.Warn("moodle grade report fetch failed", "course_id", courseID, "error", err)
	}
	raw.Grades = report.UserGrades

	// Forum posts come in two hops: the course's forums, then the
	// discussions of each forum.
	var forums []struct {
		ID   interface{} `json:"id"`
		Name string      `json:"name"`
	}
	if err := c.call(ctx, "mod_forum_get_forums_by_courses",
		url.Values{"courseids[0]": {courseID}}, &forums); err != nil {
		c.logger.Warn("moodle forums fetch failed", "course_id", courseID, "error", err)
	}
	for _, f := range forums {
		var resp struct {
			Discussions []moodle.RawDiscussion `json:"discussions"`
		}
		if err := c.call(ctx, "mod_forum_get_forum_discussions",
			url.Values{"forumid": {fmt.Sprintf("%v", f.ID)}}, &resp); err != nil {
			c.logger.Warn("moodle forum discussions fetch failed", "forum", f.Name, "error", err)
			continue
		}
		for i := range resp.Discussions {
			resp.Discussions[i].Forum = f.Name
		}
		raw.Forums = append(raw.Forums, resp.Discussions...)
	}

	return raw, nil
}

// ListCourses searches the course catalog.
func (c *MoodleConnector) ListCourses(ctx context.Context, query string, limit int) ([]CourseSummary, error) {
	var resp struct {
		Courses []struct {
			ID           interface{} `json:"id"`
			FullName     string      `json:"fullname"`
			CategoryName string      `json:"categoryname"`
		} `json:"courses"`
	}
	if err := c.call(ctx, "core_course_search_courses", url.Values{
		"criterianame":  {"search"},
		"criteriavalue": {query},
		"perpage":       {strconv.Itoa(limit)},
	}, &resp); err != nil {
		return nil, fmt.Errorf("list moodle courses: %w", err)
	}

	summaries := make([]CourseSummary, 0, len(resp.Courses))
	for _, r := range resp.Courses {
		summaries = append(summaries, CourseSummary{
			ID:   fmt.Sprintf("%v", r.ID),
			Name: r.FullName,
			Org:  r.CategoryName,
		})
	}
	return summaries, nil
}
