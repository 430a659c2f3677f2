package connector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMoodle serves canned web service responses keyed on wsfunction.
func fakeMoodle(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("wstoken") == "" {
			t.Errorf("missing wstoken on %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("wsfunction") {
		case "core_course_get_courses_by_field":
			fmt.Fprint(w, `{"courses":[{"id":7,"fullname":"Intro to Biology","shortname":"BIO101"}]}`)
		case "core_enrol_get_enrolled_users":
			fmt.Fprint(w, `[{"id":1,"fullname":"Ada Lovelace","email":"ada@example.com","roles":[{"shortname":"student"}]}]`)
		case "core_course_get_contents":
			fmt.Fprint(w, `[{"modules":[{"id":10,"instance":4,"name":"Quiz 1","modname":"quiz"}]}]`)
		case "gradereport_user_get_grade_items":
			fmt.Fprint(w, `{"usergrades":[]}`)
		case "mod_forum_get_forums_by_courses":
			fmt.Fprint(w, `[{"id":3,"name":"Announcements"}]`)
		case "mod_forum_get_forum_discussions":
			if got := r.URL.Query().Get("forumid"); got != "3" {
				t.Errorf("forumid = %q, want 3", got)
			}
			fmt.Fprint(w, `{"discussions":[{"id":1,"subject":"Welcome","message":"Hello all","userfullname":"Prof","created":1725148800}]}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
}

func TestMoodleFetchCourse(t *testing.T) {
	srv := fakeMoodle(t)
	defer srv.Close()

	c := NewMoodleConnector(srv.URL, "secret-token", 6000, slog.Default())
	raw, err := c.FetchCourse(context.Background(), "7")
	require.NoError(t, err)

	require.NotNil(t, raw.Course)
	assert.Equal(t, "Intro to Biology", raw.Course.FullName)

	require.Len(t, raw.Users, 1)
	assert.Equal(t, "ada@example.com", raw.Users[0].Email)

	require.Len(t, raw.Activities, 1)
	assert.Equal(t, "quiz", raw.Activities[0].ModName)

	require.Len(t, raw.Forums, 1)
	assert.Equal(t, "Announcements", raw.Forums[0].Forum)
	assert.Equal(t, "Welcome", raw.Forums[0].Subject)
	assert.Equal(t, "Prof", raw.Forums[0].UserName)
}

func TestMoodleFetchCourseNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"courses":[]}`)
	}))
	defer srv.Close()

	c := NewMoodleConnector(srv.URL, "secret-token", 6000, slog.Default())
	_, err := c.FetchCourse(context.Background(), "404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMoodleForumFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("wsfunction") {
		case "core_course_get_courses_by_field":
			fmt.Fprint(w, `{"courses":[{"id":7,"fullname":"Intro to Biology"}]}`)
		case "mod_forum_get_forums_by_courses":
			http.Error(w, "forums disabled", http.StatusForbidden)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))
	defer srv.Close()

	c := NewMoodleConnector(srv.URL, "secret-token", 6000, slog.Default())
	raw, err := c.FetchCourse(context.Background(), "7")
	require.NoError(t, err)
	assert.Empty(t, raw.Forums)
}
