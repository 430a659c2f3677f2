package edx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmint/lms-data/internal/lms"
)

func truePtr() *bool {
	v := true
	return &v
}

func testCourse() *RawCourseInfo {
	return &RawCourseInfo{
		ID:    "course-v1:MITx+6.00x+2024",
		Name:  "Introduction to Computer Science",
		Org:   "MITx",
		Start: "2024-09-01T00:00:00Z",
	}
}

func TestNormalizeCourseAndInstitution(t *testing.T) {
	payload := Normalize(RawCourse{Course: testCourse()})

	assert.Equal(t, lms.SourceEdx, payload.Source.LMS)
	assert.Equal(t, "course-v1:MITx+6.00x+2024", payload.Course.ID)
	assert.Equal(t, "2024-09-01T00:00:00Z", payload.Course.StartDate)
	require.NotNil(t, payload.Institution)
	assert.Equal(t, "MITx", payload.Institution.Name)
	assert.Equal(t, "MITx", payload.Course.Metadata["org"])
}

func TestNormalizeEmptyAggregate(t *testing.T) {
	payload := Normalize(RawCourse{})

	assert.Equal(t, lms.CourseIDUnknown, payload.Course.ID)
	require.NotNil(t, payload.Instructors)
	assert.Empty(t, payload.Instructors)
	assert.Nil(t, payload.Learners)
	assert.Nil(t, payload.Transcript)
	assert.Nil(t, payload.Chat)
	assert.NotNil(t, payload.Diagnostics.Notes)
}

func TestStaffClassification(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Staff: []RawStaffMember{
			{ID: float64(1), Username: "prof", Email: "prof@mit.edu", Name: "Prof. Xu"},
		},
		Enrollments: []RawEnrollment{
			// flat is_staff flag
			{RawUser: RawUser{ID: float64(2), Username: "ta1", IsStaff: truePtr()}},
			// flag one level down on the nested user
			{User: &RawUser{ID: float64(3), Username: "ta2", IsStaff: truePtr()}},
			// is_active_staff variant
			{RawUser: RawUser{ID: float64(4), Username: "ta3"}, IsActiveStaff: truePtr()},
			// role string heuristic
			{RawUser: RawUser{ID: float64(5), Username: "ta4"}, Role: "Course Staff"},
			// plain learner
			{RawUser: RawUser{ID: float64(10), Username: "alice", Email: "alice@x.edu"}},
		},
	}

	payload := Normalize(raw)

	require.Len(t, payload.Instructors, 5)
	require.Len(t, payload.Learners, 1)
	assert.Equal(t, "alice", payload.Learners[0].Username)
}

func TestKeylessEnrollmentsDroppedSilently(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Enrollments: []RawEnrollment{
			{RawUser: RawUser{Name: "Ghost Without Identity"}},
			{RawUser: RawUser{ID: float64(10), Username: "alice"}},
		},
	}

	payload := Normalize(raw)

	require.Len(t, payload.Learners, 1)
	assert.Equal(t, "alice", payload.Learners[0].Username)
	// Dropped records leave no trace in diagnostics.
	for _, note := range payload.Diagnostics.Notes {
		assert.NotContains(t, note, "Ghost")
	}
}

func TestNestedUserFieldFallback(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Enrollments: []RawEnrollment{
			{
				RawUser: RawUser{Username: "bob"},
				User:    &RawUser{ID: float64(11), Name: "Bob Lee", Email: "bob@x.edu"},
			},
		},
	}

	payload := Normalize(raw)

	require.Len(t, payload.Learners, 1)
	l := payload.Learners[0]
	assert.Equal(t, "11", l.ID)
	assert.Equal(t, "bob", l.Username)
	assert.Equal(t, "Bob Lee", l.Name)
	assert.Equal(t, "bob@x.edu", l.Email)
}

func TestGradebookMaxScoreReconciliation(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Gradebook: []RawGradebookEntry{
			{
				UserID:   float64(10),
				Username: "alice",
				SectionBreakdown: []RawSectionScore{
					{Label: "hw1", ScoreEarned: lms.Float(9), ScorePossible: lms.Float(10), Attempted: truePtr()},
				},
			},
			{
				UserID:   float64(11),
				Username: "bob",
				SectionBreakdown: []RawSectionScore{
					// partial-credit adjustment: lower points possible
					{Label: "hw1", ScoreEarned: lms.Float(8), ScorePossible: lms.Float(8), Attempted: truePtr()},
				},
			},
		},
	}

	payload := Normalize(raw)

	require.Len(t, payload.Learners, 2)
	for _, l := range payload.Learners {
		require.Len(t, l.Assignments, 1)
		require.NotNil(t, l.Assignments[0].MaxScore)
		assert.Equal(t, 10.0, *l.Assignments[0].MaxScore, "learner %s", l.Username)
	}

	// Bob's percentage is computed against the reconciled max, not his own
	// points possible: 8/10, not 8/8.
	var bob lms.Learner
	for _, l := range payload.Learners {
		if l.Username == "bob" {
			bob = l
		}
	}
	grades := bob.Assignments[0].Submissions[0].Grades
	require.Len(t, grades, 1)
	require.NotNil(t, grades[0].Percentage)
	assert.Equal(t, 80.0, *grades[0].Percentage)
	require.NotNil(t, grades[0].TotalScore)
	assert.Equal(t, 10.0, *grades[0].TotalScore)
}

func TestGradebookWorkflowStates(t *testing.T) {
	attempted := truePtr()
	raw := RawCourse{
		Course: testCourse(),
		Gradebook: []RawGradebookEntry{
			{
				UserID:   float64(10),
				Username: "alice",
				SectionBreakdown: []RawSectionScore{
					{Label: "graded", ScoreEarned: lms.Float(5), ScorePossible: lms.Float(10)},
					{Label: "submitted", Attempted: attempted},
					{Label: "untouched", ScorePossible: lms.Float(20)},
					{Label: "no-max"},
				},
			},
		},
	}

	payload := Normalize(raw)
	require.Len(t, payload.Learners, 1)
	byID := map[string]lms.Assignment{}
	for _, a := range payload.Learners[0].Assignments {
		byID[a.ID] = a
	}

	graded := byID["graded"].Submissions[0]
	assert.Equal(t, lms.StateGraded, graded.WorkflowState)
	require.Len(t, graded.Grades, 1)

	submitted := byID["submitted"].Submissions[0]
	assert.Equal(t, lms.StateSubmitted, submitted.WorkflowState)
	assert.Empty(t, submitted.Grades)

	// Unattempted with a known max gets the placeholder zero grade.
	untouched := byID["untouched"].Submissions[0]
	assert.Equal(t, lms.StateNotAttempted, untouched.WorkflowState)
	require.Len(t, untouched.Grades, 1)
	assert.Equal(t, 0.0, *untouched.Grades[0].Score)
	assert.Equal(t, 20.0, *untouched.Grades[0].TotalScore)

	// No max, no placeholder.
	noMax := byID["no-max"].Submissions[0]
	assert.Equal(t, lms.StateNotAttempted, noMax.WorkflowState)
	assert.Empty(t, noMax.Grades)
}

func TestRepeatedSectionMergesIntoOneAssignment(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Gradebook: []RawGradebookEntry{
			{
				UserID:   float64(10),
				Username: "alice",
				SectionBreakdown: []RawSectionScore{
					{Label: "quiz1", Category: "Quiz", ScoreEarned: lms.Float(6), ScorePossible: lms.Float(10)},
					{Label: "quiz1", Category: "Quiz", ScoreEarned: lms.Float(8), ScorePossible: lms.Float(10)},
				},
			},
		},
	}

	payload := Normalize(raw)
	require.Len(t, payload.Learners, 1)
	require.Len(t, payload.Learners[0].Assignments, 1)
	a := payload.Learners[0].Assignments[0]
	assert.True(t, a.IsQuiz)
	assert.Len(t, a.Submissions, 2)
}

func TestGradebookInstructorIdentityWins(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Staff: []RawStaffMember{
			{ID: float64(1), Username: "prof", Email: "prof@mit.edu"},
		},
		Gradebook: []RawGradebookEntry{
			{UserID: float64(1), Username: "prof", SectionBreakdown: []RawSectionScore{
				{Label: "hw1", ScoreEarned: lms.Float(10), ScorePossible: lms.Float(10)},
			}},
			{UserID: float64(10), Username: "alice", SectionBreakdown: []RawSectionScore{
				{Label: "hw1", ScoreEarned: lms.Float(7), ScorePossible: lms.Float(10)},
			}},
		},
	}

	payload := Normalize(raw)

	require.Len(t, payload.Instructors, 1)
	require.Len(t, payload.Learners, 1)
	assert.Equal(t, "alice", payload.Learners[0].Username)
}

func TestDiscussionsAndUpdates(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Discussions: []RawThread{
			{ID: "t1", Title: "Week 1", RawBody: "Ask here", Author: "prof", CommentableID: "general", CreatedAt: "2024-09-02T10:00:00Z"},
			{ID: "t2", Title: "Off topic", Author: "alice"},
		},
		Updates: []RawUpdate{
			{ID: float64(1), Content: "Welcome!", Author: "prof", Date: "2024-09-01"},
		},
	}

	payload := Normalize(raw)

	require.Len(t, payload.Chat, 2)
	assert.Equal(t, "general", payload.Chat[0].Channel)
	assert.Equal(t, "Week 1\nAsk here", payload.Chat[0].Messages[0].Text)
	assert.Equal(t, "discussion", payload.Chat[1].Channel)

	require.Len(t, payload.Transcript, 1)
	assert.Equal(t, "1", payload.Transcript[0].ID)
	assert.Equal(t, "2024-09-01T00:00:00Z", payload.Transcript[0].PostedAt)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	raw := RawCourse{
		Course: testCourse(),
		Staff:  []RawStaffMember{{ID: float64(1), Username: "prof"}},
		Enrollments: []RawEnrollment{
			{RawUser: RawUser{ID: float64(10), Username: "alice", Email: "alice@x.edu"}},
		},
		Gradebook: []RawGradebookEntry{
			{UserID: float64(10), SectionBreakdown: []RawSectionScore{
				{Label: "hw1", ScoreEarned: lms.Float(9), ScorePossible: lms.Float(10)},
			}},
		},
	}

	a := Normalize(raw)
	b := Normalize(raw)

	diff := cmp.Diff(a, b, cmpopts.IgnoreFields(lms.Source{}, "FetchedAt"))
	assert.Empty(t, diff)
}
