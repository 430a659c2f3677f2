package lms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name               string
		id, username, email string
		want               string
		ok                 bool
	}{
		{"id wins", "42", "alice", "a@x.edu", "42", true},
		{"username fallback", "", "alice", "a@x.edu", "alice", true},
		{"email fallback", "", "", "a@x.edu", "a@x.edu", true},
		{"nothing", "", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IdentityKey(tt.id, tt.username, tt.email)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsStaffRole(t *testing.T) {
	staff := []string{
		"instructor", "Instructor", "TeacherEnrollment", "editingteacher",
		"course_staff", "ADMIN", "TaAdmin",
	}
	for _, role := range staff {
		assert.True(t, IsStaffRole(role), "role %q should be staff", role)
	}

	notStaff := []string{"", "student", "StudentEnrollment", "observer", "learner"}
	for _, role := range notStaff {
		assert.False(t, IsStaffRole(role), "role %q should not be staff", role)
	}
}

func TestMergeField(t *testing.T) {
	dst := "old"
	MergeField(&dst, "")
	assert.Equal(t, "old", dst)
	MergeField(&dst, "new")
	assert.Equal(t, "new", dst)
}

func TestDropInstructorCollisions(t *testing.T) {
	instructors := []Instructor{
		{ID: "7", Username: "prof", Email: "prof@x.edu"},
	}

	t.Run("removes colliding learners on any identity value", func(t *testing.T) {
		learners := []Learner{
			{ID: "7", Name: "Same ID"},
			{Username: "prof", Name: "Same Username"},
			{Email: "prof@x.edu", Name: "Same Email"},
			{ID: "8", Name: "Kept"},
		}
		kept := DropInstructorCollisions(instructors, learners)
		require.Len(t, kept, 1)
		assert.Equal(t, "8", kept[0].ID)
	})

	t.Run("nil when everyone collides", func(t *testing.T) {
		learners := []Learner{{ID: "7"}}
		assert.Nil(t, DropInstructorCollisions(instructors, learners))
	})

	t.Run("no instructors keeps learners", func(t *testing.T) {
		learners := []Learner{{ID: "1"}}
		assert.Equal(t, learners, DropInstructorCollisions(nil, learners))
	})
}

func TestInstructorSetMergesAcrossIdentityValues(t *testing.T) {
	set := NewInstructorSet()
	set.Upsert("7", "", "", "prof@x.edu")
	set.Upsert("", "prof", "Prof. Xu", "prof@x.edu")

	require.Len(t, set.List, 1)
	assert.Equal(t, "7", set.List[0].ID)
	assert.Equal(t, "prof", set.List[0].Username)
	assert.Equal(t, "Prof. Xu", set.List[0].Name)
	assert.True(t, set.Contains("prof"))
	assert.True(t, set.Contains("7"))
}

func TestLearnerSetUpsert(t *testing.T) {
	set := NewLearnerSet()
	i := set.Upsert("42", "alice", "", "", "")
	j := set.Upsert("", "alice", "Alice Ngo", "alice@x.edu", "2024-09-01T00:00:00Z")

	assert.Equal(t, i, j)
	require.Len(t, set.List, 1)
	assert.Equal(t, "42", set.List[0].ID)
	assert.Equal(t, "Alice Ngo", set.List[0].Name)
	assert.Equal(t, "alice@x.edu", set.List[0].Email)
	assert.Equal(t, "2024-09-01T00:00:00Z", set.List[0].TimeEnrolled)
	assert.NotNil(t, set.List[0].Assignments)
}
