package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmint/lms-data/internal/lms"
)

func validPayload() lms.NormalizedPayload {
	pct := 80.0
	return lms.NormalizedPayload{
		Source: lms.Source{
			LMS:       lms.SourceEdx,
			FetchedAt: time.Now().UTC(),
		},
		Course: lms.Course{
			ID:       "course-v1:MITx+6.00x+2024",
			Metadata: map[string]interface{}{},
		},
		Instructors: []lms.Instructor{
			{ID: "1", Username: "prof", Email: "prof@mit.edu"},
		},
		Learners: []lms.Learner{
			{
				ID: "10", Username: "alice", Email: "alice@x.edu",
				Assignments: []lms.Assignment{
					{
						ID:       "hw1",
						Type:     "Homework",
						Title:    "hw1",
						MaxScore: lms.Float(10),
						Submissions: []lms.Submission{
							{
								WorkflowState: lms.StateGraded,
								Grades: []lms.Grade{
									{Score: lms.Float(8), TotalScore: lms.Float(10), Percentage: &pct},
								},
							},
						},
					},
				},
			},
		},
		Diagnostics: lms.Diagnostics{Notes: []string{}},
	}
}

func TestValidPayloadPasses(t *testing.T) {
	result := Normalized(validPayload())
	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestUnknownLMSRejected(t *testing.T) {
	p := validPayload()
	p.Source.LMS = "blackboard"

	result := Normalized(p)
	assert.False(t, result.Valid)
}

func TestNilInstructorsRejected(t *testing.T) {
	p := validPayload()
	p.Instructors = nil

	result := Normalized(p)
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "instructors")
}

func TestEmptyOptionalArraysRejected(t *testing.T) {
	p := validPayload()
	p.Learners = []lms.Learner{}
	p.Transcript = []lms.TranscriptEntry{}
	p.Chat = []lms.Channel{}
	p.Diagnostics = lms.Diagnostics{Notes: []string{}}

	result := Normalized(p)
	require.False(t, result.Valid)
	joined := ""
	for _, e := range result.Errors {
		joined += e + "\n"
	}
	assert.Contains(t, joined, "learners")
	assert.Contains(t, joined, "transcript")
	assert.Contains(t, joined, "chat")
}

func TestIdentityOverlapRejected(t *testing.T) {
	p := validPayload()
	p.Learners[0].Email = "prof@mit.edu"
	p.Diagnostics = lms.Diagnostics{Notes: []string{}}

	result := Normalized(p)
	require.False(t, result.Valid)

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "both instructors and learners") {
			found = true
		}
	}
	assert.True(t, found, "expected a disjointness error, got %v", result.Errors)
}

func TestInconsistentMaxScoreRejected(t *testing.T) {
	p := validPayload()
	second := p.Learners[0]
	second.ID = "11"
	second.Username = "bob"
	second.Email = "bob@x.edu"
	second.Assignments = []lms.Assignment{
		{ID: "hw1", MaxScore: lms.Float(8), Submissions: []lms.Submission{
			{WorkflowState: lms.StateSubmitted, Grades: []lms.Grade{}},
		}},
	}
	p.Learners = append(p.Learners, second)

	result := Normalized(p)
	require.False(t, result.Valid)

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "maxScore differs") {
			found = true
		}
	}
	assert.True(t, found, "expected a max-score error, got %v", result.Errors)
}

func TestWrongPercentageRejected(t *testing.T) {
	p := validPayload()
	wrong := 75.0
	p.Learners[0].Assignments[0].Submissions[0].Grades[0].Percentage = &wrong

	result := Normalized(p)
	require.False(t, result.Valid)
}

func TestStaleMissingEmailCountRejected(t *testing.T) {
	p := validPayload()
	p.Diagnostics.MissingEmailCount = 3

	result := Normalized(p)
	require.False(t, result.Valid)

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "missingEmailCount") {
			found = true
		}
	}
	assert.True(t, found, "expected a diagnostics error, got %v", result.Errors)
}
