// Package lms defines the canonical course data types that all source
// adapters normalize into. These structs are the contract between the
// per-LMS adapters and every downstream consumer — adapters output these,
// the validator checks them, the store persists them.
//
// Adding a new LMS means implementing one Normalize function that returns
// a NormalizedPayload. Consumers never change.
package lms

import "time"

// Supported source systems.
const (
	SourceEdx             = "edx"
	SourceCanvas          = "canvas"
	SourceMoodle          = "moodle"
	SourceGoogleClassroom = "google-classroom"
)

// CourseIDUnknown is the sentinel course id used when the raw source
// carries no identifiable id at all.
const CourseIDUnknown = "NA"

// Source stamps a payload with its provenance. Created fresh on every
// normalization call.
type Source struct {
	LMS         string    `json:"lms" validate:"required,oneof=edx canvas moodle google-classroom"`
	RawCourseID string    `json:"rawCourseId"`
	FetchedAt   time.Time `json:"fetchedAt" validate:"required"`
}

// Institution is the account/org/category the course belongs to, when the
// source provides one.
type Institution struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Course is the normalized course record. ID is always populated — the
// "NA" sentinel when the source has no identifiable id. Metadata keeps
// source-specific fields that have no canonical slot.
type Course struct {
	ID        string                 `json:"id" validate:"required"`
	Name      string                 `json:"name,omitempty"`
	StartDate string                 `json:"startDate,omitempty"`
	EndDate   string                 `json:"endDate,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Instructor is a person promoted to a staff role, either because the
// source lists them explicitly or because a role heuristic says so.
type Instructor struct {
	ID       string `json:"instructor_id,omitempty"`
	Username string `json:"instructor_username,omitempty"`
	Name     string `json:"instructor_name,omitempty"`
	Email    string `json:"instructor_email,omitempty"`
}

// Learner is an enrolled student and their assignment history. The set of
// learner identity keys is disjoint from the instructor set.
type Learner struct {
	ID           string       `json:"id,omitempty"`
	Email        string       `json:"email,omitempty"`
	Username     string       `json:"username,omitempty"`
	Name         string       `json:"name,omitempty"`
	TimeEnrolled string       `json:"time_enrolled,omitempty"`
	Assignments  []Assignment `json:"assignments"`
}

// Assignment is one work item as seen by one learner. MaxScore for a given
// assignment id is identical across all learners in one payload — the
// two-pass reconciliation guarantees it.
type Assignment struct {
	ID             string       `json:"id" validate:"required"`
	Type           string       `json:"type"`
	Title          string       `json:"title"`
	MaxScore       *float64     `json:"maxScore"`
	IsQuiz         bool         `json:"is_quiz_assignment"`
	SubsectionName string       `json:"subsection_name,omitempty"`
	TotalQuestions *int         `json:"total_questions,omitempty"`
	Submissions    []Submission `json:"submissions"`
}

// Workflow states for a submission.
const (
	StateSubmitted    = "submitted"
	StateGraded       = "graded"
	StateUnsubmitted  = "unsubmitted"
	StateNotAttempted = "not_attempted"
)

// Submission is one attempt (or the recorded absence of one) on a work item.
type Submission struct {
	SubmittedAt   string           `json:"submitted_at,omitempty"`
	WorkflowState string           `json:"workflow_state" validate:"required,oneof=submitted graded unsubmitted not_attempted"`
	Grades        []Grade          `json:"grades"`
	Questions     []QuestionAnswer `json:"questions,omitempty"`
}

// Grade holds one score against one total. Percentage is round2 of
// score/totalscore*100 when both are defined and totalscore > 0, else null.
type Grade struct {
	Score      *float64 `json:"score"`
	TotalScore *float64 `json:"totalscore"`
	Percentage *float64 `json:"percentage"`
}

// QuestionAnswer is a per-question breakdown for quiz submissions, where
// the source exposes one.
type QuestionAnswer struct {
	Question string   `json:"question,omitempty"`
	Answer   string   `json:"answer,omitempty"`
	Correct  *bool    `json:"correct,omitempty"`
	Points   *float64 `json:"points,omitempty"`
}

// TranscriptEntry is a course update/announcement normalized into the
// transcript feed.
type TranscriptEntry struct {
	ID       string `json:"id,omitempty"`
	Author   string `json:"author,omitempty"`
	Text     string `json:"text,omitempty"`
	PostedAt string `json:"postedAt,omitempty"`
}

// Channel is one named discussion stream.
type Channel struct {
	Channel  string    `json:"channel" validate:"required"`
	Messages []Message `json:"messages"`
}

// Message is one post inside a channel.
type Message struct {
	ID   string `json:"id,omitempty"`
	From string `json:"from,omitempty"`
	Text string `json:"text,omitempty"`
	TS   string `json:"ts,omitempty"`
}

// Diagnostics describes data-quality gaps discovered during normalization.
// Computed once, at the end, from the final learner list. The activity
// counters are Moodle-specific coverage extensions.
type Diagnostics struct {
	MissingEmailCount         int      `json:"missingEmailCount"`
	Notes                     []string `json:"notes"`
	ActivityCount             *int     `json:"activityCount,omitempty"`
	ActivitiesWithSubmissions *int     `json:"activitiesWithSubmissions,omitempty"`
}

// NormalizedPayload is the canonical output of every adapter.
//
// Presence asymmetry, preserved deliberately for existing consumers:
// Instructors is always a non-nil array (possibly empty); Learners,
// Transcript and Chat are omitted entirely when empty.
type NormalizedPayload struct {
	Source      Source            `json:"source" validate:"required"`
	Institution *Institution      `json:"institution,omitempty"`
	Course      Course            `json:"course" validate:"required"`
	Instructors []Instructor      `json:"instructors"`
	Learners    []Learner         `json:"learners,omitempty"`
	Transcript  []TranscriptEntry `json:"transcript,omitempty"`
	Chat        []Channel         `json:"chat,omitempty"`
	Diagnostics Diagnostics       `json:"diagnostics"`
}
