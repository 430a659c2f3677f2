// Package canvas normalizes raw Canvas course aggregates into the
// canonical payload. Canvas mixes staff and students inside one enrollment
// list (distinguished by enrollment type strings) and reports submissions
// as flat per-assessment arrays keyed by assignment and user ids.
package canvas

import (
	"strings"
	"time"

	"github.com/skillmint/lms-data/internal/lms"
)

// --------------------------------------------------------------------------
// Raw shapes
// --------------------------------------------------------------------------

// RawCourse is the raw Canvas aggregate.
type RawCourse struct {
	Course           *RawCourseInfo  `json:"course"`
	Enrollments      []RawEnrollment `json:"enrollments"`
	Students         []RawUser       `json:"students"`
	Teachers         []RawUser       `json:"teachers"`
	Assignments      []RawAssignment `json:"assignments"`
	Submissions      []RawSubmission `json:"submissions"`
	DiscussionTopics []RawTopic      `json:"discussion_topics"`
}

type RawCourseInfo struct {
	ID         interface{} `json:"id"`
	Name       string      `json:"name"`
	CourseCode string      `json:"course_code"`
	StartAt    interface{} `json:"start_at"`
	EndAt      interface{} `json:"end_at"`
	TimeZone   string      `json:"time_zone"`
	Account    *struct {
		ID   interface{} `json:"id"`
		Name string      `json:"name"`
	} `json:"account"`
}

type RawUser struct {
	ID           interface{} `json:"id"`
	Name         string      `json:"name"`
	SortableName string      `json:"sortable_name"`
	LoginID      string      `json:"login_id"`
	Email        string      `json:"email"`
}

type RawEnrollment struct {
	ID              interface{} `json:"id"`
	UserID          interface{} `json:"user_id"`
	Type            string      `json:"type"`
	Role            string      `json:"role"`
	EnrollmentState string      `json:"enrollment_state"`
	CreatedAt       interface{} `json:"created_at"`
	User            *RawUser    `json:"user"`
}

type RawAssignment struct {
	ID               interface{} `json:"id"`
	Name             string      `json:"name"`
	PointsPossible   *float64    `json:"points_possible"`
	IsQuizAssignment *bool       `json:"is_quiz_assignment"`
	QuestionCount    *int        `json:"question_count"`
	SubmissionTypes  []string    `json:"submission_types"`
	DueAt            interface{} `json:"due_at"`
}

// RawSubmission optionally carries its own nested assignment snapshot
// (include[]=assignment), whose points_possible can differ per student
// when grading was adjusted — the reconciliation pass handles that.
type RawSubmission struct {
	AssignmentID  interface{}    `json:"assignment_id"`
	UserID        interface{}    `json:"user_id"`
	Score         *float64       `json:"score"`
	EnteredScore  *float64       `json:"entered_score"`
	WorkflowState string         `json:"workflow_state"`
	SubmittedAt   interface{}    `json:"submitted_at"`
	Assignment    *RawAssignment `json:"assignment"`
}

type RawTopic struct {
	ID       interface{} `json:"id"`
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	UserName string      `json:"user_name"`
	PostedAt interface{} `json:"posted_at"`
}

// --------------------------------------------------------------------------
// Normalization
// --------------------------------------------------------------------------

// Normalize converts a raw Canvas aggregate into the canonical payload.
// Pure and stateless; safe to call concurrently.
func Normalize(raw RawCourse) lms.NormalizedPayload {
	payload := lms.NormalizedPayload{
		Source: lms.Source{
			LMS:         lms.SourceCanvas,
			RawCourseID: courseID(raw.Course),
			FetchedAt:   time.Now().UTC(),
		},
		Course: normalizeCourse(raw.Course),
	}

	if raw.Course != nil && raw.Course.Account != nil && raw.Course.Account.Name != "" {
		payload.Institution = &lms.Institution{
			ID:   lms.String(raw.Course.Account.ID),
			Name: raw.Course.Account.Name,
		}
	}

	instructors := collectInstructors(raw)
	learners := collectLearners(raw, instructors)
	attachSubmissions(learners, raw, instructors)

	payload.Instructors = instructors.List
	if kept := lms.DropInstructorCollisions(instructors.List, learners.List); len(kept) > 0 {
		payload.Learners = kept
	}
	payload.Chat = normalizeTopics(raw.DiscussionTopics)
	payload.Diagnostics = lms.BuildDiagnostics(payload.Learners)

	return payload
}

func courseID(info *RawCourseInfo) string {
	if info == nil {
		return ""
	}
	return lms.String(info.ID)
}

func normalizeCourse(info *RawCourseInfo) lms.Course {
	course := lms.Course{ID: lms.CourseIDUnknown, Metadata: map[string]interface{}{}}
	if info == nil {
		return course
	}
	if id := lms.String(info.ID); id != "" {
		course.ID = id
	}
	course.Name = info.Name
	course.StartDate = lms.EnsureISO(info.StartAt)
	course.EndDate = lms.EnsureISO(info.EndAt)
	if info.CourseCode != "" {
		course.Metadata["course_code"] = info.CourseCode
	}
	if info.TimeZone != "" {
		course.Metadata["time_zone"] = info.TimeZone
	}
	return course
}

// --------------------------------------------------------------------------
// People
// --------------------------------------------------------------------------

// collectInstructors applies rule 1 (explicit teachers array) then rule 3
// (enrollment type/role strings) over the enrollment list.
func collectInstructors(raw RawCourse) *lms.InstructorSet {
	instructors := lms.NewInstructorSet()
	for _, t := range raw.Teachers {
		instructors.Upsert(lms.String(t.ID), t.LoginID, t.Name, t.Email)
	}
	for _, e := range raw.Enrollments {
		if !isStaffEnrollment(e) {
			continue
		}
		id, username, name, email := personFields(e)
		instructors.Upsert(id, username, name, email)
	}
	return instructors
}

// isStaffEnrollment matches Canvas enrollment type strings such as
// "TeacherEnrollment" via the shared role heuristic.
func isStaffEnrollment(e RawEnrollment) bool {
	return lms.IsStaffRole(e.Type) || lms.IsStaffRole(e.Role)
}

// personFields resolves person fields from the enrollment, falling back
// one nesting level into the user object.
func personFields(e RawEnrollment) (id, username, name, email string) {
	id = lms.String(e.UserID)
	if e.User != nil {
		if id == "" {
			id = lms.String(e.User.ID)
		}
		username = e.User.LoginID
		name = e.User.Name
		email = e.User.Email
	}
	return id, username, name, email
}

func collectLearners(raw RawCourse, instructors *lms.InstructorSet) *lms.LearnerSet {
	learners := lms.NewLearnerSet()
	for _, e := range raw.Enrollments {
		if isStaffEnrollment(e) {
			continue
		}
		id, username, name, email := personFields(e)
		if _, ok := lms.IdentityKey(id, username, email); !ok {
			continue
		}
		if instructors.Contains(id, username, email) {
			continue
		}
		learners.Upsert(id, username, name, email, lms.EnsureISO(e.CreatedAt))
	}
	// The student roster array can carry people the enrollment list missed
	// (concluded enrollments). Same rules apply: instructors win.
	for _, s := range raw.Students {
		id := lms.String(s.ID)
		if _, ok := lms.IdentityKey(id, s.LoginID, s.Email); !ok {
			continue
		}
		if instructors.Contains(id, s.LoginID, s.Email) {
			continue
		}
		learners.Upsert(id, s.LoginID, s.Name, s.Email, "")
	}
	return learners
}

// --------------------------------------------------------------------------
// Assignments and submissions
// --------------------------------------------------------------------------

// attachSubmissions builds every learner's assignment list. Every
// assignment the course defines appears under every learner, with a
// placeholder zero grade when no submission exists, so completion-rate
// consumers see the full picture. Max scores are reconciled in two passes.
func attachSubmissions(learners *lms.LearnerSet, raw RawCourse, instructors *lms.InstructorSet) {
	// Pass 1: observe points-possible from the assignment list and from
	// every per-student assignment snapshot.
	tracker := lms.NewMaxScoreTracker()
	for _, a := range raw.Assignments {
		tracker.Observe(lms.String(a.ID), a.PointsPossible)
	}
	for _, s := range raw.Submissions {
		if s.Assignment != nil {
			tracker.Observe(lms.String(s.AssignmentID), s.Assignment.PointsPossible)
		}
	}

	// Index submissions by assignment id + learner id.
	type subKey struct{ assignment, user string }
	submissions := make(map[subKey]RawSubmission, len(raw.Submissions))
	for _, s := range raw.Submissions {
		k := subKey{lms.String(s.AssignmentID), lms.String(s.UserID)}
		if k.assignment == "" || k.user == "" {
			continue
		}
		submissions[k] = s
	}

	// Pass 2: one entry per (learner, assignment) against reconciled maxes.
	for i := range learners.List {
		learner := &learners.List[i]
		for _, a := range raw.Assignments {
			aid := lms.String(a.ID)
			if aid == "" {
				continue
			}
			maxScore := tracker.Resolve(aid, a.PointsPossible)
			assignment := lms.Assignment{
				ID:             aid,
				Type:           assignmentType(a),
				Title:          a.Name,
				MaxScore:       maxScore,
				IsQuiz:         a.IsQuizAssignment != nil && *a.IsQuizAssignment,
				TotalQuestions: a.QuestionCount,
				Submissions:    []lms.Submission{},
			}
			sub, found := submissions[subKey{aid, learner.ID}]
			assignment.Submissions = append(assignment.Submissions, normalizeSubmission(sub, found, maxScore))
			learner.Assignments = append(learner.Assignments, assignment)
		}
	}
}

func assignmentType(a RawAssignment) string {
	if len(a.SubmissionTypes) > 0 && a.SubmissionTypes[0] != "" {
		return a.SubmissionTypes[0]
	}
	return "assignment"
}

// normalizeSubmission maps Canvas workflow states onto the canonical ones
// and always grades against the reconciled max. A missing record becomes
// not_attempted with a placeholder zero grade when the assignment defines
// a max score.
func normalizeSubmission(s RawSubmission, found bool, maxScore *float64) lms.Submission {
	if !found {
		sub := lms.Submission{WorkflowState: lms.StateNotAttempted, Grades: []lms.Grade{}}
		if maxScore != nil {
			sub.Grades = append(sub.Grades, lms.ZeroGrade(maxScore))
		}
		return sub
	}

	score := s.Score
	if score == nil {
		score = s.EnteredScore
	}

	sub := lms.Submission{
		SubmittedAt: lms.EnsureISO(s.SubmittedAt),
		Grades:      []lms.Grade{},
	}

	switch {
	case strings.EqualFold(s.WorkflowState, "graded") || score != nil:
		sub.WorkflowState = lms.StateGraded
		sub.Grades = append(sub.Grades, lms.NewGrade(score, maxScore))
	case strings.EqualFold(s.WorkflowState, "submitted") || strings.EqualFold(s.WorkflowState, "pending_review"):
		sub.WorkflowState = lms.StateSubmitted
	default:
		sub.WorkflowState = lms.StateUnsubmitted
		if maxScore != nil {
			sub.Grades = append(sub.Grades, lms.ZeroGrade(maxScore))
		}
	}
	return sub
}

// --------------------------------------------------------------------------
// Discussions
// --------------------------------------------------------------------------

// normalizeTopics flattens discussion topics into a single "discussion"
// channel, one message per topic.
func normalizeTopics(topics []RawTopic) []lms.Channel {
	if len(topics) == 0 {
		return nil
	}
	channel := lms.Channel{Channel: "discussion", Messages: []lms.Message{}}
	for _, t := range topics {
		text := t.Title
		if t.Message != "" {
			if text != "" {
				text += "\n"
			}
			text += t.Message
		}
		channel.Messages = append(channel.Messages, lms.Message{
			ID:   lms.String(t.ID),
			From: t.UserName,
			Text: text,
			TS:   lms.EnsureISO(t.PostedAt),
		})
	}
	return []lms.Channel{channel}
}
