// Package edx normalizes raw edX course aggregates into the canonical
// payload. edX is the richest source: staff arrive both as an explicit
// list and as flagged enrollments, and the gradebook reports per-user
// section breakdowns whose points-possible can disagree between users.
package edx

import (
	"strings"
	"time"

	"github.com/skillmint/lms-data/internal/lms"
)

// --------------------------------------------------------------------------
// Raw shapes
// --------------------------------------------------------------------------

// RawCourse is the raw edX aggregate: course info, enrollments (staff and
// learners mixed), the explicit staff list, the gradebook, and the
// discussion/update feeds.
type RawCourse struct {
	Course      *RawCourseInfo      `json:"course"`
	Enrollments []RawEnrollment     `json:"enrollments"`
	Staff       []RawStaffMember    `json:"staff"`
	Gradebook   []RawGradebookEntry `json:"gradebook"`
	Discussions []RawThread         `json:"discussions"`
	Updates     []RawUpdate         `json:"updates"`
}

type RawCourseInfo struct {
	ID       string      `json:"id"`
	CourseID string      `json:"course_id"`
	Name     string      `json:"name"`
	Org      string      `json:"org"`
	Number   string      `json:"number"`
	Start    interface{} `json:"start"`
	End      interface{} `json:"end"`
	Pacing   string      `json:"pacing"`
}

// RawUser covers both the flat person fields and the nested "user" object
// edX mixes across endpoints.
type RawUser struct {
	ID       interface{} `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	IsStaff  *bool       `json:"is_staff"`
}

type RawEnrollment struct {
	RawUser
	User          *RawUser    `json:"user"`
	Mode          string      `json:"mode"`
	Role          string      `json:"role"`
	IsActive      *bool       `json:"is_active"`
	IsActiveStaff *bool       `json:"is_active_staff"`
	Created       interface{} `json:"created"`
}

type RawStaffMember struct {
	ID       interface{} `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     string      `json:"role"`
}

type RawGradebookEntry struct {
	UserID           interface{}       `json:"user_id"`
	Username         string            `json:"username"`
	Email            string            `json:"email"`
	FullName         string            `json:"full_name"`
	SectionBreakdown []RawSectionScore `json:"section_breakdown"`
}

type RawSectionScore struct {
	Label          string   `json:"label"`
	ModuleID       string   `json:"module_id"`
	SubsectionName string   `json:"subsection_name"`
	Category       string   `json:"category"`
	ScoreEarned    *float64 `json:"score_earned"`
	ScorePossible  *float64 `json:"score_possible"`
	Attempted      *bool    `json:"attempted"`
}

type RawThread struct {
	ID            interface{} `json:"id"`
	Title         string      `json:"title"`
	RawBody       string      `json:"raw_body"`
	Author        string      `json:"author"`
	CommentableID string      `json:"commentable_id"`
	CreatedAt     interface{} `json:"created_at"`
}

type RawUpdate struct {
	ID      interface{} `json:"id"`
	Content string      `json:"content"`
	Author  string      `json:"author"`
	Date    interface{} `json:"date"`
}

// --------------------------------------------------------------------------
// Normalization
// --------------------------------------------------------------------------

// Normalize converts a raw edX aggregate into the canonical payload.
// Pure and stateless; safe to call concurrently.
func Normalize(raw RawCourse) lms.NormalizedPayload {
	payload := lms.NormalizedPayload{
		Source: lms.Source{
			LMS:         lms.SourceEdx,
			RawCourseID: rawCourseID(raw.Course),
			FetchedAt:   time.Now().UTC(),
		},
		Course: normalizeCourse(raw.Course),
	}

	if raw.Course != nil && raw.Course.Org != "" {
		payload.Institution = &lms.Institution{ID: raw.Course.Org, Name: raw.Course.Org}
	}

	instructors := collectInstructors(raw)
	learners := collectLearners(raw.Enrollments, instructors)
	attachGradebook(learners, raw.Gradebook, instructors)

	payload.Instructors = instructors.List
	if kept := lms.DropInstructorCollisions(instructors.List, learners.List); len(kept) > 0 {
		payload.Learners = kept
	}
	payload.Transcript = normalizeUpdates(raw.Updates)
	payload.Chat = normalizeDiscussions(raw.Discussions)
	payload.Diagnostics = lms.BuildDiagnostics(payload.Learners)

	return payload
}

func rawCourseID(info *RawCourseInfo) string {
	if info == nil {
		return ""
	}
	if info.ID != "" {
		return info.ID
	}
	return info.CourseID
}

func normalizeCourse(info *RawCourseInfo) lms.Course {
	course := lms.Course{ID: lms.CourseIDUnknown, Metadata: map[string]interface{}{}}
	if info == nil {
		return course
	}
	if id := rawCourseID(info); id != "" {
		course.ID = id
	}
	course.Name = info.Name
	course.StartDate = lms.EnsureISO(info.Start)
	course.EndDate = lms.EnsureISO(info.End)
	if info.Org != "" {
		course.Metadata["org"] = info.Org
	}
	if info.Number != "" {
		course.Metadata["number"] = info.Number
	}
	if info.Pacing != "" {
		course.Metadata["pacing"] = info.Pacing
	}
	return course
}

// --------------------------------------------------------------------------
// People
// --------------------------------------------------------------------------

// collectInstructors applies classification rule 1 (explicit staff list)
// then rules 2-3 over the enrollment list.
func collectInstructors(raw RawCourse) *lms.InstructorSet {
	instructors := lms.NewInstructorSet()
	for _, s := range raw.Staff {
		instructors.Upsert(lms.String(s.ID), s.Username, s.Name, s.Email)
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

// isStaffEnrollment applies rules 2-3: is_staff / is_active_staff on the
// record or its nested user, then the role string heuristic.
func isStaffEnrollment(e RawEnrollment) bool {
	if e.IsStaff != nil && *e.IsStaff {
		return true
	}
	if e.User != nil && e.User.IsStaff != nil && *e.User.IsStaff {
		return true
	}
	if e.IsActiveStaff != nil && *e.IsActiveStaff {
		return true
	}
	return lms.IsStaffRole(e.Role)
}

// personFields resolves person fields from the flat record, falling back
// one nesting level into the user object.
func personFields(e RawEnrollment) (id, username, name, email string) {
	id = lms.String(e.RawUser.ID)
	username = e.RawUser.Username
	name = e.RawUser.Name
	email = e.RawUser.Email
	if e.User != nil {
		if id == "" {
			id = lms.String(e.User.ID)
		}
		if username == "" {
			username = e.User.Username
		}
		if name == "" {
			name = e.User.Name
		}
		if email == "" {
			email = e.User.Email
		}
	}
	return id, username, name, email
}

func collectLearners(enrollments []RawEnrollment, instructors *lms.InstructorSet) *lms.LearnerSet {
	learners := lms.NewLearnerSet()
	for _, e := range enrollments {
		if isStaffEnrollment(e) {
			continue
		}
		id, username, name, email := personFields(e)
		if _, ok := lms.IdentityKey(id, username, email); !ok {
			continue
		}
		if instructors.Contains(id, username, email) {
			continue // instructor identity always wins
		}
		learners.Upsert(id, username, name, email, lms.EnsureISO(e.Created))
	}
	return learners
}

// --------------------------------------------------------------------------
// Gradebook
// --------------------------------------------------------------------------

// attachGradebook runs the two-pass max-score reconciliation and builds
// each learner's assignment list. Gradebook entries whose identity never
// appeared in the enrollments still become learners, unless the identity
// belongs to an instructor.
func attachGradebook(learners *lms.LearnerSet, gradebook []RawGradebookEntry, instructors *lms.InstructorSet) {
	// Pass 1: observe every points-possible value per work item.
	tracker := lms.NewMaxScoreTracker()
	for _, entry := range gradebook {
		for _, section := range entry.SectionBreakdown {
			tracker.Observe(workItemID(section), section.ScorePossible)
		}
	}

	// Pass 2: build assignment entries against the reconciled maximums.
	for _, entry := range gradebook {
		id := lms.String(entry.UserID)
		if _, ok := lms.IdentityKey(id, entry.Username, entry.Email); !ok {
			continue
		}
		if instructors.Contains(id, entry.Username, entry.Email) {
			continue
		}
		i := learners.Upsert(id, entry.Username, entry.FullName, entry.Email, "")
		for _, section := range entry.SectionBreakdown {
			appendSection(&learners.List[i], section, tracker)
		}
	}
}

func workItemID(s RawSectionScore) string {
	if s.Label != "" {
		return s.Label
	}
	return s.ModuleID
}

// appendSection merges one section score into the learner's assignments:
// a repeated work item id adds a submission to the existing entry instead
// of duplicating it.
func appendSection(learner *lms.Learner, section RawSectionScore, tracker *lms.MaxScoreTracker) {
	id := workItemID(section)
	if id == "" {
		return
	}
	maxScore := tracker.Resolve(id, section.ScorePossible)
	sub := normalizeSection(section, maxScore)

	for i := range learner.Assignments {
		if learner.Assignments[i].ID == id {
			learner.Assignments[i].Submissions = append(learner.Assignments[i].Submissions, sub)
			return
		}
	}

	assignment := lms.Assignment{
		ID:             id,
		Type:           assignmentType(section.Category),
		Title:          section.Label,
		MaxScore:       maxScore,
		IsQuiz:         isQuizCategory(section.Category),
		SubsectionName: section.SubsectionName,
		Submissions:    []lms.Submission{sub},
	}
	if assignment.Title == "" {
		assignment.Title = id
	}
	learner.Assignments = append(learner.Assignments, assignment)
}

// normalizeSection infers the workflow state and computes the grade against
// the reconciled max, not the per-record points possible. Unattempted
// sections still emit a zero grade whenever a max score is defined.
func normalizeSection(section RawSectionScore, maxScore *float64) lms.Submission {
	attempted := section.Attempted != nil && *section.Attempted

	switch {
	case section.ScoreEarned != nil:
		return lms.Submission{
			WorkflowState: lms.StateGraded,
			Grades:        []lms.Grade{lms.NewGrade(section.ScoreEarned, maxScore)},
		}
	case attempted:
		return lms.Submission{
			WorkflowState: lms.StateSubmitted,
			Grades:        []lms.Grade{},
		}
	default:
		sub := lms.Submission{WorkflowState: lms.StateNotAttempted, Grades: []lms.Grade{}}
		if maxScore != nil {
			sub.Grades = append(sub.Grades, lms.ZeroGrade(maxScore))
		}
		return sub
	}
}

func assignmentType(category string) string {
	if category != "" {
		return category
	}
	return "assignment"
}

func isQuizCategory(category string) bool {
	lower := strings.ToLower(category)
	return strings.Contains(lower, "quiz") || strings.Contains(lower, "exam")
}

// --------------------------------------------------------------------------
// Discussions and updates
// --------------------------------------------------------------------------

// normalizeDiscussions groups threads into channels by their commentable
// id, falling back to a single "discussion" channel.
func normalizeDiscussions(threads []RawThread) []lms.Channel {
	if len(threads) == 0 {
		return nil
	}
	var channels []lms.Channel
	index := map[string]int{}
	for _, t := range threads {
		name := t.CommentableID
		if name == "" {
			name = "discussion"
		}
		i, ok := index[name]
		if !ok {
			channels = append(channels, lms.Channel{Channel: name, Messages: []lms.Message{}})
			i = len(channels) - 1
			index[name] = i
		}
		text := t.Title
		if t.RawBody != "" {
			if text != "" {
				text += "\n"
			}
			text += t.RawBody
		}
		channels[i].Messages = append(channels[i].Messages, lms.Message{
			ID:   lms.String(t.ID),
			From: t.Author,
			Text: text,
			TS:   lms.EnsureISO(t.CreatedAt),
		})
	}
	return channels
}

func normalizeUpdates(updates []RawUpdate) []lms.TranscriptEntry {
	if len(updates) == 0 {
		return nil
	}
	entries := make([]lms.TranscriptEntry, 0, len(updates))
	for _, u := range updates {
		entries = append(entries, lms.TranscriptEntry{
			ID:       lms.String(u.ID),
			Author:   u.Author,
			Text:     u.Content,
			PostedAt: lms.EnsureISO(u.Date),
		})
	}
	return entries
}
