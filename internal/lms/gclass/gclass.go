// Package gclass normalizes raw Google Classroom course aggregates into
// the canonical payload. Classroom splits people into explicit teachers
// and students arrays with nested profiles, keys submissions by courseWork
// and user ids, and reports work state through upper-case state enums.
package gclass

import (
	"time"

	"github.com/skillmint/lms-data/internal/lms"
)

// --------------------------------------------------------------------------
// Raw shapes
// --------------------------------------------------------------------------

// RawCourse is the raw Google Classroom aggregate.
type RawCourse struct {
	Course        *RawCourseInfo         `json:"course"`
	Teachers      []RawMember            `json:"teachers"`
	Students      []RawMember            `json:"students"`
	CourseWork    []RawCourseWork        `json:"courseWork"`
	Submissions   []RawStudentSubmission `json:"studentSubmissions"`
	Announcements []RawAnnouncement      `json:"announcements"`
}

type RawCourseInfo struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Section            string      `json:"section"`
	DescriptionHeading string      `json:"descriptionHeading"`
	Room               string      `json:"room"`
	OwnerID            string      `json:"ownerId"`
	CourseState        string      `json:"courseState"`
	CreationTime       interface{} `json:"creationTime"`
	UpdateTime         interface{} `json:"updateTime"`
}

// RawMember is one teachers/students entry: a user id plus a nested
// profile carrying name and email.
type RawMember struct {
	CourseID string      `json:"courseId"`
	UserID   string      `json:"userId"`
	Profile  *RawProfile `json:"profile"`
}

type RawProfile struct {
	ID   string `json:"id"`
	Name *struct {
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
		FullName   string `json:"fullName"`
	} `json:"name"`
	EmailAddress string `json:"emailAddress"`
}

type RawCourseWork struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	WorkType     string      `json:"workType"`
	State        string      `json:"state"`
	MaxPoints    *float64    `json:"maxPoints"`
	CreationTime interface{} `json:"creationTime"`
}

type RawStudentSubmission struct {
	ID            string      `json:"id"`
	CourseWorkID  string      `json:"courseWorkId"`
	UserID        string      `json:"userId"`
	State         string      `json:"state"`
	AssignedGrade *float64    `json:"assignedGrade"`
	DraftGrade    *float64    `json:"draftGrade"`
	Late          *bool       `json:"late"`
	UpdateTime    interface{} `json:"updateTime"`
	CreationTime  interface{} `json:"creationTime"`
}

type RawAnnouncement struct {
	ID            string      `json:"id"`
	Text          string      `json:"text"`
	CreatorUserID string      `json:"creatorUserId"`
	CreationTime  interface{} `json:"creationTime"`
}

// --------------------------------------------------------------------------
// Normalization
// --------------------------------------------------------------------------

// Normalize converts a raw Google Classroom aggregate into the canonical
// payload. Pure and stateless; safe to call concurrently.
func Normalize(raw RawCourse) lms.NormalizedPayload {
	payload := lms.NormalizedPayload{
		Source: lms.Source{
			LMS:         lms.SourceGoogleClassroom,
			RawCourseID: courseID(raw.Course),
			FetchedAt:   time.Now().UTC(),
		},
		Course: normalizeCourse(raw.Course),
	}

	instructors := collectInstructors(raw.Teachers)
	learners := collectLearners(raw.Students, instructors)
	attachCourseWork(learners, raw, instructors)

	payload.Instructors = instructors.List
	if kept := lms.DropInstructorCollisions(instructors.List, learners.List); len(kept) > 0 {
		payload.Learners = kept
	}
	// Classroom always gets its discussion channel, even with no
	// announcements — consumers rely on the channel being addressable.
	payload.Chat = []lms.Channel{normalizeAnnouncements(raw.Announcements)}
	payload.Diagnostics = lms.BuildDiagnostics(payload.Learners)

	return payload
}

func courseID(info *RawCourseInfo) string {
	if info == nil {
		return ""
	}
	return info.ID
}

func normalizeCourse(info *RawCourseInfo) lms.Course {
	course := lms.Course{ID: lms.CourseIDUnknown, Metadata: map[string]interface{}{}}
	if info == nil {
		return course
	}
	if info.ID != "" {
		course.ID = info.ID
	}
	course.Name = info.Name
	course.StartDate = lms.EnsureISO(info.CreationTime)
	if info.Section != "" {
		course.Metadata["section"] = info.Section
	}
	if info.DescriptionHeading != "" {
		course.Metadata["description_heading"] = info.DescriptionHeading
	}
	if info.Room != "" {
		course.Metadata["room"] = info.Room
	}
	if info.CourseState != "" {
		course.Metadata["course_state"] = info.CourseState
	}
	return course
}

// --------------------------------------------------------------------------
// People
// --------------------------------------------------------------------------

// memberFields resolves identity fields from a member record: the flat
// userId first, then one level into the nested profile.
func memberFields(m RawMember) (id, name, email string) {
	id = m.UserID
	if m.Profile != nil {
		if id == "" {
			id = m.Profile.ID
		}
		email = m.Profile.EmailAddress
		if m.Profile.Name != nil {
			name = m.Profile.Name.FullName
		}
	}
	return id, name, email
}

func collectInstructors(teachers []RawMember) *lms.InstructorSet {
	instructors := lms.NewInstructorSet()
	for _, t := range teachers {
		id, name, email := memberFields(t)
		instructors.Upsert(id, "", name, email)
	}
	return instructors
}

func collectLearners(students []RawMember, instructors *lms.InstructorSet) *lms.LearnerSet {
	learners := lms.NewLearnerSet()
	for _, s := range students {
		id, name, email := memberFields(s)
		if _, ok := lms.IdentityKey(id, "", email); !ok {
			continue
		}
		if instructors.Contains(id, email) {
			continue
		}
		learners.Upsert(id, "", name, email, "")
	}
	return learners
}

// --------------------------------------------------------------------------
// CourseWork and submissions
// --------------------------------------------------------------------------

// quizWorkTypes marks the Classroom work types treated as quizzes.
var quizWorkTypes = map[string]bool{
	"SHORT_ANSWER_QUESTION":    true,
	"MULTIPLE_CHOICE_QUESTION": true,
}

// attachCourseWork builds each learner's assignment list from the
// courseWork and studentSubmissions arrays, reconciling max points in two
// passes. Every work item appears under every learner; unattempted items
// get a placeholder zero grade when maxPoints is defined.
func attachCourseWork(learners *lms.LearnerSet, raw RawCourse, instructors *lms.InstructorSet) {
	// Pass 1 over the work list; submissions carry no points-possible of
	// their own in Classroom, so the work items are the only source.
	tracker := lms.NewMaxScoreTracker()
	for _, cw := range raw.CourseWork {
		tracker.Observe(cw.ID, cw.MaxPoints)
	}

	type subKey struct{ work, user string }
	submissions := make(map[subKey]RawStudentSubmission, len(raw.Submissions))
	for _, s := range raw.Submissions {
		if s.CourseWorkID == "" || s.UserID == "" {
			continue
		}
		submissions[subKey{s.CourseWorkID, s.UserID}] = s
	}

	// Pass 2: one entry per (learner, work item).
	for i := range learners.List {
		learner := &learners.List[i]
		for _, cw := range raw.CourseWork {
			if cw.ID == "" {
				continue
			}
			maxScore := tracker.Resolve(cw.ID, cw.MaxPoints)
			assignment := lms.Assignment{
				ID:          cw.ID,
				Type:        workType(cw),
				Title:       cw.Title,
				MaxScore:    maxScore,
				IsQuiz:      quizWorkTypes[cw.WorkType],
				Submissions: []lms.Submission{},
			}
			sub, found := submissions[subKey{cw.ID, learner.ID}]
			assignment.Submissions = append(assignment.Submissions, normalizeSubmission(sub, found, maxScore))
			learner.Assignments = append(learner.Assignments, assignment)
		}
	}
}

func workType(cw RawCourseWork) string {
	if cw.WorkType != "" {
		return cw.WorkType
	}
	return "ASSIGNMENT"
}

// normalizeSubmission maps Classroom submission states onto the canonical
// workflow states. RETURNED with an assigned grade is graded; TURNED_IN is
// submitted; NEW/CREATED (or no record) is not attempted, with a
// placeholder zero grade when the work item defines max points.
func normalizeSubmission(s RawStudentSubmission, found bool, maxScore *float64) lms.Submission {
	if !found {
		return placeholder(maxScore)
	}

	grade := s.AssignedGrade
	if grade == nil {
		grade = s.DraftGrade
	}

	switch {
	case grade != nil:
		return lms.Submission{
			SubmittedAt:   lms.EnsureISO(s.UpdateTime),
			WorkflowState: lms.StateGraded,
			Grades:        []lms.Grade{lms.NewGrade(grade, maxScore)},
		}
	case s.State == "TURNED_IN" || s.State == "RETURNED":
		return lms.Submission{
			SubmittedAt:   lms.EnsureISO(s.UpdateTime),
			WorkflowState: lms.StateSubmitted,
			Grades:        []lms.Grade{},
		}
	default:
		return placeholder(maxScore)
	}
}

func placeholder(maxScore *float64) lms.Submission {
	sub := lms.Submission{WorkflowState: lms.StateNotAttempted, Grades: []lms.Grade{}}
	if maxScore != nil {
		sub.Grades = append(sub.Grades, lms.ZeroGrade(maxScore))
	}
	return sub
}

// --------------------------------------------------------------------------
// Announcements
// --------------------------------------------------------------------------

func normalizeAnnouncements(announcements []RawAnnouncement) lms.Channel {
	channel := lms.Channel{Channel: "discussion", Messages: []lms.Message{}}
	for _, a := range announcements {
		channel.Messages = append(channel.Messages, lms.Message{
			ID:   a.ID,
			From: a.CreatorUserID,
			Text: a.Text,
			TS:   lms.EnsureISO(a.CreationTime),
		})
	}
	return channel
}
