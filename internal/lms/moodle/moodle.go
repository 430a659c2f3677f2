// Package moodle normalizes raw Moodle course aggregates into the
// canonical payload. Moodle reports roles as arrays of role shortnames per
// enrolled user, timestamps as Unix epochs, and grades through a per-user
// grade-items report that must be joined back to the activity list.
//
// One asymmetry is preserved on purpose: when an activity has no recorded
// submission for a learner, Moodle leaves that assignment's submissions
// empty instead of fabricating a zero-grade placeholder the way the edX
// and Canvas adapters do. A diagnostics note flags the gap.
package moodle

import (
	"fmt"
	"time"

	"github.com/skillmint/lms-data/internal/lms"
)

// --------------------------------------------------------------------------
// Raw shapes
// --------------------------------------------------------------------------

// RawCourse is the raw Moodle aggregate.
type RawCourse struct {
	Course     *RawCourseInfo  `json:"course"`
	Users      []RawUser       `json:"users"`
	Activities []RawActivity   `json:"activities"`
	Grades     []RawUserGrades `json:"grades"`
	Forums     []RawDiscussion `json:"forums"`
}

type RawCourseInfo struct {
	ID           interface{} `json:"id"`
	FullName     string      `json:"fullname"`
	ShortName    string      `json:"shortname"`
	StartDate    interface{} `json:"startdate"`
	EndDate      interface{} `json:"enddate"`
	CategoryID   interface{} `json:"categoryid"`
	CategoryName string      `json:"categoryname"`
	Format       string      `json:"format"`
}

type RawUser struct {
	ID          interface{} `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	FullName    string      `json:"fullname"`
	FirstAccess interface{} `json:"firstaccess"`
	Roles       []RawRole   `json:"roles"`
}

type RawRole struct {
	RoleID    interface{} `json:"roleid"`
	ShortName string      `json:"shortname"`
}

// RawActivity is one course module. Gradable module types become work
// items; the rest (labels, resources, forums) are skipped.
type RawActivity struct {
	ID       interface{} `json:"id"`
	Instance interface{} `json:"instance"`
	Name     string      `json:"name"`
	ModName  string      `json:"modname"`
	Visible  *int        `json:"visible"`
}

// RawUserGrades is one user's slice of the grade report.
type RawUserGrades struct {
	UserID     interface{}    `json:"userid"`
	UserName   string         `json:"userfullname"`
	GradeItems []RawGradeItem `json:"gradeitems"`
}

type RawGradeItem struct {
	ID                 interface{} `json:"id"`
	ItemName           string      `json:"itemname"`
	ItemModule         string      `json:"itemmodule"`
	ItemInstance       interface{} `json:"iteminstance"`
	GradeRaw           *float64    `json:"graderaw"`
	GradeMax           *float64    `json:"grademax"`
	GradeDateSubmitted interface{} `json:"gradedatesubmitted"`
	GradeDateGraded    interface{} `json:"gradedategraded"`
}

type RawDiscussion struct {
	ID       interface{} `json:"id"`
	Forum    string      `json:"forum"`
	Subject  string      `json:"subject"`
	Message  string      `json:"message"`
	UserName string      `json:"userfullname"`
	Created  interface{} `json:"created"`
}

// gradableModules are the Moodle module types treated as work items.
var gradableModules = map[string]bool{
	"assign":   true,
	"quiz":     true,
	"workshop": true,
	"lesson":   true,
}

// --------------------------------------------------------------------------
// Normalization
// --------------------------------------------------------------------------

// Normalize converts a raw Moodle aggregate into the canonical payload.
// Pure and stateless; safe to call concurrently.
func Normalize(raw RawCourse) lms.NormalizedPayload {
	payload := lms.NormalizedPayload{
		Source: lms.Source{
			LMS:         lms.SourceMoodle,
			RawCourseID: courseID(raw.Course),
			FetchedAt:   time.Now().UTC(),
		},
		Course: normalizeCourse(raw.Course),
	}

	if raw.Course != nil && raw.Course.CategoryName != "" {
		payload.Institution = &lms.Institution{
			ID:   lms.String(raw.Course.CategoryID),
			Name: raw.Course.CategoryName,
		}
	}

	instructors := collectInstructors(raw.Users)
	learners := collectLearners(raw.Users, instructors)
	coverage := attachGrades(learners, raw, instructors)

	payload.Instructors = instructors.List
	if kept := lms.DropInstructorCollisions(instructors.List, learners.List); len(kept) > 0 {
		payload.Learners = kept
	}
	payload.Chat = normalizeForums(raw.Forums)

	payload.Diagnostics = lms.BuildDiagnostics(payload.Learners)
	coverage.apply(&payload.Diagnostics)

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
	course.Name = info.FullName
	if course.Name == "" {
		course.Name = info.ShortName
	}
	course.StartDate = lms.EnsureISO(info.StartDate)
	course.EndDate = lms.EnsureISO(info.EndDate)
	if info.ShortName != "" {
		course.Metadata["shortname"] = info.ShortName
	}
	if info.Format != "" {
		course.Metadata["format"] = info.Format
	}
	return course
}

// --------------------------------------------------------------------------
// People
// --------------------------------------------------------------------------

// isStaffUser checks every role shortname on the enrolled user against the
// shared role heuristic ("editingteacher", "teacher", "staff", ...).
func isStaffUser(u RawUser) bool {
	for _, r := range u.Roles {
		if lms.IsStaffRole(r.ShortName) {
			return true
		}
	}
	return false
}

func collectInstructors(users []RawUser) *lms.InstructorSet {
	instructors := lms.NewInstructorSet()
	for _, u := range users {
		if isStaffUser(u) {
			instructors.Upsert(lms.String(u.ID), u.Username, u.FullName, u.Email)
		}
	}
	return instructors
}

func collectLearners(users []RawUser, instructors *lms.InstructorSet) *lms.LearnerSet {
	learners := lms.NewLearnerSet()
	for _, u := range users {
		if isStaffUser(u) {
			continue
		}
		id := lms.String(u.ID)
		if _, ok := lms.IdentityKey(id, u.Username, u.Email); !ok {
			continue
		}
		if instructors.Contains(id, u.Username, u.Email) {
			continue
		}
		learners.Upsert(id, u.Username, u.FullName, u.Email, lms.EnsureISO(u.FirstAccess))
	}
	return learners
}

// --------------------------------------------------------------------------
// Activities and grades
// --------------------------------------------------------------------------

// workItem joins an activity with its grade-report key.
type workItem struct {
	id     string
	title  string
	mod    string
	invKey string // itemmodule:iteminstance, the grade-report join key
}

// submissionCoverage counts how many gradable activities saw at least one
// submission; exposed through the Moodle-specific diagnostics counters.
type submissionCoverage struct {
	activities    int
	withSubmitted map[string]bool
}

func (c *submissionCoverage) apply(d *lms.Diagnostics) {
	if c.activities == 0 {
		return
	}
	covered := len(c.withSubmitted)
	d.ActivityCount = &c.activities
	d.ActivitiesWithSubmissions = &covered
	if covered < c.activities {
		d.Notes = append(d.Notes, fmt.Sprintf(
			"%d of %d gradable activities have no recorded submissions",
			c.activities-covered, c.activities))
	}
}

// attachGrades joins the per-user grade report onto the activity list and
// builds each learner's assignments. Max scores are reconciled in two
// passes over the grade report. Activities without any grade data for a
// learner keep an empty submissions list — no placeholder is fabricated.
func attachGrades(learners *lms.LearnerSet, raw RawCourse, instructors *lms.InstructorSet) *submissionCoverage {
	items := collectWorkItems(raw.Activities)
	coverage := &submissionCoverage{
		activities:    len(items),
		withSubmitted: map[string]bool{},
	}

	// Pass 1: observe every grademax per work item across all users.
	tracker := lms.NewMaxScoreTracker()
	for _, ug := range raw.Grades {
		for _, gi := range ug.GradeItems {
			tracker.Observe(gradeItemKey(gi), gi.GradeMax)
		}
	}

	// Index each user's grade items by join key.
	gradesByUser := make(map[string]map[string]RawGradeItem, len(raw.Grades))
	for _, ug := range raw.Grades {
		uid := lms.String(ug.UserID)
		if uid == "" {
			continue
		}
		byKey := make(map[string]RawGradeItem, len(ug.GradeItems))
		for _, gi := range ug.GradeItems {
			if k := gradeItemKey(gi); k != "" {
				byKey[k] = gi
			}
		}
		gradesByUser[uid] = byKey
	}

	// Pass 2: one assignment per (learner, work item), resolved maxes.
	for i := range learners.List {
		learner := &learners.List[i]
		userGrades := gradesByUser[learner.ID]
		for _, item := range items {
			maxScore := tracker.Resolve(item.invKey, nil)
			assignment := lms.Assignment{
				ID:          item.id,
				Type:        item.mod,
				Title:       item.title,
				MaxScore:    maxScore,
				IsQuiz:      item.mod == "quiz",
				Submissions: []lms.Submission{},
			}
			if gi, ok := userGrades[item.invKey]; ok && hasAttempt(gi) {
				coverage.withSubmitted[item.invKey] = true
				assignment.Submissions = append(assignment.Submissions, normalizeGradeItem(gi, maxScore))
			}
			learner.Assignments = append(learner.Assignments, assignment)
		}
	}

	return coverage
}

func collectWorkItems(activities []RawActivity) []workItem {
	items := make([]workItem, 0, len(activities))
	for _, a := range activities {
		if !gradableModules[a.ModName] {
			continue
		}
		id := lms.String(a.ID)
		if id == "" {
			continue
		}
		items = append(items, workItem{
			id:     id,
			title:  a.Name,
			mod:    a.ModName,
			invKey: a.ModName + ":" + lms.String(a.Instance),
		})
	}
	return items
}

func gradeItemKey(gi RawGradeItem) string {
	if gi.ItemModule == "" {
		return ""
	}
	return gi.ItemModule + ":" + lms.String(gi.ItemInstance)
}

func hasAttempt(gi RawGradeItem) bool {
	return gi.GradeRaw != nil || lms.EnsureISO(gi.GradeDateSubmitted) != ""
}

func normalizeGradeItem(gi RawGradeItem, maxScore *float64) lms.Submission {
	sub := lms.Submission{
		SubmittedAt: lms.EnsureISO(gi.GradeDateSubmitted),
		Grades:      []lms.Grade{},
	}
	if gi.GradeRaw != nil {
		sub.WorkflowState = lms.StateGraded
		sub.Grades = append(sub.Grades, lms.NewGrade(gi.GradeRaw, maxScore))
	} else {
		sub.WorkflowState = lms.StateSubmitted
	}
	return sub
}

// --------------------------------------------------------------------------
// Forums
// --------------------------------------------------------------------------

// normalizeForums groups forum discussions into channels by forum name.
func normalizeForums(discussions []RawDiscussion) []lms.Channel {
	if len(discussions) == 0 {
		return nil
	}
	var channels []lms.Channel
	index := map[string]int{}
	for _, d := range discussions {
		name := d.Forum
		if name == "" {
			name = "discussion"
		}
		i, ok := index[name]
		if !ok {
			channels = append(channels, lms.Channel{Channel: name, Messages: []lms.Message{}})
			i = len(channels) - 1
			index[name] = i
		}
		text := d.Subject
		if d.Message != "" {
			if text != "" {
				text += "\n"
			}
			text += d.Message
		}
		channels[i].Messages = append(channels[i].Messages, lms.Message{
			ID:   lms.String(d.ID),
			From: d.UserName,
			Text: text,
			TS:   lms.EnsureISO(d.Created),
		})
	}
	return channels
}
