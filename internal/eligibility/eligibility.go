// Package eligibility maps normalized learner assignment histories into
// per-learner score summaries for the downstream token-minting consumer.
// A learner is eligible when their overall percentage clears the
// configured threshold.
package eligibility

import (
	"github.com/skillmint/lms-data/internal/lms"
)

// Summary is one learner's aggregate standing in a course.
type Summary struct {
	LearnerID            string   `json:"learner_id,omitempty"`
	Email                string   `json:"email,omitempty"`
	Name                 string   `json:"name,omitempty"`
	EarnedScore          float64  `json:"earned_score"`
	PossibleScore        float64  `json:"possible_score"`
	Percentage           *float64 `json:"percentage"`
	AssignmentsTotal     int      `json:"assignments_total"`
	AssignmentsAttempted int      `json:"assignments_attempted"`
	CompletionRate       float64  `json:"completion_rate"`
	Eligible             bool     `json:"eligible"`
}

// CourseReport is the full eligibility report for one normalized payload.
type CourseReport struct {
	CourseID  string    `json:"course_id"`
	LMS       string    `json:"lms"`
	Threshold float64   `json:"threshold"`
	Learners  []Summary `json:"learners"`
}

// Build computes the eligibility report from a normalized payload.
// threshold is the minimum overall percentage (0-100) for eligibility.
func Build(payload lms.NormalizedPayload, threshold float64) CourseReport {
	report := CourseReport{
		CourseID:  payload.Course.ID,
		LMS:       payload.Source.LMS,
		Threshold: threshold,
		Learners:  make([]Summary, 0, len(payload.Learners)),
	}
	for _, learner := range payload.Learners {
		report.Learners = append(report.Learners, summarize(learner, threshold))
	}
	return report
}

func summarize(learner lms.Learner, threshold float64) Summary {
	s := Summary{
		LearnerID: learner.ID,
		Email:     learner.Email,
		Name:      learner.Name,
	}

	for _, a := range learner.Assignments {
		s.AssignmentsTotal++
		if a.MaxScore != nil {
			s.PossibleScore += *a.MaxScore
		}
		if best, attempted := bestScore(a); attempted {
			s.AssignmentsAttempted++
			s.EarnedScore += best
		}
	}

	if s.AssignmentsTotal > 0 {
		s.CompletionRate = lms.Round2(float64(s.AssignmentsAttempted) / float64(s.AssignmentsTotal) * 100)
	}
	if s.PossibleScore > 0 {
		pct := lms.Round2(s.EarnedScore / s.PossibleScore * 100)
		s.Percentage = &pct
		s.Eligible = pct >= threshold
	}
	return s
}

// bestScore returns the highest graded score across an assignment's
// submissions and whether the learner actually attempted it. Placeholder
// zero grades on not_attempted submissions do not count as attempts.
func bestScore(a lms.Assignment) (float64, bool) {
	best := 0.0
	attempted := false
	for _, sub := range a.Submissions {
		switch sub.WorkflowState {
		case lms.StateGraded, lms.StateSubmitted:
			attempted = true
		default:
			continue
		}
		for _, g := range sub.Grades {
			if g.Score != nil && *g.Score > best {
				best = *g.Score
			}
		}
	}
	if !attempted {
		return 0, false
	}
	return best, true
}
