// Package validate implements the schema-assurance collaborator for
// normalized payloads. The adapters themselves never validate — they are
// conversion functions — so callers that need guarantees run the payload
// through Normalized before trusting it.
//
// Two layers: struct-tag validation via go-playground/validator, then the
// cross-record invariants tags cannot express (identity disjointness,
// max-score consistency, percentage arithmetic, presence asymmetry).
package validate

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/skillmint/lms-data/internal/lms"
)

// Result reports the outcome of a validation run.
type Result struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

var v = validator.New()

// Normalized checks a payload against the canonical schema and its
// invariants. It never mutates the payload.
func Normalized(payload lms.NormalizedPayload) Result {
	result := Result{Errors: []string{}}

	if err := v.Struct(payload); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
			}
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.Errors = append(result.Errors, checkPresence(payload)...)
	result.Errors = append(result.Errors, checkDisjointness(payload)...)
	result.Errors = append(result.Errors, checkMaxScoreConsistency(payload)...)
	result.Errors = append(result.Errors, checkPercentages(payload)...)
	result.Errors = append(result.Errors, checkDiagnostics(payload)...)

	result.Valid = len(result.Errors) == 0
	return result
}

// checkPresence enforces the deliberate presence asymmetry: instructors
// always an array, learners/transcript/chat omitted when empty.
func checkPresence(p lms.NormalizedPayload) []string {
	var errs []string
	if p.Instructors == nil {
		errs = append(errs, "instructors: must be present (possibly empty), never null")
	}
	if p.Learners != nil && len(p.Learners) == 0 {
		errs = append(errs, "learners: must be omitted when empty, not an empty array")
	}
	if p.Transcript != nil && len(p.Transcript) == 0 {
		errs = append(errs, "transcript: must be omitted when empty, not an empty array")
	}
	if p.Chat != nil && len(p.Chat) == 0 {
		errs = append(errs, "chat: must be omitted when empty, not an empty array")
	}
	if p.Diagnostics.Notes == nil {
		errs = append(errs, "diagnostics.notes: must be present (possibly empty), never null")
	}
	return errs
}

// checkDisjointness verifies no identity key appears in both instructors
// and learners.
func checkDisjointness(p lms.NormalizedPayload) []string {
	var errs []string
	instructorKeys := lms.InstructorIdentities(p.Instructors)
	for _, l := range p.Learners {
		for _, key := range []string{l.ID, l.Username, l.Email} {
			if key == "" {
				continue
			}
			if _, ok := instructorKeys[key]; ok {
				errs = append(errs, fmt.Sprintf(
					"identity %q appears in both instructors and learners", key))
			}
		}
	}
	return errs
}

// checkMaxScoreConsistency verifies that every assignment id carries the
// same maxScore across all learners.
func checkMaxScoreConsistency(p lms.NormalizedPayload) []string {
	var errs []string
	seen := map[string]*float64{}
	for _, l := range p.Learners {
		for _, a := range l.Assignments {
			prev, ok := seen[a.ID]
			if !ok {
				seen[a.ID] = a.MaxScore
				continue
			}
			if !floatPtrEqual(prev, a.MaxScore) {
				errs = append(errs, fmt.Sprintf(
					"assignment %q: maxScore differs between learners", a.ID))
				// Report each assignment id at most once.
				delete(seen, a.ID)
				seen[a.ID] = a.MaxScore
			}
		}
	}
	return errs
}

// checkPercentages verifies percentage arithmetic on every grade.
func checkPercentages(p lms.NormalizedPayload) []string {
	var errs []string
	for _, l := range p.Learners {
		for _, a := range l.Assignments {
			for _, s := range a.Submissions {
				for _, g := range s.Grades {
					errs = append(errs, checkGrade(a.ID, g)...)
				}
			}
		}
	}
	return errs
}

func checkGrade(assignmentID string, g lms.Grade) []string {
	if g.Score != nil && g.TotalScore != nil && *g.TotalScore > 0 {
		want := lms.Round2(*g.Score / *g.TotalScore * 100)
		if g.Percentage == nil || *g.Percentage != want {
			return []string{fmt.Sprintf(
				"assignment %q: percentage does not match round2(score/totalscore*100)", assignmentID)}
		}
		return nil
	}
	if g.Percentage != nil {
		return []string{fmt.Sprintf(
			"assignment %q: percentage set without a valid score/totalscore pair", assignmentID)}
	}
	return nil
}

// checkDiagnostics verifies missingEmailCount against the learner list.
func checkDiagnostics(p lms.NormalizedPayload) []string {
	missing := 0
	for _, l := range p.Learners {
		if l.Email == "" {
			missing++
		}
	}
	if p.Diagnostics.MissingEmailCount != missing {
		return []string{fmt.Sprintf(
			"diagnostics.missingEmailCount is %d, expected %d",
			p.Diagnostics.MissingEmailCount, missing)}
	}
	return nil
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
