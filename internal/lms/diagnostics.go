package lms

import "fmt"

// BuildDiagnostics computes diagnostics from the final learner list.
// It runs once, after collision removal, and the result is never mutated
// afterward. Notes is always a non-nil slice.
func BuildDiagnostics(learners []Learner) Diagnostics {
	d := Diagnostics{Notes: []string{}}
	for _, l := range learners {
		if l.Email == "" {
			d.MissingEmailCount++
		}
	}
	if d.MissingEmailCount > 0 {
		d.Notes = append(d.Notes, fmt.Sprintf(
			"%d learner(s) have no email address; downstream matching may be degraded",
			d.MissingEmailCount))
	}
	return d
}
