package lms

// MaxScoreTracker implements the two-pass max-score reconciliation. Raw
// sources sometimes report a different "points possible" per student record
// (partial-credit adjustments); pass 1 observes every value, pass 2 resolves
// each work item to the maximum seen so two learners with the same raw score
// always show the same percentage.
//
// A tracker lives for exactly one normalization call and is discarded.
type MaxScoreTracker struct {
	max map[string]float64
}

// NewMaxScoreTracker creates an empty tracker.
func NewMaxScoreTracker() *MaxScoreTracker {
	return &MaxScoreTracker{max: make(map[string]float64)}
}

// Observe records a scorePossible value for a work item. Nil values and
// empty ids are ignored.
func (t *MaxScoreTracker) Observe(workItemID string, scorePossible *float64) {
	if workItemID == "" || scorePossible == nil {
		return
	}
	if current, seen := t.max[workItemID]; !seen || *scorePossible > current {
		t.max[workItemID] = *scorePossible
	}
}

// Resolve returns the reconciled max score for a work item: the tracked
// maximum when one was observed, otherwise the per-record fallback.
func (t *MaxScoreTracker) Resolve(workItemID string, fallback *float64) *float64 {
	if m, ok := t.max[workItemID]; ok {
		return &m
	}
	return fallback
}
