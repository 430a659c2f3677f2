package lms

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order when coercing string timestamps.
// Sources disagree: edX emits RFC3339 with offset, Canvas emits Zulu,
// Moodle web services emit "YYYY-MM-DD HH:MM:SS" in some reports.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EnsureISO coerces a raw timestamp value into an ISO-8601 (RFC 3339 UTC)
// string. Handles ISO-ish strings, Unix epoch seconds and milliseconds
// (Moodle reports epochs, sometimes as JSON numbers, sometimes as strings).
//
// Returns "" when the value is absent or not coercible — callers treat ""
// as an omitted optional field.
func EnsureISO(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return ""
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC().Format(time.RFC3339)
			}
		}
		// Epoch encoded as a string.
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return epochToISO(n)
		}
		return ""
	case float64:
		return epochToISO(t)
	case int:
		return epochToISO(float64(t))
	case int64:
		return epochToISO(float64(t))
	default:
		return ""
	}
}

// epochToISO interprets n as Unix seconds, or milliseconds when the
// magnitude gives it away. Zero epochs mean "unset" in Moodle.
func epochToISO(n float64) string {
	if n <= 0 {
		return ""
	}
	if n > 1e12 {
		n = n / 1000
	}
	return time.Unix(int64(n), 0).UTC().Format(time.RFC3339)
}

// Round2 rounds to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// NewGrade builds a Grade, computing the percentage from score against
// totalscore when both are defined and totalscore > 0.
func NewGrade(score, totalScore *float64) Grade {
	g := Grade{Score: score, TotalScore: totalScore}
	if score != nil && totalScore != nil && *totalScore > 0 {
		pct := Round2(*score / *totalScore * 100)
		g.Percentage = &pct
	}
	return g
}

// ZeroGrade builds the placeholder grade emitted for unattempted work
// items that define a max score, so completion-rate consumers see every
// assignment the course defines.
func ZeroGrade(totalScore *float64) Grade {
	zero := 0.0
	return NewGrade(&zero, totalScore)
}

// String normalizes a duck-typed id value to its string form. JSON numbers
// arrive as float64; integral ids must not pick up a decimal point.
func String(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Number extracts a numeric value from the formats raw sources use for
// scores: plain numbers, numeric strings, or nothing.
func Number(v interface{}) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

// Float returns a pointer to f. Convenience for literal max scores.
func Float(f float64) *float64 {
	return &f
}
