package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillmint/lms-data/internal/lms"
)

// CourseRow is one persisted course summary.
type CourseRow struct {
	CourseID  string    `json:"course_id"`
	LMS       string    `json:"lms"`
	Name      string    `json:"name,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ArchivedPayload returns the most recently archived payload for a course.
// Returns pgx.ErrNoRows (wrapped) when the course was never persisted.
func ArchivedPayload(ctx context.Context, pool *pgxpool.Pool, lmsID, courseID string) (lms.NormalizedPayload, time.Time, error) {
	var (
		body      []byte
		fetchedAt time.Time
	)
	if err := pool.QueryRow(ctx, "payload_lookup", lmsID, courseID).Scan(&body, &fetchedAt); err != nil {
		return lms.NormalizedPayload{}, time.Time{}, fmt.Errorf("lookup payload %s/%s: %w", lmsID, courseID, err)
	}

	var payload lms.NormalizedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return lms.NormalizedPayload{}, time.Time{}, fmt.Errorf("decode archived payload %s/%s: %w", lmsID, courseID, err)
	}
	return payload, fetchedAt, nil
}

// Courses lists persisted courses, most recently fetched first.
func Courses(ctx context.Context, pool *pgxpool.Pool, limit int) ([]CourseRow, error) {
	rows, err := pool.Query(ctx, "course_list", limit)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	courses := []CourseRow{}
	for rows.Next() {
		var (
			row  CourseRow
			name *string
		)
		if err := rows.Scan(&row.CourseID, &row.LMS, &name, &row.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		if name != nil {
			row.Name = *name
		}
		courses = append(courses, row)
	}
	return courses, rows.Err()
}

// LearnerCount returns how many learner rows a course has persisted.
func LearnerCount(ctx context.Context, pool *pgxpool.Pool, lmsID, courseID string) (int, error) {
	var n int
	if err := pool.QueryRow(ctx, "learner_count", lmsID, courseID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count learners %s/%s: %w", lmsID, courseID, err)
	}
	return n, nil
}
