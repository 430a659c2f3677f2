// Package store persists normalized payloads to Postgres: relational rows
// for courses, instructors, learners and assignments, plus a full-payload
// JSON archive for replay and audit.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillmint/lms-data/internal/config"
	"github.com/skillmint/lms-data/internal/lms"
)

// SaveResult tracks counts and errors from persisting one payload.
type SaveResult struct {
	CoursesUpserted     int
	InstructorsUpserted int
	LearnersUpserted    int
	AssignmentsUpserted int
	Errors              []string
}

// AddErrorf records a formatted error message.
func (r *SaveResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the save operation.
func (r *SaveResult) Summary() string {
	return fmt.Sprintf(
		"courses=%d instructors=%d learners=%d assignments=%d errors=%d",
		r.CoursesUpserted, r.InstructorsUpserted,
		r.LearnersUpserted, r.AssignmentsUpserted,
		len(r.Errors),
	)
}

// Save writes one normalized payload. Row-level failures are collected
// rather than aborting the whole payload.
func Save(ctx context.Context, pool *pgxpool.Pool, payload lms.NormalizedPayload) SaveResult {
	result := SaveResult{}
	source := payload.Source

	if err := upsertCourse(ctx, pool, source, payload); err != nil {
		result.AddErrorf("upsert course %s: %v", payload.Course.ID, err)
	} else {
		result.CoursesUpserted++
	}

	for _, ins := range payload.Instructors {
		if err := upsertInstructor(ctx, pool, source, payload.Course.ID, ins); err != nil {
			result.AddErrorf("upsert instructor %s: %v", instructorKey(ins), err)
			continue
		}
		result.InstructorsUpserted++
	}

	for _, learner := range payload.Learners {
		if err := upsertLearner(ctx, pool, source, payload.Course.ID, learner); err != nil {
			result.AddErrorf("upsert learner %s: %v", learnerKey(learner), err)
			continue
		}
		result.LearnersUpserted++
		for _, a := range learner.Assignments {
			if err := upsertAssignment(ctx, pool, source, payload.Course.ID, learnerKey(learner), a); err != nil {
				result.AddErrorf("upsert assignment %s/%s: %v", learnerKey(learner), a.ID, err)
				continue
			}
			result.AssignmentsUpserted++
		}
	}

	if err := archivePayload(ctx, pool, payload); err != nil {
		result.AddErrorf("archive payload %s: %v", payload.Course.ID, err)
	}

	return result
}

func instructorKey(ins lms.Instructor) string {
	key, _ := lms.IdentityKey(ins.ID, ins.Username, ins.Email)
	return key
}

func learnerKey(l lms.Learner) string {
	key, _ := lms.IdentityKey(l.ID, l.Username, l.Email)
	return key
}

func upsertCourse(ctx context.Context, pool *pgxpool.Pool, source lms.Source, payload lms.NormalizedPayload) error {
	meta, _ := json.Marshal(nonNilMap(payload.Course.Metadata))
	var instID, instName interface{}
	if payload.Institution != nil {
		instID = nilEmpty(payload.Institution.ID)
		instName = nilEmpty(payload.Institution.Name)
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO `+config.CoursesTable+` (
			course_id, lms, name, start_date, end_date,
			institution_id, institution_name, metadata, fetched_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (course_id, lms) DO UPDATE SET
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			institution_id = EXCLUDED.institution_id,
			institution_name = EXCLUDED.institution_name,
			metadata = EXCLUDED.metadata,
			fetched_at = EXCLUDED.fetched_at,
			updated_at = NOW()`,
		payload.Course.ID, source.LMS, nilEmpty(payload.Course.Name),
		nilEmpty(payload.Course.StartDate), nilEmpty(payload.Course.EndDate),
		instID, instName, meta, source.FetchedAt,
	)
	return err
}

func upsertInstructor(ctx context.Context, pool *pgxpool.Pool, source lms.Source, courseID string, ins lms.Instructor) error {
	key := instructorKey(ins)
	if key == "" {
		return fmt.Errorf("instructor has no identity key")
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO `+config.InstructorsTable+` (
			identity_key, course_id, lms,
			instructor_id, username, name, email
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (identity_key, course_id, lms) DO UPDATE SET
			instructor_id = COALESCE(EXCLUDED.instructor_id, `+config.InstructorsTable+`.instructor_id),
			username = COALESCE(EXCLUDED.username, `+config.InstructorsTable+`.username),
			name = COALESCE(EXCLUDED.name, `+config.InstructorsTable+`.name),
			email = COALESCE(EXCLUDED.email, `+config.InstructorsTable+`.email),
			updated_at = NOW()`,
		key, courseID, source.LMS,
		nilEmpty(ins.ID), nilEmpty(ins.Username), nilEmpty(ins.Name), nilEmpty(ins.Email),
	)
	return err
}

func upsertLearner(ctx context.Context, pool *pgxpool.Pool, source lms.Source, courseID string, l lms.Learner) error {
	key := learnerKey(l)
	if key == "" {
		return fmt.Errorf("learner has no identity key")
	}
	_, err := pool.Exec(ctx, `
		INSERT INTO `+config.LearnersTable+` (
			identity_key, course_id, lms,
			learner_id, username, name, email, time_enrolled
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (identity_key, course_id, lms) DO UPDATE SET
			learner_id = COALESCE(EXCLUDED.learner_id, `+config.LearnersTable+`.learner_id),
			username = COALESCE(EXCLUDED.username, `+config.LearnersTable+`.username),
			name = COALESCE(EXCLUDED.name, `+config.LearnersTable+`.name),
			email = COALESCE(EXCLUDED.email, `+config.LearnersTable+`.email),
			time_enrolled = COALESCE(EXCLUDED.time_enrolled, `+config.LearnersTable+`.time_enrolled),
			updated_at = NOW()`,
		key, courseID, source.LMS,
		nilEmpty(l.ID), nilEmpty(l.Username), nilEmpty(l.Name), nilEmpty(l.Email),
		nilEmpty(l.TimeEnrolled),
	)
	return err
}

func upsertAssignment(ctx context.Context, pool *pgxpool.Pool, source lms.Source, courseID, learnerKey string, a lms.Assignment) error {
	submissions, _ := json.Marshal(a.Submissions)
	_, err := pool.Exec(ctx, `
		INSERT INTO `+config.AssignmentsTable+` (
			assignment_id, learner_key, course_id, lms,
			type, title, max_score, is_quiz, subsection_name, submissions
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (assignment_id, learner_key, course_id, lms) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			max_score = EXCLUDED.max_score,
			is_quiz = EXCLUDED.is_quiz,
			subsection_name = EXCLUDED.subsection_name,
			submissions = EXCLUDED.submissions,
			updated_at = NOW()`,
		a.ID, learnerKey, courseID, source.LMS,
		nilEmpty(a.Type), nilEmpty(a.Title), a.MaxScore, a.IsQuiz,
		nilEmpty(a.SubsectionName), submissions,
	)
	return err
}

func archivePayload(ctx context.Context, pool *pgxpool.Pool, payload lms.NormalizedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO `+config.PayloadsTable+` (lms, course_id, fetched_at, payload)
		VALUES ($1,$2,$3,$4)`,
		payload.Source.LMS, payload.Course.ID, payload.Source.FetchedAt, body,
	)
	return err
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nonNilMap ensures a nil map becomes an empty map for JSON marshaling.
func nonNilMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
