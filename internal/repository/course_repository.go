package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/univ-hub/attendance-api/internal/models"
)

// CourseRepository reads courses and writes their threshold override.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, code, name, term_id, total_hours, absence_threshold, created_at, updated_at, archived_at`

// FindByID fetches a course.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindByIDs bulk-loads courses for aggregate views.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error) {
	if len(ids) == 0 {
		return map[string]models.Course{}, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM courses WHERE id IN (?)`, courseColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build course bulk query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.Course
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("bulk load courses: %w", err)
	}
	byID := make(map[string]models.Course, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID, nil
}

// UpdateThreshold sets or clears the per-course threshold override.
func (r *CourseRepository) UpdateThreshold(ctx context.Context, id string, threshold *float64) error {
	query := `UPDATE courses SET absence_threshold = $2, updated_at = $3 WHERE id = $1`
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, id, threshold, time.Now().UTC()); err != nil {
		return fmt.Errorf("update course threshold: %w", err)
	}
	return nil
}

// SessionRepository reads scheduled sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// FindByID fetches a session.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT id, course_id, date, scheduled_hours, room, created_at FROM sessions WHERE id = $1`
	var session models.Session
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}
