package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/univ-hub/attendance-api/internal/models"
)

// EnrollmentRepository persists enrollments and their derived flags.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, course_id, term_id, eligible_for_exam, exemption_granted, exemption_reason, created_at, updated_at`

// FindByID fetches a single enrollment.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByIDForUpdate locks the enrollment row so concurrent recalculations
// for the same enrollment serialize.
func (r *EnrollmentRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1 FOR UPDATE`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID enriches the enrollment with student and course metadata.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := `SELECT e.id, e.student_id, e.course_id, e.term_id, e.eligible_for_exam, e.exemption_granted,
       e.exemption_reason, e.created_at, e.updated_at,
       s.full_name AS student_name, c.code AS course_code, c.name AS course_name, t.name AS term_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN courses c ON c.id = e.course_id
LEFT JOIN terms t ON t.id = e.term_id
WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByCourse returns every enrollment of a course for aggregate views.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error) {
	query := `SELECT e.id, e.student_id, e.course_id, e.term_id, e.eligible_for_exam, e.exemption_granted,
       e.exemption_reason, e.created_at, e.updated_at,
       s.full_name AS student_name, c.code AS course_code, c.name AS course_name, t.name AS term_name
FROM enrollments e
JOIN students s ON s.id = e.student_id
JOIN courses c ON c.id = e.course_id
LEFT JOIN terms t ON t.id = e.term_id
WHERE e.course_id = $1
ORDER BY s.full_name ASC`
	var rows []models.EnrollmentDetail
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments by course: %w", err)
	}
	return rows, nil
}

// UpdateEligibility persists the derived eligibility flag. Only the
// eligibility engine calls this.
func (r *EnrollmentRepository) UpdateEligibility(ctx context.Context, id string, eligible bool) error {
	query := `UPDATE enrollments SET eligible_for_exam = $2, updated_at = $3 WHERE id = $1`
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, id, eligible, time.Now().UTC()); err != nil {
		return fmt.Errorf("update eligibility: %w", err)
	}
	return nil
}

// UpdateExemption persists the exemption override fields.
func (r *EnrollmentRepository) UpdateExemption(ctx context.Context, id string, granted bool, reason *string) error {
	query := `UPDATE enrollments SET exemption_granted = $2, exemption_reason = $3, updated_at = $4 WHERE id = $1`
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, id, granted, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("update exemption: %w", err)
	}
	return nil
}
