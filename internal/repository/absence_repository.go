package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univ-hub/attendance-api/internal/models"
)

// AbsenceRepository persists the absence ledger.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs the repository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

const absenceColumns = `id, enrollment_id, session_id, kind, duration_hours, status, recorded_by, created_at, updated_at`

// FindBySession returns the ledger record for an (enrollment, session) pair.
func (r *AbsenceRepository) FindBySession(ctx context.Context, enrollmentID, sessionID string) (*models.AbsenceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM absence_records WHERE enrollment_id = $1 AND session_id = $2`, absenceColumns)
	var record models.AbsenceRecord
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &record, query, enrollmentID, sessionID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindBySessionForUpdate locks the row for the duration of the transaction.
func (r *AbsenceRepository) FindBySessionForUpdate(ctx context.Context, enrollmentID, sessionID string) (*models.AbsenceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM absence_records WHERE enrollment_id = $1 AND session_id = $2 FOR UPDATE`, absenceColumns)
	var record models.AbsenceRecord
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &record, query, enrollmentID, sessionID); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByID fetches a single ledger record.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM absence_records WHERE id = $1`, absenceColumns)
	var record models.AbsenceRecord
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert inserts or updates the (enrollment, session) record.
func (r *AbsenceRepository) Upsert(ctx context.Context, record *models.AbsenceRecord) (*models.AbsenceRecord, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO absence_records (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (enrollment_id, session_id)
DO UPDATE SET kind = EXCLUDED.kind, duration_hours = EXCLUDED.duration_hours,
              status = EXCLUDED.status, recorded_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at
RETURNING %s`, absenceColumns, absenceColumns)
	var stored models.AbsenceRecord
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &stored, query,
		record.ID, record.EnrollmentID, record.SessionID, record.Kind, record.DurationHours,
		record.Status, record.RecordedBy, record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert absence record: %w", err)
	}
	return &stored, nil
}

// UpdateStatus sets the ledger status of a record.
func (r *AbsenceRepository) UpdateStatus(ctx context.Context, id string, status models.AbsenceStatus) error {
	query := `UPDATE absence_records SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update absence status: %w", err)
	}
	return nil
}

// Delete removes a ledger record (session attended after all).
func (r *AbsenceRepository) Delete(ctx context.Context, id string) error {
	if _, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM absence_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete absence record: %w", err)
	}
	return nil
}

// ListByEnrollment returns ledger rows with their sparse justifications.
func (r *AbsenceRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AbsenceDetail, error) {
	query := `SELECT a.id, a.enrollment_id, a.session_id, a.kind, a.duration_hours, a.status, a.recorded_by,
       a.created_at, a.updated_at, s.date AS session_date
FROM absence_records a
JOIN sessions s ON s.id = a.session_id
WHERE a.enrollment_id = $1
ORDER BY s.date ASC`
	var rows []models.AbsenceDetail
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}
	return rows, nil
}

// UncountedHours sums the hours that count against the threshold for one
// enrollment: every record whose effective status is not justified, i.e.
// unjustified records, bare pending records, and records under open review.
func (r *AbsenceRepository) UncountedHours(ctx context.Context, enrollmentID string) (float64, error) {
	query := `SELECT COALESCE(SUM(a.duration_hours), 0)
FROM absence_records a
LEFT JOIN justifications j ON j.absence_record_id = a.id
WHERE a.enrollment_id = $1
  AND NOT (COALESCE(j.state, '') = 'ACCEPTED' OR (j.id IS NULL AND a.status = 'JUSTIFIED'))`
	var hours float64
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &hours, query, enrollmentID); err != nil {
		return 0, fmt.Errorf("sum uncounted hours: %w", err)
	}
	return hours, nil
}

// UncountedHoursByEnrollment is the bulk variant used by dashboards and
// exports; it applies the exact counting policy of UncountedHours in one pass.
func (r *AbsenceRepository) UncountedHoursByEnrollment(ctx context.Context, enrollmentIDs []string) (map[string]float64, error) {
	if len(enrollmentIDs) == 0 {
		return map[string]float64{}, nil
	}
	query, args, err := sqlx.In(`SELECT a.enrollment_id, COALESCE(SUM(a.duration_hours), 0) AS hours
FROM absence_records a
LEFT JOIN justifications j ON j.absence_record_id = a.id
WHERE a.enrollment_id IN (?)
  AND NOT (COALESCE(j.state, '') = 'ACCEPTED' OR (j.id IS NULL AND a.status = 'JUSTIFIED'))
GROUP BY a.enrollment_id`, enrollmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build bulk hours query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.EnrollmentAbsenceSum
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("bulk uncounted hours: %w", err)
	}
	sums := make(map[string]float64, len(rows))
	for _, row := range rows {
		sums[row.EnrollmentID] = row.Hours
	}
	return sums, nil
}
