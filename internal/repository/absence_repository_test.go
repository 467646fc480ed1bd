package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-hub/attendance-api/internal/models"
)

func newAbsenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func absenceRows(record models.AbsenceRecord) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "enrollment_id", "session_id", "kind", "duration_hours",
		"status", "recorded_by", "created_at", "updated_at",
	}).AddRow(
		record.ID, record.EnrollmentID, record.SessionID, record.Kind, record.DurationHours,
		record.Status, record.RecordedBy, record.CreatedAt, record.UpdatedAt,
	)
}

func TestAbsenceRepositoryFindBySessionForUpdate(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()

	repo := NewAbsenceRepository(db)
	stored := models.AbsenceRecord{
		ID:            "rec-1",
		EnrollmentID:  "enr-1",
		SessionID:     "ses-1",
		Kind:          models.AbsenceKindFullSession,
		DurationHours: 2,
		Status:        models.AbsenceStatusUnjustified,
		RecordedBy:    "prof-1",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	mock.ExpectQuery("FROM absence_records .*FOR UPDATE").
		WithArgs("enr-1", "ses-1").
		WillReturnRows(absenceRows(stored))

	record, err := repo.FindBySessionForUpdate(context.Background(), "enr-1", "ses-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, models.AbsenceStatusUnjustified, record.Status)
}

func TestAbsenceRepositoryUpsertAssignsID(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()

	repo := NewAbsenceRepository(db)
	record := &models.AbsenceRecord{
		EnrollmentID:  "enr-1",
		SessionID:     "ses-1",
		Kind:          models.AbsenceKindPartialHours,
		DurationHours: 1.5,
		Status:        models.AbsenceStatusUnjustified,
		RecordedBy:    "sec-1",
	}
	mock.ExpectQuery("INSERT INTO absence_records").
		WillReturnRows(absenceRows(models.AbsenceRecord{
			ID:            "generated",
			EnrollmentID:  "enr-1",
			SessionID:     "ses-1",
			Kind:          models.AbsenceKindPartialHours,
			DurationHours: 1.5,
			Status:        models.AbsenceStatusUnjustified,
			RecordedBy:    "sec-1",
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}))

	stored, err := repo.Upsert(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID, "a fresh record gets an id before insert")
	assert.Equal(t, 1.5, stored.DurationHours)
}

func TestAbsenceRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()

	repo := NewAbsenceRepository(db)
	mock.ExpectExec("DELETE FROM absence_records").
		WithArgs("rec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "rec-1"))
}

func TestAbsenceRepositoryUncountedHours(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()

	repo := NewAbsenceRepository(db)
	// Pins the counting policy: accepted reviews and directly-justified
	// records stay out of the sum, everything else counts.
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(a\.duration_hours\), 0\).*` +
		`NOT \(COALESCE\(j\.state, ''\) = 'ACCEPTED' OR \(j\.id IS NULL AND a\.status = 'JUSTIFIED'\)\)`).
		WithArgs("enr-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6.5))

	hours, err := repo.UncountedHours(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, 6.5, hours)
}

func TestAbsenceRepositoryUncountedHoursByEnrollment(t *testing.T) {
	db, mock, cleanup := newAbsenceRepoMock(t)
	defer cleanup()

	repo := NewAbsenceRepository(db)
	rows := sqlmock.NewRows([]string{"enrollment_id", "hours"}).
		AddRow("enr-1", 4.0).
		AddRow("enr-2", 10.0)
	mock.ExpectQuery(`SELECT a\.enrollment_id, COALESCE\(SUM\(a\.duration_hours\), 0\).*` +
		`NOT \(COALESCE\(j\.state, ''\) = 'ACCEPTED' OR \(j\.id IS NULL AND a\.status = 'JUSTIFIED'\)\)`).
		WithArgs("enr-1", "enr-2", "enr-3").
		WillReturnRows(rows)

	sums, err := repo.UncountedHoursByEnrollment(context.Background(), []string{"enr-1", "enr-2", "enr-3"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, sums["enr-1"])
	assert.Equal(t, 10.0, sums["enr-2"])
	_, ok := sums["enr-3"]
	assert.False(t, ok, "enrollments with no uncounted absences stay absent from the map")
}

func TestAbsenceRepositoryUncountedHoursByEnrollmentEmpty(t *testing.T) {
	db, _, cleanup := newAbsenceRepoMock(t)
	defer cleanup()

	repo := NewAbsenceRepository(db)
	sums, err := repo.UncountedHoursByEnrollment(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, sums)
}
