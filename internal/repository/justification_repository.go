package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univ-hub/attendance-api/internal/models"
)

// JustificationRepository persists justification review entities.
type JustificationRepository struct {
	db *sqlx.DB
}

// NewJustificationRepository constructs the repository.
func NewJustificationRepository(db *sqlx.DB) *JustificationRepository {
	return &JustificationRepository{db: db}
}

const justificationColumns = `id, absence_record_id, state, document_reference, submit_comment, decision_comment, submitted_by, decided_by, decided_at, created_at, updated_at`

// FindByID fetches a justification.
func (r *JustificationRepository) FindByID(ctx context.Context, id string) (*models.Justification, error) {
	query := fmt.Sprintf(`SELECT %s FROM justifications WHERE id = $1`, justificationColumns)
	var row models.Justification
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByRecordID returns the sparse justification for an absence record.
func (r *JustificationRepository) FindByRecordID(ctx context.Context, recordID string) (*models.Justification, error) {
	query := fmt.Sprintf(`SELECT %s FROM justifications WHERE absence_record_id = $1`, justificationColumns)
	var row models.Justification
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, recordID); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByRecordIDForUpdate locks the row so concurrent submissions for the
// same record serialize on it.
func (r *JustificationRepository) FindByRecordIDForUpdate(ctx context.Context, recordID string) (*models.Justification, error) {
	query := fmt.Sprintf(`SELECT %s FROM justifications WHERE absence_record_id = $1 FOR UPDATE`, justificationColumns)
	var row models.Justification
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, recordID); err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByRecordIDs bulk-loads justifications for ledger listings.
func (r *JustificationRepository) FindByRecordIDs(ctx context.Context, recordIDs []string) (map[string]models.Justification, error) {
	if len(recordIDs) == 0 {
		return map[string]models.Justification{}, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM justifications WHERE absence_record_id IN (?)`, justificationColumns), recordIDs)
	if err != nil {
		return nil, fmt.Errorf("build justification bulk query: %w", err)
	}
	query = r.db.Rebind(query)
	var rows []models.Justification
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("bulk load justifications: %w", err)
	}
	byRecord := make(map[string]models.Justification, len(rows))
	for _, row := range rows {
		byRecord[row.AbsenceRecordID] = row
	}
	return byRecord, nil
}

// Create inserts a new justification in its initial state. The unique index
// on absence_record_id makes a concurrent duplicate submission fail instead
// of inserting a second row.
func (r *JustificationRepository) Create(ctx context.Context, row *models.Justification) (*models.Justification, error) {
	now := time.Now().UTC()
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.CreatedAt = now
	row.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO justifications (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING %s`, justificationColumns, justificationColumns)
	var stored models.Justification
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &stored, query,
		row.ID, row.AbsenceRecordID, row.State, row.DocumentReference, row.SubmitComment,
		row.DecisionComment, row.SubmittedBy, row.DecidedBy, row.DecidedAt, row.CreatedAt, row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create justification: %w", err)
	}
	return &stored, nil
}

// Update persists a state transition on an existing justification.
func (r *JustificationRepository) Update(ctx context.Context, row *models.Justification) (*models.Justification, error) {
	row.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE justifications
SET state = $2, document_reference = $3, submit_comment = $4, decision_comment = $5,
    submitted_by = $6, decided_by = $7, decided_at = $8, updated_at = $9
WHERE id = $1
RETURNING %s`, justificationColumns)
	var stored models.Justification
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &stored, query,
		row.ID, row.State, row.DocumentReference, row.SubmitComment, row.DecisionComment,
		row.SubmittedBy, row.DecidedBy, row.DecidedAt, row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update justification: %w", err)
	}
	return &stored, nil
}
