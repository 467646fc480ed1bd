package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/univ-hub/attendance-api/internal/models"
)

// AuditRepository persists the audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog appends an audit entry. Audit writes always use the pool,
// never the caller's transaction: a rolled-back mutation still leaves its
// security-relevant attempt on record, and a failed audit insert cannot
// poison the primary transaction.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Severity == "" {
		entry.Severity = models.AuditSeverityInfo
	}
	const query = `INSERT INTO audit_logs (id, actor_id, action, severity, description, subject_type, subject_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.Severity, entry.Description,
		entry.SubjectType, entry.SubjectID, entry.CreatedAt); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListBySubject returns audit entries for one subject, newest first.
func (r *AuditRepository) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]models.AuditLog, error) {
	const query = `SELECT id, actor_id, action, severity, description, subject_type, subject_id, created_at
FROM audit_logs WHERE subject_type = $1 AND subject_id = $2 ORDER BY created_at DESC`
	var rows []models.AuditLog
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, subjectType, subjectID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return rows, nil
}
