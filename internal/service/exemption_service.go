package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type exemptionEnrollmentRepository interface {
	FindByIDForUpdate(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateExemption(ctx context.Context, id string, granted bool, reason *string) error
}

// ExemptionService manages the administrative override that keeps a blocked
// enrollment eligible. Grants and revocations recalculate eligibility in the
// same transaction, so the flag never lags the override.
type ExemptionService struct {
	enrollments exemptionEnrollmentRepository
	eligibility absenceRecalculator
	audit       absenceAuditLogger
	tx          txRunner
	logger      *zap.Logger
}

// NewExemptionService constructs the exemption registry.
func NewExemptionService(
	enrollments exemptionEnrollmentRepository,
	eligibility absenceRecalculator,
	audit absenceAuditLogger,
	tx txRunner,
	logger *zap.Logger,
) *ExemptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExemptionService{
		enrollments: enrollments,
		eligibility: eligibility,
		audit:       audit,
		tx:          tx,
		logger:      logger,
	}
}

// Grant records an exemption for the enrollment. A reason is mandatory; the
// grant is idempotent.
func (s *ExemptionService) Grant(ctx context.Context, enrollmentID, reason string, actor models.Actor) (*models.EligibilityResult, error) {
	if !actor.Can(models.CapabilityGrantExemption) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "granting exemptions requires elevated access")
	}
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "an exemption requires a reason")
	}

	var result *models.EligibilityResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		enrollment, err := s.enrollments.FindByIDForUpdate(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock enrollment")
		}
		if err := s.enrollments.UpdateExemption(ctx, enrollment.ID, true, &reason); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist exemption")
		}
		result, err = s.eligibility.Recalculate(ctx, enrollmentID)
		if err != nil {
			return err
		}
		s.emitAudit(ctx, actor, models.AuditActionExemptionGrant, models.AuditSeverityCritical,
			fmt.Sprintf("exemption granted for enrollment %s: %s", enrollmentID, reason), enrollmentID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Revoke withdraws the exemption and recalculates; an enrollment above the
// threshold immediately loses eligibility again.
func (s *ExemptionService) Revoke(ctx context.Context, enrollmentID, reason string, actor models.Actor) (*models.EligibilityResult, error) {
	if !actor.Can(models.CapabilityGrantExemption) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "revoking exemptions requires elevated access")
	}

	var result *models.EligibilityResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		enrollment, err := s.enrollments.FindByIDForUpdate(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock enrollment")
		}
		if !enrollment.ExemptionGranted {
			return appErrors.Clone(appErrors.ErrValidation, "no exemption to revoke for this enrollment")
		}
		if err := s.enrollments.UpdateExemption(ctx, enrollment.ID, false, nil); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist revocation")
		}
		result, err = s.eligibility.Recalculate(ctx, enrollmentID)
		if err != nil {
			return err
		}
		description := fmt.Sprintf("exemption revoked for enrollment %s", enrollmentID)
		if reason != "" {
			description = fmt.Sprintf("%s: %s", description, reason)
		}
		s.emitAudit(ctx, actor, models.AuditActionExemptionRevoke, models.AuditSeverityCritical, description, enrollmentID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ExemptionService) emitAudit(ctx context.Context, actor models.Actor, action string, severity models.AuditSeverity, description, subjectID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:     &actor.UserID,
		Action:      action,
		Severity:    severity,
		Description: description,
		SubjectType: "enrollment",
		SubjectID:   &subjectID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
