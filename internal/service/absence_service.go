package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/pkg/config"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type absenceLedgerRepository interface {
	FindBySessionForUpdate(ctx context.Context, enrollmentID, sessionID string) (*models.AbsenceRecord, error)
	Upsert(ctx context.Context, record *models.AbsenceRecord) (*models.AbsenceRecord, error)
	Delete(ctx context.Context, id string) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.AbsenceDetail, error)
}

type absenceEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type absenceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type absenceJustificationReader interface {
	FindByRecordIDs(ctx context.Context, recordIDs []string) (map[string]models.Justification, error)
}

type absenceRecalculator interface {
	Recalculate(ctx context.Context, enrollmentID string) (*models.EligibilityResult, error)
}

type absenceAuditLogger interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecordAbsenceRequest captures one missed session.
type RecordAbsenceRequest struct {
	EnrollmentID   string             `json:"enrollment_id" validate:"required"`
	SessionID      string             `json:"session_id" validate:"required"`
	Kind           models.AbsenceKind `json:"kind" validate:"required"`
	DurationHours  *float64           `json:"duration_hours,omitempty"`
	OverrideReason string             `json:"override_reason,omitempty"`
}

// AbsenceService owns the absence ledger. Every mutation runs in one
// transaction with the eligibility recalculation it triggers.
type AbsenceService struct {
	absences       absenceLedgerRepository
	enrollments    absenceEnrollmentReader
	sessions       absenceSessionReader
	justifications absenceJustificationReader
	eligibility    absenceRecalculator
	audit          absenceAuditLogger
	tx             txRunner
	cfg            config.AttendanceConfig
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewAbsenceService constructs the ledger service.
func NewAbsenceService(
	absences absenceLedgerRepository,
	enrollments absenceEnrollmentReader,
	sessions absenceSessionReader,
	justifications absenceJustificationReader,
	eligibility absenceRecalculator,
	audit absenceAuditLogger,
	tx txRunner,
	cfg config.AttendanceConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FullDayHours <= 0 {
		cfg.FullDayHours = 8
	}
	if cfg.MaxPartialHours <= 0 {
		cfg.MaxPartialHours = 24
	}
	return &AbsenceService{
		absences:       absences,
		enrollments:    enrollments,
		sessions:       sessions,
		justifications: justifications,
		eligibility:    eligibility,
		audit:          audit,
		tx:             tx,
		cfg:            cfg,
		validator:      validate,
		logger:         logger,
	}
}

// resolveAbsenceDuration converts the requested kind into hours. Implausible
// partial inputs are not rejected: they fall back to the session's scheduled
// hours with a warning, so a typo never blocks the recording flow. Recording
// and direct encoding both create records through this policy.
func resolveAbsenceDuration(cfg config.AttendanceConfig, logger *zap.Logger, kind models.AbsenceKind, requested *float64, session *models.Session) float64 {
	switch kind {
	case models.AbsenceKindFullSession:
		return session.ScheduledHours
	case models.AbsenceKindFullDay:
		return cfg.FullDayHours
	case models.AbsenceKindPartialHours:
		if requested != nil && *requested > 0 && *requested <= cfg.MaxPartialHours {
			return *requested
		}
		logger.Warn("implausible partial absence duration, falling back to scheduled hours",
			zap.String("session_id", session.ID),
			zap.Float64p("requested", requested),
			zap.Float64("fallback", session.ScheduledHours))
		return session.ScheduledHours
	default:
		return session.ScheduledHours
	}
}

// Record creates or updates the absence record for an (enrollment, session)
// pair and recalculates eligibility in the same transaction.
func (s *AbsenceService) Record(ctx context.Context, req RecordAbsenceRequest, actor models.Actor) (*models.AbsenceRecord, error) {
	if !actor.Can(models.CapabilityRecordAttendance) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "recording attendance requires elevated access")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence request")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported absence kind %q", req.Kind))
	}

	var stored *models.AbsenceRecord
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		session, err := s.sessions.FindByID(ctx, req.SessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "session not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		}
		if session.CourseID != enrollment.CourseID {
			return appErrors.Clone(appErrors.ErrValidation, "session does not belong to the enrollment's course")
		}

		existing, err := s.absences.FindBySessionForUpdate(ctx, req.EnrollmentID, req.SessionID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence record")
		}

		status := models.AbsenceStatusPending
		record := &models.AbsenceRecord{
			EnrollmentID: req.EnrollmentID,
			SessionID:    req.SessionID,
			Kind:         req.Kind,
			RecordedBy:   actor.UserID,
		}
		if existing != nil {
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			status = existing.Status
			if existing.Protected() {
				if !actor.Can(models.CapabilityOverrideProtected) {
					s.emitAudit(ctx, actor, models.AuditActionAbsenceRecord, models.AuditSeverityWarning,
						fmt.Sprintf("rejected mutation of protected absence record %s", existing.ID), existing.ID)
					return appErrors.Clone(appErrors.ErrProtected, "justified absences cannot be re-recorded")
				}
				if req.OverrideReason == "" {
					return appErrors.Clone(appErrors.ErrValidation, "overriding a protected record requires a reason")
				}
				// The override re-opens the record for a fresh justification.
				status = models.AbsenceStatusPending
				s.emitAudit(ctx, actor, models.AuditActionAbsenceOverride, models.AuditSeverityWarning,
					fmt.Sprintf("protected absence record %s overridden: %s", existing.ID, req.OverrideReason), existing.ID)
			}
		}
		record.Status = status
		record.DurationHours = resolveAbsenceDuration(s.cfg, s.logger, req.Kind, req.DurationHours, session)

		stored, err = s.absences.Upsert(ctx, record)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist absence record")
		}
		if _, err := s.eligibility.Recalculate(ctx, req.EnrollmentID); err != nil {
			return err
		}
		s.emitAudit(ctx, actor, models.AuditActionAbsenceRecord, models.AuditSeverityInfo,
			fmt.Sprintf("absence of %.2fh recorded for enrollment %s session %s", record.DurationHours, req.EnrollmentID, req.SessionID), stored.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Clear removes an absence record, typically because the session was attended
// after all. Clearing a protected record without the override capability is a
// silent no-op.
func (s *AbsenceService) Clear(ctx context.Context, enrollmentID, sessionID string, actor models.Actor) error {
	if !actor.Can(models.CapabilityRecordAttendance) {
		return appErrors.Clone(appErrors.ErrForbidden, "recording attendance requires elevated access")
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := s.absences.FindBySessionForUpdate(ctx, enrollmentID, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "no absence recorded for this session")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence record")
		}
		if record.Protected() && !actor.Can(models.CapabilityOverrideProtected) {
			s.logger.Warn("ignored clear of protected absence record",
				zap.String("record_id", record.ID),
				zap.String("actor_id", actor.UserID))
			s.emitAudit(ctx, actor, models.AuditActionAbsenceClear, models.AuditSeverityWarning,
				fmt.Sprintf("ignored clear of protected absence record %s", record.ID), record.ID)
			return nil
		}
		if record.Protected() {
			s.emitAudit(ctx, actor, models.AuditActionAbsenceOverride, models.AuditSeverityWarning,
				fmt.Sprintf("protected absence record %s cleared by override", record.ID), record.ID)
		}
		if err := s.absences.Delete(ctx, record.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete absence record")
		}
		if _, err := s.eligibility.Recalculate(ctx, enrollmentID); err != nil {
			return err
		}
		s.emitAudit(ctx, actor, models.AuditActionAbsenceClear, models.AuditSeverityInfo,
			fmt.Sprintf("absence cleared for enrollment %s session %s", enrollmentID, sessionID), record.ID)
		return nil
	})
}

// ListForEnrollment returns the enrollment's ledger with derived effective
// statuses. Students may only read their own ledger.
func (s *AbsenceService) ListForEnrollment(ctx context.Context, enrollmentID string, actor models.Actor) ([]models.AbsenceDetail, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !actor.Can(models.CapabilityViewReports) && enrollment.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another student's ledger")
	}

	rows, err := s.absences.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	recordIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		recordIDs = append(recordIDs, row.ID)
	}
	justifications, err := s.justifications.FindByRecordIDs(ctx, recordIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load justifications")
	}
	for i := range rows {
		if j, ok := justifications[rows[i].ID]; ok {
			justification := j
			rows[i].Justification = &justification
		}
		rows[i].EffectiveStatus = models.EffectiveStatus(&rows[i].AbsenceRecord, rows[i].Justification)
	}
	return rows, nil
}

func (s *AbsenceService) emitAudit(ctx context.Context, actor models.Actor, action string, severity models.AuditSeverity, description, subjectID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:     &actor.UserID,
		Action:      action,
		Severity:    severity,
		Description: description,
		SubjectType: "absence_record",
		SubjectID:   &subjectID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
