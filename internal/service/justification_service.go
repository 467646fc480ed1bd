package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/pkg/config"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type justificationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Justification, error)
	FindByRecordIDForUpdate(ctx context.Context, recordID string) (*models.Justification, error)
	Create(ctx context.Context, row *models.Justification) (*models.Justification, error)
	Update(ctx context.Context, row *models.Justification) (*models.Justification, error)
}

type justificationAbsenceRepository interface {
	FindByID(ctx context.Context, id string) (*models.AbsenceRecord, error)
	FindBySessionForUpdate(ctx context.Context, enrollmentID, sessionID string) (*models.AbsenceRecord, error)
	Upsert(ctx context.Context, record *models.AbsenceRecord) (*models.AbsenceRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.AbsenceStatus) error
}

type justificationEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type justificationSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type documentStore interface {
	Save(filename string, data []byte) (string, error)
}

// SubmitJustificationRequest opens (or reopens) a review for an absence.
type SubmitJustificationRequest struct {
	AbsenceRecordID string `json:"absence_record_id" validate:"required"`
	Comment         string `json:"comment,omitempty"`
	DocumentName    string `json:"document_name,omitempty"`
	Document        []byte `json:"-"`
}

// DecideJustificationRequest closes an open review.
type DecideJustificationRequest struct {
	JustificationID string                      `json:"justification_id" validate:"required"`
	Outcome         models.JustificationOutcome `json:"outcome" validate:"required"`
	Comment         string                      `json:"comment,omitempty"`
}

// DirectEncodeRequest records an absence and its accepted justification in a
// single step, for paper documents handled at the front desk.
type DirectEncodeRequest struct {
	EnrollmentID  string             `json:"enrollment_id" validate:"required"`
	SessionID     string             `json:"session_id" validate:"required"`
	Kind          models.AbsenceKind `json:"kind,omitempty"`
	DurationHours *float64           `json:"duration_hours,omitempty"`
	Comment       string             `json:"comment,omitempty"`
	DocumentName  string             `json:"document_name,omitempty"`
	Document      []byte             `json:"-"`
}

// JustificationService drives the justification review lifecycle. State
// transitions and their eligibility recalculation commit atomically; the
// justification row lock serializes concurrent submissions and decisions.
type JustificationService struct {
	justifications justificationRepository
	absences       justificationAbsenceRepository
	enrollments    justificationEnrollmentReader
	sessions       justificationSessionReader
	documents      documentStore
	eligibility    absenceRecalculator
	notifier       eligibilityNotifier
	audit          absenceAuditLogger
	tx             txRunner
	cfg            config.AttendanceConfig
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewJustificationService constructs the review service.
func NewJustificationService(
	justifications justificationRepository,
	absences justificationAbsenceRepository,
	enrollments justificationEnrollmentReader,
	sessions justificationSessionReader,
	documents documentStore,
	eligibility absenceRecalculator,
	notifier eligibilityNotifier,
	audit absenceAuditLogger,
	tx txRunner,
	cfg config.AttendanceConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *JustificationService {
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
	return &JustificationService{
		justifications: justifications,
		absences:       absences,
		enrollments:    enrollments,
		sessions:       sessions,
		documents:      documents,
		eligibility:    eligibility,
		notifier:       notifier,
		audit:          audit,
		tx:             tx,
		cfg:            cfg,
		validator:      validate,
		logger:         logger,
	}
}

// isUniqueViolation reports whether err is a Postgres unique index violation,
// the race loser's signal that another transaction inserted the row first.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// storeDocument persists the uploaded document and returns its reference.
// Content is stored by reference only and never inspected.
func (s *JustificationService) storeDocument(name string, data []byte) (*string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if s.documents == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "document storage is not configured")
	}
	ext := path.Ext(name)
	ref, err := s.documents.Save(fmt.Sprintf("%s/%s%s", time.Now().UTC().Format("2006/01"), uuid.NewString(), ext), data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	return &ref, nil
}

// Submit opens a review for an unjustified or pending absence. A rejected
// justification is reopened in place; an accepted one refuses resubmission.
func (s *JustificationService) Submit(ctx context.Context, req SubmitJustificationRequest, actor models.Actor) (*models.Justification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid justification request")
	}

	var stored *models.Justification
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		record, err := s.absences.FindByID(ctx, req.AbsenceRecordID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "absence record not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence record")
		}
		enrollment, err := s.enrollments.FindByID(ctx, record.EnrollmentID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		if enrollment.StudentID != actor.UserID && !actor.Can(models.CapabilityReviewJustification) {
			return appErrors.Clone(appErrors.ErrForbidden, "cannot submit a justification for another student's absence")
		}

		existing, err := s.justifications.FindByRecordIDForUpdate(ctx, req.AbsenceRecordID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load justification")
		}
		if existing != nil {
			switch existing.State {
			case models.JustificationStatePending:
				return appErrors.Clone(appErrors.ErrConflict, "a justification for this absence is already under review")
			case models.JustificationStateAccepted:
				return appErrors.Clone(appErrors.ErrValidation, "this absence is already justified")
			}
		} else if record.Status == models.AbsenceStatusJustified {
			return appErrors.Clone(appErrors.ErrValidation, "this absence is already justified")
		}

		docRef, err := s.storeDocument(req.DocumentName, req.Document)
		if err != nil {
			return err
		}
		var comment *string
		if req.Comment != "" {
			comment = &req.Comment
		}

		if existing != nil {
			// Rejected review reopened: same row, decision fields cleared.
			existing.State = models.JustificationStatePending
			existing.SubmitComment = comment
			if docRef != nil {
				existing.DocumentReference = docRef
			}
			existing.SubmittedBy = actor.UserID
			existing.DecidedBy = nil
			existing.DecidedAt = nil
			existing.DecisionComment = nil
			stored, err = s.justifications.Update(ctx, existing)
		} else {
			stored, err = s.justifications.Create(ctx, &models.Justification{
				AbsenceRecordID:   req.AbsenceRecordID,
				State:             models.JustificationStatePending,
				DocumentReference: docRef,
				SubmitComment:     comment,
				SubmittedBy:       actor.UserID,
			})
		}
		if err != nil {
			if isUniqueViolation(err) {
				// A concurrent first submission won the insert race.
				return appErrors.Clone(appErrors.ErrConflict, "a justification for this absence is already under review")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist justification")
		}

		if err := s.absences.UpdateStatus(ctx, record.ID, models.AbsenceStatusPending); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update absence status")
		}
		if _, err := s.eligibility.Recalculate(ctx, record.EnrollmentID); err != nil {
			return err
		}
		s.emitAudit(ctx, actor, models.AuditActionJustificationSubmit, models.AuditSeverityInfo,
			fmt.Sprintf("justification submitted for absence record %s", record.ID), stored.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Decide closes an open review with an accept or reject outcome. Rejections
// require a decision comment.
func (s *JustificationService) Decide(ctx context.Context, req DecideJustificationRequest, actor models.Actor) (*models.Justification, error) {
	if !actor.Can(models.CapabilityReviewJustification) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "deciding justifications requires elevated access")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision request")
	}
	if req.Outcome != models.JustificationOutcomeAccept && req.Outcome != models.JustificationOutcomeReject {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported outcome %q", req.Outcome))
	}
	if req.Outcome == models.JustificationOutcomeReject && req.Comment == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejecting a justification requires a comment")
	}

	var stored *models.Justification
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.justifications.FindByID(ctx, req.JustificationID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "justification not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load justification")
		}
		// Re-read under lock so concurrent decisions serialize.
		locked, err := s.justifications.FindByRecordIDForUpdate(ctx, current.AbsenceRecordID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock justification")
		}
		if locked.State != models.JustificationStatePending {
			return appErrors.Clone(appErrors.ErrConflict, "this justification has already been decided")
		}

		record, err := s.absences.FindByID(ctx, locked.AbsenceRecordID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence record")
		}
		enrollment, err := s.enrollments.FindByID(ctx, record.EnrollmentID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}

		now := time.Now().UTC()
		locked.DecidedBy = &actor.UserID
		locked.DecidedAt = &now
		if req.Comment != "" {
			locked.DecisionComment = &req.Comment
		}

		recordStatus := models.AbsenceStatusUnjustified
		category := models.NotificationCategoryJustificationRejected
		message := fmt.Sprintf("Your justification was rejected: %s", req.Comment)
		locked.State = models.JustificationStateRejected
		if req.Outcome == models.JustificationOutcomeAccept {
			locked.State = models.JustificationStateAccepted
			recordStatus = models.AbsenceStatusJustified
			category = models.NotificationCategoryJustificationAccepted
			message = "Your justification was accepted."
		}

		stored, err = s.justifications.Update(ctx, locked)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist decision")
		}
		if err := s.absences.UpdateStatus(ctx, record.ID, recordStatus); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update absence status")
		}
		if _, err := s.eligibility.Recalculate(ctx, record.EnrollmentID); err != nil {
			return err
		}

		if s.notifier != nil {
			s.notifier.Notify(ctx, enrollment.StudentID, message, category)
		}
		s.emitAudit(ctx, actor, models.AuditActionJustificationDecide, models.AuditSeverityInfo,
			fmt.Sprintf("justification %s %s", stored.ID, stored.State), stored.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// DirectEncode records a missed session and its accepted justification in one
// transaction, skipping the review queue.
func (s *JustificationService) DirectEncode(ctx context.Context, req DirectEncodeRequest, actor models.Actor) (*models.Justification, error) {
	if !actor.Can(models.CapabilityReviewJustification) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "direct encoding requires elevated access")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid direct encode request")
	}
	kind := req.Kind
	if kind == "" {
		kind = models.AbsenceKindFullSession
	}
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported absence kind %q", kind))
	}

	var stored *models.Justification
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
		if existing != nil && existing.Status == models.AbsenceStatusJustified {
			return appErrors.Clone(appErrors.ErrConflict, "this absence is already justified")
		}

		duration := resolveAbsenceDuration(s.cfg, s.logger, kind, req.DurationHours, session)
		record := &models.AbsenceRecord{
			EnrollmentID:  req.EnrollmentID,
			SessionID:     req.SessionID,
			Kind:          kind,
			DurationHours: duration,
			Status:        models.AbsenceStatusJustified,
			RecordedBy:    actor.UserID,
		}
		if existing != nil {
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
		}
		savedRecord, err := s.absences.Upsert(ctx, record)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist absence record")
		}

		docRef, err := s.storeDocument(req.DocumentName, req.Document)
		if err != nil {
			return err
		}
		var comment *string
		if req.Comment != "" {
			comment = &req.Comment
		}
		now := time.Now().UTC()
		row := &models.Justification{
			AbsenceRecordID:   savedRecord.ID,
			State:             models.JustificationStateAccepted,
			DocumentReference: docRef,
			SubmitComment:     comment,
			SubmittedBy:       actor.UserID,
			DecidedBy:         &actor.UserID,
			DecidedAt:         &now,
		}
		existingJustification, err := s.justifications.FindByRecordIDForUpdate(ctx, savedRecord.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load justification")
		}
		if existingJustification != nil {
			row.ID = existingJustification.ID
			stored, err = s.justifications.Update(ctx, row)
		} else {
			stored, err = s.justifications.Create(ctx, row)
		}
		if err != nil {
			if isUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrConflict, "a justification for this absence already exists")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist justification")
		}

		if _, err := s.eligibility.Recalculate(ctx, req.EnrollmentID); err != nil {
			return err
		}
		s.emitAudit(ctx, actor, models.AuditActionDirectEncode, models.AuditSeverityInfo,
			fmt.Sprintf("absence directly encoded as justified for enrollment %s session %s", req.EnrollmentID, req.SessionID), stored.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *JustificationService) emitAudit(ctx context.Context, actor models.Actor, action string, severity models.AuditSeverity, description, subjectID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:     &actor.UserID,
		Action:      action,
		Severity:    severity,
		Description: description,
		SubjectType: "justification",
		SubjectID:   &subjectID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
