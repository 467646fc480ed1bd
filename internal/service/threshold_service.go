package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

// DefaultThresholdKey is the configuration singleton holding the
// system-wide absence-rate threshold in percent.
const DefaultThresholdKey = "default_absence_threshold"

type thresholdConfigurationRepository interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

type thresholdCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	UpdateThreshold(ctx context.Context, id string, threshold *float64) error
}

type thresholdAuditLogger interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

// ThresholdService resolves the effective absence threshold for a course:
// the course override when set, otherwise the configured system default.
// The default is cached in process and invalidated on every write.
type ThresholdService struct {
	configurations thresholdConfigurationRepository
	courses        thresholdCourseRepository
	audit          thresholdAuditLogger
	logger         *zap.Logger
	fallback       float64

	mu     sync.RWMutex
	cached *float64
}

// NewThresholdService constructs the resolver. The fallback applies when the
// configuration row is missing or unreadable.
func NewThresholdService(configurations thresholdConfigurationRepository, courses thresholdCourseRepository, audit thresholdAuditLogger, fallback float64, logger *zap.Logger) *ThresholdService {
	if fallback <= 0 || fallback > 100 {
		fallback = 25
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThresholdService{
		configurations: configurations,
		courses:        courses,
		audit:          audit,
		logger:         logger,
		fallback:       fallback,
	}
}

// Resolve returns the threshold that applies to the course.
func (s *ThresholdService) Resolve(ctx context.Context, course *models.Course) float64 {
	if course != nil && course.AbsenceThreshold != nil {
		if v := *course.AbsenceThreshold; v > 0 && v <= 100 {
			return v
		}
		s.logger.Warn("ignoring out-of-range course threshold override",
			zap.String("course_id", course.ID),
			zap.Float64p("value", course.AbsenceThreshold))
	}
	return s.Default(ctx)
}

// Default returns the system-wide threshold. The first call loads it from the
// configuration store; subsequent calls serve the cached value until a write
// invalidates it.
func (s *ThresholdService) Default(ctx context.Context) float64 {
	s.mu.RLock()
	if s.cached != nil {
		v := *s.cached
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	value := s.loadDefault(ctx)

	s.mu.Lock()
	s.cached = &value
	s.mu.Unlock()
	return value
}

func (s *ThresholdService) loadDefault(ctx context.Context) float64 {
	cfg, err := s.configurations.Get(ctx, DefaultThresholdKey)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load default threshold, using fallback", zap.Error(err))
		}
		return s.fallback
	}
	value, err := strconv.ParseFloat(cfg.Value, 64)
	if err != nil || value <= 0 || value > 100 {
		s.logger.Warn("invalid default threshold configuration, using fallback",
			zap.String("value", cfg.Value))
		return s.fallback
	}
	return value
}

// SetDefault updates the system-wide threshold and invalidates the cache.
func (s *ThresholdService) SetDefault(ctx context.Context, value float64, actor models.Actor) error {
	if !actor.Can(models.CapabilityManageThresholds) {
		return appErrors.Clone(appErrors.ErrForbidden, "threshold management requires elevated access")
	}
	if value <= 0 || value > 100 {
		return appErrors.Clone(appErrors.ErrValidation, "threshold must be between 0 and 100 percent")
	}

	description := "System-wide absence threshold in percent"
	cfg := &models.Configuration{
		Key:         DefaultThresholdKey,
		Value:       strconv.FormatFloat(value, 'f', -1, 64),
		Type:        models.ConfigurationTypeNumber,
		Description: &description,
		UpdatedBy:   &actor.UserID,
	}
	if err := s.configurations.Upsert(ctx, cfg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update default threshold")
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	s.emitAudit(ctx, actor, models.AuditActionThresholdUpdate,
		fmt.Sprintf("default absence threshold set to %.2f%%", value), "configuration", DefaultThresholdKey)
	return nil
}

// SetCourseThreshold sets or clears the per-course override. A nil threshold
// reverts the course to the system default.
func (s *ThresholdService) SetCourseThreshold(ctx context.Context, courseID string, threshold *float64, actor models.Actor) error {
	if !actor.Can(models.CapabilityManageThresholds) {
		return appErrors.Clone(appErrors.ErrForbidden, "threshold management requires elevated access")
	}
	if threshold != nil && (*threshold <= 0 || *threshold > 100) {
		return appErrors.Clone(appErrors.ErrValidation, "threshold must be between 0 and 100 percent")
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.courses.UpdateThreshold(ctx, courseID, threshold); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course threshold")
	}

	description := fmt.Sprintf("course threshold override cleared for course %s", courseID)
	if threshold != nil {
		description = fmt.Sprintf("course threshold override set to %.2f%% for course %s", *threshold, courseID)
	}
	s.emitAudit(ctx, actor, models.AuditActionThresholdUpdate, description, "course", courseID)
	return nil
}

func (s *ThresholdService) emitAudit(ctx context.Context, actor models.Actor, action, description, subjectType, subjectID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:     &actor.UserID,
		Action:      action,
		Severity:    models.AuditSeverityInfo,
		Description: description,
		SubjectType: subjectType,
		SubjectID:   &subjectID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
