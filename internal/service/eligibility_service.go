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

// atRiskRatio places the warning band at a fixed fraction of the blocking
// threshold, so a stricter course proportionally tightens its warning band.
const atRiskRatio = 0.75

type eligibilityEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateEligibility(ctx context.Context, id string, eligible bool) error
}

type eligibilityAbsenceRepository interface {
	UncountedHours(ctx context.Context, enrollmentID string) (float64, error)
	UncountedHoursByEnrollment(ctx context.Context, enrollmentIDs []string) (map[string]float64, error)
}

type eligibilityCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Course, error)
}

type eligibilityThresholdResolver interface {
	Resolve(ctx context.Context, course *models.Course) float64
}

type eligibilityAuditLogger interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

type eligibilityNotifier interface {
	Notify(ctx context.Context, userID, message string, category models.NotificationCategory)
}

// EligibilityService is the single computation path for exam eligibility.
// Every ledger mutation funnels through Recalculate; reads that need current
// verdicts without persisting use Compute or ComputeMany.
type EligibilityService struct {
	enrollments eligibilityEnrollmentRepository
	absences    eligibilityAbsenceRepository
	courses     eligibilityCourseRepository
	thresholds  eligibilityThresholdResolver
	audit       eligibilityAuditLogger
	notifier    eligibilityNotifier
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewEligibilityService constructs the engine.
func NewEligibilityService(
	enrollments eligibilityEnrollmentRepository,
	absences eligibilityAbsenceRepository,
	courses eligibilityCourseRepository,
	thresholds eligibilityThresholdResolver,
	audit eligibilityAuditLogger,
	notifier eligibilityNotifier,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		enrollments: enrollments,
		absences:    absences,
		courses:     courses,
		thresholds:  thresholds,
		audit:       audit,
		notifier:    notifier,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

// classify maps absence hours onto a rate and tier. A course with zero total
// hours can never block, whatever was recorded against it.
func classify(hours, totalHours, threshold float64) (float64, models.EligibilityTier) {
	if totalHours <= 0 {
		return 0, models.TierOK
	}
	rate := hours / totalHours * 100
	switch {
	case rate >= threshold:
		return rate, models.TierBlocked
	case rate >= threshold*atRiskRatio:
		return rate, models.TierAtRisk
	default:
		return rate, models.TierOK
	}
}

func (s *EligibilityService) resultFor(enrollment *models.Enrollment, course *models.Course, hours, threshold float64) models.EligibilityResult {
	rate, tier := classify(hours, course.TotalHours, threshold)
	return models.EligibilityResult{
		EnrollmentID:     enrollment.ID,
		AbsenceHours:     hours,
		Rate:             rate,
		Threshold:        threshold,
		Tier:             tier,
		Eligible:         tier != models.TierBlocked || enrollment.ExemptionGranted,
		ExemptionGranted: enrollment.ExemptionGranted,
	}
}

// Compute evaluates one enrollment without persisting anything.
func (s *EligibilityService) Compute(ctx context.Context, enrollmentID string) (*models.EligibilityResult, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return s.compute(ctx, enrollment)
}

func (s *EligibilityService) compute(ctx context.Context, enrollment *models.Enrollment) (*models.EligibilityResult, error) {
	course, err := s.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	hours, err := s.absences.UncountedHours(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate absence hours")
	}
	result := s.resultFor(enrollment, course, hours, s.thresholds.Resolve(ctx, course))
	return &result, nil
}

// ComputeMany evaluates a batch of enrollments with bulk aggregation, for
// dashboards and exports. Order follows the input.
func (s *EligibilityService) ComputeMany(ctx context.Context, enrollments []models.EnrollmentDetail) ([]models.EligibilityResult, error) {
	if len(enrollments) == 0 {
		return []models.EligibilityResult{}, nil
	}

	enrollmentIDs := make([]string, 0, len(enrollments))
	courseIDSet := make(map[string]struct{})
	for _, e := range enrollments {
		enrollmentIDs = append(enrollmentIDs, e.ID)
		courseIDSet[e.CourseID] = struct{}{}
	}
	courseIDs := make([]string, 0, len(courseIDSet))
	for id := range courseIDSet {
		courseIDs = append(courseIDs, id)
	}

	sums, err := s.absences.UncountedHoursByEnrollment(ctx, enrollmentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate absence hours")
	}
	courses, err := s.courses.FindByIDs(ctx, courseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	results := make([]models.EligibilityResult, 0, len(enrollments))
	for i := range enrollments {
		course, ok := courses[enrollments[i].CourseID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", enrollments[i].CourseID))
		}
		threshold := s.thresholds.Resolve(ctx, &course)
		results = append(results, s.resultFor(&enrollments[i].Enrollment, &course, sums[enrollments[i].ID], threshold))
	}
	return results, nil
}

// Recalculate re-evaluates one enrollment and persists the eligibility flag
// when it changed. Callers wrap the triggering mutation and this call in one
// transaction; the enrollment row lock serializes concurrent recalculations.
func (s *EligibilityService) Recalculate(ctx context.Context, enrollmentID string) (*models.EligibilityResult, error) {
	enrollment, err := s.enrollments.FindByIDForUpdate(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock enrollment")
	}

	result, err := s.compute(ctx, enrollment)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecalculation()

	if result.Eligible == enrollment.EligibleForExam {
		return result, nil
	}

	if err := s.enrollments.UpdateEligibility(ctx, enrollmentID, result.Eligible); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist eligibility")
	}
	s.metrics.RecordEligibilityTransition(result.Eligible)
	s.onTransition(ctx, enrollment, result)
	return result, nil
}

// onTransition emits the side effects of a persisted flag flip. The sinks are
// fail-open so a broken sink never rolls back the transition itself.
func (s *EligibilityService) onTransition(ctx context.Context, enrollment *models.Enrollment, result *models.EligibilityResult) {
	direction := "restored"
	category := models.NotificationCategoryEligibilityRestored
	message := fmt.Sprintf("Your exam eligibility has been restored (absence rate %.1f%%).", result.Rate)
	if !result.Eligible {
		direction = "lost"
		category = models.NotificationCategoryEligibilityLost
		message = fmt.Sprintf("You are no longer eligible for the exam: absence rate %.1f%% exceeds the %.1f%% threshold.", result.Rate, result.Threshold)
	}

	if s.audit != nil {
		entry := &models.AuditLog{
			Action:      models.AuditActionEligibilityChange,
			Severity:    models.AuditSeverityWarning,
			Description: fmt.Sprintf("eligibility %s at %.2f%% of %.2f%% threshold", direction, result.Rate, result.Threshold),
			SubjectType: "enrollment",
			SubjectID:   &enrollment.ID,
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to write audit log",
				zap.String("action", models.AuditActionEligibilityChange), zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, enrollment.StudentID, message, category)
	}

	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "dashboard:course:"+enrollment.CourseID+"*"); err != nil {
			s.logger.Warn("failed to invalidate dashboard cache",
				zap.String("course_id", enrollment.CourseID), zap.Error(err))
		}
	}
}
