package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type dashboardEnrollmentRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

type dashboardCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type bulkEligibilityComputer interface {
	ComputeMany(ctx context.Context, enrollments []models.EnrollmentDetail) ([]models.EligibilityResult, error)
}

// CourseOverviewRow pairs an enrollment with its eligibility verdict.
type CourseOverviewRow struct {
	Enrollment  models.EnrollmentDetail  `json:"enrollment"`
	Eligibility models.EligibilityResult `json:"eligibility"`
}

// CourseOverview is the per-course eligibility dashboard payload.
type CourseOverview struct {
	CourseID    string              `json:"course_id"`
	CourseCode  string              `json:"course_code"`
	CourseName  string              `json:"course_name"`
	TotalHours  float64             `json:"total_hours"`
	Threshold   float64             `json:"threshold"`
	Students    int                 `json:"students"`
	Blocked     int                 `json:"blocked"`
	AtRisk      int                 `json:"at_risk"`
	Exempted    int                 `json:"exempted"`
	Rows        []CourseOverviewRow `json:"rows"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// DashboardService assembles aggregate eligibility views. Payloads are cached
// per course; the eligibility engine invalidates on every persisted flag flip.
type DashboardService struct {
	enrollments dashboardEnrollmentRepository
	courses     dashboardCourseReader
	eligibility bulkEligibilityComputer
	thresholds  eligibilityThresholdResolver
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(
	enrollments dashboardEnrollmentRepository,
	courses dashboardCourseReader,
	eligibility bulkEligibilityComputer,
	thresholds eligibilityThresholdResolver,
	cache *CacheService,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		enrollments: enrollments,
		courses:     courses,
		eligibility: eligibility,
		thresholds:  thresholds,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// CourseOverview builds (or serves from cache) the eligibility overview for
// one course.
func (s *DashboardService) CourseOverview(ctx context.Context, courseID string, actor models.Actor) (*CourseOverview, error) {
	if !actor.Can(models.CapabilityViewReports) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "viewing course overviews requires elevated access")
	}

	cacheKey := "dashboard:course:" + courseID
	var cached CourseOverview
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	overview, err := s.buildOverview(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey, overview, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache course overview", zap.String("course_id", courseID), zap.Error(err))
	}
	return overview, nil
}

func (s *DashboardService) buildOverview(ctx context.Context, courseID string) (*CourseOverview, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	enrollments, err := s.enrollments.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	results, err := s.eligibility.ComputeMany(ctx, enrollments)
	if err != nil {
		return nil, err
	}

	overview := &CourseOverview{
		CourseID:    course.ID,
		CourseCode:  course.Code,
		CourseName:  course.Name,
		TotalHours:  course.TotalHours,
		Threshold:   s.thresholds.Resolve(ctx, course),
		Students:    len(enrollments),
		Rows:        make([]CourseOverviewRow, 0, len(enrollments)),
		GeneratedAt: time.Now().UTC(),
	}
	for i := range results {
		switch results[i].Tier {
		case models.TierBlocked:
			overview.Blocked++
		case models.TierAtRisk:
			overview.AtRisk++
		}
		if results[i].ExemptionGranted {
			overview.Exempted++
		}
		overview.Rows = append(overview.Rows, CourseOverviewRow{
			Enrollment:  enrollments[i],
			Eligibility: results[i],
		})
	}
	return overview, nil
}
