package service

import (
	"context"

	"github.com/univ-hub/attendance-api/internal/models"
)

type stubTx struct{}

func (stubTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubAudit struct {
	entries []models.AuditLog
	err     error
}

func (s *stubAudit) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubAudit) actions() []string {
	actions := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

type stubNotifier struct {
	users      []string
	messages   []string
	categories []models.NotificationCategory
}

func (s *stubNotifier) Notify(_ context.Context, userID, message string, category models.NotificationCategory) {
	s.users = append(s.users, userID)
	s.messages = append(s.messages, message)
	s.categories = append(s.categories, category)
}

type stubRecalculator struct {
	calls  []string
	result *models.EligibilityResult
	err    error
}

func (s *stubRecalculator) Recalculate(_ context.Context, enrollmentID string) (*models.EligibilityResult, error) {
	s.calls = append(s.calls, enrollmentID)
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &models.EligibilityResult{EnrollmentID: enrollmentID, Eligible: true, Tier: models.TierOK}, nil
}

type stubThresholds struct {
	value float64
}

func (s stubThresholds) Resolve(_ context.Context, course *models.Course) float64 {
	if course != nil && course.AbsenceThreshold != nil {
		return *course.AbsenceThreshold
	}
	return s.value
}

func actorWithRole(userID string, role models.UserRole) models.Actor {
	return models.NewActor(userID, role)
}
