package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// NotificationService delivers in-app notifications. Delivery is
// fire-and-forget: failures are logged and never surfaced to the caller, so
// a broken sink cannot roll back a state transition.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationService constructs the notification sink.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// Notify records a message for the user.
func (s *NotificationService) Notify(ctx context.Context, userID, message string, category models.NotificationCategory) {
	if s == nil || s.repo == nil || userID == "" {
		return
	}
	n := &models.Notification{UserID: userID, Message: message, Category: category}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("failed to deliver notification",
			zap.String("user_id", userID),
			zap.String("category", string(category)),
			zap.Error(err))
	}
}

// ListForUser returns the user's notifications.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return rows, nil
}

// MarkRead stamps one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
