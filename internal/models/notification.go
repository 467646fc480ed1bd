package models

import "time"

// NotificationCategory groups notifications by the transition that produced them.
type NotificationCategory string

const (
	NotificationCategoryJustificationAccepted NotificationCategory = "JUSTIFICATION_ACCEPTED"
	NotificationCategoryJustificationRejected NotificationCategory = "JUSTIFICATION_REJECTED"
	NotificationCategoryEligibilityLost       NotificationCategory = "ELIGIBILITY_LOST"
	NotificationCategoryEligibilityRestored   NotificationCategory = "ELIGIBILITY_RESTORED"
)

// Notification is an in-app message delivered to a user. Delivery is
// fire-and-forget: a failed insert never rolls back the originating change.
type Notification struct {
	ID        string               `db:"id" json:"id"`
	UserID    string               `db:"user_id" json:"user_id"`
	Message   string               `db:"message" json:"message"`
	Category  NotificationCategory `db:"category" json:"category"`
	ReadAt    *time.Time           `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
}
