package dto

// RecordAbsenceRequest is the payload for recording a missed session.
type RecordAbsenceRequest struct {
	EnrollmentID   string   `json:"enrollment_id" binding:"required"`
	SessionID      string   `json:"session_id" binding:"required"`
	Kind           string   `json:"kind" binding:"required"`
	DurationHours  *float64 `json:"duration_hours"`
	OverrideReason string   `json:"override_reason"`
}

// DecideJustificationRequest closes an open review.
type DecideJustificationRequest struct {
	Outcome string `json:"outcome" binding:"required"`
	Comment string `json:"comment"`
}

// ExemptionRequest grants or revokes an exemption.
type ExemptionRequest struct {
	Reason string `json:"reason"`
}

// DefaultThresholdRequest updates the system-wide absence threshold.
type DefaultThresholdRequest struct {
	Value float64 `json:"value" binding:"required"`
}

// CourseThresholdRequest sets or clears a per-course override. A null value
// reverts the course to the system default.
type CourseThresholdRequest struct {
	Value *float64 `json:"value"`
}
