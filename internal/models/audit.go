package models

import "time"

// AuditSeverity grades how security-relevant an audit entry is.
type AuditSeverity string

const (
	AuditSeverityInfo     AuditSeverity = "INFO"
	AuditSeverityWarning  AuditSeverity = "WARNING"
	AuditSeverityCritical AuditSeverity = "CRITICAL"
)

// AuditAction constants represent actions to be logged.
const (
	AuditActionAbsenceRecord       = "ABSENCE_RECORD"
	AuditActionAbsenceClear        = "ABSENCE_CLEAR"
	AuditActionAbsenceOverride     = "ABSENCE_OVERRIDE"
	AuditActionJustificationSubmit = "JUSTIFICATION_SUBMIT"
	AuditActionJustificationDecide = "JUSTIFICATION_DECIDE"
	AuditActionDirectEncode        = "JUSTIFICATION_DIRECT_ENCODE"
	AuditActionExemptionGrant      = "EXEMPTION_GRANT"
	AuditActionExemptionRevoke     = "EXEMPTION_REVOKE"
	AuditActionEligibilityChange   = "ELIGIBILITY_CHANGE"
	AuditActionThresholdUpdate     = "THRESHOLD_UPDATE"
	AuditActionLogin               = "LOGIN"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID          string        `db:"id" json:"id"`
	ActorID     *string       `db:"actor_id" json:"actor_id,omitempty"`
	Action      string        `db:"action" json:"action"`
	Severity    AuditSeverity `db:"severity" json:"severity"`
	Description string        `db:"description" json:"description"`
	SubjectType string        `db:"subject_type" json:"subject_type"`
	SubjectID   *string       `db:"subject_id" json:"subject_id,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}
