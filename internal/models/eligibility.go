package models

// EligibilityTier classifies the risk level of an enrollment's absence rate.
type EligibilityTier string

const (
	TierOK      EligibilityTier = "OK"
	TierAtRisk  EligibilityTier = "AT_RISK"
	TierBlocked EligibilityTier = "BLOCKED"
)

// EligibilityResult is the engine's verdict for one enrollment. Rate and tier
// always reflect the raw absence level; an exemption only flips Eligible.
type EligibilityResult struct {
	EnrollmentID     string          `json:"enrollment_id"`
	AbsenceHours     float64         `json:"absence_hours"`
	Rate             float64         `json:"rate"`
	Threshold        float64         `json:"threshold"`
	Tier             EligibilityTier `json:"tier"`
	Eligible         bool            `json:"eligible"`
	ExemptionGranted bool            `json:"exemption_granted"`
}
