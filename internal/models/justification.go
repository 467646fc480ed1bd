package models

import "time"

// JustificationState is the review lifecycle of a submitted justification.
type JustificationState string

const (
	JustificationStatePending  JustificationState = "PENDING"
	JustificationStateAccepted JustificationState = "ACCEPTED"
	JustificationStateRejected JustificationState = "REJECTED"
)

// Valid returns true when the state is a supported value.
func (s JustificationState) Valid() bool {
	switch s {
	case JustificationStatePending, JustificationStateAccepted, JustificationStateRejected:
		return true
	default:
		return false
	}
}

// JustificationOutcome is a review decision.
type JustificationOutcome string

const (
	JustificationOutcomeAccept JustificationOutcome = "ACCEPT"
	JustificationOutcomeReject JustificationOutcome = "REJECT"
)

// Justification is the zero-or-one review entity attached to an absence
// record. Resubmission after a rejection reuses the same row and clears the
// decision fields.
type Justification struct {
	ID                string             `db:"id" json:"id"`
	AbsenceRecordID   string             `db:"absence_record_id" json:"absence_record_id"`
	State             JustificationState `db:"state" json:"state"`
	DocumentReference *string            `db:"document_reference" json:"document_reference,omitempty"`
	SubmitComment     *string            `db:"submit_comment" json:"submit_comment,omitempty"`
	DecisionComment   *string            `db:"decision_comment" json:"decision_comment,omitempty"`
	SubmittedBy       string             `db:"submitted_by" json:"submitted_by"`
	DecidedBy         *string            `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt         *time.Time         `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}
