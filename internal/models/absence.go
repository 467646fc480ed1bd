package models

import "time"

// AbsenceStatus is the ledger lifecycle of an absence record.
type AbsenceStatus string

const (
	AbsenceStatusPending     AbsenceStatus = "PENDING"
	AbsenceStatusJustified   AbsenceStatus = "JUSTIFIED"
	AbsenceStatusUnjustified AbsenceStatus = "UNJUSTIFIED"
)

// Valid returns true when the status is a supported value.
func (s AbsenceStatus) Valid() bool {
	switch s {
	case AbsenceStatusPending, AbsenceStatusJustified, AbsenceStatusUnjustified:
		return true
	default:
		return false
	}
}

// AbsenceKind describes how the missed time was captured.
type AbsenceKind string

const (
	AbsenceKindFullSession  AbsenceKind = "FULL_SESSION"
	AbsenceKindPartialHours AbsenceKind = "PARTIAL_HOURS"
	AbsenceKindFullDay      AbsenceKind = "FULL_DAY"
)

// Valid returns true when the kind is a supported value.
func (k AbsenceKind) Valid() bool {
	switch k {
	case AbsenceKindFullSession, AbsenceKindPartialHours, AbsenceKindFullDay:
		return true
	default:
		return false
	}
}

// AbsenceRecord is one student's missed time for one scheduled session.
// At most one record exists per (enrollment, session) pair.
type AbsenceRecord struct {
	ID            string        `db:"id" json:"id"`
	EnrollmentID  string        `db:"enrollment_id" json:"enrollment_id"`
	SessionID     string        `db:"session_id" json:"session_id"`
	Kind          AbsenceKind   `db:"kind" json:"kind"`
	DurationHours float64       `db:"duration_hours" json:"duration_hours"`
	Status        AbsenceStatus `db:"status" json:"status"`
	RecordedBy    string        `db:"recorded_by" json:"recorded_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Protected reports whether ordinary recording actors may still mutate the
// record. A justified absence is immutable without an override capability.
func (a *AbsenceRecord) Protected() bool {
	return a != nil && a.Status == AbsenceStatusJustified
}

// EffectiveStatus derives the single display/counting status from the ledger
// record and its optional justification. Whenever a justification exists its
// state is authoritative: an open review shows (and counts) as pending, an
// acceptance as justified, a rejection as unjustified. This is the only
// function callers may use to interpret the pair.
func EffectiveStatus(record *AbsenceRecord, justification *Justification) AbsenceStatus {
	if justification != nil {
		switch justification.State {
		case JustificationStateAccepted:
			return AbsenceStatusJustified
		case JustificationStateRejected:
			return AbsenceStatusUnjustified
		default:
			return AbsenceStatusPending
		}
	}
	if record == nil {
		return AbsenceStatusPending
	}
	return record.Status
}

// CountsAgainstThreshold reports whether the record's hours belong in the
// blocking total. Everything that is not effectively justified counts,
// including absences still pending review.
func CountsAgainstThreshold(record *AbsenceRecord, justification *Justification) bool {
	return EffectiveStatus(record, justification) != AbsenceStatusJustified
}

// AbsenceDetail pairs a ledger record with its sparse justification and the
// derived effective status used by every view.
type AbsenceDetail struct {
	AbsenceRecord
	SessionDate     time.Time      `db:"session_date" json:"session_date"`
	EffectiveStatus AbsenceStatus  `db:"-" json:"effective_status"`
	Justification   *Justification `db:"-" json:"justification,omitempty"`
}

// AbsenceFilter scopes ledger listing queries.
type AbsenceFilter struct {
	EnrollmentID string
	Status       *AbsenceStatus
	Page         int
	PageSize     int
}

// EnrollmentAbsenceSum is one row of the bulk uncounted-hours aggregation.
type EnrollmentAbsenceSum struct {
	EnrollmentID string  `db:"enrollment_id"`
	Hours        float64 `db:"hours"`
}
