package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatusWithoutJustification(t *testing.T) {
	cases := []struct {
		name   string
		status AbsenceStatus
		want   AbsenceStatus
	}{
		{"pending ledger entry", AbsenceStatusPending, AbsenceStatusPending},
		{"justified ledger entry", AbsenceStatusJustified, AbsenceStatusJustified},
		{"unjustified ledger entry", AbsenceStatusUnjustified, AbsenceStatusUnjustified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := &AbsenceRecord{ID: "rec-1", Status: tc.status}
			assert.Equal(t, tc.want, EffectiveStatus(record, nil))
		})
	}
}

func TestEffectiveStatusJustificationIsAuthoritative(t *testing.T) {
	cases := []struct {
		name  string
		state JustificationState
		want  AbsenceStatus
	}{
		{"accepted review justifies", JustificationStateAccepted, AbsenceStatusJustified},
		{"rejected review leaves unjustified", JustificationStateRejected, AbsenceStatusUnjustified},
		{"open review is pending", JustificationStatePending, AbsenceStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// A stale ledger status must not leak through once a review exists.
			record := &AbsenceRecord{ID: "rec-1", Status: AbsenceStatusJustified}
			justification := &Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: tc.state}
			assert.Equal(t, tc.want, EffectiveStatus(record, justification))
		})
	}
}

func TestEffectiveStatusNilRecord(t *testing.T) {
	assert.Equal(t, AbsenceStatusPending, EffectiveStatus(nil, nil))
}

func TestCountsAgainstThreshold(t *testing.T) {
	record := func(status AbsenceStatus) *AbsenceRecord {
		return &AbsenceRecord{ID: "rec-1", Status: status}
	}
	review := func(state JustificationState) *Justification {
		return &Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: state}
	}

	cases := []struct {
		name          string
		record        *AbsenceRecord
		justification *Justification
		want          bool
	}{
		{"pending without review counts", record(AbsenceStatusPending), nil, true},
		{"unjustified without review counts", record(AbsenceStatusUnjustified), nil, true},
		{"justified without review does not count", record(AbsenceStatusJustified), nil, false},
		{"open review keeps counting", record(AbsenceStatusUnjustified), review(JustificationStatePending), true},
		{"accepted review stops counting", record(AbsenceStatusUnjustified), review(JustificationStateAccepted), false},
		{"rejected review keeps counting", record(AbsenceStatusJustified), review(JustificationStateRejected), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CountsAgainstThreshold(tc.record, tc.justification))
		})
	}
}
