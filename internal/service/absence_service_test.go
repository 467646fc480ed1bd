package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/pkg/config"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type absLedgerStub struct {
	records  map[string]models.AbsenceRecord
	upserted []models.AbsenceRecord
	deleted  []string
	listed   []models.AbsenceDetail
}

func (s *absLedgerStub) key(enrollmentID, sessionID string) string {
	return enrollmentID + "/" + sessionID
}

func (s *absLedgerStub) FindBySessionForUpdate(_ context.Context, enrollmentID, sessionID string) (*models.AbsenceRecord, error) {
	r, ok := s.records[s.key(enrollmentID, sessionID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *absLedgerStub) Upsert(_ context.Context, record *models.AbsenceRecord) (*models.AbsenceRecord, error) {
	stored := *record
	if stored.ID == "" {
		stored.ID = "rec-new"
	}
	s.upserted = append(s.upserted, stored)
	return &stored, nil
}

func (s *absLedgerStub) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *absLedgerStub) ListByEnrollment(_ context.Context, _ string) ([]models.AbsenceDetail, error) {
	return s.listed, nil
}

type absSessionStub struct {
	sessions map[string]models.Session
}

func (s *absSessionStub) FindByID(_ context.Context, id string) (*models.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

type absJustificationStub struct {
	byRecord map[string]models.Justification
}

func (s *absJustificationStub) FindByRecordIDs(_ context.Context, recordIDs []string) (map[string]models.Justification, error) {
	out := make(map[string]models.Justification)
	for _, id := range recordIDs {
		if j, ok := s.byRecord[id]; ok {
			out[id] = j
		}
	}
	return out, nil
}

type absenceFixture struct {
	svc    *AbsenceService
	ledger *absLedgerStub
	recalc *stubRecalculator
	audit  *stubAudit
}

func newAbsenceFixture(t *testing.T) *absenceFixture {
	t.Helper()
	ledger := &absLedgerStub{records: map[string]models.AbsenceRecord{}}
	enrollments := &eligEnrollmentStub{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1"},
	}}
	sessions := &absSessionStub{sessions: map[string]models.Session{
		"ses-1": {ID: "ses-1", CourseID: "crs-1", ScheduledHours: 2},
		"ses-other": {ID: "ses-other", CourseID: "crs-2", ScheduledHours: 2},
	}}
	recalc := &stubRecalculator{}
	audit := &stubAudit{}
	svc := NewAbsenceService(ledger, enrollments, sessions, &absJustificationStub{}, recalc, audit, stubTx{},
		config.AttendanceConfig{FullDayHours: 8, MaxPartialHours: 24}, nil, nil)
	return &absenceFixture{svc: svc, ledger: ledger, recalc: recalc, audit: audit}
}

func TestRecordFullSessionAbsence(t *testing.T) {
	f := newAbsenceFixture(t)
	secretary := actorWithRole("sec-1", models.RoleSecretary)

	record, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-1",
		Kind:         models.AbsenceKindFullSession,
	}, secretary)
	require.NoError(t, err)
	assert.Equal(t, 2.0, record.DurationHours)
	assert.Equal(t, models.AbsenceStatusPending, record.Status)
	assert.Equal(t, "sec-1", record.RecordedBy)
	assert.Equal(t, []string{"enr-1"}, f.recalc.calls, "mutation must trigger recalculation")
	assert.Contains(t, f.audit.actions(), models.AuditActionAbsenceRecord)
}

func TestRecordFullDayUsesConfiguredHours(t *testing.T) {
	f := newAbsenceFixture(t)

	record, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-1",
		Kind:         models.AbsenceKindFullDay,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	assert.Equal(t, 8.0, record.DurationHours)
}

func TestRecordImplausiblePartialFallsBack(t *testing.T) {
	f := newAbsenceFixture(t)
	tooLong := 48.0

	record, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID:  "enr-1",
		SessionID:     "ses-1",
		Kind:          models.AbsenceKindPartialHours,
		DurationHours: &tooLong,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	assert.Equal(t, 2.0, record.DurationHours, "implausible duration falls back to scheduled hours")
}

func TestRecordRequiresCapability(t *testing.T) {
	f := newAbsenceFixture(t)

	_, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-1",
		Kind:         models.AbsenceKindFullSession,
	}, actorWithRole("stu-1", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.recalc.calls)
}

func TestRecordRejectsForeignSession(t *testing.T) {
	f := newAbsenceFixture(t)

	_, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-other",
		Kind:         models.AbsenceKindFullSession,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordProtectedWithoutOverride(t *testing.T) {
	f := newAbsenceFixture(t)
	f.ledger.records["enr-1/ses-1"] = models.AbsenceRecord{
		ID: "rec-1", EnrollmentID: "enr-1", SessionID: "ses-1", Status: models.AbsenceStatusJustified,
	}

	_, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-1",
		Kind:         models.AbsenceKindFullSession,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrProtected.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.ledger.upserted, "protected record must stay untouched")
	assert.Empty(t, f.recalc.calls)
}

func TestRecordProtectedOverrideRequiresReason(t *testing.T) {
	f := newAbsenceFixture(t)
	f.ledger.records["enr-1/ses-1"] = models.AbsenceRecord{
		ID: "rec-1", EnrollmentID: "enr-1", SessionID: "ses-1", Status: models.AbsenceStatusJustified,
	}
	admin := actorWithRole("adm-1", models.RoleAdmin)

	_, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-1",
		Kind:         models.AbsenceKindFullSession,
	}, admin)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	record, err := f.svc.Record(context.Background(), RecordAbsenceRequest{
		EnrollmentID:   "enr-1",
		SessionID:      "ses-1",
		Kind:           models.AbsenceKindFullSession,
		OverrideReason: "justification entered against the wrong session",
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceStatusPending, record.Status, "override reopens the record")
	assert.Contains(t, f.audit.actions(), models.AuditActionAbsenceOverride)
}

func TestClearProtectedIsSilentNoOp(t *testing.T) {
	f := newAbsenceFixture(t)
	f.ledger.records["enr-1/ses-1"] = models.AbsenceRecord{
		ID: "rec-1", EnrollmentID: "enr-1", SessionID: "ses-1", Status: models.AbsenceStatusJustified,
	}

	err := f.svc.Clear(context.Background(), "enr-1", "ses-1", actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	assert.Empty(t, f.ledger.deleted)
	assert.Empty(t, f.recalc.calls)
}

func TestClearDeletesAndRecalculates(t *testing.T) {
	f := newAbsenceFixture(t)
	f.ledger.records["enr-1/ses-1"] = models.AbsenceRecord{
		ID: "rec-1", EnrollmentID: "enr-1", SessionID: "ses-1", Status: models.AbsenceStatusPending,
	}

	err := f.svc.Clear(context.Background(), "enr-1", "ses-1", actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	assert.Equal(t, []string{"rec-1"}, f.ledger.deleted)
	assert.Equal(t, []string{"enr-1"}, f.recalc.calls)
}

func TestClearMissingRecord(t *testing.T) {
	f := newAbsenceFixture(t)

	err := f.svc.Clear(context.Background(), "enr-1", "ses-1", actorWithRole("sec-1", models.RoleSecretary))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListForEnrollmentDerivesEffectiveStatus(t *testing.T) {
	ledger := &absLedgerStub{listed: []models.AbsenceDetail{
		{AbsenceRecord: models.AbsenceRecord{ID: "rec-1", Status: models.AbsenceStatusUnjustified}},
		{AbsenceRecord: models.AbsenceRecord{ID: "rec-2", Status: models.AbsenceStatusUnjustified}},
	}}
	enrollments := &eligEnrollmentStub{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1"},
	}}
	justifications := &absJustificationStub{byRecord: map[string]models.Justification{
		"rec-2": {ID: "jus-1", AbsenceRecordID: "rec-2", State: models.JustificationStatePending},
	}}
	svc := NewAbsenceService(ledger, enrollments, &absSessionStub{}, justifications, &stubRecalculator{}, &stubAudit{}, stubTx{},
		config.AttendanceConfig{}, nil, nil)

	rows, err := svc.ListForEnrollment(context.Background(), "enr-1", actorWithRole("stu-1", models.RoleStudent))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.AbsenceStatusUnjustified, rows[0].EffectiveStatus)
	assert.Equal(t, models.AbsenceStatusPending, rows[1].EffectiveStatus, "open review counts as pending")
	require.NotNil(t, rows[1].Justification)
}

func TestListForEnrollmentForbidsForeignStudent(t *testing.T) {
	enrollments := &eligEnrollmentStub{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1"},
	}}
	svc := NewAbsenceService(&absLedgerStub{}, enrollments, &absSessionStub{}, &absJustificationStub{}, &stubRecalculator{}, &stubAudit{}, stubTx{},
		config.AttendanceConfig{}, nil, nil)

	_, err := svc.ListForEnrollment(context.Background(), "enr-1", actorWithRole("stu-2", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
