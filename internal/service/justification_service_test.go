package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/pkg/config"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type jusRepoStub struct {
	byID      map[string]models.Justification
	byRecord  map[string]models.Justification
	created   []models.Justification
	updated   []models.Justification
	createErr error
}

func (s *jusRepoStub) FindByID(_ context.Context, id string) (*models.Justification, error) {
	j, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &j, nil
}

func (s *jusRepoStub) FindByRecordIDForUpdate(_ context.Context, recordID string) (*models.Justification, error) {
	j, ok := s.byRecord[recordID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &j, nil
}

func (s *jusRepoStub) Create(_ context.Context, row *models.Justification) (*models.Justification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	stored := *row
	if stored.ID == "" {
		stored.ID = "jus-new"
	}
	s.created = append(s.created, stored)
	return &stored, nil
}

func (s *jusRepoStub) Update(_ context.Context, row *models.Justification) (*models.Justification, error) {
	stored := *row
	s.updated = append(s.updated, stored)
	return &stored, nil
}

type jusAbsenceStub struct {
	records   map[string]models.AbsenceRecord
	bySession map[string]models.AbsenceRecord
	statuses  map[string]models.AbsenceStatus
	upserted  []models.AbsenceRecord
}

func (s *jusAbsenceStub) FindByID(_ context.Context, id string) (*models.AbsenceRecord, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *jusAbsenceStub) FindBySessionForUpdate(_ context.Context, enrollmentID, sessionID string) (*models.AbsenceRecord, error) {
	r, ok := s.bySession[enrollmentID+"/"+sessionID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *jusAbsenceStub) Upsert(_ context.Context, record *models.AbsenceRecord) (*models.AbsenceRecord, error) {
	stored := *record
	if stored.ID == "" {
		stored.ID = "rec-new"
	}
	s.upserted = append(s.upserted, stored)
	return &stored, nil
}

func (s *jusAbsenceStub) UpdateStatus(_ context.Context, id string, status models.AbsenceStatus) error {
	if s.statuses == nil {
		s.statuses = map[string]models.AbsenceStatus{}
	}
	s.statuses[id] = status
	return nil
}

type docStoreStub struct {
	saved []string
}

func (s *docStoreStub) Save(filename string, _ []byte) (string, error) {
	s.saved = append(s.saved, filename)
	return filename, nil
}

type justificationFixture struct {
	svc      *JustificationService
	repo     *jusRepoStub
	absences *jusAbsenceStub
	recalc   *stubRecalculator
	notifier *stubNotifier
	audit    *stubAudit
	docs     *docStoreStub
}

func newJustificationFixture(t *testing.T) *justificationFixture {
	t.Helper()
	repo := &jusRepoStub{byID: map[string]models.Justification{}, byRecord: map[string]models.Justification{}}
	absences := &jusAbsenceStub{
		records: map[string]models.AbsenceRecord{
			"rec-1": {ID: "rec-1", EnrollmentID: "enr-1", SessionID: "ses-1", Status: models.AbsenceStatusUnjustified, DurationHours: 2},
		},
		bySession: map[string]models.AbsenceRecord{},
	}
	enrollments := &eligEnrollmentStub{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1"},
	}}
	sessions := &absSessionStub{sessions: map[string]models.Session{
		"ses-1": {ID: "ses-1", CourseID: "crs-1", ScheduledHours: 2},
	}}
	recalc := &stubRecalculator{}
	notifier := &stubNotifier{}
	audit := &stubAudit{}
	docs := &docStoreStub{}
	svc := NewJustificationService(repo, absences, enrollments, sessions, docs, recalc, notifier, audit, stubTx{}, config.AttendanceConfig{}, nil, nil)
	return &justificationFixture{svc: svc, repo: repo, absences: absences, recalc: recalc, notifier: notifier, audit: audit, docs: docs}
}

func TestSubmitOpensReview(t *testing.T) {
	f := newJustificationFixture(t)
	student := actorWithRole("stu-1", models.RoleStudent)

	stored, err := f.svc.Submit(context.Background(), SubmitJustificationRequest{
		AbsenceRecordID: "rec-1",
		Comment:         "medical certificate attached",
		DocumentName:    "certificate.pdf",
		Document:        []byte("%PDF-1.4"),
	}, student)
	require.NoError(t, err)
	assert.Equal(t, models.JustificationStatePending, stored.State)
	assert.Equal(t, "stu-1", stored.SubmittedBy)
	require.NotNil(t, stored.DocumentReference)
	assert.Len(t, f.docs.saved, 1)
	assert.Equal(t, models.AbsenceStatusPending, f.absences.statuses["rec-1"])
	assert.Equal(t, []string{"enr-1"}, f.recalc.calls)
	assert.Contains(t, f.audit.actions(), models.AuditActionJustificationSubmit)
}

func TestSubmitDuplicateUnderReview(t *testing.T) {
	f := newJustificationFixture(t)
	f.repo.byRecord["rec-1"] = models.Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: models.JustificationStatePending}

	_, err := f.svc.Submit(context.Background(), SubmitJustificationRequest{AbsenceRecordID: "rec-1"},
		actorWithRole("stu-1", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.created)
	assert.Empty(t, f.recalc.calls)
}

func TestSubmitConcurrentDuplicateIsConflict(t *testing.T) {
	f := newJustificationFixture(t)
	f.repo.createErr = &pq.Error{Code: "23505", Constraint: "justifications_absence_record_id_key"}

	_, err := f.svc.Submit(context.Background(), SubmitJustificationRequest{AbsenceRecordID: "rec-1"},
		actorWithRole("stu-1", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code,
		"the insert race loser gets the same conflict as a sequential duplicate")
	assert.Empty(t, f.recalc.calls)
}

func TestSubmitAlreadyAccepted(t *testing.T) {
	f := newJustificationFixture(t)
	f.repo.byRecord["rec-1"] = models.Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: models.JustificationStateAccepted}

	_, err := f.svc.Submit(context.Background(), SubmitJustificationRequest{AbsenceRecordID: "rec-1"},
		actorWithRole("stu-1", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitForeignStudentForbidden(t *testing.T) {
	f := newJustificationFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitJustificationRequest{AbsenceRecordID: "rec-1"},
		actorWithRole("stu-2", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitAfterRejectionReusesRow(t *testing.T) {
	f := newJustificationFixture(t)
	decidedBy := "sec-1"
	comment := "document illegible"
	f.repo.byRecord["rec-1"] = models.Justification{
		ID: "jus-1", AbsenceRecordID: "rec-1", State: models.JustificationStateRejected,
		DecidedBy: &decidedBy, DecisionComment: &comment,
	}

	stored, err := f.svc.Submit(context.Background(), SubmitJustificationRequest{
		AbsenceRecordID: "rec-1",
		Comment:         "rescanned document",
	}, actorWithRole("stu-1", models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, "jus-1", stored.ID, "resubmission reuses the row")
	assert.Equal(t, models.JustificationStatePending, stored.State)
	assert.Nil(t, stored.DecidedBy)
	assert.Nil(t, stored.DecidedAt)
	assert.Nil(t, stored.DecisionComment)
	assert.Empty(t, f.repo.created)
	require.Len(t, f.repo.updated, 1)
}

func TestDecideAcceptJustifies(t *testing.T) {
	f := newJustificationFixture(t)
	f.repo.byID["jus-1"] = models.Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: models.JustificationStatePending}
	f.repo.byRecord["rec-1"] = f.repo.byID["jus-1"]

	stored, err := f.svc.Decide(context.Background(), DecideJustificationRequest{
		JustificationID: "jus-1",
		Outcome:         models.JustificationOutcomeAccept,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	assert.Equal(t, models.JustificationStateAccepted, stored.State)
	require.NotNil(t, stored.DecidedBy)
	assert.Equal(t, "sec-1", *stored.DecidedBy)
	assert.Equal(t, models.AbsenceStatusJustified, f.absences.statuses["rec-1"])
	assert.Equal(t, []string{"enr-1"}, f.recalc.calls)
	require.Len(t, f.notifier.categories, 1)
	assert.Equal(t, models.NotificationCategoryJustificationAccepted, f.notifier.categories[0])
}

func TestDecideRejectRequiresComment(t *testing.T) {
	f := newJustificationFixture(t)
	f.repo.byID["jus-1"] = models.Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: models.JustificationStatePending}
	f.repo.byRecord["rec-1"] = f.repo.byID["jus-1"]

	_, err := f.svc.Decide(context.Background(), DecideJustificationRequest{
		JustificationID: "jus-1",
		Outcome:         models.JustificationOutcomeReject,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDecideRejectMarksUnjustified(t *testing.T) {
	f := newJustificationFixture(t)
	f.repo.byID["jus-1"] = models.Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: models.JustificationStatePending}
	f.repo.byRecord["rec-1"] = f.repo.byID["jus-1"]

	stored, err := f.svc.Decide(context.Background(), DecideJustificationRequest{
		JustificationID: "jus-1",
		Outcome:         models.JustificationOutcomeReject,
		Comment:         "certificate does not cover the session date",
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	assert.Equal(t, models.JustificationStateRejected, stored.State)
	assert.Equal(t, models.AbsenceStatusUnjustified, f.absences.statuses["rec-1"])
	require.Len(t, f.notifier.categories, 1)
	assert.Equal(t, models.NotificationCategoryJustificationRejected, f.notifier.categories[0])
}

func TestDecideAlreadyDecided(t *testing.T) {
	f := newJustificationFixture(t)
	f.repo.byID["jus-1"] = models.Justification{ID: "jus-1", AbsenceRecordID: "rec-1", State: models.JustificationStateAccepted}
	f.repo.byRecord["rec-1"] = f.repo.byID["jus-1"]

	_, err := f.svc.Decide(context.Background(), DecideJustificationRequest{
		JustificationID: "jus-1",
		Outcome:         models.JustificationOutcomeAccept,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestDecideForbiddenForProfessor(t *testing.T) {
	f := newJustificationFixture(t)

	_, err := f.svc.Decide(context.Background(), DecideJustificationRequest{
		JustificationID: "jus-1",
		Outcome:         models.JustificationOutcomeAccept,
	}, actorWithRole("prof-1", models.RoleProfessor))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDirectEncodeCreatesJustifiedRecord(t *testing.T) {
	f := newJustificationFixture(t)

	stored, err := f.svc.DirectEncode(context.Background(), DirectEncodeRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-1",
		Comment:      "paper certificate filed at the front desk",
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	assert.Equal(t, models.JustificationStateAccepted, stored.State)
	require.NotNil(t, stored.DecidedBy)
	require.Len(t, f.absences.upserted, 1)
	assert.Equal(t, models.AbsenceStatusJustified, f.absences.upserted[0].Status)
	assert.Equal(t, 2.0, f.absences.upserted[0].DurationHours)
	assert.Equal(t, []string{"enr-1"}, f.recalc.calls)
	assert.Contains(t, f.audit.actions(), models.AuditActionDirectEncode)
}

func TestDirectEncodePartialDuration(t *testing.T) {
	f := newJustificationFixture(t)
	requested := 1.5

	_, err := f.svc.DirectEncode(context.Background(), DirectEncodeRequest{
		EnrollmentID:  "enr-1",
		SessionID:     "ses-1",
		Kind:          models.AbsenceKindPartialHours,
		DurationHours: &requested,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	require.Len(t, f.absences.upserted, 1)
	assert.Equal(t, 1.5, f.absences.upserted[0].DurationHours)
}

func TestDirectEncodeImplausiblePartialFallsBack(t *testing.T) {
	f := newJustificationFixture(t)
	requested := 48.0

	_, err := f.svc.DirectEncode(context.Background(), DirectEncodeRequest{
		EnrollmentID:  "enr-1",
		SessionID:     "ses-1",
		Kind:          models.AbsenceKindPartialHours,
		DurationHours: &requested,
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.NoError(t, err)
	require.Len(t, f.absences.upserted, 1)
	assert.Equal(t, 2.0, f.absences.upserted[0].DurationHours,
		"implausible partial hours fall back to the session's scheduled hours")
}

func TestDirectEncodeAlreadyJustified(t *testing.T) {
	f := newJustificationFixture(t)
	f.absences.bySession["enr-1/ses-1"] = models.AbsenceRecord{
		ID: "rec-1", EnrollmentID: "enr-1", SessionID: "ses-1", Status: models.AbsenceStatusJustified,
	}

	_, err := f.svc.DirectEncode(context.Background(), DirectEncodeRequest{
		EnrollmentID: "enr-1",
		SessionID:    "ses-1",
	}, actorWithRole("sec-1", models.RoleSecretary))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
