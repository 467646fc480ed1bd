package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type exemptionEnrollmentStub struct {
	enrollments map[string]models.Enrollment
	granted     map[string]bool
	reasons     map[string]*string
}

func (s *exemptionEnrollmentStub) FindByIDForUpdate(_ context.Context, id string) (*models.Enrollment, error) {
	e, ok := s.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s *exemptionEnrollmentStub) UpdateExemption(_ context.Context, id string, granted bool, reason *string) error {
	if s.granted == nil {
		s.granted = map[string]bool{}
		s.reasons = map[string]*string{}
	}
	s.granted[id] = granted
	s.reasons[id] = reason
	return nil
}

func TestGrantExemption(t *testing.T) {
	enrollments := &exemptionEnrollmentStub{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1", EligibleForExam: false},
	}}
	recalc := &stubRecalculator{result: &models.EligibilityResult{EnrollmentID: "enr-1", Eligible: true, Tier: models.TierBlocked, ExemptionGranted: true}}
	audit := &stubAudit{}
	svc := NewExemptionService(enrollments, recalc, audit, stubTx{}, nil)

	result, err := svc.Grant(context.Background(), "enr-1", "hospitalized for six weeks", actorWithRole("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	assert.True(t, result.Eligible)
	assert.True(t, enrollments.granted["enr-1"])
	require.NotNil(t, enrollments.reasons["enr-1"])
	assert.Equal(t, []string{"enr-1"}, recalc.calls)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionExemptionGrant, audit.entries[0].Action)
	assert.Equal(t, models.AuditSeverityCritical, audit.entries[0].Severity)
}

func TestGrantRequiresReason(t *testing.T) {
	svc := NewExemptionService(&exemptionEnrollmentStub{}, &stubRecalculator{}, &stubAudit{}, stubTx{}, nil)

	_, err := svc.Grant(context.Background(), "enr-1", "", actorWithRole("adm-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGrantRequiresCapability(t *testing.T) {
	svc := NewExemptionService(&exemptionEnrollmentStub{}, &stubRecalculator{}, &stubAudit{}, stubTx{}, nil)

	_, err := svc.Grant(context.Background(), "enr-1", "reason", actorWithRole("sec-1", models.RoleSecretary))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRevokeExemption(t *testing.T) {
	reason := "hospitalized"
	enrollments := &exemptionEnrollmentStub{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1", ExemptionGranted: true, ExemptionReason: &reason},
	}}
	recalc := &stubRecalculator{result: &models.EligibilityResult{EnrollmentID: "enr-1", Eligible: false, Tier: models.TierBlocked}}
	audit := &stubAudit{}
	svc := NewExemptionService(enrollments, recalc, audit, stubTx{}, nil)

	result, err := svc.Revoke(context.Background(), "enr-1", "granted in error", actorWithRole("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	assert.False(t, result.Eligible, "a blocked enrollment loses eligibility immediately on revocation")
	assert.False(t, enrollments.granted["enr-1"])
	assert.Nil(t, enrollments.reasons["enr-1"])
	assert.Contains(t, audit.actions(), models.AuditActionExemptionRevoke)
}

func TestRevokeWithoutGrant(t *testing.T) {
	enrollments := &exemptionEnrollmentStub{enrollments: map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", StudentID: "stu-1", CourseID: "crs-1"},
	}}
	svc := NewExemptionService(enrollments, &stubRecalculator{}, &stubAudit{}, stubTx{}, nil)

	_, err := svc.Revoke(context.Background(), "enr-1", "", actorWithRole("adm-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGrantUnknownEnrollment(t *testing.T) {
	svc := NewExemptionService(&exemptionEnrollmentStub{}, &stubRecalculator{}, &stubAudit{}, stubTx{}, nil)

	_, err := svc.Grant(context.Background(), "missing", "reason", actorWithRole("adm-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
