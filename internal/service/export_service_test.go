package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
)

type overviewStub struct {
	overview *CourseOverview
	err      error
}

func (s *overviewStub) CourseOverview(_ context.Context, _ string, _ models.Actor) (*CourseOverview, error) {
	return s.overview, s.err
}

type archiveStub struct {
	paths []string
}

func (s *archiveStub) Save(filename string, _ []byte) (string, error) {
	s.paths = append(s.paths, filename)
	return filename, nil
}

func exportOverview() *CourseOverview {
	enrollments, results := dashboardRows()
	rows := make([]CourseOverviewRow, len(enrollments))
	for i := range enrollments {
		rows[i] = CourseOverviewRow{Enrollment: enrollments[i], Eligibility: results[i]}
	}
	return &CourseOverview{
		CourseID:   "crs-1",
		CourseCode: "MATH101",
		CourseName: "Calculus",
		TotalHours: 40,
		Threshold:  25,
		Students:   len(rows),
		Rows:       rows,
	}
}

func TestCourseEligibilityReportCSV(t *testing.T) {
	archive := &archiveStub{}
	svc := NewExportService(&overviewStub{overview: exportOverview()}, nil, nil, archive, nil)

	result, err := svc.CourseEligibilityReport(context.Background(), "crs-1", ExportFormatCSV, actorWithRole("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, "eligibility_MATH101.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Data)), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Student")
	assert.Contains(t, lines[3], "BLOCKED")
	assert.Contains(t, lines[3], "yes")

	require.Len(t, archive.paths, 1)
	assert.Contains(t, archive.paths[0], "eligibility_MATH101.csv")
}

func TestCourseEligibilityReportPDF(t *testing.T) {
	svc := NewExportService(&overviewStub{overview: exportOverview()}, nil, nil, nil, nil)

	result, err := svc.CourseEligibilityReport(context.Background(), "crs-1", ExportFormatPDF, actorWithRole("adm-1", models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "%PDF", string(result.Data[:4]))
}

func TestCourseEligibilityReportUnknownFormat(t *testing.T) {
	svc := NewExportService(&overviewStub{overview: exportOverview()}, nil, nil, nil, nil)

	_, err := svc.CourseEligibilityReport(context.Background(), "crs-1", ExportFormat("xlsx"), actorWithRole("adm-1", models.RoleAdmin))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseEligibilityReportPropagatesOverviewError(t *testing.T) {
	svc := NewExportService(&overviewStub{err: appErrors.ErrForbidden}, nil, nil, nil, nil)

	_, err := svc.CourseEligibilityReport(context.Background(), "crs-1", ExportFormatCSV, actorWithRole("stu-1", models.RoleStudent))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
