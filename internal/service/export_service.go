package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/export"
)

// ExportFormat selects the rendered output.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries the rendered bytes with their content type.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type overviewBuilder interface {
	CourseOverview(ctx context.Context, courseID string, actor models.Actor) (*CourseOverview, error)
}

type reportArchive interface {
	Save(filename string, data []byte) (string, error)
}

// ExportService renders course eligibility reports. Exports reuse the
// dashboard's overview so they apply the same counting policy as every view.
type ExportService struct {
	dashboard overviewBuilder
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	archive   reportArchive
	logger    *zap.Logger
}

// NewExportService constructs the export service. The archive is optional;
// when set, every rendered report is also kept on disk.
func NewExportService(dashboard overviewBuilder, csv *export.CSVExporter, pdf *export.PDFExporter, archive reportArchive, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{dashboard: dashboard, csv: csv, pdf: pdf, archive: archive, logger: logger}
}

var eligibilityHeaders = []string{"Student", "Course", "Absence Hours", "Rate %", "Threshold %", "Tier", "Exempted", "Eligible"}

// CourseEligibilityReport renders the eligibility roster of one course.
func (s *ExportService) CourseEligibilityReport(ctx context.Context, courseID string, format ExportFormat, actor models.Actor) (*ExportResult, error) {
	overview, err := s.dashboard.CourseOverview(ctx, courseID, actor)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: eligibilityHeaders, Rows: make([]map[string]string, 0, len(overview.Rows))}
	for _, row := range overview.Rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":       row.Enrollment.StudentName,
			"Course":        row.Enrollment.CourseCode,
			"Absence Hours": strconv.FormatFloat(row.Eligibility.AbsenceHours, 'f', 2, 64),
			"Rate %":        strconv.FormatFloat(row.Eligibility.Rate, 'f', 2, 64),
			"Threshold %":   strconv.FormatFloat(row.Eligibility.Threshold, 'f', 2, 64),
			"Tier":          string(row.Eligibility.Tier),
			"Exempted":      formatBool(row.Eligibility.ExemptionGranted),
			"Eligible":      formatBool(row.Eligibility.Eligible),
		})
	}

	var result *ExportResult
	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		result = &ExportResult{
			Filename:    fmt.Sprintf("eligibility_%s.csv", overview.CourseCode),
			ContentType: "text/csv",
			Data:        data,
		}
	case ExportFormatPDF:
		title := fmt.Sprintf("Exam Eligibility %s %s", overview.CourseCode, overview.CourseName)
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		result = &ExportResult{
			Filename:    fmt.Sprintf("eligibility_%s.pdf", overview.CourseCode),
			ContentType: "application/pdf",
			Data:        data,
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	s.archiveReport(result)
	return result, nil
}

// archiveReport keeps a dated copy of the rendered report. Failures never
// reach the caller; the download already has the bytes in hand.
func (s *ExportService) archiveReport(result *ExportResult) {
	if s.archive == nil {
		return
	}
	path := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006/01"), result.Filename)
	if _, err := s.archive.Save(path, result.Data); err != nil {
		s.logger.Warn("failed to archive report", zap.String("path", path), zap.Error(err))
	}
}

func formatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
