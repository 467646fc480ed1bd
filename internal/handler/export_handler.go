package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/internal/service"
	"github.com/univ-hub/attendance-api/pkg/response"
)

type exportService interface {
	CourseEligibilityReport(ctx context.Context, courseID string, format service.ExportFormat, actor models.Actor) (*service.ExportResult, error)
}

// ExportHandler streams rendered eligibility reports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// CourseReport godoc
// @Summary Export a course eligibility report
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param courseID path string true "Course ID"
// @Param format query string false "Report format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /exports/courses/{courseID} [get]
func (h *ExportHandler) CourseReport(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	result, err := h.service.CourseEligibilityReport(c.Request.Context(), c.Param("courseID"), format, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
