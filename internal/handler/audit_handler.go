package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/response"
)

type auditReader interface {
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]models.AuditLog, error)
}

// AuditHandler exposes the audit trail for one subject.
type AuditHandler struct {
	repo auditReader
}

// NewAuditHandler builds a new handler.
func NewAuditHandler(repo auditReader) *AuditHandler {
	return &AuditHandler{repo: repo}
}

// ListBySubject godoc
// @Summary Audit entries for a subject
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param subject_type query string true "Subject type"
// @Param subject_id query string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) ListBySubject(c *gin.Context) {
	subjectType := c.Query("subject_type")
	subjectID := c.Query("subject_id")
	if subjectType == "" || subjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject_type and subject_id are required"))
		return
	}
	rows, err := h.repo.ListBySubject(c.Request.Context(), subjectType, subjectID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit entries"))
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
