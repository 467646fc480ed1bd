package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/dto"
	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/internal/service"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/response"
)

type absenceService interface {
	Record(ctx context.Context, req service.RecordAbsenceRequest, actor models.Actor) (*models.AbsenceRecord, error)
	Clear(ctx context.Context, enrollmentID, sessionID string, actor models.Actor) error
	ListForEnrollment(ctx context.Context, enrollmentID string, actor models.Actor) ([]models.AbsenceDetail, error)
}

// AbsenceHandler exposes the absence ledger endpoints.
type AbsenceHandler struct {
	service absenceService
}

// NewAbsenceHandler builds a new handler.
func NewAbsenceHandler(service absenceService) *AbsenceHandler {
	return &AbsenceHandler{service: service}
}

// Record godoc
// @Summary Record an absence
// @Tags Absences
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RecordAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /absences [post]
func (h *AbsenceHandler) Record(c *gin.Context) {
	var req dto.RecordAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	record, err := h.service.Record(c.Request.Context(), service.RecordAbsenceRequest{
		EnrollmentID:   req.EnrollmentID,
		SessionID:      req.SessionID,
		Kind:           models.AbsenceKind(req.Kind),
		DurationHours:  req.DurationHours,
		OverrideReason: req.OverrideReason,
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Clear godoc
// @Summary Clear an absence
// @Tags Absences
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path string true "Enrollment ID"
// @Param sessionID path string true "Session ID"
// @Success 204
// @Router /enrollments/{enrollmentID}/sessions/{sessionID}/absence [delete]
func (h *AbsenceHandler) Clear(c *gin.Context) {
	err := h.service.Clear(c.Request.Context(), c.Param("enrollmentID"), c.Param("sessionID"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List an enrollment's absences
// @Tags Absences
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{enrollmentID}/absences [get]
func (h *AbsenceHandler) List(c *gin.Context) {
	rows, err := h.service.ListForEnrollment(c.Request.Context(), c.Param("enrollmentID"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
