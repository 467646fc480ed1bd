package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/dto"
	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/response"
)

type exemptionService interface {
	Grant(ctx context.Context, enrollmentID, reason string, actor models.Actor) (*models.EligibilityResult, error)
	Revoke(ctx context.Context, enrollmentID, reason string, actor models.Actor) (*models.EligibilityResult, error)
}

// ExemptionHandler exposes exemption management endpoints.
type ExemptionHandler struct {
	service exemptionService
}

// NewExemptionHandler builds a new handler.
func NewExemptionHandler(service exemptionService) *ExemptionHandler {
	return &ExemptionHandler{service: service}
}

// Grant godoc
// @Summary Grant an exemption
// @Tags Exemptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path string true "Enrollment ID"
// @Param payload body dto.ExemptionRequest true "Exemption payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{enrollmentID}/exemption [post]
func (h *ExemptionHandler) Grant(c *gin.Context) {
	var req dto.ExemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exemption payload"))
		return
	}
	result, err := h.service.Grant(c.Request.Context(), c.Param("enrollmentID"), req.Reason, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Revoke godoc
// @Summary Revoke an exemption
// @Tags Exemptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{enrollmentID}/exemption [delete]
func (h *ExemptionHandler) Revoke(c *gin.Context) {
	var req dto.ExemptionRequest
	_ = c.ShouldBindJSON(&req)
	result, err := h.service.Revoke(c.Request.Context(), c.Param("enrollmentID"), req.Reason, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
