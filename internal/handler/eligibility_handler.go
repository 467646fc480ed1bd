package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/response"
)

type eligibilityService interface {
	Compute(ctx context.Context, enrollmentID string) (*models.EligibilityResult, error)
	Recalculate(ctx context.Context, enrollmentID string) (*models.EligibilityResult, error)
}

type eligibilityTxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type eligibilityEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// EligibilityHandler exposes eligibility verdicts.
type EligibilityHandler struct {
	service     eligibilityService
	enrollments eligibilityEnrollmentReader
	tx          eligibilityTxRunner
}

// NewEligibilityHandler builds a new handler.
func NewEligibilityHandler(service eligibilityService, enrollments eligibilityEnrollmentReader, tx eligibilityTxRunner) *EligibilityHandler {
	return &EligibilityHandler{service: service, enrollments: enrollments, tx: tx}
}

// Get godoc
// @Summary Current eligibility verdict for an enrollment
// @Tags Eligibility
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{enrollmentID}/eligibility [get]
func (h *EligibilityHandler) Get(c *gin.Context) {
	enrollmentID := c.Param("enrollmentID")
	actor := actorFromContext(c)
	if !actor.Can(models.CapabilityViewReports) {
		enrollment, err := h.enrollments.FindByID(c.Request.Context(), enrollmentID)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found"))
			return
		}
		if enrollment.StudentID != actor.UserID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}
	result, err := h.service.Compute(c.Request.Context(), enrollmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Recalculate godoc
// @Summary Force an eligibility recalculation
// @Tags Eligibility
// @Produce json
// @Security BearerAuth
// @Param enrollmentID path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{enrollmentID}/eligibility/recalculate [post]
func (h *EligibilityHandler) Recalculate(c *gin.Context) {
	var result *models.EligibilityResult
	err := h.tx.RunInTx(c.Request.Context(), func(ctx context.Context) error {
		var err error
		result, err = h.service.Recalculate(ctx, c.Param("enrollmentID"))
		return err
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
