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

type thresholdService interface {
	Default(ctx context.Context) float64
	SetDefault(ctx context.Context, value float64, actor models.Actor) error
	SetCourseThreshold(ctx context.Context, courseID string, threshold *float64, actor models.Actor) error
}

// ThresholdHandler exposes threshold configuration endpoints.
type ThresholdHandler struct {
	service thresholdService
}

// NewThresholdHandler builds a new handler.
func NewThresholdHandler(service thresholdService) *ThresholdHandler {
	return &ThresholdHandler{service: service}
}

// GetDefault godoc
// @Summary Current system-wide absence threshold
// @Tags Thresholds
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /thresholds/default [get]
func (h *ThresholdHandler) GetDefault(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"value": h.service.Default(c.Request.Context())}, nil)
}

// SetDefault godoc
// @Summary Update the system-wide absence threshold
// @Tags Thresholds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DefaultThresholdRequest true "Threshold payload"
// @Success 200 {object} response.Envelope
// @Router /thresholds/default [put]
func (h *ThresholdHandler) SetDefault(c *gin.Context) {
	var req dto.DefaultThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid threshold payload"))
		return
	}
	if err := h.service.SetDefault(c.Request.Context(), req.Value, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"value": req.Value}, nil)
}

// SetCourseThreshold godoc
// @Summary Set or clear a course threshold override
// @Tags Thresholds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseID path string true "Course ID"
// @Param payload body dto.CourseThresholdRequest true "Override payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseID}/threshold [put]
func (h *ThresholdHandler) SetCourseThreshold(c *gin.Context) {
	var req dto.CourseThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	if err := h.service.SetCourseThreshold(c.Request.Context(), c.Param("courseID"), req.Value, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"value": req.Value}, nil)
}
