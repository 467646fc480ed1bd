package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/internal/service"
	"github.com/univ-hub/attendance-api/pkg/response"
)

type dashboardService interface {
	CourseOverview(ctx context.Context, courseID string, actor models.Actor) (*service.CourseOverview, error)
}

// DashboardHandler exposes aggregate eligibility views.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// CourseOverview godoc
// @Summary Eligibility overview for a course
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param courseID path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/courses/{courseID} [get]
func (h *DashboardHandler) CourseOverview(c *gin.Context) {
	overview, err := h.service.CourseOverview(c.Request.Context(), c.Param("courseID"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
