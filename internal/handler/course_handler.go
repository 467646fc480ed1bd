package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/models"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/response"
)

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type courseEnrollmentLister interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

// CourseHandler exposes the read surface over courses and their rosters.
type CourseHandler struct {
	courses     courseReader
	enrollments courseEnrollmentLister
}

// NewCourseHandler builds a new handler.
func NewCourseHandler(courses courseReader, enrollments courseEnrollmentLister) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments}
}

// Get godoc
// @Summary Get a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param courseID path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseID} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.FindByID(c.Request.Context(), c.Param("courseID"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "course not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course"))
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ListEnrollments godoc
// @Summary List the enrollments of a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param courseID path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseID}/enrollments [get]
func (h *CourseHandler) ListEnrollments(c *gin.Context) {
	rows, err := h.enrollments.ListByCourse(c.Request.Context(), c.Param("courseID"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments"))
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
