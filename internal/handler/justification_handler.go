package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/univ-hub/attendance-api/internal/dto"
	"github.com/univ-hub/attendance-api/internal/models"
	"github.com/univ-hub/attendance-api/internal/service"
	appErrors "github.com/univ-hub/attendance-api/pkg/errors"
	"github.com/univ-hub/attendance-api/pkg/response"
)

// maxDocumentBytes caps uploaded justification documents at 10 MiB.
const maxDocumentBytes = 10 << 20

type justificationService interface {
	Submit(ctx context.Context, req service.SubmitJustificationRequest, actor models.Actor) (*models.Justification, error)
	Decide(ctx context.Context, req service.DecideJustificationRequest, actor models.Actor) (*models.Justification, error)
	DirectEncode(ctx context.Context, req service.DirectEncodeRequest, actor models.Actor) (*models.Justification, error)
}

// JustificationHandler exposes the justification review endpoints.
type JustificationHandler struct {
	service justificationService
}

// NewJustificationHandler builds a new handler.
func NewJustificationHandler(service justificationService) *JustificationHandler {
	return &JustificationHandler{service: service}
}

func readDocument(c *gin.Context) (string, []byte, error) {
	fileHeader, err := c.FormFile("document")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil, nil
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document upload")
	}
	if fileHeader.Size > maxDocumentBytes {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "document exceeds the upload size limit")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document upload")
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(io.LimitReader(file, maxDocumentBytes+1))
	if err != nil {
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document upload")
	}
	if len(data) > maxDocumentBytes {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "document exceeds the upload size limit")
	}
	return fileHeader.Filename, data, nil
}

// Submit godoc
// @Summary Submit a justification
// @Tags Justifications
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param absence_record_id formData string true "Absence record ID"
// @Param comment formData string false "Comment"
// @Param document formData file false "Supporting document"
// @Success 201 {object} response.Envelope
// @Router /justifications [post]
func (h *JustificationHandler) Submit(c *gin.Context) {
	name, data, err := readDocument(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stored, err := h.service.Submit(c.Request.Context(), service.SubmitJustificationRequest{
		AbsenceRecordID: c.PostForm("absence_record_id"),
		Comment:         c.PostForm("comment"),
		DocumentName:    name,
		Document:        data,
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stored)
}

// Decide godoc
// @Summary Decide a justification
// @Tags Justifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Justification ID"
// @Param payload body dto.DecideJustificationRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /justifications/{id}/decision [post]
func (h *JustificationHandler) Decide(c *gin.Context) {
	var req dto.DecideJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	stored, err := h.service.Decide(c.Request.Context(), service.DecideJustificationRequest{
		JustificationID: c.Param("id"),
		Outcome:         models.JustificationOutcome(req.Outcome),
		Comment:         req.Comment,
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stored, nil)
}

// DirectEncode godoc
// @Summary Directly encode a justified absence
// @Tags Justifications
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param enrollment_id formData string true "Enrollment ID"
// @Param session_id formData string true "Session ID"
// @Param kind formData string false "Absence kind"
// @Param duration_hours formData number false "Duration in hours"
// @Param comment formData string false "Comment"
// @Param document formData file false "Supporting document"
// @Success 201 {object} response.Envelope
// @Router /justifications/direct [post]
func (h *JustificationHandler) DirectEncode(c *gin.Context) {
	name, data, err := readDocument(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var duration *float64
	if raw := c.PostForm("duration_hours"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid duration_hours"))
			return
		}
		duration = &parsed
	}
	stored, err := h.service.DirectEncode(c.Request.Context(), service.DirectEncodeRequest{
		EnrollmentID:  c.PostForm("enrollment_id"),
		SessionID:     c.PostForm("session_id"),
		Kind:          models.AbsenceKind(c.PostForm("kind")),
		DurationHours: duration,
		Comment:       c.PostForm("comment"),
		DocumentName:  name,
		Document:      data,
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stored)
}
