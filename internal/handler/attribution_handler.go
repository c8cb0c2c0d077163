package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
	"github.com/noah-isme/exam-surveillance-api/pkg/response"
)

type attributionService interface {
	ListByExam(ctx context.Context, examID string) ([]models.Attribution, error)
	PreAssign(ctx context.Context, examID string, req dto.PreAssignRequest) (*models.Attribution, error)
	Delete(ctx context.Context, id string) error
}

// AttributionHandler manages invigilator attributions.
type AttributionHandler struct {
	service attributionService
}

// NewAttributionHandler constructs handler.
func NewAttributionHandler(service attributionService) *AttributionHandler {
	return &AttributionHandler{service: service}
}

// List godoc
// @Summary List attributions of an exam
// @Tags Attributions
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/attributions [get]
func (h *AttributionHandler) List(c *gin.Context) {
	items, err := h.service.ListByExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// PreAssign godoc
// @Summary Pre-assign an invigilator to an exam
// @Tags Attributions
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.PreAssignRequest true "Pre-assignment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exams/{id}/attributions [post]
func (h *AttributionHandler) PreAssign(c *gin.Context) {
	var req dto.PreAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attribution payload"))
		return
	}
	item, err := h.service.PreAssign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Remove attribution
// @Tags Attributions
// @Param id path string true "Attribution ID"
// @Success 204
// @Router /attributions/{id} [delete]
func (h *AttributionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
