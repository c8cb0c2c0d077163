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

type helperService interface {
	List(ctx context.Context, examID string) ([]models.HelperPerson, error)
	Create(ctx context.Context, examID string, req dto.HelperRequest) (*models.HelperPerson, error)
	Update(ctx context.Context, id string, req dto.HelperRequest) (*models.HelperPerson, error)
	Delete(ctx context.Context, id string) error
}

// HelperHandler manages helper persons attached to exams.
type HelperHandler struct {
	service helperService
}

// NewHelperHandler constructs handler.
func NewHelperHandler(service helperService) *HelperHandler {
	return &HelperHandler{service: service}
}

// List godoc
// @Summary List helpers of an exam
// @Tags Helpers
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/helpers [get]
func (h *HelperHandler) List(c *gin.Context) {
	helpers, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, helpers, nil)
}

// Create godoc
// @Summary Attach a helper to an exam
// @Tags Helpers
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.HelperRequest true "Helper payload"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/helpers [post]
func (h *HelperHandler) Create(c *gin.Context) {
	var req dto.HelperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid helper payload"))
		return
	}
	helper, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, helper)
}

// Update godoc
// @Summary Update helper
// @Tags Helpers
// @Accept json
// @Produce json
// @Param id path string true "Helper ID"
// @Param payload body dto.HelperRequest true "Helper payload"
// @Success 200 {object} response.Envelope
// @Router /helpers/{id} [put]
func (h *HelperHandler) Update(c *gin.Context) {
	var req dto.HelperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid helper payload"))
		return
	}
	helper, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, helper, nil)
}

// Delete godoc
// @Summary Remove helper
// @Tags Helpers
// @Param id path string true "Helper ID"
// @Success 204
// @Router /helpers/{id} [delete]
func (h *HelperHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
