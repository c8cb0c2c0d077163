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

type roomConstraintService interface {
	List(ctx context.Context) ([]models.RoomConstraint, error)
	Create(ctx context.Context, req dto.RoomConstraintRequest) (*models.RoomConstraint, error)
	Update(ctx context.Context, id string, req dto.RoomConstraintRequest) (*models.RoomConstraint, error)
	Delete(ctx context.Context, id string) error
}

// RoomConstraintHandler manages per-room invigilator requirements.
type RoomConstraintHandler struct {
	service roomConstraintService
}

// NewRoomConstraintHandler constructs handler.
func NewRoomConstraintHandler(service roomConstraintService) *RoomConstraintHandler {
	return &RoomConstraintHandler{service: service}
}

// List godoc
// @Summary List room constraints
// @Tags RoomConstraints
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /room-constraints [get]
func (h *RoomConstraintHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create room constraint
// @Tags RoomConstraints
// @Accept json
// @Produce json
// @Param payload body dto.RoomConstraintRequest true "Constraint payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /room-constraints [post]
func (h *RoomConstraintHandler) Create(c *gin.Context) {
	var req dto.RoomConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room constraint payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update room constraint
// @Tags RoomConstraints
// @Accept json
// @Produce json
// @Param id path string true "Constraint ID"
// @Param payload body dto.RoomConstraintRequest true "Constraint payload"
// @Success 200 {object} response.Envelope
// @Router /room-constraints/{id} [put]
func (h *RoomConstraintHandler) Update(c *gin.Context) {
	var req dto.RoomConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room constraint payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete room constraint
// @Tags RoomConstraints
// @Param id path string true "Constraint ID"
// @Success 204
// @Router /room-constraints/{id} [delete]
func (h *RoomConstraintHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
