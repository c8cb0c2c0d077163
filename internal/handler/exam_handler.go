package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
	"github.com/noah-isme/exam-surveillance-api/pkg/response"
)

type examService interface {
	List(ctx context.Context, sessionID string, query dto.ExamListQuery) ([]models.Exam, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Exam, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateExamStatusRequest) (*models.Exam, error)
	EditGroup(ctx context.Context, sessionID string, req dto.EditGroupRequest) (*dto.EditGroupResponse, error)
}

// ExamHandler exposes exam rows, their validation workflow and group edits.
type ExamHandler struct {
	service  examService
	sessions sessionResolver
}

// NewExamHandler constructs handler.
func NewExamHandler(service examService, sessions sessionResolver) *ExamHandler {
	return &ExamHandler{service: service, sessions: sessions}
}

// List godoc
// @Summary List exams of a session
// @Tags Exams
// @Produce json
// @Param sessionId query string false "Session ID (defaults to the active session)"
// @Param status query string false "Validation status"
// @Param code query string false "Exam code"
// @Param date query string false "Exam date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	var query dto.ExamListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam query"))
		return
	}
	sessionID, err := resolveSession(c, h.sessions)
	if err != nil {
		response.Error(c, err)
		return
	}
	exams, pagination, err := h.service.List(c.Request.Context(), sessionID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, pagination)
}

// Get godoc
// @Summary Get exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// UpdateStatus godoc
// @Summary Move an exam through the validation workflow
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.UpdateExamStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exams/{id}/status [patch]
func (h *ExamHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateExamStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	exam, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// EditGroup godoc
// @Summary Set or clear the theoretical total of a logical exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.EditGroupRequest true "Group edit"
// @Success 200 {object} response.Envelope
// @Router /exams/groups [put]
func (h *ExamHandler) EditGroup(c *gin.Context) {
	var req dto.EditGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}
	requested := strings.TrimSpace(req.SessionID)
	if requested == "" {
		requested = requestedSession(c)
	}
	sessionID, err := h.sessions.Resolve(c.Request.Context(), requested)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.EditGroup(c.Request.Context(), sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
