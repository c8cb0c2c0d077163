package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/middleware"
	"github.com/noah-isme/exam-surveillance-api/pkg/response"
)

type requirementService interface {
	Session(ctx context.Context, sessionID string) (*dto.SessionRequirementsResponse, bool, error)
	Exam(ctx context.Context, examID string) (*dto.ExamRequirementResponse, error)
	WriteBack(ctx context.Context, sessionID string) (*dto.WriteBackResponse, error)
}

// RequirementHandler exposes computed surveillance requirements.
type RequirementHandler struct {
	service  requirementService
	sessions sessionResolver
}

// NewRequirementHandler builds a requirement handler.
func NewRequirementHandler(service requirementService, sessions sessionResolver) *RequirementHandler {
	return &RequirementHandler{service: service, sessions: sessions}
}

// Session godoc
// @Summary Requirements of every logical exam in a session
// @Tags Requirements
// @Produce json
// @Param sessionId query string false "Session ID (defaults to the active session)"
// @Success 200 {object} response.Envelope
// @Router /requirements [get]
func (h *RequirementHandler) Session(c *gin.Context) {
	sessionID, err := resolveSession(c, h.sessions)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	result, cacheHit, err := h.service.Session(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, middleware.MetaSessionID, sessionID)
	middleware.SetMeta(c, middleware.MetaProcessingTime, time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Exam godoc
// @Summary Requirement breakdown of one exam row
// @Tags Requirements
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /requirements/exams/{id} [get]
func (h *RequirementHandler) Exam(c *gin.Context) {
	result, err := h.service.Exam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// WriteBack godoc
// @Summary Persist computed counters onto exam rows
// @Tags Requirements
// @Produce json
// @Param sessionId query string false "Session ID (defaults to the active session)"
// @Success 200 {object} response.Envelope
// @Router /requirements/write-back [post]
func (h *RequirementHandler) WriteBack(c *gin.Context) {
	sessionID, err := resolveSession(c, h.sessions)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.WriteBack(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
