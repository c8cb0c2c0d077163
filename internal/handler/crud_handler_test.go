package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type roomConstraintServiceMock struct {
	createErr error
	updatedID string
	deleted   string
}

func (m *roomConstraintServiceMock) List(ctx context.Context) ([]models.RoomConstraint, error) {
	return []models.RoomConstraint{{ID: "rc-1", RoomLabel: "Amphi A", RequiredCount: 3}}, nil
}

func (m *roomConstraintServiceMock) Create(ctx context.Context, req dto.RoomConstraintRequest) (*models.RoomConstraint, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.RoomConstraint{ID: "rc-2", RoomLabel: req.RoomLabel, RequiredCount: *req.RequiredCount}, nil
}

func (m *roomConstraintServiceMock) Update(ctx context.Context, id string, req dto.RoomConstraintRequest) (*models.RoomConstraint, error) {
	m.updatedID = id
	return &models.RoomConstraint{ID: id, RoomLabel: req.RoomLabel}, nil
}

func (m *roomConstraintServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

type helperServiceMock struct {
	examID  string
	created dto.HelperRequest
	deleted string
}

func (m *helperServiceMock) List(ctx context.Context, examID string) ([]models.HelperPerson, error) {
	m.examID = examID
	return nil, nil
}

func (m *helperServiceMock) Create(ctx context.Context, examID string, req dto.HelperRequest) (*models.HelperPerson, error) {
	m.examID = examID
	m.created = req
	return &models.HelperPerson{ID: "h-1", ExamID: examID, Name: req.Name}, nil
}

func (m *helperServiceMock) Update(ctx context.Context, id string, req dto.HelperRequest) (*models.HelperPerson, error) {
	return &models.HelperPerson{ID: id, Name: req.Name}, nil
}

func (m *helperServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

type attributionServiceMock struct {
	preAssignErr error
	request      dto.PreAssignRequest
	deleted      string
}

func (m *attributionServiceMock) ListByExam(ctx context.Context, examID string) ([]models.Attribution, error) {
	return []models.Attribution{{ID: "a-1", ExamID: examID}}, nil
}

func (m *attributionServiceMock) PreAssign(ctx context.Context, examID string, req dto.PreAssignRequest) (*models.Attribution, error) {
	m.request = req
	if m.preAssignErr != nil {
		return nil, m.preAssignErr
	}
	return &models.Attribution{ID: "a-2", ExamID: examID, InvigilatorID: req.InvigilatorID, IsPreAssigned: true}, nil
}

func (m *attributionServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

func TestRoomConstraintHandlerCRUD(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &roomConstraintServiceMock{}
	handler := NewRoomConstraintHandler(svc)

	c, w := newGinContext(http.MethodGet, "/room-constraints", nil)
	handler.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Amphi A")

	c, w = newGinContext(http.MethodPost, "/room-constraints", []byte(`{"room_label":"Lab 1","required_count":2}`))
	handler.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodPut, "/room-constraints/rc-1", []byte(`{"room_label":"Amphi A","required_count":4}`))
	c.Params = gin.Params{{Key: "id", Value: "rc-1"}}
	handler.Update(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rc-1", svc.updatedID)

	c, w = newGinContext(http.MethodDelete, "/room-constraints/rc-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "rc-1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rc-1", svc.deleted)
}

func TestRoomConstraintHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRoomConstraintHandler(&roomConstraintServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "room constraint already exists")})

	c, w := newGinContext(http.MethodPost, "/room-constraints", []byte(`{"room_label":"amphi  a","required_count":2}`))
	handler.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHelperHandlerCRUD(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &helperServiceMock{}
	handler := NewHelperHandler(svc)

	c, w := newGinContext(http.MethodGet, "/exams/e-1/helpers", nil)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "e-1", svc.examID)

	c, w = newGinContext(http.MethodPost, "/exams/e-1/helpers", []byte(`{"name":"Jo","is_assistant":true,"present_on_site":true}`))
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.created.IsAssistant)

	c, w = newGinContext(http.MethodPut, "/helpers/h-1", []byte(`{"name":"Jo B"}`))
	c.Params = gin.Params{{Key: "id", Value: "h-1"}}
	handler.Update(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodDelete, "/helpers/h-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "h-1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "h-1", svc.deleted)
}

func TestHelperHandlerRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHelperHandler(&helperServiceMock{})

	c, w := newGinContext(http.MethodPost, "/exams/e-1/helpers", []byte(`[`))
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttributionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &attributionServiceMock{}
	handler := NewAttributionHandler(svc)

	c, w := newGinContext(http.MethodGet, "/exams/e-1/attributions", nil)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.List(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/exams/e-1/attributions", []byte(`{"invigilator_id":"inv-1","locked":true}`))
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.PreAssign(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "inv-1", svc.request.InvigilatorID)
	assert.True(t, svc.request.Locked)

	c, w = newGinContext(http.MethodDelete, "/attributions/a-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "a-1", svc.deleted)
}

func TestAttributionHandlerDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAttributionHandler(&attributionServiceMock{preAssignErr: appErrors.Clone(appErrors.ErrConflict, "invigilator already attributed to exam")})

	c, w := newGinContext(http.MethodPost, "/exams/e-1/attributions", []byte(`{"invigilator_id":"inv-1"}`))
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.PreAssign(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
