package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type sessionResolverStub struct {
	active    string
	err       error
	requested string
}

func (s *sessionResolverStub) Resolve(ctx context.Context, sessionID string) (string, error) {
	s.requested = sessionID
	if s.err != nil {
		return "", s.err
	}
	if sessionID != "" {
		return sessionID, nil
	}
	return s.active, nil
}

type sessionServiceMock struct {
	sessions  []models.Session
	active    *models.Session
	activeErr error
	created   dto.CreateSessionRequest
	activated string
}

func (m *sessionServiceMock) List(ctx context.Context) ([]models.Session, error) {
	return m.sessions, nil
}

func (m *sessionServiceMock) Active(ctx context.Context) (*models.Session, error) {
	return m.active, m.activeErr
}

func (m *sessionServiceMock) Create(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error) {
	m.created = req
	return &models.Session{ID: "sess-new", Code: req.Code, Name: req.Name}, nil
}

func (m *sessionServiceMock) Activate(ctx context.Context, id string) (*models.Session, error) {
	m.activated = id
	return &models.Session{ID: id, IsActive: true}, nil
}

func TestSessionHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&sessionServiceMock{sessions: []models.Session{{ID: "s1"}, {ID: "s2"}}})

	c, w := newGinContext(http.MethodGet, "/sessions", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
}

func TestSessionHandlerActiveMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&sessionServiceMock{activeErr: appErrors.ErrNoActiveSession})

	c, w := newGinContext(http.MethodGet, "/sessions/active", nil)
	handler.Active(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestSessionHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &sessionServiceMock{}
	handler := NewSessionHandler(svc)

	c, w := newGinContext(http.MethodPost, "/sessions", []byte(`{"code":"2024_06","name":"June 2024"}`))
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2024_06", svc.created.Code)
}

func TestSessionHandlerCreateRejectsMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSessionHandler(&sessionServiceMock{})

	c, w := newGinContext(http.MethodPost, "/sessions", []byte(`{"code":`))
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerActivate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &sessionServiceMock{}
	handler := NewSessionHandler(svc)

	c, w := newGinContext(http.MethodPost, "/sessions/s2/activate", nil)
	c.Params = gin.Params{{Key: "id", Value: "s2"}}
	handler.Activate(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s2", svc.activated)
}
