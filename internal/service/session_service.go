package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/repository"
	"github.com/noah-isme/exam-surveillance-api/pkg/database"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindActive(ctx context.Context) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Activate(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// SessionService manages scheduling sessions and resolves the session a request targets.
type SessionService struct {
	repo      sessionRepository
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs a session service.
func NewSessionService(repo sessionRepository, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, tx: tx, cache: cache, validator: validate, logger: logger}
}

// List returns every session.
func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	sessions, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// Active returns the currently active session.
func (s *SessionService) Active(ctx context.Context) (*models.Session, error) {
	session, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNoActiveSession
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active session")
	}
	return session, nil
}

// Resolve returns sessionID when provided, otherwise the id of the active session.
func (s *SessionService) Resolve(ctx context.Context, sessionID string) (string, error) {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id, nil
	}
	session, err := s.Active(ctx)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// Create registers a new, inactive session.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	session := &models.Session{
		ID:   uuid.NewString(),
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// Activate makes id the only active session.
func (s *SessionService) Activate(ctx context.Context, id string) (*models.Session, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.repo.Activate(ctx, tx, id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate session")
	}
	_ = s.cache.InvalidateRequirements(ctx)
	s.logger.Info("session activated", zap.String("session_id", id))
	return s.Get(ctx, id)
}
