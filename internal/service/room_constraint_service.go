package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type roomConstraintRepository interface {
	List(ctx context.Context) ([]models.RoomConstraint, error)
	FindByID(ctx context.Context, id string) (*models.RoomConstraint, error)
	ExistsByNormalizedLabel(ctx context.Context, normalized, excludeID string) (bool, error)
	Create(ctx context.Context, constraint *models.RoomConstraint) error
	Update(ctx context.Context, constraint *models.RoomConstraint) error
	Delete(ctx context.Context, id string) error
}

// RoomConstraintService manages the room to requirement table.
type RoomConstraintService struct {
	repo      roomConstraintRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRoomConstraintService constructs a room constraint service.
func NewRoomConstraintService(repo roomConstraintRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RoomConstraintService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomConstraintService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns every room constraint ordered by label.
func (s *RoomConstraintService) List(ctx context.Context) ([]models.RoomConstraint, error) {
	constraints, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room constraints")
	}
	return constraints, nil
}

// Create adds a room constraint. Labels are unique once normalised.
func (s *RoomConstraintService) Create(ctx context.Context, req dto.RoomConstraintRequest) (*models.RoomConstraint, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	label := strings.TrimSpace(req.RoomLabel)
	if err := s.ensureUnique(ctx, label, ""); err != nil {
		return nil, err
	}
	constraint := &models.RoomConstraint{
		ID:            uuid.NewString(),
		RoomLabel:     label,
		RequiredCount: *req.RequiredCount,
		Notes:         req.Notes,
	}
	if err := s.repo.Create(ctx, constraint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room constraint")
	}
	s.invalidate(ctx)
	return constraint, nil
}

// Update replaces a room constraint.
func (s *RoomConstraintService) Update(ctx context.Context, id string, req dto.RoomConstraintRequest) (*models.RoomConstraint, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	constraint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room constraint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room constraint")
	}
	label := strings.TrimSpace(req.RoomLabel)
	if err := s.ensureUnique(ctx, label, id); err != nil {
		return nil, err
	}
	constraint.RoomLabel = label
	constraint.RequiredCount = *req.RequiredCount
	constraint.Notes = req.Notes
	if err := s.repo.Update(ctx, constraint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room constraint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room constraint")
	}
	s.invalidate(ctx)
	return constraint, nil
}

// Delete removes a room constraint. Rooms using it fall back to the default.
func (s *RoomConstraintService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room constraint not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room constraint")
	}
	s.invalidate(ctx)
	return nil
}

func (s *RoomConstraintService) validate(req dto.RoomConstraintRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room constraint payload")
	}
	if requirement.NormalizeRoom(req.RoomLabel) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "room label is required")
	}
	return nil
}

func (s *RoomConstraintService) ensureUnique(ctx context.Context, label, excludeID string) error {
	exists, err := s.repo.ExistsByNormalizedLabel(ctx, requirement.NormalizeRoom(label), excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room label")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "room label already has a constraint")
	}
	return nil
}

// Constraints apply to every session.
func (s *RoomConstraintService) invalidate(ctx context.Context) {
	_ = s.cache.InvalidateRequirements(ctx)
}
