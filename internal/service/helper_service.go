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
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type helperRepository interface {
	ListByExam(ctx context.Context, examID string) ([]models.HelperPerson, error)
	FindByID(ctx context.Context, id string) (*models.HelperPerson, error)
	Create(ctx context.Context, helper *models.HelperPerson) error
	Update(ctx context.Context, helper *models.HelperPerson) error
	Delete(ctx context.Context, id string) error
}

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

// HelperService manages helper persons attached to exams.
type HelperService struct {
	repo      helperRepository
	exams     examReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHelperService constructs a helper service.
func NewHelperService(repo helperRepository, exams examReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *HelperService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HelperService{repo: repo, exams: exams, cache: cache, validator: validate, logger: logger}
}

// List returns the helpers of one exam.
func (s *HelperService) List(ctx context.Context, examID string) ([]models.HelperPerson, error) {
	if _, err := loadExam(ctx, s.exams, examID); err != nil {
		return nil, err
	}
	helpers, err := s.repo.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list helpers")
	}
	return helpers, nil
}

// Create attaches a helper to an exam.
func (s *HelperService) Create(ctx context.Context, examID string, req dto.HelperRequest) (*models.HelperPerson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid helper payload")
	}
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	helper := &models.HelperPerson{ID: uuid.NewString(), ExamID: examID}
	applyHelperRequest(helper, req)
	if err := s.repo.Create(ctx, helper); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create helper")
	}
	_ = s.cache.InvalidateSession(ctx, exam.SessionID)
	return helper, nil
}

// Update replaces a helper's attributes.
func (s *HelperService) Update(ctx context.Context, id string, req dto.HelperRequest) (*models.HelperPerson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid helper payload")
	}
	helper, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	applyHelperRequest(helper, req)
	if err := s.repo.Update(ctx, helper); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "helper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update helper")
	}
	s.invalidateExam(ctx, helper.ExamID)
	return helper, nil
}

// Delete removes a helper.
func (s *HelperService) Delete(ctx context.Context, id string) error {
	helper, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "helper not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete helper")
	}
	s.invalidateExam(ctx, helper.ExamID)
	return nil
}

func (s *HelperService) find(ctx context.Context, id string) (*models.HelperPerson, error) {
	helper, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "helper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load helper")
	}
	return helper, nil
}

func (s *HelperService) invalidateExam(ctx context.Context, examID string) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		s.logger.Warn("invalidating all requirements", zap.String("exam_id", examID), zap.Error(err))
		_ = s.cache.InvalidateRequirements(ctx)
		return
	}
	_ = s.cache.InvalidateSession(ctx, exam.SessionID)
}

// An assistant always counts toward the quota.
func applyHelperRequest(helper *models.HelperPerson, req dto.HelperRequest) {
	helper.Name = strings.TrimSpace(req.Name)
	helper.Email = req.Email
	helper.IsAssistant = req.IsAssistant
	helper.PresentOnSite = req.PresentOnSite
	helper.CountsTowardQuota = req.CountsTowardQuota || req.IsAssistant
}

func loadExam(ctx context.Context, exams examReader, id string) (*models.Exam, error) {
	exam, err := exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}
