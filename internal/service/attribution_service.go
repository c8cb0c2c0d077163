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

type attributionRepository interface {
	ListByExam(ctx context.Context, examID string) ([]models.Attribution, error)
	FindByID(ctx context.Context, id string) (*models.Attribution, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, sessionID, examID, invigilatorID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, attribution *models.Attribution) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type preAssignedCounter interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	SyncPreAssignedCount(ctx context.Context, exec sqlx.ExtContext, examID string) error
}

// AttributionService manages invigilator pre-assignments.
type AttributionService struct {
	repo      attributionRepository
	exams     preAssignedCounter
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttributionService constructs an attribution service.
func NewAttributionService(repo attributionRepository, exams preAssignedCounter, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AttributionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttributionService{repo: repo, exams: exams, tx: tx, cache: cache, validator: validate, logger: logger}
}

// ListByExam returns the attributions of one exam.
func (s *AttributionService) ListByExam(ctx context.Context, examID string) ([]models.Attribution, error) {
	if _, err := loadExam(ctx, s.exams, examID); err != nil {
		return nil, err
	}
	attributions, err := s.repo.ListByExam(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attributions")
	}
	return attributions, nil
}

// PreAssign binds an invigilator to an exam as a pre-assigned, obligatory attribution.
// The exam's stored pre-assigned counter is re-synced in the same transaction.
func (s *AttributionService) PreAssign(ctx context.Context, examID string, req dto.PreAssignRequest) (*models.Attribution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attribution payload")
	}
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}

	attribution := &models.Attribution{
		ID:            uuid.NewString(),
		SessionID:     exam.SessionID,
		ExamID:        exam.ID,
		InvigilatorID: strings.TrimSpace(req.InvigilatorID),
		IsPreAssigned: true,
		IsObligatory:  true,
		IsLocked:      req.Locked,
	}

	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		exists, err := s.repo.Exists(ctx, tx, attribution.SessionID, attribution.ExamID, attribution.InvigilatorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attribution")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "invigilator already attributed to this exam")
		}
		if err := s.repo.Create(ctx, tx, attribution); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return appErrors.Clone(appErrors.ErrConflict, "invigilator already attributed to this exam")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create attribution")
		}
		if err := s.exams.SyncPreAssignedCount(ctx, tx, exam.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync pre-assigned count")
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	_ = s.cache.InvalidateSession(ctx, exam.SessionID)
	s.logger.Info("invigilator pre-assigned",
		zap.String("exam_id", exam.ID),
		zap.String("invigilator_id", attribution.InvigilatorID),
	)
	return attribution, nil
}

// Delete removes an attribution and re-syncs the exam counter.
func (s *AttributionService) Delete(ctx context.Context, id string) error {
	attribution, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attribution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attribution")
	}

	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.exams.SyncPreAssignedCount(ctx, tx, attribution.ExamID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attribution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attribution")
	}

	_ = s.cache.InvalidateSession(ctx, attribution.SessionID)
	return nil
}
