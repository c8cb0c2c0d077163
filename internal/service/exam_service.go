package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
	"github.com/noah-isme/exam-surveillance-api/pkg/database"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type examRepository interface {
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	ListActiveBySession(ctx context.Context, sessionID string) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	UpdateStatus(ctx context.Context, id string, status models.ValidationStatus) error
	SetTheoreticalOverride(ctx context.Context, exec sqlx.ExtContext, id string, value *int) error
}

// ExamServiceConfig tunes group edits.
type ExamServiceConfig struct {
	Policy requirement.Policy
}

// ExamService exposes exam listing, the validation workflow and group-level edits.
type ExamService struct {
	repo      examRepository
	tx        txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	policy    requirement.Policy
}

// NewExamService constructs an exam service.
func NewExamService(repo examRepository, tx txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg ExamServiceConfig) *ExamService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Policy == "" {
		cfg.Policy = requirement.PolicyCeil
	}
	return &ExamService{repo: repo, tx: tx, cache: cache, validator: validate, logger: logger, policy: cfg.Policy}
}

// List returns exams of a session matching the query.
func (s *ExamService) List(ctx context.Context, sessionID string, query dto.ExamListQuery) ([]models.Exam, *models.Pagination, error) {
	filter := models.ExamFilter{
		SessionID: sessionID,
		Code:      strings.TrimSpace(query.Code),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.Status != "" {
		status := models.ValidationStatus(strings.ToLower(strings.TrimSpace(query.Status)))
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown validation status")
		}
		filter.Status = &status
	}
	if query.Date != "" {
		date, err := time.Parse("2006-01-02", query.Date)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
		}
		filter.Date = &date
	}

	exams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 100
	}
	if size > 500 {
		size = 500
	}
	return exams, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one exam.
func (s *ExamService) Get(ctx context.Context, id string) (*models.Exam, error) {
	exam, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// UpdateStatus moves an exam through the validation workflow.
// Re-applying the current status is a no-op.
func (s *ExamService) UpdateStatus(ctx context.Context, id string, req dto.UpdateExamStatusRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	exam, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if exam.ValidationStatus == req.Status {
		return exam, nil
	}
	if !exam.ValidationStatus.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move exam from %s to %s", exam.ValidationStatus, req.Status))
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam status")
	}
	_ = s.cache.InvalidateSession(ctx, exam.SessionID)
	s.logger.Info("exam status updated",
		zap.String("exam_id", id),
		zap.String("from", string(exam.ValidationStatus)),
		zap.String("to", string(req.Status)),
	)
	exam.ValidationStatus = req.Status
	return exam, nil
}

// EditGroup sets the theoretical total of a logical exam and redistributes it over
// every underlying row in one transaction. A nil total clears the override.
func (s *ExamService) EditGroup(ctx context.Context, sessionID string, req dto.EditGroupRequest) (*dto.EditGroupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group edit payload")
	}
	if req.Theoretical == nil {
		return s.ClearGroupOverride(ctx, sessionID, req.Key())
	}

	key := req.Key()
	rows, err := s.groupRows(ctx, sessionID, key)
	if err != nil {
		return nil, err
	}

	dist := requirement.Redistribute(*req.Theoretical, len(rows), s.policy)
	if err := s.applyOverrides(ctx, rows, dist.PerRow); err != nil {
		return nil, err
	}
	for _, w := range dist.Warnings {
		s.logger.Warn("group redistribution", zap.String("group", key.String()), zap.String("code", string(w.Code)), zap.String("message", w.Message))
	}
	_ = s.cache.InvalidateSession(ctx, sessionID)

	return &dto.EditGroupResponse{Key: key, ExamIDs: examIDs(rows), Redistribution: dist}, nil
}

// ClearGroupOverride removes the administrator override from every row of a group.
func (s *ExamService) ClearGroupOverride(ctx context.Context, sessionID string, key requirement.GroupKey) (*dto.EditGroupResponse, error) {
	rows, err := s.groupRows(ctx, sessionID, key)
	if err != nil {
		return nil, err
	}
	if err := s.applyOverrides(ctx, rows, nil); err != nil {
		return nil, err
	}
	_ = s.cache.InvalidateSession(ctx, sessionID)
	return &dto.EditGroupResponse{
		Key:            key,
		ExamIDs:        examIDs(rows),
		Redistribution: requirement.Redistribution{Policy: s.policy},
	}, nil
}

func (s *ExamService) groupRows(ctx context.Context, sessionID string, key requirement.GroupKey) ([]models.Exam, error) {
	exams, err := s.repo.ListActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	var rows []models.Exam
	for _, exam := range exams {
		if key.Matches(exam) {
			rows = append(rows, exam)
		}
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exam group not found")
	}
	return rows, nil
}

// applyOverrides writes perRow[i] onto rows[i]; a nil perRow clears every row.
func (s *ExamService) applyOverrides(ctx context.Context, rows []models.Exam, perRow []int) error {
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		for i, row := range rows {
			var value *int
			if perRow != nil {
				v := perRow[i]
				value = &v
			}
			if err := s.repo.SetTheoreticalOverride(ctx, tx, row.ID, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "exam group changed during edit")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam group")
	}
	return nil
}

func examIDs(rows []models.Exam) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}
