package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
	"github.com/noah-isme/exam-surveillance-api/pkg/database"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
)

type requirementSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type requirementExamStore interface {
	ListActiveBySession(ctx context.Context, sessionID string) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	UpdateSnapshot(ctx context.Context, exec sqlx.ExtContext, snapshot models.ExamSnapshot) (bool, error)
}

type requirementConstraintReader interface {
	List(ctx context.Context) ([]models.RoomConstraint, error)
}

type requirementHelperReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.HelperPerson, error)
}

type requirementAttributionReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.Attribution, error)
}

// RequirementServiceConfig tunes the requirement service.
type RequirementServiceConfig struct {
	CacheTTL  time.Duration
	Policy    requirement.Policy
	WriteBack bool
}

// RequirementService loads a session from storage and runs the requirement engine over it.
type RequirementService struct {
	sessions     requirementSessionReader
	exams        requirementExamStore
	constraints  requirementConstraintReader
	helpers      requirementHelperReader
	attributions requirementAttributionReader
	tx           txProvider
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	cfg          RequirementServiceConfig
}

// NewRequirementService wires the requirement service.
func NewRequirementService(
	sessions requirementSessionReader,
	exams requirementExamStore,
	constraints requirementConstraintReader,
	helpers requirementHelperReader,
	attributions requirementAttributionReader,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg RequirementServiceConfig,
) *RequirementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Policy == "" {
		cfg.Policy = requirement.PolicyCeil
	}
	return &RequirementService{
		sessions:     sessions,
		exams:        exams,
		constraints:  constraints,
		helpers:      helpers,
		attributions: attributions,
		tx:           tx,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		cfg:          cfg,
	}
}

// Session returns the requirements of every logical exam in the session.
// The boolean reports whether the result was served from cache.
func (s *RequirementService) Session(ctx context.Context, sessionID string) (*dto.SessionRequirementsResponse, bool, error) {
	key := RequirementSessionKey(sessionID)
	var cached dto.SessionRequirementsResponse
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	result, _, err := s.compute(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	resp := &dto.SessionRequirementsResponse{Result: result, Policy: s.cfg.Policy}
	_ = s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	return resp, false, nil
}

// Exam returns the per-row breakdown of one exam together with its logical group.
func (s *RequirementService) Exam(ctx context.Context, examID string) (*dto.ExamRequirementResponse, error) {
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	resp, _, err := s.Session(ctx, exam.SessionID)
	if err != nil {
		return nil, err
	}
	for _, group := range resp.Groups {
		for _, row := range group.Rows {
			for _, id := range row.ExamIDs {
				if id == exam.ID {
					return &dto.ExamRequirementResponse{ExamID: exam.ID, Unit: row, Group: group}, nil
				}
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "exam is not active in its session")
}

// WriteBack persists the computed per-row counters onto the exam rows in one
// transaction. Rows already holding the computed values are left untouched.
func (s *RequirementService) WriteBack(ctx context.Context, sessionID string) (*dto.WriteBackResponse, error) {
	if !s.cfg.WriteBack {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "requirement write-back is disabled")
	}
	result, table, err := s.compute(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "room constraints unavailable, write-back skipped")
	}

	resp := &dto.WriteBackResponse{SessionID: sessionID}
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		for _, group := range result.Groups {
			for _, row := range group.Rows {
				resp.Rows++
				changed, err := s.exams.UpdateSnapshot(ctx, tx, requirement.Snapshot(row))
				if err != nil {
					return err
				}
				if changed {
					resp.Updated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write back requirements")
	}

	_ = s.cache.InvalidateSession(ctx, sessionID)
	s.logger.Info("requirements written back",
		zap.String("session_id", sessionID),
		zap.Int("rows", resp.Rows),
		zap.Int("updated", resp.Updated),
	)
	return resp, nil
}

func (s *RequirementService) compute(ctx context.Context, sessionID string) (requirement.Result, *requirement.ConstraintTable, error) {
	if _, err := s.sessions.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return requirement.Result{}, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return requirement.Result{}, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	start := time.Now()
	inputs, err := s.loadInputs(ctx, sessionID)
	if err != nil {
		return requirement.Result{}, nil, err
	}

	var table *requirement.ConstraintTable
	loadStart := time.Now()
	constraints, err := s.constraints.List(ctx)
	s.metrics.ObserveDBQuery("room_constraints", time.Since(loadStart))
	if err != nil {
		s.logger.Warn("room constraints unavailable, computing without table", zap.String("session_id", sessionID), zap.Error(err))
	} else {
		table = requirement.NewConstraintTable(constraints)
	}

	result := requirement.Compute(sessionID, inputs, table)
	s.metrics.ObserveRequirementComputation(time.Since(start), result)
	if len(result.UnmatchedRooms) > 0 {
		s.logger.Warn("rooms without constraint defaulted",
			zap.String("session_id", sessionID),
			zap.Strings("rooms", result.UnmatchedRooms),
		)
	}
	return result, table, nil
}

func (s *RequirementService) loadInputs(ctx context.Context, sessionID string) ([]requirement.Input, error) {
	start := time.Now()
	exams, err := s.exams.ListActiveBySession(ctx, sessionID)
	s.metrics.ObserveDBQuery("exams_by_session", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	start = time.Now()
	helpers, err := s.helpers.ListBySession(ctx, sessionID)
	s.metrics.ObserveDBQuery("helpers_by_session", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load helpers")
	}
	start = time.Now()
	attributions, err := s.attributions.ListBySession(ctx, sessionID)
	s.metrics.ObserveDBQuery("attributions_by_session", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attributions")
	}

	helpersByExam := make(map[string][]models.HelperPerson)
	for _, h := range helpers {
		helpersByExam[h.ExamID] = append(helpersByExam[h.ExamID], h)
	}
	attributionsByExam := make(map[string][]models.Attribution)
	for _, a := range attributions {
		attributionsByExam[a.ExamID] = append(attributionsByExam[a.ExamID], a)
	}

	inputs := make([]requirement.Input, 0, len(exams))
	for _, exam := range exams {
		inputs = append(inputs, requirement.Input{
			Exam:         exam,
			Helpers:      helpersByExam[exam.ID],
			Attributions: attributionsByExam[exam.ID],
		})
	}
	return inputs, nil
}
