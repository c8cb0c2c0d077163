package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/dto"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/repository"
	appErrors "github.com/noah-isme/exam-surveillance-api/pkg/errors"
	"github.com/noah-isme/exam-surveillance-api/pkg/jobs"
)

const (
	recoverBatch = 50
	cleanupBatch = 100
)

type sessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (string, error)
}

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	FindInFlight(ctx context.Context, createdBy string, reportType models.ReportType, params models.ReportJobParams) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ReportService owns the report job lifecycle from request to download.
type ReportService struct {
	repo     reportJobStore
	sessions sessionResolver
	queue    jobDispatcher
	exporter *ExportService
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ReportDownload is an opened export ready to be streamed.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, sessions sessionResolver, queue jobDispatcher, exporter *ExportService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ReportService{repo: repo, sessions: sessions, queue: queue, exporter: exporter, logger: logger, cfg: cfg}
}

// CreateJob queues a staffing report for the requested (or active) session.
// An identical job from the same actor that is still queued or processing is returned instead of a new one.
func (s *ReportService) CreateJob(ctx context.Context, req dto.ReportRequest, actorID string, role models.UserRole) (*dto.ReportJobResponse, error) {
	if err := validateReportRequest(req); err != nil {
		return nil, err
	}
	sessionID, err := s.sessions.Resolve(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	params := models.ReportJobParams{SessionID: sessionID, Format: req.Format}

	existing, err := s.repo.FindInFlight(ctx, actorID, req.Type, params)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up report jobs")
	}
	if existing != nil {
		s.logger.Debug("reusing in-flight report job", zap.String("job_id", existing.ID), zap.String("session_id", sessionID))
		return jobResponse(existing), nil
	}

	job := &models.ReportJob{
		Type:      req.Type,
		Params:    params,
		Status:    models.ReportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(queueJob(job)); err != nil {
		if updateErr := s.repo.Update(ctx, job.ID, failedUpdate("report queue unavailable")); updateErr != nil {
			s.logger.Warn("failed to mark unqueued report job", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	s.logger.Info("report job queued",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("session_id", sessionID),
		zap.String("format", string(req.Format)),
	)
	return jobResponse(job), nil
}

// GetStatus exposes job progress. Only administrators see jobs created by others.
func (s *ReportService) GetStatus(ctx context.Context, id string, actorID string, role models.UserRole) (*dto.ReportStatusResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdminRole(role) && job.CreatedBy != actorID {
		return nil, appErrors.ErrForbidden
	}
	resp := &dto.ReportStatusResponse{
		ID:         job.ID,
		Type:       job.Type,
		SessionID:  job.Params.SessionID,
		Format:     job.Params.Format,
		Status:     job.Status,
		Progress:   job.Progress,
		ResultURL:  job.ResultURL,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload checks a signed token against its job and opens the export.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	jobID, relPath, expiresAt, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch {
	case job.ResultURL == nil || tokenFromURL(*job.ResultURL) != token:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	case job.Status != models.ReportStatusFinished:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  path.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPendingJobs re-enqueues jobs left queued by a previous process.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, recoverBatch)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	recovered := 0
	for i := range pending {
		if err := s.queue.Enqueue(queueJob(&pending[i])); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", pending[i].ID), zap.Error(err))
			continue
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Info("recovered report jobs", zap.Int("count", recovered))
	}
}

// StartCleanup purges expired exports every CleanupInterval until ctx ends.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		expired, err := s.repo.ListFinishedBefore(ctx, cutoff, cleanupBatch)
		if err != nil {
			s.logger.Warn("report cleanup listing failed", zap.Error(err))
			return
		}
		for i := range expired {
			s.purgeExport(&expired[i])
		}
		if len(expired) < cleanupBatch {
			break
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("export directory cleanup failed", zap.Error(err))
	}
}

func (s *ReportService) purgeExport(job *models.ReportJob) {
	if job.ResultURL == nil {
		return
	}
	token := tokenFromURL(*job.ResultURL)
	if token == "" {
		return
	}
	_, relPath, _, err := s.exporter.ParseToken(token, true)
	if err != nil {
		return
	}
	if err := s.exporter.Delete(relPath); err != nil {
		s.logger.Warn("failed to delete expired export", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

func validateReportRequest(req dto.ReportRequest) error {
	if !req.Type.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report type")
	}
	if !req.Format.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	return nil
}

func jobResponse(job *models.ReportJob) *dto.ReportJobResponse {
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}
}

func queueJob(job *models.ReportJob) jobs.Job {
	return jobs.Job{ID: job.ID, Type: string(job.Type), Payload: job.Params}
}

func isAdminRole(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

func tokenFromURL(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}
