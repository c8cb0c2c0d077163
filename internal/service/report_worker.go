package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/repository"
	"github.com/noah-isme/exam-surveillance-api/pkg/jobs"
)

const processingProgress = 10

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

// ReportWorker renders queued report jobs. Its Handle method is the queue handler.
type ReportWorker struct {
	repo       reportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ReportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger, maxRetries: maxRetries}
}

// Handle renders one job. A failed attempt is put back to QUEUED until the
// last attempt, which marks the job FAILED.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	log := w.logger.With(
		zap.String("job_id", record.ID),
		zap.String("session_id", record.Params.SessionID),
		zap.Int("attempt", job.Attempt),
	)

	if err := w.repo.Update(ctx, record.ID, processingUpdate()); err != nil {
		return err
	}

	result, genErr := w.exporter.Generate(ctx, record)
	if genErr != nil {
		update := requeuedUpdate(genErr.Error())
		final := job.Attempt >= w.maxRetries
		if final {
			update = failedUpdate(genErr.Error())
		}
		if err := w.repo.Update(ctx, record.ID, update); err != nil {
			log.Warn("failed to record report failure", zap.Error(err))
		}
		if final {
			log.Error("report job failed", zap.Error(genErr))
			w.metrics.ObserveReportJob(record.Type, models.ReportStatusFailed)
		} else {
			log.Warn("report attempt failed, will retry", zap.Error(genErr))
		}
		return genErr
	}

	if err := w.repo.Update(ctx, record.ID, finishedUpdate(result.URL)); err != nil {
		log.Warn("failed to mark report finished", zap.Error(err))
		return err
	}
	log.Info("report job finished", zap.String("file", result.RelativePath))
	w.metrics.ObserveReportJob(record.Type, models.ReportStatusFinished)
	return nil
}

func processingUpdate() repository.UpdateReportJobParams {
	status := models.ReportStatusProcessing
	progress := processingProgress
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress}
}

func requeuedUpdate(reason string) repository.UpdateReportJobParams {
	status := models.ReportStatusQueued
	progress := 0
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress, ErrorMessage: &reason}
}

func failedUpdate(reason string) repository.UpdateReportJobParams {
	status := models.ReportStatusFailed
	progress := 100
	now := time.Now().UTC()
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress, ErrorMessage: &reason, FinishedAt: &now}
}

func finishedUpdate(url string) repository.UpdateReportJobParams {
	status := models.ReportStatusFinished
	progress := 100
	now := time.Now().UTC()
	cleared := ""
	return repository.UpdateReportJobParams{Status: &status, Progress: &progress, ResultURL: &url, ErrorMessage: &cleared, FinishedAt: &now}
}
