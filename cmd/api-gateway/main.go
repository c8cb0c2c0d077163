package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-surveillance-api/api/swagger"
	"github.com/noah-isme/exam-surveillance-api/internal/handler"
	"github.com/noah-isme/exam-surveillance-api/internal/middleware"
	"github.com/noah-isme/exam-surveillance-api/internal/models"
	"github.com/noah-isme/exam-surveillance-api/internal/repository"
	"github.com/noah-isme/exam-surveillance-api/internal/requirement"
	"github.com/noah-isme/exam-surveillance-api/internal/service"
	"github.com/noah-isme/exam-surveillance-api/pkg/cache"
	"github.com/noah-isme/exam-surveillance-api/pkg/config"
	"github.com/noah-isme/exam-surveillance-api/pkg/database"
	"github.com/noah-isme/exam-surveillance-api/pkg/export"
	"github.com/noah-isme/exam-surveillance-api/pkg/jobs"
	"github.com/noah-isme/exam-surveillance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-surveillance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-surveillance-api/pkg/middleware/requestid"
	"github.com/noah-isme/exam-surveillance-api/pkg/storage"
)

// @title Exam Surveillance API
// @version 1.0.0
// @description Invigilator requirement computation for exam sessions
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var redisClient *redis.Client
	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, requirement cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Requirements.CacheTTL, logr, cfg.Requirements.CacheEnabled && cacheRepo != nil)

	policy := requirement.ParsePolicy(cfg.Requirements.Redistribution)

	sessionRepo := repository.NewSessionRepository(db)
	examRepo := repository.NewExamRepository(db)
	constraintRepo := repository.NewRoomConstraintRepository(db)
	helperRepo := repository.NewHelperRepository(db)
	attributionRepo := repository.NewAttributionRepository(db)
	reportRepo := repository.NewReportRepository(db)

	sessionSvc := service.NewSessionService(sessionRepo, db, cacheSvc, validate, logr)
	examSvc := service.NewExamService(examRepo, db, cacheSvc, validate, logr, service.ExamServiceConfig{Policy: policy})
	constraintSvc := service.NewRoomConstraintService(constraintRepo, cacheSvc, validate, logr)
	helperSvc := service.NewHelperService(helperRepo, examRepo, cacheSvc, validate, logr)
	attributionSvc := service.NewAttributionService(attributionRepo, examRepo, db, cacheSvc, validate, logr)
	requirementSvc := service.NewRequirementService(
		sessionRepo, examRepo, constraintRepo, helperRepo, attributionRepo,
		db, cacheSvc, metricsSvc, logr,
		service.RequirementServiceConfig{
			CacheTTL:  cfg.Requirements.CacheTTL,
			Policy:    policy,
			WriteBack: cfg.Requirements.WriteBack,
		},
	)
	tokenSvc := service.NewTokenService(cfg.JWT)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	examHandler := handler.NewExamHandler(examSvc, sessionSvc)
	constraintHandler := handler.NewRoomConstraintHandler(constraintSvc)
	helperHandler := handler.NewHelperHandler(helperSvc)
	attributionHandler := handler.NewAttributionHandler(attributionSvc)
	requirementHandler := handler.NewRequirementHandler(requirementSvc, sessionSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admins := middleware.RequireRoles(models.AdminRoles...)
	helperEditors := middleware.RequireRoles(models.HelperEditorRoles...)
	staff := middleware.RequireRoles(models.StaffRoles...)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))

	api.GET("/metrics/snapshot", admins, metricsHandler.Snapshot)

	api.GET("/sessions", staff, sessionHandler.List)
	api.GET("/sessions/active", staff, sessionHandler.Active)
	api.POST("/sessions", admins, middleware.Audit(logr, "CREATE", "session"), sessionHandler.Create)
	api.POST("/sessions/:id/activate", admins, middleware.Audit(logr, "ACTIVATE", "session"), sessionHandler.Activate)

	api.GET("/requirements", staff, requirementHandler.Session)
	api.GET("/requirements/exams/:id", staff, requirementHandler.Exam)
	api.POST("/requirements/write-back", admins, middleware.Audit(logr, "WRITE_BACK", "requirement"), requirementHandler.WriteBack)

	api.GET("/room-constraints", staff, constraintHandler.List)
	api.POST("/room-constraints", admins, middleware.Audit(logr, "CREATE", "room_constraint"), constraintHandler.Create)
	api.PUT("/room-constraints/:id", admins, middleware.Audit(logr, "UPDATE", "room_constraint"), constraintHandler.Update)
	api.DELETE("/room-constraints/:id", admins, middleware.Audit(logr, "DELETE", "room_constraint"), constraintHandler.Delete)

	api.GET("/exams", staff, examHandler.List)
	api.PUT("/exams/groups", admins, middleware.Audit(logr, "EDIT_GROUP", "exam"), examHandler.EditGroup)
	api.GET("/exams/:id", staff, examHandler.Get)
	api.PATCH("/exams/:id/status", admins, middleware.Audit(logr, "UPDATE_STATUS", "exam"), examHandler.UpdateStatus)

	api.GET("/exams/:id/helpers", staff, helperHandler.List)
	api.POST("/exams/:id/helpers", helperEditors, middleware.Audit(logr, "CREATE", "helper"), helperHandler.Create)
	api.PUT("/helpers/:id", helperEditors, middleware.Audit(logr, "UPDATE", "helper"), helperHandler.Update)
	api.DELETE("/helpers/:id", helperEditors, middleware.Audit(logr, "DELETE", "helper"), helperHandler.Delete)

	api.GET("/exams/:id/attributions", staff, attributionHandler.List)
	api.POST("/exams/:id/attributions", admins, middleware.Audit(logr, "PRE_ASSIGN", "attribution"), attributionHandler.PreAssign)
	api.DELETE("/attributions/:id", admins, middleware.Audit(logr, "DELETE", "attribution"), attributionHandler.Delete)

	if cfg.Reports.Enabled {
		reportSvc, queue, err := buildReports(ctx, cfg, reportRepo, requirementSvc, sessionSvc, metricsSvc, logr)
		if err != nil {
			logr.Fatal("failed to init reports", zap.Error(err))
		}
		defer queue.Stop()

		reportHandler := handler.NewReportHandler(reportSvc, logr)
		api.POST("/reports/generate", staff, reportHandler.GenerateReport)
		api.GET("/reports/status/:id", staff, reportHandler.ReportStatus)
		r.GET(cfg.APIPrefix+"/export/:token", reportHandler.DownloadReport)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "redistribution", policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func buildReports(
	ctx context.Context,
	cfg *config.Config,
	repo *repository.ReportRepository,
	requirements *service.RequirementService,
	sessions *service.SessionService,
	metrics *service.MetricsService,
	logr *zap.Logger,
) (*service.ReportService, *jobs.Queue, error) {
	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(requirements, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	worker := service.NewReportWorker(repo, exporter, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
		OnGiveUp: func(job jobs.Job, err error) {
			logr.Error("report job abandoned", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		},
	})
	queue.Start(ctx)
	if err := metrics.TrackQueueDepth("reports", queue.Pending); err != nil {
		logr.Warn("queue depth metric unavailable", zap.Error(err))
	}

	svc := service.NewReportService(repo, sessions, queue, exporter, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	svc.RecoverPendingJobs(ctx)
	svc.StartCleanup(ctx)
	return svc, queue, nil
}
