package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/review-insight-backend/config"
	"github.com/ikkim/review-insight-backend/internal/app/controller"
	"github.com/ikkim/review-insight-backend/internal/app/repository"
	"github.com/ikkim/review-insight-backend/internal/app/service"
	"github.com/ikkim/review-insight-backend/internal/cache"
	"github.com/ikkim/review-insight-backend/internal/db"
	"github.com/ikkim/review-insight-backend/internal/metrics"
	"github.com/ikkim/review-insight-backend/internal/router"
	"github.com/ikkim/review-insight-backend/internal/scheduler"
	"github.com/ikkim/review-insight-backend/internal/storage"
	ws "github.com/ikkim/review-insight-backend/internal/websocket"
	"github.com/ikkim/review-insight-backend/pkg/gemini"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/ikkim/review-insight-backend/pkg/redis"
	"github.com/ikkim/review-insight-backend/pkg/util"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logFormat := "console"
	if cfg.Server.Environment == "production" {
		logFormat = "json"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting Review Insight Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	m, err := metrics.New()
	if err != nil {
		logger.Fatal("Failed to register metrics", err)
	}

	// Report lock: Redis when configured, in-process otherwise
	var locker service.ReportLocker = service.NewLocalLocker()
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redis.Close()
		locker = redis.NewLocker(redis.GetClient())
	}

	modelClient := newModelClient(cfg)

	imageStore, err := storage.NewImageStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize image storage", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	reviewRepo := repository.NewReviewRepository(db.GetDB())
	reportRepo := repository.NewReportRepository(db.GetDB())

	snapshots := cache.NewSnapshotCache(cfg.Cache.SnapshotTTL, reviewRepo.FindAll, m)

	// Initialize services
	aiService := service.NewAIService(modelClient)
	reviewService := service.NewReviewService(reviewRepo, snapshots, util.NewReviewDateParser(cfg.Ingest.DefaultReviewYear), m)
	ingestService := service.NewIngestService(aiService, imageStore, hub, cfg.Ingest.Workers, cfg.Ingest.MaxUploadBytes, m)
	analysisService := service.NewAnalysisService(snapshots)
	reportService := service.NewReportService(aiService, reportRepo, snapshots, locker, m)

	// Initialize controllers
	healthController := controller.NewHealthController(db.Ping)
	ingestController := controller.NewIngestController(ingestService, reviewService, hub, cfg.CORS.AllowedOrigins, cfg.Ingest.MaxUploadBytes)
	reviewController := controller.NewReviewController(reviewService)
	analysisController := controller.NewAnalysisController(analysisService)
	reportController := controller.NewReportController(reportService)

	var digest *scheduler.DigestScheduler
	if cfg.Scheduler.Enabled {
		digest = scheduler.NewDigestScheduler(analysisService, cfg.Scheduler.DigestCron)
		if err := digest.Start(); err != nil {
			logger.Fatal("Failed to start digest scheduler", err)
		}
	}

	// Setup router
	r := router.NewRouter(
		healthController,
		ingestController,
		reviewController,
		analysisController,
		reportController,
		m,
		cfg,
	)
	engine := r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	if digest != nil {
		digest.Stop()
	}
	stop()

	logger.Info("Server stopped successfully")
}

// newModelClient builds the Gemini client. Without an API key the server
// still serves stored data and AI calls fail with gemini.ErrMissingAPIKey.
func newModelClient(cfg *config.Config) service.ModelClient {
	client, err := gemini.NewClient(gemini.Config{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout,
	})
	if err == nil {
		return client
	}
	if !errors.Is(err, gemini.ErrMissingAPIKey) {
		logger.Fatal("Failed to initialize Gemini client", err)
	}
	logger.Warn("GEMINI_API_KEY is not set; extraction and reports are disabled")
	return unconfiguredModel{}
}

type unconfiguredModel struct{}

func (unconfiguredModel) GenerateContent(context.Context, gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	return nil, gemini.ErrMissingAPIKey
}

func (unconfiguredModel) StreamGenerateContent(context.Context, gemini.GenerateRequest, func(string) error) (string, error) {
	return "", gemini.ErrMissingAPIKey
}
