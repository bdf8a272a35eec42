package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/brightsteps/brightsteps-backend/internal/config"
	"github.com/brightsteps/brightsteps-backend/internal/database"
	"github.com/brightsteps/brightsteps-backend/internal/grader"
	"github.com/brightsteps/brightsteps-backend/internal/handler"
	"github.com/brightsteps/brightsteps-backend/internal/logger"
	"github.com/brightsteps/brightsteps-backend/internal/repository"
	"github.com/brightsteps/brightsteps-backend/internal/router"
	"github.com/brightsteps/brightsteps-backend/internal/service"
	"github.com/brightsteps/brightsteps-backend/internal/validator"
	"github.com/brightsteps/brightsteps-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting BrightSteps Exam Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	localRepo := repository.NewLocalSessionRepository(rdb)
	backupRepo := repository.NewBackupSessionRepository(pool)
	examProvider := repository.NewExamProvider(rdb)
	backupQueue := repository.NewBackupQueue(rdb)
	progressPub := repository.NewProgressPublisher(rdb)

	// ─── Initialize Session Engine ─────────────────────────────────────
	authGrader := grader.NewOpenAIGrader(cfg.GraderBaseURL, cfg.GraderAPIKey, cfg.GraderModel, log)

	engine := service.NewEngine(
		localRepo,
		backupRepo,
		authGrader,
		cfg.AutosaveQuiet,
		log,
		service.WithRetryQueue(backupQueue),
		service.WithProgressSink(progressPub),
		service.WithGradeTimeout(cfg.GraderTimeout),
	)
	manager := service.NewManager(engine)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(manager, examProvider, backupRepo, log),
		Monitor: handler.NewMonitorHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	backupWorker := worker.NewBackupWorker(backupRepo, rdb, log)
	go backupWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the backup worker and let the retry queue drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
