package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/msshahs/prepseed-backend-sub001/internal/cache"
	"github.com/msshahs/prepseed-backend-sub001/internal/config"
	"github.com/msshahs/prepseed-backend-sub001/internal/events"
	"github.com/msshahs/prepseed-backend-sub001/internal/handlers"
	"github.com/msshahs/prepseed-backend-sub001/internal/repositories/postgres"
	"github.com/msshahs/prepseed-backend-sub001/internal/services"
	"github.com/msshahs/prepseed-backend-sub001/internal/utils"
	"github.com/msshahs/prepseed-backend-sub001/internal/validator"
	"github.com/msshahs/prepseed-backend-sub001/pkg"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewDefaultLogger().LogError(err, "Failed to load configuration")
		os.Exit(1)
	}

	appLogger := utils.NewLogger(cfg.Environment).With("service", "assessment-core")
	logger := utils.ToSlogLogger(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// Infrastructure

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		appLogger.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(ctx, cfg)
	if err != nil {
		appLogger.LogError(err, "Redis unavailable, using in-process cache")
		cacheService = cache.NewMemoryCache()
	} else {
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, "assessment-core:", logger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		appLogger.LogError(err, "Failed to create event publisher, falling back to mock")
		publisher = events.NewMockEventPublisher(logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.LogError(err, "Failed to close event publisher")
		}
	}()

	repo := postgres.NewRepository(db, cacheService, cfg.ContentCacheTTL, logger)

	// =========================================================================
	// Core

	v := validator.New()
	aggregator := services.NewAnalyticsAggregator(cfg.Analytics.HistogramBuckets, cfg.Analytics.PickingMinAttempts)

	templateScheduler := services.NewAnalyticsScheduler(services.SchedulerConfig{
		Name:          "template",
		Mode:          services.ModeImmediate,
		ProbeInterval: cfg.Analytics.ProbeInterval,
		Workers:       cfg.Analytics.Workers,
	}, repo.Aggregate(), aggregator, publisher, logger)

	instanceScheduler := services.NewAnalyticsScheduler(services.SchedulerConfig{
		Name:          "instance",
		Mode:          services.ModePeriodic,
		FlushInterval: cfg.Analytics.InstanceFlushInterval,
		ProbeInterval: cfg.Analytics.ProbeInterval,
		Workers:       cfg.Analytics.Workers,
	}, repo.Aggregate(), aggregator, publisher, logger)

	// The template scheduler also probes so failed drains are retried.
	go templateScheduler.Run(ctx)
	go instanceScheduler.Run(ctx)

	flowService := services.NewFlowService(repo, services.NewFlowReconciler(cfg.Analytics.OvertimeFactor), v, publisher, logger)
	submissionService := services.NewSubmissionService(
		repo,
		services.NewGradingEngine(v),
		services.NewRankingCalculator(),
		templateScheduler,
		instanceScheduler,
		publisher,
		logger,
	)

	// =========================================================================
	// HTTP

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), utils.LoggerMiddleware(appLogger))
	handlers.NewHandlerManager(flowService, submissionService, v, appLogger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("Assessment core listening", "port", cfg.Port)
		serverErrors <- server.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			appLogger.LogError(err, "Server error")
		}
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.LogError(err, "Could not stop server gracefully")
	}

	// Queued submissions are applied before exit.
	if err := templateScheduler.Close(shutdownCtx); err != nil {
		appLogger.LogError(err, "Template analytics flush failed")
	}
	if err := instanceScheduler.Close(shutdownCtx); err != nil {
		appLogger.LogError(err, "Instance analytics flush failed")
	}

	appLogger.Info("Assessment core stopped")
}
