package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guestfeedback/feedback-service/internal/app/feedback/config"
	"guestfeedback/feedback-service/internal/app/feedback/database"
	"guestfeedback/feedback-service/internal/app/feedback/handler"
	"guestfeedback/feedback-service/internal/app/feedback/infrastructure"
	"guestfeedback/feedback-service/internal/app/feedback/infrastructure/cache"
	"guestfeedback/feedback-service/internal/app/feedback/infrastructure/messaging"
	"guestfeedback/feedback-service/internal/app/feedback/processor"
	"guestfeedback/feedback-service/internal/app/feedback/report"
	"guestfeedback/feedback-service/internal/app/feedback/repository"
	"guestfeedback/feedback-service/internal/app/feedback/service"
	"guestfeedback/pkg/logger"
)

const serviceName = "feedback-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Log.Level)

	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		} else {
			logger.Info().Str("logstash_addr", cfg.Log.LogstashAddr).Msg("Connected to Logstash")
		}
	}

	// Подключение к MongoDB ленивое: сервис стартует и без базы, запросы вернут 500
	dbManager := database.NewManager(cfg.MongoDB)
	dbManager.OnConnect(repository.EnsureSchema)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := dbManager.Close(ctx); err != nil {
			logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
		}
	}()

	warmUpCtx, warmUpCancel := context.WithTimeout(context.Background(), cfg.MongoDB.ServerSelectionTimeout+time.Second)
	if _, err := dbManager.Client(warmUpCtx); err != nil {
		logger.Warn().Err(err).Msg("MongoDB is not reachable yet, will retry on first request")
	} else {
		logger.Info().Str("database", cfg.MongoDB.Database).Msg("Connected to MongoDB")
	}
	warmUpCancel()

	var publisher infrastructure.EventPublisher = infrastructure.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("Initialized Kafka producer")
	}
	defer publisher.Close()

	var reportCache infrastructure.ReportCache = infrastructure.NoopReportCache{}
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedisReportCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ReportTTL)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis, report cache disabled")
		} else {
			reportCache = redisCache
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		}
	}
	defer reportCache.Close()

	reviewRepo := repository.NewReviewRepository(dbManager)
	clickRepo := repository.NewStarClickRepository(dbManager)

	feedbackService := service.NewFeedbackService(reviewRepo, clickRepo, publisher, reportCache)
	reportService := service.NewReportService(reviewRepo, clickRepo, reportCache)
	renderer := report.NewPDFRenderer()

	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()

	if cfg.Report.Schedule != "" {
		scheduler := processor.NewReportScheduler(reportService, renderer, cfg.Report.Dir)
		if err := scheduler.Start(schedulerCtx, cfg.Report.Schedule); err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.Report.Schedule).Msg("Failed to start report scheduler")
		}
		defer scheduler.Stop()
	}

	feedbackHandler := handler.NewFeedbackHandler(feedbackService, reportService, renderer, cfg.ReviewPlatformURL)
	healthHandler := handler.NewHealthHandler(dbManager)
	router := handler.SetupRoutes(feedbackHandler, healthHandler, cfg.CORSAllowOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting Feedback Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Feedback Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Feedback Service stopped gracefully")
}
