package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aimorme/dateplan-back/internal/ai"
	"github.com/aimorme/dateplan-back/internal/cache"
	"github.com/aimorme/dateplan-back/internal/config"
	"github.com/aimorme/dateplan-back/internal/cultural"
	httpserver "github.com/aimorme/dateplan-back/internal/http"
	"github.com/aimorme/dateplan-back/internal/http/handlers"
	"github.com/aimorme/dateplan-back/internal/pipeline"
	"github.com/aimorme/dateplan-back/internal/queue"
	"github.com/aimorme/dateplan-back/internal/repository"
	"github.com/aimorme/dateplan-back/internal/service"
	"github.com/aimorme/dateplan-back/internal/worker"
)

func main() {
	logger := log.New(os.Stdout, "[dateplan] ", log.LstdFlags|log.LUTC|log.Lmicroseconds)
	if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		logger.Printf("failed loading .env files: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	retention := time.Duration(cfg.RetentionWindowHours) * time.Hour
	store, storeBackend, storeCloser := setupStore(ctx, cfg, retention, logger)
	defer storeCloser()

	producer, consumer, queueBackend, queueCloser := setupQueue(ctx, cfg, logger)
	defer queueCloser()

	aiClient := ai.NewClient(ai.ClientConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: time.Duration(cfg.OpenAITimeoutMS) * time.Millisecond,
	})
	responseCache := cache.NewResponseCache(cache.Config{
		TTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
		MaxEntries: cfg.CacheMaxEntries,
	})
	culturalClient := cultural.NewClient(cultural.ClientConfig{
		APIKey:  cfg.CulturalAPIKey,
		BaseURL: cfg.CulturalBaseURL,
		Timeout: time.Duration(cfg.CulturalTimeoutMS) * time.Millisecond,
		Cache:   responseCache,
	})

	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		Store: store,
		Stages: []pipeline.Executor{
			pipeline.NewProfileAnalysisStage(aiClient, cfg.OpenAIModelAnalysis),
			pipeline.NewCulturalDiscoveryStage(culturalClient),
			pipeline.NewCompatibilityStage(aiClient, cfg.OpenAIModelScoring),
			pipeline.NewActivityPlanningStage(aiClient, cfg.OpenAIModelPlanning),
			pipeline.NewVenueDiscoveryStage(culturalClient),
			pipeline.NewFinalOptimizationStage(aiClient, cfg.OpenAIModelOptimization),
		},
		Logger:        logger,
		RetryAttempts: uint(cfg.StageRetryAttempts),
		RetryDelay:    time.Duration(cfg.StageRetryDelayMS) * time.Millisecond,
	})

	pipelineTimeout := time.Duration(cfg.PipelineTimeoutSeconds) * time.Second
	admission := service.NewAdmissionService(store, producer, pipelineTimeout, logger)
	views := service.NewViewService(store)
	api := handlers.NewAPI(admission, views, handlers.Backends{Store: storeBackend, Queue: queueBackend}, logger)

	handler := httpserver.NewRouter(httpserver.RouterDependencies{
		API:            api,
		Logger:         logger,
		AuthToken:      cfg.AuthToken,
		CORSOrigins:    splitOrigins(cfg.CORSOrigins),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	reaper := repository.NewReaper(store, time.Duration(cfg.ReaperIntervalSeconds)*time.Second, logger)
	go reaper.Run(ctx)

	if cfg.WorkerEnabled {
		pool := worker.NewPool(consumer, orchestrator, cfg.WorkerConcurrency, logger)
		go pool.Start(ctx)
		logger.Printf("worker pool started concurrency=%d", cfg.WorkerConcurrency)
	} else {
		logger.Printf("workers disabled by configuration")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Printf("api listening on :%s", cfg.Port)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutdown signal received")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}

func setupStore(
	ctx context.Context,
	cfg config.Config,
	retention time.Duration,
	logger *log.Logger,
) (repository.RecordStore, string, func()) {
	if cfg.DatabaseURL != "" {
		pgStore, err := repository.NewPostgresRecordStore(ctx, cfg.DatabaseURL, retention)
		if err != nil {
			logger.Printf("failed to initialize postgres store, trying alternatives: %v", err)
		} else {
			logger.Printf("postgres record store initialized")
			return pgStore, "postgres", pgStore.Close
		}
	}

	if cfg.RedisAddr != "" {
		redisStore, err := repository.NewRedisRecordStore(ctx, repository.RedisStoreConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Retention: retention,
		})
		if err != nil {
			logger.Printf("failed to initialize redis store, fallback to memory: %v", err)
		} else {
			logger.Printf("redis record store initialized")
			return redisStore, "redis", func() { _ = redisStore.Close() }
		}
	}

	logger.Printf("using in-memory record store")
	return repository.NewMemoryRecordStore(retention), "memory", func() {}
}

func setupQueue(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (queue.Producer, queue.Consumer, string, func()) {
	if cfg.RedisAddr == "" {
		logger.Printf("REDIS_ADDR not configured, using local queue fallback")
		local := queue.NewLocalQueue(cfg.QueueCapacity, 3, logger)
		return local, local, "local", func() {}
	}

	streams, err := queue.NewStreamsQueue(ctx, queue.StreamsConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		Stream:      cfg.RedisStream,
		DLQStream:   cfg.RedisDLQ,
		Group:       cfg.RedisGroup,
		Consumer:    cfg.RedisConsumer,
		MaxAttempts: 3,
	})
	if err != nil {
		logger.Printf("failed to initialize redis streams queue, fallback to local: %v", err)
		local := queue.NewLocalQueue(cfg.QueueCapacity, 3, logger)
		return local, local, "local", func() {}
	}

	logger.Printf("redis streams queue initialized")
	return streams, streams, "redis_streams", func() { _ = streams.Close() }
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
