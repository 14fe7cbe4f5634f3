package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lookgen-gateway/internal/artifact"
	"lookgen-gateway/internal/cachetable"
	"lookgen-gateway/internal/config"
	"lookgen-gateway/internal/facade"
	"lookgen-gateway/internal/handlers"
	"lookgen-gateway/internal/httpserver"
	"lookgen-gateway/internal/jobs"
	"lookgen-gateway/internal/metrics"
	"lookgen-gateway/internal/orchestrator"
	"lookgen-gateway/internal/provider"
	"lookgen-gateway/pkg/logging/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("gateway exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("prompt_version", cfg.PromptVersion),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("job_backend", cfg.JobBackend),
		zap.String("artifact_backend", cfg.ArtifactBackend),
	)

	ctx := context.Background()

	// ----- Redis client (only if needed) -----
	var redisClient redis.UniversalClient
	if cfg.UsesRedis() {
		rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		defer rc.Close()
		redisClient = rc
		logger.Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	}

	// ----- Postgres pool (only if needed) -----
	var db cachetable.Querier
	if cfg.CacheBackend == cachetable.BackendPostgres {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres pool creation failed", zap.Error(err))
			return err
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("postgres connection failed", zap.Error(err))
			return err
		}
		db = pool
		logger.Info("postgres connection established")
	}

	// ----- Cache table -----
	table, err := cachetable.New(cachetable.Config{Backend: cfg.CacheBackend, Prefix: cfg.RedisPrefix}, redisClient, db)
	if err != nil {
		return err
	}
	if pg, ok := table.(*cachetable.PostgresTable); ok {
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("cache table schema setup failed", zap.Error(err))
			return err
		}
	}
	cache := cachetable.NewLoggingTable(table)

	// ----- Artifact store -----
	store, err := artifact.New(ctx, artifact.Config{
		Backend:       cfg.ArtifactBackend,
		Dir:           cfg.ArtifactDir,
		PublicBaseURL: cfg.ArtifactPublicBaseURL,
		GCSBucket:     cfg.GCSBucket,
		S3: artifact.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		},
	})
	if err != nil {
		logger.Error("artifact store setup failed", zap.Error(err))
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	fetcher := artifact.NewFetcher(store, cfg.ArtifactPublicBaseURL)

	// ----- Generation provider -----
	gemini, err := provider.NewGemini(provider.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.ProviderTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer gemini.Close()

	// ----- Jobs -----
	jobStore, err := jobs.NewStore(jobs.Config{Backend: cfg.JobBackend, Prefix: cfg.RedisPrefix}, redisClient)
	if err != nil {
		return err
	}
	scheduler := jobs.NewBackground()

	orch, err := orchestrator.New(orchestrator.Deps{
		Cache:           cache,
		Artifacts:       store,
		Fetcher:         fetcher,
		Provider:        gemini,
		Jobs:            jobStore,
		Scheduler:       scheduler,
		ProviderTimeout: cfg.ProviderTimeout,
	})
	if err != nil {
		return err
	}

	svc, err := facade.New(facade.Deps{
		Cache:         cache,
		Jobs:          jobStore,
		Runner:        orch,
		PromptVersion: cfg.PromptVersion,
	})
	if err != nil {
		return err
	}

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger,
		handlers.NewGenerationHandler(svc),
		handlers.NewArtifactHandler(store),
		httpserver.Options{RequestTimeout: cfg.RequestTimeout, MaxBodyBytes: cfg.MaxBodyBytes},
	)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting gateway",
		zap.String("addr", srv.Addr),
		zap.String("prompt_version", svc.PromptVersion()),
		zap.String("gemini_model", gemini.Model()),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		logger.Error("server error", zap.Error(err))
		return err
	case <-stop:
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	// Queued jobs keep running after the listener closes; give them the
	// rest of the shutdown window.
	if err := scheduler.Drain(shutdownCtx); err != nil {
		logger.Warn("jobs still running at shutdown", zap.Int64("in_flight", scheduler.InFlight()), zap.Error(err))
	}

	logger.Info("server shutdown complete")
	return nil
}
