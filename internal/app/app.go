// Package app wires the planner, its storage and the optional integrations
// behind the HTTP API, and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/classroom-planner/internal/appreciation"
	"github.com/garyellow/classroom-planner/internal/buildinfo"
	"github.com/garyellow/classroom-planner/internal/config"
	"github.com/garyellow/classroom-planner/internal/dateutil"
	"github.com/garyellow/classroom-planner/internal/logger"
	"github.com/garyellow/classroom-planner/internal/metrics"
	"github.com/garyellow/classroom-planner/internal/planner"
	"github.com/garyellow/classroom-planner/internal/r2client"
	"github.com/garyellow/classroom-planner/internal/ratelimit"
	"github.com/garyellow/classroom-planner/internal/sentry"
	"github.com/garyellow/classroom-planner/internal/snapshot"
	"github.com/garyellow/classroom-planner/internal/storage"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg        *config.Config
	logger     *logger.Logger
	db         *storage.DB
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	planner    *planner.Service
	generator  appreciation.Generator // nil when no provider is configured
	llmLimiter *ratelimit.KeyedLimiter
	snapshots  *snapshot.Manager // nil when R2 is disabled
	server     *http.Server
	wg         sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", cfg.ServiceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context calls pick up request and teacher IDs
	// through the ContextHandler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")
	if log.RemoteEnabled() {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	if err := dateutil.SetLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	if cfg.SentryEnabled {
		err := sentry.Initialize(sentry.Config{
			Token:       cfg.SentryToken,
			Host:        cfg.SentryHost,
			Environment: cfg.SentryEnvironment,
			Release:     buildinfo.Release(),
			SampleRate:  cfg.SentrySampleRate,
			ServiceName: cfg.ServiceName,
		})
		if err != nil {
			log.WithError(err).Warn("Sentry initialization failed")
		} else {
			log.WithField("environment", cfg.SentryEnvironment).Info("Sentry enabled")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	var snapshots *snapshot.Manager
	if cfg.R2Enabled {
		mgr, err := newSnapshotManager(ctx, cfg, m)
		if err != nil {
			return nil, fmt.Errorf("r2: %w", err)
		}
		snapshots = mgr

		restored, err := snapshots.RestoreIfMissing(ctx, cfg.SQLitePath())
		if err != nil {
			// An empty database would overwrite the good snapshot on the next upload.
			return nil, fmt.Errorf("restore snapshot: %w", err)
		}
		if restored {
			log.WithField("key", cfg.R2SnapshotKey).Info("Database restored from snapshot")
		}
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	var plannerOpts []planner.Option
	if snapshots != nil {
		plannerOpts = append(plannerOpts, planner.WithExporter(snapshots))
	}
	plannerSvc := planner.New(db, m, plannerOpts...)

	var generator appreciation.Generator
	if cfg.HasLLMProvider() {
		generator, err = appreciation.New(ctx, buildAppreciationConfig(cfg), m)
		if err != nil {
			log.WithError(err).Warn("Appreciation generator initialization failed")
		} else if generator != nil {
			log.WithField("providers", cfg.LLMProviders).Info("Appreciation generation enabled")
		}
	}

	llmLimiter := ratelimit.NewPerHour("llm", cfg.LLMRateBurst, cfg.LLMRateRefill, cfg.LLMRateDaily,
		m, config.RateLimiterCleanupInterval)
	appreciations := appreciation.NewService(generator, llmLimiter, m, cfg.LLMTimeout)

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(RouterConfig{
		Planner:         plannerSvc,
		Appreciations:   appreciations,
		Metrics:         m,
		Registry:        registry,
		Logger:          log,
		MetricsUsername: cfg.MetricsUsername,
		MetricsPassword: cfg.MetricsPassword,
	})

	app := &Application{
		cfg:        cfg,
		logger:     log,
		db:         db,
		metrics:    m,
		registry:   registry,
		planner:    plannerSvc,
		generator:  generator,
		llmLimiter: llmLimiter,
		snapshots:  snapshots,
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: config.HTTPRead,
			ReadTimeout:       config.HTTPRead,
			WriteTimeout:      config.HTTPWrite,
			IdleTimeout:       config.HTTPIdle,
		},
	}

	log.Info("Initialization complete")
	return app, nil
}

func newSnapshotManager(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*snapshot.Manager, error) {
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2EndpointURL(),
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		return nil, err
	}
	return snapshot.New(client, snapshot.Config{
		SnapshotKey:  cfg.R2SnapshotKey,
		ExportPrefix: cfg.R2ExportPrefix,
		LockKey:      cfg.R2LockKey,
		LockTTL:      config.SnapshotLockTTL,
		TempDir:      cfg.DataDir,
	}, m), nil
}

// buildAppreciationConfig maps the flat environment settings onto the
// provider chain.
func buildAppreciationConfig(cfg *config.Config) appreciation.Config {
	providers := make([]appreciation.Provider, 0, len(cfg.LLMProviders))
	for _, p := range cfg.LLMProviders {
		providers = append(providers, appreciation.Provider(p))
	}
	return appreciation.Config{
		Providers: providers,
		Gemini:    appreciation.ProviderConfig{APIKey: cfg.GeminiAPIKey, Models: cfg.GeminiModels},
		Groq:      appreciation.ProviderConfig{APIKey: cfg.GroqAPIKey, Models: cfg.GroqModels},
		Cerebras:  appreciation.ProviderConfig{APIKey: cfg.CerebrasAPIKey, Models: cfg.CerebrasModels},
		Retry: appreciation.RetryConfig{
			MaxAttempts:  appreciation.DefaultMaxRetryAttempts,
			InitialDelay: config.LLMRetryInitial,
			MaxDelay:     config.LLMRetryMax,
		},
	}
}

// Run starts the background jobs and the HTTP server, then blocks until
// SIGINT or SIGTERM and shuts everything down.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.snapshots != nil {
		a.wg.Go(func() {
			a.snapshots.Run(ctx, a.db, a.cfg.R2SnapshotInterval)
		})
	}
	a.wg.Go(func() {
		a.updateLimiterMetrics(ctx)
	})
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown drains HTTP requests, uploads a last snapshot so no write is lost,
// then closes resources. Must run after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if a.snapshots != nil {
		a.logger.Info("Uploading final snapshot...")
		a.snapshots.Final(shutdownCtx, a.db)
	}

	a.logger.Info("Closing resources...")

	if a.generator != nil {
		if err := a.generator.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "appreciation").Error("Component close error")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	a.llmLimiter.Stop()

	if sentry.IsEnabled() {
		sentry.Flush(2 * time.Second)
	}

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// updateLimiterMetrics publishes the number of teachers tracked by the LLM limiter.
func (a *Application) updateLimiterMetrics(ctx context.Context) {
	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		a.metrics.SetRateLimiterActive("llm", a.llmLimiter.ActiveCount())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
