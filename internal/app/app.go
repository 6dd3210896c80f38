// Package app provides serve-mode initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/lnmu-portal/internal/buildinfo"
	"github.com/garyellow/lnmu-portal/internal/config"
	"github.com/garyellow/lnmu-portal/internal/httpapi"
	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/metrics"
	"github.com/garyellow/lnmu-portal/internal/portal"
	"github.com/garyellow/lnmu-portal/internal/ratelimit"
	"github.com/garyellow/lnmu-portal/internal/sentry"
)

// Application manages the HTTP server lifecycle and its dependencies.
type Application struct {
	cfg        *config.Config
	logger     *logger.Logger
	registry   *prometheus.Registry
	components *Components
	store      *portal.Store
	limiter    *ratelimit.KeyedLimiter
	server     *http.Server
	wg         sync.WaitGroup // background goroutines, drained before shutdown
}

// NewLogger builds the process logger from cfg and installs it as the slog
// default so package-level slog calls carry context values.
func NewLogger(cfg *config.Config) *logger.Logger {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken: cfg.BetterStackToken,
	})
	log = log.WithField("service", "lnmu-portal")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	slog.SetDefault(log.Logger)
	return log
}

// Initialize creates the application with all dependencies.
func Initialize(_ context.Context, cfg *config.Config) (*Application, error) {
	log := NewLogger(cfg)
	log.WithField("version", buildinfo.String()).Info("Initializing application...")

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed")
	} else if sentry.IsEnabled() {
		log.Info("Sentry error reporting enabled")
	}
	if cfg.BetterStackToken != "" {
		log.Info("Better Stack logging enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	components, err := NewComponents(cfg, log, m)
	if err != nil {
		return nil, err
	}

	store := portal.NewStore(func(id string) (*portal.Session, error) {
		return components.NewSession(id, nil)
	}, cfg.SessionIdleTimeout, m, log)

	var limiter *ratelimit.KeyedLimiter
	if cfg.RateLimitEnabled() {
		limiter = ratelimit.NewKeyed(ratelimit.KeyedConfig{
			Name:       "api",
			Burst:      cfg.RateLimitBurst,
			RefillRate: cfg.RateLimitPerSecond,
			Recorder:   m,
		})
	}

	router := httpapi.NewRouter(httpapi.Options{
		Store:          store,
		Years:          components.Backend,
		Logger:         log,
		Recorder:       m,
		Gatherer:       registry,
		AccessPassword: cfg.AccessPassword,
		Limiter:        limiter,
		Sentry:         sentry.IsEnabled(),
	})
	if !cfg.AccessGateEnabled() {
		log.Warn("Access gate disabled: PORTAL_ACCESS_PASSWORD is empty")
	}

	app := &Application{
		cfg:        cfg,
		logger:     log,
		registry:   registry,
		components: components,
		store:      store,
		limiter:    limiter,
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

// Handler returns the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully:
// background jobs are stopped and drained first, then the HTTP server and
// the log and error sinks.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.wg.Go(func() {
		a.store.Run(ctx, config.SessionSweepInterval)
	})
	if a.limiter != nil {
		a.wg.Go(func() {
			a.limiter.Run(ctx, config.RateLimiterCleanupInterval)
		})
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-errCh:
		a.logger.WithError(err).Error("HTTP server error")
		runErr = fmt.Errorf("http server: %w", err)
	}

	cancel()
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Debug("Background jobs stopped")

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	if sentry.IsEnabled() && !sentry.Flush(config.GracefulShutdown/3) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if logErr := a.logger.Shutdown(ctx); logErr != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown: %v\n", logErr)
	}
	return err
}
