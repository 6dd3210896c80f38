// Package sentry wraps the Sentry Go SDK for failure reporting. Reporting is
// disabled unless a DSN is configured.
package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/lnmu-portal/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN is the project DSN. Empty disables reporting.
	DSN string

	// Environment identifies the deployment environment (e.g., "production", "staging").
	Environment string

	// Release identifies the application release version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	// Debug enables Sentry SDK debug logging.
	Debug bool
}

// Initialize sets up the global Sentry client.
// If DSN is empty, Sentry is disabled and nil is returned.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

func hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureException captures an error with the hub bound to ctx, if any.
func CaptureException(ctx context.Context, err error) {
	capture(ctx, err, sentry.LevelError)
}

// CaptureWarning captures a recoverable failure, such as a backend request
// that left the session with an empty result page.
func CaptureWarning(ctx context.Context, err error) {
	capture(ctx, err, sentry.LevelWarning)
}

func capture(ctx context.Context, err error, level sentry.Level) {
	if err == nil {
		return
	}
	hub := hubFor(ctx)
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if sessionID := ctxutil.GetSessionID(ctx); sessionID != "" {
			scope.SetTag("session_id", sessionID)
		}
		if requestID, ok := ctxutil.GetRequestID(ctx); ok {
			scope.SetTag("request_id", requestID)
		}
		hub.CaptureException(err)
	})
}
