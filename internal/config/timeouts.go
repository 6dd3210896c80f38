// Package config provides centralized timeout constants for the application.
//
// The backend can be very slow on large cascading queries, so the request
// timeout default matches the ten minutes the original web client allowed.
// Everything else is sized for an interactive session.
package config

import "time"

// Backend timeouts
const (
	// BackendRequest is the default timeout for one backend call.
	BackendRequest = 10 * time.Minute

	// AssetRequest is the timeout for loading one report image (photo,
	// signature or QR code).
	AssetRequest = 30 * time.Second
)

// HTTP server timeouts
const (
	// HTTPRead is the server read timeout. API requests carry small JSON bodies.
	HTTPRead = 10 * time.Second

	// HTTPWrite must cover a backend call plus report rendering.
	HTTPWrite = BackendRequest + time.Minute

	// HTTPIdle is the idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// Background job intervals
const (
	// SessionSweepInterval is how often idle API sessions are dropped.
	SessionSweepInterval = time.Minute

	// RateLimiterCleanupInterval is how often idle client buckets are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second
)

// Rendering limits
const (
	// MaxPixelRatio bounds the raster density of exported reports.
	MaxPixelRatio = 4
)
