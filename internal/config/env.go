// Package config defines environment variable keys for configuration.
package config

// EnvPrefix is prepended to every key below.
const EnvPrefix = "PORTAL_"

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Backend
	EnvBackendURL     = "BACKEND_URL"
	EnvBackendTimeout = "BACKEND_TIMEOUT"
	EnvUserAgent      = "USER_AGENT"
	EnvPageSize       = "PAGE_SIZE"

	// Report assets
	EnvImageOrigin    = "IMAGE_ORIGIN"
	EnvImageProxy     = "IMAGE_PROXY"
	EnvQRServiceURL   = "QR_SERVICE_URL"
	EnvAssetCacheSize = "ASSET_CACHE_SIZE"

	// Export
	EnvExportDir  = "EXPORT_DIR"
	EnvPixelRatio = "PIXEL_RATIO"

	// Server
	EnvPort               = "PORT"
	EnvLogLevel           = "LOG_LEVEL"
	EnvAccessPassword     = "ACCESS_PASSWORD"
	EnvShutdownTimeout    = "SHUTDOWN_TIMEOUT"
	EnvSessionIdleTimeout = "SESSION_IDLE_TIMEOUT"
	EnvRateLimitBurst     = "RATE_LIMIT_BURST"
	EnvRateLimitPerSecond = "RATE_LIMIT_PER_SECOND"

	// Observability
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
	EnvBetterStackToken  = "BETTERSTACK_TOKEN"
)
