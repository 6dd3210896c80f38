// Package config provides application configuration management.
// It loads settings from environment variables (optionally from a .env file)
// and validates them for the CLI and serve modes.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// CLIMode validates settings needed by one-shot commands and the shell.
	CLIMode ValidationMode = iota
	// ServeMode additionally validates the HTTP server settings.
	ServeMode
)

// Config holds all application configuration
type Config struct {
	// Backend
	BackendURL     string        `env:"BACKEND_URL"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10m"`
	UserAgent      string        `env:"USER_AGENT"`
	PageSize       int           `env:"PAGE_SIZE" envDefault:"20"`

	// Report assets
	ImageOrigin    string `env:"IMAGE_ORIGIN" envDefault:"https://lnmuniversity.com"`
	ImageProxy     string `env:"IMAGE_PROXY"`
	QRServiceURL   string `env:"QR_SERVICE_URL" envDefault:"https://api.qrserver.com/v1"`
	AssetCacheSize int    `env:"ASSET_CACHE_SIZE" envDefault:"64"`

	// Export
	ExportDir  string `env:"EXPORT_DIR" envDefault:"."`
	PixelRatio int    `env:"PIXEL_RATIO" envDefault:"3"`

	// Server
	Port               string        `env:"PORT" envDefault:"10000"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	AccessPassword     string        `env:"ACCESS_PASSWORD"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	SessionIdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	RateLimitBurst     float64       `env:"RATE_LIMIT_BURST" envDefault:"60"`
	RateLimitPerSecond float64       `env:"RATE_LIMIT_PER_SECOND" envDefault:"5"`

	// Observability
	SentryDSN         string `env:"SENTRY_DSN"`
	SentryEnvironment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	BetterStackToken  string `env:"BETTERSTACK_TOKEN"`
}

// Load reads configuration for CLI mode.
func Load() (*Config, error) {
	return LoadForMode(CLIMode)
}

// LoadForMode reads configuration from environment variables and validates
// it for mode. It attempts to load a .env file first.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings shared by every mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(CLIMode)
}

// ValidateForMode checks if required configuration values are set
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if c.BackendURL == "" {
		errs = append(errs, errors.New(EnvPrefix+EnvBackendURL+" is required"))
	} else if u, err := url.Parse(c.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s%s must be an absolute URL, got %q", EnvPrefix, EnvBackendURL, c.BackendURL))
	}
	if c.BackendTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s%s must be positive, got %v", EnvPrefix, EnvBackendTimeout, c.BackendTimeout))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("%s%s must be positive, got %d", EnvPrefix, EnvPageSize, c.PageSize))
	}
	if c.PixelRatio < 1 || c.PixelRatio > MaxPixelRatio {
		errs = append(errs, fmt.Errorf("%s%s must be between 1 and %d, got %d", EnvPrefix, EnvPixelRatio, MaxPixelRatio, c.PixelRatio))
	}
	if c.AssetCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%s%s must be positive, got %d", EnvPrefix, EnvAssetCacheSize, c.AssetCacheSize))
	}
	if c.QRServiceURL == "" {
		errs = append(errs, errors.New(EnvPrefix+EnvQRServiceURL+" is required"))
	}
	if c.ExportDir == "" {
		errs = append(errs, errors.New(EnvPrefix+EnvExportDir+" is required"))
	}

	if mode == ServeMode {
		if c.Port == "" {
			errs = append(errs, errors.New(EnvPrefix+EnvPort+" is required"))
		}
		if c.ShutdownTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s%s must be positive, got %v", EnvPrefix, EnvShutdownTimeout, c.ShutdownTimeout))
		}
		if c.SessionIdleTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s%s must be positive, got %v", EnvPrefix, EnvSessionIdleTimeout, c.SessionIdleTimeout))
		}
		if c.RateLimitBurst < 0 || c.RateLimitPerSecond < 0 {
			errs = append(errs, fmt.Errorf("%s%s and %s%s must not be negative", EnvPrefix, EnvRateLimitBurst, EnvPrefix, EnvRateLimitPerSecond))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// RateLimitEnabled reports whether the API limits requests per client.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitBurst >= 1 && c.RateLimitPerSecond > 0
}

// AccessGateEnabled reports whether the API requires the access password.
func (c *Config) AccessGateEnabled() bool {
	return c.AccessPassword != ""
}
