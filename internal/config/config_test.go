package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		BackendURL:         "http://localhost:8000/api",
		BackendTimeout:     10 * time.Minute,
		PageSize:           20,
		QRServiceURL:       "https://api.qrserver.com/v1",
		AssetCacheSize:     64,
		ExportDir:          ".",
		PixelRatio:         3,
		Port:               "10000",
		ShutdownTimeout:    30 * time.Second,
		SessionIdleTimeout: 30 * time.Minute,
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORTAL_BACKEND_URL", "http://localhost:8000/api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.BackendURL != "http://localhost:8000/api" {
		t.Errorf("Expected backend URL 'http://localhost:8000/api', got '%s'", cfg.BackendURL)
	}

	// Check defaults
	if cfg.BackendTimeout != BackendRequest {
		t.Errorf("Expected default backend timeout %v, got %v", BackendRequest, cfg.BackendTimeout)
	}
	if cfg.PageSize != 20 {
		t.Errorf("Expected default page size 20, got %d", cfg.PageSize)
	}
	if cfg.PixelRatio != 3 {
		t.Errorf("Expected default pixel ratio 3, got %d", cfg.PixelRatio)
	}
	if cfg.Port != "10000" {
		t.Errorf("Expected default port '10000', got '%s'", cfg.Port)
	}
	if cfg.AccessGateEnabled() {
		t.Error("Expected access gate to be disabled without a password")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORTAL_BACKEND_URL", "https://records.example.edu")
	t.Setenv("PORTAL_PAGE_SIZE", "50")
	t.Setenv("PORTAL_BACKEND_TIMEOUT", "45s")
	t.Setenv("PORTAL_ACCESS_PASSWORD", "hunter2")

	cfg, err := LoadForMode(ServeMode)
	if err != nil {
		t.Fatalf("LoadForMode() failed: %v", err)
	}

	if cfg.PageSize != 50 {
		t.Errorf("Expected page size 50, got %d", cfg.PageSize)
	}
	if cfg.BackendTimeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", cfg.BackendTimeout)
	}
	if !cfg.AccessGateEnabled() {
		t.Error("Expected access gate to be enabled")
	}
}

func TestLoadMissingBackend(t *testing.T) {
	t.Setenv("PORTAL_BACKEND_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without a backend URL")
	}
}

func TestValidateForMode(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		mode        ValidationMode
		wantErr     bool
		errContains string
	}{
		{
			name:   "valid cli config",
			mutate: func(*Config) {},
			mode:   CLIMode,
		},
		{
			name:   "valid serve config",
			mutate: func(*Config) {},
			mode:   ServeMode,
		},
		{
			name:        "relative backend url",
			mutate:      func(c *Config) { c.BackendURL = "/api" },
			mode:        CLIMode,
			wantErr:     true,
			errContains: "absolute URL",
		},
		{
			name:        "zero page size",
			mutate:      func(c *Config) { c.PageSize = 0 },
			mode:        CLIMode,
			wantErr:     true,
			errContains: "PORTAL_PAGE_SIZE",
		},
		{
			name:        "pixel ratio too large",
			mutate:      func(c *Config) { c.PixelRatio = 9 },
			mode:        CLIMode,
			wantErr:     true,
			errContains: "PORTAL_PIXEL_RATIO",
		},
		{
			name:   "missing port is fine for cli",
			mutate: func(c *Config) { c.Port = "" },
			mode:   CLIMode,
		},
		{
			name:        "missing port fails serve",
			mutate:      func(c *Config) { c.Port = "" },
			mode:        ServeMode,
			wantErr:     true,
			errContains: "PORTAL_PORT",
		},
		{
			name:        "non-positive idle timeout fails serve",
			mutate:      func(c *Config) { c.SessionIdleTimeout = 0 },
			mode:        ServeMode,
			wantErr:     true,
			errContains: "PORTAL_SESSION_IDLE_TIMEOUT",
		},
		{
			name:        "negative rate limit fails serve",
			mutate:      func(c *Config) { c.RateLimitPerSecond = -1 },
			mode:        ServeMode,
			wantErr:     true,
			errContains: "PORTAL_RATE_LIMIT_PER_SECOND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateForMode(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateForMode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestValidateJoinsAllProblems(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail on an empty config")
	}
	for _, key := range []string{"PORTAL_BACKEND_URL", "PORTAL_PAGE_SIZE", "PORTAL_EXPORT_DIR"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err.Error(), key)
		}
	}
}

func TestRateLimitEnabled(t *testing.T) {
	cfg := validConfig()
	if cfg.RateLimitEnabled() {
		t.Error("Expected rate limit disabled with zero burst")
	}

	cfg.RateLimitBurst, cfg.RateLimitPerSecond = 60, 5
	if !cfg.RateLimitEnabled() {
		t.Error("Expected rate limit enabled")
	}
}
