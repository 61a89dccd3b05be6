package config

import (
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Sync.BackendURL != DefaultBackendURL {
		t.Errorf("BackendURL = %q, want %q", cfg.Sync.BackendURL, DefaultBackendURL)
	}
	if cfg.Sync.BackoffBase != DefaultBackoffBase {
		t.Errorf("BackoffBase = %v, want %v", cfg.Sync.BackoffBase, DefaultBackoffBase)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing backend url",
			mutate:  func(c *Config) { c.Sync.BackendURL = "" },
			wantErr: "backend_url",
		},
		{
			name:    "socket url wrong scheme",
			mutate:  func(c *Config) { c.Sync.SocketURL = "https://sync.daybook.app/stream" },
			wantErr: "ws or wss",
		},
		{
			name:    "zero handshake timeout",
			mutate:  func(c *Config) { c.Sync.HandshakeTimeout = 0 },
			wantErr: "handshake_timeout",
		},
		{
			name:    "backoff max below base",
			mutate:  func(c *Config) { c.Sync.BackoffMax = 100 * time.Millisecond },
			wantErr: "backoff_max",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "logging.level",
		},
		{
			name:    "bad sample rate",
			mutate:  func(c *Config) { c.Tracing.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
		{
			name:    "zero reconnect attempts",
			mutate:  func(c *Config) { c.Sync.MaxReconnectAttempts = 0 },
			wantErr: "max_reconnect_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should have returned an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Paths(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.DataDir = "/data/daybook"

	if got := cfg.DatabasePath(); got != "/data/daybook/daybook.db" {
		t.Errorf("DatabasePath() = %q", got)
	}
	if got := cfg.SessionPath(); got != "/data/daybook/session.enc" {
		t.Errorf("SessionPath() = %q", got)
	}
}
