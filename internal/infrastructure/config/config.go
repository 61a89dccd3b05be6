// Package config provides configuration structs and utilities for the daybook
// application.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config represents the root configuration for the daybook application.
type Config struct {
	Sync    SyncConfig    `yaml:"sync"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	DataDir string        `yaml:"data_dir"`
}

// SyncConfig holds configuration for the device sync engine.
type SyncConfig struct {
	BackendURL string `yaml:"backend_url"` // HTTP endpoint for pairing/recovery/push
	SocketURL  string `yaml:"socket_url"`  // websocket endpoint for the duplex connection

	DeviceLabel string `yaml:"device_label"` // human-readable label sent at registration

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout"`

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	BackoffBase          time.Duration `yaml:"backoff_base"`
	BackoffMax           time.Duration `yaml:"backoff_max"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`

	PushDebounce time.Duration `yaml:"push_debounce"`

	MaxRetries int `yaml:"max_retries"` // per backend HTTP request
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Whether tracing is enabled
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // OTLP collector endpoint
	SampleRate   float64 `yaml:"sample_rate"`   // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`  // Service name for traces
}

// Default configuration values.
const (
	DefaultBackendURL = "https://sync.daybook.app/api/v1"
	DefaultSocketURL  = "wss://sync.daybook.app/api/v1/stream"

	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultRequestTimeout    = 15 * time.Second
	DefaultRecoveryTimeout   = 15 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second

	DefaultBackoffBase          = 1 * time.Second
	DefaultBackoffMax           = 30 * time.Second
	DefaultMaxReconnectAttempts = 10

	DefaultPushDebounce = 2 * time.Second
	DefaultMaxRetries   = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "daybook"
)

// NewDefaultConfig returns a Config populated with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			BackendURL:           DefaultBackendURL,
			SocketURL:            DefaultSocketURL,
			HandshakeTimeout:     DefaultHandshakeTimeout,
			RequestTimeout:       DefaultRequestTimeout,
			RecoveryTimeout:      DefaultRecoveryTimeout,
			HeartbeatInterval:    DefaultHeartbeatInterval,
			BackoffBase:          DefaultBackoffBase,
			BackoffMax:           DefaultBackoffMax,
			MaxReconnectAttempts: DefaultMaxReconnectAttempts,
			PushDebounce:         DefaultPushDebounce,
			MaxRetries:           DefaultMaxRetries,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Tracing: TracingConfig{
			Enabled:      DefaultTracingEnabled,
			ExporterType: DefaultTracingExporterType,
			SampleRate:   DefaultTracingSampleRate,
			ServiceName:  DefaultTracingServiceName,
		},
		DataDir: defaultDataDir(),
	}
}

// defaultDataDir returns ~/.daybook, falling back to the working
// directory when the home directory cannot be determined.
func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".daybook"
	}
	return filepath.Join(homeDir, ".daybook")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Sync.BackendURL == "" {
		return errors.New("sync.backend_url is required")
	}
	if _, err := url.Parse(c.Sync.BackendURL); err != nil {
		return fmt.Errorf("sync.backend_url is invalid: %w", err)
	}
	if c.Sync.SocketURL == "" {
		return errors.New("sync.socket_url is required")
	}
	u, err := url.Parse(c.Sync.SocketURL)
	if err != nil {
		return fmt.Errorf("sync.socket_url is invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("sync.socket_url must use ws or wss scheme, got %q", u.Scheme)
	}

	if c.Sync.HandshakeTimeout <= 0 {
		return errors.New("sync.handshake_timeout must be positive")
	}
	if c.Sync.BackoffBase <= 0 {
		return errors.New("sync.backoff_base must be positive")
	}
	if c.Sync.BackoffMax < c.Sync.BackoffBase {
		return errors.New("sync.backoff_max must be >= sync.backoff_base")
	}
	if c.Sync.MaxReconnectAttempts <= 0 {
		return errors.New("sync.max_reconnect_attempts must be positive")
	}
	if c.Sync.PushDebounce < 0 {
		return errors.New("sync.push_debounce must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text; got %q", c.Logging.Format)
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return errors.New("tracing.sample_rate must be between 0.0 and 1.0")
	}

	return nil
}

// DatabasePath returns the path of the embedded SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "daybook.db")
}

// SessionPath returns the path of the encrypted session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.enc")
}
