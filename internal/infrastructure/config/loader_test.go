package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Load(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		loader, err := NewLoader(t.TempDir())
		if err != nil {
			t.Fatalf("NewLoader() error = %v", err)
		}
		cfg, err := loader.Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Sync.BackendURL != DefaultBackendURL {
			t.Errorf("BackendURL = %q, want default", cfg.Sync.BackendURL)
		}
	})

	t.Run("partial file keeps defaults for unset fields", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		content := `
sync:
  backend_url: https://example.test/api
  heartbeat_interval: 10s
logging:
  level: debug
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		loader, _ := NewLoader(dir)
		cfg, err := loader.Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Sync.BackendURL != "https://example.test/api" {
			t.Errorf("BackendURL = %q", cfg.Sync.BackendURL)
		}
		if cfg.Sync.HeartbeatInterval != 10*time.Second {
			t.Errorf("HeartbeatInterval = %v, want 10s", cfg.Sync.HeartbeatInterval)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
		}
		// Unset fields keep their defaults.
		if cfg.Sync.SocketURL != DefaultSocketURL {
			t.Errorf("SocketURL = %q, want default", cfg.Sync.SocketURL)
		}
		if cfg.Sync.PushDebounce != DefaultPushDebounce {
			t.Errorf("PushDebounce = %v, want default", cfg.Sync.PushDebounce)
		}
	})

	t.Run("malformed yaml returns error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		os.WriteFile(path, []byte("sync: ["), 0600)

		loader, _ := NewLoader(dir)
		if _, err := loader.Load(path); err == nil {
			t.Error("Load() should fail on malformed yaml")
		}
	})
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	loader, _ := NewLoader(dir)

	cfg := NewDefaultConfig()
	cfg.Sync.DeviceLabel = "laptop"
	cfg.Logging.Format = "json"

	if err := loader.Save(cfg, ""); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := loader.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Sync.DeviceLabel != "laptop" {
		t.Errorf("DeviceLabel = %q, want laptop", got.Sync.DeviceLabel)
	}
	if got.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", got.Logging.Format)
	}
}
