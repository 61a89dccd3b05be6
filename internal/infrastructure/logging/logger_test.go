package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatText, Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("output contains messages below warn level: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("output missing warn/error messages: %s", out)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	logger.Info("event applied", "event_id", "e1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["msg"] != "event applied" {
		t.Errorf("msg = %v, want %q", record["msg"], "event applied")
	}
	if record["event_id"] != "e1" {
		t.Errorf("event_id = %v, want %q", record["event_id"], "e1")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatText, Output: &buf})

	logger.Debug("hidden")
	logger.SetLevel(LevelDebug)
	logger.Debug("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged before level change")
	}
	if !strings.Contains(out, "visible") {
		t.Error("debug message not logged after level change")
	}
}

func TestContextEnrichment(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: &buf})

	ctx := WithDeviceID(context.Background(), "dev-1")
	ctx = WithEventID(ctx, "e-7")
	logger.InfoContext(ctx, "processing")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["device_id"] != "dev-1" {
		t.Errorf("device_id = %v, want dev-1", record["device_id"])
	}
	if record["event_id"] != "e-7" {
		t.Errorf("event_id = %v, want e-7", record["event_id"])
	}
}

func TestCorrelationID(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		ctx := WithCorrelationID(context.Background(), "corr-1")
		if got := CorrelationID(ctx); got != "corr-1" {
			t.Errorf("CorrelationID() = %q, want corr-1", got)
		}
	})

	t.Run("absent", func(t *testing.T) {
		if got := CorrelationID(context.Background()); got != "" {
			t.Errorf("CorrelationID() = %q, want empty", got)
		}
	})
}
