// Package logging provides structured logging infrastructure for the daybook
// application. It wraps Go's standard log/slog package with context-aware
// logging, correlation IDs, and sync-engine log attributes.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// contextKey is used for storing logger-related values in context.
type contextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs.
	CorrelationIDKey contextKey = "correlation_id"
	// DeviceIDKey is the context key for the local device identity.
	DeviceIDKey contextKey = "device_id"
	// EventIDKey is the context key for remote event IDs.
	EventIDKey contextKey = "event_id"
	// ConnStateKey is the context key for the connection state.
	ConnStateKey contextKey = "conn_state"
)

// Level represents log levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Format represents log output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	AddSource  bool
	TimeFormat string
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     FormatText,
		Output:     os.Stderr,
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// Logger wraps slog.Logger with additional functionality for daybook.
type Logger struct {
	slogger *slog.Logger
	level   *slog.LevelVar
	mu      sync.RWMutex
}

// global is the package-level default logger.
var (
	global     *Logger
	globalOnce sync.Once
)

// Init initializes the global logger with the provided configuration.
func Init(cfg Config) *Logger {
	globalOnce.Do(func() {
		global = New(cfg)
	})
	return global
}

// Default returns the global logger, initializing it with defaults if necessary.
func Default() *Logger {
	if global == nil {
		Init(DefaultConfig())
	}
	return global
}

// New creates a new Logger with the provided configuration.
func New(cfg Config) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize time format
			if a.Key == slog.TimeKey && cfg.TimeFormat != "" {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return &Logger{
		slogger: slog.New(handler),
		level:   level,
	}
}

// NewNopLogger creates a logger that discards all output. Useful in
// tests.
func NewNopLogger() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}

// parseLevel converts a Level to slog.Level.
func parseLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel dynamically changes the log level. Used by the config
// watcher for hot reloads.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level.Set(parseLevel(level))
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slogger: l.slogger.With(args...),
		level:   l.level,
	}
}

// WithGroup returns a new Logger with the given group name.
func (l *Logger) WithGroup(name string) *Logger {
	return &Logger{
		slogger: l.slogger.WithGroup(name),
		level:   l.level,
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// DebugContext logs at debug level with context.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.slogger.DebugContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// InfoContext logs at info level with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.slogger.InfoContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// WarnContext logs at warn level with context.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.slogger.WarnContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// ErrorContext logs at error level with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.slogger.ErrorContext(ctx, msg, l.enrichArgs(ctx, args)...)
}

// enrichArgs extracts context values and adds them as log attributes.
func (l *Logger) enrichArgs(ctx context.Context, args []any) []any {
	enriched := make([]any, 0, len(args)+8)

	if v := ctx.Value(CorrelationIDKey); v != nil {
		enriched = append(enriched, "correlation_id", v)
	}
	if v := ctx.Value(DeviceIDKey); v != nil {
		enriched = append(enriched, "device_id", v)
	}
	if v := ctx.Value(EventIDKey); v != nil {
		enriched = append(enriched, "event_id", v)
	}
	if v := ctx.Value(ConnStateKey); v != nil {
		enriched = append(enriched, "conn_state", v)
	}

	enriched = append(enriched, args...)
	return enriched
}

// Underlying returns the underlying slog.Logger.
func (l *Logger) Underlying() *slog.Logger {
	return l.slogger
}

// --- Context helpers ---

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// WithDeviceID adds the local device ID to the context.
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DeviceIDKey, id)
}

// WithEventID adds a remote event ID to the context.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EventIDKey, id)
}

// WithConnState adds the connection state to the context.
func WithConnState(ctx context.Context, state string) context.Context {
	return context.WithValue(ctx, ConnStateKey, state)
}

// CorrelationID extracts the correlation ID from context.
func CorrelationID(ctx context.Context) string {
	if v := ctx.Value(CorrelationIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// --- Sync-engine logging helpers ---

// LogStateChange logs a connection state machine transition.
func LogStateChange(logger *Logger, from, to string) {
	logger.Info("connection state changed",
		"from", from,
		"to", to,
	)
}

// LogEventApplied logs a successfully applied remote event.
func LogEventApplied(ctx context.Context, logger *Logger, eventID, eventType string, duration time.Duration) {
	logger.InfoContext(ctx, "remote event applied",
		"event_id", eventID,
		"event_type", eventType,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogEventDuplicate logs an event suppressed by the idempotency ledger.
func LogEventDuplicate(ctx context.Context, logger *Logger, eventID string) {
	logger.DebugContext(ctx, "duplicate event suppressed",
		"event_id", eventID,
	)
}

// LogEventDropped logs an event whose handler failed. The event is
// neither ledgered nor acknowledged.
func LogEventDropped(ctx context.Context, logger *Logger, eventID, eventType string, err error) {
	logger.ErrorContext(ctx, "remote event dropped",
		"event_id", eventID,
		"event_type", eventType,
		"error", err.Error(),
	)
}

// LogPushFailed logs a failed outbound snapshot push. Pushes are
// best-effort; this sink is where the swallowed errors surface.
func LogPushFailed(ctx context.Context, logger *Logger, err error) {
	logger.WarnContext(ctx, "outbound snapshot push failed",
		"error", err.Error(),
	)
}

// LogRecoveryResult logs the outcome of a session recovery attempt.
func LogRecoveryResult(ctx context.Context, logger *Logger, recovered bool, err error) {
	if recovered {
		logger.InfoContext(ctx, "session recovered")
		return
	}
	args := []any{"recovered", false}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	logger.WarnContext(ctx, "session recovery failed", args...)
}
