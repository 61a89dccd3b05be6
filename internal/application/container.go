// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jbctechsolutions/daybook/internal/adapters/backend/httpapi"
	"github.com/jbctechsolutions/daybook/internal/adapters/localstore/sqlite"
	"github.com/jbctechsolutions/daybook/internal/adapters/transport/ws"
	"github.com/jbctechsolutions/daybook/internal/application/engine"
	"github.com/jbctechsolutions/daybook/internal/application/ports"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/config"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/crypto"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/sessionstore"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/tracing"
)

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	config  *config.Config
	verbose bool // Override log level to debug when true

	// Observability
	logger *logging.Logger
	tracer *tracing.Tracer

	// Storage
	dbConn       *sqlite.Connection
	db           *sql.DB
	localStore   *sqlite.Store
	sessionStore ports.SessionStorePort

	// Backend adapters
	backend   ports.BackendPort
	transport ports.DuplexTransportPort

	// Sync engine
	signals   ports.SyncSignalsPort
	pipeline  *engine.Pipeline
	recoverer *engine.Recoverer
	pusher    *engine.Pusher
	manager   *engine.Manager
	pairer    *engine.Pairer

	// Config hot reload
	configWatcher *config.Watcher
}

// NewContainer creates a new dependency injection container with all
// services initialized based on the provided configuration. Signals
// may be nil when no UI is attached.
func NewContainer(cfg *config.Config, signals ports.SyncSignalsPort, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if signals == nil {
		signals = ports.NopSignals{}
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
		signals: signals,
	}

	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if err := c.initStorage(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.initAdapters()
	c.initEngine()

	return c, nil
}

// initObservability initializes logging and tracing.
func (c *Container) initObservability() error {
	logLevel := logging.LevelInfo
	if c.verbose {
		logLevel = logging.LevelDebug
	} else {
		switch c.config.Logging.Level {
		case "debug":
			logLevel = logging.LevelDebug
		case "info":
			logLevel = logging.LevelInfo
		case "warn":
			logLevel = logging.LevelWarn
		case "error":
			logLevel = logging.LevelError
		}
	}

	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	c.logger = logging.New(logging.Config{
		Level:  logLevel,
		Format: logFormat,
	})

	if c.config.Tracing.Enabled {
		tracer, err := tracing.New(context.Background(), tracing.Config{
			Enabled:      true,
			ExporterType: tracing.ExporterType(c.config.Tracing.ExporterType),
			OTLPEndpoint: c.config.Tracing.OTLPEndpoint,
			ServiceName:  c.config.Tracing.ServiceName,
			Environment:  "production",
			SampleRate:   c.config.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("failed to create tracer: %w", err)
		}
		c.tracer = tracer
	} else {
		c.tracer = tracing.Default()
	}

	return nil
}

// initStorage opens the local database and the encrypted session file.
func (c *Container) initStorage() error {
	if err := os.MkdirAll(c.config.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	conn, err := sqlite.NewConnection(c.config.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := conn.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	c.dbConn = conn
	c.db = db

	encryptor, err := crypto.NewEncryptor(c.config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}
	c.sessionStore = sessionstore.New(c.config.SessionPath(), encryptor)

	// The device ID lives in the session; snapshots stamp whatever is
	// current at assembly time.
	c.localStore = sqlite.NewStore(db, func() string {
		if c.manager == nil {
			return ""
		}
		sess := c.manager.Session()
		if sess == nil {
			return ""
		}
		return sess.DeviceID
	})

	return nil
}

// initAdapters wires the backend HTTP client and duplex transport.
func (c *Container) initAdapters() {
	c.backend = httpapi.NewClient(httpapi.Config{
		BaseURL:    c.config.Sync.BackendURL,
		Timeout:    c.config.Sync.RequestTimeout,
		MaxRetries: c.config.Sync.MaxRetries,
	})

	c.transport = ws.NewTransport(ws.Config{
		SocketURL:        c.config.Sync.SocketURL,
		HandshakeTimeout: c.config.Sync.HandshakeTimeout,
	}, c.logger)
}

// initEngine assembles the sync engine from its parts.
func (c *Container) initEngine() {
	c.pipeline = engine.NewPipeline(c.localStore, engine.NewDispatcher(), c.signals, c.logger, c.tracer)
	c.recoverer = engine.NewRecoverer(c.backend, c.sessionStore, c.config.Sync.RecoveryTimeout, c.logger, c.tracer)
	c.pairer = engine.NewPairer(c.backend, c.sessionStore, c.logger, c.tracer)

	c.manager = engine.NewManager(
		c.config.Sync,
		c.sessionStore,
		c.transport,
		c.pipeline,
		c.recoverer,
		nil, // pusher is attached below; it needs the manager's token
		c.signals,
		c.logger,
		c.tracer,
	)

	c.pusher = engine.NewPusher(c.localStore, c.backend, c.manager.Token, c.config.Sync.PushDebounce, c.logger)
	c.manager.AttachPusher(c.pusher)
}

// StartConfigWatcher begins watching the given config file for changes
// and applies the log level and push debounce live. Connection settings
// take effect on the next reconnect. No-op when configPath is empty.
func (c *Container) StartConfigWatcher(ctx context.Context, loader *config.Loader, configPath string) error {
	if configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(loader, configPath, func(cfg *config.Config) {
		c.logger.Info("configuration reloaded", "path", configPath)
		c.logger.SetLevel(logging.Level(cfg.Logging.Level))
		c.pusher.SetDebounce(cfg.Sync.PushDebounce)
	})
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}

	c.configWatcher = watcher
	return nil
}

// StartSync launches the sync engine: the connection manager and the
// outbound pusher.
func (c *Container) StartSync(ctx context.Context) error {
	c.pusher.Start(ctx)
	if err := c.manager.Start(ctx); err != nil {
		c.pusher.Stop()
		return err
	}
	return nil
}

// StopSync shuts the sync engine down, letting an in-flight event
// finish.
func (c *Container) StopSync() {
	c.manager.Stop()
	c.pusher.Stop()
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	ctx := context.Background()

	if c.configWatcher != nil {
		_ = c.configWatcher.Close()
	}
	if c.tracer != nil {
		_ = c.tracer.Shutdown(ctx)
	}
	if c.dbConn != nil {
		return c.dbConn.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the structured logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the OpenTelemetry tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}

// DB returns the database connection.
func (c *Container) DB() *sql.DB {
	return c.db
}

// LocalStore returns the embedded datastore.
func (c *Container) LocalStore() *sqlite.Store {
	return c.localStore
}

// SessionStore returns the encrypted session store.
func (c *Container) SessionStore() ports.SessionStorePort {
	return c.sessionStore
}

// Manager returns the connection manager.
func (c *Container) Manager() *engine.Manager {
	return c.manager
}

// Pairer returns the pairing service.
func (c *Container) Pairer() *engine.Pairer {
	return c.pairer
}

// Pusher returns the outbound snapshot pusher.
func (c *Container) Pusher() *engine.Pusher {
	return c.pusher
}

// Backend returns the coordination backend client.
func (c *Container) Backend() ports.BackendPort {
	return c.backend
}
