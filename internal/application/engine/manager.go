package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/config"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/tracing"
)

// Manager owns the connection state machine. It dials the duplex
// transport, serves the event stream through the pipeline, recovers
// rejected sessions, and backs off between reconnect attempts.
//
// One Manager exists per process. All state transitions happen on the
// run goroutine; Reconnect is the only external input.
type Manager struct {
	cfg       config.SyncConfig
	sessions  ports.SessionStorePort
	transport ports.DuplexTransportPort
	pipeline  *Pipeline
	recoverer *Recoverer
	pusher    *Pusher
	signals   ports.SyncSignalsPort
	logger    *logging.Logger
	tracer    *tracing.Tracer

	// reconnectCh carries explicit reconnect requests into the run
	// loop. Buffered so Reconnect never blocks.
	reconnectCh chan struct{}

	mu      sync.RWMutex
	state   dsync.ConnectionState
	sess    *dsync.SyncSession
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a connection manager. The pusher may be nil when
// outbound sync is disabled.
func NewManager(
	cfg config.SyncConfig,
	sessions ports.SessionStorePort,
	transport ports.DuplexTransportPort,
	pipeline *Pipeline,
	recoverer *Recoverer,
	pusher *Pusher,
	signals ports.SyncSignalsPort,
	logger *logging.Logger,
	tracer *tracing.Tracer,
) *Manager {
	return &Manager{
		cfg:         cfg,
		sessions:    sessions,
		transport:   transport,
		pipeline:    pipeline,
		recoverer:   recoverer,
		pusher:      pusher,
		signals:     signals,
		logger:      logger,
		tracer:      tracer,
		reconnectCh: make(chan struct{}, 1),
		state:       dsync.StateDisconnected,
	}
}

// AttachPusher sets the outbound pusher. Must be called before Start;
// the pusher usually needs the manager's Token, so it cannot exist at
// construction time.
func (m *Manager) AttachPusher(p *Pusher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		m.pusher = p
	}
}

// Start loads the stored session and launches the run loop. Returns
// an error only when the session store is unreadable.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	sess, err := m.sessions.Load()
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to load session", err)
	}
	m.sess = sess

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = true

	go m.run(runCtx)
	return nil
}

// Stop tears the run loop down and waits for it to exit. An event
// whose handler is mid-flight finishes applying before the loop
// returns.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.cancel()
	done := m.done
	m.mu.Unlock()
	<-done
}

// Reconnect requests an immediate connection attempt: it wakes a
// parked run loop and resets the attempt budget. While connected it
// forces a fresh dial.
func (m *Manager) Reconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
	}
}

// State returns the current connection state.
func (m *Manager) State() dsync.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Session returns the current session, or nil when unpaired.
func (m *Manager) Session() *dsync.SyncSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return nil
	}
	copied := *m.sess
	return &copied
}

// Token returns the current session token, or "" when there is none.
// Satisfies the pusher's TokenFunc.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return ""
	}
	return m.sess.SessionToken
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.BackoffBase
	bo.MaxInterval = m.cfg.BackoffMax
	attempts := 0

	for {
		if ctx.Err() != nil {
			m.setState(dsync.StateDisconnected)
			return
		}

		sess := m.Session()
		if sess == nil || !sess.Valid() {
			m.setState(dsync.StateDisconnected)
			if !m.park(ctx) {
				return
			}
			// A pairing may have happened while parked.
			m.reloadSession()
			bo.Reset()
			attempts = 0
			continue
		}

		m.setState(dsync.StateConnecting)
		attempts++

		connectCtx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
		spanCtx, span := m.tracer.StartConnectSpan(connectCtx, attempts)
		conn, err := m.transport.Connect(spanCtx, sess.SessionToken)
		cancel()

		if err != nil {
			span.EndWithError(err)

			if domainErrors.IsAuth(err) {
				if m.recoverSession(ctx, sess) {
					bo.Reset()
					attempts = 0
					continue
				}
				// Recovery said no: park until the user re-pairs or
				// retries explicitly. Paired stays set.
				m.setState(dsync.StateDisconnected)
				m.signals.SessionExpired(false)
				if !m.park(ctx) {
					return
				}
				m.reloadSession()
				bo.Reset()
				attempts = 0
				continue
			}

			if attempts >= m.cfg.MaxReconnectAttempts {
				m.logger.Warn("reconnect attempts exhausted",
					"attempts", attempts,
				)
				m.setState(dsync.StateDisconnected)
				m.signals.ReconnectExhausted()
				if !m.park(ctx) {
					return
				}
				bo.Reset()
				attempts = 0
				continue
			}

			delay := bo.NextBackOff()
			m.logger.Debug("connection attempt failed, backing off",
				"attempt", attempts,
				"delay", delay.String(),
				"error", err,
			)
			select {
			case <-ctx.Done():
				m.setState(dsync.StateDisconnected)
				return
			case <-m.reconnectCh:
				// Explicit request skips the remaining delay and
				// refreshes the budget.
				bo.Reset()
				attempts = 0
			case <-time.After(delay):
			}
			continue
		}

		span.End()
		bo.Reset()
		attempts = 0
		m.setState(dsync.StateConnected)
		if m.pusher != nil {
			m.pusher.Trigger()
		}

		m.serve(ctx, conn)
		conn.Close()
	}
}

// serve pumps one established connection: heartbeats out, events in.
// Returns when the connection drops, an explicit reconnect arrives, or
// the engine shuts down.
func (m *Manager) serve(ctx context.Context, conn ports.DuplexConn) {
	heartbeat := time.NewTicker(m.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-m.reconnectCh:
			m.logger.Debug("explicit reconnect requested, cycling connection")
			return

		case <-heartbeat.C:
			if err := conn.Ping(ctx); err != nil {
				m.logger.Warn("heartbeat failed", "error", err)
				return
			}

		case evt, ok := <-conn.Events():
			if !ok {
				if err := conn.Err(); err != nil {
					m.logger.Warn("connection dropped", "error", err)
				}
				return
			}
			// Detached from run-loop cancellation so an in-flight
			// event finishes its effect, ledger write, and ack even
			// during shutdown.
			m.pipeline.Handle(context.WithoutCancel(ctx), conn, evt)
		}
	}
}

// recoverSession runs session recovery and installs the fresh token.
// Returns true when a usable session was obtained.
func (m *Manager) recoverSession(ctx context.Context, sess *dsync.SyncSession) bool {
	m.setState(dsync.StateRecovering)

	fresh, err := m.recoverer.Recover(ctx, sess)
	if err != nil {
		return false
	}

	m.mu.Lock()
	m.sess = fresh
	m.mu.Unlock()

	// The rejection and replacement were invisible to the user; this
	// is the sole notification.
	m.signals.SessionRecovered()
	return true
}

// park blocks in Disconnected until an explicit reconnect request.
// Returns false when the engine is shutting down.
func (m *Manager) park(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.reconnectCh:
		return true
	}
}

func (m *Manager) reloadSession() {
	sess, err := m.sessions.Load()
	if err != nil {
		m.logger.Error("failed to reload session", "error", err)
		return
	}
	m.mu.Lock()
	m.sess = sess
	m.mu.Unlock()
}

func (m *Manager) setState(next dsync.ConnectionState) {
	m.mu.Lock()
	prev := m.state
	if prev == next {
		m.mu.Unlock()
		return
	}
	if !prev.CanTransition(next) {
		// Transitions are serialized on the run goroutine, so this is
		// a programming error, not a race.
		m.logger.Error("illegal state transition",
			"from", prev.String(),
			"to", next.String(),
		)
	}
	m.state = next
	m.mu.Unlock()

	logging.LogStateChange(m.logger, prev.String(), next.String())
	m.signals.ConnectionStateChanged(next)
}
