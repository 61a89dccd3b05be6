package engine

import (
	"context"
	"sync"
	"time"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
)

// TokenFunc returns the current session token, or "" when the device
// has no usable session.
type TokenFunc func() string

// Pusher transmits full local snapshots to the backend. Triggers are
// debounced: a burst of local edits collapses into one push after the
// quiet window elapses. Pushes are fire and forget; a failed push is
// logged and superseded by the next one.
type Pusher struct {
	store    ports.LocalStorePort
	backend  ports.BackendPort
	token    TokenFunc
	debounce time.Duration
	logger   *logging.Logger

	trigger chan struct{}

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewPusher creates an outbound snapshot pusher.
func NewPusher(store ports.LocalStorePort, backend ports.BackendPort, token TokenFunc, debounce time.Duration, logger *logging.Logger) *Pusher {
	return &Pusher{
		store:    store,
		backend:  backend,
		token:    token,
		debounce: debounce,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the debounce loop. Calling Start on a running pusher
// is a no-op.
func (p *Pusher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(ctx, p.stop, p.done)
}

// Stop shuts the debounce loop down and waits for it to exit. A
// pending debounced push is abandoned.
func (p *Pusher) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()
	<-done
}

// SetDebounce changes the quiet window. Takes effect on the next
// trigger; a window already counting down is unaffected.
func (p *Pusher) SetDebounce(d time.Duration) {
	p.mu.Lock()
	p.debounce = d
	p.mu.Unlock()
}

func (p *Pusher) quietWindow() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.debounce
}

// Trigger requests a push. Never blocks; triggers arriving while one
// is already pending coalesce.
func (p *Pusher) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *Pusher) run(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(p.quietWindow())
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-p.trigger:
			// Restart the quiet window on every trigger.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.quietWindow())
		case <-timer.C:
			p.push(ctx)
		}
	}
}

func (p *Pusher) push(ctx context.Context) {
	token := p.token()
	if token == "" {
		p.logger.Debug("skipping snapshot push, no session token")
		return
	}

	snap, err := p.store.Snapshot(ctx)
	if err != nil {
		logging.LogPushFailed(ctx, p.logger, err)
		return
	}
	if snap.Empty() {
		p.logger.Debug("skipping snapshot push, nothing to send")
		return
	}

	if err := p.backend.PushSnapshot(ctx, token, snap); err != nil {
		logging.LogPushFailed(ctx, p.logger, err)
		return
	}
	p.logger.Debug("snapshot pushed",
		"tasks", len(snap.Tasks),
		"projects", len(snap.Projects),
	)
}
