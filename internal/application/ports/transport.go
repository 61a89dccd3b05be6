package ports

import (
	"context"

	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// DuplexTransportPort establishes authenticated duplex connections to
// the coordination backend. Reconnection and auth-failure
// classification are the engine's responsibility; the transport only
// reports what happened.
type DuplexTransportPort interface {
	// Connect performs the transport handshake with the given bearer
	// token. A rejected token yields an error with code AUTH; any
	// other failure yields code TRANSPORT.
	Connect(ctx context.Context, token string) (DuplexConn, error)
}

// DuplexConn is one established connection. The engine reads inbound
// events from Events and acknowledges each one individually.
type DuplexConn interface {
	// Events is the inbound event stream. The channel is closed when
	// the connection drops; Err then reports why.
	Events() <-chan dsync.RemoteEvent

	// Ack acknowledges a single event to the backend. Until an event
	// is acked the backend may redeliver it.
	Ack(ctx context.Context, eventID string) error

	// Ping sends a heartbeat frame.
	Ping(ctx context.Context) error

	// Done is closed when the connection is no longer usable.
	Done() <-chan struct{}

	// Err returns the reason the connection ended, once Done is
	// closed. Returns nil after a clean local Close.
	Err() error

	// Close tears the connection down.
	Close() error
}
