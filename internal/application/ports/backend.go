package ports

import (
	"context"
	"time"

	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// PairResult is the backend's response to a successful pairing
// exchange.
type PairResult struct {
	SessionToken string
	DeviceID     string
	RemoteUserID string
	ExpiresAt    time.Time
}

// RecoverResult is a fresh credential issued by session recovery.
// Identity fields are never reissued; only the token rotates.
type RecoverResult struct {
	SessionToken string
	ExpiresAt    time.Time
}

// BackendPort covers the request/response endpoints of the
// coordination backend. These ride a reliable channel, not the duplex
// connection.
type BackendPort interface {
	// Pair exchanges a short-lived human-entered code for a long-lived
	// session. An unknown or expired code yields ErrInvalidCode.
	Pair(ctx context.Context, code string) (*PairResult, error)

	// RegisterDevice associates a human-readable label with the
	// device. Best-effort: callers must treat failure as non-fatal.
	RegisterDevice(ctx context.Context, deviceID, label string) error

	// Recover exchanges the stable identity pair for a fresh session
	// token without user interaction.
	Recover(ctx context.Context, deviceID, remoteUserID string) (*RecoverResult, error)

	// Unpair invalidates the session on the backend.
	Unpair(ctx context.Context, sessionToken string) error

	// PushSnapshot transmits a full local state snapshot. Fire and
	// forget from the engine's perspective.
	PushSnapshot(ctx context.Context, token string, snap *dsync.OutboundSnapshot) error
}
