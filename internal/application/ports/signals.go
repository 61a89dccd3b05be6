package ports

import (
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// SyncSignalsPort is the engine's outbound notification surface for
// the UI. Implementations must return quickly; the engine calls these
// from its own goroutines and never waits on the UI.
type SyncSignalsPort interface {
	// ConnectionStateChanged fires on every state machine entry.
	ConnectionStateChanged(state dsync.ConnectionState)

	// SessionRecovered fires once when a rejected token was silently
	// replaced by session recovery.
	SessionRecovered()

	// SessionExpired fires when the engine cannot proceed with the
	// stored credentials. recoverable=false means re-pairing is the
	// only way forward.
	SessionExpired(recoverable bool)

	// ReconnectExhausted fires when the bounded reconnect attempts hit
	// their ceiling; the engine parks until an explicit reconnect.
	ReconnectExhausted()

	// DataChanged fires after an inbound event mutated local state.
	DataChanged()
}

// NopSignals discards every signal. Used when no UI is attached.
type NopSignals struct{}

func (NopSignals) ConnectionStateChanged(dsync.ConnectionState) {}
func (NopSignals) SessionRecovered()                            {}
func (NopSignals) SessionExpired(bool)                          {}
func (NopSignals) ReconnectExhausted()                          {}
func (NopSignals) DataChanged()                                 {}
