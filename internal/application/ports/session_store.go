// Package ports defines the interfaces between the sync engine and its
// collaborators: the session store, the local datastore, the duplex
// transport, the coordination backend, and the UI signal sink.
package ports

import (
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// SessionStorePort persists pairing credentials across process
// restarts. Implementations must not touch the network.
type SessionStorePort interface {
	// Load returns the stored session, or nil when nothing is stored.
	Load() (*dsync.SyncSession, error)

	// Save durably persists the session.
	Save(sess *dsync.SyncSession) error

	// Clear removes any stored session.
	Clear() error
}
