package ports

import (
	"context"

	"github.com/jbctechsolutions/daybook/internal/domain/entry"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// LocalStorePort is the engine's view of the embedded datastore: the
// idempotency ledger, the per-entity mutation entry points invoked by
// event handlers, and the snapshot assembler for outbound pushes.
//
// Entity mutations are upserts keyed by the entity's natural ID, so a
// duplicate delivery that slips past the ledger is still harmless at
// the storage layer.
type LocalStorePort interface {
	// LedgerHas reports whether eventID has already produced a local
	// effect.
	LedgerHas(ctx context.Context, eventID string) (bool, error)

	// LedgerWrite records that an event's domain effect has been
	// committed. Writing the same eventID twice is an error.
	LedgerWrite(ctx context.Context, rec dsync.AppliedEventRecord) error

	// Snapshot assembles a full serialization of current local domain
	// state for an outbound push.
	Snapshot(ctx context.Context) (*dsync.OutboundSnapshot, error)

	UpsertTask(ctx context.Context, t entry.Task) error
	UpsertProject(ctx context.Context, p entry.Project) error
	UpsertProgressLog(ctx context.Context, l entry.ProgressLog) error
	UpsertTransaction(ctx context.Context, tx entry.Transaction) error
}
