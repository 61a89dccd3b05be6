// Package engine implements the device sync engine: the connection
// state machine, the inbound event pipeline with its idempotency
// ledger, session recovery, pairing, and the debounced outbound
// pusher.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	"github.com/jbctechsolutions/daybook/internal/domain/entry"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// HandlerFunc applies one remote event's domain effect to the local
// store.
type HandlerFunc func(ctx context.Context, store ports.LocalStorePort, evt dsync.RemoteEvent) error

// Dispatcher routes remote events to their typed handlers.
type Dispatcher struct {
	handlers map[dsync.EventType]HandlerFunc
}

// NewDispatcher creates a dispatcher with the standard handler set.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[dsync.EventType]HandlerFunc{
			dsync.EventTaskCreated:        applyTask,
			dsync.EventTaskUpdated:        applyTask,
			dsync.EventProjectCreated:     applyProject,
			dsync.EventProgressLogged:     applyProgressLog,
			dsync.EventTransactionCreated: applyTransaction,
		},
	}
}

// Register adds or replaces the handler for an event type.
func (d *Dispatcher) Register(t dsync.EventType, fn HandlerFunc) {
	d.handlers[t] = fn
}

// Dispatch invokes the handler registered for the event's type. An
// unknown type yields ErrHandlerNotFound.
func (d *Dispatcher) Dispatch(ctx context.Context, store ports.LocalStorePort, evt dsync.RemoteEvent) error {
	fn, ok := d.handlers[evt.EventType]
	if !ok {
		return domainErrors.NewError(domainErrors.CodeHandler,
			fmt.Sprintf("no handler for event type %q", evt.EventType),
			domainErrors.ErrHandlerNotFound)
	}
	return fn(ctx, store, evt)
}

// decodePayload re-marshals the loosely typed payload into a concrete
// entity struct.
func decodePayload(evt dsync.RemoteEvent, out any) error {
	raw, err := json.Marshal(evt.Payload)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "failed to encode payload", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation,
			fmt.Sprintf("malformed %s payload", evt.EventType), err)
	}
	return nil
}

func applyTask(ctx context.Context, store ports.LocalStorePort, evt dsync.RemoteEvent) error {
	var t entry.Task
	if err := decodePayload(evt, &t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	fillTimes(&t.CreatedAt, &t.UpdatedAt)
	return store.UpsertTask(ctx, t)
}

func applyProject(ctx context.Context, store ports.LocalStorePort, evt dsync.RemoteEvent) error {
	var p entry.Project
	if err := decodePayload(evt, &p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	fillTimes(&p.CreatedAt, &p.UpdatedAt)
	return store.UpsertProject(ctx, p)
}

func applyProgressLog(ctx context.Context, store ports.LocalStorePort, evt dsync.RemoteEvent) error {
	var l entry.ProgressLog
	if err := decodePayload(evt, &l); err != nil {
		return err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.TaskID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "progress log requires a task id", nil)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.LoggedAt.IsZero() {
		l.LoggedAt = l.CreatedAt
	}
	return store.UpsertProgressLog(ctx, l)
}

func applyTransaction(ctx context.Context, store ports.LocalStorePort, evt dsync.RemoteEvent) error {
	var tx entry.Transaction
	if err := decodePayload(evt, &tx); err != nil {
		return err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Currency == "" {
		tx.Currency = "USD"
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.OccurredAt.IsZero() {
		tx.OccurredAt = tx.CreatedAt
	}
	return store.UpsertTransaction(ctx, tx)
}

func fillTimes(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}
