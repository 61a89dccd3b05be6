package engine

import (
	"context"
	"time"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/tracing"
)

// Pipeline applies inbound remote events with at-most-once effect
// semantics. The idempotency ledger is consulted before the handler
// runs and written after it succeeds; the ack is withheld unless both
// the effect and the ledger write committed, so a crash between them
// leads to a redelivery that the natural-key upsert absorbs.
type Pipeline struct {
	store      ports.LocalStorePort
	dispatcher *Dispatcher
	signals    ports.SyncSignalsPort
	logger     *logging.Logger
	tracer     *tracing.Tracer
}

// NewPipeline creates an event ingestion pipeline.
func NewPipeline(store ports.LocalStorePort, dispatcher *Dispatcher, signals ports.SyncSignalsPort, logger *logging.Logger, tracer *tracing.Tracer) *Pipeline {
	return &Pipeline{
		store:      store,
		dispatcher: dispatcher,
		signals:    signals,
		logger:     logger,
		tracer:     tracer,
	}
}

// Handle processes a single inbound event. The caller serializes
// invocations; events on one connection apply in delivery order.
//
// Outcomes:
//   - duplicate: acked immediately, no local effect
//   - applied: effect committed, ledger written, acked, DataChanged
//   - handler failure: logged and dropped, not acked
//   - ledger failure: effect committed but not acked; redelivery is
//     absorbed by the upsert
func (p *Pipeline) Handle(ctx context.Context, conn ports.DuplexConn, evt dsync.RemoteEvent) {
	ctx = logging.WithEventID(ctx, evt.EventID)
	ctx, span := p.tracer.StartEventSpan(ctx, evt.EventID, string(evt.EventType))
	defer span.End()

	seen, err := p.store.LedgerHas(ctx, evt.EventID)
	if err != nil {
		span.EndWithError(err)
		p.logger.Error("ledger lookup failed, withholding ack", "eventID", evt.EventID, "error", err)
		return
	}
	if seen {
		span.SetDuplicate()
		logging.LogEventDuplicate(ctx, p.logger, evt.EventID)
		p.ack(ctx, conn, evt.EventID)
		return
	}

	start := time.Now()
	if err := p.dispatcher.Dispatch(ctx, p.store, evt); err != nil {
		span.EndWithError(err)
		logging.LogEventDropped(ctx, p.logger, evt.EventID, string(evt.EventType), err)
		return
	}

	rec := dsync.AppliedEventRecord{
		EventID:   evt.EventID,
		EventType: evt.EventType,
		AppliedAt: time.Now().UTC(),
		Source:    dsync.SourceDuplex,
	}
	if err := p.store.LedgerWrite(ctx, rec); err != nil {
		span.EndWithError(err)
		p.logger.Error("ledger write failed, withholding ack", "eventID", evt.EventID, "error", err)
		return
	}

	logging.LogEventApplied(ctx, p.logger, evt.EventID, string(evt.EventType), time.Since(start))
	p.ack(ctx, conn, evt.EventID)
	p.signals.DataChanged()
}

// ack is best-effort: an ack that fails to send just means the backend
// will redeliver, and the ledger suppresses the replay.
func (p *Pipeline) ack(ctx context.Context, conn ports.DuplexConn, eventID string) {
	if err := conn.Ack(ctx, eventID); err != nil {
		p.logger.Warn("ack failed, backend will redeliver", "eventID", eventID, "error", err)
	}
}
