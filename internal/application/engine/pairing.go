package engine

import (
	"context"
	"strings"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/tracing"
)

// Pairer runs the one-time pairing exchange that bootstraps a device
// into a sync account, and its inverse.
type Pairer struct {
	backend ports.BackendPort
	store   ports.SessionStorePort
	logger  *logging.Logger
	tracer  *tracing.Tracer
}

// NewPairer creates a pairing service.
func NewPairer(backend ports.BackendPort, store ports.SessionStorePort, logger *logging.Logger, tracer *tracing.Tracer) *Pairer {
	return &Pairer{backend: backend, store: store, logger: logger, tracer: tracer}
}

// Pair exchanges a human-entered code for a persisted session. On
// failure the stored session is left untouched, whatever it was.
// Device registration with the given label is best-effort and never
// fails the pairing.
func (p *Pairer) Pair(ctx context.Context, code, label string) (*dsync.SyncSession, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "pairing code is required", nil)
	}

	ctx, span := p.tracer.StartPairingSpan(ctx, "pair")
	defer span.End()

	result, err := p.backend.Pair(ctx, code)
	if err != nil {
		span.EndWithError(err)
		return nil, err
	}

	sess := &dsync.SyncSession{
		DeviceID:     result.DeviceID,
		RemoteUserID: result.RemoteUserID,
		SessionToken: result.SessionToken,
		ExpiresAt:    result.ExpiresAt,
		Paired:       true,
	}
	if err := p.store.Save(sess); err != nil {
		span.EndWithError(err)
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to persist session", err)
	}

	if label != "" {
		if err := p.backend.RegisterDevice(ctx, sess.DeviceID, label); err != nil {
			p.logger.Warn("device label registration failed", "deviceID", sess.DeviceID, "error", err)
		}
	}

	p.logger.Info("device paired", "deviceID", sess.DeviceID)
	return sess, nil
}

// Unpair invalidates the backend session and clears local
// credentials. The local clear happens even when the backend call
// fails, so the device never keeps credentials the user asked to
// discard.
func (p *Pairer) Unpair(ctx context.Context) error {
	ctx, span := p.tracer.StartPairingSpan(ctx, "unpair")
	defer span.End()

	sess, err := p.store.Load()
	if err != nil {
		span.EndWithError(err)
		return err
	}
	if sess == nil || !sess.Paired {
		return domainErrors.NewError(domainErrors.CodeValidation,
			"device is not paired", domainErrors.ErrNotPaired)
	}

	if err := p.backend.Unpair(ctx, sess.SessionToken); err != nil {
		p.logger.Warn("backend unpair failed, clearing local session anyway", "error", err)
	}

	if err := p.store.Clear(); err != nil {
		span.EndWithError(err)
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to clear session", err)
	}

	p.logger.Info("device unpaired", "deviceID", sess.DeviceID)
	return nil
}
