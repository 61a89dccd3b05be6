package engine

import (
	"context"
	"time"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/logging"
	"github.com/jbctechsolutions/daybook/internal/infrastructure/tracing"
)

// Recoverer obtains a fresh session token from the stable device and
// user identity after the backend rejects the stored token.
type Recoverer struct {
	backend ports.BackendPort
	store   ports.SessionStorePort
	timeout time.Duration
	logger  *logging.Logger
	tracer  *tracing.Tracer
}

// NewRecoverer creates a session recovery service.
func NewRecoverer(backend ports.BackendPort, store ports.SessionStorePort, timeout time.Duration, logger *logging.Logger, tracer *tracing.Tracer) *Recoverer {
	return &Recoverer{backend: backend, store: store, timeout: timeout, logger: logger, tracer: tracer}
}

// Recover rotates the session token using the stored identity pair
// and persists the result. The paired flag is never cleared here: a
// failed recovery means "cannot sync right now", and a later attempt
// may still succeed.
func (r *Recoverer) Recover(ctx context.Context, sess *dsync.SyncSession) (*dsync.SyncSession, error) {
	if sess == nil || !sess.HasIdentity() {
		return nil, domainErrors.NewError(domainErrors.CodeRecovery,
			"no stored identity to recover with", domainErrors.ErrRecoveryUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ctx, span := r.tracer.StartPairingSpan(ctx, "recover")
	defer span.End()

	result, err := r.backend.Recover(ctx, sess.DeviceID, sess.RemoteUserID)
	if err != nil {
		span.EndWithError(err)
		logging.LogRecoveryResult(ctx, r.logger, false, err)
		return nil, err
	}

	fresh := *sess
	fresh.SessionToken = result.SessionToken
	fresh.ExpiresAt = result.ExpiresAt
	fresh.Paired = true

	if err := r.store.Save(&fresh); err != nil {
		span.EndWithError(err)
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to persist recovered session", err)
	}

	logging.LogRecoveryResult(ctx, r.logger, true, nil)
	return &fresh, nil
}
