// Package sync defines the core types of the device sync engine: the
// pairing session, the connection state machine, remote events, and the
// idempotency ledger records that collapse at-least-once delivery into
// at-most-once domain effects.
package sync

import "time"

// SyncSession holds the pairing credentials for this installation.
// DeviceID and RemoteUserID are stable for the lifetime of a pairing;
// SessionToken and ExpiresAt are refreshed by session recovery.
type SyncSession struct {
	DeviceID     string    `json:"device_id"`
	RemoteUserID string    `json:"remote_user_id"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Paired       bool      `json:"paired"`
}

// Valid reports whether the session satisfies the pairing invariant:
// a paired session must carry a token and an expiry.
func (s *SyncSession) Valid() bool {
	if s == nil || !s.Paired {
		return false
	}
	return s.SessionToken != "" && !s.ExpiresAt.IsZero()
}

// HasIdentity reports whether the session carries the stable identity
// pair required for silent session recovery. The token may be stale or
// absent; identity alone is enough to attempt recovery.
func (s *SyncSession) HasIdentity() bool {
	return s != nil && s.DeviceID != "" && s.RemoteUserID != ""
}

// Expired reports whether the session token has passed its expiry.
func (s *SyncSession) Expired(now time.Time) bool {
	return s == nil || s.ExpiresAt.Before(now)
}
