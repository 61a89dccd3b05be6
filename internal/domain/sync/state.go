package sync

// ConnectionState is the state of the engine's duplex connection.
// Exactly one instance exists per engine process; transitions are owned
// by the connection manager.
type ConnectionState string

const (
	// StateDisconnected means no connection exists and none is being
	// attempted. Entered at startup, after recovery exhaustion, and
	// after the reconnect attempt ceiling is reached.
	StateDisconnected ConnectionState = "disconnected"

	// StateConnecting means a transport handshake is in progress or
	// scheduled behind a backoff delay.
	StateConnecting ConnectionState = "connecting"

	// StateConnected means the handshake succeeded and the backend
	// accepted the bearer token.
	StateConnected ConnectionState = "connected"

	// StateRecovering means the handshake was rejected with an
	// authentication error and session recovery is in progress.
	StateRecovering ConnectionState = "recovering"
)

// String returns the state name.
func (s ConnectionState) String() string {
	return string(s)
}

// CanTransition reports whether moving from s to next is a legal
// transition of the connection state machine.
func (s ConnectionState) CanTransition(next ConnectionState) bool {
	switch s {
	case StateDisconnected:
		return next == StateConnecting
	case StateConnecting:
		return next == StateConnected || next == StateRecovering || next == StateDisconnected
	case StateConnected:
		return next == StateConnecting || next == StateDisconnected
	case StateRecovering:
		return next == StateConnecting || next == StateDisconnected
	}
	return false
}
