package sync

import "time"

// EventType tags a remote event with the domain mutation it carries.
type EventType string

const (
	EventTaskCreated        EventType = "task-created"
	EventTaskUpdated        EventType = "task-updated"
	EventProjectCreated     EventType = "project-created"
	EventProgressLogged     EventType = "progress-logged"
	EventTransactionCreated EventType = "transaction-created"
)

// RemoteEvent is a single inbound event from the coordination backend.
// EventID is the sole deduplication key; the payload shape is owned by
// the matching domain handler, not by the engine.
type RemoteEvent struct {
	EventID   string         `json:"eventId"`
	EventType EventType      `json:"eventType"`
	Payload   map[string]any `json:"payload"`
}

// AppliedEventRecord is a row in the idempotency ledger. Its presence
// is both necessary and sufficient proof that the event's domain effect
// has been committed. Records are kept permanently, never pruned.
type AppliedEventRecord struct {
	EventID   string
	EventType EventType
	AppliedAt time.Time
	Source    string
}

// SourceDuplex identifies the long-lived duplex connection as the
// delivery channel for an applied event.
const SourceDuplex = "duplex"
