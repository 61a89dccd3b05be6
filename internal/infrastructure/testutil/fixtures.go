// Package testutil provides test fixtures and helpers for testing.
package testutil

import (
	"time"

	"github.com/jbctechsolutions/daybook/internal/domain/entry"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// NewTestTask creates a task fixture.
func NewTestTask(id, title string) entry.Task {
	now := time.Now().UTC()
	return entry.Task{
		ID:        id,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestProject creates a project fixture.
func NewTestProject(id, name string) entry.Project {
	now := time.Now().UTC()
	return entry.Project{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestSession creates a paired session fixture with a valid token.
func NewTestSession(deviceID string) *dsync.SyncSession {
	return &dsync.SyncSession{
		DeviceID:     deviceID,
		RemoteUserID: "user-" + deviceID,
		SessionToken: "token-" + deviceID,
		ExpiresAt:    time.Now().Add(24 * time.Hour),
		Paired:       true,
	}
}

// NewTaskEvent creates a task-created remote event fixture.
func NewTaskEvent(eventID, taskID, title string) dsync.RemoteEvent {
	return dsync.RemoteEvent{
		EventID:   eventID,
		EventType: dsync.EventTaskCreated,
		Payload: map[string]any{
			"id":    taskID,
			"title": title,
		},
	}
}

// NewTransactionEvent creates a transaction-created remote event fixture.
func NewTransactionEvent(eventID, txID string, amountCents int64) dsync.RemoteEvent {
	return dsync.RemoteEvent{
		EventID:   eventID,
		EventType: dsync.EventTransactionCreated,
		Payload: map[string]any{
			"id":       txID,
			"amount":   amountCents,
			"currency": "USD",
		},
	}
}
