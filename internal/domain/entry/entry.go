// Package entry defines the synced domain entities of the daybook
// application: tasks, projects, progress logs, and financial
// transactions. Entity IDs are natural string identifiers carried in
// remote events, so that re-applying an event is idempotent at the
// storage layer.
package entry

import "time"

// Task is a single to-do item, optionally belonging to a project.
type Task struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id,omitempty"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Done      bool       `json:"done"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Project groups tasks under a named bucket.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressLog records time spent against a task.
type ProgressLog struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Minutes   int       `json:"minutes"`
	Note      string    `json:"note,omitempty"`
	LoggedAt  time.Time `json:"logged_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is a financial entry. Amount is in minor currency units
// (cents) to avoid floating-point drift.
type Transaction struct {
	ID         string    `json:"id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Category   string    `json:"category,omitempty"`
	Memo       string    `json:"memo,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
