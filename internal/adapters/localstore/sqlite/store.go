package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jbctechsolutions/daybook/internal/application/ports"
	"github.com/jbctechsolutions/daybook/internal/domain/entry"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

// Compile-time check that Store implements LocalStorePort.
var _ ports.LocalStorePort = (*Store)(nil)

// Store implements the local store port against SQLite. Entity writes
// are upserts keyed by natural ID, so re-applying a remote event is
// idempotent even without the ledger.
type Store struct {
	db       *sql.DB
	deviceID func() string
}

// NewStore creates a store over an open database connection. deviceID
// is stamped onto outbound snapshots; it may return the empty string
// while the device is unpaired.
func NewStore(db *sql.DB, deviceID func() string) *Store {
	if deviceID == nil {
		deviceID = func() string { return "" }
	}
	return &Store{db: db, deviceID: deviceID}
}

// LedgerHas reports whether eventID has already produced a local effect.
func (s *Store) LedgerHas(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applied_events WHERE event_id = ?", eventID).Scan(&count)
	if err != nil {
		return false, domainErrors.NewError(domainErrors.CodeStorage, "ledger lookup failed", err)
	}
	return count > 0, nil
}

// LedgerWrite records an applied event. A second write for the same
// eventID returns ErrLedgerConflict.
func (s *Store) LedgerWrite(ctx context.Context, rec dsync.AppliedEventRecord) error {
	if rec.EventID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "event ID is required", nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applied_events (event_id, event_type, applied_at, source)
		VALUES (?, ?, ?, ?)
	`, rec.EventID, string(rec.EventType), rec.AppliedAt.UTC().Format(time.RFC3339Nano), rec.Source)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domainErrors.NewError(domainErrors.CodeStorage,
				"event already ledgered", domainErrors.ErrLedgerConflict)
		}
		return domainErrors.NewError(domainErrors.CodeStorage, "ledger write failed", err)
	}
	return nil
}

// UpsertTask creates or replaces a task by its natural ID.
func (s *Store) UpsertTask(ctx context.Context, t entry.Task) error {
	if t.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "task ID is required", nil)
	}

	var dueAt sql.NullString
	if t.DueAt != nil {
		dueAt = sql.NullString{String: t.DueAt.UTC().Format(time.RFC3339Nano), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, title, notes, done, due_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			title = excluded.title,
			notes = excluded.notes,
			done = excluded.done,
			due_at = excluded.due_at,
			updated_at = excluded.updated_at
	`, t.ID, nullableString(t.ProjectID), t.Title, nullableString(t.Notes), t.Done, dueAt,
		t.CreatedAt.UTC().Format(time.RFC3339Nano), t.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "could not upsert task", err)
	}
	return nil
}

// UpsertProject creates or replaces a project by its natural ID.
func (s *Store) UpsertProject(ctx context.Context, p entry.Project) error {
	if p.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "project ID is required", nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, color, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			archived = excluded.archived,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, nullableString(p.Color), p.Archived,
		p.CreatedAt.UTC().Format(time.RFC3339Nano), p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "could not upsert project", err)
	}
	return nil
}

// UpsertProgressLog creates or replaces a progress log by its natural ID.
func (s *Store) UpsertProgressLog(ctx context.Context, l entry.ProgressLog) error {
	if l.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "progress log ID is required", nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_logs (id, task_id, minutes, note, logged_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task_id = excluded.task_id,
			minutes = excluded.minutes,
			note = excluded.note,
			logged_at = excluded.logged_at
	`, l.ID, l.TaskID, l.Minutes, nullableString(l.Note),
		l.LoggedAt.UTC().Format(time.RFC3339Nano), l.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "could not upsert progress log", err)
	}
	return nil
}

// UpsertTransaction creates or replaces a transaction by its natural ID.
func (s *Store) UpsertTransaction(ctx context.Context, tx entry.Transaction) error {
	if tx.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "transaction ID is required", nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, amount, currency, category, memo, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			currency = excluded.currency,
			category = excluded.category,
			memo = excluded.memo,
			occurred_at = excluded.occurred_at
	`, tx.ID, tx.Amount, tx.Currency, nullableString(tx.Category), nullableString(tx.Memo),
		tx.OccurredAt.UTC().Format(time.RFC3339Nano), tx.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "could not upsert transaction", err)
	}
	return nil
}

// Snapshot assembles a full serialization of local domain state.
func (s *Store) Snapshot(ctx context.Context) (*dsync.OutboundSnapshot, error) {
	snap := &dsync.OutboundSnapshot{
		DeviceID: s.deviceID(),
		TakenAt:  time.Now().UTC(),
	}

	var err error
	if snap.Tasks, err = s.fetchTasks(ctx); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "could not fetch tasks", err)
	}
	if snap.Projects, err = s.fetchProjects(ctx); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "could not fetch projects", err)
	}
	if snap.ProgressLogs, err = s.fetchProgressLogs(ctx); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "could not fetch progress logs", err)
	}
	if snap.Transactions, err = s.fetchTransactions(ctx); err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "could not fetch transactions", err)
	}

	return snap, nil
}

func (s *Store) fetchTasks(ctx context.Context) ([]entry.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project_id, title, notes, done, due_at, created_at, updated_at FROM tasks")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []entry.Task
	for rows.Next() {
		var t entry.Task
		var projectID, notes, dueAt sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &projectID, &t.Title, &notes, &t.Done, &dueAt, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.ProjectID = projectID.String
		t.Notes = notes.String
		if dueAt.Valid {
			if ts, err := parseTime(dueAt.String); err == nil {
				t.DueAt = &ts
			}
		}
		t.CreatedAt, _ = parseTime(createdAt)
		t.UpdatedAt, _ = parseTime(updatedAt)
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func (s *Store) fetchProjects(ctx context.Context) ([]entry.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, color, archived, created_at, updated_at FROM projects")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []entry.Project
	for rows.Next() {
		var p entry.Project
		var color sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &color, &p.Archived, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Color = color.String
		p.CreatedAt, _ = parseTime(createdAt)
		p.UpdatedAt, _ = parseTime(updatedAt)
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

func (s *Store) fetchProgressLogs(ctx context.Context) ([]entry.ProgressLog, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, task_id, minutes, note, logged_at, created_at FROM progress_logs")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []entry.ProgressLog
	for rows.Next() {
		var l entry.ProgressLog
		var note sql.NullString
		var loggedAt, createdAt string
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Minutes, &note, &loggedAt, &createdAt); err != nil {
			return nil, err
		}
		l.Note = note.String
		l.LoggedAt, _ = parseTime(loggedAt)
		l.CreatedAt, _ = parseTime(createdAt)
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func (s *Store) fetchTransactions(ctx context.Context) ([]entry.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, amount, currency, category, memo, occurred_at, created_at FROM transactions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []entry.Transaction
	for rows.Next() {
		var tx entry.Transaction
		var category, memo sql.NullString
		var occurredAt, createdAt string
		if err := rows.Scan(&tx.ID, &tx.Amount, &tx.Currency, &category, &memo, &occurredAt, &createdAt); err != nil {
			return nil, err
		}
		tx.Category = category.String
		tx.Memo = memo.String
		tx.OccurredAt, _ = parseTime(occurredAt)
		tx.CreatedAt, _ = parseTime(createdAt)
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
