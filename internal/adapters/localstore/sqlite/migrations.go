package sqlite

import (
	"database/sql"
	"fmt"
)

// applyMigrations applies all database migrations in order.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("could not enable foreign keys: %w", err)
	}

	if err := createMigrationsTable(db); err != nil {
		return err
	}

	migrations := []struct {
		version int
		name    string
		sql     string
	}{
		{1, "create_projects_table", createProjectsTable},
		{2, "create_tasks_table", createTasksTable},
		{3, "create_progress_logs_table", createProgressLogsTable},
		{4, "create_transactions_table", createTransactionsTable},
		{5, "create_applied_events_table", createAppliedEventsTable},
		{6, "create_indices", createIndices},
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.version)
		if err != nil {
			return fmt.Errorf("could not check migration %d: %w", m.version, err)
		}

		if applied {
			continue
		}

		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("could not apply migration %d (%s): %w", m.version, m.name, err)
		}

		if err := recordMigration(db, m.version, m.name); err != nil {
			return fmt.Errorf("could not record migration %d: %w", m.version, err)
		}
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table.
func createMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// isMigrationApplied checks if a migration has been applied.
func isMigrationApplied(db *sql.DB, version int) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// recordMigration records that a migration has been applied.
func recordMigration(db *sql.DB, version int, name string) error {
	_, err := db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// Migration SQL statements

const createProjectsTable = `
CREATE TABLE projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	color TEXT,
	archived BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

const createTasksTable = `
CREATE TABLE tasks (
	id TEXT PRIMARY KEY,
	project_id TEXT,
	title TEXT NOT NULL,
	notes TEXT,
	done BOOLEAN NOT NULL DEFAULT 0,
	due_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

const createProgressLogsTable = `
CREATE TABLE progress_logs (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL,
	minutes INTEGER NOT NULL DEFAULT 0,
	note TEXT,
	logged_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

const createTransactionsTable = `
CREATE TABLE transactions (
	id TEXT PRIMARY KEY,
	amount INTEGER NOT NULL,
	currency TEXT NOT NULL,
	category TEXT,
	memo TEXT,
	occurred_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// The idempotency ledger. Rows are never pruned: the presence of an
// event_id is the proof that its domain effect has been committed.
const createAppliedEventsTable = `
CREATE TABLE applied_events (
	event_id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL,
	source TEXT NOT NULL
);
`

const createIndices = `
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_done ON tasks(done);
CREATE INDEX IF NOT EXISTS idx_progress_logs_task ON progress_logs(task_id);
CREATE INDEX IF NOT EXISTS idx_progress_logs_logged ON progress_logs(logged_at);
CREATE INDEX IF NOT EXISTS idx_transactions_occurred ON transactions(occurred_at);
CREATE INDEX IF NOT EXISTS idx_applied_events_applied ON applied_events(applied_at);
`
