package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jbctechsolutions/daybook/internal/domain/entry"
	domainErrors "github.com/jbctechsolutions/daybook/internal/domain/errors"
	dsync "github.com/jbctechsolutions/daybook/internal/domain/sync"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	if err := conn.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	db, err := conn.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(newTestDB(t), func() string { return "dev-test" })
}

func TestStore_Ledger(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("absent event", func(t *testing.T) {
		has, err := store.LedgerHas(ctx, "e1")
		if err != nil {
			t.Fatalf("LedgerHas() error = %v", err)
		}
		if has {
			t.Error("LedgerHas() = true on fresh ledger")
		}
	})

	t.Run("write then has", func(t *testing.T) {
		rec := dsync.AppliedEventRecord{
			EventID:   "e1",
			EventType: dsync.EventTaskCreated,
			AppliedAt: time.Now().UTC(),
			Source:    dsync.SourceDuplex,
		}
		if err := store.LedgerWrite(ctx, rec); err != nil {
			t.Fatalf("LedgerWrite() error = %v", err)
		}

		has, err := store.LedgerHas(ctx, "e1")
		if err != nil {
			t.Fatalf("LedgerHas() error = %v", err)
		}
		if !has {
			t.Error("LedgerHas() = false after write")
		}
	})

	t.Run("duplicate write conflicts", func(t *testing.T) {
		rec := dsync.AppliedEventRecord{
			EventID:   "e1",
			EventType: dsync.EventTaskCreated,
			AppliedAt: time.Now().UTC(),
			Source:    dsync.SourceDuplex,
		}
		err := store.LedgerWrite(ctx, rec)
		if err == nil {
			t.Fatal("second LedgerWrite() for same event should fail")
		}
		if !domainErrors.Is(err, domainErrors.ErrLedgerConflict) {
			t.Errorf("error = %v, want ErrLedgerConflict in chain", err)
		}
	})

	t.Run("empty event id rejected", func(t *testing.T) {
		err := store.LedgerWrite(ctx, dsync.AppliedEventRecord{})
		if err == nil {
			t.Error("LedgerWrite() should reject an empty event ID")
		}
	})
}

func TestStore_UpsertTask(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	task := entry.Task{
		ID:        "t1",
		Title:     "write report",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.UpsertTask(ctx, task); err != nil {
		t.Fatalf("UpsertTask() error = %v", err)
	}

	t.Run("last write wins", func(t *testing.T) {
		task.Title = "write final report"
		task.Done = true
		task.UpdatedAt = now.Add(time.Minute)
		if err := store.UpsertTask(ctx, task); err != nil {
			t.Fatalf("second UpsertTask() error = %v", err)
		}

		snap, err := store.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if len(snap.Tasks) != 1 {
			t.Fatalf("got %d tasks, want 1", len(snap.Tasks))
		}
		got := snap.Tasks[0]
		if got.Title != "write final report" {
			t.Errorf("Title = %q, want the later write's value", got.Title)
		}
		if !got.Done {
			t.Error("Done = false, want the later write's value")
		}
	})

	t.Run("missing id rejected", func(t *testing.T) {
		if err := store.UpsertTask(ctx, entry.Task{Title: "no id"}); err == nil {
			t.Error("UpsertTask() should reject a task without ID")
		}
	})
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	due := now.Add(48 * time.Hour)

	fixtures := []func() error{
		func() error {
			return store.UpsertProject(ctx, entry.Project{ID: "p1", Name: "home", CreatedAt: now, UpdatedAt: now})
		},
		func() error {
			return store.UpsertTask(ctx, entry.Task{ID: "t1", ProjectID: "p1", Title: "mow lawn", DueAt: &due, CreatedAt: now, UpdatedAt: now})
		},
		func() error {
			return store.UpsertProgressLog(ctx, entry.ProgressLog{ID: "l1", TaskID: "t1", Minutes: 30, LoggedAt: now, CreatedAt: now})
		},
		func() error {
			return store.UpsertTransaction(ctx, entry.Transaction{ID: "x1", Amount: -4250, Currency: "USD", Category: "garden", OccurredAt: now, CreatedAt: now})
		},
	}
	for _, fn := range fixtures {
		if err := fn(); err != nil {
			t.Fatalf("fixture error = %v", err)
		}
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if snap.DeviceID != "dev-test" {
		t.Errorf("DeviceID = %q, want dev-test", snap.DeviceID)
	}
	if len(snap.Projects) != 1 || len(snap.Tasks) != 1 || len(snap.ProgressLogs) != 1 || len(snap.Transactions) != 1 {
		t.Fatalf("snapshot counts = %d/%d/%d/%d, want 1 each",
			len(snap.Projects), len(snap.Tasks), len(snap.ProgressLogs), len(snap.Transactions))
	}

	task := snap.Tasks[0]
	if task.ProjectID != "p1" {
		t.Errorf("task.ProjectID = %q, want p1", task.ProjectID)
	}
	if task.DueAt == nil || !task.DueAt.Equal(due) {
		t.Errorf("task.DueAt = %v, want %v", task.DueAt, due)
	}
	if snap.Transactions[0].Amount != -4250 {
		t.Errorf("transaction amount = %d, want -4250", snap.Transactions[0].Amount)
	}
	if snap.Empty() {
		t.Error("Empty() = true for populated snapshot")
	}
}

func TestStore_SnapshotEmpty(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snap.Empty() {
		t.Error("Empty() = false for fresh store")
	}
}
