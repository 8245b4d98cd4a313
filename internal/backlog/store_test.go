package backlog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/indexsync/indexsync/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	t.Cleanup(func() { closeDB(t, db) })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func closeDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Errorf("close db failed: %v", err)
	}
}

func TestStore_EnqueueIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Enqueue(ctx, "content", "node", "7"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := store.Enqueue(ctx, "content", "node", "7"); err != nil {
		t.Fatalf("duplicate Enqueue failed: %v", err)
	}

	st, err := store.QueueStatus(ctx, "content")
	if err != nil {
		t.Fatalf("QueueStatus failed: %v", err)
	}
	if st.Total != 1 {
		t.Errorf("total = %d, want 1", st.Total)
	}
}

func TestStore_DrainReturnsPendingInOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := store.Enqueue(ctx, "content", "node", id); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	// A different plugin's items stay out of this drain.
	if err := store.Enqueue(ctx, "users", "user", "1"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	items, err := store.Drain(ctx, "content")
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("drained %d items, want 3", len(items))
	}
	for i, want := range []string{"1", "2", "3"} {
		if items[i].EntityID != want {
			t.Errorf("items[%d].EntityID = %q, want %q", i, items[i].EntityID, want)
		}
	}
}

func TestStore_MarkAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := store.Enqueue(ctx, "content", "node", id); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	items, err := store.Drain(ctx, "content")
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	if err := store.MarkProcessed(ctx, items[0].ID); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := store.MarkFailed(ctx, items[1].ID); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	st, err := store.QueueStatus(ctx, "content")
	if err != nil {
		t.Fatalf("QueueStatus failed: %v", err)
	}
	if st.Total != 3 || st.Processed != 1 || st.Errors != 1 {
		t.Errorf("status = %+v, want total 3, processed 1, errors 1", st)
	}

	// Marked items no longer drain.
	remaining, err := store.Drain(ctx, "content")
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].EntityID != "3" {
		t.Errorf("remaining = %+v, want only item 3", remaining)
	}
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2"} {
		if err := store.Enqueue(ctx, "content", "node", id); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	n, err := store.Clear(ctx, "content")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared = %d, want 2", n)
	}

	st, err := store.QueueStatus(ctx, "content")
	if err != nil {
		t.Fatalf("QueueStatus failed: %v", err)
	}
	if st.Total != 0 {
		t.Errorf("total after clear = %d, want 0", st.Total)
	}
}

func TestStore_ReEnqueueAfterProcessedResets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Enqueue(ctx, "content", "node", "7"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	items, _ := store.Drain(ctx, "content")
	if err := store.MarkProcessed(ctx, items[0].ID); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	// The unique key still holds the processed row, so re-enqueueing the
	// same target is ignored rather than duplicated.
	if err := store.Enqueue(ctx, "content", "node", "7"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	st, _ := store.QueueStatus(ctx, "content")
	if st.Total != 1 {
		t.Errorf("total = %d, want 1", st.Total)
	}
}
