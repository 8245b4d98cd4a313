package version

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/indexsync/indexsync/internal/engine/enginetest"
	"github.com/indexsync/indexsync/internal/executor"
	"github.com/indexsync/indexsync/internal/storage"
)

func newTestManager(t *testing.T) (*Manager, *enginetest.Fake) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("open db failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db failed: %v", err)
		}
	})

	fake := enginetest.New()
	m, err := NewManager(db, executor.New(fake), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m, fake
}

func TestManager_VersionCounter(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	v, err := m.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if v != "" {
		t.Errorf("initial version = %q, want empty", v)
	}

	v, err = m.IncrementVersion(ctx)
	if err != nil || v != "_version_1" {
		t.Errorf("IncrementVersion = %q, %v, want _version_1", v, err)
	}
	v, err = m.IncrementVersion(ctx)
	if err != nil || v != "_version_2" {
		t.Errorf("IncrementVersion = %q, %v, want _version_2", v, err)
	}

	v, err = m.CurrentVersion(ctx)
	if err != nil || v != "_version_2" {
		t.Errorf("CurrentVersion = %q, %v", v, err)
	}
}

func TestManager_UpdateAlias_DestinationMissing(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	err := m.UpdateAlias(ctx, "articles", "_version_2")
	if !errors.Is(err, ErrDestinationMissing) {
		t.Fatalf("err = %v, want ErrDestinationMissing", err)
	}
	if calls := fake.CallsFor("update-aliases"); len(calls) != 0 {
		t.Error("a failed precondition must not reach the alias update")
	}
}

func TestManager_UpdateAlias_BindsDestination(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	if err := fake.CreateIndex(ctx, "articles_version_1", nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := m.UpdateAlias(ctx, "articles", "_version_1"); err != nil {
		t.Fatalf("UpdateAlias failed: %v", err)
	}
	if target := fake.AliasTarget("articles"); target != "articles_version_1" {
		t.Errorf("alias target = %q", target)
	}
}

func TestManager_UpdateAlias_RepointsExistingAlias(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	for _, name := range []string{"articles_version_1", "articles_version_2"} {
		if err := fake.CreateIndex(ctx, name, nil); err != nil {
			t.Fatalf("CreateIndex failed: %v", err)
		}
	}
	if err := m.UpdateAlias(ctx, "articles", "_version_1"); err != nil {
		t.Fatalf("UpdateAlias failed: %v", err)
	}
	if err := m.UpdateAlias(ctx, "articles", "_version_2"); err != nil {
		t.Fatalf("UpdateAlias failed: %v", err)
	}
	if target := fake.AliasTarget("articles"); target != "articles_version_2" {
		t.Errorf("alias target = %q, want articles_version_2", target)
	}
}

func TestManager_UpdateAlias_SameTargetIsNoop(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	if err := fake.CreateIndex(ctx, "articles_version_1", nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := m.UpdateAlias(ctx, "articles", "_version_1"); err != nil {
		t.Fatalf("UpdateAlias failed: %v", err)
	}
	before := len(fake.CallsFor("update-aliases"))

	if err := m.UpdateAlias(ctx, "articles", "_version_1"); err != nil {
		t.Fatalf("repeat UpdateAlias failed: %v", err)
	}
	if after := len(fake.CallsFor("update-aliases")); after != before {
		t.Error("re-binding the current target must not issue another alias update")
	}
}

func TestManager_UpdateAlias_DeletesLegacyConcreteIndex(t *testing.T) {
	m, fake := newTestManager(t)
	ctx := context.Background()

	// Legacy state: an unversioned concrete index occupies the alias name.
	for _, name := range []string{"articles", "articles_version_1"} {
		if err := fake.CreateIndex(ctx, name, nil); err != nil {
			t.Fatalf("CreateIndex failed: %v", err)
		}
	}

	if err := m.UpdateAlias(ctx, "articles", "_version_1"); err != nil {
		t.Fatalf("UpdateAlias failed: %v", err)
	}
	if target := fake.AliasTarget("articles"); target != "articles_version_1" {
		t.Errorf("alias target = %q", target)
	}
	exists, _ := fake.IndexExists(ctx, "articles")
	if exists {
		t.Error("the legacy concrete index must have been deleted")
	}
}
