package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func newTestEngine(t *testing.T) *Bleve {
	t.Helper()
	b, err := NewBleve(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewBleve failed: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return b
}

func articleMappings() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":    map[string]any{"type": "keyword"},
				"label": map[string]any{"type": "text"},
				"views": map[string]any{"type": "integer"},
			},
		},
	}
}

func TestBleve_IndexAndGet(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	if err := b.CreateIndex(ctx, "content", articleMappings()); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := b.Index(ctx, "content", "1", map[string]any{"id": "1", "label": "hello world"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	doc, err := b.Get(ctx, "content", "1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["label"] != "hello world" {
		t.Errorf("label = %v", doc["label"])
	}

	if _, err := b.Get(ctx, "content", "missing"); !IsNotFound(err) {
		t.Errorf("Get missing doc: err = %v, want ErrNotFound", err)
	}
}

func TestBleve_AutoAssignedID(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	if err := b.Index(ctx, "content", "", map[string]any{"label": "anonymous"}); err != nil {
		t.Fatalf("Index failed: %v", err)
	}
	res, err := b.Search(ctx, "content", map[string]any{"query": "anonymous"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	hits := res["hits"].(map[string]any)["hits"].([]any)
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].(map[string]any)["_id"] == "" {
		t.Error("engine must assign an id when none is given")
	}
}

func TestBleve_UpdateDocAsUpsert(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	// Update on a missing document creates it.
	if err := b.Update(ctx, "content", "9", map[string]any{"label": "draft"}); err != nil {
		t.Fatalf("Update (upsert) failed: %v", err)
	}
	// A later partial update merges over the stored fields.
	if err := b.Update(ctx, "content", "9", map[string]any{"status": "published"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	doc, err := b.Get(ctx, "content", "9")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["label"] != "draft" || doc["status"] != "published" {
		t.Errorf("doc = %v, want merged fields", doc)
	}
}

func TestBleve_DeleteMissingIsNotFound(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	if err := b.CreateIndex(ctx, "content", nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := b.Delete(ctx, "content", "nope"); !IsNotFound(err) {
		t.Errorf("Delete missing doc: err = %v, want ErrNotFound", err)
	}
	if err := b.Delete(ctx, "ghost-index", "1"); !IsNotFound(err) {
		t.Errorf("Delete on missing index: err = %v, want ErrNotFound", err)
	}
}

func TestBleve_Bulk(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	res, err := b.Bulk(ctx, "content", []BulkOp{
		{Action: "index", ID: "1", Doc: map[string]any{"label": "one"}},
		{Action: "index", ID: "2", Doc: map[string]any{"label": "two"}},
		{Action: "delete", ID: "1"},
	})
	if err != nil {
		t.Fatalf("Bulk failed: %v", err)
	}
	if res.Indexed != 2 || res.Deleted != 1 || len(res.Errors) != 0 {
		t.Errorf("Bulk result = %+v", res)
	}
}

func TestBleve_DeleteIndexPattern(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	for _, name := range []string{"content-en", "content-fr", "users"} {
		if err := b.CreateIndex(ctx, name, nil); err != nil {
			t.Fatalf("CreateIndex %q failed: %v", name, err)
		}
	}

	n, err := b.DeleteIndex(ctx, "content-*")
	if err != nil {
		t.Fatalf("DeleteIndex failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	exists, err := b.IndexExists(ctx, "users")
	if err != nil || !exists {
		t.Errorf("users index must survive: exists=%v err=%v", exists, err)
	}

	// Deleting a missing concrete index is benign.
	n, err = b.DeleteIndex(ctx, "content-en")
	if err != nil || n != 0 {
		t.Errorf("DeleteIndex on missing index = %d, %v, want 0, nil", n, err)
	}
}

func TestBleve_Aliases(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	if err := b.CreateIndex(ctx, "articles_version_1", nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	// Adding an alias to a missing index must fail.
	err := b.UpdateAliases(ctx, []AliasAction{{Add: &AliasBinding{Alias: "articles", Index: "articles_version_9"}}})
	if !IsNotFound(err) {
		t.Fatalf("UpdateAliases to missing index: err = %v, want ErrNotFound", err)
	}

	if err := b.UpdateAliases(ctx, []AliasAction{{Add: &AliasBinding{Alias: "articles", Index: "articles_version_1"}}}); err != nil {
		t.Fatalf("UpdateAliases failed: %v", err)
	}

	exists, _ := b.AliasExists(ctx, "articles")
	if !exists {
		t.Error("alias must exist after UpdateAliases")
	}
	target, err := b.GetAlias(ctx, "articles")
	if err != nil || target != "articles_version_1" {
		t.Errorf("GetAlias = %q, %v", target, err)
	}

	// Documents indexed through the alias land in the target index.
	if err := b.Index(ctx, "articles", "1", map[string]any{"label": "aliased"}); err != nil {
		t.Fatalf("Index via alias failed: %v", err)
	}
	if _, err := b.Get(ctx, "articles_version_1", "1"); err != nil {
		t.Errorf("document must be readable via the physical index: %v", err)
	}

	if err := b.DeleteAlias(ctx, "articles", "articles_version_1"); err != nil {
		t.Fatalf("DeleteAlias failed: %v", err)
	}
	if _, err := b.GetAlias(ctx, "articles"); !IsNotFound(err) {
		t.Errorf("GetAlias after delete: err = %v, want ErrNotFound", err)
	}
}

func TestBleve_AliasSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	b, err := NewBleve(dir, logger)
	if err != nil {
		t.Fatalf("NewBleve failed: %v", err)
	}
	if err := b.CreateIndex(ctx, "articles_version_1", nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := b.UpdateAliases(ctx, []AliasAction{{Add: &AliasBinding{Alias: "articles", Index: "articles_version_1"}}}); err != nil {
		t.Fatalf("UpdateAliases failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b2, err := NewBleve(dir, logger)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() {
		if err := b2.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()
	target, err := b2.GetAlias(ctx, "articles")
	if err != nil || target != "articles_version_1" {
		t.Errorf("alias after reopen = %q, %v", target, err)
	}
}

func TestBleve_PutTemplateAppliesOnCreate(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	err := b.PutTemplate(ctx, "content", map[string]any{
		"index_patterns": []any{"content-*"},
		"mappings": map[string]any{
			"properties": map[string]any{
				"label": map[string]any{"type": "text"},
			},
		},
	})
	if err != nil {
		t.Fatalf("PutTemplate failed: %v", err)
	}

	if err := b.CreateIndex(ctx, "content-en", nil); err != nil {
		t.Fatalf("CreateIndex with template failed: %v", err)
	}
}

func TestBleve_PutMapping(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	if err := b.PutMapping(ctx, "nowhere", map[string]any{}); !IsNotFound(err) {
		t.Errorf("PutMapping on missing index: err = %v, want ErrNotFound", err)
	}

	if err := b.CreateIndex(ctx, "content", nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	err := b.PutMapping(ctx, "content", map[string]any{
		"properties": map[string]any{
			"views": map[string]any{"type": "integer"},
		},
	})
	if err != nil {
		t.Fatalf("PutMapping failed: %v", err)
	}

	err = b.PutMapping(ctx, "content", map[string]any{
		"properties": map[string]any{
			"views": map[string]any{"type": "galactic"},
		},
	})
	if err == nil {
		t.Error("PutMapping with unknown data type must fail")
	}
}

func TestBleve_Health(t *testing.T) {
	b := newTestEngine(t)

	h, err := b.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if h.Status != "green" {
		t.Errorf("status = %q", h.Status)
	}
}

func TestBleve_CreateIndexTwice(t *testing.T) {
	b := newTestEngine(t)
	ctx := context.Background()

	if err := b.CreateIndex(ctx, "content", nil); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := b.CreateIndex(ctx, "content", nil); err == nil {
		t.Error("creating an existing index must fail")
	}
}
