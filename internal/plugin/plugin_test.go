package plugin

import (
	"io"
	"log/slog"
	"testing"

	"github.com/indexsync/indexsync/internal/normalize"
)

func testPlugin(t *testing.T, cfg Config) *ContentPlugin {
	t.Helper()
	p, err := NewContentPlugin(cfg, normalize.DefaultRegistry(nil), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewContentPlugin failed: %v", err)
	}
	return p
}

func TestContentPlugin_Matches(t *testing.T) {
	p := testPlugin(t, Config{
		ID:          "content",
		IndexName:   "content",
		RecordTypes: []string{"node"},
		Bundles:     []string{"article", "page"},
	})

	for _, tc := range []struct {
		recordType, bundle string
		want               bool
	}{
		{"node", "article", true},
		{"node", "page", true},
		{"node", "event", false},
		{"comment", "article", false},
	} {
		if got := p.Matches(tc.recordType, tc.bundle); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.recordType, tc.bundle, got, tc.want)
		}
	}
}

func TestContentPlugin_EmptyBundlesMatchAll(t *testing.T) {
	p := testPlugin(t, Config{ID: "content", IndexName: "content", RecordTypes: []string{"node"}})
	if !p.Matches("node", "anything") {
		t.Error("empty bundle list must match every bundle")
	}
}

func TestContentPlugin_IndexDefinition(t *testing.T) {
	p := testPlugin(t, Config{
		ID:          "content",
		IndexName:   "content",
		RecordTypes: []string{"node"},
		Shards:      2,
		Fields: []normalize.FieldConfig{
			{Field: "body", Normalizer: "text", MaxCardinality: 1},
		},
	})

	def, err := p.IndexDefinition()
	if err != nil {
		t.Fatalf("IndexDefinition failed: %v", err)
	}
	m := def.ToMap()
	settings := m["settings"].(map[string]any)
	if settings["number_of_shards"] != 2 {
		t.Errorf("shards = %v", settings["number_of_shards"])
	}
	props := m["mappings"].(map[string]any)["properties"].(map[string]any)
	if _, ok := props["body"]; !ok {
		t.Error("mapping must contain the configured field")
	}
	if _, ok := props["id"]; !ok {
		t.Error("mapping must contain the core fields")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	p := testPlugin(t, Config{ID: "content", IndexName: "content", RecordTypes: []string{"node"}})

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(p); err == nil {
		t.Error("duplicate registration must fail")
	}

	got, err := r.Get("content")
	if err != nil || got.ID() != "content" {
		t.Errorf("Get = %v, %v", got, err)
	}
	if _, err := r.Get("ghost"); err == nil {
		t.Error("unknown id must fail")
	}

	matching := r.Matching("node", "article")
	if len(matching) != 1 {
		t.Errorf("Matching = %d plugins, want 1", len(matching))
	}
}
