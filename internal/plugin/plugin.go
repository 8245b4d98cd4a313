// Package plugin defines the index plugin surface and its registry. Plugins
// are resolved by string id once at startup; nothing looks ids up at request
// time.
package plugin

import (
	"fmt"
	"sort"

	"github.com/indexsync/indexsync/internal/normalize"
	"github.com/indexsync/indexsync/internal/schema"
)

// IndexPlugin describes one configured index: which records it serves, the
// physical index name template, and the pipeline producing its documents.
type IndexPlugin interface {
	// ID is the registry identifier.
	ID() string

	// IndexTemplate is the physical index name template, possibly with
	// {placeholder} tokens ({langcode}, {version}).
	IndexTemplate() string

	// RecordTypes lists the record types this plugin indexes.
	RecordTypes() []string

	// Matches reports whether the plugin indexes records of the given type
	// and bundle. An empty configured bundle list matches every bundle.
	Matches(recordType, bundle string) bool

	// Deferred reports whether record changes are queued in the reindex
	// backlog instead of indexed synchronously.
	Deferred() bool

	// Pipeline is the normalization pipeline for this plugin's documents.
	Pipeline() *normalize.Pipeline

	// IndexDefinition builds the create-index payload from the pipeline's
	// property declarations and the plugin's settings.
	IndexDefinition() (*schema.IndexDefinition, error)
}

// Registry maps plugin ids to instances.
type Registry struct {
	plugins map[string]IndexPlugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]IndexPlugin)}
}

// Register adds a plugin, failing on duplicate ids.
func (r *Registry) Register(p IndexPlugin) error {
	if _, ok := r.plugins[p.ID()]; ok {
		return fmt.Errorf("duplicate index plugin id %q", p.ID())
	}
	r.plugins[p.ID()] = p
	return nil
}

// Get resolves a plugin id.
func (r *Registry) Get(id string) (IndexPlugin, error) {
	p, ok := r.plugins[id]
	if !ok {
		return nil, fmt.Errorf("unknown index plugin %q", id)
	}
	return p, nil
}

// All returns every registered plugin sorted by id.
func (r *Registry) All() []IndexPlugin {
	out := make([]IndexPlugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Matching returns every plugin serving the given record type and bundle.
func (r *Registry) Matching(recordType, bundle string) []IndexPlugin {
	var out []IndexPlugin
	for _, p := range r.All() {
		if p.Matches(recordType, bundle) {
			out = append(out, p)
		}
	}
	return out
}
