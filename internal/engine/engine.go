// Package engine defines the search-engine wire surface the rest of the
// system talks to, and provides a Bleve-backed implementation of it.
package engine

import "context"

// AliasBinding names one alias-to-index association.
type AliasBinding struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

// AliasAction is one step of an atomic alias update. Exactly one of Add or
// Remove is set.
type AliasAction struct {
	Add    *AliasBinding `json:"add,omitempty"`
	Remove *AliasBinding `json:"remove,omitempty"`
}

// BulkOp is one document operation inside a bulk request.
type BulkOp struct {
	// Action is "index", "update" or "delete".
	Action string

	// ID is the document id. Empty lets the engine assign one on index.
	ID string

	// Doc is the document body; nil for delete.
	Doc map[string]any
}

// BulkResult reports per-item outcomes of a bulk request.
type BulkResult struct {
	Indexed int
	Deleted int
	Errors  []error
}

// Health reports cluster availability.
type Health struct {
	// Status is "green", "yellow" or "red".
	Status string

	// Indices is the number of physical indices known to the engine.
	Indices int
}

// Engine is the synchronous request/response surface of the search engine.
// Request and response bodies are opaque maps in the engine's wire format;
// callers pass them through untouched.
type Engine interface {
	// Index stores a document. An empty id lets the engine assign one.
	Index(ctx context.Context, index, id string, doc map[string]any) error

	// Get retrieves a stored document, ErrNotFound if absent.
	Get(ctx context.Context, index, id string) (map[string]any, error)

	// Update applies a partial update with doc-as-upsert semantics: the
	// given fields are merged over the stored document, or the document is
	// created from them if absent.
	Update(ctx context.Context, index, id string, doc map[string]any) error

	// Delete removes a document, ErrNotFound if absent.
	Delete(ctx context.Context, index, id string) error

	// Search runs one query against an index or alias.
	Search(ctx context.Context, index string, body map[string]any) (map[string]any, error)

	// MSearch runs several queries against the same index.
	MSearch(ctx context.Context, index string, bodies []map[string]any) ([]map[string]any, error)

	// Bulk applies a batch of document operations.
	Bulk(ctx context.Context, index string, ops []BulkOp) (*BulkResult, error)

	// CreateIndex creates a physical index from a create payload
	// ({"settings": ..., "mappings": ...}).
	CreateIndex(ctx context.Context, index string, body map[string]any) error

	// IndexExists reports whether a physical index exists.
	IndexExists(ctx context.Context, index string) (bool, error)

	// DeleteIndex removes every physical index matching the name or
	// wildcard pattern and returns how many were deleted.
	DeleteIndex(ctx context.Context, pattern string) (int, error)

	// AliasExists reports whether an alias exists.
	AliasExists(ctx context.Context, name string) (bool, error)

	// GetAlias resolves an alias to its current target index,
	// ErrNotFound if the alias is not defined.
	GetAlias(ctx context.Context, name string) (string, error)

	// DeleteAlias removes one alias binding.
	DeleteAlias(ctx context.Context, name, index string) error

	// UpdateAliases applies a set of alias actions as one atomic change.
	UpdateAliases(ctx context.Context, actions []AliasAction) error

	// PutMapping updates an index's field mapping.
	PutMapping(ctx context.Context, index string, body map[string]any) error

	// PutTemplate registers an index template applied to indices created
	// later whose names match the template's pattern.
	PutTemplate(ctx context.Context, name string, body map[string]any) error

	// Health reports engine availability; ErrUnreachable when the engine
	// cannot be reached at all.
	Health(ctx context.Context) (*Health, error)
}
