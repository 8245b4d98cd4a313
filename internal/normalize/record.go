package normalize

import "time"

// Record is the pipeline-facing view of one domain record. The host
// application's storage layer produces it; the pipeline only reads it.
type Record struct {
	// Type is the record type (e.g. "node", "comment").
	Type string

	// Bundle is the optional sub-type within the record type.
	Bundle string

	// ID is the record's storage identifier.
	ID string

	// UUID is the record's universally unique identifier.
	UUID string

	// Label is the human-readable title.
	Label string

	// Created is the record's creation time.
	Created time.Time

	// Langcode identifies the language variant this Record represents.
	// Empty for language-neutral records.
	Langcode string

	// Fields maps declared field names to their raw values. A field always
	// holds a slice, even for single-valued fields; absent fields are
	// simply missing from the map.
	Fields map[string][]any
}

// FieldValues returns the raw values for a declared field, nil if absent.
func (r *Record) FieldValues(name string) []any {
	return r.Fields[name]
}

// Renderer converts a record into display output for normalizers that index
// rendered content. Provided by the host application's presentation layer.
type Renderer interface {
	// Render produces the record's display markup in the given view mode.
	Render(rec *Record, viewMode string) (string, error)
}

// Method names for normalization contexts.
const (
	MethodIndex  = "index"
	MethodGet    = "get"
	MethodUpsert = "upsert"
	MethodDelete = "delete"
	MethodBulk   = "bulk"
)

// Context carries per-invocation parameters through the pipeline.
type Context struct {
	// Method is the engine operation the document is being prepared for.
	Method string

	// Locale overrides the record's own langcode when set.
	Locale string
}
