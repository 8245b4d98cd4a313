package normalize

import (
	"fmt"
	"sort"
)

// FieldConfig selects and parameterizes the field normalizer for one declared
// record field. Owned by the host application's configuration entity; the
// pipeline consumes it read-only.
type FieldConfig struct {
	// Field is the source field name on the record.
	Field string `mapstructure:"field"`

	// Normalizer is the registered field normalizer id.
	Normalizer string `mapstructure:"normalizer"`

	// OutputKey is the document key the normalized fragment lands under.
	// Defaults to Field when empty.
	OutputKey string `mapstructure:"output_key"`

	// MaxCardinality caps the number of values. Exactly 1 means the
	// fragment is a single scalar; any other value means a list.
	MaxCardinality int `mapstructure:"max_cardinality"`

	// Options carries normalizer-specific configuration.
	Options map[string]any `mapstructure:"options"`
}

// Key returns the document key this config writes to.
func (c FieldConfig) Key() string {
	if c.OutputKey != "" {
		return c.OutputKey
	}
	return c.Field
}

// FieldNormalizer converts one raw field value into a document fragment and
// declares the matching property definition. Implementations must be
// stateless; one instance serves all records.
type FieldNormalizer interface {
	// ID is the registry identifier.
	ID() string

	// NormalizeValue converts a single raw value. Returning an empty string
	// drops the value in list mode.
	NormalizeValue(value any, cfg FieldConfig) (any, error)

	// Property declares the shape of NormalizeValue's output.
	Property(cfg FieldConfig) *PropertyDefinition
}

// ContentNormalizer operates on the whole record after all field normalizers
// ran, adding cross-field or core identity fields to the document.
type ContentNormalizer interface {
	// ID is the registry identifier.
	ID() string

	// NormalizeContent mutates doc in place. An error aborts document
	// production for the record.
	NormalizeContent(rec *Record, doc map[string]any, ctx Context) error

	// Properties declares every key NormalizeContent may add.
	Properties() map[string]*PropertyDefinition
}

// Registry resolves normalizer ids into instances. It is populated once at
// startup; lookups after that are read-only.
type Registry struct {
	fields  map[string]FieldNormalizer
	content map[string]ContentNormalizer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fields:  make(map[string]FieldNormalizer),
		content: make(map[string]ContentNormalizer),
	}
}

// DefaultRegistry returns a registry with every builtin normalizer
// registered. Renderer may be nil when rendered-content indexing is unused.
func DefaultRegistry(renderer Renderer) *Registry {
	r := NewRegistry()
	r.RegisterField(&TextNormalizer{})
	r.RegisterField(&KeywordNormalizer{})
	r.RegisterField(&IntegerNormalizer{})
	r.RegisterField(&BooleanNormalizer{})
	r.RegisterField(&DateNormalizer{})
	r.RegisterField(&ObjectNormalizer{})
	r.RegisterContent(&CoreFieldsNormalizer{})
	if renderer != nil {
		r.RegisterContent(&RenderedContentNormalizer{Renderer: renderer})
	}
	return r
}

// RegisterField adds a field normalizer, replacing any previous registration
// under the same id.
func (r *Registry) RegisterField(n FieldNormalizer) {
	r.fields[n.ID()] = n
}

// RegisterContent adds a content normalizer.
func (r *Registry) RegisterContent(n ContentNormalizer) {
	r.content[n.ID()] = n
}

// Field resolves a field normalizer id.
func (r *Registry) Field(id string) (FieldNormalizer, error) {
	n, ok := r.fields[id]
	if !ok {
		return nil, fmt.Errorf("unknown field normalizer %q", id)
	}
	return n, nil
}

// Content resolves a content normalizer id.
func (r *Registry) Content(id string) (ContentNormalizer, error) {
	n, ok := r.content[id]
	if !ok {
		return nil, fmt.Errorf("unknown content normalizer %q", id)
	}
	return n, nil
}

// FieldIDs returns the registered field normalizer ids, sorted.
func (r *Registry) FieldIDs() []string {
	ids := make([]string, 0, len(r.fields))
	for id := range r.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
