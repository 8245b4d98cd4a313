package normalize

import (
	"fmt"
	"log/slog"

	"github.com/indexsync/indexsync/internal/schema"
)

// Pipeline turns records into documents and declares the matching mapping.
// Normalizer ids are resolved once at construction; Normalize performs no
// registry lookups.
type Pipeline struct {
	fields  []boundField
	content []ContentNormalizer
	logger  *slog.Logger
}

// boundField pairs a field config with its resolved normalizer.
type boundField struct {
	cfg        FieldConfig
	normalizer FieldNormalizer
}

// NewPipeline resolves the configured normalizers against the registry.
// Content normalizers run in the given order after all field normalizers.
func NewPipeline(registry *Registry, contentIDs []string, fields []FieldConfig, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{logger: logger}
	for _, cfg := range fields {
		n, err := registry.Field(cfg.Normalizer)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", cfg.Field, err)
		}
		p.fields = append(p.fields, boundField{cfg: cfg, normalizer: n})
	}
	for _, id := range contentIDs {
		n, err := registry.Content(id)
		if err != nil {
			return nil, err
		}
		p.content = append(p.content, n)
	}
	return p, nil
}

// Normalize produces the document for one record variant. A failing field
// normalizer drops that field and the document is still produced; a failing
// content normalizer aborts the record.
func (p *Pipeline) Normalize(rec *Record, ctx Context) (map[string]any, error) {
	doc := make(map[string]any)

	for _, bf := range p.fields {
		fragment, ok := p.normalizeField(rec, bf)
		if ok {
			doc[bf.cfg.Key()] = fragment
		}
	}

	for _, cn := range p.content {
		if err := cn.NormalizeContent(rec, doc, ctx); err != nil {
			return nil, fmt.Errorf("content normalizer %q on record %s/%s: %w", cn.ID(), rec.Type, rec.ID, err)
		}
	}

	return doc, nil
}

// normalizeField applies the cardinality rule: a max cardinality of exactly 1
// yields a single scalar, anything else a list that skips empty strings.
// Errors are logged with the record id and the field is omitted.
func (p *Pipeline) normalizeField(rec *Record, bf boundField) (any, bool) {
	values := rec.FieldValues(bf.cfg.Field)

	if bf.cfg.MaxCardinality == 1 {
		var raw any
		if len(values) > 0 {
			raw = values[0]
		}
		out, err := bf.normalizer.NormalizeValue(raw, bf.cfg)
		if err != nil {
			p.logger.Warn("field normalization failed",
				"record_type", rec.Type, "record_id", rec.ID,
				"field", bf.cfg.Field, "normalizer", bf.normalizer.ID(), "error", err)
			return nil, false
		}
		return out, true
	}

	list := make([]any, 0, len(values))
	for _, raw := range values {
		out, err := bf.normalizer.NormalizeValue(raw, bf.cfg)
		if err != nil {
			p.logger.Warn("field normalization failed",
				"record_type", rec.Type, "record_id", rec.ID,
				"field", bf.cfg.Field, "normalizer", bf.normalizer.ID(), "error", err)
			return nil, false
		}
		if s, isString := out.(string); isString && s == "" {
			continue
		}
		list = append(list, out)
	}
	return list, true
}

// Properties merges every normalizer's property declarations into one tree.
// Content normalizers own the core keys and win on collision.
func (p *Pipeline) Properties() map[string]*PropertyDefinition {
	props := make(map[string]*PropertyDefinition)
	for _, bf := range p.fields {
		props[bf.cfg.Key()] = bf.normalizer.Property(bf.cfg)
	}
	for _, cn := range p.content {
		for name, prop := range cn.Properties() {
			props[name] = prop
		}
	}
	return props
}

// Mapping builds the mapping definition from the pipeline's property tree.
func (p *Pipeline) Mapping() (*schema.MappingDefinition, error) {
	return MappingFromProperties(p.Properties())
}
