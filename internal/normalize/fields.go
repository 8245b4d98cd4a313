package normalize

import (
	"fmt"
	"strconv"
	"time"

	"github.com/indexsync/indexsync/internal/schema"
)

// Options understood by the builtin field normalizers.
const (
	// OptionAnalyzer selects the analyzer for text fields.
	OptionAnalyzer = "analyzer"

	// OptionRaw adds a keyword multi-field named "keyword" for exact
	// matching on text fields.
	OptionRaw = "raw"

	// OptionFormat overrides the date output layout.
	OptionFormat = "format"
)

// TextNormalizer indexes a field as analyzed full text, optionally with a
// keyword sibling sub-field.
type TextNormalizer struct{}

func (n *TextNormalizer) ID() string { return "text" }

func (n *TextNormalizer) NormalizeValue(value any, cfg FieldConfig) (any, error) {
	return stringify(value)
}

func (n *TextNormalizer) Property(cfg FieldConfig) *PropertyDefinition {
	opts := map[string]any{}
	if analyzer, ok := cfg.Options[OptionAnalyzer].(string); ok && analyzer != "" {
		opts[OptionAnalyzer] = analyzer
	}
	p := NewProperty(schema.TypeText, opts)
	if raw, ok := cfg.Options[OptionRaw].(bool); ok && raw {
		p.WithField("keyword", NewProperty(schema.TypeKeyword, map[string]any{"ignore_above": 256}))
	}
	return p
}

// KeywordNormalizer indexes a field verbatim for exact matching and
// aggregation.
type KeywordNormalizer struct{}

func (n *KeywordNormalizer) ID() string { return "keyword" }

func (n *KeywordNormalizer) NormalizeValue(value any, cfg FieldConfig) (any, error) {
	return stringify(value)
}

func (n *KeywordNormalizer) Property(cfg FieldConfig) *PropertyDefinition {
	return NewProperty(schema.TypeKeyword, nil)
}

// IntegerNormalizer indexes a numeric field.
type IntegerNormalizer struct{}

func (n *IntegerNormalizer) ID() string { return "integer" }

func (n *IntegerNormalizer) NormalizeValue(value any, cfg FieldConfig) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", cfg.Field, err)
		}
		return i, nil
	default:
		return nil, fmt.Errorf("field %q: cannot normalize %T as integer", cfg.Field, value)
	}
}

func (n *IntegerNormalizer) Property(cfg FieldConfig) *PropertyDefinition {
	return NewProperty(schema.TypeInteger, nil)
}

// BooleanNormalizer indexes a boolean field, accepting the usual string and
// numeric spellings.
type BooleanNormalizer struct{}

func (n *BooleanNormalizer) ID() string { return "boolean" }

func (n *BooleanNormalizer) NormalizeValue(value any, cfg FieldConfig) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", cfg.Field, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("field %q: cannot normalize %T as boolean", cfg.Field, value)
	}
}

func (n *BooleanNormalizer) Property(cfg FieldConfig) *PropertyDefinition {
	return NewProperty(schema.TypeBoolean, nil)
}

// DateNormalizer indexes a timestamp. time.Time values and epoch seconds are
// formatted with the configured layout, RFC 3339 by default; strings pass
// through untouched.
type DateNormalizer struct{}

func (n *DateNormalizer) ID() string { return "date" }

func (n *DateNormalizer) NormalizeValue(value any, cfg FieldConfig) (any, error) {
	layout := time.RFC3339
	if f, ok := cfg.Options[OptionFormat].(string); ok && f != "" {
		layout = f
	}
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(layout), nil
	case int64:
		return time.Unix(v, 0).UTC().Format(layout), nil
	case int:
		return time.Unix(int64(v), 0).UTC().Format(layout), nil
	case string:
		return v, nil
	default:
		return nil, fmt.Errorf("field %q: cannot normalize %T as date", cfg.Field, value)
	}
}

func (n *DateNormalizer) Property(cfg FieldConfig) *PropertyDefinition {
	return NewProperty(schema.TypeDate, nil)
}

// ObjectNormalizer passes structured values through unchanged.
type ObjectNormalizer struct{}

func (n *ObjectNormalizer) ID() string { return "object" }

func (n *ObjectNormalizer) NormalizeValue(value any, cfg FieldConfig) (any, error) {
	switch value.(type) {
	case map[string]any, nil:
		return value, nil
	default:
		return nil, fmt.Errorf("field %q: cannot normalize %T as object", cfg.Field, value)
	}
}

func (n *ObjectNormalizer) Property(cfg FieldConfig) *PropertyDefinition {
	return NewProperty(schema.TypeObject, nil)
}

// stringify converts scalar raw values to strings for text-like normalizers.
func stringify(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int32, int64, float32, float64, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		return nil, fmt.Errorf("cannot normalize %T as string", value)
	}
}
