package normalize

import (
	"github.com/indexsync/indexsync/internal/schema"
)

// PropertyDefinition is the normalizer-side mirror of schema.FieldDefinition.
// Each normalizer declares one per output key so the mapping and the document
// shape are generated from the same declarations. Like its schema
// counterpart it holds sub-properties or multi-fields, never both.
type PropertyDefinition struct {
	Type       string
	Options    map[string]any
	Properties map[string]*PropertyDefinition
	Fields     map[string]*PropertyDefinition
}

// NewProperty declares a property of the given data type.
func NewProperty(dataType string, options map[string]any) *PropertyDefinition {
	return &PropertyDefinition{Type: dataType, Options: options}
}

// WithField attaches a multi-field declaration and returns the receiver.
func (p *PropertyDefinition) WithField(name string, field *PropertyDefinition) *PropertyDefinition {
	if p.Fields == nil {
		p.Fields = make(map[string]*PropertyDefinition)
	}
	p.Fields[name] = field
	return p
}

// WithProperty attaches a sub-property declaration and returns the receiver.
func (p *PropertyDefinition) WithProperty(name string, prop *PropertyDefinition) *PropertyDefinition {
	if p.Properties == nil {
		p.Properties = make(map[string]*PropertyDefinition)
	}
	p.Properties[name] = prop
	return p
}

// FieldDefinition converts the property tree into a schema field definition.
// Structural conflicts and unknown types surface as schema errors.
func (p *PropertyDefinition) FieldDefinition() (*schema.FieldDefinition, error) {
	f, err := schema.NewField(p.Type, p.Options)
	if err != nil {
		return nil, err
	}
	for name, sub := range p.Properties {
		sf, err := sub.FieldDefinition()
		if err != nil {
			return nil, err
		}
		if err := f.AddProperty(name, sf); err != nil {
			return nil, err
		}
	}
	for name, sub := range p.Fields {
		sf, err := sub.FieldDefinition()
		if err != nil {
			return nil, err
		}
		if err := f.AddMultiField(name, sf); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// MappingFromProperties walks a set of property declarations into a mapping
// definition ready for index creation.
func MappingFromProperties(props map[string]*PropertyDefinition) (*schema.MappingDefinition, error) {
	mapping := schema.NewMapping()
	for name, p := range props {
		f, err := p.FieldDefinition()
		if err != nil {
			return nil, err
		}
		mapping.SetField(name, f)
	}
	return mapping, nil
}
