package schema

// Reserved wire-format keys managed by dedicated methods. Options passed by
// the caller may never contain them.
const (
	keyType       = "type"
	keyProperties = "properties"
	keyFields     = "fields"
)

// FieldDefinition describes one field of an index mapping: its data type,
// engine options, and either sub-properties (object fields) or multi-fields
// (alternate indexings of the same value), never both.
type FieldDefinition struct {
	dataType    *DataType
	options     map[string]any
	properties  map[string]*FieldDefinition
	multiFields map[string]*FieldDefinition
	metadata    map[string]any
}

// NewField creates a field of the named data type with the given options.
// The type name must be registered and options must not contain the reserved
// keys "type", "properties" or "fields".
func NewField(typeName string, options map[string]any) (*FieldDefinition, error) {
	dt, err := LookupDataType(typeName)
	if err != nil {
		return nil, err
	}
	for _, reserved := range []string{keyType, keyProperties, keyFields} {
		if _, ok := options[reserved]; ok {
			return nil, reservedOption(reserved)
		}
	}
	f := &FieldDefinition{dataType: dt}
	if len(options) > 0 {
		f.options = make(map[string]any, len(options))
		for k, v := range options {
			f.options[k] = v
		}
	}
	return f, nil
}

// MustField is NewField for statically known declarations; it panics on error.
func MustField(typeName string, options map[string]any) *FieldDefinition {
	f, err := NewField(typeName, options)
	if err != nil {
		panic(err)
	}
	return f
}

// Type returns the field's data type name.
func (f *FieldDefinition) Type() string {
	return f.dataType.Name()
}

// AddProperty attaches a named sub-field. It fails with ErrStructuralConflict
// if the field already holds multi-fields; the definition is left unchanged.
func (f *FieldDefinition) AddProperty(name string, field *FieldDefinition) error {
	if len(f.multiFields) > 0 {
		return ErrStructuralConflict
	}
	if f.properties == nil {
		f.properties = make(map[string]*FieldDefinition)
	}
	f.properties[name] = field
	return nil
}

// AddMultiField attaches a named alternate indexing of the same value. It
// fails with ErrStructuralConflict if the field already holds sub-properties.
func (f *FieldDefinition) AddMultiField(name string, field *FieldDefinition) error {
	if len(f.properties) > 0 {
		return ErrStructuralConflict
	}
	if f.multiFields == nil {
		f.multiFields = make(map[string]*FieldDefinition)
	}
	f.multiFields[name] = field
	return nil
}

// SetMetadata records an out-of-band annotation on the field. Metadata never
// appears in the wire format.
func (f *FieldDefinition) SetMetadata(key string, value any) {
	if f.metadata == nil {
		f.metadata = make(map[string]any)
	}
	f.metadata[key] = value
}

// Metadata returns the annotation stored under key, nil if absent.
func (f *FieldDefinition) Metadata(key string) any {
	return f.metadata[key]
}

// ToMap serializes the field to the engine wire format. The type and
// structural keys always win over the data type's base definition and the
// caller options, in that precedence order.
func (f *FieldDefinition) ToMap() map[string]any {
	out := make(map[string]any)
	for k, v := range f.dataType.Base() {
		out[k] = v
	}
	for k, v := range f.options {
		out[k] = v
	}
	out[keyType] = f.dataType.Name()
	if len(f.properties) > 0 {
		props := make(map[string]any, len(f.properties))
		for name, sub := range f.properties {
			props[name] = sub.ToMap()
		}
		out[keyProperties] = props
	}
	if len(f.multiFields) > 0 {
		fields := make(map[string]any, len(f.multiFields))
		for name, sub := range f.multiFields {
			fields[name] = sub.ToMap()
		}
		out[keyFields] = fields
	}
	return out
}
