package schema

import "sync"

// DataType describes a named field kind and its engine-level base definition.
// Instances are immutable and cached by name.
type DataType struct {
	name string
	base map[string]any
}

// Builtin data type names.
const (
	TypeText    = "text"
	TypeKeyword = "keyword"
	TypeInteger = "integer"
	TypeLong    = "long"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeDate    = "date"
	TypeObject  = "object"
	TypeNested  = "nested"
)

var (
	dataTypesMu sync.RWMutex
	dataTypes   = map[string]*DataType{
		TypeText:    {name: TypeText},
		TypeKeyword: {name: TypeKeyword},
		TypeInteger: {name: TypeInteger},
		TypeLong:    {name: TypeLong},
		TypeFloat:   {name: TypeFloat},
		TypeBoolean: {name: TypeBoolean},
		TypeDate:    {name: TypeDate, base: map[string]any{"format": "strict_date_optional_time||epoch_millis"}},
		TypeObject:  {name: TypeObject},
		TypeNested:  {name: TypeNested},
	}
)

// LookupDataType returns the cached data type for name, or ErrInvalidDataType.
func LookupDataType(name string) (*DataType, error) {
	dataTypesMu.RLock()
	dt, ok := dataTypes[name]
	dataTypesMu.RUnlock()
	if !ok {
		return nil, invalidDataType(name)
	}
	return dt, nil
}

// RegisterDataType adds a data type definition to the cache. The base
// definition is merged under the field's options when the field serializes.
// Registering an existing name replaces it.
func RegisterDataType(name string, base map[string]any) {
	dataTypesMu.Lock()
	dataTypes[name] = &DataType{name: name, base: base}
	dataTypesMu.Unlock()
}

// Name returns the data type name as it appears in the wire format.
func (d *DataType) Name() string {
	return d.name
}

// Base returns a copy of the engine-level base definition, nil if none.
func (d *DataType) Base() map[string]any {
	if d.base == nil {
		return nil
	}
	out := make(map[string]any, len(d.base))
	for k, v := range d.base {
		out[k] = v
	}
	return out
}
