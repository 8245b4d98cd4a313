package schema

// MappingDefinition is a named set of field definitions, serializable to the
// engine's mapping wire format. Field order is irrelevant.
type MappingDefinition struct {
	fields map[string]*FieldDefinition
}

// NewMapping creates an empty mapping definition.
func NewMapping() *MappingDefinition {
	return &MappingDefinition{fields: make(map[string]*FieldDefinition)}
}

// SetField adds or replaces a top-level field.
func (m *MappingDefinition) SetField(name string, field *FieldDefinition) *MappingDefinition {
	m.fields[name] = field
	return m
}

// Field returns the named field definition, nil if absent.
func (m *MappingDefinition) Field(name string) *FieldDefinition {
	return m.fields[name]
}

// Len returns the number of top-level fields.
func (m *MappingDefinition) Len() int {
	return len(m.fields)
}

// ToMap serializes the mapping to the engine wire format:
// {"properties": {name: field, ...}}.
func (m *MappingDefinition) ToMap() map[string]any {
	props := make(map[string]any, len(m.fields))
	for name, f := range m.fields {
		props[name] = f.ToMap()
	}
	return map[string]any{keyProperties: props}
}

// SettingsDefinition holds free-form index settings (shards, replicas,
// analysis chains). Keys are passed through to the engine untouched.
type SettingsDefinition struct {
	settings map[string]any
}

// NewSettings creates an empty settings definition.
func NewSettings() *SettingsDefinition {
	return &SettingsDefinition{settings: make(map[string]any)}
}

// Set stores one setting.
func (s *SettingsDefinition) Set(key string, value any) *SettingsDefinition {
	s.settings[key] = value
	return s
}

// Get returns the setting stored under key, nil if absent.
func (s *SettingsDefinition) Get(key string) any {
	return s.settings[key]
}

// ToMap serializes the settings to the engine wire format.
func (s *SettingsDefinition) ToMap() map[string]any {
	out := make(map[string]any, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

// IndexDefinition composes one mapping and one settings definition into the
// full payload needed to create an index. TypeName carries the legacy engine
// document type; executors targeting newer engines strip it.
type IndexDefinition struct {
	Mapping  *MappingDefinition
	Settings *SettingsDefinition
	TypeName string
}

// NewIndexDefinition composes a mapping and settings into an index definition.
func NewIndexDefinition(mapping *MappingDefinition, settings *SettingsDefinition) *IndexDefinition {
	if mapping == nil {
		mapping = NewMapping()
	}
	if settings == nil {
		settings = NewSettings()
	}
	return &IndexDefinition{Mapping: mapping, Settings: settings}
}

// ToMap serializes the full create-index payload:
// {"settings": {...}, "mappings": {"properties": {...}}}.
func (d *IndexDefinition) ToMap() map[string]any {
	return map[string]any{
		"settings": d.Settings.ToMap(),
		"mappings": d.Mapping.ToMap(),
	}
}
