package schema

import (
	"errors"
	"testing"
)

func TestNewField_UnknownType(t *testing.T) {
	_, err := NewField("geopoint3d", nil)
	if !errors.Is(err, ErrInvalidDataType) {
		t.Fatalf("NewField error = %v, want ErrInvalidDataType", err)
	}
}

func TestNewField_ReservedOptions(t *testing.T) {
	for _, key := range []string{"type", "properties", "fields"} {
		_, err := NewField(TypeText, map[string]any{key: "x"})
		if !errors.Is(err, ErrReservedOption) {
			t.Errorf("NewField with option %q: err = %v, want ErrReservedOption", key, err)
		}
	}
}

func TestFieldDefinition_ToMap_TypeWinsOverBase(t *testing.T) {
	f, err := NewField(TypeDate, map[string]any{"format": "epoch_second"})
	if err != nil {
		t.Fatalf("NewField failed: %v", err)
	}

	m := f.ToMap()
	if m["type"] != TypeDate {
		t.Errorf("type = %v, want %q", m["type"], TypeDate)
	}
	// Caller option overrides the data type's base format.
	if m["format"] != "epoch_second" {
		t.Errorf("format = %v, want 'epoch_second'", m["format"])
	}
}

func TestFieldDefinition_ToMap_DateBaseFormat(t *testing.T) {
	f := MustField(TypeDate, nil)
	m := f.ToMap()
	if m["format"] != "strict_date_optional_time||epoch_millis" {
		t.Errorf("format = %v, want base date format", m["format"])
	}
}

func TestFieldDefinition_StructuralExclusivity(t *testing.T) {
	f := MustField(TypeText, nil)
	if err := f.AddMultiField("keyword", MustField(TypeKeyword, nil)); err != nil {
		t.Fatalf("AddMultiField failed: %v", err)
	}

	err := f.AddProperty("sub", MustField(TypeText, nil))
	if !errors.Is(err, ErrStructuralConflict) {
		t.Fatalf("AddProperty after AddMultiField: err = %v, want ErrStructuralConflict", err)
	}

	// Definition must not have been mutated by the failed call.
	m := f.ToMap()
	if _, ok := m["properties"]; ok {
		t.Error("failed AddProperty must not attach properties")
	}
	fields, ok := m["fields"].(map[string]any)
	if !ok || len(fields) != 1 {
		t.Errorf("fields = %v, want the one multi-field", m["fields"])
	}

	// And the other direction.
	g := MustField(TypeObject, nil)
	if err := g.AddProperty("name", MustField(TypeText, nil)); err != nil {
		t.Fatalf("AddProperty failed: %v", err)
	}
	if err := g.AddMultiField("raw", MustField(TypeKeyword, nil)); !errors.Is(err, ErrStructuralConflict) {
		t.Fatalf("AddMultiField after AddProperty: err = %v, want ErrStructuralConflict", err)
	}
}

func TestFieldDefinition_ToMap_NestedProperties(t *testing.T) {
	addr := MustField(TypeObject, nil)
	if err := addr.AddProperty("city", MustField(TypeText, nil)); err != nil {
		t.Fatalf("AddProperty failed: %v", err)
	}
	if err := addr.AddProperty("zip", MustField(TypeKeyword, nil)); err != nil {
		t.Fatalf("AddProperty failed: %v", err)
	}

	m := addr.ToMap()
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", m)
	}
	city, ok := props["city"].(map[string]any)
	if !ok || city["type"] != TypeText {
		t.Errorf("city = %v, want text field", props["city"])
	}
}

func TestRegisterDataType(t *testing.T) {
	RegisterDataType("attachment", map[string]any{"store": true})
	f, err := NewField("attachment", nil)
	if err != nil {
		t.Fatalf("NewField failed: %v", err)
	}
	m := f.ToMap()
	if m["type"] != "attachment" || m["store"] != true {
		t.Errorf("ToMap() = %v", m)
	}
}

func TestMappingDefinition_ToMap(t *testing.T) {
	title := MustField(TypeText, map[string]any{"analyzer": "standard"})
	if err := title.AddMultiField("keyword", MustField(TypeKeyword, map[string]any{"ignore_above": 256})); err != nil {
		t.Fatalf("AddMultiField failed: %v", err)
	}

	mapping := NewMapping().
		SetField("title", title).
		SetField("created", MustField(TypeDate, nil)).
		SetField("sticky", MustField(TypeBoolean, nil))

	m := mapping.ToMap()
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", m)
	}
	if len(props) != 3 {
		t.Errorf("top-level property count = %d, want 3", len(props))
	}

	titleMap := props["title"].(map[string]any)
	if titleMap["type"] != TypeText || titleMap["analyzer"] != "standard" {
		t.Errorf("title = %v", titleMap)
	}
	fields := titleMap["fields"].(map[string]any)
	kw := fields["keyword"].(map[string]any)
	if kw["type"] != TypeKeyword || kw["ignore_above"] != 256 {
		t.Errorf("title.fields.keyword = %v", kw)
	}
	if _, ok := titleMap["properties"]; ok {
		t.Error("a field with multi-fields must not carry properties")
	}
}

func TestIndexDefinition_ToMap(t *testing.T) {
	settings := NewSettings().
		Set("number_of_shards", 1).
		Set("number_of_replicas", 0)
	mapping := NewMapping().SetField("id", MustField(TypeKeyword, nil))

	def := NewIndexDefinition(mapping, settings)
	m := def.ToMap()

	s, ok := m["settings"].(map[string]any)
	if !ok || s["number_of_shards"] != 1 {
		t.Errorf("settings = %v", m["settings"])
	}
	mm, ok := m["mappings"].(map[string]any)
	if !ok {
		t.Fatalf("mappings missing: %v", m)
	}
	if _, ok := mm["properties"]; !ok {
		t.Errorf("mappings.properties missing: %v", mm)
	}
}
