package normalize

import (
	"testing"
	"time"
)

func TestIntegerNormalizer(t *testing.T) {
	n := &IntegerNormalizer{}
	cfg := FieldConfig{Field: "count"}

	for _, tc := range []struct {
		in   any
		want int64
	}{
		{42, 42},
		{int64(7), 7},
		{"19", 19},
		{float64(3), 3},
	} {
		got, err := n.NormalizeValue(tc.in, cfg)
		if err != nil {
			t.Errorf("NormalizeValue(%v) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeValue(%v) = %v, want %d", tc.in, got, tc.want)
		}
	}

	if _, err := n.NormalizeValue("abc", cfg); err == nil {
		t.Error("non-numeric string must fail")
	}
}

func TestBooleanNormalizer(t *testing.T) {
	n := &BooleanNormalizer{}
	cfg := FieldConfig{Field: "sticky"}

	got, err := n.NormalizeValue("true", cfg)
	if err != nil || got != true {
		t.Errorf("NormalizeValue('true') = %v, %v", got, err)
	}
	got, err = n.NormalizeValue(0, cfg)
	if err != nil || got != false {
		t.Errorf("NormalizeValue(0) = %v, %v", got, err)
	}
}

func TestDateNormalizer(t *testing.T) {
	n := &DateNormalizer{}
	cfg := FieldConfig{Field: "changed"}

	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	got, err := n.NormalizeValue(ts, cfg)
	if err != nil || got != "2024-05-01T12:30:00Z" {
		t.Errorf("NormalizeValue(time) = %v, %v", got, err)
	}

	got, err = n.NormalizeValue(ts.Unix(), cfg)
	if err != nil || got != "2024-05-01T12:30:00Z" {
		t.Errorf("NormalizeValue(epoch) = %v, %v", got, err)
	}

	cfg.Options = map[string]any{OptionFormat: "2006-01-02"}
	got, err = n.NormalizeValue(ts, cfg)
	if err != nil || got != "2024-05-01" {
		t.Errorf("NormalizeValue with format = %v, %v", got, err)
	}
}

func TestTextNormalizer_Property(t *testing.T) {
	n := &TextNormalizer{}

	p := n.Property(FieldConfig{Field: "body", Options: map[string]any{OptionAnalyzer: "standard", OptionRaw: true}})
	if p.Type != "text" || p.Options[OptionAnalyzer] != "standard" {
		t.Errorf("property = %+v", p)
	}
	if p.Fields["keyword"] == nil || p.Fields["keyword"].Type != "keyword" {
		t.Errorf("raw option must declare a keyword multi-field, got %+v", p.Fields)
	}

	plain := n.Property(FieldConfig{Field: "body"})
	if len(plain.Fields) != 0 {
		t.Errorf("without the raw option no multi-field is declared: %+v", plain.Fields)
	}
}

func TestPropertyDefinition_FieldDefinition(t *testing.T) {
	p := NewProperty("object", nil).
		WithProperty("city", NewProperty("text", nil)).
		WithProperty("zip", NewProperty("keyword", nil))

	f, err := p.FieldDefinition()
	if err != nil {
		t.Fatalf("FieldDefinition failed: %v", err)
	}

	m := f.ToMap()
	props, ok := m["properties"].(map[string]any)
	if !ok || len(props) != 2 {
		t.Fatalf("properties = %v", m["properties"])
	}
}

func TestPropertyDefinition_UnknownType(t *testing.T) {
	if _, err := NewProperty("warp_field", nil).FieldDefinition(); err == nil {
		t.Fatal("unknown data type must surface as an error")
	}
}
