package normalize

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/indexsync/indexsync/internal/schema"
)

// Core document field names shared by queries and mappings.
const (
	FieldID       = "id"
	FieldUUID     = "uuid"
	FieldType     = "type"
	FieldBundle   = "bundle"
	FieldLabel    = "label"
	FieldCreated  = "created"
	FieldLangcode = "langcode"
	FieldRendered = "rendered"
)

// CoreFieldsNormalizer adds the identity fields every document carries:
// id, uuid, type, bundle, label, created and langcode.
type CoreFieldsNormalizer struct{}

func (n *CoreFieldsNormalizer) ID() string { return "core_fields" }

func (n *CoreFieldsNormalizer) NormalizeContent(rec *Record, doc map[string]any, ctx Context) error {
	if rec.ID == "" {
		return fmt.Errorf("record of type %q has no id", rec.Type)
	}
	doc[FieldID] = rec.ID
	doc[FieldUUID] = recordUUID(rec)
	doc[FieldType] = rec.Type
	if rec.Bundle != "" {
		doc[FieldBundle] = rec.Bundle
	}
	doc[FieldLabel] = rec.Label
	if !rec.Created.IsZero() {
		doc[FieldCreated] = rec.Created.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	langcode := rec.Langcode
	if ctx.Locale != "" {
		langcode = ctx.Locale
	}
	if langcode != "" {
		doc[FieldLangcode] = langcode
	}
	return nil
}

func (n *CoreFieldsNormalizer) Properties() map[string]*PropertyDefinition {
	return map[string]*PropertyDefinition{
		FieldID:       NewProperty(schema.TypeKeyword, nil),
		FieldUUID:     NewProperty(schema.TypeKeyword, nil),
		FieldType:     NewProperty(schema.TypeKeyword, nil),
		FieldBundle:   NewProperty(schema.TypeKeyword, nil),
		FieldLabel:    NewProperty(schema.TypeText, nil).WithField("keyword", NewProperty(schema.TypeKeyword, map[string]any{"ignore_above": 256})),
		FieldCreated:  NewProperty(schema.TypeDate, nil),
		FieldLangcode: NewProperty(schema.TypeKeyword, nil),
	}
}

// recordUUID returns the record's own uuid, or a stable one derived from its
// type and id when the host store does not track uuids.
func recordUUID(rec *Record) string {
	if _, err := uuid.Parse(rec.UUID); err == nil {
		return rec.UUID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(rec.Type+"/"+rec.ID)).String()
}

// RenderedContentNormalizer indexes the record's rendered display output as
// analyzed text. View mode is fixed at construction.
type RenderedContentNormalizer struct {
	Renderer Renderer
	ViewMode string
}

func (n *RenderedContentNormalizer) ID() string { return "rendered_content" }

func (n *RenderedContentNormalizer) NormalizeContent(rec *Record, doc map[string]any, ctx Context) error {
	viewMode := n.ViewMode
	if viewMode == "" {
		viewMode = "search_index"
	}
	rendered, err := n.Renderer.Render(rec, viewMode)
	if err != nil {
		return fmt.Errorf("render record %s/%s: %w", rec.Type, rec.ID, err)
	}
	doc[FieldRendered] = rendered
	return nil
}

func (n *RenderedContentNormalizer) Properties() map[string]*PropertyDefinition {
	return map[string]*PropertyDefinition{
		FieldRendered: NewProperty(schema.TypeText, nil),
	}
}
