package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/indexsync/indexsync/internal/normalize"
)

// recordFile is the on-disk JSON shape of one record, including its
// translations.
type recordFile struct {
	Type         string                     `json:"type"`
	Bundle       string                     `json:"bundle,omitempty"`
	ID           string                     `json:"id"`
	UUID         string                     `json:"uuid,omitempty"`
	Label        string                     `json:"label,omitempty"`
	Created      time.Time                  `json:"created,omitempty"`
	Langcode     string                     `json:"langcode,omitempty"`
	Fields       map[string][]any           `json:"fields,omitempty"`
	Translations map[string]recordVariation `json:"translations,omitempty"`
}

// recordVariation overrides the translatable parts of a record for one
// language.
type recordVariation struct {
	Label  string           `json:"label,omitempty"`
	Fields map[string][]any `json:"fields,omitempty"`
}

// ParseRecord decodes one record from its JSON representation.
func ParseRecord(data []byte) (*normalize.Record, error) {
	var rf recordFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if rf.Type == "" || rf.ID == "" {
		return nil, fmt.Errorf("parse record: type and id are required")
	}
	return rf.record(), nil
}

func (rf *recordFile) record() *normalize.Record {
	return &normalize.Record{
		Type:     rf.Type,
		Bundle:   rf.Bundle,
		ID:       rf.ID,
		UUID:     rf.UUID,
		Label:    rf.Label,
		Created:  rf.Created,
		Langcode: rf.Langcode,
		Fields:   rf.Fields,
	}
}

// FileSource serves records from JSON files laid out as
// <dir>/<type>/<id>.json. It backs the CLI's reindex and queue commands.
type FileSource struct {
	dir string
}

// NewFileSource creates a source rooted at dir. The directory does not have
// to exist yet; a missing type directory simply has no records.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Load fetches one record in its default language.
func (s *FileSource) Load(ctx context.Context, entityType, entityID string) (*normalize.Record, error) {
	rf, err := s.read(entityType, entityID)
	if err != nil {
		return nil, err
	}
	return rf.record(), nil
}

// Variants returns the record and one variant per translation. Translations
// inherit the base record's identity and untranslated fields.
func (s *FileSource) Variants(ctx context.Context, rec *normalize.Record) ([]*normalize.Record, error) {
	rf, err := s.read(rec.Type, rec.ID)
	if err != nil {
		// Records handed in directly (not file backed) are their own
		// single variant.
		return []*normalize.Record{rec}, nil
	}

	variants := []*normalize.Record{rf.record()}
	for langcode, tr := range rf.Translations {
		v := rf.record()
		v.Langcode = langcode
		if tr.Label != "" {
			v.Label = tr.Label
		}
		if len(tr.Fields) > 0 {
			merged := make(map[string][]any, len(v.Fields))
			for name, values := range v.Fields {
				merged[name] = values
			}
			for name, values := range tr.Fields {
				merged[name] = values
			}
			v.Fields = merged
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// IDs enumerates every record id of a type. Bundle filtering requires
// reading each file, so it is only done when a bundle is given.
func (s *FileSource) IDs(ctx context.Context, entityType, bundle string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, entityType))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %q records: %w", entityType, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if bundle != "" {
			rf, err := s.read(entityType, id)
			if err != nil || rf.Bundle != bundle {
				continue
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Store writes a record file, creating the type directory as needed.
func (s *FileSource) Store(rec *normalize.Record) error {
	dir := filepath.Join(s.dir, rec.Type)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	rf := recordFile{
		Type:     rec.Type,
		Bundle:   rec.Bundle,
		ID:       rec.ID,
		UUID:     rec.UUID,
		Label:    rec.Label,
		Created:  rec.Created,
		Langcode: rec.Langcode,
		Fields:   rec.Fields,
	}
	data, err := json.MarshalIndent(&rf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s/%s: %w", rec.Type, rec.ID, err)
	}
	path := filepath.Join(dir, rec.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write record %s/%s: %w", rec.Type, rec.ID, err)
	}
	return nil
}

func (s *FileSource) read(entityType, entityID string) (*recordFile, error) {
	path := filepath.Join(s.dir, entityType, entityID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record %s/%s: %w", entityType, entityID, err)
	}
	var rf recordFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse record %s/%s: %w", entityType, entityID, err)
	}
	return &rf, nil
}

// PlainRenderer renders a record as plain text: the label followed by every
// field value, one per line. It stands in for a real presentation layer.
type PlainRenderer struct{}

// Render implements normalize.Renderer.
func (PlainRenderer) Render(rec *normalize.Record, viewMode string) (string, error) {
	names := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	if rec.Label != "" {
		b.WriteString(rec.Label)
	}
	for _, name := range names {
		for _, v := range rec.Fields[name] {
			s := fmt.Sprintf("%v", v)
			if s == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(s)
		}
	}
	return b.String(), nil
}
