package engine

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping converts a create-index payload's "mappings" section from
// the generic wire format into a Bleve index mapping.
func buildIndexMapping(body map[string]any) (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	mappings, ok := body["mappings"].(map[string]any)
	if !ok {
		return indexMapping, nil
	}
	props, ok := mappings["properties"].(map[string]any)
	if !ok {
		return indexMapping, nil
	}

	docMapping, err := buildDocumentMapping(props)
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// buildDocumentMapping converts one properties block into a document mapping.
func buildDocumentMapping(props map[string]any) (*mapping.DocumentMapping, error) {
	docMapping := bleve.NewDocumentMapping()

	for name, raw := range props {
		fieldDef, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: definition is %T, want object", name, raw)
		}
		typeName, _ := fieldDef["type"].(string)

		switch typeName {
		case "object", "nested":
			subProps, _ := fieldDef["properties"].(map[string]any)
			sub, err := buildDocumentMapping(subProps)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			docMapping.AddSubDocumentMapping(name, sub)
		default:
			fieldMappings, err := buildFieldMappings(name, typeName, fieldDef)
			if err != nil {
				return nil, err
			}
			docMapping.AddFieldMappingsAt(name, fieldMappings...)
		}
	}
	return docMapping, nil
}

// buildFieldMappings converts one scalar field definition, including its
// multi-fields, into Bleve field mappings at the same document path.
func buildFieldMappings(name, typeName string, fieldDef map[string]any) ([]*mapping.FieldMapping, error) {
	primary, err := scalarFieldMapping(name, typeName, fieldDef)
	if err != nil {
		return nil, err
	}
	out := []*mapping.FieldMapping{primary}

	if multiFields, ok := fieldDef["fields"].(map[string]any); ok {
		for subName, subRaw := range multiFields {
			subDef, ok := subRaw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("field %q: multi-field %q is %T, want object", name, subName, subRaw)
			}
			subType, _ := subDef["type"].(string)
			sub, err := scalarFieldMapping(name+"."+subName, subType, subDef)
			if err != nil {
				return nil, err
			}
			out = append(out, sub)
		}
	}
	return out, nil
}

// scalarFieldMapping maps one wire-format data type to a Bleve field mapping.
func scalarFieldMapping(path, typeName string, fieldDef map[string]any) (*mapping.FieldMapping, error) {
	switch typeName {
	case "text", "":
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		if a, ok := fieldDef["analyzer"].(string); ok && a == keyword.Name {
			fm.Analyzer = keyword.Name
		}
		fm.Store = true
		fm.IncludeTermVectors = true
		return fm, nil
	case "keyword":
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		return fm, nil
	case "integer", "long", "float":
		fm := bleve.NewNumericFieldMapping()
		fm.Store = true
		return fm, nil
	case "boolean":
		fm := bleve.NewBooleanFieldMapping()
		fm.Store = true
		return fm, nil
	case "date":
		fm := bleve.NewDateTimeFieldMapping()
		fm.Store = true
		return fm, nil
	default:
		return nil, fmt.Errorf("field %q: unsupported data type %q", path, typeName)
	}
}
