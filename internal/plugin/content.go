package plugin

import (
	"fmt"
	"log/slog"

	"github.com/indexsync/indexsync/internal/normalize"
	"github.com/indexsync/indexsync/internal/schema"
)

// Config is the persisted configuration of one content index plugin.
type Config struct {
	// ID is the plugin id.
	ID string `mapstructure:"id"`

	// IndexName is the physical index name template.
	IndexName string `mapstructure:"index_name"`

	// RecordTypes lists the record types this plugin indexes.
	RecordTypes []string `mapstructure:"record_types"`

	// Bundles restricts indexing to these bundles; empty means all.
	Bundles []string `mapstructure:"bundles"`

	// Deferred queues record changes instead of indexing synchronously.
	Deferred bool `mapstructure:"deferred"`

	// ContentNormalizers lists content normalizer ids, in order.
	ContentNormalizers []string `mapstructure:"content_normalizers"`

	// Fields selects a field normalizer per declared record field.
	Fields []normalize.FieldConfig `mapstructure:"fields"`

	// Shards and Replicas become index settings.
	Shards   int `mapstructure:"shards"`
	Replicas int `mapstructure:"replicas"`
}

// ContentPlugin indexes content records according to its Config.
type ContentPlugin struct {
	cfg      Config
	pipeline *normalize.Pipeline
}

// NewContentPlugin resolves the configured normalizers into a plugin.
func NewContentPlugin(cfg Config, registry *normalize.Registry, logger *slog.Logger) (*ContentPlugin, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("index plugin requires an id")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("index plugin %q requires an index name", cfg.ID)
	}
	content := cfg.ContentNormalizers
	if len(content) == 0 {
		content = []string{"core_fields"}
	}
	pipeline, err := normalize.NewPipeline(registry, content, cfg.Fields, logger)
	if err != nil {
		return nil, fmt.Errorf("index plugin %q: %w", cfg.ID, err)
	}
	return &ContentPlugin{cfg: cfg, pipeline: pipeline}, nil
}

func (p *ContentPlugin) ID() string            { return p.cfg.ID }
func (p *ContentPlugin) IndexTemplate() string { return p.cfg.IndexName }
func (p *ContentPlugin) Deferred() bool        { return p.cfg.Deferred }
func (p *ContentPlugin) RecordTypes() []string { return p.cfg.RecordTypes }

func (p *ContentPlugin) Pipeline() *normalize.Pipeline { return p.pipeline }

func (p *ContentPlugin) Matches(recordType, bundle string) bool {
	typeOK := false
	for _, t := range p.cfg.RecordTypes {
		if t == recordType {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}
	if len(p.cfg.Bundles) == 0 {
		return true
	}
	for _, b := range p.cfg.Bundles {
		if b == bundle {
			return true
		}
	}
	return false
}

// IndexDefinition builds the create-index payload from the pipeline's
// property declarations, so the mapping and the documents always agree.
func (p *ContentPlugin) IndexDefinition() (*schema.IndexDefinition, error) {
	mapping, err := p.pipeline.Mapping()
	if err != nil {
		return nil, fmt.Errorf("index plugin %q: %w", p.cfg.ID, err)
	}
	settings := schema.NewSettings()
	if p.cfg.Shards > 0 {
		settings.Set("number_of_shards", p.cfg.Shards)
	}
	if p.cfg.Replicas >= 0 {
		settings.Set("number_of_replicas", p.cfg.Replicas)
	}
	return schema.NewIndexDefinition(mapping, settings), nil
}
