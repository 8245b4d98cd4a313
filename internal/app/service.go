package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/indexsync/indexsync/internal/backlog"
	"github.com/indexsync/indexsync/internal/config"
	"github.com/indexsync/indexsync/internal/engine"
	"github.com/indexsync/indexsync/internal/executor"
	"github.com/indexsync/indexsync/internal/normalize"
	"github.com/indexsync/indexsync/internal/plugin"
	"github.com/indexsync/indexsync/internal/storage"
	"github.com/indexsync/indexsync/internal/version"
)

// Service wires the engine, executor, plugin registry, backlog and version
// manager into the operations the CLI exposes.
type Service struct {
	settings *config.Settings
	exec     *executor.Executor
	plugins  *plugin.Registry
	source   *FileSource
	store    *backlog.Store
	runner   *backlog.Runner
	versions *version.Manager
	logger   *slog.Logger
}

// NewService builds the service from resolved settings. The returned cleanup
// releases the engine and database handles.
func NewService(settings *config.Settings) (*Service, func(), error) {
	logger := slog.Default()

	eng, err := engine.NewBleve(settings.Engine.BaseDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open engine: %w", err)
	}

	db, err := storage.Open(settings.Queue.DatabasePath)
	if err != nil {
		eng.Close()
		return nil, nil, fmt.Errorf("open queue database: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close queue database", "error", err)
		}
		if err := eng.Close(); err != nil {
			logger.Error("Failed to close engine", "error", err)
		}
	}

	store, err := backlog.NewStore(db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	exec := executor.New(eng,
		&executor.LegacyTypeStripper{},
		&executor.LoggingObserver{Logger: logger})

	versions, err := version.NewManager(db, exec, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	registry := normalize.DefaultRegistry(PlainRenderer{})
	plugins := plugin.NewRegistry()
	for _, cfg := range settings.Plugins {
		p, err := plugin.NewContentPlugin(cfg, registry, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := plugins.Register(p); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	source := NewFileSource(filepath.Join(settings.DataDir, "content"))
	runner := backlog.NewRunner(store, source, plugins, exec, logger)

	return &Service{
		settings: settings,
		exec:     exec,
		plugins:  plugins,
		source:   source,
		store:    store,
		runner:   runner,
		versions: versions,
		logger:   logger,
	}, cleanup, nil
}

// Plugins exposes the plugin registry.
func (s *Service) Plugins() *plugin.Registry { return s.plugins }

// Source exposes the record source.
func (s *Service) Source() *FileSource { return s.source }

// Executor exposes the operation executor.
func (s *Service) Executor() *executor.Executor { return s.exec }

// resolvePlugins returns the named plugin, or every registered plugin when
// id is empty.
func (s *Service) resolvePlugins(id string) ([]plugin.IndexPlugin, error) {
	if id == "" {
		return s.plugins.All(), nil
	}
	p, err := s.plugins.Get(id)
	if err != nil {
		return nil, err
	}
	return []plugin.IndexPlugin{p}, nil
}

// Setup prepares the physical indices for the named plugin, or for all
// plugins when id is empty.
//
// A token-free index template gets a versioned concrete index plus the base
// alias: the current version suffix is appended to the template to form the
// destination, and the alias is bound only if it does not exist yet, so a
// later explicit swap stays in the operator's hands. Templates with tokens
// resolve to many physical indices, which are created on demand; for those
// the index definition is registered as a creation template instead.
func (s *Service) Setup(ctx context.Context, pluginID string) error {
	targets, err := s.resolvePlugins(pluginID)
	if err != nil {
		return err
	}

	for _, p := range targets {
		def, err := p.IndexDefinition()
		if err != nil {
			return err
		}

		tmpl := p.IndexTemplate()
		if strings.Contains(tmpl, "{") {
			pattern := executor.ResolvePattern(tmpl)
			body := def.ToMap()
			body["index_patterns"] = []any{pattern}
			if err := s.exec.PutTemplate(ctx, p.ID(), body); err != nil {
				return err
			}
			s.logger.Info("index template registered", "plugin", p.ID(), "pattern", pattern)
			continue
		}

		ver, err := s.ensureVersion(ctx)
		if err != nil {
			return err
		}
		destination := tmpl + ver

		exists, err := s.exec.IndexExists(ctx, destination)
		if err != nil {
			return err
		}
		if !exists {
			if err := s.exec.CreateIndex(ctx, destination, def); err != nil {
				return err
			}
			s.logger.Info("index created", "plugin", p.ID(), "index", destination)
		}

		bound, err := s.exec.Engine().AliasExists(ctx, tmpl)
		if err != nil {
			return err
		}
		if !bound {
			if err := s.versions.UpdateAlias(ctx, tmpl, ver); err != nil {
				return err
			}
		} else {
			s.logger.Info("alias already bound, leaving it for an explicit swap",
				"plugin", p.ID(), "alias", tmpl)
		}
	}
	return nil
}

// ensureVersion returns the current version suffix, bootstrapping the
// counter on first setup. Later increments only happen on operator request.
func (s *Service) ensureVersion(ctx context.Context) (string, error) {
	ver, err := s.versions.CurrentVersion(ctx)
	if err != nil {
		return "", err
	}
	if ver == "" {
		return s.versions.IncrementVersion(ctx)
	}
	return ver, nil
}

// HandleChange routes a changed record to every matching plugin: deferred
// plugins queue it in the backlog, the rest index every language variant
// synchronously.
func (s *Service) HandleChange(ctx context.Context, rec *normalize.Record) error {
	matched := s.plugins.Matching(rec.Type, rec.Bundle)
	if len(matched) == 0 {
		s.logger.Debug("no index plugin matches record", "type", rec.Type, "bundle", rec.Bundle)
		return nil
	}

	for _, p := range matched {
		if p.Deferred() {
			if err := s.store.Enqueue(ctx, p.ID(), rec.Type, rec.ID); err != nil {
				return err
			}
			s.logger.Debug("record change queued", "plugin", p.ID(), "type", rec.Type, "id", rec.ID)
			continue
		}
		if err := s.indexRecord(ctx, p, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) indexRecord(ctx context.Context, p plugin.IndexPlugin, rec *normalize.Record) error {
	variants, err := s.source.Variants(ctx, rec)
	if err != nil {
		return err
	}
	for _, variant := range variants {
		doc, err := p.Pipeline().Normalize(variant, normalize.Context{
			Method: normalize.MethodIndex,
			Locale: variant.Langcode,
		})
		if err != nil {
			return err
		}
		if err := s.exec.Index(ctx, p.IndexTemplate(), doc); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRecord removes a record's documents from every matching plugin's
// index. A record that is already gone from the source is deleted through
// the bare template, which only works for token-free templates.
func (s *Service) DeleteRecord(ctx context.Context, recordType, bundle, id string) error {
	matched := s.plugins.Matching(recordType, bundle)
	for _, p := range matched {
		rec, err := s.source.Load(ctx, recordType, id)
		if err != nil {
			if delErr := s.exec.Delete(ctx, p.IndexTemplate(), nil, id); delErr != nil {
				return delErr
			}
			continue
		}
		variants, err := s.source.Variants(ctx, rec)
		if err != nil {
			return err
		}
		for _, variant := range variants {
			values := map[string]any{"langcode": variant.Langcode}
			if err := s.exec.Delete(ctx, p.IndexTemplate(), values, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Reindex queues every record the named plugin serves, or every plugin's
// records when id is empty. Returns the number of newly queued items.
func (s *Service) Reindex(ctx context.Context, pluginID string) (int, error) {
	targets, err := s.resolvePlugins(pluginID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range targets {
		n, err := s.runner.EnqueueAll(ctx, p.ID())
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// QueueRun drains the backlog for the named plugin, or all plugins.
func (s *Service) QueueRun(ctx context.Context, pluginID string) (*backlog.RunResult, error) {
	targets, err := s.resolvePlugins(pluginID)
	if err != nil {
		return nil, err
	}
	combined := &backlog.RunResult{}
	for _, p := range targets {
		result, err := s.runner.Run(ctx, p.ID())
		if result != nil {
			combined.Processed += result.Processed
			combined.Failed += result.Failed
			combined.Remaining += result.Remaining
			combined.Suspended = combined.Suspended || result.Suspended
		}
		if err != nil {
			return combined, err
		}
	}
	return combined, nil
}

// QueueStatus reports the backlog counters for one plugin, or the summed
// counters of all plugins when id is empty.
func (s *Service) QueueStatus(ctx context.Context, pluginID string) (backlog.Status, error) {
	if pluginID != "" {
		return s.store.QueueStatus(ctx, pluginID)
	}
	var total backlog.Status
	for _, p := range s.plugins.All() {
		st, err := s.store.QueueStatus(ctx, p.ID())
		if err != nil {
			return backlog.Status{}, err
		}
		total.Total += st.Total
		total.Processed += st.Processed
		total.Errors += st.Errors
	}
	return total, nil
}

// QueueClear drops the backlog for one plugin or all plugins and returns the
// number of removed items.
func (s *Service) QueueClear(ctx context.Context, pluginID string) (int, error) {
	targets, err := s.resolvePlugins(pluginID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range targets {
		n, err := s.store.Clear(ctx, p.ID())
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Drop deletes every physical index of the named plugin, or of all plugins,
// and returns how many indices were removed. Versioned and per-locale
// indices are matched by widening the template pattern.
func (s *Service) Drop(ctx context.Context, pluginID string) (int, error) {
	targets, err := s.resolvePlugins(pluginID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range targets {
		tmpl := p.IndexTemplate()
		eng := s.exec.Engine()

		if bound, err := eng.AliasExists(ctx, tmpl); err == nil && bound {
			target, err := eng.GetAlias(ctx, tmpl)
			if err != nil {
				return total, err
			}
			if err := eng.DeleteAlias(ctx, tmpl, target); err != nil && !engine.IsNotFound(err) {
				return total, err
			}
		}

		n, err := s.exec.DropAll(ctx, tmpl+"*")
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// CurrentVersion returns the active version suffix, empty before first setup.
func (s *Service) CurrentVersion(ctx context.Context) (string, error) {
	return s.versions.CurrentVersion(ctx)
}

// IncrementVersion advances the version counter and returns the new suffix.
// Nothing is created or swapped; setup and swap are separate steps.
func (s *Service) IncrementVersion(ctx context.Context) (string, error) {
	return s.versions.IncrementVersion(ctx)
}

// SwapAliases repoints each plugin's base alias at its current-version index.
// Plugins whose templates carry tokens have no single alias and are skipped.
func (s *Service) SwapAliases(ctx context.Context, pluginID string) error {
	ver, err := s.versions.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if ver == "" {
		return fmt.Errorf("no version to swap to; run setup first")
	}
	targets, err := s.resolvePlugins(pluginID)
	if err != nil {
		return err
	}
	for _, p := range targets {
		tmpl := p.IndexTemplate()
		if strings.Contains(tmpl, "{") {
			s.logger.Debug("skipping alias swap for templated index", "plugin", p.ID())
			continue
		}
		if err := s.versions.UpdateAlias(ctx, tmpl, ver); err != nil {
			return err
		}
	}
	return nil
}

// PluginStatus is one row of the status report.
type PluginStatus struct {
	ID       string
	Template string
	Deferred bool
	Queue    backlog.Status
}

// StatusReport summarizes engine health, the active version and every
// plugin's backlog.
type StatusReport struct {
	Health  *engine.Health
	Version string
	Plugins []PluginStatus
}

// Status assembles the status report. An unreachable engine is reported, not
// treated as an error.
func (s *Service) Status(ctx context.Context) (*StatusReport, error) {
	report := &StatusReport{}

	health, err := s.exec.Health(ctx)
	if err != nil {
		if !engine.IsUnreachable(err) {
			return nil, err
		}
		report.Health = &engine.Health{Status: "red"}
	} else {
		report.Health = health
	}

	ver, err := s.versions.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	report.Version = ver

	for _, p := range s.plugins.All() {
		qs, err := s.store.QueueStatus(ctx, p.ID())
		if err != nil {
			return nil, err
		}
		report.Plugins = append(report.Plugins, PluginStatus{
			ID:       p.ID(),
			Template: p.IndexTemplate(),
			Deferred: p.Deferred(),
			Queue:    qs,
		})
	}
	return report, nil
}

// Scheduler builds the cron scheduler draining deferred plugins on the
// configured interval.
func (s *Service) Scheduler() (*backlog.Scheduler, error) {
	return backlog.NewScheduler(s.runner, s.plugins, s.settings.Queue.Schedule, s.logger)
}
