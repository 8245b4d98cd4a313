package backlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/indexsync/indexsync/internal/engine"
	"github.com/indexsync/indexsync/internal/executor"
	"github.com/indexsync/indexsync/internal/normalize"
	"github.com/indexsync/indexsync/internal/plugin"
)

// Source is the host application's record store.
type Source interface {
	// Load fetches one record in its default language.
	Load(ctx context.Context, entityType, entityID string) (*normalize.Record, error)

	// Variants returns every language variant of a record, including the
	// record itself. A language-neutral record yields a single variant.
	Variants(ctx context.Context, rec *normalize.Record) ([]*normalize.Record, error)

	// IDs enumerates every record id of a type, optionally one bundle.
	IDs(ctx context.Context, entityType, bundle string) ([]string, error)
}

// RunResult reports one batch invocation's per-item outcomes.
type RunResult struct {
	Processed int
	Failed    int
	Remaining int

	// Suspended is set when the circuit breaker tripped: the engine was
	// unreachable and the rest of the batch was left pending.
	Suspended bool
}

// Runner drains the backlog, routing each item through its plugin's pipeline
// into the executor.
type Runner struct {
	store   *Store
	source  Source
	plugins *plugin.Registry
	exec    *executor.Executor
	logger  *slog.Logger
}

// NewRunner wires a batch runner.
func NewRunner(store *Store, source Source, plugins *plugin.Registry, exec *executor.Executor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, source: source, plugins: plugins, exec: exec, logger: logger}
}

// Run processes every pending item for one plugin. One bad record marks its
// item errored and the batch continues; an unreachable engine suspends the
// batch immediately so the backlog survives for the next scheduled run. The
// tripped state is not persisted—the next Run always retries.
func (r *Runner) Run(ctx context.Context, pluginID string) (*RunResult, error) {
	p, err := r.plugins.Get(pluginID)
	if err != nil {
		return nil, err
	}

	items, err := r.store.Drain(ctx, pluginID)
	if err != nil {
		return nil, err
	}
	result := &RunResult{Remaining: len(items)}
	if len(items) == 0 {
		return result, nil
	}

	if _, err := r.exec.Health(ctx); engine.IsUnreachable(err) {
		r.logger.Error("search engine unreachable, suspending backlog run", "plugin", pluginID, "pending", len(items))
		result.Suspended = true
		return result, nil
	}

	for i, item := range items {
		err := r.processItem(ctx, p, item)
		if engine.IsUnreachable(err) {
			r.logger.Error("search engine unreachable, suspending backlog run",
				"plugin", pluginID, "pending", len(items)-i)
			result.Suspended = true
			return result, nil
		}
		if err != nil {
			r.logger.Warn("backlog item failed", "plugin", pluginID,
				"entity_type", item.EntityType, "entity_id", item.EntityID, "error", err)
			if markErr := r.store.MarkFailed(ctx, item.ID); markErr != nil {
				return result, markErr
			}
			result.Failed++
			result.Remaining--
			continue
		}
		if err := r.store.MarkProcessed(ctx, item.ID); err != nil {
			return result, err
		}
		result.Processed++
		result.Remaining--
	}
	return result, nil
}

// processItem loads the record and indexes every language variant.
func (r *Runner) processItem(ctx context.Context, p plugin.IndexPlugin, item Item) error {
	rec, err := r.source.Load(ctx, item.EntityType, item.EntityID)
	if err != nil {
		return fmt.Errorf("load %s/%s: %w", item.EntityType, item.EntityID, err)
	}
	if !p.Matches(rec.Type, rec.Bundle) {
		return fmt.Errorf("record %s/%s does not match plugin %q", rec.Type, rec.ID, p.ID())
	}

	variants, err := r.source.Variants(ctx, rec)
	if err != nil {
		return fmt.Errorf("variants of %s/%s: %w", rec.Type, rec.ID, err)
	}
	if len(variants) == 0 {
		variants = []*normalize.Record{rec}
	}

	for _, variant := range variants {
		doc, err := p.Pipeline().Normalize(variant, normalize.Context{
			Method: normalize.MethodIndex,
			Locale: variant.Langcode,
		})
		if err != nil {
			return err
		}
		if err := r.exec.Index(ctx, p.IndexTemplate(), doc); err != nil {
			return err
		}
	}
	return nil
}

// EnqueueAll queues every record the plugin serves and returns the number of
// newly queued items.
func (r *Runner) EnqueueAll(ctx context.Context, pluginID string) (int, error) {
	p, err := r.plugins.Get(pluginID)
	if err != nil {
		return 0, err
	}

	before, err := r.store.QueueStatus(ctx, pluginID)
	if err != nil {
		return 0, err
	}

	for _, entityType := range p.RecordTypes() {
		ids, err := r.source.IDs(ctx, entityType, "")
		if err != nil {
			return 0, fmt.Errorf("enumerate %q records: %w", entityType, err)
		}
		for _, id := range ids {
			if err := r.store.Enqueue(ctx, pluginID, entityType, id); err != nil {
				return 0, err
			}
		}
	}

	after, err := r.store.QueueStatus(ctx, pluginID)
	if err != nil {
		return 0, err
	}
	return after.Total - before.Total, nil
}
