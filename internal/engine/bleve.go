package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
)

const (
	// IndexSuffix is the suffix for physical index directories.
	IndexSuffix = ".bleve"

	// indicesDirname is the directory holding physical indices.
	indicesDirname = "indices"
)

// Bleve is an Engine backed by local Bleve indices. Each physical index is a
// directory under baseDir/indices; the alias table and templates live in a
// JSON state file written atomically.
type Bleve struct {
	baseDir string
	state   *engineState
	logger  *slog.Logger

	mu   sync.Mutex
	open map[string]bleve.Index
}

// NewBleve opens an engine rooted at baseDir, creating it if needed.
func NewBleve(baseDir string, logger *slog.Logger) (*Bleve, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(baseDir, indicesDirname), 0755); err != nil {
		return nil, fmt.Errorf("create engine base directory: %w", err)
	}
	state, err := loadState(filepath.Join(baseDir, StateFilename))
	if err != nil {
		return nil, err
	}
	return &Bleve{
		baseDir: baseDir,
		state:   state,
		logger:  logger,
		open:    make(map[string]bleve.Index),
	}, nil
}

// Close releases every open index handle.
func (b *Bleve) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for name, idx := range b.open {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %q: %w", name, err)
		}
		delete(b.open, name)
	}
	return firstErr
}

func (b *Bleve) indexPath(name string) string {
	return filepath.Join(b.baseDir, indicesDirname, name+IndexSuffix)
}

// resolve maps an alias to its target; concrete names pass through.
func (b *Bleve) resolve(name string) string {
	if target, ok := b.state.aliasTarget(name); ok {
		return target
	}
	return name
}

// openIndex returns a cached or freshly opened handle for a physical index.
func (b *Bleve) openIndex(name string) (bleve.Index, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx, ok := b.open[name]; ok {
		return idx, nil
	}
	idx, err := bleve.Open(b.indexPath(name))
	if err != nil {
		if err == bleve.ErrorIndexPathDoesNotExist {
			return nil, notFound("index", name)
		}
		return nil, fmt.Errorf("open index %q: %w", name, err)
	}
	b.open[name] = idx
	return idx, nil
}

// openOrCreate opens the physical index, creating it on first write using the
// recorded mapping or a matching template.
func (b *Bleve) openOrCreate(ctx context.Context, name string) (bleve.Index, error) {
	idx, err := b.openIndex(name)
	if err == nil {
		return idx, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}
	if err := b.CreateIndex(ctx, name, b.createBody(name, nil)); err != nil {
		return nil, err
	}
	return b.openIndex(name)
}

// Index stores one document, assigning an id when none was given.
func (b *Bleve) Index(ctx context.Context, index, id string, doc map[string]any) error {
	idx, err := b.openOrCreate(ctx, b.resolve(index))
	if err != nil {
		return err
	}
	if id == "" {
		id = uuid.New().String()
	}
	if err := idx.Index(id, doc); err != nil {
		return fmt.Errorf("index document %q: %w", id, err)
	}
	return nil
}

// Get retrieves a document's stored fields.
func (b *Bleve) Get(ctx context.Context, index, id string) (map[string]any, error) {
	idx, err := b.openIndex(b.resolve(index))
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Fields = []string{"*"}
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get document %q: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, notFound("document", id)
	}
	doc := make(map[string]any, len(res.Hits[0].Fields))
	for k, v := range res.Hits[0].Fields {
		doc[k] = v
	}
	return doc, nil
}

// Update merges doc over the stored document, creating it if absent.
func (b *Bleve) Update(ctx context.Context, index, id string, doc map[string]any) error {
	if id == "" {
		return fmt.Errorf("update requires a document id")
	}
	merged := make(map[string]any)
	existing, err := b.Get(ctx, index, id)
	if err != nil && !IsNotFound(err) {
		return err
	}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range doc {
		merged[k] = v
	}
	return b.Index(ctx, index, id, merged)
}

// Delete removes a document, ErrNotFound when it was never indexed.
func (b *Bleve) Delete(ctx context.Context, index, id string) error {
	physical := b.resolve(index)
	if _, err := b.Get(ctx, index, id); err != nil {
		return err
	}
	idx, err := b.openIndex(physical)
	if err != nil {
		return err
	}
	if err := idx.Delete(id); err != nil {
		return fmt.Errorf("delete document %q: %w", id, err)
	}
	return nil
}

// Search runs one query. The body follows the generic wire format: an
// optional "query" (string or {"query_string": ...}) plus "size" and "from".
func (b *Bleve) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	idx, err := b.openIndex(b.resolve(index))
	if err != nil {
		return nil, err
	}

	req := searchRequest(body)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", index, err)
	}

	hits := make([]any, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, map[string]any{
			"_id":     hit.ID,
			"_score":  hit.Score,
			"_source": hit.Fields,
		})
	}
	return map[string]any{
		"took": res.Took.Milliseconds(),
		"hits": map[string]any{
			"total": map[string]any{"value": res.Total},
			"hits":  hits,
		},
	}, nil
}

// searchRequest translates a generic query body into a Bleve request.
func searchRequest(body map[string]any) *bleve.SearchRequest {
	var q query.Query = bleve.NewMatchAllQuery()
	switch v := body["query"].(type) {
	case string:
		q = bleve.NewQueryStringQuery(v)
	case map[string]any:
		if qs, ok := v["query_string"].(map[string]any); ok {
			if s, ok := qs["query"].(string); ok {
				q = bleve.NewQueryStringQuery(s)
			}
		} else if s, ok := v["query_string"].(string); ok {
			q = bleve.NewQueryStringQuery(s)
		}
	}

	size := intValue(body["size"], 10)
	from := intValue(body["from"], 0)
	req := bleve.NewSearchRequestOptions(q, size, from, false)
	req.Fields = []string{"*"}
	return req
}

func intValue(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// MSearch runs several queries against the same index.
func (b *Bleve) MSearch(ctx context.Context, index string, bodies []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(bodies))
	for _, body := range bodies {
		res, err := b.Search(ctx, index, body)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Bulk applies a batch of document operations in one engine batch.
func (b *Bleve) Bulk(ctx context.Context, index string, ops []BulkOp) (*BulkResult, error) {
	idx, err := b.openOrCreate(ctx, b.resolve(index))
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	batch := idx.NewBatch()
	for _, op := range ops {
		switch op.Action {
		case "index", "update":
			id := op.ID
			if id == "" {
				id = uuid.New().String()
			}
			if err := batch.Index(id, op.Doc); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("bulk index %q: %w", id, err))
				continue
			}
			result.Indexed++
		case "delete":
			batch.Delete(op.ID)
			result.Deleted++
		default:
			result.Errors = append(result.Errors, fmt.Errorf("bulk: unknown action %q", op.Action))
		}
	}
	if err := idx.Batch(batch); err != nil {
		return result, fmt.Errorf("bulk batch on %q: %w", index, err)
	}
	return result, nil
}

// CreateIndex creates a physical index, applying any matching template under
// the explicit payload.
func (b *Bleve) CreateIndex(ctx context.Context, index string, body map[string]any) error {
	indexPath := b.indexPath(index)
	if _, err := os.Stat(indexPath); err == nil {
		return fmt.Errorf("index %q already exists", index)
	}

	body = b.createBody(index, body)
	indexMapping, err := buildIndexMapping(body)
	if err != nil {
		return fmt.Errorf("create index %q: %w", index, err)
	}

	idx, err := bleve.New(indexPath, indexMapping)
	if err != nil {
		return fmt.Errorf("create index %q: %w", index, err)
	}

	b.mu.Lock()
	b.open[index] = idx
	b.mu.Unlock()
	return nil
}

// createBody layers the explicit payload over the recorded mapping and any
// matching template, explicit keys winning.
func (b *Bleve) createBody(index string, body map[string]any) map[string]any {
	merged := make(map[string]any)
	if tpl := b.matchTemplate(index); tpl != nil {
		for _, key := range []string{"settings", "mappings"} {
			if v, ok := tpl[key]; ok {
				merged[key] = v
			}
		}
	}
	b.state.mu.RLock()
	if m, ok := b.state.Mappings[index]; ok {
		merged["mappings"] = m
	}
	b.state.mu.RUnlock()
	for k, v := range body {
		merged[k] = v
	}
	return merged
}

// matchTemplate returns the first registered template whose pattern matches
// the index name.
func (b *Bleve) matchTemplate(index string) map[string]any {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	for _, tpl := range b.state.Templates {
		for _, pattern := range templatePatterns(tpl) {
			if ok, _ := path.Match(pattern, index); ok {
				return tpl
			}
		}
	}
	return nil
}

func templatePatterns(tpl map[string]any) []string {
	switch v := tpl["index_patterns"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := tpl["template"].(string); ok {
		return []string{s}
	}
	return nil
}

// IndexExists reports whether the physical index directory exists.
func (b *Bleve) IndexExists(ctx context.Context, index string) (bool, error) {
	_, err := os.Stat(b.indexPath(index))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat index %q: %w", index, err)
}

// DeleteIndex removes every physical index matching the name or wildcard
// pattern. Deleting a missing concrete index is not an error.
func (b *Bleve) DeleteIndex(ctx context.Context, pattern string) (int, error) {
	var names []string
	if strings.ContainsAny(pattern, "*?") {
		entries, err := os.ReadDir(filepath.Join(b.baseDir, indicesDirname))
		if err != nil {
			return 0, fmt.Errorf("list indices: %w", err)
		}
		for _, entry := range entries {
			name := strings.TrimSuffix(entry.Name(), IndexSuffix)
			if ok, _ := path.Match(pattern, name); ok {
				names = append(names, name)
			}
		}
	} else {
		exists, err := b.IndexExists(ctx, pattern)
		if err != nil {
			return 0, err
		}
		if exists {
			names = append(names, pattern)
		}
	}

	deleted := 0
	for _, name := range names {
		b.mu.Lock()
		if idx, ok := b.open[name]; ok {
			if err := idx.Close(); err != nil {
				b.logger.Warn("closing index before delete failed", "index", name, "error", err)
			}
			delete(b.open, name)
		}
		b.mu.Unlock()
		if err := os.RemoveAll(b.indexPath(name)); err != nil {
			return deleted, fmt.Errorf("delete index %q: %w", name, err)
		}
		if err := b.state.forgetIndex(name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// AliasExists reports whether an alias is defined.
func (b *Bleve) AliasExists(ctx context.Context, name string) (bool, error) {
	_, ok := b.state.aliasTarget(name)
	return ok, nil
}

// GetAlias resolves an alias to its target index.
func (b *Bleve) GetAlias(ctx context.Context, name string) (string, error) {
	target, ok := b.state.aliasTarget(name)
	if !ok {
		return "", notFound("alias", name)
	}
	return target, nil
}

// DeleteAlias removes one alias binding.
func (b *Bleve) DeleteAlias(ctx context.Context, name, index string) error {
	target, ok := b.state.aliasTarget(name)
	if !ok {
		return notFound("alias", name)
	}
	if target != index {
		return fmt.Errorf("alias %q points at %q, not %q", name, target, index)
	}
	return b.state.applyAliasActions([]AliasAction{{Remove: &AliasBinding{Alias: name, Index: index}}})
}

// UpdateAliases applies alias actions as one atomic state change. Every add
// target must be an existing physical index.
func (b *Bleve) UpdateAliases(ctx context.Context, actions []AliasAction) error {
	for _, a := range actions {
		if a.Add == nil {
			continue
		}
		exists, err := b.IndexExists(ctx, a.Add.Index)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("index", a.Add.Index)
		}
	}
	return b.state.applyAliasActions(actions)
}

// PutMapping validates and records an index's mapping. A live Bleve index
// cannot be re-mapped in place, so the recorded mapping takes effect at the
// next rebuild of the physical index.
func (b *Bleve) PutMapping(ctx context.Context, index string, body map[string]any) error {
	exists, err := b.IndexExists(ctx, index)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("index", index)
	}
	if _, err := buildIndexMapping(map[string]any{"mappings": body}); err != nil {
		return fmt.Errorf("put mapping on %q: %w", index, err)
	}
	return b.state.putMapping(index, body)
}

// PutTemplate registers an index template.
func (b *Bleve) PutTemplate(ctx context.Context, name string, body map[string]any) error {
	return b.state.putTemplate(name, body)
}

// Health reports engine availability. An inaccessible base directory is the
// embedded equivalent of an unreachable cluster.
func (b *Bleve) Health(ctx context.Context) (*Health, error) {
	entries, err := os.ReadDir(filepath.Join(b.baseDir, indicesDirname))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return &Health{Status: "green", Indices: len(entries)}, nil
}
