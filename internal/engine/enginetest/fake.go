// Package enginetest provides an in-memory Engine for contract tests.
package enginetest

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/indexsync/indexsync/internal/engine"
)

// Call records one engine invocation for assertions.
type Call struct {
	Op    string
	Index string
	ID    string
}

// Fake is an in-memory engine.Engine. Err, when set, fails every subsequent
// operation; use engine.ErrUnreachable to simulate a dead cluster.
type Fake struct {
	mu        sync.Mutex
	documents map[string]map[string]map[string]any // index -> id -> doc
	aliases   map[string]string
	templates map[string]map[string]any
	mappings  map[string]map[string]any

	// Err fails every operation when set.
	Err error

	// Calls records every invocation in order.
	Calls []Call

	seq int
}

// New creates an empty fake engine.
func New() *Fake {
	return &Fake{
		documents: make(map[string]map[string]map[string]any),
		aliases:   make(map[string]string),
		templates: make(map[string]map[string]any),
		mappings:  make(map[string]map[string]any),
	}
}

func (f *Fake) record(op, index, id string) error {
	f.Calls = append(f.Calls, Call{Op: op, Index: index, ID: id})
	return f.Err
}

// CallsFor returns the recorded calls for one operation.
func (f *Fake) CallsFor(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) resolve(index string) string {
	if target, ok := f.aliases[index]; ok {
		return target
	}
	return index
}

func (f *Fake) Index(ctx context.Context, index, id string, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("index", index, id); err != nil {
		return err
	}
	index = f.resolve(index)
	if f.documents[index] == nil {
		f.documents[index] = make(map[string]map[string]any)
	}
	if id == "" {
		f.seq++
		id = fmt.Sprintf("auto-%d", f.seq)
	}
	f.documents[index][id] = doc
	return nil
}

func (f *Fake) Get(ctx context.Context, index, id string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get", index, id); err != nil {
		return nil, err
	}
	doc, ok := f.documents[f.resolve(index)][id]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", id, engine.ErrNotFound)
	}
	return doc, nil
}

func (f *Fake) Update(ctx context.Context, index, id string, doc map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update", index, id); err != nil {
		return err
	}
	index = f.resolve(index)
	if f.documents[index] == nil {
		f.documents[index] = make(map[string]map[string]any)
	}
	merged := make(map[string]any)
	for k, v := range f.documents[index][id] {
		merged[k] = v
	}
	for k, v := range doc {
		merged[k] = v
	}
	f.documents[index][id] = merged
	return nil
}

func (f *Fake) Delete(ctx context.Context, index, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete", index, id); err != nil {
		return err
	}
	index = f.resolve(index)
	if _, ok := f.documents[index][id]; !ok {
		return fmt.Errorf("document %q: %w", id, engine.ErrNotFound)
	}
	delete(f.documents[index], id)
	return nil
}

func (f *Fake) Search(ctx context.Context, index string, body map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("search", index, ""); err != nil {
		return nil, err
	}
	docs := f.documents[f.resolve(index)]
	hits := make([]any, 0, len(docs))
	for id, doc := range docs {
		hits = append(hits, map[string]any{"_id": id, "_source": doc})
	}
	return map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": uint64(len(hits))},
			"hits":  hits,
		},
	}, nil
}

func (f *Fake) MSearch(ctx context.Context, index string, bodies []map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(bodies))
	for _, body := range bodies {
		res, err := f.Search(ctx, index, body)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (f *Fake) Bulk(ctx context.Context, index string, ops []engine.BulkOp) (*engine.BulkResult, error) {
	f.mu.Lock()
	if err := f.record("bulk", index, ""); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	result := &engine.BulkResult{}
	for _, op := range ops {
		switch op.Action {
		case "index", "update":
			if err := f.Index(ctx, index, op.ID, op.Doc); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			result.Indexed++
		case "delete":
			if err := f.Delete(ctx, index, op.ID); err != nil && !engine.IsNotFound(err) {
				result.Errors = append(result.Errors, err)
				continue
			}
			result.Deleted++
		}
	}
	return result, nil
}

func (f *Fake) CreateIndex(ctx context.Context, index string, body map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create-index", index, ""); err != nil {
		return err
	}
	if _, ok := f.documents[index]; ok {
		return fmt.Errorf("index %q already exists", index)
	}
	f.documents[index] = make(map[string]map[string]any)
	return nil
}

func (f *Fake) IndexExists(ctx context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("index-exists", index, ""); err != nil {
		return false, err
	}
	_, ok := f.documents[index]
	return ok, nil
}

func (f *Fake) DeleteIndex(ctx context.Context, pattern string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete-index", pattern, ""); err != nil {
		return 0, err
	}
	deleted := 0
	for name := range f.documents {
		match := name == pattern
		if strings.ContainsAny(pattern, "*?") {
			match, _ = path.Match(pattern, name)
		}
		if match {
			delete(f.documents, name)
			for alias, target := range f.aliases {
				if target == name {
					delete(f.aliases, alias)
				}
			}
			deleted++
		}
	}
	return deleted, nil
}

func (f *Fake) AliasExists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("alias-exists", name, ""); err != nil {
		return false, err
	}
	_, ok := f.aliases[name]
	return ok, nil
}

func (f *Fake) GetAlias(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get-alias", name, ""); err != nil {
		return "", err
	}
	target, ok := f.aliases[name]
	if !ok {
		return "", fmt.Errorf("alias %q: %w", name, engine.ErrNotFound)
	}
	return target, nil
}

func (f *Fake) DeleteAlias(ctx context.Context, name, index string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete-alias", name, index); err != nil {
		return err
	}
	if f.aliases[name] != index {
		return fmt.Errorf("alias %q: %w", name, engine.ErrNotFound)
	}
	delete(f.aliases, name)
	return nil
}

func (f *Fake) UpdateAliases(ctx context.Context, actions []engine.AliasAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update-aliases", "", ""); err != nil {
		return err
	}
	for _, a := range actions {
		switch {
		case a.Add != nil:
			if _, ok := f.documents[a.Add.Index]; !ok {
				return fmt.Errorf("index %q: %w", a.Add.Index, engine.ErrNotFound)
			}
			f.aliases[a.Add.Alias] = a.Add.Index
		case a.Remove != nil:
			if f.aliases[a.Remove.Alias] == a.Remove.Index {
				delete(f.aliases, a.Remove.Alias)
			}
		}
	}
	return nil
}

func (f *Fake) PutMapping(ctx context.Context, index string, body map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("put-mapping", index, ""); err != nil {
		return err
	}
	if _, ok := f.documents[index]; !ok {
		return fmt.Errorf("index %q: %w", index, engine.ErrNotFound)
	}
	f.mappings[index] = body
	return nil
}

func (f *Fake) PutTemplate(ctx context.Context, name string, body map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("put-template", name, ""); err != nil {
		return err
	}
	f.templates[name] = body
	return nil
}

func (f *Fake) Health(ctx context.Context) (*engine.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("health", "", ""); err != nil {
		return nil, err
	}
	return &engine.Health{Status: "green", Indices: len(f.documents)}, nil
}

// DocCount returns the number of documents stored in an index.
func (f *Fake) DocCount(index string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.documents[f.resolve(index)])
}

// AliasTarget returns the alias target, empty if unset.
func (f *Fake) AliasTarget(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aliases[name]
}
