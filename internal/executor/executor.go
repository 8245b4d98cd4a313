// Package executor wraps every search-engine call in a request object with
// index-name resolution, id extraction and observer notifications.
package executor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/indexsync/indexsync/internal/engine"
	"github.com/indexsync/indexsync/internal/schema"
)

// Operation names as they appear in request notifications.
const (
	OpIndex       = "index"
	OpGet         = "get"
	OpUpsert      = "upsert"
	OpDelete      = "delete"
	OpSearch      = "search"
	OpMSearch     = "msearch"
	OpBulk        = "bulk"
	OpCreateIndex = "create-index"
	OpIndexExists = "index-exists"
	OpDropIndex   = "drop-index"
	OpPutMapping  = "put-mapping"
	OpPutTemplate = "put-template"
	OpHealth      = "health"
)

// Request describes one in-flight engine call. Observers may mutate Params
// and Body before dispatch; Index and DocumentID are already resolved.
type Request struct {
	// Operation is the request name.
	Operation string

	// Index is the resolved physical index, alias name or pattern.
	Index string

	// DocumentID is the target document id, empty when the engine assigns.
	DocumentID string

	// Body is the document or query payload.
	Body map[string]any

	// Params carries auxiliary request parameters (e.g. the legacy type).
	Params map[string]any
}

// Executor dispatches engine operations. It holds no cross-call state beyond
// the observer list; side effects run through the notifications.
type Executor struct {
	engine    engine.Engine
	observers []Observer
}

// New creates an executor around an engine.
func New(eng engine.Engine, observers ...Observer) *Executor {
	return &Executor{engine: eng, observers: observers}
}

// AddObserver appends an observer. Not safe to call concurrently with
// in-flight operations.
func (e *Executor) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// dispatch runs the observer lifecycle around one engine call.
func (e *Executor) dispatch(req *Request, call func() (any, error)) (any, error) {
	for _, o := range e.observers {
		handled, result, err := o.BeforeRequest(req)
		if err != nil {
			return nil, err
		}
		if handled {
			return result, nil
		}
	}

	result, err := call()
	if err != nil {
		expected := e.expected(req, err)
		for _, o := range e.observers {
			o.OnError(req, err, expected)
		}
		return nil, err
	}
	for _, o := range e.observers {
		o.AfterResult(req, result)
	}
	return result, nil
}

// expected classifies a failure as benign: a missing target on operations
// whose intent the absence already satisfies or legitimately answers.
func (e *Executor) expected(req *Request, err error) bool {
	if !engine.IsNotFound(err) {
		return false
	}
	switch req.Operation {
	case OpDelete, OpDropIndex, OpGet:
		return true
	}
	return false
}

// DocumentID extracts the reserved id field from a document. String and
// numeric values qualify; anything else leaves the id unset so the engine
// assigns one.
func DocumentID(doc map[string]any) string {
	switch v := doc["id"].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

// Index resolves the name template against the document and stores it.
func (e *Executor) Index(ctx context.Context, nameTemplate string, doc map[string]any) error {
	name, err := ResolveName(nameTemplate, doc)
	if err != nil {
		return err
	}
	req := &Request{Operation: OpIndex, Index: name, DocumentID: DocumentID(doc), Body: doc, Params: map[string]any{}}
	_, err = e.dispatch(req, func() (any, error) {
		return nil, e.engine.Index(ctx, req.Index, req.DocumentID, req.Body)
	})
	return err
}

// Get retrieves a document. The name template is resolved against values.
func (e *Executor) Get(ctx context.Context, nameTemplate string, values map[string]any, id string) (map[string]any, error) {
	name, err := ResolveName(nameTemplate, values)
	if err != nil {
		return nil, err
	}
	req := &Request{Operation: OpGet, Index: name, DocumentID: id, Params: map[string]any{}}
	result, err := e.dispatch(req, func() (any, error) {
		return e.engine.Get(ctx, req.Index, req.DocumentID)
	})
	if err != nil {
		return nil, err
	}
	doc, _ := result.(map[string]any)
	return doc, nil
}

// Upsert applies a partial update with doc-as-upsert semantics.
func (e *Executor) Upsert(ctx context.Context, nameTemplate string, doc map[string]any) error {
	name, err := ResolveName(nameTemplate, doc)
	if err != nil {
		return err
	}
	id := DocumentID(doc)
	if id == "" {
		return fmt.Errorf("upsert requires a document id")
	}
	req := &Request{Operation: OpUpsert, Index: name, DocumentID: id, Body: doc, Params: map[string]any{"doc_as_upsert": true}}
	_, err = e.dispatch(req, func() (any, error) {
		return nil, e.engine.Update(ctx, req.Index, req.DocumentID, req.Body)
	})
	return err
}

// Delete removes a document. A missing document or index is
// success-equivalent: there is nothing left to delete.
func (e *Executor) Delete(ctx context.Context, nameTemplate string, values map[string]any, id string) error {
	name, err := ResolveName(nameTemplate, values)
	if err != nil {
		return err
	}
	req := &Request{Operation: OpDelete, Index: name, DocumentID: id, Params: map[string]any{}}
	_, err = e.dispatch(req, func() (any, error) {
		return nil, e.engine.Delete(ctx, req.Index, req.DocumentID)
	})
	if engine.IsNotFound(err) {
		return nil
	}
	return err
}

// Search runs a query against the resolved index or alias.
func (e *Executor) Search(ctx context.Context, nameTemplate string, values map[string]any, body map[string]any) (map[string]any, error) {
	name, err := ResolveName(nameTemplate, values)
	if err != nil {
		return nil, err
	}
	req := &Request{Operation: OpSearch, Index: name, Body: body, Params: map[string]any{}}
	result, err := e.dispatch(req, func() (any, error) {
		return e.engine.Search(ctx, req.Index, req.Body)
	})
	if err != nil {
		return nil, err
	}
	res, _ := result.(map[string]any)
	return res, nil
}

// MSearch runs several queries against the resolved index.
func (e *Executor) MSearch(ctx context.Context, nameTemplate string, values map[string]any, bodies []map[string]any) ([]map[string]any, error) {
	name, err := ResolveName(nameTemplate, values)
	if err != nil {
		return nil, err
	}
	req := &Request{Operation: OpMSearch, Index: name, Params: map[string]any{}}
	result, err := e.dispatch(req, func() (any, error) {
		return e.engine.MSearch(ctx, req.Index, bodies)
	})
	if err != nil {
		return nil, err
	}
	res, _ := result.([]map[string]any)
	return res, nil
}

// Bulk applies a batch of document operations against the resolved index.
func (e *Executor) Bulk(ctx context.Context, nameTemplate string, values map[string]any, ops []engine.BulkOp) (*engine.BulkResult, error) {
	name, err := ResolveName(nameTemplate, values)
	if err != nil {
		return nil, err
	}
	req := &Request{Operation: OpBulk, Index: name, Params: map[string]any{}}
	result, err := e.dispatch(req, func() (any, error) {
		return e.engine.Bulk(ctx, req.Index, ops)
	})
	if err != nil {
		return nil, err
	}
	res, _ := result.(*engine.BulkResult)
	return res, nil
}

// CreateIndex creates a physical index from an index definition. The legacy
// type name travels as a request parameter so observers can strip it.
func (e *Executor) CreateIndex(ctx context.Context, name string, def *schema.IndexDefinition) error {
	req := &Request{Operation: OpCreateIndex, Index: name, Body: def.ToMap(), Params: map[string]any{}}
	if def.TypeName != "" {
		req.Params["type"] = def.TypeName
	}
	_, err := e.dispatch(req, func() (any, error) {
		return nil, e.engine.CreateIndex(ctx, req.Index, req.Body)
	})
	return err
}

// IndexExists verifies a physical index exists.
func (e *Executor) IndexExists(ctx context.Context, name string) (bool, error) {
	req := &Request{Operation: OpIndexExists, Index: name, Params: map[string]any{}}
	result, err := e.dispatch(req, func() (any, error) {
		return e.engine.IndexExists(ctx, req.Index)
	})
	if err != nil {
		return false, err
	}
	exists, _ := result.(bool)
	return exists, nil
}

// DropAll deletes every physical index the name template can resolve to by
// substituting every placeholder with a wildcard. Returns how many indices
// were deleted.
func (e *Executor) DropAll(ctx context.Context, nameTemplate string) (int, error) {
	pattern := ResolvePattern(nameTemplate)
	req := &Request{Operation: OpDropIndex, Index: pattern, Params: map[string]any{}}
	result, err := e.dispatch(req, func() (any, error) {
		return e.engine.DeleteIndex(ctx, req.Index)
	})
	if err != nil {
		if engine.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	n, _ := result.(int)
	return n, nil
}

// PutMapping updates an index's field mapping.
func (e *Executor) PutMapping(ctx context.Context, name string, mapping *schema.MappingDefinition) error {
	req := &Request{Operation: OpPutMapping, Index: name, Body: mapping.ToMap(), Params: map[string]any{}}
	_, err := e.dispatch(req, func() (any, error) {
		return nil, e.engine.PutMapping(ctx, req.Index, req.Body)
	})
	return err
}

// PutTemplate registers an index template.
func (e *Executor) PutTemplate(ctx context.Context, name string, body map[string]any) error {
	req := &Request{Operation: OpPutTemplate, Index: name, Body: body, Params: map[string]any{}}
	_, err := e.dispatch(req, func() (any, error) {
		return nil, e.engine.PutTemplate(ctx, name, req.Body)
	})
	return err
}

// Health reports engine availability.
func (e *Executor) Health(ctx context.Context) (*engine.Health, error) {
	req := &Request{Operation: OpHealth, Params: map[string]any{}}
	result, err := e.dispatch(req, func() (any, error) {
		return e.engine.Health(ctx)
	})
	if err != nil {
		return nil, err
	}
	h, _ := result.(*engine.Health)
	return h, nil
}

// Engine exposes the wrapped engine for components that need raw alias
// operations (the alias/version manager).
func (e *Executor) Engine() engine.Engine {
	return e.engine
}
