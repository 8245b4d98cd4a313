package executor

import "log/slog"

// Observer receives the executor's request lifecycle notifications. Observers
// run in registration order; BeforeRequest may mutate the request in place or
// short-circuit the call entirely (caching).
type Observer interface {
	// BeforeRequest runs before dispatch. Returning handled=true skips the
	// engine call and uses result as the outcome.
	BeforeRequest(req *Request) (handled bool, result any, err error)

	// AfterResult runs after a successful call with the engine's response.
	AfterResult(req *Request, result any)

	// OnError runs after a failed call. expected marks benign failures
	// (missing document or index on delete/get).
	OnError(req *Request, err error, expected bool)
}

// BaseObserver is a no-op Observer for embedding.
type BaseObserver struct{}

func (BaseObserver) BeforeRequest(*Request) (bool, any, error) { return false, nil, nil }
func (BaseObserver) AfterResult(*Request, any)                 {}
func (BaseObserver) OnError(*Request, error, bool)             {}

// LoggingObserver logs every request outcome. Unexpected failures log at
// Error, expected ones at Debug.
type LoggingObserver struct {
	BaseObserver
	Logger *slog.Logger
}

func (o *LoggingObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *LoggingObserver) AfterResult(req *Request, result any) {
	o.logger().Debug("engine operation completed", "operation", req.Operation, "index", req.Index, "id", req.DocumentID)
}

func (o *LoggingObserver) OnError(req *Request, err error, expected bool) {
	if expected {
		o.logger().Debug("engine operation target missing", "operation", req.Operation, "index", req.Index, "id", req.DocumentID, "error", err)
		return
	}
	o.logger().Error("engine operation failed", "operation", req.Operation, "index", req.Index, "id", req.DocumentID, "error", err)
}

// LegacyTypeStripper removes the legacy document type parameter before
// dispatch; newer engines reject it.
type LegacyTypeStripper struct {
	BaseObserver
}

func (LegacyTypeStripper) BeforeRequest(req *Request) (bool, any, error) {
	delete(req.Params, "type")
	return false, nil, nil
}
