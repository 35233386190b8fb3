// Package reqctx carries the per-call request context (§4.6): a request id,
// tool name, and start time threaded through context.Context. It generalises
// the teacher's correlation-ID-in-context pattern (internal/http/middleware.go)
// from a single string value to the full binding the tool wrapper needs, and
// is the explicit-context-value answer to the source's task-local binding
// (see SPEC_FULL.md Design Notes §9).
package reqctx

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const bindingKey ctxKey = 0

// Context is the immutable per-call binding established at tool entry.
// No mutation after creation: sub-calls get a new binding from NewChild,
// which keeps the parent's request id and sets its own tool name and start time.
type Context struct {
	RequestID string
	ToolName  string
	StartTime time.Time
}

// New creates a fresh binding and returns a context.Context carrying it.
// If requestID is empty, a uuid is generated.
func New(parent context.Context, requestID, toolName string) (context.Context, *Context) {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	b := &Context{
		RequestID: requestID,
		ToolName:  toolName,
		StartTime: time.Now(),
	}
	return context.WithValue(parent, bindingKey, b), b
}

// NewChild establishes a sub-call binding that inherits the parent's request
// id but carries its own tool name and its own start time (so the wrapper's
// per-call latency measurement reflects the sub-call alone, not the elapsed
// time since the outer call began). Used by composite tools (§4.10) invoking
// other tools through the same wrapper, and by the top-level wrapper itself
// (where there is no parent binding yet, so it behaves exactly like New).
func NewChild(parent context.Context, toolName string) (context.Context, *Context) {
	requestID := ""
	if b, ok := From(parent); ok {
		requestID = b.RequestID
	}
	return New(parent, requestID, toolName)
}

// From returns the binding carried by ctx, if any.
func From(ctx context.Context) (*Context, bool) {
	b, ok := ctx.Value(bindingKey).(*Context)
	return b, ok
}

// CurrentRequestID returns the request id bound to ctx, or "" if none.
// The contract in §4.6 is that within a tool call this is always defined;
// callers outside a tool call (e.g. unit tests constructing ctx directly)
// see the zero value.
func CurrentRequestID(ctx context.Context) string {
	if b, ok := From(ctx); ok {
		return b.RequestID
	}
	return ""
}

// CurrentToolName returns the tool name bound to ctx, or "" if none.
func CurrentToolName(ctx context.Context) string {
	if b, ok := From(ctx); ok {
		return b.ToolName
	}
	return ""
}
