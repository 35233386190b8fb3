// Package tools implements the tool registry and the single instrumentation
// wrapper (C8) applied to every registered tool, plus the eight tool bodies
// themselves (C9-C12). Grounded on the teacher's HTTP handler layer
// (internal/http/handlers.go) for the dependency-holding-struct shape, and
// on internal/reqctx + internal/observability for the instrumentation steps
// the wrapper performs.
package tools

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathertools/internal/attribution"
	"github.com/kjstillabower/weathertools/internal/models"
	"github.com/kjstillabower/weathertools/internal/observability"
	"github.com/kjstillabower/weathertools/internal/reqctx"
	"github.com/kjstillabower/weathertools/internal/toolerr"
)

// Tool is one registered tool body. Implementations must not panic except
// for genuine programmer error; the wrapper treats a panic as INTERNAL_ERROR
// per §4.8 step 11.
type Tool interface {
	Name() string
	Call(ctx context.Context, raw json.RawMessage) attribution.Envelope
}

// Registry dispatches tool calls by name through the wrapper.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds t to the registry.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Dispatch runs the named tool through the wrapper, or returns an
// INVALID_INPUT error envelope when the name is unknown.
func (r *Registry) Dispatch(ctx context.Context, name string, raw json.RawMessage) attribution.Envelope {
	t, ok := r.tools[name]
	if !ok {
		return attribution.BuildErrorResponse(toolerr.Invalid("unknown tool %q", name))
	}
	return r.wrap(ctx, t, raw)
}

// sanitizedKeys is the §4.8 step 3 whitelist; no other input field is ever
// logged.
var sanitizedKeys = []string{
	"location", "timeWindow", "resolution", "language",
	"activityType", "vesselType", "query", "limit",
}

// wrap is the C8 tool wrapper: request context, start/end logs, metrics,
// cache-status extraction. Every tool call passes through here exactly once.
func (r *Registry) wrap(ctx context.Context, t Tool, raw json.RawMessage) (env attribution.Envelope) {
	name := t.Name()
	ctx, rc := reqctx.NewChild(ctx, name)
	start := rc.StartTime

	ctx, span := observability.StartToolSpan(ctx, name, rc.RequestID)

	r.logStart(rc.RequestID, name, raw)

	defer func() {
		if rec := recover(); rec != nil {
			latencyMs := float64(time.Since(start).Milliseconds())
			r.logEnd(rc.RequestID, name, latencyMs, "error", models.ErrInternal)
			observability.RecordToolCall(name, "error", latencyMs)
			observability.EndToolSpan(span, "error")
			panic(rec) // re-raise: the transport's own recover turns this into the protocol-level error (§4.8, §4.12)
		}
	}()

	env = t.Call(ctx, raw)

	latencyMs := float64(time.Since(start).Milliseconds())
	outcome := "success"
	var errCode models.ErrorCode
	if env.IsError {
		outcome = "error"
		if rec, ok := env.Structured["error"].(models.ErrorRecord); ok {
			errCode = rec.Code
		}
	}
	r.logEnd(rc.RequestID, name, latencyMs, outcome, errCode)
	observability.RecordToolCall(name, outcome, latencyMs)
	observability.EndToolSpan(span, outcome)

	// Cache-status counting (§4.7's HIT/MISS/EXPIRED/BYPASS counter) happens
	// once, at the engine's own fetch site (internal/upstream/engine.go),
	// where the real per-response header status is available. Recording it
	// again here from the collapsed source.cached bool would both double
	// count the same upstream call and relabel EXPIRED/BYPASS responses as
	// HIT/MISS.

	return env
}

func (r *Registry) logStart(requestID, tool string, raw json.RawMessage) {
	if r.logger == nil {
		return
	}
	fields := []zap.Field{zap.String("requestId", requestID), zap.String("tool", tool)}
	fields = append(fields, sanitizedInputFields(raw)...)
	r.logger.Info("tool.start", fields...)
}

func (r *Registry) logEnd(requestID, tool string, latencyMs float64, outcome string, errCode models.ErrorCode) {
	if r.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("requestId", requestID),
		zap.String("tool", tool),
		zap.Float64("latencyMs", latencyMs),
		zap.String("outcome", outcome),
	}
	if errCode != "" {
		fields = append(fields, zap.String("errorCode", string(errCode)))
	}
	r.logger.Info("tool.end", fields...)
}

// sanitizedInputFields extracts only the whitelisted top-level keys from raw
// into zap fields, raw-JSON-encoded (never interpreted further).
func sanitizedInputFields(raw json.RawMessage) []zap.Field {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	var fields []zap.Field
	for _, k := range sanitizedKeys {
		if v, ok := m[k]; ok {
			fields = append(fields, zap.String(k, string(v)))
		}
	}
	return fields
}
