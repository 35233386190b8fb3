// Package transport implements the dual transport surface (C14): a shared
// JSON-RPC-style request/response protocol and session dispatcher used by
// both the line-delimited stdio transport (internal/transport/stream) and
// the stateless HTTP transport (internal/transport/httptransport). Message
// shapes are grounded on the pack's MCP protocol types
// (BaSui01-agentflow agent/protocol/mcp/protocol.go's ServerInfo, Resource,
// ToolDefinition, PromptTemplate) reduced to the request/response envelope
// this server actually needs; the underlying RPC framing is deliberately
// kept to this package rather than adopting an external SDK sight-unseen
// (see DESIGN.md).
package transport

import (
	"context"
	"encoding/json"

	"github.com/kjstillabower/weathertools/internal/resources"
	"github.com/kjstillabower/weathertools/internal/tools"
)

// Request is one newline- or HTTP-body-delimited JSON-RPC-style frame.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the corresponding reply frame; exactly one of Result/Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the protocol-level error shape, distinct from a tool-level
// error envelope (§4.4 BuildErrorResponse): this is only used when the
// method itself is malformed or unknown, or a tool body panics (§4.12).
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type readResourceParams struct {
	URI string `json:"uri"`
}

type getPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

// Session dispatches one logical connection's requests against the shared
// tool registry and resource/prompt catalog. The HTTP transport constructs
// a fresh Session per request (§4.12 "stateless-mode contract"); the stream
// transport constructs exactly one for the process lifetime.
type Session struct {
	Registry *tools.Registry
	Catalog  *resources.Catalog
}

// NewSession builds a Session bound to the shared registry and catalog.
func NewSession(registry *tools.Registry, catalog *resources.Catalog) *Session {
	return &Session{Registry: registry, Catalog: catalog}
}

// Handle dispatches one request, recovering from any panic that escapes a
// tool body (which should not happen — bodies return envelopes) into the
// generic protocol-level error §4.12 mandates, without leaking internals.
func (s *Session) Handle(ctx context.Context, req Request) (resp Response) {
	resp.JSONRPC = "2.0"
	resp.ID = req.ID

	defer func() {
		if r := recover(); r != nil {
			resp.Result = nil
			resp.Error = &RPCError{Code: codeInternal, Message: "Internal server error"}
		}
	}()

	switch req.Method {
	case "tools/list":
		resp.Result = map[string]any{"tools": s.Registry.Names()}
	case "tools/call":
		var p callToolParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: "invalid tools/call params"}
			return resp
		}
		env := s.Registry.Dispatch(ctx, p.Name, p.Arguments)
		resp.Result = env
	case "resources/list":
		resp.Result = map[string]any{"resources": s.catalogList(ctx)}
	case "resources/read":
		var p readResourceParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.URI == "" {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: "invalid resources/read params"}
			return resp
		}
		r, ok := s.Catalog.Get(ctx, p.URI)
		if !ok {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: "unknown resource uri"}
			return resp
		}
		resp.Result = map[string]any{"contents": []resources.Resource{r}}
	case "prompts/list":
		resp.Result = map[string]any{"prompts": resources.Prompts()}
	case "prompts/get":
		var p getPromptParams
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: "invalid prompts/get params"}
			return resp
		}
		prompt, ok := findPrompt(p.Name)
		if !ok {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: "unknown prompt name"}
			return resp
		}
		resp.Result = map[string]any{"text": resources.Render(prompt, p.Arguments)}
	default:
		resp.Error = &RPCError{Code: codeMethodNotFound, Message: "unknown method: " + req.Method}
	}
	return resp
}

func (s *Session) catalogList(ctx context.Context) []resources.Resource {
	if s.Catalog == nil {
		return nil
	}
	return s.Catalog.List(ctx)
}

func findPrompt(name string) (resources.Prompt, bool) {
	for _, p := range resources.Prompts() {
		if p.Name == name {
			return p, true
		}
	}
	return resources.Prompt{}, false
}
