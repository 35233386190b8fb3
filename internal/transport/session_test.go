package transport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kjstillabower/weathertools/internal/attribution"
	"github.com/kjstillabower/weathertools/internal/resources"
	"github.com/kjstillabower/weathertools/internal/tools"
)

type echoTool struct{}

func (echoTool) Name() string { return "test.echo" }

func (echoTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	return attribution.BuildToolResponse(map[string]any{"echo": string(raw)}, "ok")
}

type panicTool struct{}

func (panicTool) Name() string { return "test.panic" }

func (panicTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	panic("boom")
}

func newTestSession() *Session {
	reg := tools.NewRegistry(nil)
	reg.Register(echoTool{})
	reg.Register(panicTool{})
	catalog := resources.NewCatalog(nil, "2026-01-01")
	return NewSession(reg, catalog)
}

func TestHandleToolsList(t *testing.T) {
	s := newTestSession()
	resp := s.Handle(context.Background(), Request{JSONRPC: "2.0", Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	m, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T, want map", resp.Result)
	}
	names, ok := m["tools"].([]string)
	if !ok || len(names) != 2 {
		t.Fatalf("tools = %v, want 2 entries", m["tools"])
	}
}

func TestHandleToolsCallDispatchesToRegistry(t *testing.T) {
	s := newTestSession()
	params, _ := json.Marshal(callToolParams{Name: "test.echo", Arguments: json.RawMessage(`{"a":1}`)})
	resp := s.Handle(context.Background(), Request{Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	env, ok := resp.Result.(attribution.Envelope)
	if !ok {
		t.Fatalf("result type = %T, want Envelope", resp.Result)
	}
	if env.IsError {
		t.Fatalf("unexpected error envelope: %+v", env)
	}
}

func TestHandleToolsCallUnknownMethodParams(t *testing.T) {
	s := newTestSession()
	resp := s.Handle(context.Background(), Request{Method: "tools/call", Params: json.RawMessage(`not json`)})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params error, got %+v", resp.Error)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	s := newTestSession()
	resp := s.Handle(context.Background(), Request{Method: "nope"})
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestHandleRecoversFromPanic(t *testing.T) {
	s := newTestSession()
	params, _ := json.Marshal(callToolParams{Name: "test.panic", Arguments: json.RawMessage(`{}`)})
	resp := s.Handle(context.Background(), Request{Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.Code != codeInternal {
		t.Fatalf("expected internal error after panic, got %+v", resp.Error)
	}
	if resp.Error.Message != "Internal server error" {
		t.Errorf("error message = %q, want the generic protocol-level message (no leaked internals)", resp.Error.Message)
	}
}

func TestHandleResourcesReadUnknownURI(t *testing.T) {
	s := newTestSession()
	params, _ := json.Marshal(readResourceParams{URI: "weather://nope"})
	resp := s.Handle(context.Background(), Request{Method: "resources/read", Params: params})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params error, got %+v", resp.Error)
	}
}

func TestHandlePromptsGet(t *testing.T) {
	s := newTestSession()
	params, _ := json.Marshal(getPromptParams{Name: "plan_outdoor_activity", Arguments: map[string]string{"location": "Oslo", "activity": "running"}})
	resp := s.Handle(context.Background(), Request{Method: "prompts/get", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}
