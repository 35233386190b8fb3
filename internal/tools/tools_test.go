package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kjstillabower/weathertools/internal/attribution"
)

type fakeTool struct {
	name string
	fn   func(ctx context.Context, raw json.RawMessage) attribution.Envelope
}

func (f *fakeTool) Name() string { return f.name }
func (f *fakeTool) Call(ctx context.Context, raw json.RawMessage) attribution.Envelope {
	return f.fn(ctx, raw)
}

func TestDispatchUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	env := r.Dispatch(context.Background(), "nope.does_not_exist", json.RawMessage(`{}`))
	if !env.IsError {
		t.Fatal("expected error envelope for unknown tool")
	}
	rec, ok := env.Structured["error"]
	if !ok {
		t.Fatal("expected structured error field")
	}
	_ = rec
}

func TestDispatchSuccess(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&fakeTool{name: "t.ok", fn: func(ctx context.Context, raw json.RawMessage) attribution.Envelope {
		return attribution.BuildToolResponse(map[string]any{"x": 1}, "ok")
	}})
	env := r.Dispatch(context.Background(), "t.ok", json.RawMessage(`{}`))
	if env.IsError {
		t.Fatal("expected success envelope")
	}
}

func TestWrapRecoversPanicAndRePanics(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&fakeTool{name: "t.panics", fn: func(ctx context.Context, raw json.RawMessage) attribution.Envelope {
		panic("boom")
	}})

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic to propagate out of Dispatch")
		}
		if rec != "boom" {
			t.Errorf("recovered value = %v, want %q", rec, "boom")
		}
	}()
	r.Dispatch(context.Background(), "t.panics", json.RawMessage(`{}`))
	t.Fatal("unreachable: Dispatch should have panicked")
}

func TestNamesPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&fakeTool{name: "a"})
	r.Register(&fakeTool{name: "b"})
	r.Register(&fakeTool{name: "a"}) // re-register does not duplicate or reorder
	got := r.Names()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", got)
	}
}

func TestSanitizedInputFieldsOnlyWhitelisted(t *testing.T) {
	raw := json.RawMessage(`{"location": {"lat":1,"lon":2}, "secretToken": "shh", "query": "oslo"}`)
	fields := sanitizedInputFields(raw)
	keys := map[string]bool{}
	for _, f := range fields {
		keys[f.Key] = true
	}
	if !keys["location"] || !keys["query"] {
		t.Errorf("expected location and query to be logged, got %v", keys)
	}
	if keys["secretToken"] {
		t.Error("secretToken must never be logged")
	}
}
