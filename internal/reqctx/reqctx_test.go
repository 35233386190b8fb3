package reqctx

import (
	"context"
	"testing"
	"time"
)

func TestNewGeneratesRequestIDWhenEmpty(t *testing.T) {
	_, b := New(context.Background(), "", "weather.get_forecast")
	if b.RequestID == "" {
		t.Fatal("expected a generated request id")
	}
	if b.ToolName != "weather.get_forecast" {
		t.Fatalf("tool name = %q", b.ToolName)
	}
}

func TestNewUsesProvidedRequestID(t *testing.T) {
	_, b := New(context.Background(), "fixed-id", "weather.get_forecast")
	if b.RequestID != "fixed-id" {
		t.Fatalf("RequestID = %q, want fixed-id", b.RequestID)
	}
}

func TestNewChildInheritsRequestIDFromParent(t *testing.T) {
	ctx, parent := New(context.Background(), "", "weather.assess_activity_window")
	childCtx, child := NewChild(ctx, "weather.get_forecast")

	if child.RequestID != parent.RequestID {
		t.Fatalf("child RequestID = %q, want parent's %q", child.RequestID, parent.RequestID)
	}
	if child.ToolName != "weather.get_forecast" {
		t.Fatalf("child ToolName = %q", child.ToolName)
	}
	if got, ok := From(childCtx); !ok || got != child {
		t.Fatal("childCtx should carry the child binding")
	}
}

func TestNewChildTakesFreshStartTime(t *testing.T) {
	ctx, parent := New(context.Background(), "", "weather.assess_route_risk")
	time.Sleep(5 * time.Millisecond)
	_, child := NewChild(ctx, "weather.get_marine")

	if !child.StartTime.After(parent.StartTime) {
		t.Fatalf("child StartTime %v should be after parent StartTime %v", child.StartTime, parent.StartTime)
	}
}

func TestNewChildWithNoParentBindingGeneratesFreshRequestID(t *testing.T) {
	_, child := NewChild(context.Background(), "weather.get_forecast")
	if child.RequestID == "" {
		t.Fatal("expected a generated request id when there is no parent binding")
	}
}

func TestCurrentRequestIDAndToolName(t *testing.T) {
	ctx, b := New(context.Background(), "req-7", "weather.get_nowcast")
	if got := CurrentRequestID(ctx); got != b.RequestID {
		t.Fatalf("CurrentRequestID = %q, want %q", got, b.RequestID)
	}
	if got := CurrentToolName(ctx); got != b.ToolName {
		t.Fatalf("CurrentToolName = %q, want %q", got, b.ToolName)
	}
}

func TestCurrentRequestIDEmptyOutsideBinding(t *testing.T) {
	if got := CurrentRequestID(context.Background()); got != "" {
		t.Fatalf("CurrentRequestID = %q, want empty", got)
	}
	if got := CurrentToolName(context.Background()); got != "" {
		t.Fatalf("CurrentToolName = %q, want empty", got)
	}
}
