package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestSessionIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := GetSessionID(ctx); got != "" {
		t.Errorf("GetSessionID() on empty context = %q, want empty", got)
	}

	ctx = WithSessionID(ctx, "sess-1")
	if got := GetSessionID(ctx); got != "sess-1" {
		t.Errorf("GetSessionID() = %q, want %q", got, "sess-1")
	}

	ctx = WithSessionID(ctx, "")
	if got := GetSessionID(ctx); got != "" {
		t.Errorf("GetSessionID() with empty value = %q, want empty", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, ok := GetRequestID(ctx); ok {
		t.Error("GetRequestID() on empty context reported ok")
	}

	ctx = WithRequestID(ctx, "req-42")
	got, ok := GetRequestID(ctx)
	if !ok || got != "req-42" {
		t.Errorf("GetRequestID() = (%q, %v), want (%q, true)", got, ok, "req-42")
	}
}

func TestContextChaining(t *testing.T) {
	t.Parallel()

	ctx := WithRequestID(WithSessionID(context.Background(), "s"), "r")

	if got := GetSessionID(ctx); got != "s" {
		t.Errorf("session = %q, want %q", got, "s")
	}
	if got, _ := GetRequestID(ctx); got != "r" {
		t.Errorf("request = %q, want %q", got, "r")
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	parent = WithRequestID(WithSessionID(parent, "sess-9"), "req-9")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("detached context inherited cancellation: %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("detached context inherited deadline")
	}
	if got := GetSessionID(detached); got != "sess-9" {
		t.Errorf("session = %q, want %q", got, "sess-9")
	}
	if got, _ := GetRequestID(detached); got != "req-9" {
		t.Errorf("request = %q, want %q", got, "req-9")
	}
}

func TestPreserveTracing_Empty(t *testing.T) {
	t.Parallel()

	detached := PreserveTracing(context.Background())
	if GetSessionID(detached) != "" {
		t.Error("unexpected session id")
	}
	if _, ok := GetRequestID(detached); ok {
		t.Error("unexpected request id")
	}
}
