package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/garyellow/lnmu-portal/internal/ctxutil"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info("test message")

	entry := decode(t, &buf)
	for _, field := range []string{"timestamp", "level", "message"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("JSON log missing required field %q", field)
		}
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want %q", entry["level"], "info")
	}
}

func TestLogger_WarnLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter("info", &buf).Warn("careful")

	if got := decode(t, &buf)["level"]; got != "warning" {
		t.Errorf("level = %v, want warning", got)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %s", buf.String())
	}
}

func TestLogger_WithModule(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter("info", &buf).WithModule("cascade").Info("test message")

	if got := decode(t, &buf)["module"]; got != "cascade" {
		t.Errorf("module = %v, want %q", got, "cascade")
	}
}

func TestLogger_WithError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter("info", &buf).WithError(errors.New("boom")).Error("operation failed")

	if got := decode(t, &buf)["error"]; got != "boom" {
		t.Errorf("error = %v, want %q", got, "boom")
	}
}

func TestLogger_WithFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter("info", &buf).
		WithField("page", 2).
		WithFields(map[string]any{"year": "2023", "college": "CM"}).
		Info("fetch")

	entry := decode(t, &buf)
	if entry["page"] != float64(2) {
		t.Errorf("page = %v, want 2", entry["page"])
	}
	if entry["year"] != "2023" || entry["college"] != "CM" {
		t.Errorf("fields missing: %v", entry)
	}
}

func TestLogger_ContextIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	ctx := ctxutil.WithRequestID(ctxutil.WithSessionID(context.Background(), "sess-1"), "req-1")
	log.InfoContext(ctx, "scoped")

	entry := decode(t, &buf)
	if entry["session_id"] != "sess-1" {
		t.Errorf("session_id = %v, want sess-1", entry["session_id"])
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
}

func TestLogger_ContextWithoutIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter("info", &buf).InfoContext(context.Background(), "plain")

	entry := decode(t, &buf)
	if _, ok := entry["session_id"]; ok {
		t.Error("unexpected session_id")
	}
	if _, ok := entry["request_id"]; ok {
		t.Error("unexpected request_id")
	}
}

func TestLogger_Formatted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter("info", &buf).Infof("page %d of %d", 2, 3)

	if got := decode(t, &buf)["message"]; got != "page 2 of 3" {
		t.Errorf("message = %v", got)
	}
}

func TestLogger_ShutdownWithoutRemote(t *testing.T) {
	t.Parallel()

	if err := Discard().Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v, want nil", err)
	}
	var nilLogger *Logger
	if err := nilLogger.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown() = %v, want nil", err)
	}
}

// recordingHandler collects messages for assertions.
type recordingHandler struct {
	mu    sync.Mutex
	msgs  []string
	level slog.Level
	delay time.Duration
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func TestFanoutHandler(t *testing.T) {
	t.Parallel()

	debug := &recordingHandler{level: slog.LevelDebug}
	errOnly := &recordingHandler{level: slog.LevelError}
	log := slog.New(newFanoutHandler(debug, nil, errOnly))

	log.Debug("d")
	log.Error("e")

	if got := debug.messages(); len(got) != 2 {
		t.Errorf("debug handler got %v, want 2 records", got)
	}
	if got := errOnly.messages(); len(got) != 1 || got[0] != "e" {
		t.Errorf("error handler got %v, want [e]", got)
	}
}

func TestAsyncHandler_DrainsOnShutdown(t *testing.T) {
	t.Parallel()

	inner := &recordingHandler{level: slog.LevelDebug, delay: time.Millisecond}
	h := newAsyncHandler(inner, 64)
	log := slog.New(h)

	for range 10 {
		log.Info("queued")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.shutdown(ctx); err != nil {
		t.Fatalf("shutdown() = %v", err)
	}
	if got := len(inner.messages()); got != 10 {
		t.Errorf("drained %d records, want 10", got)
	}

	log.Info("after shutdown")
	if got := len(inner.messages()); got != 10 {
		t.Errorf("record accepted after shutdown")
	}
	if err := h.shutdown(ctx); err != nil {
		t.Errorf("second shutdown() = %v, want nil", err)
	}
}
