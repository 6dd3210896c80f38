package sentry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/lnmu-portal/internal/ctxutil"
)

func TestInitialize_EmptyDSN(t *testing.T) {
	require.NoError(t, Initialize(Config{}))
}

func TestInitialize_InvalidDSN(t *testing.T) {
	assert.Error(t, Initialize(Config{DSN: "not a dsn"}))
}

func TestInitialize_ValidConfig(t *testing.T) {
	// Sentry keeps global state, so no t.Parallel().
	err := Initialize(Config{
		DSN:         "https://public@example.com/1",
		Environment: "test",
	})
	require.NoError(t, err)
	assert.True(t, IsEnabled())

	Flush(time.Second)
}

type capturedEvents struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *capturedEvents) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func hubContext(t *testing.T) (context.Context, *capturedEvents) {
	t.Helper()
	captured := &capturedEvents{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        "https://public@example.com/1",
		BeforeSend: captured.beforeSend,
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub), captured
}

func TestCaptureWarning_TagsSession(t *testing.T) {
	ctx, captured := hubContext(t)
	ctx = ctxutil.WithRequestID(ctxutil.WithSessionID(ctx, "sess-1"), "req-1")

	CaptureWarning(ctx, errors.New("backend down"))

	require.Len(t, captured.events, 1)
	event := captured.events[0]
	assert.Equal(t, sentry.LevelWarning, event.Level)
	assert.Equal(t, "sess-1", event.Tags["session_id"])
	assert.Equal(t, "req-1", event.Tags["request_id"])
}

func TestCaptureException_Level(t *testing.T) {
	ctx, captured := hubContext(t)

	CaptureException(ctx, errors.New("export failed"))

	require.Len(t, captured.events, 1)
	assert.Equal(t, sentry.LevelError, captured.events[0].Level)
}

func TestCapture_NilError(t *testing.T) {
	ctx, captured := hubContext(t)

	CaptureWarning(ctx, nil)

	assert.Empty(t, captured.events)
}
