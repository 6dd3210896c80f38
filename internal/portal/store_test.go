package portal

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gaugeStub struct {
	n atomic.Int32
}

func (g *gaugeStub) SetActiveSessions(n int) { g.n.Store(int32(n)) }

func newTestStore(t *testing.T, idle time.Duration) (*Store, *gaugeStub) {
	t.Helper()
	gauge := &gaugeStub{}
	st := NewStore(func(id string) (*Session, error) {
		return NewSession(id, Options{Backend: newGatedBackend()})
	}, idle, gauge, nil)
	return st, gauge
}

func TestStore_CreateGetDelete(t *testing.T) {
	t.Parallel()

	st, gauge := newTestStore(t, time.Minute)

	s, err := st.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, int32(1), gauge.n.Load())

	got, ok := st.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	other, err := st.Create()
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), other.ID())
	assert.Equal(t, 2, st.Len())

	assert.True(t, st.Delete(s.ID()))
	assert.False(t, st.Delete(s.ID()))
	_, ok = st.Get(s.ID())
	assert.False(t, ok)
	assert.Equal(t, int32(1), gauge.n.Load())
}

func TestStore_FactoryError(t *testing.T) {
	t.Parallel()

	st := NewStore(func(string) (*Session, error) {
		return nil, errors.New("boom")
	}, time.Minute, nil, nil)

	_, err := st.Create()
	assert.Error(t, err)
	assert.Zero(t, st.Len())
}

func TestStore_SweepRemovesIdle(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t, time.Minute)

	idle, err := st.Create()
	require.NoError(t, err)
	fresh, err := st.Create()
	require.NoError(t, err)

	now := time.Now().Add(2 * time.Minute)
	_, err = fresh.Search(context.Background(), "")
	require.NoError(t, err)
	// fresh was touched after idle but both predate now-idle
	assert.Equal(t, 2, st.Sweep(now))
	assert.Zero(t, st.Len())

	_, ok := st.Get(idle.ID())
	assert.False(t, ok)
}

func TestStore_SweepKeepsActive(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t, time.Minute)

	_, err := st.Create()
	require.NoError(t, err)

	assert.Zero(t, st.Sweep(time.Now()))
	assert.Equal(t, 1, st.Len())
}

func TestStore_NoIdleTimeout(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t, 0)

	_, err := st.Create()
	require.NoError(t, err)
	assert.Zero(t, st.Sweep(time.Now().Add(24*time.Hour)))
}

func TestStore_RunStopsWithContext(t *testing.T) {
	t.Parallel()

	st, _ := newTestStore(t, time.Nanosecond)
	_, err := st.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
