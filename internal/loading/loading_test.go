package loading

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingGauge struct {
	mu     sync.Mutex
	values []int
}

func (g *recordingGauge) SetLoadingOperations(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values = append(g.values, n)
}

func TestOverlappingOperations(t *testing.T) {
	t.Parallel()

	c := New(nil, nil)

	doneA := c.Begin()
	doneB := c.Begin()
	assert.True(t, c.Visible())

	// A finishing first must not hide the overlay while B is pending
	doneA()
	assert.True(t, c.Visible())
	assert.Equal(t, 1, c.Active())

	doneB()
	assert.False(t, c.Visible())
}

func TestDoneIsIdempotent(t *testing.T) {
	t.Parallel()

	c := New(nil, nil)

	doneA := c.Begin()
	doneB := c.Begin()
	doneA()
	doneA()

	assert.Equal(t, 1, c.Active())
	doneB()
	assert.Equal(t, 0, c.Active())
}

func TestTrack(t *testing.T) {
	t.Parallel()

	c := New(nil, nil)
	boom := errors.New("boom")

	err := c.Track(func() error {
		assert.True(t, c.Visible())
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, c.Visible())
}

func TestOnChangeFiresOnEdgesOnly(t *testing.T) {
	t.Parallel()

	var edges []bool
	c := New(nil, func(visible bool) { edges = append(edges, visible) })

	d1 := c.Begin()
	d2 := c.Begin()
	d1()
	d2()

	assert.Equal(t, []bool{true, false}, edges)
}

func TestGaugeAndZeroValue(t *testing.T) {
	t.Parallel()

	g := &recordingGauge{}
	c := New(g, nil)
	c.Begin()()
	assert.Equal(t, []int{1, 0}, g.values)

	var zero Coordinator
	done := zero.Begin()
	assert.True(t, zero.Visible())
	done()
	assert.False(t, zero.Visible())
}

func TestConcurrentOperations(t *testing.T) {
	t.Parallel()

	g := &recordingGauge{}
	var edges []bool
	c := New(g, func(visible bool) { edges = append(edges, visible) })
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			done := c.Begin()
			done()
		})
	}
	wg.Wait()

	assert.Equal(t, 0, c.Active())
	require.NotEmpty(t, g.values)
	assert.Zero(t, g.values[len(g.values)-1], "last published count must be the settled one")
	for i := 1; i < len(g.values); i++ {
		assert.InDelta(t, g.values[i-1], g.values[i], 1, "counts are published in order")
	}
	require.NotEmpty(t, edges)
	for i, visible := range edges {
		assert.Equal(t, i%2 == 0, visible, "edges alternate starting with visible")
	}
}
