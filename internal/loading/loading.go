// Package loading tracks in-flight asynchronous work for the blocking
// overlay. It is a reference count: the overlay stays visible until every
// operation that started has finished, regardless of completion order.
package loading

import "sync"

// Gauge receives the in-flight count after every change.
type Gauge interface {
	SetLoadingOperations(n int)
}

// Coordinator counts in-flight operations. The zero value is ready to use.
type Coordinator struct {
	mu       sync.Mutex
	active   int
	gauge    Gauge
	onChange func(visible bool)
}

// New creates a coordinator. gauge and onChange may be nil; onChange is
// invoked whenever visibility flips. Both are called with the coordinator
// locked, in the order the changes happened, and must not call back into it.
func New(gauge Gauge, onChange func(visible bool)) *Coordinator {
	return &Coordinator{gauge: gauge, onChange: onChange}
}

// Begin registers one operation and returns the function that ends it.
// Calling the returned function more than once has no further effect.
func (c *Coordinator) Begin() (done func()) {
	c.add(1)
	var once sync.Once
	return func() {
		once.Do(func() { c.add(-1) })
	}
}

// Track runs fn as one tracked operation.
func (c *Coordinator) Track(fn func() error) error {
	done := c.Begin()
	defer done()
	return fn()
}

// Active returns the number of in-flight operations.
func (c *Coordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Visible reports whether the overlay should be shown.
func (c *Coordinator) Visible() bool {
	return c.Active() > 0
}

func (c *Coordinator) add(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.active
	c.active += delta
	if c.active < 0 {
		c.active = 0
	}
	if c.gauge != nil {
		c.gauge.SetLoadingOperations(c.active)
	}
	if c.onChange != nil && (before == 0) != (c.active == 0) {
		c.onChange(c.active > 0)
	}
}
