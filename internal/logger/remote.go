package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

const defaultAsyncBuffer = 512

// fanoutHandler sends each record to every handler enabled for its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	h := &fanoutHandler{}
	for _, handler := range handlers {
		if handler != nil {
			h.handlers = append(h.handlers, handler)
		}
	}
	return h
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			errs = append(errs, handler.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &fanoutHandler{handlers: make([]slog.Handler, len(h.handlers))}
	for i, handler := range h.handlers {
		next.handlers[i] = handler.WithAttrs(attrs)
	}
	return next
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := &fanoutHandler{handlers: make([]slog.Handler, len(h.handlers))}
	for i, handler := range h.handlers {
		next.handlers[i] = handler.WithGroup(name)
	}
	return next
}

// asyncHandler hands records to a single background goroutine so remote
// shipping never blocks a caller. Records are dropped when the queue is full.
type asyncHandler struct {
	handler slog.Handler
	q       *asyncQueue
}

type queued struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

type asyncQueue struct {
	mu      sync.RWMutex
	ch      chan queued
	closed  bool
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

func newAsyncHandler(handler slog.Handler, buffer int) *asyncHandler {
	q := &asyncQueue{ch: make(chan queued, buffer)}
	q.wg.Go(func() {
		for item := range q.ch {
			_ = item.handler.Handle(item.ctx, item.record)
		}
	})
	return &asyncHandler{handler: handler, q: q}
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(ctx context.Context, r slog.Record) error {
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		return nil
	}
	select {
	case h.q.ch <- queued{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.handler}:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &asyncHandler{handler: h.handler.WithAttrs(attrs), q: h.q}
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	return &asyncHandler{handler: h.handler.WithGroup(name), q: h.q}
}

// shutdown stops accepting records and waits for the queue to drain.
func (h *asyncHandler) shutdown(ctx context.Context) error {
	h.q.mu.Lock()
	if h.q.closed {
		h.q.mu.Unlock()
		return nil
	}
	h.q.closed = true
	close(h.q.ch)
	h.q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		h.q.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
