// Package profile loads a single student profile into the detail view.
//
// The view is closed while a fetch is pending and opens only when the latest
// fetch succeeds. Closing the view does not cancel the request in flight; its
// response is discarded when it arrives.
package profile

import (
	"context"
	"strings"
	"sync"

	domerrors "github.com/garyellow/lnmu-portal/internal/errors"
	"github.com/garyellow/lnmu-portal/internal/loading"
	"github.com/garyellow/lnmu-portal/internal/logger"
	"github.com/garyellow/lnmu-portal/internal/reqtoken"
	"github.com/garyellow/lnmu-portal/internal/student"
)

// Fetcher retrieves a profile by roll number.
type Fetcher interface {
	Student(ctx context.Context, roll string) (*student.Profile, error)
}

// StaleRecorder counts discarded responses.
type StaleRecorder interface {
	RecordStaleResponse(role string)
}

// Options wires optional collaborators into a Loader.
type Options struct {
	Loading  *loading.Coordinator
	Logger   *logger.Logger
	Recorder StaleRecorder
}

// Loader owns the profile shown in the detail view.
type Loader struct {
	fetcher  Fetcher
	loading  *loading.Coordinator
	log      *logger.Logger
	recorder StaleRecorder
	tokens   reqtoken.Tracker

	mu      sync.Mutex
	current *student.Profile
	visible bool
	pending string
	lastErr error
}

// NewLoader creates a loader backed by fetcher.
func NewLoader(fetcher Fetcher, opts Options) *Loader {
	l := &Loader{
		fetcher:  fetcher,
		loading:  opts.Loading,
		log:      opts.Logger,
		recorder: opts.Recorder,
	}
	if l.loading == nil {
		l.loading = &loading.Coordinator{}
	}
	if l.log == nil {
		l.log = logger.Discard()
	}
	l.log = l.log.WithModule("profile")
	return l
}

// Load fetches roll and opens the view on success. Any open profile is
// cleared first. When a newer Load or a Close happens before the response
// arrives, the response is dropped and ErrStaleResponse is returned.
func (l *Loader) Load(ctx context.Context, roll string) (*student.Profile, error) {
	roll = strings.TrimSpace(roll)
	if roll == "" {
		return nil, domerrors.NewValidationError("roll", "must not be empty")
	}

	l.mu.Lock()
	tok := l.tokens.Issue(reqtoken.RoleProfile)
	l.current = nil
	l.visible = false
	l.pending = roll
	l.lastErr = nil
	l.mu.Unlock()

	done := l.loading.Begin()
	p, err := l.fetcher.Student(ctx, roll)
	done()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.tokens.Current(tok) {
		if l.recorder != nil {
			l.recorder.RecordStaleResponse(string(reqtoken.RoleProfile))
		}
		l.log.DebugContext(ctx, "Discarding superseded profile response", "roll", roll)
		return nil, domerrors.ErrStaleResponse
	}

	l.pending = ""
	if err != nil {
		l.current = nil
		l.visible = false
		l.lastErr = err
		l.log.WithError(err).WarnContext(ctx, "Failed to load profile", "roll", roll)
		return nil, err
	}

	l.current = p
	l.visible = true
	return clone(p), nil
}

// Close hides the view and drops the profile. A request still in flight is
// left to finish and its response is ignored.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens.Invalidate(reqtoken.RoleProfile)
	l.current = nil
	l.visible = false
	l.pending = ""
}

// Current returns a copy of the open profile.
func (l *Loader) Current() (*student.Profile, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil, false
	}
	return clone(l.current), true
}

// Visible reports whether the detail view is open.
func (l *Loader) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// Pending returns the roll being fetched, if any.
func (l *Loader) Pending() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// LastError returns the failure of the most recent applied load.
func (l *Loader) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func clone(p *student.Profile) *student.Profile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
