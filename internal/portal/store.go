package portal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/lnmu-portal/internal/logger"
)

// Factory builds a session for a new id.
type Factory func(id string) (*Session, error)

// SessionGauge receives the live session count.
type SessionGauge interface {
	SetActiveSessions(n int)
}

// Store keeps the live sessions of the HTTP API and drops idle ones.
type Store struct {
	factory Factory
	idle    time.Duration
	gauge   SessionGauge
	log     *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store. Sessions unused for idle are removed by Sweep;
// idle <= 0 keeps them forever.
func NewStore(factory Factory, idle time.Duration, gauge SessionGauge, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Discard()
	}
	return &Store{
		factory:  factory,
		idle:     idle,
		gauge:    gauge,
		log:      log.WithModule("sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with a fresh random id.
func (st *Store) Create() (*Session, error) {
	id := uuid.NewString()
	s, err := st.factory(id)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.sessions[id] = s
	n := len(st.sessions)
	st.mu.Unlock()

	st.report(n)
	st.log.Debug("Session created", "session_id", id)
	return s, nil
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete ends a session. Responses still in flight for it are discarded.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return false
	}
	s.Reset()
	st.report(n)
	return true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle since before now minus the idle timeout and
// returns how many were removed.
func (st *Store) Sweep(now time.Time) int {
	if st.idle <= 0 {
		return 0
	}
	cutoff := now.Add(-st.idle)

	var expired []string
	st.mu.RLock()
	for id, s := range st.sessions {
		if s.LastActive().Before(cutoff) && !s.Loading() {
			expired = append(expired, id)
		}
	}
	st.mu.RUnlock()

	removed := 0
	for _, id := range expired {
		if st.Delete(id) {
			removed++
		}
	}
	if removed > 0 {
		st.log.Info("Swept idle sessions", "removed", removed)
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Sweep(now)
		}
	}
}

func (st *Store) report(n int) {
	if st.gauge != nil {
		st.gauge.SetActiveSessions(n)
	}
}
