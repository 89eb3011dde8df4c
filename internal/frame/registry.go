package frame

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks the live Managers of a process, one per browser tab,
// keyed by an opaque token the tab carries in its event URLs. Tabs vanish
// without saying goodbye, so entries are reaped by Sweep once their last
// contact is old enough.
type Registry struct {
	mu       sync.Mutex
	clock    Clock
	sessions map[string]*session
}

type session struct {
	mgr      *Manager
	lastSeen time.Time
}

// NewRegistry creates an empty registry. A nil clock means the system
// clock.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock()
	}
	return &Registry{
		clock:    clock,
		sessions: make(map[string]*session),
	}
}

// Add registers a manager and returns its fresh tab token.
func (r *Registry) Add(m *Manager) string {
	token := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = &session{mgr: m, lastSeen: r.clock.Now()}
	return token
}

// Get returns the manager behind token and refreshes its last-contact
// time. A stale or unknown token yields (nil, false).
func (r *Registry) Get(token string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.clock.Now()
	return s.mgr, true
}

// Remove disposes the manager behind token and forgets it.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	s, ok := r.sessions[token]
	if ok {
		delete(r.sessions, token)
	}
	r.mu.Unlock()
	if ok {
		s.mgr.Dispose()
	}
}

// Sweep disposes every session idle longer than maxIdle and reports how
// many were reaped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.clock.Now().Add(-maxIdle)
	var reaped []*session
	r.mu.Lock()
	for token, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, token)
			reaped = append(reaped, s)
		}
	}
	r.mu.Unlock()
	for _, s := range reaped {
		s.mgr.Dispose()
	}
	return len(reaped)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close disposes every session. The registry stays usable afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*session, 0, len(r.sessions))
	for token, s := range r.sessions {
		delete(r.sessions, token)
		all = append(all, s)
	}
	r.mu.Unlock()
	for _, s := range all {
		s.mgr.Dispose()
	}
}
