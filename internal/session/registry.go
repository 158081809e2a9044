package session

import (
	"sync"
	"time"
)

const DefaultIdleTTL = 2 * time.Hour

// Registry holds live sessions in memory.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *Registry) Create() *Session {
	now := r.now()
	s := newSession(now)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	s.touched = r.now()
	s.mu.Unlock()
	return s, nil
}

// Sweep drops sessions idle past the ttl. Sessions still holding an
// uncommitted post are kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := s.touched.Before(cutoff) && s.pending == nil
		s.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
