package timeline

import "sync"

// Session serializes access to a Store so HTTP handlers, the shell and
// player ticks can share one timeline. Every Update runs to completion
// before the next begins.
type Session struct {
	mu    sync.Mutex
	store *Store
}

func NewSession(store *Store) *Session {
	if store == nil {
		store = NewStore()
	}
	return &Session{store: store}
}

// Update runs fn with exclusive access to the store.
func (s *Session) Update(fn func(*Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// View runs fn with exclusive access to the store. fn must not mutate it.
func (s *Session) View(fn func(*Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// Replace swaps in a restored state, for example after loading a project.
func (s *Session) Replace(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Restore(st)
}
