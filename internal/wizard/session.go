package wizard

import (
	"sync"

	"brokerbot/internal/store"
)

// Session is one user's in-flight wizard run. It lives only in process
// memory: abandoning the flow leaves it behind until the user's next
// interaction replaces or ends it.
//
// Role is captured once when the flow starts; the router must not
// re-resolve it mid-flow, so a grant change cannot corrupt a data-entry
// sequence already underway.
type Session struct {
	State   State
	Role    store.Role
	Draft   store.OwnerDraft
	Editing string

	busy bool
}

// Sessions tracks active wizard runs keyed by user id. Each user's
// session is only ever touched by that user's own events, but the map
// itself is shared across handler goroutines.
type Sessions struct {
	mu sync.RWMutex
	m  map[int64]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*Session)}
}

// Get returns the user's session, nil when no flow is active.
func (s *Sessions) Get(id int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[id]
}

// Active reports whether the user has a flow in progress.
func (s *Sessions) Active(id int64) bool {
	return s.Get(id) != nil
}

// Begin starts a fresh session at TYPE_SELECT, replacing any existing one.
func (s *Sessions) Begin(id int64, role store.Role) *Session {
	sess := &Session{State: StateTypeSelect, Role: role}
	s.mu.Lock()
	s.m[id] = sess
	s.mu.Unlock()
	return sess
}

// End destroys the user's session.
func (s *Sessions) End(id int64) {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
}

// BeginBusy marks the session as performing a durable write, rejecting
// further input until EndBusy. ok=false means a write is already in
// flight and the caller must drop the event.
func (s *Sessions) BeginBusy(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok || sess.busy {
		return false
	}
	sess.busy = true
	return true
}

// EndBusy clears the write-in-flight mark.
func (s *Sessions) EndBusy(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[id]; ok {
		sess.busy = false
	}
}

// Busy reports whether a durable write is in flight for the session.
func (s *Sessions) Busy(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[id]
	return ok && sess.busy
}
