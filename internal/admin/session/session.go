// Package session holds the authenticated user for the lifetime of one
// application instance. It is injected explicitly into every consumer
// rather than looked up through any ambient global: construction wires the
// single writer (the login/logout flow) and arbitrarily many readers.
package session

import (
	"sync"

	"github.com/userdeck/userdeck/internal/domain/user"
)

type Session struct {
	mu      sync.RWMutex
	current *user.User
}

func New() *Session {
	return &Session{}
}

// Set installs the logged-in user. Only the login flow calls this.
func (s *Session) Set(u user.User) {
	s.mu.Lock()
	copied := u
	s.current = &copied
	s.mu.Unlock()
}

// Clear drops the session on logout.
func (s *Session) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns the session user, or ok=false before login.
func (s *Session) Current() (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return user.User{}, false
	}

	return *s.current, true
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current != nil && s.current.IsAdmin()
}
