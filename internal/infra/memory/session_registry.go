package memory

import (
	"sync"

	"studytec-client/internal/app"
)

// SessionRegistry is an in-memory implementation of app.SessionRegistry.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*app.Client
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*app.Client),
	}
}

func (s *SessionRegistry) Add(id string, c *app.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = c
}

func (s *SessionRegistry) Get(id string) (*app.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[id]
	return c, ok
}

func (s *SessionRegistry) Remove(id string) (*app.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return c, ok
}

func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
