package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"studytec-client/internal/app"
)

const sessionKeyPrefix = "studytec:session:"

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Clients stay in a local map; Redis only carries a liveness marker per
// session so that every hub instance can report the fleet-wide count.
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Client
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Client),
	}
}

func (s *SessionRegistry) Add(id string, c *app.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = c
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id), "1", s.ttl).Err()
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
	if !ok {
		return nil, false
	}
	delete(s.sessions, id)
	_ = s.client.Del(context.Background(), s.key(id)).Err()
	return c, true
}

func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Touch extends the liveness marker of an active session.
func (s *SessionRegistry) Touch(id string) {
	_ = s.client.Expire(context.Background(), s.key(id), s.ttl).Err()
}

// LiveCount counts live markers across every hub sharing this Redis.
func (s *SessionRegistry) LiveCount(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

func (s *SessionRegistry) key(id string) string {
	return sessionKeyPrefix + id
}
