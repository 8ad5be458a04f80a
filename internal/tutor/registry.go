package tutor

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Registry holds live sessions in memory. Idle sessions expire after the
// TTL and the least recently used session is dropped when the registry is
// full. It is safe for concurrent use.
type Registry struct {
	cache *expirable.LRU[string, *Session]
}

// NewRegistry creates a registry. size <= 0 means unbounded; ttl <= 0 means
// sessions never expire.
func NewRegistry(size int, ttl time.Duration) *Registry {
	onEvict := func(id string, s *Session) {
		slog.Info("session evicted", "session", id, "status", s.Status())
	}
	return &Registry{cache: expirable.NewLRU(size, onEvict, ttl)}
}

// Put registers a session.
func (r *Registry) Put(s *Session) {
	r.cache.Add(s.ID, s)
}

// Get looks up a session and refreshes its expiry.
func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	r.cache.Add(id, s)
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Sessions returns the live sessions, oldest first.
func (r *Registry) Sessions() []*Session {
	return r.cache.Values()
}
