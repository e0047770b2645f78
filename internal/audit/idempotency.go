package audit

import (
	"context"
	"sync"
	"time"
)

// IdempotencyStore dedupes audit emissions for at-least-once callers. Checking
// and marking are separate so a key is marked only once the entry (and any
// transaction around it) is known durable; marking up front would let a failed
// write suppress the retry's append and leave a state change unlogged.
type IdempotencyStore interface {
	// Seen reports whether the key was already marked applied.
	Seen(ctx context.Context, key string) (bool, error)
	// MarkApplied records the key so replays within the TTL are suppressed.
	MarkApplied(ctx context.Context, key string, ttl time.Duration) error
}

// InMemoryIdempotencyStore backs tests and single-process deployments.
type InMemoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{keys: make(map[string]time.Time)}
}

func (s *InMemoryIdempotencyStore) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.keys[key]
	return ok && time.Now().Before(expiry), nil
}

func (s *InMemoryIdempotencyStore) MarkApplied(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = time.Now().Add(ttl)
	return nil
}
