package memory

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/catalog-system/internal/core/ports"
)

// Idempotency is the in-process ports.IdempotencyStore used when no Redis
// is configured. Entries expire after ttl.
type Idempotency struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	ttl     time.Duration
	now     func() time.Time
}

type idempotencyEntry struct {
	id      string
	expires time.Time
}

var _ ports.IdempotencyStore = (*Idempotency)(nil)

func NewIdempotency(ttl time.Duration) *Idempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Idempotency{entries: map[string]idempotencyEntry{}, ttl: ttl, now: time.Now}
}

func (s *Idempotency) Recall(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[scope+":"+key]
	if !ok || !s.now().Before(e.expires) {
		return "", false, nil
	}
	return e.id, true, nil
}

// Remember keeps the first id recorded for key until it expires.
func (s *Idempotency) Remember(_ context.Context, scope, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scope + ":" + key
	if e, ok := s.entries[k]; ok && s.now().Before(e.expires) {
		return nil
	}
	s.entries[k] = idempotencyEntry{id: id, expires: s.now().Add(s.ttl)}
	return nil
}
