package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/99minutos/catalog-system/internal/core/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

// kv is the slice of the Redis API the idempotency store needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// IdempotencyStore remembers which record a create request produced.
// Key format: idempotency:<scope>:<key>
type IdempotencyStore struct {
	client kv
	ttl    time.Duration
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

func NewIdempotencyStore(client kv, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, cerrors.Wrap(err, "idempotency recall")
	}
	return id, true, nil
}

// Remember records id for key unless another request got there first.
func (s *IdempotencyStore) Remember(ctx context.Context, scope, key, id string) error {
	if err := s.client.SetNX(ctx, s.key(scope, key), id, s.ttl).Err(); err != nil {
		return cerrors.Wrap(err, "idempotency remember")
	}
	return nil
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", scope, key)
}
