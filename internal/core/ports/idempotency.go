package ports

import "context"

// IdempotencyStore remembers which key a client-supplied Idempotency-Key
// produced, so a retried create returns the original record.
type IdempotencyStore interface {
	Recall(ctx context.Context, scope, key string) (id string, found bool, err error)
	Remember(ctx context.Context, scope, key, id string) error
}
