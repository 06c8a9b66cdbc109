// Package memory is the map-backed persistence backend used by tests and by
// BACKEND=memory. Transactions snapshot every table and restore them when the
// unit of work fails; they give all-or-nothing writes but no isolation
// between concurrent requests.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Database groups the tables that share one transaction scope.
type Database struct {
	mu     sync.Mutex
	tables []snapshotter
}

type snapshotter interface {
	snapshot() func()
}

func NewDatabase() *Database {
	return &Database{}
}

func (db *Database) register(t snapshotter) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = append(db.tables, t)
}

type txKey struct{}

// WithTx runs fn; if it fails every table is put back the way it was.
// Nested calls join the outer unit of work.
func (db *Database) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}

	db.mu.Lock()
	restores := make([]func(), 0, len(db.tables))
	for _, t := range db.tables {
		restores = append(restores, t.snapshot())
	}
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// Sequence returns a generator of increasing int64 keys starting at 1.
func Sequence() func() int64 {
	var n atomic.Int64
	return func() int64 { return n.Add(1) }
}

// UUIDs returns a generator of random UUID keys.
func UUIDs() func() uuid.UUID {
	return uuid.New
}
