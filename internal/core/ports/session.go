package ports

import "context"

// Session is the persistence-context handle a store is bound to. It is the
// only boundary between the core and a concrete backend.
//
// Lookups report absence as (nil, nil). Records whose deletion is recorded
// (entity.Deletable) are excluded from Find, FindAll and FindBy.
type Session[T any, K comparable] interface {
	Find(ctx context.Context, id K) (*T, error)
	FindAll(ctx context.Context) ([]*T, error)
	// FindBy matches a single column/field by equality.
	FindBy(ctx context.Context, field string, value any) ([]*T, error)

	// Insert assigns the key, writes it back onto e and returns it.
	Insert(ctx context.Context, e *T) (K, error)
	// Update writes e. Versioned records only match their current version;
	// a stale or missing row yields domain.ErrOptimisticLock.
	Update(ctx context.Context, e *T) error
	// Merge inserts or updates e and returns the stored copy.
	Merge(ctx context.Context, e *T) (*T, error)
	Remove(ctx context.Context, e *T) error
	// Refresh discards in-memory edits on e by reloading it.
	Refresh(ctx context.Context, e *T) error

	// NativeQuery runs a backend-specific query string.
	NativeQuery(ctx context.Context, query string, args ...any) ([]*T, error)
}

// Transactor scopes a unit of work. The transaction travels in the context
// passed to fn; nested calls join the outer unit of work.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactorFunc adapts a function to Transactor.
type TransactorFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f TransactorFunc) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTx runs fn directly, for backends without transactions.
var NoTx = TransactorFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
