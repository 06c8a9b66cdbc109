package ports

import "context"

// Store is the CRUD surface over one entity type, implemented by store.Store.
type Store[T any, K comparable] interface {
	Get(ctx context.Context, id K) (*T, error)
	Exists(ctx context.Context, id K) (bool, error)
	FindAll(ctx context.Context) ([]*T, error)
	FindBy(ctx context.Context, field string, value any) ([]*T, error)
	Query(ctx context.Context, query string, args ...any) ([]*T, error)

	Save(ctx context.Context, e *T) (K, error)
	Update(ctx context.Context, e *T) error
	Merge(ctx context.Context, e *T) (*T, error)
	SaveOrUpdate(ctx context.Context, e *T) error
	Delete(ctx context.Context, e *T) error
	DeleteByID(ctx context.Context, id K) error
	Refresh(ctx context.Context, e *T) error

	SaveAll(ctx context.Context, es []*T) ([]K, error)
	UpdateAll(ctx context.Context, es []*T) error
	MergeAll(ctx context.Context, es []*T) ([]*T, error)
	SaveOrUpdateAll(ctx context.Context, es []*T) error
	DeleteAll(ctx context.Context, es []*T) error
}
