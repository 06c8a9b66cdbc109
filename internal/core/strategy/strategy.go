// Package strategy holds the three policies the store delegates to: how a
// record is deleted, how a detached copy is merged, and how save-or-update
// decides between insert and update.
package strategy

import (
	"context"
	"time"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
)

// Operations is the subset of a session the policies work against. The
// store passes a view that runs its entity listeners around Insert/Update.
type Operations[T any, K comparable] interface {
	Find(ctx context.Context, id K) (*T, error)
	Insert(ctx context.Context, e *T) (K, error)
	Update(ctx context.Context, e *T) error
	Merge(ctx context.Context, e *T) (*T, error)
	Remove(ctx context.Context, e *T) error
}

// --- Delete ---

// DeletePolicy decides what deleting a loaded record means.
type DeletePolicy[T any, K comparable] interface {
	Delete(ctx context.Context, ops Operations[T, K], e *T) error
}

// DeleteFunc adapts a function to DeletePolicy.
type DeleteFunc[T any, K comparable] func(ctx context.Context, ops Operations[T, K], e *T) error

func (f DeleteFunc[T, K]) Delete(ctx context.Context, ops Operations[T, K], e *T) error {
	return f(ctx, ops, e)
}

// Remove physically removes the record.
func Remove[T any, K comparable]() DeletePolicy[T, K] {
	return DeleteFunc[T, K](func(ctx context.Context, ops Operations[T, K], e *T) error {
		return ops.Remove(ctx, e)
	})
}

// SoftDelete stamps the deletion record and writes it back, keeping the row.
// Records that are not entity.Deletable are removed instead.
func SoftDelete[T any, K comparable](now func() time.Time) DeletePolicy[T, K] {
	if now == nil {
		now = time.Now
	}
	return DeleteFunc[T, K](func(ctx context.Context, ops Operations[T, K], e *T) error {
		d, ok := any(e).(entity.Deletable)
		if !ok {
			return ops.Remove(ctx, e)
		}
		d.MarkDeleted(now().UTC(), domain.ActorFrom(ctx))
		return ops.Update(ctx, e)
	})
}

// --- Merge ---

// MergePolicy reconciles a detached copy with what is stored and returns
// the managed result.
type MergePolicy[T any, K comparable] interface {
	Merge(ctx context.Context, ops Operations[T, K], e *T) (*T, error)
}

// MergeFunc adapts a function to MergePolicy.
type MergeFunc[T any, K comparable] func(ctx context.Context, ops Operations[T, K], e *T) (*T, error)

func (f MergeFunc[T, K]) Merge(ctx context.Context, ops Operations[T, K], e *T) (*T, error) {
	return f(ctx, ops, e)
}

// DelegateMerge hands the detached copy to the session's own merge.
func DelegateMerge[T any, K comparable]() MergePolicy[T, K] {
	return MergeFunc[T, K](func(ctx context.Context, ops Operations[T, K], e *T) (*T, error) {
		return ops.Merge(ctx, e)
	})
}

// LoadThenWrite looks the record up by key, inserts it when absent and
// updates it otherwise, then returns the reloaded copy. An update keeps the
// stored creation stamp.
func LoadThenWrite[T any, K comparable, P entity.Ref[T, K]]() MergePolicy[T, K] {
	return MergeFunc[T, K](func(ctx context.Context, ops Operations[T, K], e *T) (*T, error) {
		id := P(e).GetID()
		if !entity.IsZeroKey(id) {
			current, err := ops.Find(ctx, id)
			if err != nil {
				return nil, err
			}
			if current != nil {
				keepCreated(e, current)
				if err := ops.Update(ctx, e); err != nil {
					return nil, err
				}
				return ops.Find(ctx, id)
			}
		}
		newID, err := ops.Insert(ctx, e)
		if err != nil {
			return nil, err
		}
		return ops.Find(ctx, newID)
	})
}

func keepCreated[T any](e, stored *T) {
	dst, ok := any(e).(entity.Auditable)
	if !ok {
		return
	}
	dst.MarkCreated(any(stored).(entity.Auditable).Created())
}

// --- Save or update ---

// SaveOrUpdatePolicy chooses between inserting and updating a record.
type SaveOrUpdatePolicy[T any, K comparable] interface {
	SaveOrUpdate(ctx context.Context, ops Operations[T, K], e *T) error
}

// SaveOrUpdateFunc adapts a function to SaveOrUpdatePolicy.
type SaveOrUpdateFunc[T any, K comparable] func(ctx context.Context, ops Operations[T, K], e *T) error

func (f SaveOrUpdateFunc[T, K]) SaveOrUpdate(ctx context.Context, ops Operations[T, K], e *T) error {
	return f(ctx, ops, e)
}

// KeyPresence inserts records whose key is unset and updates the rest.
// The key is the only signal; there is no separate "new" flag.
func KeyPresence[T any, K comparable, P entity.Ref[T, K]]() SaveOrUpdatePolicy[T, K] {
	return SaveOrUpdateFunc[T, K](func(ctx context.Context, ops Operations[T, K], e *T) error {
		if entity.IsZeroKey(P(e).GetID()) {
			_, err := ops.Insert(ctx, e)
			return err
		}
		return ops.Update(ctx, e)
	})
}
