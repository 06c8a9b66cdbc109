package metrics

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

// InstrumentSession wraps s so that every call is counted and timed under
// the given entity label.
func InstrumentSession[T any, K comparable](entity string, s ports.Session[T, K]) ports.Session[T, K] {
	return &instrumented[T, K]{entity: entity, next: s}
}

type instrumented[T any, K comparable] struct {
	entity string
	next   ports.Session[T, K]
}

func (i *instrumented[T, K]) observe(op string, start time.Time, absent bool, err error) {
	SessionOpDuration.WithLabelValues(i.entity, op).Observe(time.Since(start).Seconds())

	result := "ok"
	switch {
	case err != nil:
		result = "error"
		if errors.Is(err, domain.ErrOptimisticLock) {
			OptimisticLockConflictsTotal.WithLabelValues(i.entity).Inc()
		}
	case absent:
		result = "absent"
	}
	SessionOpsTotal.WithLabelValues(i.entity, op, result).Inc()
}

func (i *instrumented[T, K]) Find(ctx context.Context, id K) (*T, error) {
	start := time.Now()
	e, err := i.next.Find(ctx, id)
	i.observe("find", start, e == nil, err)
	return e, err
}

func (i *instrumented[T, K]) FindAll(ctx context.Context) ([]*T, error) {
	start := time.Now()
	es, err := i.next.FindAll(ctx)
	i.observe("find_all", start, false, err)
	return es, err
}

func (i *instrumented[T, K]) FindBy(ctx context.Context, field string, value any) ([]*T, error) {
	start := time.Now()
	es, err := i.next.FindBy(ctx, field, value)
	i.observe("find_by", start, false, err)
	return es, err
}

func (i *instrumented[T, K]) Insert(ctx context.Context, e *T) (K, error) {
	start := time.Now()
	id, err := i.next.Insert(ctx, e)
	i.observe("insert", start, false, err)
	return id, err
}

func (i *instrumented[T, K]) Update(ctx context.Context, e *T) error {
	start := time.Now()
	err := i.next.Update(ctx, e)
	i.observe("update", start, false, err)
	return err
}

func (i *instrumented[T, K]) Merge(ctx context.Context, e *T) (*T, error) {
	start := time.Now()
	m, err := i.next.Merge(ctx, e)
	i.observe("merge", start, false, err)
	return m, err
}

func (i *instrumented[T, K]) Remove(ctx context.Context, e *T) error {
	start := time.Now()
	err := i.next.Remove(ctx, e)
	i.observe("remove", start, false, err)
	return err
}

func (i *instrumented[T, K]) Refresh(ctx context.Context, e *T) error {
	start := time.Now()
	err := i.next.Refresh(ctx, e)
	i.observe("refresh", start, false, err)
	return err
}

func (i *instrumented[T, K]) NativeQuery(ctx context.Context, query string, args ...any) ([]*T, error) {
	start := time.Now()
	es, err := i.next.NativeQuery(ctx, query, args...)
	i.observe("native_query", start, false, err)
	return es, err
}
