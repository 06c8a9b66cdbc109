package store

import (
	"context"
	"time"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
)

// Listener is called by the store before a record is written.
// An error aborts the write.
type Listener[T any] interface {
	PrePersist(ctx context.Context, e *T) error
	PreUpdate(ctx context.Context, e *T) error
}

// AuditListener stamps entity.Auditable records with the time and the actor
// carried by the context. Other records pass through untouched.
type AuditListener[T any] struct {
	now func() time.Time
}

// NewAuditListener returns an AuditListener using now as its clock
// (time.Now when nil).
func NewAuditListener[T any](now func() time.Time) *AuditListener[T] {
	if now == nil {
		now = time.Now
	}
	return &AuditListener[T]{now: now}
}

func (l *AuditListener[T]) PrePersist(ctx context.Context, e *T) error {
	if a, ok := any(e).(entity.Auditable); ok {
		a.MarkCreated(l.now().UTC(), domain.ActorFrom(ctx))
	}
	return nil
}

func (l *AuditListener[T]) PreUpdate(ctx context.Context, e *T) error {
	if a, ok := any(e).(entity.Auditable); ok {
		a.MarkModified(l.now().UTC(), domain.ActorFrom(ctx))
	}
	return nil
}
