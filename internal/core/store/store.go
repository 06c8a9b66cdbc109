// Package store provides the generic CRUD store every resource goes through.
//
// A Store is bound to one ports.Session and adds no persistence logic of its
// own: lookups, writes and queries go straight to the session, and the three
// decisions that vary between resources (delete, merge, save-or-update) are
// delegated to the policies in package strategy.
package store

import (
	"context"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/ports"
	"github.com/99minutos/catalog-system/internal/core/strategy"
)

var _ ports.Store[entity.Item, int64] = (*Store[entity.Item, int64])(nil)

// Store serves one entity type T keyed by K over a single session.
type Store[T any, K comparable] struct {
	session   ports.Session[T, K]
	key       func(*T) K
	listeners []Listener[T]

	deleter strategy.DeletePolicy[T, K]
	merger  strategy.MergePolicy[T, K]
	saver   strategy.SaveOrUpdatePolicy[T, K]
}

// Option overrides one of the defaults applied by New.
type Option[T any, K comparable] func(*Store[T, K])

// WithDeletePolicy replaces physical removal, e.g. with strategy.SoftDelete.
func WithDeletePolicy[T any, K comparable](p strategy.DeletePolicy[T, K]) Option[T, K] {
	return func(s *Store[T, K]) { s.deleter = p }
}

// WithMergePolicy replaces strategy.LoadThenWrite.
func WithMergePolicy[T any, K comparable](p strategy.MergePolicy[T, K]) Option[T, K] {
	return func(s *Store[T, K]) { s.merger = p }
}

// WithSaveOrUpdatePolicy replaces strategy.KeyPresence.
func WithSaveOrUpdatePolicy[T any, K comparable](p strategy.SaveOrUpdatePolicy[T, K]) Option[T, K] {
	return func(s *Store[T, K]) { s.saver = p }
}

// WithListener adds l after any listeners already registered. Listeners
// run in registration order.
func WithListener[T any, K comparable](l Listener[T]) Option[T, K] {
	return func(s *Store[T, K]) { s.listeners = append(s.listeners, l) }
}

// New binds a store to session. Unless overridden, records are physically
// removed, merged with strategy.LoadThenWrite and saved-or-updated by key
// presence.
func New[T any, K comparable, P entity.Ref[T, K]](session ports.Session[T, K], opts ...Option[T, K]) *Store[T, K] {
	s := &Store[T, K]{
		session: session,
		key:     func(e *T) K { return P(e).GetID() },
		deleter: strategy.Remove[T, K](),
		merger:  strategy.LoadThenWrite[T, K, P](),
		saver:   strategy.KeyPresence[T, K, P](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Reads ---

// Get returns nil when id is unset or unknown.
func (s *Store[T, K]) Get(ctx context.Context, id K) (*T, error) {
	if entity.IsZeroKey(id) {
		return nil, nil
	}
	return s.session.Find(ctx, id)
}

func (s *Store[T, K]) Exists(ctx context.Context, id K) (bool, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

// FindAll loads every visible record. There is no pagination.
func (s *Store[T, K]) FindAll(ctx context.Context) ([]*T, error) {
	return s.session.FindAll(ctx)
}

func (s *Store[T, K]) FindBy(ctx context.Context, field string, value any) ([]*T, error) {
	return s.session.FindBy(ctx, field, value)
}

func (s *Store[T, K]) Query(ctx context.Context, query string, args ...any) ([]*T, error) {
	return s.session.NativeQuery(ctx, query, args...)
}

// --- Writes ---

func (s *Store[T, K]) Save(ctx context.Context, e *T) (K, error) {
	return s.ops().Insert(ctx, e)
}

func (s *Store[T, K]) Update(ctx context.Context, e *T) error {
	return s.ops().Update(ctx, e)
}

func (s *Store[T, K]) Merge(ctx context.Context, e *T) (*T, error) {
	return s.merger.Merge(ctx, s.ops(), e)
}

func (s *Store[T, K]) SaveOrUpdate(ctx context.Context, e *T) error {
	return s.saver.SaveOrUpdate(ctx, s.ops(), e)
}

func (s *Store[T, K]) Delete(ctx context.Context, e *T) error {
	return s.deleter.Delete(ctx, s.ops(), e)
}

// DeleteByID loads the record first and then deletes it.
func (s *Store[T, K]) DeleteByID(ctx context.Context, id K) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return domain.ErrEntityNotFound
	}
	return s.Delete(ctx, e)
}

func (s *Store[T, K]) Refresh(ctx context.Context, e *T) error {
	return s.session.Refresh(ctx, e)
}

// --- Batches ---
// Each batch runs its singular operation in input order and stops at the
// first error. Whatever was written before stays subject to the enclosing
// transaction.

func (s *Store[T, K]) SaveAll(ctx context.Context, es []*T) ([]K, error) {
	ids := make([]K, 0, len(es))
	for _, e := range es {
		id, err := s.Save(ctx, e)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store[T, K]) UpdateAll(ctx context.Context, es []*T) error {
	for _, e := range es {
		if err := s.Update(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store[T, K]) MergeAll(ctx context.Context, es []*T) ([]*T, error) {
	out := make([]*T, 0, len(es))
	for _, e := range es {
		merged, err := s.Merge(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
	}
	return out, nil
}

func (s *Store[T, K]) SaveOrUpdateAll(ctx context.Context, es []*T) error {
	for _, e := range es {
		if err := s.SaveOrUpdate(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store[T, K]) DeleteAll(ctx context.Context, es []*T) error {
	for _, e := range es {
		if err := s.Delete(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// ops is the session as seen by the policies: writes run the listeners first.
func (s *Store[T, K]) ops() strategy.Operations[T, K] {
	return listening[T, K]{Session: s.session, listeners: s.listeners, key: s.key}
}

type listening[T any, K comparable] struct {
	ports.Session[T, K]
	listeners []Listener[T]
	key       func(*T) K
}

func (l listening[T, K]) Insert(ctx context.Context, e *T) (K, error) {
	for _, ln := range l.listeners {
		if err := ln.PrePersist(ctx, e); err != nil {
			var zero K
			return zero, err
		}
	}
	return l.Session.Insert(ctx, e)
}

func (l listening[T, K]) Update(ctx context.Context, e *T) error {
	for _, ln := range l.listeners {
		if err := ln.PreUpdate(ctx, e); err != nil {
			return err
		}
	}
	return l.Session.Update(ctx, e)
}

func (l listening[T, K]) Merge(ctx context.Context, e *T) (*T, error) {
	for _, ln := range l.listeners {
		hook := ln.PreUpdate
		if entity.IsZeroKey(l.key(e)) {
			hook = ln.PrePersist
		}
		if err := hook(ctx, e); err != nil {
			return nil, err
		}
	}
	return l.Session.Merge(ctx, e)
}
