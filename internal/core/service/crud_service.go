package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/mapper"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

// CRUDService serves domain objects D backed by entities E with key K.
// Every mutation runs in its own unit of work.
type CRUDService[D any, E any, K comparable] struct {
	store  ports.Store[E, K]
	mapper mapper.Mapper[E, D]
	tx     ports.Transactor
	key    func(*D) K
	setKey func(*D, K)
	logger zerolog.Logger
}

var _ ports.CRUDService[domain.Item, int64] = (*CRUDService[domain.Item, entity.Item, int64])(nil)

func NewCRUDService[D any, E any, K comparable, PD entity.Ref[D, K]](
	store ports.Store[E, K],
	tx ports.Transactor,
	logger zerolog.Logger,
) *CRUDService[D, E, K] {
	if tx == nil {
		tx = ports.NoTx
	}
	return &CRUDService[D, E, K]{
		store:  store,
		mapper: mapper.New[E, D](),
		tx:     tx,
		key:    func(d *D) K { return PD(d).GetID() },
		setKey: func(d *D, id K) { PD(d).SetID(id) },
		logger: logger,
	}
}

// Create stores d and writes the assigned key back onto it. A preset key is
// merged so clients may choose their own identifiers.
func (s *CRUDService[D, E, K]) Create(ctx context.Context, d *D) (*D, error) {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.mapper.ToNewEntity(d)
		if err != nil {
			return err
		}

		var id K
		if entity.IsZeroKey(s.key(d)) {
			id, err = s.store.Save(ctx, e)
		} else {
			var merged *E
			merged, err = s.store.Merge(ctx, e)
			id = s.key(d)
			if err == nil && merged != nil {
				id = any(merged).(entity.Identifiable[K]).GetID()
			}
		}
		if err != nil {
			return err
		}
		s.setKey(d, id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("type", typeName[D]()).Str("id", fmt.Sprint(s.key(d))).Msg("created")
	return d, nil
}

// Read returns nil when id is unknown.
func (s *CRUDService[D, E, K]) Read(ctx context.Context, id K) (*D, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDomain(e)
}

// Update patches the stored record with the fields d carries and returns d
// as given. The stored state after the write is not reloaded.
func (s *CRUDService[D, E, K]) Update(ctx context.Context, d *D) (*D, error) {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.store.Get(ctx, s.key(d))
		if err != nil {
			return err
		}
		if e == nil {
			return domain.ErrEntityNotFound
		}
		if err := s.mapper.Patch(e, d); err != nil {
			return err
		}
		return s.store.Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("type", typeName[D]()).Str("id", fmt.Sprint(s.key(d))).Msg("updated")
	return d, nil
}

// Delete removes the record and returns what it looked like before.
func (s *CRUDService[D, E, K]) Delete(ctx context.Context, id K) (*D, error) {
	var snapshot *D
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		e, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return domain.ErrEntityNotFound
		}
		if snapshot, err = s.mapper.ToDomain(e); err != nil {
			return err
		}
		return s.store.Delete(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("type", typeName[D]()).Str("id", fmt.Sprint(id)).Msg("deleted")
	return snapshot, nil
}

func (s *CRUDService[D, E, K]) FindAll(ctx context.Context) ([]*D, error) {
	es, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDomainList(es)
}

func (s *CRUDService[D, E, K]) FindBy(ctx context.Context, field string, value any) ([]*D, error) {
	es, err := s.store.FindBy(ctx, field, value)
	if err != nil {
		return nil, err
	}
	return s.mapper.ToDomainList(es)
}

func typeName[D any]() string {
	var d D
	return fmt.Sprintf("%T", d)
}
