package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/store"
	"github.com/99minutos/catalog-system/internal/core/strategy"
	"github.com/99minutos/catalog-system/internal/infrastructure/db/memory"
)

type itemFixture struct {
	svc   *CRUDService[domain.Item, entity.Item, int64]
	table *memory.Table[entity.Item, int64]
}

func newItemService(t *testing.T) itemFixture {
	t.Helper()
	db := memory.NewDatabase()
	table := memory.NewTable[entity.Item, int64](db, memory.Sequence())
	s := store.New[entity.Item, int64](table,
		store.WithDeletePolicy(strategy.SoftDelete[entity.Item, int64](nil)),
		store.WithListener[entity.Item, int64](store.NewAuditListener[entity.Item](nil)),
	)
	return itemFixture{
		svc:   NewCRUDService[domain.Item, entity.Item, int64](s, db, zerolog.Nop()),
		table: table,
	}
}

func newPropertyService() *CRUDService[domain.Property, entity.Property, uuid.UUID] {
	db := memory.NewDatabase()
	table := memory.NewTable[entity.Property, uuid.UUID](db, memory.UUIDs())
	s := store.New[entity.Property, uuid.UUID](table)
	return NewCRUDService[domain.Property, entity.Property, uuid.UUID](s, db, zerolog.Nop())
}

func TestCRUDService_CreateThenRead(t *testing.T) {
	f := newItemService(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, &domain.Item{Name: "foo"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected non-zero id")
	}

	got, err := f.svc.Read(ctx, created.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got == nil || got.Name != "foo" {
		t.Fatalf("expected foo, got %+v", got)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1, got %d", got.Version)
	}
}

func TestCRUDService_CreateWithPresetKey(t *testing.T) {
	svc := newPropertyService()
	ctx := context.Background()
	id := uuid.New()

	created, err := svc.Create(ctx, &domain.Property{ID: id, OwnerID: 1, Key: "k", Value: "v"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != id {
		t.Fatalf("preset key replaced: %s", created.ID)
	}
	got, _ := svc.Read(ctx, id)
	if got == nil || got.Value != "v" {
		t.Fatalf("unexpected property: %+v", got)
	}
}

func TestCRUDService_ReadUnknown(t *testing.T) {
	f := newItemService(t)

	got, err := f.svc.Read(context.Background(), 404)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
}

func TestCRUDService_UpdatePatchesAndReturnsInput(t *testing.T) {
	f := newItemService(t)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, &domain.Item{Name: "foo", Description: "kept", Color: "RED"})

	in := &domain.Item{ID: created.ID, Name: "bar"}
	out, err := f.svc.Update(ctx, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out != in {
		t.Fatal("update must return its input")
	}
	if out.Description != "" {
		t.Fatal("returned object must not be reloaded")
	}

	got, _ := f.svc.Read(ctx, created.ID)
	if got.Name != "bar" || got.Description != "kept" || got.Color != "RED" {
		t.Fatalf("unexpected stored state: %+v", got)
	}
	if got.Version != 2 || got.ModifiedAt == nil {
		t.Fatalf("expected bumped version and modified stamp: %+v", got)
	}
}

func TestCRUDService_UpdateStaleVersion(t *testing.T) {
	f := newItemService(t)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, &domain.Item{Name: "foo"})
	if _, err := f.svc.Update(ctx, &domain.Item{ID: created.ID, Name: "one", Version: 1}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	_, err := f.svc.Update(ctx, &domain.Item{ID: created.ID, Name: "two", Version: 1})
	if !errors.Is(err, domain.ErrOptimisticLock) {
		t.Fatalf("expected ErrOptimisticLock, got %v", err)
	}
}

func TestCRUDService_UpdateUnknown(t *testing.T) {
	f := newItemService(t)

	if _, err := f.svc.Update(context.Background(), &domain.Item{ID: 9, Name: "x"}); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestCRUDService_DeleteReturnsSnapshot(t *testing.T) {
	f := newItemService(t)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, &domain.Item{Name: "doomed"})

	snapshot, err := f.svc.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if snapshot == nil || snapshot.Name != "doomed" {
		t.Fatalf("expected pre-deletion snapshot, got %+v", snapshot)
	}
	if got, _ := f.svc.Read(ctx, created.ID); got != nil {
		t.Fatalf("deleted item still readable: %+v", got)
	}
	if f.table.Len() != 1 {
		t.Fatal("items are soft deleted")
	}

	if _, err := f.svc.Delete(ctx, created.ID); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("second delete: expected ErrEntityNotFound, got %v", err)
	}
}

func TestCRUDService_FindAllAndFindBy(t *testing.T) {
	svc := newPropertyService()
	ctx := context.Background()

	for _, p := range []*domain.Property{
		{OwnerID: 1, Key: "a"},
		{OwnerID: 2, Key: "b"},
		{OwnerID: 1, Key: "c"},
	} {
		if _, err := svc.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := svc.FindAll(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 properties, got %d (%v)", len(all), err)
	}

	owned, err := svc.FindBy(ctx, "owner_id", int64(1))
	if err != nil {
		t.Fatalf("find by: %v", err)
	}
	if len(owned) != 2 || owned[0].Key != "a" || owned[1].Key != "c" {
		t.Fatalf("unexpected owned properties: %+v", owned)
	}
}

type failingStore struct {
	*store.Store[entity.Item, int64]
}

func (failingStore) Update(context.Context, *entity.Item) error { return errors.New("write failed") }

func TestCRUDService_FailedUpdateRollsBack(t *testing.T) {
	db := memory.NewDatabase()
	table := memory.NewTable[entity.Item, int64](db, memory.Sequence())
	inner := store.New[entity.Item, int64](table)
	ctx := context.Background()

	svc := NewCRUDService[domain.Item, entity.Item, int64](failingStore{inner}, db, zerolog.Nop())
	created, err := svc.Create(ctx, &domain.Item{Name: "foo"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, &domain.Item{ID: created.ID, Name: "bar"}); err == nil {
		t.Fatal("expected update error")
	}
	got, _ := svc.Read(ctx, created.ID)
	if got.Name != "foo" {
		t.Fatalf("expected unchanged item, got %q", got.Name)
	}
}

func TestCRUDService_AuditStampsIgnoreCaller(t *testing.T) {
	f := newItemService(t)
	ctx := domain.WithActor(context.Background(), "alice")

	created, err := f.svc.Create(ctx, &domain.Item{Name: "lamp", CreatedBy: "mallory", ModifiedBy: "mallory"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stamped, _ := f.svc.Read(ctx, created.ID)
	if stamped.CreatedBy != "alice" || stamped.ModifiedBy != "" {
		t.Fatalf("create took audit fields from the caller: %+v", stamped)
	}

	if _, err := f.svc.Update(ctx, &domain.Item{ID: created.ID, Description: "desk", CreatedBy: "mallory"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := f.svc.Read(ctx, created.ID)
	if got.CreatedBy != "alice" || !got.CreatedAt.Equal(*stamped.CreatedAt) {
		t.Fatalf("creation stamp rewritten: %+v", got)
	}
	if got.ModifiedBy != "alice" || got.Name != "lamp" || got.Description != "desk" {
		t.Fatalf("unexpected stored state: %+v", got)
	}
}

func TestCRUDService_CreateOverSoftDeletedKey(t *testing.T) {
	f := newItemService(t)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, &domain.Item{Name: "doomed"})
	if _, err := f.svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := f.svc.Create(ctx, &domain.Item{ID: created.ID, Name: "again"})
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}
