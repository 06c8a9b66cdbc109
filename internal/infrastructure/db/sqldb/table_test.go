package sqldb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := Connect(ctx, Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "catalog.db"),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := EnsureSchema(ctx, db, SchemaOptions{ColorEnum: entity.ColorEnum, ColorType: "item_color"}); err != nil {
		t.Fatalf("schema: %v", err)
	}
	// bootstrap is idempotent
	if err := EnsureSchema(ctx, db, SchemaOptions{ColorEnum: entity.ColorEnum, ColorType: "item_color"}); err != nil {
		t.Fatalf("schema again: %v", err)
	}
	return db
}

func newItem(name string) *entity.Item {
	item := &entity.Item{Name: name}
	item.MarkCreated(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), "test")
	return item
}

func TestColumnsOf(t *testing.T) {
	items := NewTable[entity.Item, int64](nil, ItemsTable, nil)
	want := []string{
		"id", "created_at", "created_by", "modified_at", "modified_by", "deleted_at", "deleted_by",
		"version", "active", "name", "description", "color",
	}
	got := items.Columns()
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}
}

func TestTable_InsertFindUpdate(t *testing.T) {
	db := openSQLite(t)
	items := NewTable[entity.Item, int64](db, ItemsTable, nil)
	ctx := context.Background()

	item := newItem("lamp")
	id, err := items.Insert(ctx, item)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 || item.ID != id || item.Version != 1 {
		t.Fatalf("expected generated key and version 1, got %+v", item)
	}

	got, err := items.Find(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("find: %v %v", got, err)
	}
	if got.Name != "lamp" || got.Color != nil {
		t.Fatalf("unexpected row: %+v", got)
	}

	stale := *got
	got.Name = "desk lamp"
	if err := items.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
	if err := items.Update(ctx, &stale); !errors.Is(err, domain.ErrOptimisticLock) {
		t.Fatalf("expected ErrOptimisticLock, got %v", err)
	}
}

func TestTable_ColorEnumRoundTrip(t *testing.T) {
	db := openSQLite(t)
	items := NewTable[entity.Item, int64](db, ItemsTable, nil)
	ctx := context.Background()

	red := entity.ColorRed
	colored := newItem("red one")
	colored.Color = &red
	plain := newItem("plain")

	_, _ = items.Insert(ctx, colored)
	_, _ = items.Insert(ctx, plain)

	got, _ := items.Find(ctx, colored.ID)
	if got.Color == nil || *got.Color != entity.ColorRed {
		t.Fatalf("expected RED, got %v", got.Color)
	}
	got, _ = items.Find(ctx, plain.ID)
	if got.Color != nil {
		t.Fatalf("expected NULL color, got %v", *got.Color)
	}

	byColor, err := items.FindBy(ctx, "color", entity.ColorRed)
	if err != nil || len(byColor) != 1 || byColor[0].ID != colored.ID {
		t.Fatalf("find by color: %v %v", byColor, err)
	}
}

func TestTable_SoftDeletedRowsAreHidden(t *testing.T) {
	db := openSQLite(t)
	items := NewTable[entity.Item, int64](db, ItemsTable, nil)
	ctx := context.Background()

	keep, gone := newItem("keep"), newItem("gone")
	_, _ = items.Insert(ctx, keep)
	_, _ = items.Insert(ctx, gone)

	gone.MarkDeleted(time.Now().UTC(), "test")
	if err := items.Update(ctx, gone); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got, _ := items.Find(ctx, gone.ID); got != nil {
		t.Fatal("find must hide soft-deleted rows")
	}
	all, err := items.FindAll(ctx)
	if err != nil || len(all) != 1 || all[0].ID != keep.ID {
		t.Fatalf("find all: %v %v", all, err)
	}
	if err := items.Refresh(ctx, gone); err != nil {
		t.Fatalf("refresh must see the row: %v", err)
	}
}

func TestTable_InsertOverSoftDeletedKey(t *testing.T) {
	db := openSQLite(t)
	items := NewTable[entity.Item, int64](db, ItemsTable, nil)
	ctx := context.Background()

	gone := newItem("gone")
	if _, err := items.Insert(ctx, gone); err != nil {
		t.Fatalf("insert: %v", err)
	}
	gone.MarkDeleted(time.Now().UTC(), "test")
	if err := items.Update(ctx, gone); err != nil {
		t.Fatalf("update: %v", err)
	}

	again := newItem("again")
	again.ID = gone.ID
	if _, err := items.Insert(ctx, again); !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestTable_FindByUnknownColumn(t *testing.T) {
	db := openSQLite(t)
	items := NewTable[entity.Item, int64](db, ItemsTable, nil)

	_, err := items.FindBy(context.Background(), "name; DROP TABLE items", "x")
	if !errors.Is(err, domain.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestTable_PropertiesWithClientKeys(t *testing.T) {
	db := openSQLite(t)
	props := NewTable[entity.Property, uuid.UUID](db, PropertiesTable, uuid.New)
	ctx := context.Background()

	p := &entity.Property{}
	p.OwnerID = 7
	p.Key = "key"
	p.Value = "v1"

	id, err := props.Insert(ctx, p)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == uuid.Nil || p.ID != id {
		t.Fatalf("expected generated uuid, got %s", id)
	}

	p.Value = "v2"
	merged, err := props.Merge(ctx, p)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Value != "v2" {
		t.Fatalf("merge did not update: %+v", merged)
	}

	owned, err := props.FindBy(ctx, "owner_id", int64(7))
	if err != nil || len(owned) != 1 {
		t.Fatalf("find by owner: %v %v", owned, err)
	}

	if err := props.Remove(ctx, p); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := props.Remove(ctx, p); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
	if err := props.Update(ctx, p); !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound on unversioned update, got %v", err)
	}
}

func TestTable_NativeQuery(t *testing.T) {
	db := openSQLite(t)
	items := NewTable[entity.Item, int64](db, ItemsTable, nil)
	ctx := context.Background()

	for _, n := range []string{"alpha", "beta", "alphabet"} {
		_, _ = items.Insert(ctx, newItem(n))
	}

	got, err := items.NativeQuery(ctx, `SELECT * FROM "items" WHERE "name" LIKE ? ORDER BY "id"`, "alpha%")
	if err != nil {
		t.Fatalf("native query: %v", err)
	}
	if len(got) != 2 || got[0].Name != "alpha" || got[1].Name != "alphabet" {
		t.Fatalf("unexpected rows: %d", len(got))
	}
}

func TestDB_WithTx(t *testing.T) {
	db := openSQLite(t)
	items := NewTable[entity.Item, int64](db, ItemsTable, nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := items.Insert(ctx, newItem("outer")); err != nil {
			return err
		}
		nestedErr := db.WithTx(ctx, func(ctx context.Context) error {
			_, _ = items.Insert(ctx, newItem("inner"))
			return boom
		})
		if !errors.Is(nestedErr, boom) {
			t.Errorf("expected nested boom, got %v", nestedErr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer tx: %v", err)
	}

	all, _ := items.FindAll(ctx)
	if len(all) != 1 || all[0].Name != "outer" {
		t.Fatalf("savepoint rollback must keep only the outer insert, got %d rows", len(all))
	}

	_ = db.WithTx(ctx, func(ctx context.Context) error {
		_, _ = items.Insert(ctx, newItem("discarded"))
		return boom
	})
	all, _ = items.FindAll(ctx)
	if len(all) != 1 {
		t.Fatalf("rolled back insert is visible, got %d rows", len(all))
	}
}
