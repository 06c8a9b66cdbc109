package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/strategy"
	"github.com/99minutos/catalog-system/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Recording session: a memory table that remembers which calls reached it.
// ---------------------------------------------------------------------------

type recordingSession struct {
	*memory.Table[entity.Item, int64]
	calls        []string
	failInsertAt int // 1-based Insert call that fails; 0 = never
	inserts      int
}

var errInsertFailed = errors.New("insert failed")

func newRecordingSession() *recordingSession {
	return &recordingSession{
		Table: memory.NewTable[entity.Item, int64](nil, memory.Sequence()),
	}
}

func (r *recordingSession) Find(ctx context.Context, id int64) (*entity.Item, error) {
	r.calls = append(r.calls, "find")
	return r.Table.Find(ctx, id)
}

func (r *recordingSession) Insert(ctx context.Context, e *entity.Item) (int64, error) {
	r.calls = append(r.calls, "insert")
	r.inserts++
	if r.failInsertAt > 0 && r.inserts == r.failInsertAt {
		return 0, errInsertFailed
	}
	return r.Table.Insert(ctx, e)
}

func (r *recordingSession) Update(ctx context.Context, e *entity.Item) error {
	r.calls = append(r.calls, "update")
	return r.Table.Update(ctx, e)
}

func (r *recordingSession) reset() { r.calls = nil }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newItemStore(session *recordingSession, opts ...Option[entity.Item, int64]) *Store[entity.Item, int64] {
	return New[entity.Item, int64](session, opts...)
}

// ---------------------------------------------------------------------------
// SaveOrUpdate
// ---------------------------------------------------------------------------

func TestStore_SaveOrUpdate_RoutesByKeyPresence(t *testing.T) {
	session := newRecordingSession()
	s := newItemStore(session)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		session.reset()
		item := &entity.Item{Name: "fresh"}
		if err := s.SaveOrUpdate(ctx, item); err != nil {
			t.Fatalf("save new: %v", err)
		}
		if len(session.calls) != 1 || session.calls[0] != "insert" {
			t.Fatalf("unset key must insert, calls=%v", session.calls)
		}
		if item.ID == 0 {
			t.Fatal("insert must assign a key")
		}

		session.reset()
		item.Name = "changed"
		if err := s.SaveOrUpdate(ctx, item); err != nil {
			t.Fatalf("update existing: %v", err)
		}
		if len(session.calls) != 1 || session.calls[0] != "update" {
			t.Fatalf("set key must update, calls=%v", session.calls)
		}
	}
}

func TestStore_SaveOrUpdate_SetKeyForUnknownRowFails(t *testing.T) {
	session := newRecordingSession()
	s := newItemStore(session)

	item := &entity.Item{Name: "ghost"}
	item.ID = 99

	err := s.SaveOrUpdate(context.Background(), item)
	if !errors.Is(err, domain.ErrOptimisticLock) {
		t.Fatalf("expected ErrOptimisticLock for unknown versioned row, got %v", err)
	}
	if session.calls[0] != "update" {
		t.Fatalf("key presence alone must route to update, calls=%v", session.calls)
	}
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestStore_Get_UnknownIDIsAbsent(t *testing.T) {
	s := newItemStore(newRecordingSession())

	got, err := s.Get(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestStore_Get_ZeroKeySkipsSession(t *testing.T) {
	session := newRecordingSession()
	s := newItemStore(session)

	got, err := s.Get(context.Background(), 0)
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", got, err)
	}
	if len(session.calls) != 0 {
		t.Fatalf("zero key must not reach the session, calls=%v", session.calls)
	}
}

func TestStore_Exists(t *testing.T) {
	s := newItemStore(newRecordingSession())
	ctx := context.Background()

	id, err := s.Save(ctx, &entity.Item{Name: "a"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if ok, _ := s.Exists(ctx, id); !ok {
		t.Error("expected saved item to exist")
	}
	if ok, _ := s.Exists(ctx, id+1); ok {
		t.Error("expected unknown id to not exist")
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestStore_DeleteByID_ThenGetIsAbsent(t *testing.T) {
	policies := map[string]strategy.DeletePolicy[entity.Item, int64]{
		"remove":      strategy.Remove[entity.Item, int64](),
		"soft_delete": strategy.SoftDelete[entity.Item, int64](clock),
	}

	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			session := newRecordingSession()
			s := newItemStore(session, WithDeletePolicy(policy))
			ctx := context.Background()

			id, err := s.Save(ctx, &entity.Item{Name: "doomed"})
			if err != nil {
				t.Fatalf("save: %v", err)
			}

			session.reset()
			if err := s.DeleteByID(ctx, id); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if session.calls[0] != "find" {
				t.Fatalf("delete by id must load first, calls=%v", session.calls)
			}

			got, err := s.Get(ctx, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != nil {
				t.Fatalf("expected deleted item to be absent, got %+v", got)
			}
		})
	}
}

func TestStore_SoftDelete_KeepsRow(t *testing.T) {
	session := newRecordingSession()
	s := newItemStore(session, WithDeletePolicy(strategy.SoftDelete[entity.Item, int64](clock)))
	ctx := domain.WithActor(context.Background(), "carol")

	item := &entity.Item{Name: "history"}
	if _, err := s.Save(ctx, item); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Delete(ctx, item); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if session.Len() != 1 {
		t.Fatalf("soft delete must keep the row, len=%d", session.Len())
	}
	if item.DeletedAt == nil || !item.DeletedAt.Equal(fixedNow) {
		t.Fatalf("expected deleted_at %v, got %v", fixedNow, item.DeletedAt)
	}
	if item.DeletedBy != "carol" {
		t.Fatalf("expected deleted_by carol, got %q", item.DeletedBy)
	}
}

func TestStore_DeleteByID_Unknown(t *testing.T) {
	s := newItemStore(newRecordingSession())

	err := s.DeleteByID(context.Background(), 77)
	if !errors.Is(err, domain.ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Batches
// ---------------------------------------------------------------------------

func TestStore_SaveAll_PreservesOrder(t *testing.T) {
	s := newItemStore(newRecordingSession())
	ctx := context.Background()

	items := []*entity.Item{{Name: "e1"}, {Name: "e2"}, {Name: "e3"}}
	ids, err := s.SaveAll(ctx, items)
	if err != nil {
		t.Fatalf("save all: %v", err)
	}
	if len(ids) != len(items) {
		t.Fatalf("expected %d ids, got %d", len(items), len(ids))
	}
	for i, id := range ids {
		if id != items[i].ID {
			t.Errorf("ids[%d]=%d does not match items[%d].ID=%d", i, id, i, items[i].ID)
		}
		got, _ := s.Get(ctx, id)
		if got == nil || got.Name != items[i].Name {
			t.Errorf("id %d does not resolve to %q", id, items[i].Name)
		}
	}
}

func TestStore_SaveAll_StopsAtFirstFailure(t *testing.T) {
	session := newRecordingSession()
	session.failInsertAt = 2
	s := newItemStore(session)

	items := []*entity.Item{{Name: "e1"}, {Name: "e2"}, {Name: "e3"}}
	ids, err := s.SaveAll(context.Background(), items)
	if !errors.Is(err, errInsertFailed) {
		t.Fatalf("expected errInsertFailed unmodified, got %v", err)
	}
	if ids != nil {
		t.Fatalf("expected no ids on failure, got %v", ids)
	}
	if session.inserts != 2 {
		t.Fatalf("third item must not be attempted, inserts=%d", session.inserts)
	}
	if session.Len() != 1 {
		t.Fatalf("expected only the first item stored, len=%d", session.Len())
	}
}

func TestStore_MergeAll_ReturnsManagedCopiesInOrder(t *testing.T) {
	s := newItemStore(newRecordingSession())
	ctx := context.Background()

	existing := &entity.Item{Name: "old"}
	if _, err := s.Save(ctx, existing); err != nil {
		t.Fatalf("save: %v", err)
	}
	detached := *existing
	detached.Name = "new"

	merged, err := s.MergeAll(ctx, []*entity.Item{{Name: "brand-new"}, &detached})
	if err != nil {
		t.Fatalf("merge all: %v", err)
	}
	if len(merged) != 2 || merged[0].Name != "brand-new" || merged[1].Name != "new" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if merged[1].ID != existing.ID {
		t.Fatalf("merge must keep the key, got %d want %d", merged[1].ID, existing.ID)
	}
	if merged[1].Version != 2 {
		t.Fatalf("merge of existing row must bump version, got %d", merged[1].Version)
	}
}

func TestStore_DeleteAll(t *testing.T) {
	session := newRecordingSession()
	s := newItemStore(session)
	ctx := context.Background()

	items := []*entity.Item{{Name: "a"}, {Name: "b"}}
	if _, err := s.SaveAll(ctx, items); err != nil {
		t.Fatalf("save all: %v", err)
	}
	if err := s.DeleteAll(ctx, items); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if session.Len() != 0 {
		t.Fatalf("expected empty table, len=%d", session.Len())
	}
}

// ---------------------------------------------------------------------------
// Versioning, refresh, listeners
// ---------------------------------------------------------------------------

func TestStore_Update_StaleVersionConflicts(t *testing.T) {
	s := newItemStore(newRecordingSession())
	ctx := context.Background()

	item := &entity.Item{Name: "v"}
	if _, err := s.Save(ctx, item); err != nil {
		t.Fatalf("save: %v", err)
	}
	stale := *item

	item.Name = "v2"
	if err := s.Update(ctx, item); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if item.Version != 2 {
		t.Fatalf("expected version 2, got %d", item.Version)
	}

	stale.Name = "lost update"
	if err := s.Update(ctx, &stale); !errors.Is(err, domain.ErrOptimisticLock) {
		t.Fatalf("expected ErrOptimisticLock, got %v", err)
	}
}

func TestStore_Refresh_DiscardsEdits(t *testing.T) {
	s := newItemStore(newRecordingSession())
	ctx := context.Background()

	item := &entity.Item{Name: "stored"}
	if _, err := s.Save(ctx, item); err != nil {
		t.Fatalf("save: %v", err)
	}
	item.Name = "edited in memory"

	if err := s.Refresh(ctx, item); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if item.Name != "stored" {
		t.Fatalf("expected stored name, got %q", item.Name)
	}
}

func TestStore_AuditListener(t *testing.T) {
	s := newItemStore(newRecordingSession(),
		WithListener[entity.Item, int64](NewAuditListener[entity.Item](clock)))
	ctx := domain.WithActor(context.Background(), "alice")

	item := &entity.Item{Name: "audited"}
	if _, err := s.Save(ctx, item); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !item.CreatedAt.Equal(fixedNow) || item.CreatedBy != "alice" {
		t.Fatalf("created audit not stamped: %+v", item.Audit)
	}
	if item.ModifiedAt != nil {
		t.Fatal("modified_at must stay unset on insert")
	}

	if err := s.Update(domain.WithActor(context.Background(), "bob"), item); err != nil {
		t.Fatalf("update: %v", err)
	}
	if item.ModifiedAt == nil || item.ModifiedBy != "bob" {
		t.Fatalf("modified audit not stamped: %+v", item.Audit)
	}
	if item.CreatedBy != "alice" {
		t.Fatal("update must not touch created_by")
	}
}

func TestStore_Query_Unsupported(t *testing.T) {
	s := newItemStore(newRecordingSession())

	if _, err := s.Query(context.Background(), "SELECT 1"); !errors.Is(err, domain.ErrNativeQueryUnsupported) {
		t.Fatalf("expected ErrNativeQueryUnsupported, got %v", err)
	}
}
