package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

// Numbers decode as json.Number so large keys compare by their digits.
var json = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Table is a ports.Session over an in-memory map. Rows are stored by value
// and copied on the way in and out, so callers never share state with the
// table.
type Table[T any, K comparable] struct {
	mu     sync.RWMutex
	rows   map[K]T
	order  []K
	nextID func() K
	key    func(*T) K
	setKey func(*T, K)
}

var _ ports.Session[entity.Item, int64] = (*Table[entity.Item, int64])(nil)

// NewTable creates a table registered with db. nextID assigns keys to
// records inserted without one.
func NewTable[T any, K comparable, P entity.Ref[T, K]](db *Database, nextID func() K) *Table[T, K] {
	t := &Table[T, K]{
		rows:   make(map[K]T),
		nextID: nextID,
		key:    func(e *T) K { return P(e).GetID() },
		setKey: func(e *T, id K) { P(e).SetID(id) },
	}
	if db != nil {
		db.register(t)
	}
	return t
}

func (t *Table[T, K]) snapshot() func() {
	t.mu.RLock()
	rows := make(map[K]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	order := append([]K(nil), t.order...)
	t.mu.RUnlock()

	return func() {
		t.mu.Lock()
		t.rows = rows
		t.order = order
		t.mu.Unlock()
	}
}

func visible[T any](row *T) bool {
	if d, ok := any(row).(entity.Deletable); ok {
		return !d.IsDeleted()
	}
	return true
}

func (t *Table[T, K]) Find(_ context.Context, id K) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok || !visible(&row) {
		return nil, nil
	}
	return &row, nil
}

func (t *Table[T, K]) FindAll(_ context.Context) ([]*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.collect(func(*T) bool { return true }), nil
}

// FindBy compares the JSON representation of field with value.
func (t *Table[T, K]) FindBy(_ context.Context, field string, value any) ([]*T, error) {
	want := fmt.Sprint(value)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var matchErr error
	out := t.collect(func(row *T) bool {
		fields, err := fieldsOf(row)
		if err != nil {
			matchErr = err
			return false
		}
		got, ok := fields[field]
		return ok && fmt.Sprint(got) == want
	})
	if matchErr != nil {
		return nil, matchErr
	}
	return out, nil
}

func (t *Table[T, K]) collect(match func(*T) bool) []*T {
	visibleKeys := lo.Filter(t.order, func(k K, _ int) bool {
		row := t.rows[k]
		return visible(&row) && match(&row)
	})
	return lo.Map(visibleKeys, func(k K, _ int) *T {
		row := t.rows[k]
		return &row
	})
}

func fieldsOf[T any](row *T) (map[string]any, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "memory: encode row")
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "memory: decode row")
	}
	return fields, nil
}

func (t *Table[T, K]) Insert(_ context.Context, e *T) (K, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.insertLocked(e)
}

func (t *Table[T, K]) insertLocked(e *T) (K, error) {
	id := t.key(e)
	if entity.IsZeroKey(id) {
		id = t.nextID()
		t.setKey(e, id)
	}
	if _, exists := t.rows[id]; exists {
		var zero K
		return zero, errors.Wrapf(domain.ErrDuplicateKey, "memory: %v", id)
	}
	if v, ok := any(e).(entity.Versionable); ok {
		v.SetVersion(1)
	}
	t.rows[id] = *e
	t.order = append(t.order, id)
	return id, nil
}

func (t *Table[T, K]) Update(_ context.Context, e *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.updateLocked(e)
}

func (t *Table[T, K]) updateLocked(e *T) error {
	id := t.key(e)
	current, exists := t.rows[id]

	if v, ok := any(e).(entity.Versionable); ok {
		if !exists {
			return domain.ErrOptimisticLock
		}
		stored := any(&current).(entity.Versionable).GetVersion()
		if stored != v.GetVersion() {
			return domain.ErrOptimisticLock
		}
		v.SetVersion(stored + 1)
	} else if !exists {
		return domain.ErrEntityNotFound
	}

	t.rows[id] = *e
	return nil
}

// Merge inserts e when its key is unset or unknown and updates it otherwise.
func (t *Table[T, K]) Merge(_ context.Context, e *T) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.key(e)
	if _, exists := t.rows[id]; entity.IsZeroKey(id) || !exists {
		if _, err := t.insertLocked(e); err != nil {
			return nil, err
		}
	} else if err := t.updateLocked(e); err != nil {
		return nil, err
	}
	stored := t.rows[t.key(e)]
	return &stored, nil
}

func (t *Table[T, K]) Remove(_ context.Context, e *T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.key(e)
	if _, exists := t.rows[id]; !exists {
		return domain.ErrEntityNotFound
	}
	delete(t.rows, id)
	t.order = lo.Without(t.order, id)
	return nil
}

func (t *Table[T, K]) Refresh(_ context.Context, e *T) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[t.key(e)]
	if !ok {
		return domain.ErrEntityNotFound
	}
	*e = row
	return nil
}

func (t *Table[T, K]) NativeQuery(context.Context, string, ...any) ([]*T, error) {
	return nil, domain.ErrNativeQueryUnsupported
}

// Len reports the number of stored rows, deleted ones included.
func (t *Table[T, K]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
