package sqldb

import (
	"context"
	"database/sql"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

const (
	idColumn      = "id"
	versionColumn = "version"
	deletedColumn = "deleted_at"
)

// Table is a ports.Session over one SQL table. Columns come from the db tags
// of T, embedded capability structs included.
type Table[T any, K comparable] struct {
	db      *DB
	name    string
	columns []string
	keygen  func() K

	versioned bool
	deletable bool

	key    func(*T) K
	setKey func(*T, K)
}

var _ ports.Session[entity.Item, int64] = (*Table[entity.Item, int64])(nil)

// NewTable binds T to the table name. With a nil keygen the database
// generates keys for records inserted without one.
func NewTable[T any, K comparable, P entity.Ref[T, K]](db *DB, name string, keygen func() K) *Table[T, K] {
	sample := any(new(T))
	_, versioned := sample.(entity.Versionable)
	_, deletable := sample.(entity.Deletable)

	return &Table[T, K]{
		db:        db,
		name:      name,
		columns:   columnsOf(reflect.TypeOf((*T)(nil)).Elem()),
		keygen:    keygen,
		versioned: versioned,
		deletable: deletable,
		key:       func(e *T) K { return P(e).GetID() },
		setKey:    func(e *T, id K) { P(e).SetID(id) },
	}
}

func columnsOf(t reflect.Type) []string {
	var cols []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("db")
		if f.Anonymous && f.Type.Kind() == reflect.Struct && tag == "" {
			cols = append(cols, columnsOf(f.Type)...)
			continue
		}
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

func (t *Table[T, K]) Columns() []string { return t.columns }

func (t *Table[T, K]) selectFrom() string {
	return "SELECT " + strings.Join(lo.Map(t.columns, func(c string, _ int) string { return quote(c) }), ", ") +
		" FROM " + quote(t.name)
}

func (t *Table[T, K]) visibleOnly(where string) string {
	if !t.deletable {
		return where
	}
	if where == "" {
		return " WHERE " + quote(deletedColumn) + " IS NULL"
	}
	return where + " AND " + quote(deletedColumn) + " IS NULL"
}

func (t *Table[T, K]) load(ctx context.Context, id K, includeDeleted bool) (*T, error) {
	q := t.db.Querier(ctx)
	where := " WHERE " + quote(idColumn) + " = ?"
	if !includeDeleted {
		where = t.visibleOnly(where)
	}

	row := new(T)
	err := sqlx.GetContext(ctx, q, row, q.Rebind(t.selectFrom()+where), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "sqldb: find %s", t.name)
	}
	return row, nil
}

func (t *Table[T, K]) Find(ctx context.Context, id K) (*T, error) {
	return t.load(ctx, id, false)
}

func (t *Table[T, K]) FindAll(ctx context.Context) ([]*T, error) {
	return t.selectWhere(ctx, t.visibleOnly(""))
}

// FindBy matches one column by equality. Unknown columns are rejected
// before any SQL is built.
func (t *Table[T, K]) FindBy(ctx context.Context, field string, value any) ([]*T, error) {
	if !lo.Contains(t.columns, field) {
		return nil, errors.Wrapf(domain.ErrUnknownField, "%s.%s", t.name, field)
	}
	return t.selectWhere(ctx, t.visibleOnly(" WHERE "+quote(field)+" = ?"), value)
}

func (t *Table[T, K]) selectWhere(ctx context.Context, where string, args ...any) ([]*T, error) {
	q := t.db.Querier(ctx)
	rows := []*T{}
	query := t.selectFrom() + where + " ORDER BY " + quote(idColumn)
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, errors.Wrapf(err, "sqldb: select %s", t.name)
	}
	return rows, nil
}

func (t *Table[T, K]) Insert(ctx context.Context, e *T) (K, error) {
	var zero K
	if entity.IsZeroKey(t.key(e)) && t.keygen != nil {
		t.setKey(e, t.keygen())
	}
	if v, ok := any(e).(entity.Versionable); ok {
		v.SetVersion(1)
	}

	generated := entity.IsZeroKey(t.key(e))
	cols := t.columns
	if generated {
		cols = lo.Without(cols, idColumn)
	}

	query := "INSERT INTO " + quote(t.name) + " (" +
		strings.Join(lo.Map(cols, func(c string, _ int) string { return quote(c) }), ", ") +
		") VALUES (" +
		strings.Join(lo.Map(cols, func(c string, _ int) string { return ":" + c }), ", ") + ")"

	q := t.db.Querier(ctx)
	if !generated {
		if _, err := sqlx.NamedExecContext(ctx, q, query, e); err != nil {
			return zero, insertError(err, t.name)
		}
		return t.key(e), nil
	}

	rows, err := sqlx.NamedQueryContext(ctx, q, query+" RETURNING "+quote(idColumn), e)
	if err != nil {
		return zero, insertError(err, t.name)
	}
	var id K
	scanErr := errors.New("sqldb: insert returned no key")
	if rows.Next() {
		scanErr = rows.Scan(&id)
	}
	if err := rows.Close(); err != nil && scanErr == nil {
		scanErr = err
	}
	if scanErr != nil {
		return zero, insertError(scanErr, t.name)
	}
	t.setKey(e, id)
	return id, nil
}

// Update writes every column but the key. Versioned rows only match their
// current version, which the database then bumps by one.
func (t *Table[T, K]) Update(ctx context.Context, e *T) error {
	sets := lo.FilterMap(t.columns, func(c string, _ int) (string, bool) {
		if c == idColumn || (t.versioned && c == versionColumn) {
			return "", false
		}
		return quote(c) + " = :" + c, true
	})
	where := " WHERE " + quote(idColumn) + " = :" + idColumn
	if t.versioned {
		sets = append(sets, quote(versionColumn)+" = "+quote(versionColumn)+" + 1")
		where += " AND " + quote(versionColumn) + " = :" + versionColumn
	}
	query := "UPDATE " + quote(t.name) + " SET " + strings.Join(sets, ", ") + where

	res, err := sqlx.NamedExecContext(ctx, t.db.Querier(ctx), query, e)
	if err != nil {
		return errors.Wrapf(err, "sqldb: update %s", t.name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "sqldb: update %s", t.name)
	}

	if v, ok := any(e).(entity.Versionable); ok {
		if n == 0 {
			return domain.ErrOptimisticLock
		}
		v.SetVersion(v.GetVersion() + 1)
		return nil
	}
	if n == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

// Merge inserts e when its key is unset or unknown and updates it otherwise,
// then returns the stored row.
func (t *Table[T, K]) Merge(ctx context.Context, e *T) (*T, error) {
	id := t.key(e)
	var existing *T
	if !entity.IsZeroKey(id) {
		var err error
		if existing, err = t.load(ctx, id, true); err != nil {
			return nil, err
		}
	}
	if existing == nil {
		var err error
		if id, err = t.Insert(ctx, e); err != nil {
			return nil, err
		}
	} else if err := t.Update(ctx, e); err != nil {
		return nil, err
	}
	return t.load(ctx, id, true)
}

func (t *Table[T, K]) Remove(ctx context.Context, e *T) error {
	q := t.db.Querier(ctx)
	query := q.Rebind("DELETE FROM " + quote(t.name) + " WHERE " + quote(idColumn) + " = ?")

	res, err := q.ExecContext(ctx, query, t.key(e))
	if err != nil {
		return errors.Wrapf(err, "sqldb: delete %s", t.name)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (t *Table[T, K]) Refresh(ctx context.Context, e *T) error {
	row, err := t.load(ctx, t.key(e), true)
	if err != nil {
		return err
	}
	if row == nil {
		return domain.ErrEntityNotFound
	}
	*e = *row
	return nil
}

// NativeQuery runs raw SQL. Placeholders are written as "?" and rebound for
// the driver; the result columns must match T's db tags.
func (t *Table[T, K]) NativeQuery(ctx context.Context, query string, args ...any) ([]*T, error) {
	q := t.db.Querier(ctx)
	rows := []*T{}
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, errors.Wrapf(err, "sqldb: native query on %s", t.name)
	}
	return rows, nil
}
