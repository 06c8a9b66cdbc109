package mongo

import (
	"context"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

const (
	idField      = "_id"
	versionField = "version"
	deletedField = "deleted_at"
)

// Collection is a ports.Session over one MongoDB collection. Documents are
// the entities themselves, encoded through their bson tags.
type Collection[T any, K comparable] struct {
	col    *mongo.Collection
	fields []string
	keygen KeyGen[K]

	versioned bool
	deletable bool

	key    func(*T) K
	setKey func(*T, K)
}

var _ ports.Session[entity.Item, int64] = (*Collection[entity.Item, int64])(nil)

func NewCollection[T any, K comparable, P entity.Ref[T, K]](db *mongo.Database, name string, keygen KeyGen[K]) *Collection[T, K] {
	sample := any(new(T))
	_, versioned := sample.(entity.Versionable)
	_, deletable := sample.(entity.Deletable)

	return &Collection[T, K]{
		col:       db.Collection(name),
		fields:    fieldsOf(reflect.TypeOf((*T)(nil)).Elem()),
		keygen:    keygen,
		versioned: versioned,
		deletable: deletable,
		key:       func(e *T) K { return P(e).GetID() },
		setKey:    func(e *T, id K) { P(e).SetID(id) },
	}
}

// fieldsOf lists the bson field names of t, descending into inlined structs.
func fieldsOf(t reflect.Type) []string {
	var fields []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("bson"), ",")
		if f.Anonymous && f.Type.Kind() == reflect.Struct && strings.Contains(opts, "inline") {
			fields = append(fields, fieldsOf(f.Type)...)
			continue
		}
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, name)
	}
	return fields
}

// fieldName maps a json/db style name onto the stored field.
func fieldName(field string) string {
	if field == "id" {
		return idField
	}
	return field
}

func (c *Collection[T, K]) visible(filter bson.M) bson.M {
	if c.deletable {
		filter[deletedField] = nil
	}
	return filter
}

func (c *Collection[T, K]) load(ctx context.Context, filter bson.M) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := new(T)
	err := c.col.FindOne(ctx, filter).Decode(row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "mongo: find %s", c.col.Name())
	}
	return row, nil
}

func (c *Collection[T, K]) Find(ctx context.Context, id K) (*T, error) {
	return c.load(ctx, c.visible(bson.M{idField: id}))
}

func (c *Collection[T, K]) FindAll(ctx context.Context) ([]*T, error) {
	return c.find(ctx, c.visible(bson.M{}))
}

func (c *Collection[T, K]) FindBy(ctx context.Context, field string, value any) ([]*T, error) {
	name := fieldName(field)
	if !lo.Contains(c.fields, name) {
		return nil, errors.Wrapf(domain.ErrUnknownField, "%s.%s", c.col.Name(), field)
	}
	return c.find(ctx, c.visible(bson.M{name: value}))
}

func (c *Collection[T, K]) find(ctx context.Context, filter any) ([]*T, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := c.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: idField, Value: 1}}))
	if err != nil {
		return nil, errors.Wrapf(err, "mongo: find %s", c.col.Name())
	}
	rows := []*T{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errors.Wrapf(err, "mongo: decode %s", c.col.Name())
	}
	return rows, nil
}

func (c *Collection[T, K]) Insert(ctx context.Context, e *T) (K, error) {
	var zero K
	if entity.IsZeroKey(c.key(e)) {
		if c.keygen == nil {
			return zero, errors.Newf("mongo: %s has no key generator", c.col.Name())
		}
		id, err := c.keygen(ctx)
		if err != nil {
			return zero, err
		}
		c.setKey(e, id)
	}
	if v, ok := any(e).(entity.Versionable); ok {
		v.SetVersion(1)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := c.col.InsertOne(ctx, e); err != nil {
		wrapped := errors.Wrapf(err, "mongo: insert %s", c.col.Name())
		if mongo.IsDuplicateKeyError(err) {
			return zero, errors.Mark(wrapped, domain.ErrDuplicateKey)
		}
		return zero, wrapped
	}
	return c.key(e), nil
}

// Update replaces the document. Versioned documents only match their
// current version and are written with the next one.
func (c *Collection[T, K]) Update(ctx context.Context, e *T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{idField: c.key(e)}
	v, versioned := any(e).(entity.Versionable)
	if versioned {
		current := v.GetVersion()
		filter[versionField] = current
		v.SetVersion(current + 1)
	}

	res, err := c.col.ReplaceOne(ctx, filter, e)
	if err != nil {
		if versioned {
			v.SetVersion(v.GetVersion() - 1)
		}
		return errors.Wrapf(err, "mongo: update %s", c.col.Name())
	}
	if res.MatchedCount == 0 {
		if versioned {
			v.SetVersion(v.GetVersion() - 1)
			return domain.ErrOptimisticLock
		}
		return domain.ErrEntityNotFound
	}
	return nil
}

func (c *Collection[T, K]) Merge(ctx context.Context, e *T) (*T, error) {
	id := c.key(e)
	var existing *T
	if !entity.IsZeroKey(id) {
		var err error
		if existing, err = c.load(ctx, bson.M{idField: id}); err != nil {
			return nil, err
		}
	}
	if existing == nil {
		var err error
		if id, err = c.Insert(ctx, e); err != nil {
			return nil, err
		}
	} else if err := c.Update(ctx, e); err != nil {
		return nil, err
	}
	return c.load(ctx, bson.M{idField: id})
}

func (c *Collection[T, K]) Remove(ctx context.Context, e *T) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := c.col.DeleteOne(ctx, bson.M{idField: c.key(e)})
	if err != nil {
		return errors.Wrapf(err, "mongo: delete %s", c.col.Name())
	}
	if res.DeletedCount == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (c *Collection[T, K]) Refresh(ctx context.Context, e *T) error {
	row, err := c.load(ctx, bson.M{idField: c.key(e)})
	if err != nil {
		return err
	}
	if row == nil {
		return domain.ErrEntityNotFound
	}
	*e = *row
	return nil
}

// NativeQuery takes a filter document in extended JSON, e.g.
// {"name": {"$regex": "^lamp"}}. Positional arguments are not supported.
func (c *Collection[T, K]) NativeQuery(ctx context.Context, query string, args ...any) ([]*T, error) {
	filter, err := ParseFilter(query, args...)
	if err != nil {
		return nil, err
	}
	return c.find(ctx, filter)
}

// ParseFilter decodes an extended JSON filter document.
func ParseFilter(query string, args ...any) (bson.M, error) {
	if len(args) > 0 {
		return nil, errors.New("mongo: native queries take no arguments")
	}
	var filter bson.M
	if err := bson.UnmarshalExtJSON([]byte(query), false, &filter); err != nil {
		return nil, errors.Wrap(err, "mongo: parse filter")
	}
	return filter, nil
}
