// Package mapper copies between persisted entities and detached domain
// objects. Both sides are matched by their json field names: the source is
// encoded to a field map and decoded into the target, so embedded capability
// structs on the entity side line up with the flat domain structs.
package mapper

import (
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

var codec = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// ToMap encodes value into its json field map.
func ToMap(value any) (map[string]any, error) {
	raw, err := codec.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "mapper: encode")
	}
	var fields map[string]any
	if err := codec.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "mapper: decode to map")
	}
	return fields, nil
}

// decodeInto overlays fields onto out, which must be a non-nil pointer.
func decodeInto(fields map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "mapper: build decoder")
	}
	if err := decoder.Decode(fields); err != nil {
		return errors.Wrapf(err, "mapper: decode into %T", out)
	}
	return nil
}

// Map copies src into a new D. A nil src maps to nil.
func Map[D any](src any) (*D, error) {
	if isNil(src) {
		return nil, nil
	}
	fields, err := ToMap(src)
	if err != nil {
		return nil, err
	}
	out := new(D)
	if err := decodeInto(fields, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MapNew copies src into a new D without its audit columns.
func MapNew[D any](src any) (*D, error) {
	if isNil(src) {
		return nil, nil
	}
	fields, err := ToMap(src)
	if err != nil {
		return nil, err
	}
	out := new(D)
	if err := decodeInto(lo.OmitByKeys(fields, auditFields), out); err != nil {
		return nil, err
	}
	return out, nil
}

// MapList maps every element of src, preserving order.
func MapList[D any, S any](src []*S) ([]*D, error) {
	out := make([]*D, 0, len(src))
	for _, s := range src {
		d, err := Map[D](s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// auditFields are stamped by the store's listeners and never taken from a
// caller.
var auditFields = []string{
	"created_at", "created_by",
	"modified_at", "modified_by",
	"deleted_at", "deleted_by",
}

// Patch overlays the non-zero fields of src onto dst. Empty strings, zero
// numbers, nulls and empty collections are left out; booleans are always
// copied, so domain objects keep optional flags behind pointers. Audit
// columns on dst are never overwritten.
func Patch(dst any, src any) error {
	if isNil(src) {
		return nil
	}
	fields, err := ToMap(src)
	if err != nil {
		return err
	}
	fields = lo.OmitByKeys(fields, auditFields)
	fields = lo.OmitBy(fields, func(_ string, v any) bool { return isZeroField(v) })
	return decodeInto(fields, dst)
}

func isZeroField(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case float64:
		return x == 0
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Mapper is the typed pair of conversions for one entity E and its domain
// object D.
type Mapper[E any, D any] struct{}

func New[E any, D any]() Mapper[E, D] { return Mapper[E, D]{} }

func (Mapper[E, D]) ToDomain(e *E) (*D, error) { return Map[D](e) }

func (Mapper[E, D]) ToEntity(d *D) (*E, error) { return Map[E](d) }

// ToNewEntity is ToEntity for a record about to be inserted: audit columns
// are left for the store's listeners to stamp.
func (Mapper[E, D]) ToNewEntity(d *D) (*E, error) { return MapNew[E](d) }

func (Mapper[E, D]) ToDomainList(es []*E) ([]*D, error) { return MapList[D](es) }

func (Mapper[E, D]) ToEntityList(ds []*D) ([]*E, error) { return MapList[E](ds) }

// Patch overlays the non-zero fields of d onto e.
func (Mapper[E, D]) Patch(e *E, d *D) error { return Patch(e, d) }
