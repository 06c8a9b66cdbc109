package handler

import (
	"encoding"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/catalog-system/internal/api/metrics"
	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"
)

// KeyParser turns a path or idempotency-store value into a key.
type KeyParser[K comparable] func(string) (K, error)

func Int64Key(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }

func UUIDKey(s string) (uuid.UUID, error) { return uuid.Parse(s) }

// Resource exposes one CRUD service over REST. D is the request and
// response body, K the path key.
type Resource[D any, K comparable] struct {
	name        string
	service     ports.CRUDService[D, K]
	idempotency ports.IdempotencyStore
	parseKey    KeyParser[K]
	key         func(*D) K
	logger      zerolog.Logger
}

// NewResource binds service under name. name also scopes idempotency keys
// and labels replay metrics. idempotency may be nil.
func NewResource[D any, K comparable, PD entity.Ref[D, K]](
	name string,
	service ports.CRUDService[D, K],
	idempotency ports.IdempotencyStore,
	parseKey KeyParser[K],
	logger zerolog.Logger,
) *Resource[D, K] {
	return &Resource[D, K]{
		name:        name,
		service:     service,
		idempotency: idempotency,
		parseKey:    parseKey,
		key:         func(d *D) K { return PD(d).GetID() },
		logger:      logger,
	}
}

func (r *Resource[D, K]) pathKey(c echo.Context) (K, error) {
	id, err := r.parseKey(c.Param("id"))
	if err != nil {
		return id, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (r *Resource[D, K]) bind(c echo.Context) (*D, error) {
	d := new(D)
	if err := c.Bind(d); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// bindPatch binds a body that may omit any field but the id.
func (r *Resource[D, K]) bindPatch(c echo.Context) (*D, error) {
	d := new(D)
	if err := c.Bind(d); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	pv, ok := c.Echo().Validator.(PartialValidator)
	if !ok {
		return d, nil
	}
	if err := pv.ValidatePartial(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Create stores the body. A repeated Idempotency-Key returns the record the
// first request created instead of creating another one.
func (r *Resource[D, K]) Create(c echo.Context) error {
	d, err := r.bind(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	idemKey := c.Request().Header.Get(HeaderIdempotencyKey)
	if idemKey != "" && r.idempotency != nil {
		existing, err := r.replay(c, idemKey)
		if err != nil {
			return err
		}
		if existing != nil {
			metrics.IdempotentReplaysTotal.WithLabelValues(r.name).Inc()
			c.Response().Header().Set(HeaderIdempotentReplayed, "true")
			return c.JSON(http.StatusCreated, existing)
		}
	}

	created, err := r.service.Create(ctx, d)
	if err != nil {
		return err
	}

	if idemKey != "" && r.idempotency != nil {
		if err := r.idempotency.Remember(ctx, r.name, idemKey, fmt.Sprint(r.key(created))); err != nil {
			r.logger.Warn().Err(err).Str("resource", r.name).Msg("idempotency key not stored")
		}
	}

	return c.JSON(http.StatusCreated, created)
}

func (r *Resource[D, K]) replay(c echo.Context, idemKey string) (*D, error) {
	ctx := c.Request().Context()
	stored, found, err := r.idempotency.Recall(ctx, r.name, idemKey)
	if err != nil || !found {
		return nil, err
	}
	id, err := r.parseKey(stored)
	if err != nil {
		return nil, errors.Wrapf(err, "idempotency: stored key %q", stored)
	}
	// The record may have been deleted since; a fresh create is then correct.
	return r.service.Read(ctx, id)
}

// Read answers 404 when the id is unknown.
func (r *Resource[D, K]) Read(c echo.Context) error {
	id, err := r.pathKey(c)
	if err != nil {
		return err
	}
	d, err := r.service.Read(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if d == nil {
		return domain.ErrEntityNotFound
	}
	return c.JSON(http.StatusOK, d)
}

// Update takes the id from the body and applies its non-zero fields. Fields
// left out keep their stored values.
func (r *Resource[D, K]) Update(c echo.Context) error {
	d, err := r.bindPatch(c)
	if err != nil {
		return err
	}
	if entity.IsZeroKey(r.key(d)) {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	updated, err := r.service.Update(c.Request().Context(), d)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete answers with the record as it was before deletion.
func (r *Resource[D, K]) Delete(c echo.Context) error {
	id, err := r.pathKey(c)
	if err != nil {
		return err
	}
	deleted, err := r.service.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleted)
}

// List returns every record, or only those where ?field= equals ?value=.
func (r *Resource[D, K]) List(c echo.Context) error {
	ctx := c.Request().Context()
	field := c.QueryParam("field")

	var (
		out []*D
		err error
	)
	if field == "" {
		out, err = r.service.FindAll(ctx)
	} else {
		out, err = r.service.FindBy(ctx, field, queryValue[D](field, c.QueryParam("value")))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// queryValue converts raw to the type of the D field whose json name is
// field, so type-strict backends compare like with like. Text fields and
// names D does not carry keep the raw string; the session decides whether
// the field exists.
func queryValue[D any](field, raw string) any {
	f, ok := jsonField(reflect.TypeFor[D](), field)
	if !ok {
		return raw
	}
	t := f.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if reflect.PointerTo(t).Implements(reflect.TypeFor[encoding.TextUnmarshaler]()) {
		v := reflect.New(t)
		if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err == nil {
			return v.Elem().Interface()
		}
		return raw
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
			return n
		}
	case reflect.Float32, reflect.Float64:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

func jsonField(t reflect.Type, name string) (reflect.StructField, bool) {
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	return t.FieldByNameFunc(func(goName string) bool {
		f, _ := t.FieldByName(goName)
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return tag == name
	})
}
