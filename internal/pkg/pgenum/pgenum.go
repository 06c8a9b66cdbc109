// Package pgenum maps Go string enums onto native Postgres enum columns.
//
// An enum type is defined once with Define and registered under a name.
// Configuration refers to that name; Resolve fails immediately when it is
// unknown so a bad setting stops the process at startup rather than on the
// first query.
package pgenum

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnknownType     = errors.New("pgenum: unknown enum type")
	ErrUnknownConstant = errors.New("pgenum: unknown enum constant")
)

// Descriptor is the type-erased view of an enum used by schema bootstrap.
type Descriptor interface {
	Name() string
	Labels() []string
}

// Type is a registered enum whose constants are values of E.
type Type[E ~string] struct {
	name      string
	labels    []string
	constants map[string]E
}

var (
	mu       sync.RWMutex
	registry = map[string]Descriptor{}
)

// Define registers an enum type under name. Defining the same name twice
// panics; definitions are package-level vars, so this is a programming error.
func Define[E ~string](name string, constants ...E) *Type[E] {
	t := &Type[E]{
		name:      name,
		labels:    make([]string, 0, len(constants)),
		constants: make(map[string]E, len(constants)),
	}
	for _, c := range constants {
		t.labels = append(t.labels, string(c))
		t.constants[string(c)] = c
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("pgenum: type %q defined twice", name))
	}
	registry[name] = t
	return t
}

// Resolve looks up a registered enum type by name.
func Resolve(name string) (Descriptor, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q (registered: %v)", name, registeredNames())
	}
	return d, nil
}

func registeredNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *Type[E]) Name() string { return t.name }

// Labels returns the constants in definition order.
func (t *Type[E]) Labels() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Parse resolves a label to its constant by exact name.
func (t *Type[E]) Parse(label string) (E, error) {
	c, ok := t.constants[label]
	if !ok {
		var zero E
		return zero, errors.Wrapf(ErrUnknownConstant, "%s: %q", t.name, label)
	}
	return c, nil
}

// Scan reads a column value into dst.
//
// lib/pq hands enum columns over as []byte, pgx and sqlite as string.
// NULL leaves the zero value; nullable columns should use *E so database/sql
// keeps the pointer nil and never calls Scan.
func (t *Type[E]) Scan(dst *E, src any) error {
	switch v := src.(type) {
	case nil:
		var zero E
		*dst = zero
		return nil
	case []byte:
		c, err := t.Parse(string(v))
		if err != nil {
			return err
		}
		*dst = c
		return nil
	case string:
		c, err := t.Parse(v)
		if err != nil {
			return err
		}
		*dst = c
		return nil
	default:
		return errors.Newf("pgenum: cannot scan %T into %s", src, t.name)
	}
}

// Value binds v as an untyped text parameter; Postgres coerces it to the
// column's enum type. The zero value is written as NULL.
func (t *Type[E]) Value(v E) (driver.Value, error) {
	if v == "" {
		return nil, nil
	}
	if _, ok := t.constants[string(v)]; !ok {
		return nil, errors.Wrapf(ErrUnknownConstant, "%s: %q", t.name, string(v))
	}
	return string(v), nil
}
