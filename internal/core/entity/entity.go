// Package entity holds the persisted records and the capability structs they
// are composed from. Capabilities are plain structs embedded anonymously; each
// one brings the columns it needs and the methods the store and sessions look
// for at runtime (Auditable, Deletable, Versionable).
package entity

import "time"

// Identifiable is implemented by every persisted record.
type Identifiable[K comparable] interface {
	GetID() K
	SetID(id K)
}

// Ref constrains P to be *T with an identity of type K. Generic constructors
// take it as their last type parameter so callers only spell T and K.
type Ref[T any, K comparable] interface {
	*T
	Identifiable[K]
}

// Auditable records who created and last modified a record.
type Auditable interface {
	Created() (at time.Time, by string)
	MarkCreated(at time.Time, by string)
	MarkModified(at time.Time, by string)
}

// Deletable records logical deletion instead of removing the row.
type Deletable interface {
	MarkDeleted(at time.Time, by string)
	IsDeleted() bool
}

// Versionable carries the optimistic-lock counter.
type Versionable interface {
	GetVersion() int64
	SetVersion(v int64)
}

// IsZeroKey reports whether id is the unset value for its type.
func IsZeroKey[K comparable](id K) bool {
	var zero K
	return id == zero
}

// --- Capability structs ---

// Base is the primary-key capability. Embed it anonymously.
type Base[K comparable] struct {
	ID K `db:"id" bson:"_id" json:"id"`
}

func (b *Base[K]) GetID() K   { return b.ID }
func (b *Base[K]) SetID(id K) { b.ID = id }

// Audit stores (timestamp, actor) pairs for creation, last modification and
// logical deletion. A nil DeletedAt means the record is active.
type Audit struct {
	CreatedAt  time.Time  `db:"created_at"  bson:"created_at"            json:"created_at"`
	CreatedBy  string     `db:"created_by"  bson:"created_by"            json:"created_by"`
	ModifiedAt *time.Time `db:"modified_at" bson:"modified_at,omitempty" json:"modified_at,omitempty"`
	ModifiedBy string     `db:"modified_by" bson:"modified_by"           json:"modified_by"`
	DeletedAt  *time.Time `db:"deleted_at"  bson:"deleted_at,omitempty"  json:"deleted_at,omitempty"`
	DeletedBy  string     `db:"deleted_by"  bson:"deleted_by"            json:"deleted_by"`
}

func (a *Audit) Created() (time.Time, string) { return a.CreatedAt, a.CreatedBy }

func (a *Audit) MarkCreated(at time.Time, by string) {
	a.CreatedAt = at
	a.CreatedBy = by
}

func (a *Audit) MarkModified(at time.Time, by string) {
	a.ModifiedAt = &at
	a.ModifiedBy = by
}

func (a *Audit) MarkDeleted(at time.Time, by string) {
	a.DeletedAt = &at
	a.DeletedBy = by
}

func (a *Audit) IsDeleted() bool { return a.DeletedAt != nil }

// Versioned adds the optimistic-lock counter. Sessions own its value.
type Versioned struct {
	Version int64 `db:"version" bson:"version" json:"version"`
}

func (v *Versioned) GetVersion() int64  { return v.Version }
func (v *Versioned) SetVersion(n int64) { v.Version = n }

// Visibility is a soft enable/disable switch, independent of deletion.
type Visibility struct {
	Active bool `db:"active" bson:"active" json:"active"`
}

// Ownership is a (owner, key, value) triple scoped to a parent record.
type Ownership[O comparable] struct {
	OwnerID O      `db:"owner_id" bson:"owner_id" json:"owner_id"`
	Key     string `db:"key"      bson:"key"      json:"key"`
	Value   string `db:"value"    bson:"value"    json:"value"`
}
