package domain

import (
	"time"

	"github.com/google/uuid"
)

// Item is the detached, persistence-agnostic copy of a catalog item.
// Pointer fields distinguish "not sent" from the zero value so that updates
// only touch what the caller provided.
type Item struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"                  validate:"required,max=200"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	Color       string     `json:"color,omitempty"       validate:"omitempty,oneof=RED GREEN BLUE"`
	Active      *bool      `json:"active,omitempty"`
	Version     int64      `json:"version,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	CreatedBy   string     `json:"created_by,omitempty"`
	ModifiedAt  *time.Time `json:"modified_at,omitempty"`
	ModifiedBy  string     `json:"modified_by,omitempty"`
}

func (i *Item) GetID() int64   { return i.ID }
func (i *Item) SetID(id int64) { i.ID = id }

// Property is a key/value attribute attached to an owning item.
type Property struct {
	ID      uuid.UUID `json:"id"`
	OwnerID int64     `json:"owner_id" validate:"required,gt=0"`
	Key     string    `json:"key"      validate:"required,max=100"`
	Value   string    `json:"value"    validate:"max=2000"`
}

func (p *Property) GetID() uuid.UUID   { return p.ID }
func (p *Property) SetID(id uuid.UUID) { p.ID = id }
