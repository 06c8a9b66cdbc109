package ports

import "context"

// CRUDService exposes domain-object typed CRUD. D is the detached domain
// object, K its key.
type CRUDService[D any, K comparable] interface {
	// Create persists d and copies the assigned key back onto it.
	Create(ctx context.Context, d *D) (*D, error)
	// Read returns nil when id is unknown.
	Read(ctx context.Context, id K) (*D, error)
	// Update patches the stored record with the non-zero fields of d and
	// returns d as given.
	Update(ctx context.Context, d *D) (*D, error)
	// Delete removes the record and returns its state before deletion.
	Delete(ctx context.Context, id K) (*D, error)
	FindAll(ctx context.Context) ([]*D, error)
	FindBy(ctx context.Context, field string, value any) ([]*D, error)
}
