package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductReader is the catalog collaborator port.
// Implementations return shared.ErrNotFound for unknown products.
type ProductReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDs returns the products that exist; missing ids are absent from the map
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
}
