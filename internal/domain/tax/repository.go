package tax

import (
	"context"

	"github.com/google/uuid"
)

// TaxRepository persists tax types and product assignments
type TaxRepository interface {
	SaveTaxType(ctx context.Context, t *TaxType) error
	FindTaxType(ctx context.Context, id uuid.UUID) (*TaxType, error)
	FindTaxTypesByIDs(ctx context.Context, ids []uuid.UUID) ([]TaxType, error)
	FindTaxTypesByBusiness(ctx context.Context, businessID uuid.UUID) ([]TaxType, error)
	AssignToProduct(ctx context.Context, pt *ProductTax) error
	// FindProductTaxes returns assignments keyed by product id
	FindProductTaxes(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]ProductTax, error)
}
