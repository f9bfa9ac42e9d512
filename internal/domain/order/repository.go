package order

import (
	"context"

	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create inserts a new order with its items
	Create(ctx context.Context, o *Order) error

	// UpdateStatus persists lifecycle fields only, with optimistic locking on version
	UpdateStatus(ctx context.Context, o *Order) error

	// FindByID returns shared.ErrNotFound when missing
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByCheckout returns the orders placed by a checkout session
	FindByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]Order, error)

	// FindByClient lists a client's orders, filtered by Filters["status"] when set
	FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]Order, int64, error)

	// FindByBusiness lists a business's orders, filtered by Filters["status"] when set
	FindByBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]Order, int64, error)
}
