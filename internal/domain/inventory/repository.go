package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockLedger is the authoritative store for stock levels and reservations.
// It is consumed only by the InventoryGate.
type StockLedger interface {
	// TryReserve decrements available stock and records r in one indivisible step,
	// guarded by available >= r.Quantity. When the guard fails nothing changes,
	// ok is false and available is the current count.
	TryReserve(ctx context.Context, r *Reservation) (ok bool, available int, err error)

	// Release gives an active reservation's units back. It returns false without
	// touching stock when the reservation was already released or committed.
	Release(ctx context.Context, reservationID uuid.UUID) (bool, error)

	// Commit consumes an active, unexpired reservation. It returns
	// ErrReservationNotActive when the reservation was released or has expired.
	Commit(ctx context.Context, reservationID uuid.UUID, now time.Time) error

	// FindExpired returns active reservations whose ExpireAt is before now
	FindExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error)

	FindByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]Reservation, error)

	// GetLevel returns shared.ErrNotFound for an unknown pair
	GetLevel(ctx context.Context, productID, branchID uuid.UUID) (*StockLevel, error)

	// Restock adds available units, creating the level when missing
	Restock(ctx context.Context, productID, branchID uuid.UUID, quantity int) error
}
