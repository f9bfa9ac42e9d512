package inventory

import (
	"time"

	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrReservationNotActive is returned when committing a reservation that was released or expired
var ErrReservationNotActive = shared.NewDomainError("RESERVATION_NOT_ACTIVE", "Reservation is no longer active")

// Reservation is a time-bounded hold on stock for one checkout
type Reservation struct {
	shared.BaseEntity
	CheckoutID  uuid.UUID
	ProductID   uuid.UUID
	BranchID    uuid.UUID
	Quantity    int
	ExpireAt    time.Time
	Released    bool
	Committed   bool
	ReleasedAt  *time.Time
	CommittedAt *time.Time
}

// NewReservation creates an unpersisted reservation
func NewReservation(checkoutID, productID, branchID uuid.UUID, quantity int, expireAt time.Time) *Reservation {
	return &Reservation{
		BaseEntity: shared.NewBaseEntity(),
		CheckoutID: checkoutID,
		ProductID:  productID,
		BranchID:   branchID,
		Quantity:   quantity,
		ExpireAt:   expireAt,
	}
}

// IsActive returns true if the reservation still holds stock
func (r *Reservation) IsActive() bool {
	return !r.Released && !r.Committed
}

// IsExpired returns true if the hold window has elapsed
func (r *Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpireAt)
}

// MarkReleased flags the reservation as given back
func (r *Reservation) MarkReleased(now time.Time) {
	r.Released = true
	r.ReleasedAt = &now
	r.UpdatedAt = now
}

// MarkCommitted flags the reservation as consumed by an order
func (r *Reservation) MarkCommitted(now time.Time) {
	r.Committed = true
	r.CommittedAt = &now
	r.UpdatedAt = now
}
