package inventory

import (
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeReservation = "Reservation"

// Event type constants
const (
	EventTypeReservationExpired = "ReservationExpired"
)

// ReservationExpiredEvent is raised when the sweeper gives back an abandoned hold
type ReservationExpiredEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID `json:"reservation_id"`
	CheckoutID    uuid.UUID `json:"checkout_id"`
	ProductID     uuid.UUID `json:"product_id"`
	BranchID      uuid.UUID `json:"branch_id"`
	Quantity      int       `json:"quantity"`
}

// NewReservationExpiredEvent creates a new ReservationExpiredEvent
func NewReservationExpiredEvent(r *Reservation) *ReservationExpiredEvent {
	return &ReservationExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationExpired, AggregateTypeReservation, r.ID),
		ReservationID:   r.ID,
		CheckoutID:      r.CheckoutID,
		ProductID:       r.ProductID,
		BranchID:        r.BranchID,
		Quantity:        r.Quantity,
	}
}

// EventType returns the event type name
func (e *ReservationExpiredEvent) EventType() string {
	return EventTypeReservationExpired
}
