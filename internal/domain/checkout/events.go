package checkout

import (
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeCheckout = "Checkout"

// Event type constants
const (
	EventTypeCheckoutAborted = "CheckoutAborted"
)

// CheckoutAbortedEvent is raised when a sub-order is rolled back
type CheckoutAbortedEvent struct {
	shared.BaseDomainEvent
	CheckoutID  uuid.UUID `json:"checkout_id"`
	BusinessID  uuid.UUID `json:"business_id"`
	FailureCode string    `json:"failure_code"`
	Released    int       `json:"released"`
}

// NewCheckoutAbortedEvent creates a new CheckoutAbortedEvent
func NewCheckoutAbortedEvent(checkoutID, businessID uuid.UUID, code string, released int) *CheckoutAbortedEvent {
	return &CheckoutAbortedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCheckoutAborted, AggregateTypeCheckout, checkoutID),
		CheckoutID:      checkoutID,
		BusinessID:      businessID,
		FailureCode:     code,
		Released:        released,
	}
}

// EventType returns the event type name
func (e *CheckoutAbortedEvent) EventType() string {
	return EventTypeCheckoutAborted
}
