package inventory

import "github.com/google/uuid"

// ReservationRequest asks for quantity of a product at a branch.
// LineID and BusinessID let callers map results back to cart lines.
type ReservationRequest struct {
	LineID     uuid.UUID
	BusinessID uuid.UUID
	ProductID  uuid.UUID
	BranchID   uuid.UUID
	Quantity   int
}

// StockShortage is the gap between requested and available stock at reservation time.
// It is transient and never persisted on its own.
type StockShortage struct {
	LineID     uuid.UUID `json:"line_id"`
	BusinessID uuid.UUID `json:"business_id"`
	ProductID  uuid.UUID `json:"product_id"`
	BranchID   uuid.UUID `json:"branch_id"`
	Requested  int       `json:"quantity_requested"`
	Available  int       `json:"quantity_available"`
}

// Shortfall is requested minus available
func (s StockShortage) Shortfall() int {
	return s.Requested - s.Available
}
