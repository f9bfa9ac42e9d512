package inventory

import (
	"fmt"
	"time"

	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

// StockLevel is the per product+branch stock count.
// Available + Reserved is conserved by Reserve and Release; only Commit and Restock change it.
type StockLevel struct {
	ProductID uuid.UUID
	BranchID  uuid.UUID
	Available int
	Reserved  int
	Version   int
	UpdatedAt time.Time
}

// NewStockLevel creates a level with the given available quantity
func NewStockLevel(productID, branchID uuid.UUID, available int) *StockLevel {
	return &StockLevel{
		ProductID: productID,
		BranchID:  branchID,
		Available: available,
		Version:   1,
		UpdatedAt: time.Now(),
	}
}

// OnHand is available plus reserved units
func (s *StockLevel) OnHand() int {
	return s.Available + s.Reserved
}

// Reserve moves quantity from available to reserved, all or nothing
func (s *StockLevel) Reserve(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if s.Available < quantity {
		return shared.ErrInsufficientStock
	}
	s.Available -= quantity
	s.Reserved += quantity
	s.touch()
	return nil
}

// Release moves quantity from reserved back to available
func (s *StockLevel) Release(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if s.Reserved < quantity {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot release %d units, only %d reserved", quantity, s.Reserved))
	}
	s.Reserved -= quantity
	s.Available += quantity
	s.touch()
	return nil
}

// Commit consumes reserved units for a placed order
func (s *StockLevel) Commit(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Commit quantity must be positive")
	}
	if s.Reserved < quantity {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot commit %d units, only %d reserved", quantity, s.Reserved))
	}
	s.Reserved -= quantity
	s.touch()
	return nil
}

// Restock adds available units (receiving, ledger sync)
func (s *StockLevel) Restock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	s.Available += quantity
	s.touch()
	return nil
}

func (s *StockLevel) touch() {
	s.Version++
	s.UpdatedAt = time.Now()
}
