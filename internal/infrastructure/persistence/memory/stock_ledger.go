// Package memory holds process-local adapters used when storage.inventory=memory
// and by tests that need real reservation semantics without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

type levelKey struct {
	productID uuid.UUID
	branchID  uuid.UUID
}

// StockLedger implements inventory.StockLedger in memory.
// One mutex guards every level, so check-and-decrement is indivisible.
type StockLedger struct {
	mu           sync.Mutex
	levels       map[levelKey]*inventory.StockLevel
	reservations map[uuid.UUID]*inventory.Reservation
}

// NewStockLedger creates an empty ledger
func NewStockLedger() *StockLedger {
	return &StockLedger{
		levels:       make(map[levelKey]*inventory.StockLevel),
		reservations: make(map[uuid.UUID]*inventory.Reservation),
	}
}

// TryReserve decrements available stock if it covers r.Quantity and records r
func (l *StockLedger) TryReserve(ctx context.Context, r *inventory.Reservation) (bool, int, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	level, ok := l.levels[levelKey{r.ProductID, r.BranchID}]
	if !ok {
		return false, 0, nil
	}
	if err := level.Reserve(r.Quantity); err != nil {
		return false, level.Available, nil
	}
	stored := *r
	l.reservations[r.ID] = &stored
	return true, level.Available, nil
}

// Release returns an active reservation's units; inactive ones are left alone
func (l *StockLedger) Release(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.reservations[reservationID]
	if !ok || !r.IsActive() {
		return false, nil
	}
	level, ok := l.levels[levelKey{r.ProductID, r.BranchID}]
	if !ok {
		return false, shared.ErrNotFound
	}
	if err := level.Release(r.Quantity); err != nil {
		return false, err
	}
	r.MarkReleased(time.Now())
	return true, nil
}

// Commit consumes an active, unexpired reservation. Committing twice is a no-op.
func (l *StockLedger) Commit(ctx context.Context, reservationID uuid.UUID, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.reservations[reservationID]
	if !ok {
		return shared.ErrNotFound
	}
	if r.Committed {
		return nil
	}
	if r.Released || r.IsExpired(now) {
		return inventory.ErrReservationNotActive
	}
	level, ok := l.levels[levelKey{r.ProductID, r.BranchID}]
	if !ok {
		return shared.ErrNotFound
	}
	if err := level.Commit(r.Quantity); err != nil {
		return err
	}
	r.MarkCommitted(now)
	return nil
}

// FindExpired returns active reservations past their ExpireAt, oldest first
func (l *StockLedger) FindExpired(_ context.Context, now time.Time, limit int) ([]inventory.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []inventory.Reservation
	for _, r := range l.reservations {
		if r.IsActive() && r.IsExpired(now) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpireAt.Before(out[j].ExpireAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindByCheckout returns the reservations made by a checkout
func (l *StockLedger) FindByCheckout(_ context.Context, checkoutID uuid.UUID) ([]inventory.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []inventory.Reservation
	for _, r := range l.reservations {
		if r.CheckoutID == checkoutID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetLevel returns a copy of the level of a product at a branch
func (l *StockLedger) GetLevel(_ context.Context, productID, branchID uuid.UUID) (*inventory.StockLevel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	level, ok := l.levels[levelKey{productID, branchID}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *level
	return &cp, nil
}

// Restock adds available units, creating the level when missing
func (l *StockLedger) Restock(_ context.Context, productID, branchID uuid.UUID, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := levelKey{productID, branchID}
	level, ok := l.levels[key]
	if !ok {
		if quantity < 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
		}
		l.levels[key] = inventory.NewStockLevel(productID, branchID, quantity)
		return nil
	}
	return level.Restock(quantity)
}

var _ inventory.StockLedger = (*StockLedger)(nil)
