package inventory

import (
	"context"
	"time"

	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStockLedger is a mock implementation of inventory.StockLedger
type MockStockLedger struct {
	mock.Mock
}

func (m *MockStockLedger) TryReserve(ctx context.Context, r *inventory.Reservation) (bool, int, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *MockStockLedger) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStockLedger) Commit(ctx context.Context, id uuid.UUID, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockStockLedger) FindExpired(ctx context.Context, now time.Time, limit int) ([]inventory.Reservation, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Reservation), args.Error(1)
}

func (m *MockStockLedger) FindByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]inventory.Reservation, error) {
	args := m.Called(ctx, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Reservation), args.Error(1)
}

func (m *MockStockLedger) GetLevel(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockLevel, error) {
	args := m.Called(ctx, productID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockLevel), args.Error(1)
}

func (m *MockStockLedger) Restock(ctx context.Context, productID, branchID uuid.UUID, quantity int) error {
	args := m.Called(ctx, productID, branchID, quantity)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
