package order

import (
	"context"
	"testing"

	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockOrderRepository is a mock implementation of order.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, clientID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) FindByBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]order.Order, int64, error) {
	args := m.Called(ctx, businessID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

func newTestOrder(t *testing.T) *order.Order {
	o, err := order.NewOrder(order.PlaceInput{
		ClientID:   uuid.New(),
		BusinessID: uuid.New(),
		CheckoutID: uuid.New(),
		Currency:   "MXN",
		Items: []order.ItemInput{{
			ProductID:   uuid.New(),
			BranchID:    uuid.New(),
			ProductName: "Tacos",
			UnitPrice:   decimal.RequireFromString("25"),
			Quantity:    4,
		}},
		Payment: order.Payment{Method: "cash", Status: order.PaymentStatusPending},
	})
	require.NoError(t, err)
	o.ClearDomainEvents()
	return o
}

func TestOrderService_Get(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo, zap.NewNop())
	o := newTestOrder(t)
	repo.On("FindByID", mock.Anything, o.ID).Return(o, nil)

	resp, err := svc.GetForClient(context.Background(), o.ClientID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, resp.OrderNumber)
	assert.Equal(t, 4, resp.ItemCount)
	assert.True(t, decimal.RequireFromString("100").Equal(resp.TotalAmount))

	_, err = svc.GetForClient(context.Background(), uuid.New(), o.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetForBusiness(context.Background(), o.BusinessID, o.ID)
	require.NoError(t, err)
	_, err = svc.GetForBusiness(context.Background(), o.ClientID, o.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderService_ListForClient(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo, zap.NewNop())
	o := newTestOrder(t)

	repo.On("FindByClient", mock.Anything, o.ClientID, mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 2 && f.PageSize == 10 && f.Filters["status"] == "pending" && f.OrderBy == "created_at"
	})).Return([]order.Order{*o}, int64(11), nil)

	page, err := svc.ListForClient(context.Background(), o.ClientID, ListFilter{Status: "pending", Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(11), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	repo.AssertExpectations(t)
}

func TestOrderService_ListForBusiness_Defaults(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo, zap.NewNop())
	businessID := uuid.New()

	repo.On("FindByBusiness", mock.Anything, businessID, mock.MatchedBy(func(f shared.Filter) bool {
		_, hasStatus := f.Filters["status"]
		return f.Page == 1 && f.PageSize == 20 && !hasStatus
	})).Return([]order.Order{}, int64(0), nil)

	page, err := svc.ListForBusiness(context.Background(), businessID, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	t.Run("confirms and publishes", func(t *testing.T) {
		repo := new(MockOrderRepository)
		bus := new(MockEventPublisher)
		svc := NewOrderService(repo, zap.NewNop())
		svc.SetEventBus(bus)
		o := newTestOrder(t)

		repo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		repo.On("UpdateStatus", mock.Anything, o).Return(nil)
		bus.On("Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == order.EventTypeOrderStatusChanged
		})).Return(nil)

		resp, err := svc.UpdateStatus(context.Background(), o.BusinessID, o.ID, UpdateStatusRequest{Status: "confirmed"})
		require.NoError(t, err)
		assert.Equal(t, "confirmed", resp.Status)
		assert.NotNil(t, resp.ConfirmedAt)
		assert.Empty(t, o.GetDomainEvents())
		bus.AssertExpectations(t)
	})

	t.Run("skipping a step is rejected", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := NewOrderService(repo, zap.NewNop())
		o := newTestOrder(t)
		repo.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := svc.UpdateStatus(context.Background(), o.BusinessID, o.ID, UpdateStatusRequest{Status: "delivered"})
		var derr *shared.DomainError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "INVALID_STATE", derr.Code)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})

	t.Run("other business cannot touch the order", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := NewOrderService(repo, zap.NewNop())
		o := newTestOrder(t)
		repo.On("FindByID", mock.Anything, o.ID).Return(o, nil)

		_, err := svc.UpdateStatus(context.Background(), uuid.New(), o.ID, UpdateStatusRequest{Status: "confirmed"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("business cancel records the reason", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := NewOrderService(repo, zap.NewNop())
		o := newTestOrder(t)
		repo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		repo.On("UpdateStatus", mock.Anything, o).Return(nil)

		resp, err := svc.UpdateStatus(context.Background(), o.BusinessID, o.ID, UpdateStatusRequest{Status: "cancelled", Reason: "closed early"})
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)
		assert.Equal(t, "closed early", resp.CancelReason)
	})

	t.Run("conflict is returned", func(t *testing.T) {
		repo := new(MockOrderRepository)
		svc := NewOrderService(repo, zap.NewNop())
		o := newTestOrder(t)
		repo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
		repo.On("UpdateStatus", mock.Anything, o).Return(shared.ErrConcurrencyConflict)

		_, err := svc.UpdateStatus(context.Background(), o.BusinessID, o.ID, UpdateStatusRequest{Status: "confirmed"})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestOrderService_CancelByClient(t *testing.T) {
	repo := new(MockOrderRepository)
	svc := NewOrderService(repo, zap.NewNop())
	o := newTestOrder(t)
	repo.On("FindByID", mock.Anything, o.ID).Return(o, nil)
	repo.On("UpdateStatus", mock.Anything, o).Return(nil)

	_, err := svc.CancelByClient(context.Background(), uuid.New(), o.ID, CancelRequest{Reason: "changed my mind"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	resp, err := svc.CancelByClient(context.Background(), o.ClientID, o.ID, CancelRequest{Reason: "changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.NotNil(t, resp.CancelledAt)

	// too late once the kitchen started
	late := newTestOrder(t)
	late.Status = order.StatusPreparing
	repo.On("FindByID", mock.Anything, late.ID).Return(late, nil)
	_, err = svc.CancelByClient(context.Background(), late.ClientID, late.ID, CancelRequest{Reason: "too slow"})
	assert.Error(t, err)
}
