package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockShippingDispatcher is a mock implementation of checkout.ShippingDispatcher
type MockShippingDispatcher struct {
	mock.Mock
}

func (m *MockShippingDispatcher) Dispatch(ctx context.Context, req checkout.ShipmentRequest) error {
	return m.Called(ctx, req).Error(0)
}

// MockWalletLedger is a mock implementation of checkout.WalletLedger
type MockWalletLedger struct {
	mock.Mock
}

func (m *MockWalletLedger) Credit(ctx context.Context, req checkout.WalletCreditRequest) error {
	return m.Called(ctx, req).Error(0)
}

func placedOrder(t *testing.T, walletCredit string) *order.Order {
	o, err := order.NewOrder(order.PlaceInput{
		ClientID:        uuid.New(),
		BusinessID:      uuid.New(),
		CheckoutID:      uuid.New(),
		Currency:        "MXN",
		DeliveryAddress: "Av. Reforma 222",
		Items: []order.ItemInput{{
			ProductID:   uuid.New(),
			BranchID:    uuid.New(),
			ProductName: "Agua 1L",
			UnitPrice:   decimal.RequireFromString("15"),
			Quantity:    3,
		}},
		WalletCredit: decimal.RequireFromString(walletCredit),
	})
	require.NoError(t, err)
	return o
}

func eventOf(o *order.Order, eventType string) shared.DomainEvent {
	for _, e := range o.GetDomainEvents() {
		if e.EventType() == eventType {
			return e
		}
	}
	return nil
}

func TestOrderPlacedShippingHandler(t *testing.T) {
	o := placedOrder(t, "0")
	dispatcher := new(MockShippingDispatcher)
	dispatcher.On("Dispatch", mock.Anything, mock.MatchedBy(func(req checkout.ShipmentRequest) bool {
		return req.OrderID == o.ID &&
			req.IdempotencyKey == "shipment:"+o.ID.String() &&
			req.Address == "Av. Reforma 222" &&
			len(req.Items) == 1 && req.Items[0].Quantity == 3
	})).Return(nil)

	h := NewOrderPlacedShippingHandler(dispatcher, zap.NewNop())
	assert.Equal(t, []string{order.EventTypeOrderPlaced}, h.EventTypes())
	require.NoError(t, h.Handle(context.Background(), eventOf(o, order.EventTypeOrderPlaced)))
	dispatcher.AssertExpectations(t)
}

func TestOrderPlacedShippingHandler_Errors(t *testing.T) {
	o := placedOrder(t, "5")
	dispatcher := new(MockShippingDispatcher)
	h := NewOrderPlacedShippingHandler(dispatcher, zap.NewNop())

	err := h.Handle(context.Background(), eventOf(o, order.EventTypeWalletCreditRequested))
	assert.ErrorContains(t, err, "unexpected event type")

	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("503"))
	err = h.Handle(context.Background(), eventOf(o, order.EventTypeOrderPlaced))
	assert.ErrorContains(t, err, o.OrderNumber)
}

func TestWalletCreditHandler(t *testing.T) {
	o := placedOrder(t, "30.00")
	wallet := new(MockWalletLedger)
	wallet.On("Credit", mock.Anything, mock.MatchedBy(func(req checkout.WalletCreditRequest) bool {
		return req.OrderID == o.ID &&
			req.ClientID == o.ClientID &&
			req.Amount.Equal(decimal.RequireFromString("30")) &&
			req.IdempotencyKey == "wallet_credit:"+o.ID.String()
	})).Return(nil)

	h := NewWalletCreditHandler(wallet, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), eventOf(o, order.EventTypeWalletCreditRequested)))
	wallet.AssertExpectations(t)
}

func TestWalletCreditHandler_Failures(t *testing.T) {
	o := placedOrder(t, "30.00")
	wallet := new(MockWalletLedger)
	h := NewWalletCreditHandler(wallet, zap.NewNop())

	assert.Error(t, h.Handle(context.Background(), eventOf(o, order.EventTypeOrderPlaced)))

	wallet.On("Credit", mock.Anything, mock.Anything).Return(errors.New("timeout"))
	assert.Error(t, h.Handle(context.Background(), eventOf(o, order.EventTypeWalletCreditRequested)))
}

func TestWalletCreditHandler_ZeroAmountSkips(t *testing.T) {
	wallet := new(MockWalletLedger)
	h := NewWalletCreditHandler(wallet, zap.NewNop())
	ev := &order.WalletCreditRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(order.EventTypeWalletCreditRequested, order.AggregateTypeOrder, uuid.New()),
		Amount:          decimal.Zero,
	}
	require.NoError(t, h.Handle(context.Background(), ev))
	wallet.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
}
