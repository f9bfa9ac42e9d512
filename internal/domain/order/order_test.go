package order

import (
	"testing"
	"time"

	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func lineTax(amount string) tax.Breakdown {
	return tax.Breakdown{
		Taxes:    []tax.Detail{{Name: "IVA", Rate: d("0.16"), RateKind: tax.RateKindPercentage, Amount: d(amount), AppliedTo: tax.AppliedToSubtotal}},
		TotalTax: d(amount),
	}
}

func placeInput() PlaceInput {
	return PlaceInput{
		ClientID:   uuid.New(),
		BusinessID: uuid.New(),
		CheckoutID: uuid.New(),
		Currency:   "MXN",
		Items: []ItemInput{
			{ProductID: uuid.New(), BranchID: uuid.New(), ProductName: "Taco", UnitPrice: d("25.50"), Quantity: 3, TaxBreakdown: lineTax("12.24")},
			{ProductID: uuid.New(), BranchID: uuid.New(), ProductName: "Agua", UnitPrice: d("18.00"), Quantity: 1, TaxBreakdown: tax.EmptyBreakdown()},
		},
		DeliveryFee:    d("35.00"),
		TipAmount:      d("10.00"),
		DiscountAmount: d("5.00"),
		ExtraTaxes:     lineTax("5.60"),
		Payment:        Payment{Method: "cash", Status: PaymentStatusPending},
	}
}

func TestNewOrder(t *testing.T) {
	o, err := NewOrder(placeInput())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, d("94.50").Equal(o.Subtotal), o.Subtotal.String())
	assert.True(t, d("17.84").Equal(o.TaxAmount), o.TaxAmount.String())
	assert.True(t, d("152.34").Equal(o.TotalAmount), o.TotalAmount.String())
	assert.True(t, o.TotalIsConsistent())
	assert.True(t, o.TaxBreakdown.IsConsistent())
	assert.Len(t, o.TaxBreakdown.Taxes, 2)
	assert.Equal(t, 4, o.ItemCount())
	assert.Contains(t, o.OrderNumber, "ORD-")
	for _, it := range o.Items {
		assert.Equal(t, o.ID, it.OrderID)
	}

	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeOrderPlaced, events[0].EventType())
}

func TestNewOrder_WalletCreditRaisesEvent(t *testing.T) {
	in := placeInput()
	in.WalletCredit = d("51.00")
	o, err := NewOrder(in)
	require.NoError(t, err)

	events := o.GetDomainEvents()
	require.Len(t, events, 2)
	credit, ok := events[1].(*WalletCreditRequestedEvent)
	require.True(t, ok)
	assert.Equal(t, o.ID, credit.OrderID)
	assert.True(t, d("51.00").Equal(credit.Amount))
}

func TestNewOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaceInput)
	}{
		{"no items", func(in *PlaceInput) { in.Items = nil }},
		{"no client", func(in *PlaceInput) { in.ClientID = uuid.Nil }},
		{"zero quantity", func(in *PlaceInput) { in.Items[0].Quantity = 0 }},
		{"negative price", func(in *PlaceInput) { in.Items[0].UnitPrice = d("-1") }},
		{"negative tip", func(in *PlaceInput) { in.TipAmount = d("-1") }},
		{"discount above total", func(in *PlaceInput) { in.DiscountAmount = d("10000") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := placeInput()
			tt.mutate(&in)
			_, err := NewOrder(in)
			assert.Error(t, err)
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusPreparing, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusAssigned, true},
		{StatusReady, StatusPickedUp, true},
		{StatusAssigned, StatusPickedUp, true},
		{StatusPickedUp, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusDelivered, StatusRefunded, true},
		{StatusInTransit, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusRefunded, StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_Lifecycle(t *testing.T) {
	o, err := NewOrder(placeInput())
	require.NoError(t, err)
	o.ClearDomainEvents()
	now := time.Now()

	require.NoError(t, o.TransitionTo(StatusConfirmed, now))
	require.NotNil(t, o.ConfirmedAt)
	assert.Error(t, o.TransitionTo(StatusDelivered, now))

	for _, s := range []Status{StatusPreparing, StatusReady, StatusPickedUp, StatusInTransit, StatusDelivered} {
		require.NoError(t, o.TransitionTo(s, now))
	}
	require.NotNil(t, o.DeliveredAt)
	assert.Error(t, o.Cancel("late", now))

	require.NoError(t, o.TransitionTo(StatusRefunded, now))
	assert.Equal(t, PaymentStatusRefunded, o.Payment.Status)
	assert.Len(t, o.GetDomainEvents(), 7)
	assert.Error(t, o.TransitionTo("bogus", now))
}

func TestOrder_CancelByClient(t *testing.T) {
	now := time.Now()

	o, _ := NewOrder(placeInput())
	assert.Error(t, o.CancelByClient("  ", now))
	require.NoError(t, o.CancelByClient("changed my mind", now))
	assert.Equal(t, StatusCancelled, o.Status)
	require.NotNil(t, o.CancelledAt)
	assert.Equal(t, "changed my mind", o.CancelReason)

	o2, _ := NewOrder(placeInput())
	require.NoError(t, o2.TransitionTo(StatusConfirmed, now))
	require.NoError(t, o2.TransitionTo(StatusPreparing, now))
	assert.Error(t, o2.CancelByClient("too slow", now))
	require.NoError(t, o2.TransitionTo(StatusCancelled, now), "business may still cancel")
}
