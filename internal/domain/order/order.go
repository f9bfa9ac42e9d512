package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is an immutable snapshot of a purchased line
type Item struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	ProductID           uuid.UUID
	BranchID            uuid.UUID
	ProductName         string
	UnitPrice           decimal.Decimal
	Quantity            int
	VariantSelection    catalog.VariantSelection
	Subtotal            decimal.Decimal
	SpecialInstructions string
	TaxBreakdown        tax.Breakdown
}

// ItemInput describes one line to snapshot into a new order
type ItemInput struct {
	ProductID           uuid.UUID
	BranchID            uuid.UUID
	ProductName         string
	UnitPrice           decimal.Decimal
	Quantity            int
	VariantSelection    catalog.VariantSelection
	SpecialInstructions string
	TaxBreakdown        tax.Breakdown
}

// Payment is the authorization obtained before placement
type Payment struct {
	Method        string
	Authorization string
	Status        PaymentStatus
}

// PlaceInput carries everything needed to create an order
type PlaceInput struct {
	ClientID        uuid.UUID
	BusinessID      uuid.UUID
	CheckoutID      uuid.UUID
	Currency        string
	Items           []ItemInput
	DeliveryFee     decimal.Decimal
	DiscountAmount  decimal.Decimal
	TipAmount       decimal.Decimal
	ExtraTaxes      tax.Breakdown // business-level taxes on delivery fee and tip
	TaxDegraded     bool
	DeliveryAddress string
	DeliveryNotes   string
	Payment         Payment
	WalletCredit    decimal.Decimal
}

// Order is the immutable result of a checkout. Only the lifecycle fields change after creation.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber     string
	ClientID        uuid.UUID
	BusinessID      uuid.UUID
	CheckoutID      uuid.UUID
	Status          Status
	Currency        string
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	DeliveryFee     decimal.Decimal
	DiscountAmount  decimal.Decimal
	TipAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	TaxBreakdown    tax.Breakdown
	TaxDegraded     bool
	DeliveryAddress string
	DeliveryNotes   string
	Payment         Payment
	WalletCredit    decimal.Decimal
	Items           []Item
	ConfirmedAt     *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// NewOrder snapshots the input into a pending order and raises OrderPlaced
// (plus WalletCreditRequested when a wallet credit is attached).
func NewOrder(in PlaceInput) (*Order, error) {
	if in.ClientID == uuid.Nil || in.BusinessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order requires a client and a business")
	}
	if len(in.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one item")
	}
	for _, amt := range []decimal.Decimal{in.DeliveryFee, in.DiscountAmount, in.TipAmount, in.WalletCredit} {
		if amt.IsNegative() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", "Order amounts cannot be negative")
		}
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ClientID:          in.ClientID,
		BusinessID:        in.BusinessID,
		CheckoutID:        in.CheckoutID,
		Status:            StatusPending,
		Currency:          in.Currency,
		DeliveryFee:       in.DeliveryFee,
		DiscountAmount:    in.DiscountAmount,
		TipAmount:         in.TipAmount,
		TaxDegraded:       in.TaxDegraded,
		DeliveryAddress:   strings.TrimSpace(in.DeliveryAddress),
		DeliveryNotes:     strings.TrimSpace(in.DeliveryNotes),
		Payment:           in.Payment,
		WalletCredit:      in.WalletCredit,
	}
	o.OrderNumber = newOrderNumber(o.CreatedAt, o.ID)

	breakdown := tax.EmptyBreakdown()
	subtotal := decimal.Zero
	o.Items = make([]Item, 0, len(in.Items))
	for _, li := range in.Items {
		if li.Quantity < 1 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Order item quantity must be at least 1")
		}
		if li.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", "Order item price cannot be negative")
		}
		item := Item{
			ID:                  uuid.New(),
			OrderID:             o.ID,
			ProductID:           li.ProductID,
			BranchID:            li.BranchID,
			ProductName:         li.ProductName,
			UnitPrice:           li.UnitPrice,
			Quantity:            li.Quantity,
			VariantSelection:    li.VariantSelection.Clone(),
			Subtotal:            valueobject.LineTotal(li.UnitPrice, li.Quantity),
			SpecialInstructions: li.SpecialInstructions,
			TaxBreakdown:        li.TaxBreakdown,
		}
		subtotal = subtotal.Add(item.Subtotal)
		breakdown = breakdown.Merge(li.TaxBreakdown)
		o.Items = append(o.Items, item)
	}
	breakdown = breakdown.Merge(in.ExtraTaxes)

	o.Subtotal = subtotal
	o.TaxBreakdown = breakdown
	o.TaxAmount = breakdown.TotalTax
	o.TotalAmount = ComputeTotal(o.Subtotal, o.TaxAmount, o.DeliveryFee, o.TipAmount, o.DiscountAmount)
	if o.TotalAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed the order total")
	}

	o.AddDomainEvent(NewOrderPlacedEvent(o))
	if o.WalletCredit.IsPositive() {
		o.AddDomainEvent(NewWalletCreditRequestedEvent(o))
	}
	return o, nil
}

// ComputeTotal is subtotal + tax + delivery + tip - discount
func ComputeTotal(subtotal, taxAmount, deliveryFee, tip, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(taxAmount).Add(deliveryFee).Add(tip).Sub(discount)
}

// TotalIsConsistent reports whether TotalAmount still satisfies the total equation
func (o *Order) TotalIsConsistent() bool {
	return o.TotalAmount.Equal(ComputeTotal(o.Subtotal, o.TaxAmount, o.DeliveryFee, o.TipAmount, o.DiscountAmount))
}

// ItemCount returns the total number of units
func (o *Order) ItemCount() int {
	n := 0
	for _, i := range o.Items {
		n += i.Quantity
	}
	return n
}

// TransitionTo moves the order along its lifecycle, stamping timestamps
func (o *Order) TransitionTo(target Status, now time.Time) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", target))
	}
	if target == StatusCancelled {
		return o.Cancel("", now)
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	switch target {
	case StatusConfirmed:
		o.ConfirmedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusRefunded:
		o.Payment.Status = PaymentStatusRefunded
	}
	o.touch(now)
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

// Cancel cancels a non-terminal order
func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in status %s", o.Status))
	}
	from := o.Status
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancelReason = strings.TrimSpace(reason)
	o.touch(now)
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

// CancelByClient applies the stricter rules for client-initiated cancels
func (o *Order) CancelByClient(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("CANCEL_REASON_REQUIRED", "A cancellation reason is required")
	}
	if !o.Status.ClientCancellable() {
		return shared.NewDomainError("INVALID_STATE", "Order can no longer be cancelled by the client")
	}
	return o.Cancel(reason, now)
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
	o.IncrementVersion()
}

func newOrderNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}
