package order

import (
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced           = "OrderPlaced"
	EventTypeOrderStatusChanged    = "OrderStatusChanged"
	EventTypeWalletCreditRequested = "WalletCreditRequested"
)

// ItemInfo is item information carried by events
type ItemInfo struct {
	ProductID   uuid.UUID       `json:"product_id"`
	BranchID    uuid.UUID       `json:"branch_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// OrderPlacedEvent is raised once an order is persisted. Shipping listens to it.
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	ClientID        uuid.UUID       `json:"client_id"`
	BusinessID      uuid.UUID       `json:"business_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	DeliveryAddress string          `json:"delivery_address"`
	Items           []ItemInfo      `json:"items"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	items := make([]ItemInfo, len(o.Items))
	for i, it := range o.Items {
		items[i] = ItemInfo{
			ProductID:   it.ProductID,
			BranchID:    it.BranchID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		ClientID:        o.ClientID,
		BusinessID:      o.BusinessID,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		DeliveryAddress: o.DeliveryAddress,
		Items:           items,
	}
}

// EventType returns the event type name
func (e *OrderPlacedEvent) EventType() string {
	return EventTypeOrderPlaced
}

// OrderStatusChangedEvent is raised on every lifecycle move
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	BusinessID   uuid.UUID `json:"business_id"`
	ClientID     uuid.UUID `json:"client_id"`
	FromStatus   Status    `json:"from_status"`
	ToStatus     Status    `json:"to_status"`
	CancelReason string    `json:"cancel_reason,omitempty"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from Status) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		BusinessID:      o.BusinessID,
		ClientID:        o.ClientID,
		FromStatus:      from,
		ToStatus:        o.Status,
		CancelReason:    o.CancelReason,
	}
}

// EventType returns the event type name
func (e *OrderStatusChangedEvent) EventType() string {
	return EventTypeOrderStatusChanged
}

// WalletCreditRequestedEvent asks the wallet ledger to credit the client for
// units accepted short under a wallet resolution
type WalletCreditRequestedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	ClientID   uuid.UUID       `json:"client_id"`
	BusinessID uuid.UUID       `json:"business_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// NewWalletCreditRequestedEvent creates a new WalletCreditRequestedEvent
func NewWalletCreditRequestedEvent(o *Order) *WalletCreditRequestedEvent {
	return &WalletCreditRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWalletCreditRequested, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		ClientID:        o.ClientID,
		BusinessID:      o.BusinessID,
		Amount:          o.WalletCredit,
		Currency:        o.Currency,
	}
}

// EventType returns the event type name
func (e *WalletCreditRequestedEvent) EventType() string {
	return EventTypeWalletCreditRequested
}
