package models

import (
	"time"

	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber          string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClientID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	BusinessID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	CheckoutID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status               string          `gorm:"type:varchar(20);not null;default:'pending';index"`
	Currency             string          `gorm:"type:varchar(3);not null"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxAmount            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DeliveryFee          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TipAmount            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxBreakdown         string          `gorm:"type:jsonb;default:'{}'"`
	TaxDegraded          bool            `gorm:"not null;default:false"`
	DeliveryAddress      string          `gorm:"type:text"`
	DeliveryNotes        string          `gorm:"type:text"`
	PaymentMethod        string          `gorm:"type:varchar(30)"`
	PaymentAuthorization string          `gorm:"type:varchar(255)"`
	PaymentStatus        string          `gorm:"type:varchar(20);not null;default:'pending'"`
	WalletCredit         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ConfirmedAt          *time.Time
	DeliveredAt          *time.Time
	CancelledAt          *time.Time
	CancelReason         string `gorm:"type:varchar(500)"`
	// Associations
	Items []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for an order line snapshot.
type OrderItemModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID       `gorm:"type:uuid;not null"`
	BranchID            uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName         string          `gorm:"type:varchar(255);not null"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity            int             `gorm:"not null"`
	VariantSelection    string          `gorm:"type:jsonb;default:'{}'"`
	Subtotal            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SpecialInstructions string          `gorm:"type:text"`
	TaxBreakdown        string          `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() (*order.Order, error) {
	o := &order.Order{
		OrderNumber:     m.OrderNumber,
		ClientID:        m.ClientID,
		BusinessID:      m.BusinessID,
		CheckoutID:      m.CheckoutID,
		Status:          order.Status(m.Status),
		Currency:        m.Currency,
		Subtotal:        m.Subtotal,
		TaxAmount:       m.TaxAmount,
		DeliveryFee:     m.DeliveryFee,
		DiscountAmount:  m.DiscountAmount,
		TipAmount:       m.TipAmount,
		TotalAmount:     m.TotalAmount,
		TaxBreakdown:    tax.EmptyBreakdown(),
		TaxDegraded:     m.TaxDegraded,
		DeliveryAddress: m.DeliveryAddress,
		DeliveryNotes:   m.DeliveryNotes,
		Payment: order.Payment{
			Method:        m.PaymentMethod,
			Authorization: m.PaymentAuthorization,
			Status:        order.PaymentStatus(m.PaymentStatus),
		},
		WalletCredit: m.WalletCredit,
		Items:        make([]order.Item, 0, len(m.Items)),
		ConfirmedAt:  m.ConfirmedAt,
		DeliveredAt:  m.DeliveredAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
	}
	m.PopulateAggregateRoot(&o.BaseAggregateRoot)
	if err := unmarshalJSON(m.TaxBreakdown, &o.TaxBreakdown); err != nil {
		return nil, err
	}
	for i := range m.Items {
		item, err := m.Items[i].ToDomain()
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

// ToDomain converts the item model to a domain order Item.
func (m *OrderItemModel) ToDomain() (order.Item, error) {
	item := order.Item{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		ProductID:           m.ProductID,
		BranchID:            m.BranchID,
		ProductName:         m.ProductName,
		UnitPrice:           m.UnitPrice,
		Quantity:            m.Quantity,
		Subtotal:            m.Subtotal,
		SpecialInstructions: m.SpecialInstructions,
		TaxBreakdown:        tax.EmptyBreakdown(),
	}
	var sel catalog.VariantSelection
	if err := unmarshalJSON(m.VariantSelection, &sel); err != nil {
		return order.Item{}, err
	}
	item.VariantSelection = sel
	if err := unmarshalJSON(m.TaxBreakdown, &item.TaxBreakdown); err != nil {
		return order.Item{}, err
	}
	return item, nil
}

// OrderModelFromDomain creates a persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) (*OrderModel, error) {
	breakdown, err := marshalJSON(o.TaxBreakdown, "{}")
	if err != nil {
		return nil, err
	}
	m := &OrderModel{
		OrderNumber:          o.OrderNumber,
		ClientID:             o.ClientID,
		BusinessID:           o.BusinessID,
		CheckoutID:           o.CheckoutID,
		Status:               string(o.Status),
		Currency:             o.Currency,
		Subtotal:             o.Subtotal,
		TaxAmount:            o.TaxAmount,
		DeliveryFee:          o.DeliveryFee,
		DiscountAmount:       o.DiscountAmount,
		TipAmount:            o.TipAmount,
		TotalAmount:          o.TotalAmount,
		TaxBreakdown:         breakdown,
		TaxDegraded:          o.TaxDegraded,
		DeliveryAddress:      o.DeliveryAddress,
		DeliveryNotes:        o.DeliveryNotes,
		PaymentMethod:        o.Payment.Method,
		PaymentAuthorization: o.Payment.Authorization,
		PaymentStatus:        string(o.Payment.Status),
		WalletCredit:         o.WalletCredit,
		ConfirmedAt:          o.ConfirmedAt,
		DeliveredAt:          o.DeliveredAt,
		CancelledAt:          o.CancelledAt,
		CancelReason:         o.CancelReason,
		Items:                make([]OrderItemModel, 0, len(o.Items)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	if m.PaymentStatus == "" {
		m.PaymentStatus = string(order.PaymentStatusPending)
	}
	for i := range o.Items {
		item := &o.Items[i]
		sel, err := marshalJSON(item.VariantSelection, "{}")
		if err != nil {
			return nil, err
		}
		itemTaxes, err := marshalJSON(item.TaxBreakdown, "{}")
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, OrderItemModel{
			ID:                  item.ID,
			OrderID:             o.ID,
			ProductID:           item.ProductID,
			BranchID:            item.BranchID,
			ProductName:         item.ProductName,
			UnitPrice:           item.UnitPrice,
			Quantity:            item.Quantity,
			VariantSelection:    sel,
			Subtotal:            item.Subtotal,
			SpecialInstructions: item.SpecialInstructions,
			TaxBreakdown:        itemTaxes,
		})
	}
	return m, nil
}

// StatusColumns returns the lifecycle columns UpdateStatus writes
func (m *OrderModel) StatusColumns() map[string]any {
	return map[string]any{
		"status":         m.Status,
		"payment_status": m.PaymentStatus,
		"confirmed_at":   m.ConfirmedAt,
		"delivered_at":   m.DeliveredAt,
		"cancelled_at":   m.CancelledAt,
		"cancel_reason":  m.CancelReason,
		"version":        m.Version,
		"updated_at":     m.UpdatedAt,
	}
}
