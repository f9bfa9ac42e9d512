package order

import (
	"time"

	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilter is the query of an order listing
type ListFilter struct {
	Status     string `form:"status" binding:"omitempty,oneof=pending confirmed preparing ready assigned picked_up in_transit delivered cancelled refunded"`
	BusinessID string `form:"business_id" binding:"uuid_or_empty"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=created_at total_amount status"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// UpdateStatusRequest moves an order along its lifecycle
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed preparing ready assigned picked_up in_transit delivered cancelled refunded"`
	Reason string `json:"reason" binding:"max=500"`
}

// CancelRequest is a client cancellation
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID                  uuid.UUID                `json:"id"`
	ProductID           uuid.UUID                `json:"product_id"`
	BranchID            uuid.UUID                `json:"branch_id"`
	ProductName         string                   `json:"product_name"`
	UnitPrice           decimal.Decimal          `json:"unit_price"`
	Quantity            int                      `json:"quantity"`
	VariantSelection    catalog.VariantSelection `json:"variant_selection,omitempty"`
	Subtotal            decimal.Decimal          `json:"subtotal"`
	SpecialInstructions string                   `json:"special_instructions,omitempty"`
	TaxBreakdown        tax.Breakdown            `json:"tax_breakdown"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	ClientID        uuid.UUID           `json:"client_id"`
	BusinessID      uuid.UUID           `json:"business_id"`
	CheckoutID      uuid.UUID           `json:"checkout_id"`
	Status          string              `json:"status"`
	Currency        string              `json:"currency"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount"`
	TipAmount       decimal.Decimal     `json:"tip_amount"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	TaxBreakdown    tax.Breakdown       `json:"tax_breakdown"`
	TaxDegraded     bool                `json:"tax_degraded"`
	WalletCredit    decimal.Decimal     `json:"wallet_credit"`
	PaymentMethod   string              `json:"payment_method"`
	PaymentStatus   string              `json:"payment_status"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	DeliveryNotes   string              `json:"delivery_notes,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	ItemCount       int                 `json:"item_count"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Version         int                 `json:"version"`
}

// OrderListItemResponse is the compact listing form of an order
type OrderListItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	BusinessID  uuid.UUID       `json:"business_id"`
	ClientID    uuid.UUID       `json:"client_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ID:                  it.ID,
			ProductID:           it.ProductID,
			BranchID:            it.BranchID,
			ProductName:         it.ProductName,
			UnitPrice:           it.UnitPrice,
			Quantity:            it.Quantity,
			VariantSelection:    it.VariantSelection,
			Subtotal:            it.Subtotal,
			SpecialInstructions: it.SpecialInstructions,
			TaxBreakdown:        it.TaxBreakdown,
		}
	}
	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		ClientID:        o.ClientID,
		BusinessID:      o.BusinessID,
		CheckoutID:      o.CheckoutID,
		Status:          string(o.Status),
		Currency:        o.Currency,
		Subtotal:        o.Subtotal,
		TaxAmount:       o.TaxAmount,
		DeliveryFee:     o.DeliveryFee,
		DiscountAmount:  o.DiscountAmount,
		TipAmount:       o.TipAmount,
		TotalAmount:     o.TotalAmount,
		TaxBreakdown:    o.TaxBreakdown,
		TaxDegraded:     o.TaxDegraded,
		WalletCredit:    o.WalletCredit,
		PaymentMethod:   o.Payment.Method,
		PaymentStatus:   string(o.Payment.Status),
		DeliveryAddress: o.DeliveryAddress,
		DeliveryNotes:   o.DeliveryNotes,
		Items:           items,
		ItemCount:       o.ItemCount(),
		ConfirmedAt:     o.ConfirmedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CancelReason:    o.CancelReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Version:         o.Version,
	}
}

// ToOrderResponses converts placed orders to responses
func ToOrderResponses(orders []*order.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o)
	}
	return out
}

// ToOrderListItemResponses converts a listing page
func ToOrderListItemResponses(orders []order.Order) []OrderListItemResponse {
	out := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = OrderListItemResponse{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			BusinessID:  o.BusinessID,
			ClientID:    o.ClientID,
			Status:      string(o.Status),
			TotalAmount: o.TotalAmount,
			ItemCount:   o.ItemCount(),
			CreatedAt:   o.CreatedAt,
		}
	}
	return out
}
