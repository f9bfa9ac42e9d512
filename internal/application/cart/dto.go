package cart

import (
	"time"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest adds a product line to a cart
type AddItemRequest struct {
	ProductID           uuid.UUID                `json:"product_id" binding:"required"`
	BranchID            uuid.UUID                `json:"branch_id" binding:"required"`
	Quantity            int                      `json:"quantity" binding:"required,min=1,max=999"`
	VariantSelection    catalog.VariantSelection `json:"variant_selection"`
	SpecialInstructions string                   `json:"special_instructions" binding:"max=500"`
}

// UpdateItemRequest changes the quantity and/or the variants of a line
type UpdateItemRequest struct {
	Quantity         *int                     `json:"quantity" binding:"omitempty,min=1,max=999"`
	VariantSelection catalog.VariantSelection `json:"variant_selection"`
}

// CartItemResponse represents a cart line in API responses
type CartItemResponse struct {
	ID                  uuid.UUID                `json:"id"`
	ProductID           uuid.UUID                `json:"product_id"`
	BusinessID          uuid.UUID                `json:"business_id"`
	BranchID            uuid.UUID                `json:"branch_id"`
	ProductName         string                   `json:"product_name"`
	Quantity            int                      `json:"quantity"`
	VariantSelection    catalog.VariantSelection `json:"variant_selection,omitempty"`
	UnitPrice           decimal.Decimal          `json:"unit_price"`
	Subtotal            decimal.Decimal          `json:"subtotal"`
	SpecialInstructions string                   `json:"special_instructions,omitempty"`
}

// BusinessGroupResponse is the part of the cart sold by one business
type BusinessGroupResponse struct {
	BusinessID uuid.UUID          `json:"business_id"`
	Items      []CartItemResponse `json:"items"`
	ItemCount  int                `json:"item_count"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
}

// CartResponse represents a cart in API responses
type CartResponse struct {
	ID         uuid.UUID               `json:"id"`
	Items      []CartItemResponse      `json:"items"`
	Businesses []BusinessGroupResponse `json:"businesses"`
	ItemCount  int                     `json:"item_count"`
	Subtotal   decimal.Decimal         `json:"subtotal"`
	ExpiresAt  time.Time               `json:"expires_at"`
	Version    int                     `json:"version"`
}

// MergeResponse reports the result of a guest cart merge
type MergeResponse struct {
	Cart     CartResponse `json:"cart"`
	Summed   int          `json:"summed"`
	Appended int          `json:"appended"`
}

// ToCartItemResponse converts a domain CartItem to a response
func ToCartItemResponse(i *cart.CartItem) CartItemResponse {
	return CartItemResponse{
		ID:                  i.ID,
		ProductID:           i.ProductID,
		BusinessID:          i.BusinessID,
		BranchID:            i.BranchID,
		ProductName:         i.ProductName,
		Quantity:            i.Quantity,
		VariantSelection:    i.VariantSelection,
		UnitPrice:           i.UnitPrice,
		Subtotal:            i.Subtotal(),
		SpecialInstructions: i.SpecialInstructions,
	}
}

// ToCartResponse converts a domain Cart to a response
func ToCartResponse(c *cart.Cart) CartResponse {
	resp := CartResponse{
		ID:         c.ID,
		Items:      make([]CartItemResponse, len(c.Items)),
		Businesses: make([]BusinessGroupResponse, 0),
		ItemCount:  c.ItemCount(),
		Subtotal:   c.Subtotal(),
		ExpiresAt:  c.ExpiresAt,
		Version:    c.Version,
	}
	for i := range c.Items {
		resp.Items[i] = ToCartItemResponse(&c.Items[i])
	}
	for _, g := range c.GroupByBusiness() {
		group := BusinessGroupResponse{
			BusinessID: g.BusinessID,
			Items:      make([]CartItemResponse, len(g.Items)),
			Subtotal:   g.Subtotal(),
		}
		for i := range g.Items {
			group.Items[i] = ToCartItemResponse(&g.Items[i])
			group.ItemCount += g.Items[i].Quantity
		}
		resp.Businesses = append(resp.Businesses, group)
	}
	return resp
}
