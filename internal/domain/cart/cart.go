package cart

import (
	"fmt"
	"time"

	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLifetime is how long an untouched cart is kept
const CartLifetime = 30 * 24 * time.Hour

// MaxLineQuantity bounds a single line
const MaxLineQuantity = 999

// Cart is the mutable pre-checkout aggregate.
// It belongs either to an authenticated user or to an anonymous session.
// Totals are always derived from the items.
type Cart struct {
	shared.BaseAggregateRoot
	UserID    *uuid.UUID
	SessionID string
	Items     []CartItem
	ExpiresAt time.Time
}

// CartItem is a line owned exclusively by its Cart
type CartItem struct {
	ID                  uuid.UUID
	CartID              uuid.UUID
	ProductID           uuid.UUID
	BusinessID          uuid.UUID
	BranchID            uuid.UUID
	ProductName         string
	Quantity            int
	VariantSelection    catalog.VariantSelection
	UnitPrice           decimal.Decimal // snapshot including variant adjustments
	SpecialInstructions string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Subtotal is unit price times quantity
func (i *CartItem) Subtotal() decimal.Decimal {
	return valueobject.LineTotal(i.UnitPrice, i.Quantity)
}

// MatchKey identifies "the same line" for guest merging: product, branch and variants
func (i *CartItem) MatchKey() string {
	return i.ProductID.String() + "|" + i.BranchID.String() + "|" + i.VariantSelection.Key()
}

// sameLine is stricter than MatchKey: instructions must also match
func (i *CartItem) sameLine(other *CartItem) bool {
	return i.MatchKey() == other.MatchKey() && i.SpecialInstructions == other.SpecialInstructions
}

// NewItemInput carries what is needed to add a priced item to a cart
type NewItemInput struct {
	ProductID           uuid.UUID
	BusinessID          uuid.UUID
	BranchID            uuid.UUID
	ProductName         string
	Quantity            int
	VariantSelection    catalog.VariantSelection
	UnitPrice           decimal.Decimal
	SpecialInstructions string
}

// BusinessGroup is the slice of a cart sold by one business
type BusinessGroup struct {
	BusinessID uuid.UUID
	Items      []CartItem
}

// Subtotal of the group
func (g BusinessGroup) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range g.Items {
		total = total.Add(g.Items[i].Subtotal())
	}
	return total
}

// NewUserCart creates an empty cart for an authenticated user
func NewUserCart(userID uuid.UUID) *Cart {
	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            &userID,
		Items:             make([]CartItem, 0),
	}
	c.ExpiresAt = c.CreatedAt.Add(CartLifetime)
	return c
}

// NewGuestCart creates an empty cart for an anonymous session
func NewGuestCart(sessionID string) *Cart {
	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SessionID:         sessionID,
		Items:             make([]CartItem, 0),
	}
	c.ExpiresAt = c.CreatedAt.Add(CartLifetime)
	return c
}

// AddItem adds a line, or increases the quantity of an identical line.
// Identical means same product, branch, variant set and instructions.
func (c *Cart) AddItem(in NewItemInput) (*CartItem, error) {
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if in.ProductID == uuid.Nil || in.BranchID == uuid.Nil || in.BusinessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Product, business and branch are required")
	}
	if in.UnitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	candidate := CartItem{
		ID:                  uuid.New(),
		CartID:              c.ID,
		ProductID:           in.ProductID,
		BusinessID:          in.BusinessID,
		BranchID:            in.BranchID,
		ProductName:         in.ProductName,
		Quantity:            in.Quantity,
		VariantSelection:    in.VariantSelection.Clone(),
		UnitPrice:           in.UnitPrice,
		SpecialInstructions: in.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	for idx := range c.Items {
		existing := &c.Items[idx]
		if !existing.sameLine(&candidate) {
			continue
		}
		if err := validateQuantity(existing.Quantity + in.Quantity); err != nil {
			return nil, err
		}
		existing.Quantity += in.Quantity
		existing.UnitPrice = in.UnitPrice
		existing.UpdatedAt = now
		c.touch(now)
		return existing, nil
	}

	c.Items = append(c.Items, candidate)
	c.touch(now)
	return &c.Items[len(c.Items)-1], nil
}

// UpdateItemQuantity sets the quantity of a line; use RemoveItem to drop it
func (c *Cart) UpdateItemQuantity(itemID uuid.UUID, quantity int) error {
	item := c.FindItem(itemID)
	if item == nil {
		return shared.ErrNotFound
	}
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	now := time.Now()
	item.Quantity = quantity
	item.UpdatedAt = now
	c.touch(now)
	return nil
}

// UpdateItemVariants replaces the variant selection and the price snapshot that depends on it
func (c *Cart) UpdateItemVariants(itemID uuid.UUID, sel catalog.VariantSelection, unitPrice decimal.Decimal) error {
	item := c.FindItem(itemID)
	if item == nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	item.VariantSelection = sel.Clone()
	item.UnitPrice = unitPrice
	item.UpdatedAt = now
	c.touch(now)
	return nil
}

// RemoveItem drops a line
func (c *Cart) RemoveItem(itemID uuid.UUID) error {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			c.touch(time.Now())
			return nil
		}
	}
	return shared.ErrNotFound
}

// ConsumeItems removes the lines that were turned into an order
func (c *Cart) ConsumeItems(itemIDs []uuid.UUID) {
	if len(itemIDs) == 0 {
		return
	}
	consumed := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		consumed[id] = struct{}{}
	}
	kept := c.Items[:0]
	for _, item := range c.Items {
		if _, ok := consumed[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	c.touch(time.Now())
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = make([]CartItem, 0)
	c.touch(time.Now())
}

// FindItem returns the line with the given id, or nil
func (c *Cart) FindItem(itemID uuid.UUID) *CartItem {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			return &c.Items[idx]
		}
	}
	return nil
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// IsExpired reports whether the cart outlived CartLifetime
func (c *Cart) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ItemCount is the total number of units across lines
func (c *Cart) ItemCount() int {
	n := 0
	for i := range c.Items {
		n += c.Items[i].Quantity
	}
	return n
}

// Subtotal is the sum of line subtotals
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Items {
		total = total.Add(c.Items[i].Subtotal())
	}
	return total
}

// GroupByBusiness returns lines grouped by selling business, in first-seen order
func (c *Cart) GroupByBusiness() []BusinessGroup {
	index := make(map[uuid.UUID]int)
	groups := make([]BusinessGroup, 0)
	for _, item := range c.Items {
		idx, ok := index[item.BusinessID]
		if !ok {
			idx = len(groups)
			index[item.BusinessID] = idx
			groups = append(groups, BusinessGroup{BusinessID: item.BusinessID})
		}
		groups[idx].Items = append(groups[idx].Items, item)
	}
	return groups
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(CartLifetime)
}

func validateQuantity(q int) error {
	if q < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if q > MaxLineQuantity {
		return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Quantity cannot exceed %d", MaxLineQuantity))
	}
	return nil
}

func newItemID() uuid.UUID {
	return uuid.New()
}
