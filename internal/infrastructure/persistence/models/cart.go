package models

import (
	"time"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartModel is the persistence model for the Cart aggregate root.
type CartModel struct {
	AggregateModel
	UserID    *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	SessionID string     `gorm:"type:varchar(128);index"`
	ExpiresAt time.Time  `gorm:"not null;index"`
	// Associations
	Items []CartItemModel `gorm:"foreignKey:CartID;references:ID"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel is the persistence model for a cart line.
type CartItemModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primary_key"`
	CartID              uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID       `gorm:"type:uuid;not null"`
	BusinessID          uuid.UUID       `gorm:"type:uuid;not null"`
	BranchID            uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName         string          `gorm:"type:varchar(255);not null"`
	Quantity            int             `gorm:"not null"`
	VariantSelection    string          `gorm:"type:jsonb;default:'{}'"`
	UnitPrice           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SpecialInstructions string          `gorm:"type:text"`
	CreatedAt           time.Time       `gorm:"not null"`
	UpdatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain Cart.
func (m *CartModel) ToDomain() (*cart.Cart, error) {
	c := &cart.Cart{
		UserID:    m.UserID,
		SessionID: m.SessionID,
		ExpiresAt: m.ExpiresAt,
		Items:     make([]cart.CartItem, 0, len(m.Items)),
	}
	m.PopulateAggregateRoot(&c.BaseAggregateRoot)
	for i := range m.Items {
		item, err := m.Items[i].ToDomain()
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}
	return c, nil
}

// ToDomain converts the item model to a domain CartItem.
func (m *CartItemModel) ToDomain() (cart.CartItem, error) {
	var sel catalog.VariantSelection
	if err := unmarshalJSON(m.VariantSelection, &sel); err != nil {
		return cart.CartItem{}, err
	}
	return cart.CartItem{
		ID:                  m.ID,
		CartID:              m.CartID,
		ProductID:           m.ProductID,
		BusinessID:          m.BusinessID,
		BranchID:            m.BranchID,
		ProductName:         m.ProductName,
		Quantity:            m.Quantity,
		VariantSelection:    sel,
		UnitPrice:           m.UnitPrice,
		SpecialInstructions: m.SpecialInstructions,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}, nil
}

// CartModelFromDomain creates a persistence model from a domain Cart.
func CartModelFromDomain(c *cart.Cart) (*CartModel, error) {
	m := &CartModel{
		UserID:    c.UserID,
		SessionID: c.SessionID,
		ExpiresAt: c.ExpiresAt,
		Items:     make([]CartItemModel, 0, len(c.Items)),
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	for i := range c.Items {
		item := &c.Items[i]
		sel, err := marshalJSON(item.VariantSelection, "{}")
		if err != nil {
			return nil, err
		}
		m.Items = append(m.Items, CartItemModel{
			ID:                  item.ID,
			CartID:              c.ID,
			ProductID:           item.ProductID,
			BusinessID:          item.BusinessID,
			BranchID:            item.BranchID,
			ProductName:         item.ProductName,
			Quantity:            item.Quantity,
			VariantSelection:    sel,
			UnitPrice:           item.UnitPrice,
			SpecialInstructions: item.SpecialInstructions,
			CreatedAt:           item.CreatedAt,
			UpdatedAt:           item.UpdatedAt,
		})
	}
	return m, nil
}
