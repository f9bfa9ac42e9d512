package models

import (
	"time"

	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the local read mirror of the catalog service's products.
type ProductModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	BusinessID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name          string          `gorm:"type:varchar(255);not null"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status        string          `gorm:"type:varchar(20);not null;default:'active'"`
	VariantGroups string          `gorm:"type:jsonb;default:'[]'"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

type variantGroupJSON struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	SelectionMode string        `json:"selection_mode"`
	IsRequired    bool          `json:"is_required"`
	MinSelections int           `json:"min_selections"`
	MaxSelections int           `json:"max_selections"`
	Variants      []variantJSON `json:"variants"`
}

type variantJSON struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	IsAvailable     bool            `json:"is_available"`
}

// ToDomain converts the mirror row to a catalog Product.
func (m *ProductModel) ToDomain() (*catalog.Product, error) {
	var groups []variantGroupJSON
	if err := unmarshalJSON(m.VariantGroups, &groups); err != nil {
		return nil, err
	}
	p := &catalog.Product{
		ID:            m.ID,
		BusinessID:    m.BusinessID,
		Name:          m.Name,
		Price:         m.Price,
		Status:        catalog.ProductStatus(m.Status),
		VariantGroups: make([]catalog.VariantGroup, 0, len(groups)),
	}
	for _, g := range groups {
		vg := catalog.VariantGroup{
			ID:            g.ID,
			Name:          g.Name,
			SelectionMode: catalog.SelectionMode(g.SelectionMode),
			IsRequired:    g.IsRequired,
			MinSelections: g.MinSelections,
			MaxSelections: g.MaxSelections,
			Variants:      make([]catalog.Variant, 0, len(g.Variants)),
		}
		for _, v := range g.Variants {
			vg.Variants = append(vg.Variants, catalog.Variant{
				ID:              v.ID,
				Name:            v.Name,
				PriceAdjustment: v.PriceAdjustment,
				IsAvailable:     v.IsAvailable,
			})
		}
		p.VariantGroups = append(p.VariantGroups, vg)
	}
	return p, nil
}

// ProductModelFromDomain creates a mirror row from a catalog Product.
func ProductModelFromDomain(p *catalog.Product) (*ProductModel, error) {
	groups := make([]variantGroupJSON, 0, len(p.VariantGroups))
	for _, g := range p.VariantGroups {
		vg := variantGroupJSON{
			ID:            g.ID,
			Name:          g.Name,
			SelectionMode: string(g.SelectionMode),
			IsRequired:    g.IsRequired,
			MinSelections: g.MinSelections,
			MaxSelections: g.MaxSelections,
			Variants:      make([]variantJSON, 0, len(g.Variants)),
		}
		for _, v := range g.Variants {
			vg.Variants = append(vg.Variants, variantJSON{
				ID:              v.ID,
				Name:            v.Name,
				PriceAdjustment: v.PriceAdjustment,
				IsAvailable:     v.IsAvailable,
			})
		}
		groups = append(groups, vg)
	}
	encoded, err := marshalJSON(groups, "[]")
	if err != nil {
		return nil, err
	}
	return &ProductModel{
		ID:            p.ID,
		BusinessID:    p.BusinessID,
		Name:          p.Name,
		Price:         p.Price,
		Status:        string(p.Status),
		VariantGroups: encoded,
		UpdatedAt:     time.Now(),
	}, nil
}
