package catalog

import (
	"fmt"

	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// SelectionMode says how many variants a customer may pick from a group
type SelectionMode string

const (
	SelectionSingle   SelectionMode = "single"
	SelectionMultiple SelectionMode = "multiple"
)

// Variant is one selectable option inside a variant group
type Variant struct {
	ID              uuid.UUID
	Name            string
	PriceAdjustment decimal.Decimal
	IsAvailable     bool
}

// VariantGroup is a configurable option group of a product (e.g. size, extras)
type VariantGroup struct {
	ID            uuid.UUID
	Name          string
	SelectionMode SelectionMode
	IsRequired    bool
	MinSelections int
	MaxSelections int // 0 = unbounded for multiple selection
	Variants      []Variant
}

// Product is the catalog view the checkout pipeline consumes.
// The catalog service owns it; this service only reads it.
type Product struct {
	ID            uuid.UUID
	BusinessID    uuid.UUID
	Name          string
	Price         decimal.Decimal
	Status        ProductStatus
	VariantGroups []VariantGroup
}

// IsActive reports whether the product can be sold
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// ValidateSelection checks a selection against the product's variant groups
func (p *Product) ValidateSelection(sel VariantSelection) error {
	groups := make(map[uuid.UUID]*VariantGroup, len(p.VariantGroups))
	for i := range p.VariantGroups {
		groups[p.VariantGroups[i].ID] = &p.VariantGroups[i]
	}

	for groupID := range sel {
		if _, ok := groups[groupID]; !ok {
			return shared.NewDomainError("INVALID_VARIANT_GROUP", fmt.Sprintf("Variant group %s does not belong to product %s", groupID, p.ID))
		}
	}

	for _, g := range p.VariantGroups {
		chosen := sel[g.ID]
		if err := g.validate(chosen); err != nil {
			return err
		}
	}
	return nil
}

func (g *VariantGroup) validate(chosen []uuid.UUID) error {
	n := len(chosen)
	if n == 0 {
		if g.IsRequired || g.MinSelections > 0 {
			return shared.NewDomainError("VARIANT_REQUIRED", fmt.Sprintf("A selection is required for %s", g.Name))
		}
		return nil
	}

	switch g.SelectionMode {
	case SelectionSingle:
		if n > 1 {
			return shared.NewDomainError("INVALID_VARIANT_SELECTION", fmt.Sprintf("Only one option can be selected for %s", g.Name))
		}
	case SelectionMultiple:
		if g.MinSelections > 0 && n < g.MinSelections {
			return shared.NewDomainError("INVALID_VARIANT_SELECTION", fmt.Sprintf("At least %d options must be selected for %s", g.MinSelections, g.Name))
		}
		if g.MaxSelections > 0 && n > g.MaxSelections {
			return shared.NewDomainError("INVALID_VARIANT_SELECTION", fmt.Sprintf("At most %d options can be selected for %s", g.MaxSelections, g.Name))
		}
	}

	seen := make(map[uuid.UUID]struct{}, n)
	for _, id := range chosen {
		if _, dup := seen[id]; dup {
			return shared.NewDomainError("INVALID_VARIANT_SELECTION", fmt.Sprintf("Option %s selected twice for %s", id, g.Name))
		}
		seen[id] = struct{}{}
		v := g.variant(id)
		if v == nil {
			return shared.NewDomainError("INVALID_VARIANT", fmt.Sprintf("Option %s does not belong to %s", id, g.Name))
		}
		if !v.IsAvailable {
			return shared.NewDomainError("VARIANT_UNAVAILABLE", fmt.Sprintf("Option %s is not available", v.Name))
		}
	}
	return nil
}

func (g *VariantGroup) variant(id uuid.UUID) *Variant {
	for i := range g.Variants {
		if g.Variants[i].ID == id {
			return &g.Variants[i]
		}
	}
	return nil
}

// UnitPrice returns base price plus the adjustments of every selected variant.
// The selection must have been validated first.
func (p *Product) UnitPrice(sel VariantSelection) decimal.Decimal {
	price := p.Price
	for _, g := range p.VariantGroups {
		for _, id := range sel[g.ID] {
			if v := g.variant(id); v != nil {
				price = price.Add(v.PriceAdjustment)
			}
		}
	}
	return price
}
