package cart

import (
	"context"
	"errors"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

// pricer builds priced cart inputs from the catalog
type pricer struct {
	products catalog.ProductReader
}

func (p pricer) product(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	product, err := p.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return nil, err
	}
	if !product.IsActive() {
		return nil, shared.NewDomainError("PRODUCT_INACTIVE", "Product is not available")
	}
	return product, nil
}

func (p pricer) newItem(ctx context.Context, req AddItemRequest) (cart.NewItemInput, error) {
	product, err := p.product(ctx, req.ProductID)
	if err != nil {
		return cart.NewItemInput{}, err
	}
	if err := product.ValidateSelection(req.VariantSelection); err != nil {
		return cart.NewItemInput{}, err
	}
	return cart.NewItemInput{
		ProductID:           product.ID,
		BusinessID:          product.BusinessID,
		BranchID:            req.BranchID,
		ProductName:         product.Name,
		Quantity:            req.Quantity,
		VariantSelection:    req.VariantSelection,
		UnitPrice:           product.UnitPrice(req.VariantSelection),
		SpecialInstructions: req.SpecialInstructions,
	}, nil
}

// applyUpdate mutates one line of c according to req
func (p pricer) applyUpdate(ctx context.Context, c *cart.Cart, itemID uuid.UUID, req UpdateItemRequest) error {
	item := c.FindItem(itemID)
	if item == nil {
		return shared.ErrNotFound
	}
	if req.VariantSelection != nil {
		product, err := p.product(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if err := product.ValidateSelection(req.VariantSelection); err != nil {
			return err
		}
		if err := c.UpdateItemVariants(itemID, req.VariantSelection, product.UnitPrice(req.VariantSelection)); err != nil {
			return err
		}
	}
	if req.Quantity != nil {
		if err := c.UpdateItemQuantity(itemID, *req.Quantity); err != nil {
			return err
		}
	}
	return nil
}
