package persistence

import (
	"context"
	"testing"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart(t *testing.T) *cart.Cart {
	c := cart.NewUserCart(uuid.New())
	group, variant := uuid.New(), uuid.New()
	_, err := c.AddItem(cart.NewItemInput{
		ProductID:        uuid.New(),
		BusinessID:       uuid.New(),
		BranchID:         uuid.New(),
		ProductName:      "Cafe latte",
		Quantity:         2,
		UnitPrice:        decimal.RequireFromString("45.50"),
		VariantSelection: catalog.VariantSelection{group: {variant}},
	})
	require.NoError(t, err)
	return c
}

func TestGormCartRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCartRepository(setupTestDB(t))
	c := newTestCart(t)

	require.NoError(t, repo.Save(ctx, c))
	assert.Equal(t, 1, c.Version)

	found, err := repo.FindByUser(ctx, *c.UserID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 2, found.Items[0].Quantity)
	assert.True(t, found.Items[0].UnitPrice.Equal(decimal.RequireFromString("45.50")))
	assert.True(t, found.Items[0].VariantSelection.Equal(c.Items[0].VariantSelection))

	_, err = repo.FindByUser(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormCartRepository_UpdateReplacesLines(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCartRepository(setupTestDB(t))
	c := newTestCart(t)
	require.NoError(t, repo.Save(ctx, c))

	require.NoError(t, c.UpdateItemQuantity(c.Items[0].ID, 5))
	_, err := c.AddItem(cart.NewItemInput{
		ProductID:   uuid.New(),
		BusinessID:  uuid.New(),
		BranchID:    uuid.New(),
		ProductName: "Croissant",
		Quantity:    1,
		UnitPrice:   decimal.RequireFromString("30"),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, c))
	assert.Equal(t, 2, c.Version)

	found, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, found.Items, 2)
	assert.Equal(t, 6, found.ItemCount())
	assert.Equal(t, 2, found.Version)
}

func TestGormCartRepository_StaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCartRepository(setupTestDB(t))
	c := newTestCart(t)
	require.NoError(t, repo.Save(ctx, c))

	stale, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)

	c.Clear()
	require.NoError(t, repo.Save(ctx, c))

	stale.Clear()
	assert.ErrorIs(t, repo.Save(ctx, stale), shared.ErrConcurrencyConflict)
}

func TestGormCartRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCartRepository(setupTestDB(t))
	c := newTestCart(t)
	require.NoError(t, repo.Save(ctx, c))

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err := repo.FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
