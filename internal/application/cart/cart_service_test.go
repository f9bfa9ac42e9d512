package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testProduct() (*catalog.Product, catalog.VariantGroup) {
	size := catalog.VariantGroup{
		ID:            uuid.New(),
		Name:          "Size",
		SelectionMode: catalog.SelectionSingle,
		Variants: []catalog.Variant{
			{ID: uuid.New(), Name: "Regular", PriceAdjustment: decimal.Zero, IsAvailable: true},
			{ID: uuid.New(), Name: "Large", PriceAdjustment: decimal.RequireFromString("10"), IsAvailable: true},
		},
	}
	return &catalog.Product{
		ID:            uuid.New(),
		BusinessID:    uuid.New(),
		Name:          "Pizza",
		Price:         decimal.RequireFromString("150"),
		Status:        catalog.ProductStatusActive,
		VariantGroups: []catalog.VariantGroup{size},
	}, size
}

func TestCartService_AddItem(t *testing.T) {
	carts := new(MockCartRepository)
	products := new(MockProductReader)
	svc := NewCartService(carts, products, newFakeGuestStore(), zap.NewNop())
	userID := uuid.New()
	product, size := testProduct()

	carts.On("FindByUser", mock.Anything, userID).Return(nil, shared.ErrNotFound)
	products.On("FindByID", mock.Anything, product.ID).Return(product, nil)
	carts.On("Save", mock.Anything, mock.AnythingOfType("*cart.Cart")).Return(nil)

	resp, err := svc.AddItem(context.Background(), userID, AddItemRequest{
		ProductID:        product.ID,
		BranchID:         uuid.New(),
		Quantity:         2,
		VariantSelection: catalog.VariantSelection{size.ID: {size.Variants[1].ID}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.True(t, decimal.RequireFromString("160").Equal(resp.Items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("320").Equal(resp.Subtotal))
	assert.Equal(t, product.BusinessID, resp.Items[0].BusinessID)
	require.Len(t, resp.Businesses, 1)
	assert.Equal(t, 2, resp.Businesses[0].ItemCount)
}

func TestCartService_AddItem_Rejections(t *testing.T) {
	userID := uuid.New()

	t.Run("inactive product", func(t *testing.T) {
		carts := new(MockCartRepository)
		products := new(MockProductReader)
		product, _ := testProduct()
		product.Status = catalog.ProductStatusInactive
		carts.On("FindByUser", mock.Anything, userID).Return(cart.NewUserCart(userID), nil)
		products.On("FindByID", mock.Anything, product.ID).Return(product, nil)

		_, err := NewCartService(carts, products, newFakeGuestStore(), zap.NewNop()).
			AddItem(context.Background(), userID, AddItemRequest{ProductID: product.ID, BranchID: uuid.New(), Quantity: 1})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "PRODUCT_INACTIVE", de.Code)
		carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("two choices in a single group", func(t *testing.T) {
		carts := new(MockCartRepository)
		products := new(MockProductReader)
		product, size := testProduct()
		carts.On("FindByUser", mock.Anything, userID).Return(cart.NewUserCart(userID), nil)
		products.On("FindByID", mock.Anything, product.ID).Return(product, nil)

		_, err := NewCartService(carts, products, newFakeGuestStore(), zap.NewNop()).
			AddItem(context.Background(), userID, AddItemRequest{
				ProductID:        product.ID,
				BranchID:         uuid.New(),
				Quantity:         1,
				VariantSelection: catalog.VariantSelection{size.ID: {size.Variants[0].ID, size.Variants[1].ID}},
			})
		assert.Error(t, err)
	})

	t.Run("unknown product", func(t *testing.T) {
		carts := new(MockCartRepository)
		products := new(MockProductReader)
		id := uuid.New()
		carts.On("FindByUser", mock.Anything, userID).Return(cart.NewUserCart(userID), nil)
		products.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		_, err := NewCartService(carts, products, newFakeGuestStore(), zap.NewNop()).
			AddItem(context.Background(), userID, AddItemRequest{ProductID: id, BranchID: uuid.New(), Quantity: 1})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "PRODUCT_NOT_FOUND", de.Code)
	})
}

func TestCartService_UpdateItemVariantsReprices(t *testing.T) {
	carts := new(MockCartRepository)
	products := new(MockProductReader)
	userID := uuid.New()
	product, size := testProduct()

	c := cart.NewUserCart(userID)
	item, err := c.AddItem(cart.NewItemInput{
		ProductID: product.ID, BusinessID: product.BusinessID, BranchID: uuid.New(),
		ProductName: product.Name, Quantity: 1, UnitPrice: product.Price,
		VariantSelection: catalog.VariantSelection{size.ID: {size.Variants[0].ID}},
	})
	require.NoError(t, err)
	itemID := item.ID

	carts.On("FindByUser", mock.Anything, userID).Return(c, nil)
	products.On("FindByID", mock.Anything, product.ID).Return(product, nil)
	carts.On("Save", mock.Anything, c).Return(nil)

	qty := 3
	resp, err := NewCartService(carts, products, newFakeGuestStore(), zap.NewNop()).
		UpdateItem(context.Background(), userID, itemID, UpdateItemRequest{
			Quantity:         &qty,
			VariantSelection: catalog.VariantSelection{size.ID: {size.Variants[1].ID}},
		})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("480").Equal(resp.Subtotal))
}

func TestCartService_MergeGuestCart(t *testing.T) {
	userID := uuid.New()
	productID, branchID := uuid.New(), uuid.New()
	line := func(qty int) cart.CartItem {
		return cart.CartItem{ID: uuid.New(), ProductID: productID, BusinessID: uuid.New(), BranchID: branchID, Quantity: qty, UnitPrice: decimal.NewFromInt(10)}
	}

	t.Run("sums matching lines and clears the guest source", func(t *testing.T) {
		carts := new(MockCartRepository)
		guests := newFakeGuestStore()
		guests.carts["sess"] = []cart.CartItem{line(2)}

		server := cart.NewUserCart(userID)
		server.Items = append(server.Items, line(3))
		carts.On("FindByUser", mock.Anything, userID).Return(server, nil)
		carts.On("Save", mock.Anything, server).Return(nil)

		svc := NewCartService(carts, new(MockProductReader), guests, zap.NewNop())
		resp, err := svc.MergeGuestCart(context.Background(), userID, "sess")
		require.NoError(t, err)
		require.Len(t, resp.Cart.Items, 1)
		assert.Equal(t, 5, resp.Cart.Items[0].Quantity)
		assert.Equal(t, 1, resp.Summed)
		assert.Empty(t, guests.carts["sess"])

		// second sign-in finds nothing to merge
		resp, err = svc.MergeGuestCart(context.Background(), userID, "sess")
		require.NoError(t, err)
		assert.Equal(t, 5, resp.Cart.Items[0].Quantity)
		carts.AssertNumberOfCalls(t, "Save", 1)
	})

	t.Run("clear failure still returns the merged cart", func(t *testing.T) {
		carts := new(MockCartRepository)
		guests := newFakeGuestStore()
		guests.carts["sess"] = []cart.CartItem{line(1)}
		guests.clearErr = errors.New("redis down")
		carts.On("FindByUser", mock.Anything, userID).Return(nil, shared.ErrNotFound)
		carts.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := NewCartService(carts, new(MockProductReader), guests, zap.NewNop()).
			MergeGuestCart(context.Background(), userID, "sess")
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Appended)
	})

	t.Run("save failure keeps the guest cart", func(t *testing.T) {
		carts := new(MockCartRepository)
		guests := newFakeGuestStore()
		guests.carts["sess"] = []cart.CartItem{line(1)}
		carts.On("FindByUser", mock.Anything, userID).Return(nil, shared.ErrNotFound)
		carts.On("Save", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict)

		_, err := NewCartService(carts, new(MockProductReader), guests, zap.NewNop()).
			MergeGuestCart(context.Background(), userID, "sess")
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Len(t, guests.carts["sess"], 1)
	})

	t.Run("session required", func(t *testing.T) {
		_, err := NewCartService(new(MockCartRepository), new(MockProductReader), newFakeGuestStore(), zap.NewNop()).
			MergeGuestCart(context.Background(), userID, " ")
		assert.Error(t, err)
	})
}

func TestGuestCartService(t *testing.T) {
	products := new(MockProductReader)
	store := newFakeGuestStore()
	svc := NewGuestCartService(store, products)
	product, _ := testProduct()
	products.On("FindByID", mock.Anything, product.ID).Return(product, nil)
	branch := uuid.New()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", AddItemRequest{ProductID: product.ID, BranchID: branch, Quantity: 1})
	require.NoError(t, err)
	resp, err := svc.AddItem(ctx, "s1", AddItemRequest{ProductID: product.ID, BranchID: branch, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)

	again, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, resp.ID, again.ID)

	groups, err := svc.GroupByBusiness(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, product.BusinessID, groups[0].BusinessID)

	resp, err = svc.RemoveItem(ctx, "s1", resp.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	require.NoError(t, svc.Clear(ctx, "s1"))
	_, err = svc.Get(ctx, "")
	assert.Error(t, err)
}
