package cart

import (
	"context"
	"sync"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCartRepository is a mock implementation of cart.CartRepository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockProductReader is a mock implementation of catalog.ProductReader
type MockProductReader struct {
	mock.Mock
}

func (m *MockProductReader) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductReader) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*catalog.Product), args.Error(1)
}

// fakeGuestStore keeps guest carts in a map
type fakeGuestStore struct {
	mu       sync.Mutex
	carts    map[string][]cart.CartItem
	clearErr error
}

func newFakeGuestStore() *fakeGuestStore {
	return &fakeGuestStore{carts: make(map[string][]cart.CartItem)}
}

func (f *fakeGuestStore) Load(_ context.Context, sessionID string) ([]cart.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cart.CartItem(nil), f.carts[sessionID]...), nil
}

func (f *fakeGuestStore) Save(_ context.Context, sessionID string, items []cart.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[sessionID] = append([]cart.CartItem(nil), items...)
	return nil
}

func (f *fakeGuestStore) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	delete(f.carts, sessionID)
	return nil
}

