package cart

import (
	"context"
	"strings"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
)

// GuestCartService runs cart operations for an anonymous session on top of the
// injected GuestCartStore. The same aggregate rules apply as for user carts.
type GuestCartService struct {
	store  cart.GuestCartStore
	pricer pricer
}

// NewGuestCartService creates a new GuestCartService
func NewGuestCartService(store cart.GuestCartStore, products catalog.ProductReader) *GuestCartService {
	return &GuestCartService{
		store:  store,
		pricer: pricer{products: products},
	}
}

// Get returns the session's cart
func (s *GuestCartService) Get(ctx context.Context, sessionID string) (*CartResponse, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// AddItem prices and adds a product line
func (s *GuestCartService) AddItem(ctx context.Context, sessionID string, req AddItemRequest) (*CartResponse, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	in, err := s.pricer.newItem(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := c.AddItem(in); err != nil {
		return nil, err
	}
	return s.save(ctx, sessionID, c)
}

// UpdateItem changes quantity and/or variants of a line
func (s *GuestCartService) UpdateItem(ctx context.Context, sessionID string, itemID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.pricer.applyUpdate(ctx, c, itemID, req); err != nil {
		return nil, err
	}
	return s.save(ctx, sessionID, c)
}

// RemoveItem drops a line
func (s *GuestCartService) RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(itemID); err != nil {
		return nil, err
	}
	return s.save(ctx, sessionID, c)
}

// Clear removes the session's cart
func (s *GuestCartService) Clear(ctx context.Context, sessionID string) error {
	if err := validSession(sessionID); err != nil {
		return err
	}
	return s.store.Clear(ctx, sessionID)
}

// GroupByBusiness returns the session's lines per store
func (s *GuestCartService) GroupByBusiness(ctx context.Context, sessionID string) ([]BusinessGroupResponse, error) {
	resp, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return resp.Businesses, nil
}

func (s *GuestCartService) load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	if err := validSession(sessionID); err != nil {
		return nil, err
	}
	items, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c := cart.NewGuestCart(sessionID)
	// stable id so responses for one session agree
	c.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("guest_cart:"+sessionID))
	c.Items = append(c.Items, items...)
	return c, nil
}

func (s *GuestCartService) save(ctx context.Context, sessionID string, c *cart.Cart) (*CartResponse, error) {
	if err := s.store.Save(ctx, sessionID, c.Items); err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

func validSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return shared.NewDomainError("INVALID_SESSION", "Guest session id is required")
	}
	if len(sessionID) > 128 {
		return shared.NewDomainError("INVALID_SESSION", "Guest session id is too long")
	}
	return nil
}
