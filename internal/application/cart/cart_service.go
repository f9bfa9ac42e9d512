package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService handles the server-held cart of authenticated users
type CartService struct {
	carts  cart.CartRepository
	guests cart.GuestCartStore
	pricer pricer
	merger cart.GuestCartMerger
	logger *zap.Logger
}

// NewCartService creates a new CartService
func NewCartService(
	carts cart.CartRepository,
	products catalog.ProductReader,
	guests cart.GuestCartStore,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		carts:  carts,
		guests: guests,
		pricer: pricer{products: products},
		logger: logger,
	}
}

// GetCart returns the user's cart, empty if none exists yet
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// AddItem prices the product from the catalog and adds it
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartResponse, error) {
	c, err := s.load(ctx, userID)
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
	return s.save(ctx, c)
}

// UpdateItem changes quantity and/or variants of a line
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.pricer.applyUpdate(ctx, c, itemID, req); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// RemoveItem drops a line
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartResponse, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(itemID); err != nil {
		return nil, err
	}
	return s.save(ctx, c)
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	c, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if c.IsEmpty() {
		return nil
	}
	c.Clear()
	_, err = s.save(ctx, c)
	return err
}

// MergeGuestCart folds the guest session's lines into the user's cart once,
// then clears the guest source so a repeated sign-in does not merge again.
func (s *CartService) MergeGuestCart(ctx context.Context, userID uuid.UUID, sessionID string) (*MergeResponse, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Guest session id is required")
	}

	guestItems, err := s.guests.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(guestItems) == 0 {
		return &MergeResponse{Cart: ToCartResponse(c)}, nil
	}

	merged, stats := s.merger.Merge(guestItems, c)
	resp, err := s.save(ctx, merged)
	if err != nil {
		return nil, err
	}

	if err := s.guests.Clear(ctx, sessionID); err != nil {
		s.logger.Error("Guest cart merged but could not be cleared",
			zap.String("user_id", userID.String()),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	s.logger.Info("Guest cart merged",
		zap.String("user_id", userID.String()),
		zap.Int("summed", stats.Summed),
		zap.Int("appended", stats.Appended),
	)
	return &MergeResponse{Cart: *resp, Summed: stats.Summed, Appended: stats.Appended}, nil
}

// load returns the user's live cart; an expired cart is emptied
func (s *CartService) load(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return cart.NewUserCart(userID), nil
		}
		return nil, err
	}
	if c.IsExpired(time.Now()) {
		c.Clear()
	}
	return c, nil
}

func (s *CartService) save(ctx context.Context, c *cart.Cart) (*CartResponse, error) {
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}
