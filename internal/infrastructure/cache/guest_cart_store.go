package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// guestLine is the stored shape of a guest cart line
type guestLine struct {
	ID                  uuid.UUID                `json:"id"`
	ProductID           uuid.UUID                `json:"product_id"`
	BusinessID          uuid.UUID                `json:"business_id"`
	BranchID            uuid.UUID                `json:"branch_id"`
	ProductName         string                   `json:"product_name"`
	Quantity            int                      `json:"quantity"`
	VariantSelection    catalog.VariantSelection `json:"variant_selection,omitempty"`
	UnitPrice           decimal.Decimal          `json:"unit_price"`
	SpecialInstructions string                   `json:"special_instructions,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

func encodeGuestLines(items []cart.CartItem) ([]byte, error) {
	lines := make([]guestLine, len(items))
	for i, it := range items {
		lines[i] = guestLine{
			ID:                  it.ID,
			ProductID:           it.ProductID,
			BusinessID:          it.BusinessID,
			BranchID:            it.BranchID,
			ProductName:         it.ProductName,
			Quantity:            it.Quantity,
			VariantSelection:    it.VariantSelection,
			UnitPrice:           it.UnitPrice,
			SpecialInstructions: it.SpecialInstructions,
			CreatedAt:           it.CreatedAt,
			UpdatedAt:           it.UpdatedAt,
		}
	}
	return json.Marshal(lines)
}

func decodeGuestLines(data []byte) ([]cart.CartItem, error) {
	var lines []guestLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, err
	}
	items := make([]cart.CartItem, len(lines))
	for i, l := range lines {
		items[i] = cart.CartItem{
			ID:                  l.ID,
			ProductID:           l.ProductID,
			BusinessID:          l.BusinessID,
			BranchID:            l.BranchID,
			ProductName:         l.ProductName,
			Quantity:            l.Quantity,
			VariantSelection:    l.VariantSelection,
			UnitPrice:           l.UnitPrice,
			SpecialInstructions: l.SpecialInstructions,
			CreatedAt:           l.CreatedAt,
			UpdatedAt:           l.UpdatedAt,
		}
	}
	return items, nil
}

// RedisGuestCartStore keeps guest cart lines as one JSON value per session.
// Every save refreshes the TTL, so an idle guest cart expires.
type RedisGuestCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuestCartStore creates a guest cart store on an existing client
func NewRedisGuestCartStore(client *redis.Client, ttl time.Duration) *RedisGuestCartStore {
	return &RedisGuestCartStore{client: client, ttl: ttl}
}

// Load returns the session's lines; an unknown session has none
func (s *RedisGuestCartStore) Load(ctx context.Context, sessionID string) ([]cart.CartItem, error) {
	data, err := s.client.Get(ctx, guestCartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []cart.CartItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get guest cart: %w", err)
	}
	items, err := decodeGuestLines(data)
	if err != nil {
		return nil, fmt.Errorf("decode guest cart: %w", err)
	}
	return items, nil
}

// Save replaces the session's lines. Saving no lines clears the session.
func (s *RedisGuestCartStore) Save(ctx context.Context, sessionID string, items []cart.CartItem) error {
	if len(items) == 0 {
		return s.Clear(ctx, sessionID)
	}
	data, err := encodeGuestLines(items)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := s.client.Set(ctx, guestCartKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set guest cart: %w", err)
	}
	return nil
}

// Clear removes the session's lines
func (s *RedisGuestCartStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, guestCartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete guest cart: %w", err)
	}
	return nil
}

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("guest_cart:%s", sessionID)
}

var _ cart.GuestCartStore = (*RedisGuestCartStore)(nil)
