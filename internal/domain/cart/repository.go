package cart

import (
	"context"

	"github.com/google/uuid"
)

// CartRepository persists server-held carts
type CartRepository interface {
	// FindByUser returns shared.ErrNotFound when the user has no cart
	FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Cart, error)
	// Save inserts or updates with optimistic locking on Version
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GuestCartStore is the session-scoped persistence port for anonymous carts.
// Implementations may sit on Redis, a browser-side store relayed by the client, or memory.
type GuestCartStore interface {
	Load(ctx context.Context, sessionID string) ([]CartItem, error)
	Save(ctx context.Context, sessionID string, items []CartItem) error
	Clear(ctx context.Context, sessionID string) error
}
