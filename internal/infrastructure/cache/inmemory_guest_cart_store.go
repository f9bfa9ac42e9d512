package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/checkout/internal/domain/cart"
)

type guestEntry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryGuestCartStore is the process-local GuestCartStore.
// Lines are stored encoded so callers never share slices with the store.
type InMemoryGuestCartStore struct {
	mu      sync.Mutex
	entries map[string]guestEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryGuestCartStore creates an in-memory guest cart store
func NewInMemoryGuestCartStore(ttl time.Duration) *InMemoryGuestCartStore {
	return &InMemoryGuestCartStore{
		entries: make(map[string]guestEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns the session's lines; an unknown or expired session has none
func (s *InMemoryGuestCartStore) Load(_ context.Context, sessionID string) ([]cart.CartItem, error) {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	if ok && !s.now().Before(e.expiresAt) {
		delete(s.entries, sessionID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return []cart.CartItem{}, nil
	}
	return decodeGuestLines(e.data)
}

// Save replaces the session's lines and refreshes the TTL
func (s *InMemoryGuestCartStore) Save(ctx context.Context, sessionID string, items []cart.CartItem) error {
	if len(items) == 0 {
		return s.Clear(ctx, sessionID)
	}
	data, err := encodeGuestLines(items)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[sessionID] = guestEntry{data: data, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Clear removes the session's lines
func (s *InMemoryGuestCartStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}

var _ cart.GuestCartStore = (*InMemoryGuestCartStore)(nil)
