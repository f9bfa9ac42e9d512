package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionRepository persists checkout attempts
type SessionRepository interface {
	// Save inserts or updates with optimistic locking on Version
	Save(ctx context.Context, s *Session) error
	// FindByID returns shared.ErrNotFound when missing
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// FindStale returns non-terminal sessions whose ExpireAt has passed
	FindStale(ctx context.Context, now time.Time, limit int) ([]Session, error)
}
