package cache

import (
	"context"
	"fmt"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores holds the Redis-or-memory backed stores of the service
type Stores struct {
	Idempotency shared.IdempotencyStore
	GuestCarts  cart.GuestCartStore

	client *redis.Client
}

// StoreFactoryOption is a functional option for NewStores
type StoreFactoryOption func(*storeFactory)

type storeFactory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error)
}

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *storeFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether memory stores replace Redis when it is unreachable.
// Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *storeFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStores builds the stores selected by storage.guest_cart.
// In redis mode both stores share one client. Without Redis, claims only hold within this process.
func NewStores(ctx context.Context, redisCfg config.RedisConfig, storageCfg config.StorageConfig, opts ...StoreFactoryOption) (*Stores, error) {
	f := &storeFactory{
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect:               NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}

	if storageCfg.GuestCart == "memory" {
		f.logger.Info("using in-memory guest cart and idempotency stores")
		return memoryStores(storageCfg), nil
	}

	client, err := f.connect(ctx, redisCfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for guest carts but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory stores. "+
			"Duplicate checkout submissions are only detected per instance.",
			zap.Error(err),
		)
		return memoryStores(storageCfg), nil
	}

	f.logger.Info("using Redis guest cart and idempotency stores", zap.String("addr", redisCfg.Addr()))
	return &Stores{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		GuestCarts:  NewRedisGuestCartStore(client, storageCfg.GuestCartTTL),
		client:      client,
	}, nil
}

func memoryStores(storageCfg config.StorageConfig) *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(defaultSweepInterval),
		GuestCarts:  NewInMemoryGuestCartStore(storageCfg.GuestCartTTL),
	}
}

// Client returns the Redis client, nil in memory mode
func (s *Stores) Client() *redis.Client {
	return s.client
}

// Close releases the stores and the Redis client
func (s *Stores) Close() error {
	if err := s.Idempotency.Close(); err != nil {
		return err
	}
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
