package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/checkout/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStores(t *testing.T) {
	ctx := context.Background()
	storage := config.StorageConfig{GuestCart: "redis", GuestCartTTL: time.Hour}

	t.Run("memory mode never dials", func(t *testing.T) {
		s, err := NewStores(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1}, config.StorageConfig{GuestCart: "memory", GuestCartTTL: time.Hour})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &InMemoryGuestCartStore{}, s.GuestCarts)
		assert.IsType(t, &InMemoryIdempotencyStore{}, s.Idempotency)
		assert.Nil(t, s.Client())
	})

	t.Run("redis mode", func(t *testing.T) {
		mr := miniredis.RunT(t)
		host, port := mr.Host(), 0
		_, err := fmt.Sscanf(mr.Port(), "%d", &port)
		require.NoError(t, err)

		s, err := NewStores(ctx, config.RedisConfig{Host: host, Port: port}, storage)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &RedisGuestCartStore{}, s.GuestCarts)
		assert.IsType(t, &RedisIdempotencyStore{}, s.Idempotency)
		assert.NotNil(t, s.Client())
	})

	failing := func(f *storeFactory) {
		f.connect = func(context.Context, config.RedisConfig) (*redis.Client, error) {
			return nil, errors.New("connection refused")
		}
	}

	t.Run("falls back when redis is down", func(t *testing.T) {
		s, err := NewStores(ctx, config.RedisConfig{}, storage, failing)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &InMemoryGuestCartStore{}, s.GuestCarts)
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewStores(ctx, config.RedisConfig{}, storage, failing, WithInMemoryFallback(false))
		assert.ErrorContains(t, err, "connection refused")
	})
}
