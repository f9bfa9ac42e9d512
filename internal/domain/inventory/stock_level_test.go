package inventory

import (
	"testing"
	"time"

	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockLevel_ReserveRelease(t *testing.T) {
	level := NewStockLevel(uuid.New(), uuid.New(), 10)

	require.NoError(t, level.Reserve(4))
	assert.Equal(t, 6, level.Available)
	assert.Equal(t, 4, level.Reserved)
	assert.Equal(t, 10, level.OnHand())

	assert.ErrorIs(t, level.Reserve(7), shared.ErrInsufficientStock)
	assert.Equal(t, 6, level.Available, "failed reserve must not change stock")

	require.NoError(t, level.Release(4))
	assert.Equal(t, 10, level.Available)
	assert.Equal(t, 0, level.Reserved)

	assert.Error(t, level.Release(1))
	assert.Error(t, level.Reserve(0))
}

func TestStockLevel_Commit(t *testing.T) {
	level := NewStockLevel(uuid.New(), uuid.New(), 5)
	require.NoError(t, level.Reserve(3))
	require.NoError(t, level.Commit(3))
	assert.Equal(t, 2, level.Available)
	assert.Equal(t, 0, level.Reserved)
	assert.Equal(t, 2, level.OnHand())
	assert.Error(t, level.Commit(1))
}

func TestStockLevel_Restock(t *testing.T) {
	level := NewStockLevel(uuid.New(), uuid.New(), 0)
	v := level.Version
	require.NoError(t, level.Restock(8))
	assert.Equal(t, 8, level.Available)
	assert.Greater(t, level.Version, v)
	assert.Error(t, level.Restock(-1))
}

func TestReservation_Lifecycle(t *testing.T) {
	now := time.Now()
	r := NewReservation(uuid.New(), uuid.New(), uuid.New(), 2, now.Add(time.Minute))
	assert.True(t, r.IsActive())
	assert.False(t, r.IsExpired(now))
	assert.True(t, r.IsExpired(now.Add(2*time.Minute)))

	r.MarkReleased(now)
	assert.False(t, r.IsActive())
	require.NotNil(t, r.ReleasedAt)

	c := NewReservation(uuid.New(), uuid.New(), uuid.New(), 1, now.Add(time.Minute))
	c.MarkCommitted(now)
	assert.False(t, c.IsActive())
	require.NotNil(t, c.CommittedAt)
}

func TestStockShortage_Shortfall(t *testing.T) {
	s := StockShortage{Requested: 5, Available: 3}
	assert.Equal(t, 2, s.Shortfall())
}
