package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func countingTask(name string, n *atomic.Int32, err error) Task {
	return Task{Name: name, Run: func(context.Context) error {
		n.Add(1)
		return err
	}}
}

func TestSweeper_RunOnce(t *testing.T) {
	var released, aborted atomic.Int32
	s := NewSweeper(DefaultSweeperConfig(), zap.NewNop(),
		countingTask("release_expired_reservations", &released, nil),
		countingTask("abort_stale_checkouts", &aborted, errors.New("db down")),
	)

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	assert.Equal(t, int32(2), released.Load())
	assert.Equal(t, int32(2), aborted.Load())

	stats := s.Stats()
	assert.Equal(t, 2, stats["release_expired_reservations"].Runs)
	assert.Equal(t, 0, stats["release_expired_reservations"].Failures)
	assert.Equal(t, 2, stats["abort_stale_checkouts"].Failures)
	assert.Equal(t, "db down", stats["abort_stale_checkouts"].LastErr)
}

func TestSweeper_PanicIsContained(t *testing.T) {
	var after atomic.Int32
	s := NewSweeper(DefaultSweeperConfig(), zap.NewNop(),
		Task{Name: "boom", Run: func(context.Context) error { panic("nil ledger") }},
		countingTask("next", &after, nil),
	)

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	assert.Equal(t, int32(1), after.Load())
	assert.Contains(t, s.Stats()["boom"].LastErr, "panicked")
}

func TestSweeper_TaskTimeout(t *testing.T) {
	s := NewSweeper(SweeperConfig{Interval: time.Hour, TaskTimeout: 10 * time.Millisecond}, zap.NewNop(),
		Task{Name: "slow", Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	s.RunOnce(context.Background())
	assert.Contains(t, s.Stats()["slow"].LastErr, "deadline exceeded")
}

func TestSweeper_StartStop(t *testing.T) {
	var n atomic.Int32
	s := NewSweeper(SweeperConfig{Interval: 10 * time.Millisecond, RunOnStart: true}, zap.NewNop(),
		countingTask("tick", &n, nil),
	)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.False(t, s.IsRunning())

	stopped := n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, n.Load())
	assert.NoError(t, s.Stop(stopCtx))
}
