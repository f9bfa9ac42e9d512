package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, elapsed time.Duration, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs, time.Time) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), level, opts...)
	begin := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gl.now = func() time.Time { return begin.Add(elapsed) }
	return gl, recorded, begin
}

func stockUpdate() (string, int64) {
	return `UPDATE "stock_ledgers" SET "reserved"="reserved"+2`, 1
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("query at info is debug", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Info, time.Millisecond)
		gl.Trace(context.Background(), begin, stockUpdate, nil)
		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.DebugLevel, recorded.All()[0].Level)
		assert.Equal(t, "sql query", recorded.All()[0].Message)
	})

	t.Run("error", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Error, time.Millisecond)
		gl.Trace(context.Background(), begin, stockUpdate, errors.New("deadlock"))
		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.ErrorLevel, recorded.All()[0].Level)
	})

	t.Run("not found ignored", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Error, time.Millisecond)
		gl.Trace(context.Background(), begin, stockUpdate, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("not found logged when asked", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Error, time.Millisecond, WithIgnoreRecordNotFoundError(false))
		gl.Trace(context.Background(), begin, stockUpdate, gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("slow", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Warn, 300*time.Millisecond, WithSlowThreshold(100*time.Millisecond))
		gl.Trace(context.Background(), begin, stockUpdate, nil)
		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, zapcore.WarnLevel, recorded.All()[0].Level)
		assert.Equal(t, "slow sql", recorded.All()[0].Message)
	})

	t.Run("fast query at warn is skipped without rendering", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Warn, time.Millisecond)
		rendered := false
		gl.Trace(context.Background(), begin, func() (string, int64) {
			rendered = true
			return "SELECT 1", 0
		}, nil)
		assert.False(t, rendered)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("silent", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Silent, time.Second)
		gl.Trace(context.Background(), begin, stockUpdate, errors.New("x"))
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("correlation fields", func(t *testing.T) {
		gl, recorded, begin := newObservedGormLogger(gormlogger.Info, time.Millisecond)
		ctx := WithCheckoutID(WithRequestID(context.Background(), "req-1"), "co-3")
		gl.Trace(ctx, begin, stockUpdate, nil)
		fields := fieldMap(recorded.All()[0])
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "co-3", fields["checkout_id"])
		assert.Contains(t, fields["sql"], "stock_ledgers")
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)
	quiet := gl.LogMode(gormlogger.Silent).(*GormLogger)
	assert.Equal(t, gormlogger.Silent, quiet.logLevel)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)
	ctx := context.Background()

	gl.Info(ctx, "migrated %d tables", 10)
	gl.Warn(ctx, "slow %s", "pool")
	gl.Error(ctx, "lost %s", "connection")

	require.Equal(t, 2, recorded.Len())
	assert.Equal(t, "slow pool", recorded.All()[0].Message)
	assert.Equal(t, "lost connection", recorded.All()[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"unknown": gormlogger.Warn,
		"":        gormlogger.Warn,
	}
	for in, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(in), in)
	}
}
