package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkoutEnvKeys lists every variable these tests touch so each case starts clean
var checkoutEnvKeys = []string{
	"CHECKOUT_APP_ENV",
	"CHECKOUT_APP_PORT",
	"CHECKOUT_DATABASE_HOST",
	"CHECKOUT_DATABASE_PASSWORD",
	"CHECKOUT_DATABASE_SSLMODE",
	"CHECKOUT_DATABASE_MAX_OPEN_CONNS",
	"CHECKOUT_DATABASE_MAX_IDLE_CONNS",
	"CHECKOUT_JWT_SECRET",
	"CHECKOUT_CHECKOUT_ALL_OR_NOTHING",
	"CHECKOUT_CHECKOUT_RESERVATION_TTL",
	"CHECKOUT_CHECKOUT_SESSION_TTL",
	"CHECKOUT_CHECKOUT_CURRENCY",
	"CHECKOUT_RESERVATION_AUTO_RELEASE_ENABLED",
	"CHECKOUT_CATALOG_MODE",
	"CHECKOUT_CATALOG_BASE_URL",
	"CHECKOUT_STORAGE_INVENTORY",
	"CHECKOUT_STORAGE_GUEST_CART",
}

func clearCheckoutEnv(t *testing.T) {
	t.Helper()
	for _, k := range checkoutEnvKeys {
		if v, ok := os.LookupEnv(k); ok {
			t.Setenv(k, v) // registers restore
			os.Unsetenv(k)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearCheckoutEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "checkout-service", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "checkout", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.False(t, cfg.Checkout.AllOrNothing)
		assert.Equal(t, 3*time.Second, cfg.Checkout.ReserveTimeout)
		assert.Equal(t, 15*time.Minute, cfg.Checkout.ReservationTTL)
		assert.Equal(t, cfg.Checkout.ReservationTTL, cfg.Checkout.SessionTTL)
		assert.Equal(t, "MXN", cfg.Checkout.Currency)
		assert.True(t, cfg.Reservation.AutoReleaseEnabled)
		assert.Equal(t, time.Minute, cfg.Reservation.CheckInterval)
		assert.Equal(t, "db", cfg.Catalog.Mode)
		assert.Equal(t, "db", cfg.Storage.Inventory)
		assert.Equal(t, "redis", cfg.Storage.GuestCart)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})

	t.Run("loads values from environment variables with CHECKOUT prefix", func(t *testing.T) {
		clearCheckoutEnv(t)
		t.Setenv("CHECKOUT_APP_PORT", "9000")
		t.Setenv("CHECKOUT_DATABASE_HOST", "db.local")
		t.Setenv("CHECKOUT_CHECKOUT_ALL_OR_NOTHING", "true")
		t.Setenv("CHECKOUT_CHECKOUT_RESERVATION_TTL", "30m")
		t.Setenv("CHECKOUT_RESERVATION_AUTO_RELEASE_ENABLED", "false")
		t.Setenv("CHECKOUT_STORAGE_GUEST_CART", "memory")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.True(t, cfg.Checkout.AllOrNothing)
		assert.Equal(t, 30*time.Minute, cfg.Checkout.ReservationTTL)
		assert.False(t, cfg.Reservation.AutoReleaseEnabled)
		assert.Equal(t, "memory", cfg.Storage.GuestCart)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearCheckoutEnv(t)
		t.Setenv("CHECKOUT_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("CHECKOUT_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects a session ttl longer than the reservation ttl", func(t *testing.T) {
		clearCheckoutEnv(t)
		t.Setenv("CHECKOUT_CHECKOUT_RESERVATION_TTL", "5m")
		t.Setenv("CHECKOUT_CHECKOUT_SESSION_TTL", "10m")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session_ttl")
	})

	t.Run("requires base url for http catalog", func(t *testing.T) {
		clearCheckoutEnv(t)
		t.Setenv("CHECKOUT_CATALOG_MODE", "http")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "catalog.base_url")
	})

	t.Run("rejects unknown storage backend", func(t *testing.T) {
		clearCheckoutEnv(t)
		t.Setenv("CHECKOUT_STORAGE_INVENTORY", "etcd")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.inventory")
	})

	t.Run("rejects malformed currency", func(t *testing.T) {
		clearCheckoutEnv(t)
		t.Setenv("CHECKOUT_CHECKOUT_CURRENCY", "PESO")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ISO 4217")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("CHECKOUT_APP_ENV", "production")
		t.Setenv("CHECKOUT_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("CHECKOUT_DATABASE_PASSWORD", "secure-password")
		t.Setenv("CHECKOUT_DATABASE_SSLMODE", "require")
	}

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		clearCheckoutEnv(t)
		setValidProductionBase(t)
		os.Unsetenv("CHECKOUT_JWT_SECRET")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearCheckoutEnv(t)
		setValidProductionBase(t)
		t.Setenv("CHECKOUT_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects in-memory inventory in production", func(t *testing.T) {
		clearCheckoutEnv(t)
		setValidProductionBase(t)
		t.Setenv("CHECKOUT_STORAGE_INVENTORY", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.inventory cannot be 'memory'")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearCheckoutEnv(t)
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "pass%40word%23123")
		assert.Contains(t, dsn, "sslmode=disable")
	})
}
