package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Checkout     CheckoutConfig
	Reservation  ReservationConfig
	Catalog      CatalogConfig
	Integrations IntegrationsConfig
	Storage      StorageConfig
	Telemetry    TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the redis client
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds the settings needed to verify access tokens issued by the identity service
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// CheckoutConfig holds checkout orchestration settings
type CheckoutConfig struct {
	AllOrNothing   bool          // Reject partial multi-business fulfillment
	ReserveTimeout time.Duration // Bound on a single InventoryGate call
	TaxTimeout     time.Duration // Bound on tax rule lookup
	PersistTimeout time.Duration // Bound on order persistence
	PaymentTimeout time.Duration // Bound on payment authorization
	ReservationTTL time.Duration // How long a reservation holds stock
	SessionTTL     time.Duration // How long an awaiting checkout accepts a follow-up
	Currency       string
	IdempotencyTTL time.Duration
}

// ReservationConfig holds reservation expiry sweeper settings
type ReservationConfig struct {
	CheckInterval      time.Duration // How often to check for expired reservations
	AutoReleaseEnabled bool          // Whether to auto-release expired reservations
	BatchSize          int
}

// CatalogConfig selects and tunes the catalog collaborator
type CatalogConfig struct {
	Mode               string // db or http
	BaseURL            string
	Timeout            time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// IntegrationsConfig holds endpoints of external collaborators
type IntegrationsConfig struct {
	PaymentURL  string // empty = cash on delivery
	WalletURL   string
	ShippingURL string
	Timeout     time.Duration
}

// StorageConfig selects backing stores
type StorageConfig struct {
	Inventory    string        // db or memory
	GuestCart    string        // redis or memory
	GuestCartTTL time.Duration // Idle lifetime of a guest cart
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool    // Enable database query tracing (otelgorm)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CHECKOUT_ prefix (e.g., CHECKOUT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CHECKOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Checkout: CheckoutConfig{
			AllOrNothing:   v.GetBool("checkout.all_or_nothing"),
			ReserveTimeout: v.GetDuration("checkout.reserve_timeout"),
			TaxTimeout:     v.GetDuration("checkout.tax_timeout"),
			PersistTimeout: v.GetDuration("checkout.persist_timeout"),
			PaymentTimeout: v.GetDuration("checkout.payment_timeout"),
			ReservationTTL: v.GetDuration("checkout.reservation_ttl"),
			SessionTTL:     v.GetDuration("checkout.session_ttl"),
			Currency:       v.GetString("checkout.currency"),
			IdempotencyTTL: v.GetDuration("checkout.idempotency_ttl"),
		},
		Reservation: ReservationConfig{
			CheckInterval:      v.GetDuration("reservation.check_interval"),
			AutoReleaseEnabled: v.GetBool("reservation.auto_release_enabled"),
			BatchSize:          v.GetInt("reservation.batch_size"),
		},
		Catalog: CatalogConfig{
			Mode:               v.GetString("catalog.mode"),
			BaseURL:            v.GetString("catalog.base_url"),
			Timeout:            v.GetDuration("catalog.timeout"),
			BreakerMaxFailures: v.GetUint32("catalog.breaker_max_failures"),
			BreakerOpenTimeout: v.GetDuration("catalog.breaker_open_timeout"),
		},
		Integrations: IntegrationsConfig{
			PaymentURL:  v.GetString("integrations.payment_url"),
			WalletURL:   v.GetString("integrations.wallet_url"),
			ShippingURL: v.GetString("integrations.shipping_url"),
			Timeout:     v.GetDuration("integrations.timeout"),
		},
		Storage: StorageConfig{
			Inventory:    v.GetString("storage.inventory"),
			GuestCart:    v.GetString("storage.guest_cart"),
			GuestCartTTL: v.GetDuration("storage.guest_cart_ttl"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	// Booleans that default to true need an explicit IsSet check
	if !v.IsSet("reservation.auto_release_enabled") {
		cfg.Reservation.AutoReleaseEnabled = true
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "checkout-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "checkout"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "erp-backend"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Checkout.ReserveTimeout == 0 {
		cfg.Checkout.ReserveTimeout = 3 * time.Second
	}
	if cfg.Checkout.TaxTimeout == 0 {
		cfg.Checkout.TaxTimeout = 2 * time.Second
	}
	if cfg.Checkout.PersistTimeout == 0 {
		cfg.Checkout.PersistTimeout = 5 * time.Second
	}
	if cfg.Checkout.PaymentTimeout == 0 {
		cfg.Checkout.PaymentTimeout = 10 * time.Second
	}
	if cfg.Checkout.ReservationTTL == 0 {
		cfg.Checkout.ReservationTTL = 15 * time.Minute
	}
	if cfg.Checkout.SessionTTL == 0 {
		cfg.Checkout.SessionTTL = cfg.Checkout.ReservationTTL
	}
	if cfg.Checkout.Currency == "" {
		cfg.Checkout.Currency = valueobject.DefaultCurrency
	}
	if cfg.Checkout.IdempotencyTTL == 0 {
		cfg.Checkout.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Reservation.CheckInterval == 0 {
		cfg.Reservation.CheckInterval = time.Minute
	}
	if cfg.Reservation.BatchSize == 0 {
		cfg.Reservation.BatchSize = 200
	}
	if cfg.Catalog.Mode == "" {
		cfg.Catalog.Mode = "db"
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 2 * time.Second
	}
	if cfg.Catalog.BreakerMaxFailures == 0 {
		cfg.Catalog.BreakerMaxFailures = 5
	}
	if cfg.Catalog.BreakerOpenTimeout == 0 {
		cfg.Catalog.BreakerOpenTimeout = 30 * time.Second
	}
	if cfg.Integrations.Timeout == 0 {
		cfg.Integrations.Timeout = 5 * time.Second
	}
	if cfg.Storage.Inventory == "" {
		cfg.Storage.Inventory = "db"
	}
	if cfg.Storage.GuestCart == "" {
		cfg.Storage.GuestCart = "redis"
	}
	if cfg.Storage.GuestCartTTL == 0 {
		cfg.Storage.GuestCartTTL = 30 * 24 * time.Hour
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Checkout.SessionTTL > c.Checkout.ReservationTTL {
		return fmt.Errorf("checkout.session_ttl (%s) cannot exceed checkout.reservation_ttl (%s)",
			c.Checkout.SessionTTL, c.Checkout.ReservationTTL)
	}
	if len(c.Checkout.Currency) != 3 {
		return fmt.Errorf("checkout.currency must be an ISO 4217 code, got %q", c.Checkout.Currency)
	}

	switch c.Catalog.Mode {
	case "db":
	case "http":
		if c.Catalog.BaseURL == "" {
			return fmt.Errorf("catalog.base_url is required when catalog.mode is http")
		}
	default:
		return fmt.Errorf("catalog.mode must be db or http, got %q", c.Catalog.Mode)
	}
	if c.Storage.Inventory != "db" && c.Storage.Inventory != "memory" {
		return fmt.Errorf("storage.inventory must be db or memory, got %q", c.Storage.Inventory)
	}
	if c.Storage.GuestCart != "redis" && c.Storage.GuestCart != "memory" {
		return fmt.Errorf("storage.guest_cart must be redis or memory, got %q", c.Storage.GuestCart)
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Storage.Inventory == "memory" {
			return fmt.Errorf("storage.inventory cannot be 'memory' in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
