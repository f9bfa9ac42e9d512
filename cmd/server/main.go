package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcart "github.com/erp/checkout/internal/application/cart"
	appcheckout "github.com/erp/checkout/internal/application/checkout"
	appevent "github.com/erp/checkout/internal/application/event"
	appinv "github.com/erp/checkout/internal/application/inventory"
	apporder "github.com/erp/checkout/internal/application/order"
	apptax "github.com/erp/checkout/internal/application/tax"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/auth"
	"github.com/erp/checkout/internal/infrastructure/cache"
	"github.com/erp/checkout/internal/infrastructure/config"
	"github.com/erp/checkout/internal/infrastructure/event"
	"github.com/erp/checkout/internal/infrastructure/integration"
	"github.com/erp/checkout/internal/infrastructure/logger"
	"github.com/erp/checkout/internal/infrastructure/persistence"
	"github.com/erp/checkout/internal/infrastructure/persistence/memory"
	"github.com/erp/checkout/internal/infrastructure/scheduler"
	"github.com/erp/checkout/internal/infrastructure/telemetry"
	"github.com/erp/checkout/internal/interfaces/http/handler"
	"github.com/erp/checkout/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.ConfigFrom(cfg.App, cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting checkout service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry, version), log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	stores, err := cache.NewStores(ctx, cfg.Redis, cfg.Storage, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize stores", zap.Error(err))
	}

	// Repositories
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	taxRepo := persistence.NewGormTaxRepository(db.DB)
	products := productReader(cfg, db, log)

	var ledger inventory.StockLedger
	var scope appcheckout.TransactionScope
	if cfg.Storage.Inventory == "memory" {
		mem := memory.NewStockLedger()
		ledger = mem
		scope = appcheckout.NewNoOpTransactionScope(orderRepo, mem, cartRepo, sessionRepo)
		log.Warn("Using in-memory stock ledger; inventory does not survive restarts")
	} else {
		ledger = persistence.NewGormStockLedger(db.DB)
		scope = persistence.NewGormTransactionScope(db.DB)
	}

	// Event bus and collaborator handlers
	eventBus := event.NewInMemoryEventBus(event.DefaultBusConfig(), log)
	subscribeHandlers(eventBus, cfg.Integrations, stores.Idempotency, log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	taxService := apptax.NewTaxService(taxRepo, cfg.Checkout.TaxTimeout, log)
	cartService := appcart.NewCartService(cartRepo, products, stores.GuestCarts, log)
	guestCartService := appcart.NewGuestCartService(stores.GuestCarts, products)
	orderService := apporder.NewOrderService(orderRepo, log)
	orderService.SetEventBus(eventBus)

	gate := appinv.NewGate(ledger, appinv.GateConfig{
		ReserveTimeout: cfg.Checkout.ReserveTimeout,
		ReservationTTL: cfg.Checkout.ReservationTTL,
	}, log)
	orchestrator := appcheckout.NewOrchestrator(appcheckout.Dependencies{
		Carts:    cartRepo,
		Products: products,
		Sessions: sessionRepo,
		Gate:     gate,
		Taxes:    taxService,
		Payments: paymentAuthorizer(cfg.Integrations),
		Scope:    scope,
		Events:   eventBus,
	}, appcheckout.Config{
		AllOrNothing:   cfg.Checkout.AllOrNothing,
		Currency:       cfg.Checkout.Currency,
		SessionTTL:     cfg.Checkout.SessionTTL,
		PersistTimeout: cfg.Checkout.PersistTimeout,
		PaymentTimeout: cfg.Checkout.PaymentTimeout,
		IdempotencyTTL: cfg.Checkout.IdempotencyTTL,
	}, log)
	orchestrator.SetIdempotencyStore(stores.Idempotency)

	expiration := appinv.NewReservationExpirationService(ledger, eventBus, cfg.Reservation.BatchSize, log)
	sweeper := scheduler.NewSweeper(scheduler.SweeperConfig{
		Interval:   cfg.Reservation.CheckInterval,
		RunOnStart: true,
	}, log,
		scheduler.Task{Name: "release_expired_reservations", Run: func(ctx context.Context) error {
			_, err := expiration.ReleaseExpired(ctx)
			return err
		}},
		scheduler.Task{Name: "abort_stale_checkouts", Run: func(ctx context.Context) error {
			_, err := orchestrator.AbortStale(ctx, cfg.Reservation.BatchSize)
			return err
		}},
	)
	if cfg.Reservation.AutoReleaseEnabled {
		if err := sweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start sweeper", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies", zap.Error(err))
	}

	var revocation auth.RevocationChecker
	if client := stores.Client(); client != nil {
		revocation = auth.NewRedisRevocationList(client, "")
	}

	pingers := map[string]handler.Pinger{"database": db.Ping}
	if client := stores.Client(); client != nil {
		pingers["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	routerCfg := router.Config{
		AllowedOrigins: cfg.HTTP.CORSAllowOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		JWT:            auth.NewJWTService(cfg.JWT),
		Revocation:     revocation,
		Logger:         log,
	}
	if tp.IsEnabled() {
		routerCfg.ServiceName = cfg.Telemetry.ServiceName
	}
	router.NewRouter(engine, routerCfg, router.WithHealth(handler.NewHealthHandler(pingers))).
		Register(
			handler.NewCartHandler(cartService),
			handler.NewGuestCartHandler(guestCartService),
			handler.NewCheckoutHandler(orchestrator),
			handler.NewOrderHandler(orderService),
			handler.NewTaxHandler(taxService),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweeper.IsRunning() {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping sweeper", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error draining event bus", zap.Error(err))
	}
	if err := stores.Close(); err != nil {
		log.Error("Error closing stores", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// productReader selects the catalog collaborator: the shared database or the catalog service
func productReader(cfg *config.Config, db *persistence.Database, log *zap.Logger) catalog.ProductReader {
	if cfg.Catalog.Mode == "http" {
		log.Info("Reading products from catalog service", zap.String("url", cfg.Catalog.BaseURL))
		return integration.NewHTTPProductReader(integration.CatalogClientConfig{
			BaseURL:     cfg.Catalog.BaseURL,
			Timeout:     cfg.Catalog.Timeout,
			MaxFailures: cfg.Catalog.BreakerMaxFailures,
			OpenTimeout: cfg.Catalog.BreakerOpenTimeout,
		}, log)
	}
	return persistence.NewGormProductReader(db.DB)
}

// paymentAuthorizer authorizes cash offline; other methods need the payment service
func paymentAuthorizer(cfg config.IntegrationsConfig) checkout.PaymentAuthorizer {
	var online checkout.PaymentAuthorizer
	if cfg.PaymentURL != "" {
		online = integration.NewHTTPPaymentAuthorizer(cfg.PaymentURL, cfg.Timeout)
	}
	return integration.NewMethodRouter(online)
}

// subscribeHandlers wires the post-placement collaborators. Each delivery is deduplicated by event id.
func subscribeHandlers(bus *event.InMemoryEventBus, cfg config.IntegrationsConfig, store shared.IdempotencyStore, log *zap.Logger) {
	idem := shared.DefaultIdempotencyConfig()
	if cfg.ShippingURL != "" {
		shipping := appevent.NewOrderPlacedShippingHandler(integration.NewHTTPShippingDispatcher(cfg.ShippingURL, cfg.Timeout), log)
		bus.Subscribe(event.NewIdempotentHandler("shipping", shipping, store, idem, log))
	} else {
		log.Warn("Shipping service not configured; placed orders are not dispatched")
	}
	if cfg.WalletURL != "" {
		wallet := appevent.NewWalletCreditHandler(integration.NewHTTPWalletLedger(cfg.WalletURL, cfg.Timeout), log)
		bus.Subscribe(event.NewIdempotentHandler("wallet_credit", wallet, store, idem, log))
	} else {
		log.Warn("Wallet service not configured; wallet credits are not issued")
	}
}
