package router

import (
	"github.com/erp/checkout/internal/infrastructure/auth"
	"github.com/erp/checkout/internal/infrastructure/logger"
	"github.com/erp/checkout/internal/interfaces/http/handler"
	"github.com/erp/checkout/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config holds the middleware settings of the HTTP surface
type Config struct {
	ServiceName    string
	AllowedOrigins []string
	MaxBodyBytes   int64
	JWT            *auth.JWTService
	Revocation     auth.RevocationChecker
	Logger         *zap.Logger
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	config     Config
	health     *handler.HealthHandler
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithHealth serves h at /health, outside the authenticated API
func WithHealth(h *handler.HealthHandler) RouterOption {
	return func(r *Router) {
		r.health = h
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, cfg Config, opts ...RouterOption) *Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		config:     cfg,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup installs the middleware chain and registers all routes with the engine
func (r *Router) Setup() {
	middleware.SetupValidator()

	cfg := r.config
	r.engine.Use(
		logger.Recovery(cfg.Logger),
		logger.GinMiddleware(cfg.Logger),
	)
	if cfg.ServiceName != "" {
		r.engine.Use(middleware.Tracing(cfg.ServiceName))
	}
	r.engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
	if cfg.MaxBodyBytes > 0 {
		r.engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}

	if r.health != nil {
		r.engine.GET("/health", r.health.Check)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	api.Use(
		middleware.JWTAuth(middleware.JWTMiddlewareConfig{
			JWTService: cfg.JWT,
			Revocation: cfg.Revocation,
			Logger:     cfg.Logger,
		}),
		middleware.SpanAttributes(),
	)

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}
