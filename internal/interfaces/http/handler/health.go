package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/erp/checkout/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a dependency is reachable
type Pinger func(ctx context.Context) error

// HealthHandler reports the health of the service dependencies
type HealthHandler struct {
	pingers map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler creates a health handler over the named dependencies
func NewHealthHandler(pingers map[string]Pinger) *HealthHandler {
	return &HealthHandler{pingers: pingers, timeout: 2 * time.Second}
}

// Check pings every dependency
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.pingers))
	for name := range h.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	status, healthy := http.StatusOK, "healthy"
	body := gin.H{}
	for _, name := range names {
		if err := h.pingers[name](ctx); err != nil {
			logger.L(c.Request.Context()).Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			body[name] = "error"
			status, healthy = http.StatusServiceUnavailable, "unhealthy"
			continue
		}
		body[name] = "ok"
	}
	body["status"] = healthy
	body["time"] = time.Now().Format(time.RFC3339)
	c.JSON(status, body)
}
