package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// CatalogClientConfig tunes the catalog client and its breaker
type CatalogClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing
	OpenTimeout time.Duration
}

type variantDTO struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	IsAvailable     bool            `json:"is_available"`
}

type variantGroupDTO struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	SelectionMode string       `json:"selection_mode"`
	IsRequired    bool         `json:"is_required"`
	MinSelections int          `json:"min_selections"`
	MaxSelections int          `json:"max_selections"`
	Variants      []variantDTO `json:"variants"`
}

type productDTO struct {
	ID            uuid.UUID         `json:"id"`
	BusinessID    uuid.UUID         `json:"business_id"`
	Name          string            `json:"name"`
	Price         decimal.Decimal   `json:"price"`
	Status        string            `json:"status"`
	VariantGroups []variantGroupDTO `json:"variant_groups"`
}

func (d productDTO) toDomain() *catalog.Product {
	p := &catalog.Product{
		ID:            d.ID,
		BusinessID:    d.BusinessID,
		Name:          d.Name,
		Price:         d.Price,
		Status:        catalog.ProductStatus(d.Status),
		VariantGroups: make([]catalog.VariantGroup, len(d.VariantGroups)),
	}
	for i, g := range d.VariantGroups {
		vg := catalog.VariantGroup{
			ID:            g.ID,
			Name:          g.Name,
			SelectionMode: catalog.SelectionMode(g.SelectionMode),
			IsRequired:    g.IsRequired,
			MinSelections: g.MinSelections,
			MaxSelections: g.MaxSelections,
			Variants:      make([]catalog.Variant, len(g.Variants)),
		}
		for j, v := range g.Variants {
			vg.Variants[j] = catalog.Variant{
				ID:              v.ID,
				Name:            v.Name,
				PriceAdjustment: v.PriceAdjustment,
				IsAvailable:     v.IsAvailable,
			}
		}
		p.VariantGroups[i] = vg
	}
	return p
}

// HTTPProductReader reads products from the catalog service behind a circuit breaker
type HTTPProductReader struct {
	http    *httpClient
	breaker *gobreaker.CircuitBreaker[[]productDTO]
	logger  *zap.Logger
}

// NewHTTPProductReader creates a catalog client
func NewHTTPProductReader(cfg CatalogClientConfig, logger *zap.Logger, opts ...ClientOption) *HTTPProductReader {
	r := &HTTPProductReader{
		http:   newHTTPClient("catalog", cfg.BaseURL, cfg.Timeout, opts...),
		logger: logger,
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	r.breaker = gobreaker.NewCircuitBreaker[[]productDTO](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// unknown products and caller cancellations say nothing about catalog health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, shared.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return r
}

// FindByID returns shared.ErrNotFound for unknown products
func (r *HTTPProductReader) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	out, err := r.breaker.Execute(func() ([]productDTO, error) {
		var p productDTO
		if err := r.http.do(ctx, http.MethodGet, "/products/"+id.String(), "", nil, &p); err != nil {
			return nil, err
		}
		return []productDTO{p}, nil
	})
	if err != nil {
		return nil, r.classify(err)
	}
	return out[0].toDomain(), nil
}

// FindByIDs fetches all ids in one batch call
func (r *HTTPProductReader) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	result := make(map[uuid.UUID]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	out, err := r.breaker.Execute(func() ([]productDTO, error) {
		var ps []productDTO
		err := r.http.do(ctx, http.MethodPost, "/products/batch", "", map[string][]uuid.UUID{"ids": ids}, &ps)
		return ps, err
	})
	if err != nil {
		return nil, r.classify(err)
	}
	for _, p := range out {
		result[p.ID] = p.toDomain()
	}
	return result, nil
}

// State exposes the breaker state for health reporting
func (r *HTTPProductReader) State() gobreaker.State {
	return r.breaker.State()
}

func (r *HTTPProductReader) classify(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("catalog: %w: %v", ErrUnavailable, err)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ErrNotFound
	}
	return err
}

var _ catalog.ProductReader = (*HTTPProductReader)(nil)
