package integration

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
)

// HTTPShippingDispatcher hands placed orders to the shipping service
type HTTPShippingDispatcher struct {
	http *httpClient
}

// NewHTTPShippingDispatcher creates a shipping client
func NewHTTPShippingDispatcher(baseURL string, timeout time.Duration, opts ...ClientOption) *HTTPShippingDispatcher {
	return &HTTPShippingDispatcher{http: newHTTPClient("shipping", baseURL, timeout, opts...)}
}

// Dispatch requests a shipment; a 409 means it was already requested
func (s *HTTPShippingDispatcher) Dispatch(ctx context.Context, req checkout.ShipmentRequest) error {
	return ignoreConflict(s.http.do(ctx, http.MethodPost, "/shipments", req.IdempotencyKey, req, nil))
}

func ignoreConflict(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusConflict {
		return nil
	}
	return err
}

var _ checkout.ShippingDispatcher = (*HTTPShippingDispatcher)(nil)
