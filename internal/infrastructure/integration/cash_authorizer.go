package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/checkout/internal/domain/checkout"
)

// CashOnDelivery is the payment method settled by the courier
const CashOnDelivery = "cash"

const cashTokenPrefix = "cod-"

// CashAuthorizer accepts cash on delivery without calling anyone. Money is
// collected later, so the authorization is deferred and voiding is a no-op.
type CashAuthorizer struct{}

// NewCashAuthorizer creates the offline authorizer
func NewCashAuthorizer() *CashAuthorizer { return &CashAuthorizer{} }

// Authorize accepts cash or an unset method and declines anything else
func (CashAuthorizer) Authorize(_ context.Context, req checkout.PaymentRequest) (*checkout.PaymentAuthorization, error) {
	if req.Method != "" && req.Method != CashOnDelivery {
		return nil, &checkout.PaymentDeclinedError{Reason: fmt.Sprintf("payment method %q is not accepted", req.Method)}
	}
	return &checkout.PaymentAuthorization{
		Method:   CashOnDelivery,
		Token:    fmt.Sprintf("%s%s-%s", cashTokenPrefix, req.CheckoutID, req.BusinessID),
		Deferred: true,
	}, nil
}

// Void has nothing to cancel for cash
func (CashAuthorizer) Void(context.Context, string) error { return nil }

// MethodRouter sends cash to the offline authorizer and everything else to
// the payment service. A nil online authorizer declines non-cash methods.
type MethodRouter struct {
	cash   checkout.PaymentAuthorizer
	online checkout.PaymentAuthorizer
}

// NewMethodRouter creates a router over the two authorizers
func NewMethodRouter(online checkout.PaymentAuthorizer) *MethodRouter {
	return &MethodRouter{cash: NewCashAuthorizer(), online: online}
}

// Authorize picks the authorizer for the request's payment method
func (r *MethodRouter) Authorize(ctx context.Context, req checkout.PaymentRequest) (*checkout.PaymentAuthorization, error) {
	if req.Method == "" || req.Method == CashOnDelivery || r.online == nil {
		return r.cash.Authorize(ctx, req)
	}
	return r.online.Authorize(ctx, req)
}

// Void forwards non-cash tokens to the payment service
func (r *MethodRouter) Void(ctx context.Context, token string) error {
	if r.online == nil || strings.HasPrefix(token, cashTokenPrefix) {
		return nil
	}
	return r.online.Void(ctx, token)
}

var (
	_ checkout.PaymentAuthorizer = CashAuthorizer{}
	_ checkout.PaymentAuthorizer = (*MethodRouter)(nil)
)
