package checkout

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRequest asks for an authorization covering one business order
type PaymentRequest struct {
	CheckoutID uuid.UUID
	BusinessID uuid.UUID
	UserID     uuid.UUID
	Amount     decimal.Decimal
	Currency   string
	Method     string
}

// PaymentAuthorization is the token returned by the payment collaborator
type PaymentAuthorization struct {
	Method string
	Token  string
	// Deferred is true when money is collected later, e.g. cash on delivery
	Deferred bool
}

// PaymentAuthorizer obtains and voids payment authorizations
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, req PaymentRequest) (*PaymentAuthorization, error)
	Void(ctx context.Context, token string) error
}

// WalletCreditRequest credits store credit to a client
type WalletCreditRequest struct {
	IdempotencyKey string
	OrderID        uuid.UUID
	ClientID       uuid.UUID
	BusinessID     uuid.UUID
	Amount         decimal.Decimal
	Currency       string
}

// WalletLedger is the external wallet collaborator
type WalletLedger interface {
	Credit(ctx context.Context, req WalletCreditRequest) error
}

// ShipmentItem is one line handed to shipping
type ShipmentItem struct {
	ProductID uuid.UUID `json:"product_id"`
	BranchID  uuid.UUID `json:"branch_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
}

// ShipmentRequest is sent to the shipping collaborator after placement
type ShipmentRequest struct {
	IdempotencyKey string         `json:"-"`
	OrderID        uuid.UUID      `json:"order_id"`
	OrderNumber    string         `json:"order_number"`
	BusinessID     uuid.UUID      `json:"business_id"`
	ClientID       uuid.UUID      `json:"client_id"`
	Address        string         `json:"address"`
	Items          []ShipmentItem `json:"items"`
}

// ShippingDispatcher is the external shipping collaborator
type ShippingDispatcher interface {
	Dispatch(ctx context.Context, req ShipmentRequest) error
}
