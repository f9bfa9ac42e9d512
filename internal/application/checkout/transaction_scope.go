package checkout

import (
	"context"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/order"
)

// TransactionScope runs order placement atomically.
// All repositories handed to fn share one database transaction.
type TransactionScope interface {
	// Execute runs fn within a transaction; an error rolls everything back
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories touched by placement
type TransactionalRepositories interface {
	Orders() order.OrderRepository
	Ledger() inventory.StockLedger
	Carts() cart.CartRepository
	Sessions() checkout.SessionRepository
}

// NoOpTransactionScope hands out plain repositories without a transaction.
// It backs the in-memory storage mode and tests.
type NoOpTransactionScope struct {
	orders   order.OrderRepository
	ledger   inventory.StockLedger
	carts    cart.CartRepository
	sessions checkout.SessionRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orders order.OrderRepository,
	ledger inventory.StockLedger,
	carts cart.CartRepository,
	sessions checkout.SessionRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orders:   orders,
		ledger:   ledger,
		carts:    carts,
		sessions: sessions,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Orders returns the order repository
func (s *NoOpTransactionScope) Orders() order.OrderRepository { return s.orders }

// Ledger returns the stock ledger
func (s *NoOpTransactionScope) Ledger() inventory.StockLedger { return s.ledger }

// Carts returns the cart repository
func (s *NoOpTransactionScope) Carts() cart.CartRepository { return s.carts }

// Sessions returns the checkout session repository
func (s *NoOpTransactionScope) Sessions() checkout.SessionRepository { return s.sessions }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
