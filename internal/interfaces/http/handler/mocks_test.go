package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appcart "github.com/erp/checkout/internal/application/cart"
	appcheckout "github.com/erp/checkout/internal/application/checkout"
	apporder "github.com/erp/checkout/internal/application/order"
	apptax "github.com/erp/checkout/internal/application/tax"
	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/auth"
	"github.com/erp/checkout/internal/infrastructure/logger"
	"github.com/erp/checkout/internal/interfaces/http/dto"
	"github.com/erp/checkout/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// testRouter mounts h under /api/v1 with claims already authenticated
func testRouter(h registrar, claims *auth.Claims) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinMiddleware(zap.NewNop()))
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.JWTClaimsKey, claims)
			c.Set(middleware.JWTUserIDKey, claims.UserID)
		}
	})
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func userClaims(userID uuid.UUID) *auth.Claims {
	return &auth.Claims{UserID: userID.String(), TokenType: auth.TokenTypeAccess}
}

func doRequest(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"request_id"`
		Details   json.RawMessage `json:"details"`
	} `json:"error"`
	Meta *dto.Meta `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// MockCartService is a mock implementation of CartService
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetCart(ctx context.Context, userID uuid.UUID) (*appcart.CartResponse, error) {
	args := m.Called(ctx, userID)
	return cartResult(args)
}

func (m *MockCartService) AddItem(ctx context.Context, userID uuid.UUID, req appcart.AddItemRequest) (*appcart.CartResponse, error) {
	args := m.Called(ctx, userID, req)
	return cartResult(args)
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, req appcart.UpdateItemRequest) (*appcart.CartResponse, error) {
	args := m.Called(ctx, userID, itemID, req)
	return cartResult(args)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*appcart.CartResponse, error) {
	args := m.Called(ctx, userID, itemID)
	return cartResult(args)
}

func (m *MockCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCartService) MergeGuestCart(ctx context.Context, userID uuid.UUID, sessionID string) (*appcart.MergeResponse, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcart.MergeResponse), args.Error(1)
}

// MockGuestCartService is a mock implementation of GuestCartService
type MockGuestCartService struct {
	mock.Mock
}

func (m *MockGuestCartService) Get(ctx context.Context, sessionID string) (*appcart.CartResponse, error) {
	return cartResult(m.Called(ctx, sessionID))
}

func (m *MockGuestCartService) AddItem(ctx context.Context, sessionID string, req appcart.AddItemRequest) (*appcart.CartResponse, error) {
	return cartResult(m.Called(ctx, sessionID, req))
}

func (m *MockGuestCartService) UpdateItem(ctx context.Context, sessionID string, itemID uuid.UUID, req appcart.UpdateItemRequest) (*appcart.CartResponse, error) {
	return cartResult(m.Called(ctx, sessionID, itemID, req))
}

func (m *MockGuestCartService) RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) (*appcart.CartResponse, error) {
	return cartResult(m.Called(ctx, sessionID, itemID))
}

func (m *MockGuestCartService) Clear(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockGuestCartService) GroupByBusiness(ctx context.Context, sessionID string) ([]appcart.BusinessGroupResponse, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appcart.BusinessGroupResponse), args.Error(1)
}

func cartResult(args mock.Arguments) (*appcart.CartResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcart.CartResponse), args.Error(1)
}

// MockOrchestrator is a mock implementation of CheckoutOrchestrator
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Start(ctx context.Context, userID uuid.UUID, req appcheckout.StartCheckoutRequest, key string) (*appcheckout.Result, error) {
	args := m.Called(ctx, userID, req, key)
	return checkoutResult(args)
}

func (m *MockOrchestrator) Continue(ctx context.Context, userID, checkoutID uuid.UUID, req appcheckout.PrepareOrderRequest) (*appcheckout.Result, error) {
	args := m.Called(ctx, userID, checkoutID, req)
	return checkoutResult(args)
}

func (m *MockOrchestrator) GetSession(ctx context.Context, userID, checkoutID uuid.UUID) (*checkout.Session, error) {
	args := m.Called(ctx, userID, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Session), args.Error(1)
}

func checkoutResult(args mock.Arguments) (*appcheckout.Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appcheckout.Result), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetForClient(ctx context.Context, clientID, orderID uuid.UUID) (*apporder.OrderResponse, error) {
	return orderResult(m.Called(ctx, clientID, orderID))
}

func (m *MockOrderService) GetForBusiness(ctx context.Context, businessID, orderID uuid.UUID) (*apporder.OrderResponse, error) {
	return orderResult(m.Called(ctx, businessID, orderID))
}

func (m *MockOrderService) ListForClient(ctx context.Context, clientID uuid.UUID, filter apporder.ListFilter) (shared.Paginated[apporder.OrderListItemResponse], error) {
	args := m.Called(ctx, clientID, filter)
	return args.Get(0).(shared.Paginated[apporder.OrderListItemResponse]), args.Error(1)
}

func (m *MockOrderService) ListForBusiness(ctx context.Context, businessID uuid.UUID, filter apporder.ListFilter) (shared.Paginated[apporder.OrderListItemResponse], error) {
	args := m.Called(ctx, businessID, filter)
	return args.Get(0).(shared.Paginated[apporder.OrderListItemResponse]), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, businessID, orderID uuid.UUID, req apporder.UpdateStatusRequest) (*apporder.OrderResponse, error) {
	return orderResult(m.Called(ctx, businessID, orderID, req))
}

func (m *MockOrderService) CancelByClient(ctx context.Context, clientID, orderID uuid.UUID, req apporder.CancelRequest) (*apporder.OrderResponse, error) {
	return orderResult(m.Called(ctx, clientID, orderID, req))
}

func orderResult(args mock.Arguments) (*apporder.OrderResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apporder.OrderResponse), args.Error(1)
}

// MockTaxService is a mock implementation of TaxService
type MockTaxService struct {
	mock.Mock
}

func (m *MockTaxService) Preview(ctx context.Context, req apptax.PreviewRequest) (*apptax.PreviewResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apptax.PreviewResponse), args.Error(1)
}

func (m *MockTaxService) CreateTaxType(ctx context.Context, req apptax.CreateTaxTypeRequest) (*apptax.TaxTypeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apptax.TaxTypeResponse), args.Error(1)
}

func (m *MockTaxService) ListTaxTypes(ctx context.Context, businessID uuid.UUID) ([]apptax.TaxTypeResponse, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apptax.TaxTypeResponse), args.Error(1)
}

func (m *MockTaxService) AssignToProduct(ctx context.Context, productID uuid.UUID, req apptax.AssignProductTaxRequest) (*apptax.ProductTaxResponse, error) {
	args := m.Called(ctx, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apptax.ProductTaxResponse), args.Error(1)
}

func (m *MockTaxService) ListProductTaxes(ctx context.Context, productID uuid.UUID) ([]apptax.ProductTaxResponse, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apptax.ProductTaxResponse), args.Error(1)
}

var (
	_ CartService          = (*MockCartService)(nil)
	_ GuestCartService     = (*MockGuestCartService)(nil)
	_ CheckoutOrchestrator = (*MockOrchestrator)(nil)
	_ OrderService         = (*MockOrderService)(nil)
	_ TaxService           = (*MockTaxService)(nil)
)
