package tax

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// MockTaxRepository is a mock implementation of tax.TaxRepository
type MockTaxRepository struct {
	mock.Mock
}

func (m *MockTaxRepository) SaveTaxType(ctx context.Context, t *tax.TaxType) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTaxRepository) FindTaxType(ctx context.Context, id uuid.UUID) (*tax.TaxType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxType), args.Error(1)
}

func (m *MockTaxRepository) FindTaxTypesByIDs(ctx context.Context, ids []uuid.UUID) ([]tax.TaxType, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tax.TaxType), args.Error(1)
}

func (m *MockTaxRepository) FindTaxTypesByBusiness(ctx context.Context, businessID uuid.UUID) ([]tax.TaxType, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tax.TaxType), args.Error(1)
}

func (m *MockTaxRepository) AssignToProduct(ctx context.Context, pt *tax.ProductTax) error {
	return m.Called(ctx, pt).Error(0)
}

func (m *MockTaxRepository) FindProductTaxes(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]tax.ProductTax, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]tax.ProductTax), args.Error(1)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type taxFixture struct {
	business uuid.UUID
	product  uuid.UUID
	iva      *tax.TaxType
	delivery *tax.TaxType
	repo     *MockTaxRepository
}

func newTaxFixture(t *testing.T) *taxFixture {
	t.Helper()
	f := &taxFixture{business: uuid.New(), product: uuid.New(), repo: new(MockTaxRepository)}
	var err error
	f.iva, err = tax.NewTaxType(f.business, "IVA", "IVA", tax.RateKindPercentage, d("0.16"), decimal.Zero)
	require.NoError(t, err)
	f.delivery, err = tax.NewTaxType(f.business, "IVA envio", "IVAE", tax.RateKindPercentage, d("0.16"), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, f.delivery.SetAppliesTo(false, true, false))
	f.delivery.IsDefault = true
	return f
}

func TestTaxService_ComputeForLines(t *testing.T) {
	f := newTaxFixture(t)
	f.repo.On("FindProductTaxes", mock.Anything, []uuid.UUID{f.product}).
		Return(map[uuid.UUID][]tax.ProductTax{f.product: {{TaxTypeID: f.iva.ID}}}, nil)
	f.repo.On("FindTaxTypesByIDs", mock.Anything, []uuid.UUID{f.iva.ID}).Return([]tax.TaxType{*f.iva}, nil)
	f.repo.On("FindTaxTypesByBusiness", mock.Anything, f.business).Return([]tax.TaxType{*f.iva, *f.delivery}, nil)

	svc := NewTaxService(f.repo, time.Second, zap.NewNop())
	l1 := LineInput{LineID: uuid.New(), ProductID: f.product, Subtotal: d("100")}
	l2 := LineInput{LineID: uuid.New(), ProductID: f.product, Subtotal: d("50.05")}

	comp := svc.ComputeForLines(context.Background(), f.business, []LineInput{l1, l2}, d("30"), d("10"))
	require.Nil(t, comp.Degraded)
	assert.True(t, d("16").Equal(comp.Lines[l1.LineID].TotalTax))
	assert.True(t, d("8.01").Equal(comp.Lines[l2.LineID].TotalTax), comp.Lines[l2.LineID].TotalTax.String())
	// iva is not a default type and the delivery type does not cover tips
	assert.True(t, d("4.80").Equal(comp.Extras.TotalTax), comp.Extras.TotalTax.String())

	total := comp.Total([]LineInput{l1, l2})
	assert.True(t, d("28.81").Equal(total.TotalTax))
	assert.True(t, total.IsConsistent())
	assert.Len(t, total.Taxes, 3)

	again := svc.ComputeForLines(context.Background(), f.business, []LineInput{l1, l2}, d("30"), d("10"))
	assert.Equal(t, comp, again)
}

func TestTaxService_ComputeForLines_Degrades(t *testing.T) {
	f := newTaxFixture(t)
	f.repo.On("FindProductTaxes", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	svc := NewTaxService(f.repo, time.Second, zap.NewNop())
	line := LineInput{LineID: uuid.New(), ProductID: f.product, Subtotal: d("100")}
	comp := svc.ComputeForLines(context.Background(), f.business, []LineInput{line}, d("30"), decimal.Zero)

	var degraded *checkout.TaxDegradedError
	require.ErrorAs(t, comp.Degraded, &degraded)
	assert.Equal(t, f.business, degraded.BusinessID)
	assert.Empty(t, comp.Lines[line.LineID].Taxes)
	assert.True(t, comp.Total([]LineInput{line}).TotalTax.IsZero())
}

func TestTaxService_ComputeForLines_UnknownTypeDegrades(t *testing.T) {
	f := newTaxFixture(t)
	ghost := uuid.New()
	other := uuid.New()
	f.repo.On("FindProductTaxes", mock.Anything, mock.Anything).
		Return(map[uuid.UUID][]tax.ProductTax{
			f.product: {{TaxTypeID: ghost}},
			other:     {{TaxTypeID: f.iva.ID}},
		}, nil)
	f.repo.On("FindTaxTypesByIDs", mock.Anything, mock.Anything).Return([]tax.TaxType{*f.iva}, nil)
	f.repo.On("FindTaxTypesByBusiness", mock.Anything, f.business).Return([]tax.TaxType{}, nil)

	core, logs := observer.New(zap.WarnLevel)
	svc := NewTaxService(f.repo, time.Second, zap.New(core))
	line := LineInput{LineID: uuid.New(), ProductID: f.product, Subtotal: d("100")}
	taxed := LineInput{LineID: uuid.New(), ProductID: other, Subtotal: d("100")}
	comp := svc.ComputeForLines(context.Background(), f.business, []LineInput{line, taxed}, decimal.Zero, decimal.Zero)

	var degraded *checkout.TaxDegradedError
	require.ErrorAs(t, comp.Degraded, &degraded)
	assert.ErrorIs(t, comp.Degraded, tax.ErrUnknownTaxType)
	assert.Contains(t, comp.Degraded.Error(), ghost.String())
	assert.Empty(t, comp.Lines[line.LineID].Taxes)
	// known types on other lines still apply
	assert.True(t, d("16").Equal(comp.Lines[taxed.LineID].TotalTax))
	assert.Equal(t, 1, logs.FilterMessageSnippet("unknown tax types").Len())
}

func TestTaxService_Preview(t *testing.T) {
	f := newTaxFixture(t)
	f.repo.On("FindProductTaxes", mock.Anything, mock.Anything).
		Return(map[uuid.UUID][]tax.ProductTax{f.product: {{TaxTypeID: f.iva.ID}}}, nil)
	f.repo.On("FindTaxTypesByIDs", mock.Anything, mock.Anything).Return([]tax.TaxType{*f.iva}, nil)
	f.repo.On("FindTaxTypesByBusiness", mock.Anything, f.business).Return([]tax.TaxType{}, nil)

	svc := NewTaxService(f.repo, time.Second, zap.NewNop())
	resp, err := svc.Preview(context.Background(), PreviewRequest{
		BusinessID: f.business,
		Items:      []PreviewItem{{ProductID: f.product, Quantity: 3, UnitPrice: d("12.50")}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.True(t, d("37.50").Equal(resp.Items[0].Subtotal))
	assert.True(t, d("6.00").Equal(resp.TotalTax))
	assert.False(t, resp.Degraded)

	_, err = svc.Preview(context.Background(), PreviewRequest{BusinessID: f.business})
	var ve *checkout.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTaxService_CreateAndAssign(t *testing.T) {
	f := newTaxFixture(t)
	svc := NewTaxService(f.repo, time.Second, zap.NewNop())

	f.repo.On("SaveTaxType", mock.Anything, mock.AnythingOfType("*tax.TaxType")).Return(nil)
	resp, err := svc.CreateTaxType(context.Background(), CreateTaxTypeRequest{
		BusinessID: f.business, Name: "Eco", RateType: "fixed", FixedAmount: ptr(d("2.50")), AppliesToTip: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed", resp.RateType)
	assert.True(t, resp.AppliesToSubtotal)
	assert.True(t, resp.AppliesToTip)

	f.repo.On("FindTaxType", mock.Anything, f.iva.ID).Return(f.iva, nil)
	f.repo.On("AssignToProduct", mock.Anything, mock.AnythingOfType("*tax.ProductTax")).Return(nil)
	pt, err := svc.AssignToProduct(context.Background(), f.product, AssignProductTaxRequest{TaxTypeID: f.iva.ID, DisplayOrder: 1})
	require.NoError(t, err)
	assert.Equal(t, f.product, pt.ProductID)

	missing := uuid.New()
	f.repo.On("FindTaxType", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	_, err = svc.AssignToProduct(context.Background(), f.product, AssignProductTaxRequest{TaxTypeID: missing})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_TAX_TYPE", de.Code)
}

func ptr[T any](v T) *T { return &v }
