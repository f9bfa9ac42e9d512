package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10"},
		{"10.015", "10.02"},
		{"10.025", "10.02"},
		{"-2.345", "-2.34"},
		{"37.035", "37.04"},
		{"7", "7"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundMoney(d(tt.in))
			assert.True(t, d(tt.want).Equal(got), got.String())
		})
	}
}

func TestLineTotal(t *testing.T) {
	assert.True(t, d("37.035").Equal(LineTotal(d("12.345"), 3)))
	assert.True(t, LineTotal(d("9.99"), 0).IsZero())
}

func TestHasMoneyPrecision(t *testing.T) {
	assert.True(t, HasMoneyPrecision(d("10")))
	assert.True(t, HasMoneyPrecision(d("10.5")))
	assert.True(t, HasMoneyPrecision(d("10.50")))
	assert.False(t, HasMoneyPrecision(d("10.005")))
	assert.False(t, HasMoneyPrecision(d("-0.001")))
}
