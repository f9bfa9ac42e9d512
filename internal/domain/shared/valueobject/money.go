package valueobject

import (
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the ISO 4217 code used when none is configured
const DefaultCurrency = "MXN"

// CurrencyPrecision is the number of decimal places money is rounded to
const CurrencyPrecision int32 = 2

// RoundMoney rounds an amount to currency precision, half to even
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(CurrencyPrecision)
}

// LineTotal is unit price times quantity, exact
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// HasMoneyPrecision reports whether amount carries no more decimals than the currency allows
func HasMoneyPrecision(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(CurrencyPrecision))
}
