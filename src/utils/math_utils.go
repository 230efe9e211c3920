package utils

import "github.com/shopspring/decimal"

// RoundMoney rounds to grosz precision (2 decimal places), ties away from zero.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// RoundRate rounds an exchange rate to 4 decimal places.
func RoundRate(v decimal.Decimal) decimal.Decimal {
	return v.Round(4)
}

// RoundWholePLN rounds to whole zloty, ties away from zero, as the
// Ordynacja Podatkowa requires for final tax figures.
func RoundWholePLN(v decimal.Decimal) decimal.Decimal {
	return v.Round(0)
}

// ClampToZero returns zero for negative values, v otherwise.
func ClampToZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// MinDecimal returns the smaller of two decimals.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
