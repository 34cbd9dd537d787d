package types

import (
	"github.com/shopspring/decimal"
)

// Paise is an amount in the minor unit of INR. All prices, fees and totals are
// carried as Paise so arithmetic stays exact.
type Paise int64

// Rupees converts a whole rupee amount.
func Rupees(r int64) Paise {
	return Paise(r * 100)
}

// Decimal returns the amount in rupees.
func (p Paise) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// String renders the amount as "₹123.45".
func (p Paise) String() string {
	return "₹" + p.Decimal().StringFixed(2)
}

func MinPaise(a, b Paise) Paise {
	if a < b {
		return a
	}
	return b
}
