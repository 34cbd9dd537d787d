// Package pricing turns cart lines and a resolved discount into a bill.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

var (
	// FreeDeliveryThreshold is the discounted subtotal at which delivery is free.
	FreeDeliveryThreshold = types.Rupees(399)
	// DeliveryFee is charged below the threshold.
	DeliveryFee = types.Rupees(15)

	gstRate = decimal.RequireFromString("0.05")
)

// Subtotal sums unit price times quantity over all lines.
func Subtotal(items []types.LineItem) types.Paise {
	var total types.Paise
	for _, item := range items {
		total += item.Total()
	}
	return total
}

// ComputeBill is pure. The discount is used verbatim; callers clamp it to the
// subtotal before passing it in.
func ComputeBill(items []types.LineItem, discount types.Paise) types.Bill {
	subtotal := Subtotal(items)
	discounted := subtotal - discount

	fee := DeliveryFee
	if discounted >= FreeDeliveryThreshold {
		fee = 0
	}

	tax := gst(discounted + fee)

	return types.Bill{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: fee,
		Tax:         tax,
		Total:       discounted + fee + tax,
	}
}

// gst is 5% of base rounded half-up to a whole rupee.
func gst(base types.Paise) types.Paise {
	rupees := base.Decimal().Mul(gstRate).Round(0)
	return types.Paise(rupees.Shift(2).IntPart())
}
