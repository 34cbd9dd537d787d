package types

// Bill is derived from line items and the applied discount. It is never stored
// on the cart; orders keep a frozen copy.
type Bill struct {
	Subtotal    Paise `json:"subtotal_paise"`
	Discount    Paise `json:"discount_paise"`
	DeliveryFee Paise `json:"delivery_fee_paise"`
	Tax         Paise `json:"tax_paise"`
	Total       Paise `json:"total_paise"`
}
