package types

// LineItem is one cart line. (ProductID, Unit) is the line's identity, so the
// same product in two pack sizes forms two lines.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	UnitPrice Paise  `json:"unit_price_paise"`
	MRP       Paise  `json:"mrp_paise"`
	Quantity  int    `json:"quantity"`
}

// Total is UnitPrice times Quantity.
func (l LineItem) Total() Paise {
	return l.UnitPrice * Paise(l.Quantity)
}

// Matches reports whether the line has the given identity. An empty unit
// matches every pack size of the product.
func (l LineItem) Matches(productID, unit string) bool {
	if l.ProductID != productID {
		return false
	}
	return unit == "" || l.Unit == unit
}

// CloneLineItems returns a copy that shares no backing array with items.
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
