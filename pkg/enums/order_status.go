package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the customer-facing lifecycle status of an order. The string
// values are part of the public API and must not change.
type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "PLACED"
	OrderStatusPacked         OrderStatus = "PACKED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusArriving       OrderStatus = "ARRIVING"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusPacked,
	OrderStatusOutForDelivery,
	OrderStatusArriving,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == strings.ToUpper(strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// ActiveOrderStatuses lists the statuses the lifecycle driver still advances.
func ActiveOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPlaced,
		OrderStatusPacked,
		OrderStatusOutForDelivery,
		OrderStatusArriving,
	}
}
