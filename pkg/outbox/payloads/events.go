package payloads

import (
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
)

// OrderPlacedEvent is emitted once per order when it enters the ledger.
type OrderPlacedEvent struct {
	OrderID       string              `json:"orderId" validate:"required"`
	SessionID     string              `json:"sessionId" validate:"required"`
	UserID        *string             `json:"userId,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod" validate:"oneof=COD UPI"`
	PaymentRef    string              `json:"paymentRef,omitempty" validate:"required_if=PaymentMethod UPI"`
	TotalPaise    int64               `json:"totalPaise" validate:"gt=0"`
	ItemCount     int                 `json:"itemCount" validate:"gt=0"`
	Pincode       string              `json:"pincode" validate:"len=6,numeric"`
	ETAMinutes    int                 `json:"etaMinutes" validate:"min=20,max=35"`
	PlacedAt      time.Time           `json:"placedAt" validate:"required"`
}

func (e OrderPlacedEvent) OrderKey() string { return e.OrderID }

// OrderStatusChangedEvent is emitted for every lifecycle step.
type OrderStatusChangedEvent struct {
	OrderID    string            `json:"orderId" validate:"required"`
	From       enums.OrderStatus `json:"from" validate:"required"`
	To         enums.OrderStatus `json:"to" validate:"required,nefield=From"`
	OccurredAt time.Time         `json:"occurredAt" validate:"required"`
}

func (e OrderStatusChangedEvent) OrderKey() string { return e.OrderID }

type OrderCancelledEvent struct {
	OrderID     string    `json:"orderId" validate:"required"`
	Reason      string    `json:"reason" validate:"required"`
	CancelledAt time.Time `json:"cancelledAt" validate:"required"`
}

func (e OrderCancelledEvent) OrderKey() string { return e.OrderID }

type OrderRatedEvent struct {
	OrderID string    `json:"orderId" validate:"required"`
	Stars   int       `json:"stars" validate:"min=1,max=5"`
	Review  string    `json:"review,omitempty"`
	RatedAt time.Time `json:"ratedAt" validate:"required"`
}

func (e OrderRatedEvent) OrderKey() string { return e.OrderID }
