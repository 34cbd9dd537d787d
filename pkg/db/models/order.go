package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
)

// Order mirrors a placed order for the lifecycle driver and reporting. The
// items and delivery address live in Snapshot and are never rewritten.
type Order struct {
	ID               string              `gorm:"column:id;primaryKey"`
	SessionID        string              `gorm:"column:session_id;not null"`
	UserID           *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	Status           enums.OrderStatus   `gorm:"column:status;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentRef       *string             `gorm:"column:payment_ref"`
	SubtotalPaise    int64               `gorm:"column:subtotal_paise;not null"`
	DiscountPaise    int64               `gorm:"column:discount_paise;not null"`
	DeliveryFeePaise int64               `gorm:"column:delivery_fee_paise;not null"`
	TaxPaise         int64               `gorm:"column:tax_paise;not null"`
	TotalPaise       int64               `gorm:"column:total_paise;not null"`
	ETAMinutes       int                 `gorm:"column:eta_minutes;not null"`
	Snapshot         json.RawMessage     `gorm:"column:snapshot;type:jsonb;not null"`
	CancelReason     *string             `gorm:"column:cancel_reason"`
	Rating           *int                `gorm:"column:rating"`
	Review           *string             `gorm:"column:review"`
	RatedAt          *time.Time          `gorm:"column:rated_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Events []OrderStatusEvent `gorm:"foreignKey:OrderID;references:ID"`
}

// OrderStatusEvent is one append-only row of an order's status history.
type OrderStatusEvent struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    string            `gorm:"column:order_id;not null"`
	Status     enums.OrderStatus `gorm:"column:status;not null"`
	OccurredAt time.Time         `gorm:"column:occurred_at;not null"`
}
