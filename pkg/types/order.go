package types

import (
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
)

// StatusUpdate is one entry of an order's append-only status history.
type StatusUpdate struct {
	Status    enums.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

// Rating is the customer's feedback on a delivered order.
type Rating struct {
	Stars   int       `json:"stars"`
	Review  string    `json:"review,omitempty"`
	RatedAt time.Time `json:"rated_at"`
}

// Order is a placed order. Items, Address, Bill and Payment are a snapshot
// taken at creation and never change; Status and StatusHistory move only
// through the lifecycle.
type Order struct {
	ID            string            `json:"id"`
	Items         []LineItem        `json:"items"`
	Address       Address           `json:"address"`
	Bill          Bill              `json:"bill"`
	Payment       Payment           `json:"payment"`
	Status        enums.OrderStatus `json:"status"`
	StatusHistory []StatusUpdate    `json:"status_history"`
	ETAMinutes    int               `json:"eta_minutes"`
	CreatedAt     time.Time         `json:"created_at"`
	CancelReason  string            `json:"cancel_reason,omitempty"`
	Rating        *Rating           `json:"rating,omitempty"`
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	out := o
	out.Items = CloneLineItems(o.Items)
	if o.StatusHistory != nil {
		out.StatusHistory = make([]StatusUpdate, len(o.StatusHistory))
		copy(out.StatusHistory, o.StatusHistory)
	}
	if o.Rating != nil {
		r := *o.Rating
		out.Rating = &r
	}
	return out
}
