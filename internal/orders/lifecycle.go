package orders

import (
	"math"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

type transition struct {
	next  enums.OrderStatus
	after time.Duration
}

// Elapsed time since creation at which each status advances.
var transitions = map[enums.OrderStatus]transition{
	enums.OrderStatusPlaced:         {next: enums.OrderStatusPacked, after: 5 * time.Minute},
	enums.OrderStatusPacked:         {next: enums.OrderStatusOutForDelivery, after: 10 * time.Minute},
	enums.OrderStatusOutForDelivery: {next: enums.OrderStatusArriving, after: 25 * time.Minute},
	enums.OrderStatusArriving:       {next: enums.OrderStatusDelivered, after: 30 * time.Minute},
}

// NextStatus returns the status order should move to at now, if any. It looks
// one step ahead only.
func NextStatus(order types.Order, now time.Time) (enums.OrderStatus, bool) {
	t, ok := transitions[order.Status]
	if !ok {
		return "", false
	}
	if now.Sub(order.CreatedAt) < t.after {
		return "", false
	}
	return t.next, true
}

// DueSteps applies NextStatus until the order is stable and returns every
// status passed through, in order.
func DueSteps(order types.Order, now time.Time) []enums.OrderStatus {
	var steps []enums.OrderStatus
	for {
		next, ok := NextStatus(order, now)
		if !ok {
			return steps
		}
		steps = append(steps, next)
		order.Status = next
	}
}

func CanCancel(order types.Order) bool {
	return order.Status == enums.OrderStatusPlaced
}

// Cancel returns the cancelled order. changed is false when the order was
// already cancelled.
func Cancel(order types.Order, now time.Time) (types.Order, bool, error) {
	if order.Status == enums.OrderStatusCancelled {
		return order, false, nil
	}
	if !CanCancel(order) {
		return order, false, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{"order_id": order.ID, "status": order.Status})
	}
	out := order.Clone()
	out.Status = enums.OrderStatusCancelled
	out.StatusHistory = append(out.StatusHistory, types.StatusUpdate{Status: enums.OrderStatusCancelled, Timestamp: now})
	return out, true, nil
}

// MinutesLeft is max(0, ceil((createdAt + eta - now) / 1m)).
func MinutesLeft(order types.Order, now time.Time) int {
	eta := order.CreatedAt.Add(time.Duration(order.ETAMinutes) * time.Minute)
	remaining := eta.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}
