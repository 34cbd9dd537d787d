package orders

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
	"github.com/google/uuid"
)

// OrderView is an order with the read-time fields a tracker needs.
type OrderView struct {
	types.Order
	MinutesLeft int  `json:"minutes_left"`
	CanCancel   bool `json:"can_cancel"`
	CanRate     bool `json:"can_rate"`
}

func NewOrderView(order types.Order, now time.Time) OrderView {
	return OrderView{
		Order:       order,
		MinutesLeft: MinutesLeft(order, now),
		CanCancel:   CanCancel(order) && order.Payment.Method() == codMethod,
		CanRate:     order.Status == deliveredStatus && order.Rating == nil,
	}
}

type snapshot struct {
	Items   []types.LineItem `json:"items"`
	Address types.Address    `json:"address"`
}

func toModel(order types.Order, sessionID string, userID *uuid.UUID) (models.Order, error) {
	raw, err := json.Marshal(snapshot{Items: order.Items, Address: order.Address})
	if err != nil {
		return models.Order{}, fmt.Errorf("encode order snapshot: %w", err)
	}
	var ref *string
	if r := order.Payment.Ref(); r != "" {
		ref = &r
	}
	createdAt := order.CreatedAt.UTC()
	events := make([]models.OrderStatusEvent, 0, len(order.StatusHistory))
	for _, h := range order.StatusHistory {
		events = append(events, models.OrderStatusEvent{
			ID:         uuid.New(),
			OrderID:    order.ID,
			Status:     h.Status,
			OccurredAt: h.Timestamp.UTC(),
		})
	}
	return models.Order{
		ID:               order.ID,
		SessionID:        sessionID,
		UserID:           userID,
		Status:           order.Status,
		PaymentMethod:    order.Payment.Method(),
		PaymentRef:       ref,
		SubtotalPaise:    int64(order.Bill.Subtotal),
		DiscountPaise:    int64(order.Bill.Discount),
		DeliveryFeePaise: int64(order.Bill.DeliveryFee),
		TaxPaise:         int64(order.Bill.Tax),
		TotalPaise:       int64(order.Bill.Total),
		ETAMinutes:       order.ETAMinutes,
		Snapshot:         raw,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
		Events:           events,
	}, nil
}

func toDomain(m models.Order) (types.Order, error) {
	var snap snapshot
	if len(m.Snapshot) > 0 {
		if err := json.Unmarshal(m.Snapshot, &snap); err != nil {
			return types.Order{}, fmt.Errorf("decode order snapshot %s: %w", m.ID, err)
		}
	}
	payment := types.NewCODPayment()
	if m.PaymentMethod == upiMethod {
		ref := ""
		if m.PaymentRef != nil {
			ref = *m.PaymentRef
		}
		p, err := types.NewUPIPayment(ref)
		if err != nil {
			return types.Order{}, fmt.Errorf("order %s: %w", m.ID, err)
		}
		payment = p
	}

	events := append([]models.OrderStatusEvent(nil), m.Events...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.Before(events[j].OccurredAt)
	})
	history := make([]types.StatusUpdate, 0, len(events))
	for _, e := range events {
		history = append(history, types.StatusUpdate{Status: e.Status, Timestamp: e.OccurredAt})
	}

	order := types.Order{
		ID:      m.ID,
		Items:   snap.Items,
		Address: snap.Address,
		Bill: types.Bill{
			Subtotal:    types.Paise(m.SubtotalPaise),
			Discount:    types.Paise(m.DiscountPaise),
			DeliveryFee: types.Paise(m.DeliveryFeePaise),
			Tax:         types.Paise(m.TaxPaise),
			Total:       types.Paise(m.TotalPaise),
		},
		Payment:       payment,
		Status:        m.Status,
		StatusHistory: history,
		ETAMinutes:    m.ETAMinutes,
		CreatedAt:     m.CreatedAt,
	}
	if m.CancelReason != nil {
		order.CancelReason = *m.CancelReason
	}
	if m.Rating != nil {
		r := types.Rating{Stars: *m.Rating}
		if m.Review != nil {
			r.Review = *m.Review
		}
		if m.RatedAt != nil {
			r.RatedAt = *m.RatedAt
		}
		order.Rating = &r
	}
	return order, nil
}
