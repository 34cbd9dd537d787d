package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/internal/cart"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sessionStore is the slice of cart.Store the order service drives.
type sessionStore interface {
	Load(ctx context.Context, sessionID string) (cart.State, error)
	Update(ctx context.Context, sessionID string, plan func(cart.State) ([]cart.Intent, error)) (cart.State, error)
}

// Service owns order placement and everything that happens to an order afterwards.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (types.Order, error)
	Cancel(ctx context.Context, sessionID, orderID string, input CancelInput) (OrderView, error)
	Rate(ctx context.Context, sessionID, orderID string, input RateInput) (OrderView, error)
	List(ctx context.Context, sessionID string) ([]OrderView, error)
	Get(ctx context.Context, sessionID, orderID string) (OrderView, error)
	AdvanceDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// PlaceInput carries the session owning the order and the draft to materialize.
type PlaceInput struct {
	SessionID string
	UserID    *uuid.UUID
	Draft     Draft
}

type RateInput struct {
	Stars  int    `json:"stars" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=1000"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outbox.Emitter
	store  sessionStore
	logg   *logger.Logger
	now    func() time.Time
	rnd    Rand
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, store sessionStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: emitter,
		store:  store,
		logg:   logg,
		now:    time.Now,
		rnd:    globalRand{},
	}, nil
}

// Place materializes the draft and records it in the ledger. Only after the
// ledger commits is the order moved into the session's history and the cart
// cleared, so a failed commit leaves the session untouched.
func (s *service) Place(ctx context.Context, input PlaceInput) (types.Order, error) {
	order, err := NewOrder(input.Draft, s.now().UTC(), s.rnd)
	if err != nil {
		return types.Order{}, err
	}
	record, err := toModel(order, input.SessionID, input.UserID)
	if err != nil {
		return types.Order{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order")
		}
		if err := s.outbox.Emit(ctx, tx, placedEvent(order, input)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order placed event")
		}
		return nil
	})
	if err != nil {
		return types.Order{}, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithSessionID(ctx, input.SessionID), order.ID)
	s.syncSession(ctx, input.SessionID, cart.PlaceOrder{Order: order})
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payment_method": order.Payment.Method(),
		"total_paise":    int64(order.Bill.Total),
		"eta_minutes":    order.ETAMinutes,
	})
	s.logg.Info(ctx, "order placed")
	return order, nil
}

// Cancel cancels a cash-on-delivery order that has not been packed yet. The
// ledger decides whether the cancel window is still open.
func (s *service) Cancel(ctx context.Context, sessionID, orderID string, input CancelInput) (OrderView, error) {
	reason, err := resolveReason(input)
	if err != nil {
		return OrderView{}, err
	}
	now := s.now().UTC()

	order, err := s.lookup(ctx, sessionID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if order.Payment.Method() != enums.PaymentMethodCOD {
		return OrderView{}, pkgerrors.New(pkgerrors.CodeStateConflict, "only cash on delivery orders can be cancelled").
			WithDetails(map[string]any{"order_id": orderID, "payment_method": order.Payment.Method()})
	}
	cancelled, changed, err := Cancel(order, now)
	if err != nil {
		return OrderView{}, err
	}
	if !changed {
		return NewOrderView(cancelled, now), nil
	}
	cancelled.CancelReason = reason

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SaveCancellation(ctx, orderID, reason, now); err != nil {
			return ledgerError(err, orderID, "order can no longer be cancelled", "record cancellation")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{SessionID: sessionID},
			Data:          payloads.OrderCancelledEvent{OrderID: orderID, Reason: reason, CancelledAt: now},
			OccurredAt:    now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order cancelled event")
		}
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithSessionID(ctx, sessionID), orderID)
	s.syncSession(ctx, sessionID, cart.UpdateOrderStatus{
		OrderID: orderID,
		Status:  enums.OrderStatusCancelled,
		At:      now,
		Reason:  reason,
	})
	s.logg.Info(s.logg.WithField(ctx, "reason", reason), "order cancelled")
	return NewOrderView(cancelled, now), nil
}

// Rate records the customer's rating on a delivered order. An order is rated once.
func (s *service) Rate(ctx context.Context, sessionID, orderID string, input RateInput) (OrderView, error) {
	if input.Stars < 1 || input.Stars > 5 {
		return OrderView{}, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"field": "stars"})
	}
	now := s.now().UTC()
	rating := types.Rating{Stars: input.Stars, Review: strings.TrimSpace(input.Review), RatedAt: now}

	order, err := s.lookup(ctx, sessionID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	if order.Status != enums.OrderStatusDelivered {
		return OrderView{}, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be rated").
			WithDetails(map[string]any{"order_id": orderID, "status": order.Status})
	}
	if order.Rating != nil {
		return OrderView{}, alreadyRated(orderID)
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).SaveRating(ctx, orderID, rating); err != nil {
			if errors.Is(err, ErrStatusChanged) {
				return alreadyRated(orderID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rating")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderRated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{SessionID: sessionID},
			Data:          payloads.OrderRatedEvent{OrderID: orderID, Stars: rating.Stars, Review: rating.Review, RatedAt: now},
			OccurredAt:    now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order rated event")
		}
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	ctx = s.logg.WithOrderID(s.logg.WithSessionID(ctx, sessionID), orderID)
	s.syncSession(ctx, sessionID, cart.RateOrder{OrderID: orderID, Rating: rating})
	order.Rating = &rating
	return NewOrderView(order, now), nil
}

// List returns the session's orders, newest first. When the session blob has
// expired the ledger is used instead.
func (s *service) List(ctx context.Context, sessionID string) ([]OrderView, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	orders := state.Orders
	if len(orders) == 0 {
		orders, err = s.fromLedger(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, NewOrderView(o, now))
	}
	return views, nil
}

func (s *service) Get(ctx context.Context, sessionID, orderID string) (OrderView, error) {
	order, err := s.lookup(ctx, sessionID, orderID)
	if err != nil {
		return OrderView{}, err
	}
	return NewOrderView(order, s.now().UTC()), nil
}

// lookup finds the order in the session blob, falling back to the ledger once
// the blob has expired.
func (s *service) lookup(ctx context.Context, sessionID, orderID string) (types.Order, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return types.Order{}, err
	}
	if order, ok := state.FindOrder(orderID); ok {
		return order, nil
	}

	record, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Order{}, orderNotFound(orderID)
		}
		return types.Order{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if record.SessionID != sessionID {
		return types.Order{}, orderNotFound(orderID)
	}
	order, err := toDomain(*record)
	if err != nil {
		return types.Order{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode order")
	}
	return order, nil
}

// AdvanceDue moves every active order through the transitions due at now. Each
// step is recorded separately with now as its timestamp, so a late tick still
// produces the full history. It returns the number of steps applied.
func (s *service) AdvanceDue(ctx context.Context, now time.Time, limit int) (int, error) {
	now = now.UTC()
	records, err := s.repo.ListActive(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active orders")
	}

	var (
		applied int
		errs    error
	)
	for _, record := range records {
		order, err := toDomain(record)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		from := order.Status
		for _, to := range DueSteps(order, now) {
			err := s.advance(ctx, record.SessionID, order.ID, from, to, now)
			if errors.Is(err, ErrStatusChanged) {
				break
			}
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("advance order %s to %s: %w", order.ID, to, err))
				break
			}
			applied++
			from = to
		}
	}
	return applied, errs
}

func (s *service) advance(ctx context.Context, sessionID, orderID string, from, to enums.OrderStatus, now time.Time) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).AppendStatus(ctx, orderID, from, to, now); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          payloads.OrderStatusChangedEvent{OrderID: orderID, From: from, To: to, OccurredAt: now},
			OccurredAt:    now,
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return err
	}
	ctx = s.logg.WithOrderID(s.logg.WithSessionID(ctx, sessionID), orderID)
	s.syncSession(ctx, sessionID, cart.UpdateOrderStatus{OrderID: orderID, Status: to, At: now})
	return nil
}

// syncSession mirrors a committed ledger change into the session blob. The
// ledger stays authoritative when this fails, and Get falls back to it.
func (s *service) syncSession(ctx context.Context, sessionID string, intents ...cart.Intent) {
	_, err := s.store.Update(ctx, sessionID, func(cart.State) ([]cart.Intent, error) {
		return intents, nil
	})
	if err != nil {
		s.logg.Error(ctx, "order committed but session not updated", err)
	}
}

func (s *service) fromLedger(ctx context.Context, sessionID string) ([]types.Order, error) {
	records, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	orders := make([]types.Order, 0, len(records))
	for _, record := range records {
		order, err := toDomain(record)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode order")
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func placedEvent(order types.Order, input PlaceInput) outbox.DomainEvent {
	actor := &outbox.ActorRef{SessionID: input.SessionID}
	var userID *string
	if input.UserID != nil {
		id := input.UserID.String()
		userID = &id
		actor.UserID = id
	}
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderPlacedEvent{
			OrderID:       order.ID,
			SessionID:     input.SessionID,
			UserID:        userID,
			PaymentMethod: order.Payment.Method(),
			PaymentRef:    order.Payment.Ref(),
			TotalPaise:    int64(order.Bill.Total),
			ItemCount:     count,
			Pincode:       order.Address.Pincode,
			ETAMinutes:    order.ETAMinutes,
			PlacedAt:      order.CreatedAt,
		},
		OccurredAt: order.CreatedAt,
	}
}

func orderNotFound(orderID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID})
}

func alreadyRated(orderID string) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "order already rated").
		WithDetails(map[string]any{"order_id": orderID})
}

func ledgerError(err error, orderID, conflict, action string) error {
	if errors.Is(err, ErrStatusChanged) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, conflict).
			WithDetails(map[string]any{"order_id": orderID})
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

// DefaultRand returns the locked package-level source.
func DefaultRand() Rand { return globalRand{} }

type globalRand struct{}

func (globalRand) Intn(n int) int { return rand.Intn(n) }
