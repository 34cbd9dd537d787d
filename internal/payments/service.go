package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quickdelivery-backend/internal/cart"
	"github.com/angelmondragon/quickdelivery-backend/internal/orders"
	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
	"github.com/angelmondragon/quickdelivery-backend/pkg/phonepe"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

// abandonAfter is how long an attempt may stay INITIATING before it is taken
// to be left behind by a crashed or failed initiation.
const abandonAfter = 2 * time.Minute

type cartReader interface {
	Load(ctx context.Context, sessionID string) (cart.State, error)
}

type orderPlacer interface {
	Place(ctx context.Context, input orders.PlaceInput) (types.Order, error)
}

// Service chooses between cash on delivery and the asynchronous UPI path.
type Service interface {
	Pay(ctx context.Context, input PayInput) (Outcome, error)
	Pending(ctx context.Context, sessionID string) (PendingPayment, error)
	Confirm(ctx context.Context, sessionID string, redirectStatus enums.GatewayStatus) (Outcome, error)
	Await(ctx context.Context, sessionID string) (Outcome, error)
	Retry(ctx context.Context, sessionID string) (Outcome, error)
	HandleCallback(ctx context.Context, transactionID string, status enums.GatewayStatus) error
}

type PayInput struct {
	SessionID string
	UserID    string
	Method    enums.PaymentMethod
	AddressID string
	Contact   string
}

// Outcome is where a payment stands after a call. Order is set once the order
// exists; Pending is set while a UPI attempt is still open.
type Outcome struct {
	Method  enums.PaymentMethod        `json:"method"`
	Status  enums.PaymentAttemptStatus `json:"status"`
	Order   *types.Order               `json:"order,omitempty"`
	Pending *PendingPayment            `json:"pending,omitempty"`
}

type service struct {
	carts   cartReader
	orders  orderPlacer
	gateway phonepe.Gateway
	pending pendingStore
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger

	interval    time.Duration
	maxAttempts int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewService(carts cartReader, placer orderPlacer, gateway phonepe.Gateway, kv pendingKV, cfg config.PaymentsConfig, m *metrics.PaymentMetrics, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if placer == nil {
		return nil, fmt.Errorf("order placer required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if kv == nil {
		return nil, fmt.Errorf("pending payment store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	attempts := cfg.MaxPollAttempts
	if attempts <= 0 {
		attempts = 40
	}
	ttl := cfg.PendingTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &service{
		carts:       carts,
		orders:      placer,
		gateway:     gateway,
		pending:     pendingStore{kv: kv, ttl: ttl},
		metrics:     m,
		logg:        logg,
		interval:    interval,
		maxAttempts: attempts,
		now:         time.Now,
		sleep:       sleepCtx,
	}, nil
}

// Pay starts payment for the session's cart. COD places the order right away;
// UPI records a pending attempt and returns the gateway URL.
func (s *service) Pay(ctx context.Context, input PayInput) (Outcome, error) {
	userID, err := parseUser(input.UserID)
	if err != nil {
		return Outcome{}, err
	}
	if !input.Method.IsValid() {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]any{"field": "method"})
	}
	state, err := s.carts.Load(ctx, input.SessionID)
	if err != nil {
		return Outcome{}, err
	}
	if len(state.Items) == 0 {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	addr, ok := state.FindAddress(input.AddressID)
	if !ok {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeNotFound, "delivery address not found").
			WithDetails(map[string]any{"address_id": input.AddressID})
	}
	bill := cart.NewView(state).Bill

	ctx = s.logg.WithUserID(s.logg.WithSessionID(ctx, input.SessionID), input.UserID)
	if err := s.checkNoOpenAttempt(ctx, input.SessionID); err != nil {
		return Outcome{}, err
	}
	s.metrics.IncInitiated(string(input.Method))

	if input.Method == enums.PaymentMethodCOD {
		order, err := s.orders.Place(ctx, orders.PlaceInput{
			SessionID: input.SessionID,
			UserID:    &userID,
			Draft: orders.Draft{
				Items:   state.Items,
				Address: addr,
				Bill:    bill,
				Payment: types.NewCODPayment(),
			},
		})
		if err != nil {
			return Outcome{}, err
		}
		// A settled UPI attempt must not be revived by Retry once the cart is gone.
		if err := s.pending.clear(ctx, input.SessionID); err != nil {
			s.logg.Error(ctx, "failed to clear settled payment after cod order", err)
		}
		return Outcome{Method: enums.PaymentMethodCOD, Status: enums.PaymentAttemptSucceeded, Order: &order}, nil
	}

	return s.initiate(ctx, input, state, addr, bill)
}

// checkNoOpenAttempt rejects a new payment while a UPI attempt for the session
// can still succeed at the gateway.
func (s *service) checkNoOpenAttempt(ctx context.Context, sessionID string) error {
	existing, ok, err := s.pending.load(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	switch existing.Status {
	case enums.PaymentAttemptAwaitingConfirmation:
	case enums.PaymentAttemptInitiating:
		if s.abandoned(existing) {
			return s.discard(ctx, existing)
		}
	default:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "a payment is already awaiting confirmation").
		WithDetails(map[string]any{"transaction_id": existing.TransactionID, "status": existing.Status})
}

func (s *service) abandoned(pending PendingPayment) bool {
	return pending.Status == enums.PaymentAttemptInitiating && s.now().Sub(pending.UpdatedAt) >= abandonAfter
}

func (s *service) discard(ctx context.Context, pending PendingPayment) error {
	s.logg.Warn(s.logg.WithField(ctx, "order_ref", pending.OrderRef), "discarding abandoned payment initiation")
	return s.pending.clear(ctx, pending.SessionID)
}

func (s *service) initiate(ctx context.Context, input PayInput, state cart.State, addr types.Address, bill types.Bill) (Outcome, error) {
	now := s.now().UTC()
	pending := PendingPayment{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		OrderRef:  orders.NewOrderID(now, orders.DefaultRand()),
		Status:    enums.PaymentAttemptInitiating,
		Items:     types.CloneLineItems(state.Items),
		Address:   addr,
		Bill:      bill,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.pending.save(ctx, pending); err != nil {
		return Outcome{}, err
	}

	contact := strings.TrimSpace(input.Contact)
	if contact == "" {
		contact = addr.Phone
	}
	init, err := s.gateway.Initiate(ctx, phonepe.InitiateRequest{Amount: bill.Total, OrderRef: pending.OrderRef, Contact: contact})
	if err != nil {
		if clearErr := s.pending.clear(ctx, input.SessionID); clearErr != nil {
			s.logg.Error(ctx, "failed to clear pending payment after initiation error", clearErr)
		}
		if pkgerrors.As(err) != nil {
			return Outcome{}, err
		}
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate upi payment")
	}

	pending.TransactionID = init.TransactionID
	pending.PaymentURL = init.PaymentURL
	pending.RedirectURL = init.RedirectURL
	pending.Status = enums.PaymentAttemptAwaitingConfirmation
	pending.UpdatedAt = s.now().UTC()
	if err := s.pending.save(ctx, pending); err != nil {
		// The customer never sees this payment URL, so drop the attempt rather
		// than leave it INITIATING.
		if clearErr := s.pending.clear(context.WithoutCancel(ctx), input.SessionID); clearErr != nil {
			s.logg.Error(s.logg.WithTransactionID(ctx, pending.TransactionID), "failed to clear pending payment after save error", clearErr)
		}
		return Outcome{}, err
	}

	s.logg.Info(s.logg.WithTransactionID(ctx, pending.TransactionID), "upi payment initiated")
	return Outcome{Method: enums.PaymentMethodUPI, Status: pending.Status, Pending: &pending}, nil
}

func (s *service) Pending(ctx context.Context, sessionID string) (PendingPayment, error) {
	pending, ok, err := s.pending.load(ctx, sessionID)
	if err != nil {
		return PendingPayment{}, err
	}
	if !ok {
		return PendingPayment{}, errNoPending()
	}
	return pending, nil
}

// Confirm handles the gateway redirect. The redirect status is checked against
// the gateway once; a success the gateway has not seen yet stays pending.
func (s *service) Confirm(ctx context.Context, sessionID string, redirectStatus enums.GatewayStatus) (Outcome, error) {
	pending, err := s.openAttempt(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	ctx = s.logg.WithTransactionID(ctx, pending.TransactionID)

	status := s.check(ctx, &pending)
	switch {
	case status == enums.GatewayStatusSuccess:
		return s.finalize(ctx, pending)
	case status == enums.GatewayStatusFailed, redirectStatus == enums.GatewayStatusFailed:
		return s.settle(ctx, pending, enums.PaymentAttemptFailed)
	default:
		pending.Status = enums.PaymentAttemptAwaitingConfirmation
		pending.UpdatedAt = s.now().UTC()
		if err := s.pending.save(ctx, pending); err != nil {
			return Outcome{}, err
		}
		return outcomeFor(pending), nil
	}
}

// Await polls the gateway until it reports a final status, the attempt budget
// runs out, or ctx is cancelled. Settled attempts are returned as they are.
func (s *service) Await(ctx context.Context, sessionID string) (Outcome, error) {
	pending, err := s.openAttempt(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if pending.Status != enums.PaymentAttemptAwaitingConfirmation {
		return outcomeFor(pending), nil
	}
	return s.poll(ctx, pending)
}

// Retry re-runs confirmation for the same transaction. It never starts a new
// payment at the gateway.
func (s *service) Retry(ctx context.Context, sessionID string) (Outcome, error) {
	pending, err := s.openAttempt(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if !pending.Status.Retryable() {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment cannot be retried").
			WithDetails(map[string]any{"status": pending.Status})
	}
	pending.Status = enums.PaymentAttemptAwaitingConfirmation
	pending.UpdatedAt = s.now().UTC()
	if err := s.pending.save(ctx, pending); err != nil {
		return Outcome{}, err
	}
	return s.poll(ctx, pending)
}

// HandleCallback records the gateway's server-to-server notification so the
// next status check resolves.
func (s *service) HandleCallback(ctx context.Context, transactionID string, status enums.GatewayStatus) error {
	if err := s.gateway.Complete(ctx, transactionID, status); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(s.logg.WithTransactionID(ctx, transactionID), "gateway_status", status), "gateway callback recorded")
	return nil
}

func (s *service) poll(ctx context.Context, pending PendingPayment) (Outcome, error) {
	ctx = s.logg.WithTransactionID(s.logg.WithSessionID(ctx, pending.SessionID), pending.TransactionID)
	for attempt := 1; ; attempt++ {
		switch s.check(ctx, &pending) {
		case enums.GatewayStatusSuccess:
			return s.finalize(ctx, pending)
		case enums.GatewayStatusFailed:
			return s.settle(ctx, pending, enums.PaymentAttemptFailed)
		}
		if attempt >= s.maxAttempts {
			return s.settle(ctx, pending, enums.PaymentAttemptTimedOut)
		}
		if err := s.sleep(ctx, s.interval); err != nil {
			if saveErr := s.pending.save(context.WithoutCancel(ctx), pending); saveErr != nil {
				s.logg.Error(ctx, "failed to persist poll progress", saveErr)
			}
			return Outcome{}, pkgerrors.Wrap(pkgerrors.CodePaymentTimeout, err, "payment confirmation interrupted").
				WithDetails(map[string]any{"transaction_id": pending.TransactionID, "attempts": pending.Attempts})
		}
	}
}

// check asks the gateway once. Transport failures count as still pending.
func (s *service) check(ctx context.Context, pending *PendingPayment) enums.GatewayStatus {
	pending.Attempts++
	status, err := s.gateway.CheckStatus(ctx, pending.TransactionID, pending.OrderRef)
	if err != nil {
		s.metrics.IncStatusCheck("error")
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment status check failed; treating as pending")
		return enums.GatewayStatusPending
	}
	s.metrics.IncStatusCheck(string(status))
	return status
}

func (s *service) finalize(ctx context.Context, pending PendingPayment) (Outcome, error) {
	claimed, err := s.pending.claim(ctx, pending.TransactionID)
	if err != nil {
		return Outcome{}, err
	}
	if !claimed {
		return Outcome{}, pkgerrors.New(pkgerrors.CodeConflict, "payment is already being finalized").
			WithDetails(map[string]any{"transaction_id": pending.TransactionID})
	}

	payment, err := types.NewUPIPayment(pending.TransactionID)
	if err != nil {
		return Outcome{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upi payment")
	}
	userID, err := parseUser(pending.UserID)
	if err != nil {
		return Outcome{}, err
	}
	order, err := s.orders.Place(ctx, orders.PlaceInput{
		SessionID: pending.SessionID,
		UserID:    &userID,
		Draft: orders.Draft{
			Items:   pending.Items,
			Address: pending.Address,
			Bill:    pending.Bill,
			Payment: payment,
		},
	})
	if err != nil {
		if relErr := s.pending.release(ctx, pending.TransactionID); relErr != nil {
			s.logg.Error(ctx, "failed to release payment claim", relErr)
		}
		return Outcome{}, err
	}
	if err := s.pending.clear(ctx, pending.SessionID); err != nil {
		s.logg.Error(ctx, "failed to clear pending payment", err)
	}
	s.metrics.IncOutcome(string(enums.PaymentAttemptSucceeded))
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "upi payment confirmed")
	return Outcome{Method: enums.PaymentMethodUPI, Status: enums.PaymentAttemptSucceeded, Order: &order}, nil
}

func (s *service) settle(ctx context.Context, pending PendingPayment, status enums.PaymentAttemptStatus) (Outcome, error) {
	pending.Status = status
	pending.UpdatedAt = s.now().UTC()
	if err := s.pending.save(ctx, pending); err != nil {
		return Outcome{}, err
	}
	s.metrics.IncOutcome(string(status))
	s.logg.Warn(s.logg.WithField(ctx, "attempts", pending.Attempts), "upi payment "+strings.ToLower(string(status)))
	return outcomeFor(pending), nil
}

// openAttempt loads the session's attempt that already has a transaction id.
func (s *service) openAttempt(ctx context.Context, sessionID string) (PendingPayment, error) {
	pending, ok, err := s.pending.load(ctx, sessionID)
	if err != nil {
		return PendingPayment{}, err
	}
	if !ok {
		return PendingPayment{}, errNoPending()
	}
	if pending.TransactionID == "" {
		if s.abandoned(pending) {
			if err := s.discard(ctx, pending); err != nil {
				return PendingPayment{}, err
			}
			return PendingPayment{}, errNoPending()
		}
		return PendingPayment{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is still being initiated")
	}
	return pending, nil
}

func outcomeFor(pending PendingPayment) Outcome {
	p := pending
	return Outcome{Method: enums.PaymentMethodUPI, Status: pending.Status, Pending: &p}
}

func errNoPending() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "no pending payment for this session")
}

func parseUser(raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to pay")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to pay")
	}
	return id, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
