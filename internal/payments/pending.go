package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/quickdelivery-backend/pkg/redis"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

// PendingPayment is an in-flight UPI attempt for one cart session. It carries
// the snapshot the order is built from once the gateway reports success.
type PendingPayment struct {
	SessionID     string                     `json:"session_id"`
	UserID        string                     `json:"user_id"`
	OrderRef      string                     `json:"order_ref"`
	TransactionID string                     `json:"transaction_id,omitempty"`
	PaymentURL    string                     `json:"payment_url,omitempty"`
	RedirectURL   string                     `json:"redirect_url,omitempty"`
	Status        enums.PaymentAttemptStatus `json:"status"`
	Items         []types.LineItem           `json:"items"`
	Address       types.Address              `json:"address"`
	Bill          types.Bill                 `json:"bill"`
	Attempts      int                        `json:"attempts"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

type pendingKV interface {
	pkgredis.KV
	PendingPaymentKey(sessionID string) string
	IdempotencyKey(scope, id string) string
}

type pendingStore struct {
	kv  pendingKV
	ttl time.Duration
}

func (p pendingStore) load(ctx context.Context, sessionID string) (PendingPayment, bool, error) {
	raw, err := p.kv.Get(ctx, p.kv.PendingPaymentKey(sessionID))
	if errors.Is(err, pkgredis.Nil) {
		return PendingPayment{}, false, nil
	}
	if err != nil {
		return PendingPayment{}, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payment")
	}
	var pending PendingPayment
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return PendingPayment{}, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode pending payment")
	}
	return pending, true, nil
}

func (p pendingStore) save(ctx context.Context, pending PendingPayment) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode pending payment")
	}
	if err := p.kv.Set(ctx, p.kv.PendingPaymentKey(pending.SessionID), raw, p.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store pending payment")
	}
	return nil
}

func (p pendingStore) clear(ctx context.Context, sessionID string) error {
	if err := p.kv.Del(ctx, p.kv.PendingPaymentKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear pending payment")
	}
	return nil
}

// claim marks the transaction as being turned into an order. Only one caller wins.
func (p pendingStore) claim(ctx context.Context, transactionID string) (bool, error) {
	ok, err := p.kv.SetNX(ctx, p.kv.IdempotencyKey("payment:finalize", transactionID), "1", p.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("claim transaction %s", transactionID))
	}
	return ok, nil
}

func (p pendingStore) release(ctx context.Context, transactionID string) error {
	return p.kv.Del(ctx, p.kv.IdempotencyKey("payment:finalize", transactionID))
}
