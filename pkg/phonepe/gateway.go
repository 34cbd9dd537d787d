// Package phonepe simulates the PhonePe UPI gateway. Transactions live in
// redis so every API replica sees the same gateway state.
package phonepe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/quickdelivery-backend/pkg/redis"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

const txnAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Gateway is the payment processor as seen by the orchestrator.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (Initiation, error)
	CheckStatus(ctx context.Context, transactionID, orderRef string) (enums.GatewayStatus, error)
	Complete(ctx context.Context, transactionID string, status enums.GatewayStatus) error
}

type InitiateRequest struct {
	Amount   types.Paise
	OrderRef string
	Contact  string
}

type Initiation struct {
	PaymentURL    string `json:"payment_url"`
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url"`
}

// Transaction is the gateway-side record of one payment intent.
type Transaction struct {
	TransactionID string              `json:"transaction_id"`
	MerchantID    string              `json:"merchant_id"`
	OrderRef      string              `json:"order_ref"`
	Amount        types.Paise         `json:"amount_paise"`
	Contact       string              `json:"contact,omitempty"`
	Status        enums.GatewayStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type store interface {
	pkgredis.KV
	GatewayTransactionKey(transactionID string) string
}

// Client is the simulated gateway.
type Client struct {
	kv          store
	merchantID  string
	payeeVPA    string
	redirectURL string
	settleAfter time.Duration
	successRate float64
	ttl         time.Duration
	logg        *logger.Logger

	now func() time.Time
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewClient(kv store, cfg config.PaymentsConfig, logg *logger.Logger) (*Client, error) {
	if kv == nil {
		return nil, fmt.Errorf("gateway store required")
	}
	if strings.TrimSpace(cfg.PayeeVPA) == "" {
		return nil, fmt.Errorf("payee vpa required")
	}
	ttl := cfg.GatewayTTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Client{
		kv:          kv,
		merchantID:  cfg.MerchantID,
		payeeVPA:    cfg.PayeeVPA,
		redirectURL: strings.TrimRight(cfg.RedirectBaseURL, "/") + "/payment-callback",
		settleAfter: cfg.GatewaySettleAfter,
		successRate: cfg.GatewaySuccessRate,
		ttl:         ttl,
		logg:        logg,
		now:         time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Initiate records a PENDING transaction and returns the UPI intent URL.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (Initiation, error) {
	if req.Amount <= 0 {
		return Initiation{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if strings.TrimSpace(req.OrderRef) == "" {
		return Initiation{}, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	now := c.now().UTC()
	txn := Transaction{
		TransactionID: c.newTransactionID(now),
		MerchantID:    c.merchantID,
		OrderRef:      req.OrderRef,
		Amount:        req.Amount,
		Contact:       req.Contact,
		Status:        enums.GatewayStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.save(ctx, txn); err != nil {
		return Initiation{}, err
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithTransactionID(ctx, txn.TransactionID), "gateway transaction initiated")
	}
	return Initiation{
		PaymentURL:    PaymentURL(c.payeeVPA, req.Amount, req.OrderRef),
		TransactionID: txn.TransactionID,
		RedirectURL:   c.redirectURL,
	}, nil
}

// CheckStatus reports the transaction status. A pending transaction older than
// the settle delay is settled first.
func (c *Client) CheckStatus(ctx context.Context, transactionID, orderRef string) (enums.GatewayStatus, error) {
	txn, err := c.load(ctx, transactionID)
	if err != nil {
		return "", err
	}
	if orderRef != "" && txn.OrderRef != orderRef {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order reference does not match transaction").
			WithDetails(map[string]any{"transaction_id": transactionID})
	}
	if txn.Status != enums.GatewayStatusPending || c.settleAfter <= 0 {
		return txn.Status, nil
	}
	now := c.now().UTC()
	if now.Sub(txn.CreatedAt) < c.settleAfter {
		return txn.Status, nil
	}
	txn.Status = enums.GatewayStatusFailed
	if c.roll() < c.successRate {
		txn.Status = enums.GatewayStatusSuccess
	}
	txn.UpdatedAt = now
	if err := c.save(ctx, txn); err != nil {
		return "", err
	}
	return txn.Status, nil
}

// Complete settles a pending transaction. Repeating the same outcome is a no-op;
// contradicting a settled outcome is a conflict.
func (c *Client) Complete(ctx context.Context, transactionID string, status enums.GatewayStatus) error {
	if status != enums.GatewayStatusSuccess && status != enums.GatewayStatusFailed {
		return pkgerrors.New(pkgerrors.CodeValidation, "completion status must be SUCCESS or FAILED").
			WithDetails(map[string]any{"status": status})
	}
	txn, err := c.load(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.Status == status {
		return nil
	}
	if txn.Status != enums.GatewayStatusPending {
		return pkgerrors.New(pkgerrors.CodeConflict, "transaction already settled").
			WithDetails(map[string]any{"transaction_id": transactionID, "status": txn.Status})
	}
	txn.Status = status
	txn.UpdatedAt = c.now().UTC()
	return c.save(ctx, txn)
}

// Transaction returns the stored record.
func (c *Client) Transaction(ctx context.Context, transactionID string) (Transaction, error) {
	return c.load(ctx, transactionID)
}

// PaymentURL builds the upi:// intent link for amount payable to vpa.
func PaymentURL(vpa string, amount types.Paise, orderRef string) string {
	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("am", amount.Decimal().StringFixed(2))
	q.Set("tn", "QuickDelivery-"+orderRef)
	q.Set("cu", "INR")
	return "upi://pay?" + q.Encode()
}

func (c *Client) load(ctx context.Context, transactionID string) (Transaction, error) {
	if strings.TrimSpace(transactionID) == "" {
		return Transaction{}, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	raw, err := c.kv.Get(ctx, c.kv.GatewayTransactionKey(transactionID))
	if errors.Is(err, pkgredis.Nil) {
		return Transaction{}, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found").
			WithDetails(map[string]any{"transaction_id": transactionID})
	}
	if err != nil {
		return Transaction{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gateway transaction")
	}
	var txn Transaction
	if err := json.Unmarshal([]byte(raw), &txn); err != nil {
		return Transaction{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode gateway transaction")
	}
	return txn, nil
}

func (c *Client) save(ctx context.Context, txn Transaction) error {
	raw, err := json.Marshal(txn)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway transaction")
	}
	if err := c.kv.Set(ctx, c.kv.GatewayTransactionKey(txn.TransactionID), raw, c.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store gateway transaction")
	}
	return nil
}

// newTransactionID builds TXN_<unix millis>_<6 lowercase alphanumerics>.
func (c *Client) newTransactionID(now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(txnAlphabet[c.rnd.Intn(len(txnAlphabet))])
	}
	return fmt.Sprintf("TXN_%d_%s", now.UnixMilli(), b.String())
}

func (c *Client) roll() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Float64()
}
