package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
)

const (
	idPrefix       = "QD"
	idSuffixLength = 9
	idAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	minETAMinutes = 20
	maxETAMinutes = 35
)

// Rand is the source of randomness for ids and ETAs. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// Draft is everything an order snapshots at creation.
type Draft struct {
	Items   []types.LineItem
	Address types.Address
	Bill    types.Bill
	Payment types.Payment
}

// NewOrder materializes a PLACED order from draft. The snapshot is deep-copied
// so later cart edits never reach it.
func NewOrder(draft Draft, now time.Time, rnd Rand) (types.Order, error) {
	if len(draft.Items) == 0 {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	if draft.Payment.Details == nil {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	if draft.Payment.Method() == enums.PaymentMethodUPI && strings.TrimSpace(draft.Payment.Ref()) == "" {
		return types.Order{}, pkgerrors.New(pkgerrors.CodeValidation, "upi payment requires a transaction reference")
	}

	return types.Order{
		ID:            NewOrderID(now, rnd),
		Items:         types.CloneLineItems(draft.Items),
		Address:       draft.Address,
		Bill:          draft.Bill,
		Payment:       draft.Payment,
		Status:        enums.OrderStatusPlaced,
		StatusHistory: []types.StatusUpdate{{Status: enums.OrderStatusPlaced, Timestamp: now}},
		ETAMinutes:    minETAMinutes + rnd.Intn(maxETAMinutes-minETAMinutes+1),
		CreatedAt:     now,
	}, nil
}

// NewOrderID builds QD-<unix millis>-<9 uppercase alphanumerics>. Uniqueness is
// probabilistic.
func NewOrderID(now time.Time, rnd Rand) string {
	var b strings.Builder
	b.Grow(idSuffixLength)
	for i := 0; i < idSuffixLength; i++ {
		b.WriteByte(idAlphabet[rnd.Intn(len(idAlphabet))])
	}
	return fmt.Sprintf("%s-%d-%s", idPrefix, now.UnixMilli(), b.String())
}
