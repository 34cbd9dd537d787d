package orders

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
	"gorm.io/gorm"
)

const (
	codMethod       = enums.PaymentMethodCOD
	upiMethod       = enums.PaymentMethodUPI
	deliveredStatus = enums.OrderStatusDelivered
)

// ErrStatusChanged is returned by conditional ledger writes when the order is
// no longer in the expected status.
var ErrStatusChanged = errors.New("order status changed concurrently")

// Repository is the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.Order, error)
	ListActive(ctx context.Context, limit int) ([]models.Order, error)
	AppendStatus(ctx context.Context, id string, from, to enums.OrderStatus, at time.Time) error
	SaveCancellation(ctx context.Context, id, reason string, at time.Time) error
	SaveRating(ctx context.Context, id string, rating types.Rating) error
}
