package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order ledger bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its initial status events.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Events", orderedEvents).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Events", orderedEvents).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListActive returns the oldest non-terminal orders first.
func (r *repository) ListActive(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Preload("Events", orderedEvents).
		Where("status IN ?", enums.ActiveOrderStatuses()).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// AppendStatus moves the order from one status to the next and records the
// event. It returns ErrStatusChanged when the order is no longer in from.
func (r *repository) AppendStatus(ctx context.Context, id string, from, to enums.OrderStatus, at time.Time) error {
	return r.transition(ctx, id, from, at, map[string]any{"status": to}, to)
}

func (r *repository) SaveCancellation(ctx context.Context, id, reason string, at time.Time) error {
	updates := map[string]any{"status": enums.OrderStatusCancelled}
	if reason != "" {
		updates["cancel_reason"] = reason
	}
	return r.transition(ctx, id, enums.OrderStatusPlaced, at, updates, enums.OrderStatusCancelled)
}

// SaveRating stores the rating on a delivered, unrated order.
func (r *repository) SaveRating(ctx context.Context, id string, rating types.Rating) error {
	updates := map[string]any{
		"rating":     rating.Stars,
		"rated_at":   rating.RatedAt.UTC(),
		"updated_at": rating.RatedAt.UTC(),
	}
	if rating.Review != "" {
		updates["review"] = rating.Review
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND rating IS NULL", id, enums.OrderStatusDelivered).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

func (r *repository) transition(ctx context.Context, id string, from enums.OrderStatus, at time.Time, updates map[string]any, to enums.OrderStatus) error {
	at = at.UTC()
	updates["updated_at"] = at
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	event := models.OrderStatusEvent{
		ID:         uuid.New(),
		OrderID:    id,
		Status:     to,
		OccurredAt: at,
	}
	return r.db.WithContext(ctx).Create(&event).Error
}

func orderedEvents(db *gorm.DB) *gorm.DB {
	return db.Order("occurred_at ASC")
}
