package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
)

const defaultLifecycleBatch = 200

type orderAdvancer interface {
	AdvanceDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// OrderLifecycleJobParams configure the lifecycle ticker.
type OrderLifecycleJobParams struct {
	Logger    *logger.Logger
	Orders    orderAdvancer
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewOrderLifecycleJob builds the job that moves active orders through their
// time-driven statuses.
func NewOrderLifecycleJob(params OrderLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultLifecycleBatch
	}
	return &orderLifecycleJob{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type orderLifecycleJob struct {
	logg    *logger.Logger
	orders  orderAdvancer
	metrics *metrics.CronJobMetrics
	batch   int
	now     func() time.Time
}

func (j *orderLifecycleJob) Name() string { return "order-lifecycle" }

func (j *orderLifecycleJob) Run(ctx context.Context) error {
	applied, err := j.orders.AdvanceDue(ctx, j.now().UTC(), j.batch)
	if j.metrics != nil && applied > 0 {
		j.metrics.AddItems(j.Name(), applied)
	}
	if applied > 0 {
		j.logg.Info(j.logg.WithField(ctx, "steps_applied", applied), "order lifecycle advanced")
	}
	if err != nil {
		return fmt.Errorf("advance orders: %w", err)
	}
	return nil
}
