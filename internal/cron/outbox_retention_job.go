package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
	defaultExhaustedAfter  = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure pruning of delivered and abandoned events.
// ExhaustedAfter should match the publisher's max attempts so rows it gave up
// on are pruned with the published ones.
type OutboxRetentionJobParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Repository     outboxPruner
	DLQ            dlqPruner
	Metrics        *metrics.CronJobMetrics
	Retention      time.Duration
	DLQRetention   time.Duration
	ExhaustedAfter int
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	j := &outboxRetentionJob{params: params, now: time.Now}
	if j.params.Retention <= 0 {
		j.params.Retention = defaultOutboxRetention
	}
	if j.params.DLQRetention <= 0 {
		j.params.DLQRetention = defaultDLQRetention
	}
	if j.params.ExhaustedAfter <= 0 {
		j.params.ExhaustedAfter = defaultExhaustedAfter
	}
	return j, nil
}

type outboxRetentionJob struct {
	params OutboxRetentionJobParams
	now    func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes both tables in one transaction.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventCutoff := now.Add(-j.params.Retention)
	dlqCutoff := now.Add(-j.params.DLQRetention)

	var events, parked int64
	err := j.params.DB.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.params.Repository.DeletePublishedBefore(ctx, tx, eventCutoff, j.params.ExhaustedAfter)
		if err != nil {
			return fmt.Errorf("prune outbox events: %w", err)
		}
		events = n
		if j.params.DLQ == nil {
			return nil
		}
		if parked, err = j.params.DLQ.DeleteFailedBefore(ctx, tx, dlqCutoff); err != nil {
			return fmt.Errorf("prune outbox dlq: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.params.Metrics.AddItems(j.Name(), int(events+parked))
	logg := j.params.Logger
	logg.Info(logg.WithFields(ctx, map[string]any{
		"event_cutoff":   eventCutoff,
		"dlq_cutoff":     dlqCutoff,
		"events_deleted": events,
		"dlq_deleted":    parked,
	}), "outbox retention done")
	return nil
}
