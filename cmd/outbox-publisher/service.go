package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

// publisher sends ordered messages. Resume clears the paused state Pub/Sub puts
// an ordering key in after a failed publish.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Resume(orderingKey string)
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Options tune the drain loop.
type Options struct {
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
}

// OptionsFromConfig maps the outbox env settings, falling back to defaults.
func OptionsFromConfig(cfg config.OutboxConfig) Options {
	opts := Options{
		BatchSize:    cfg.BatchSize,
		PollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		MaxAttempts:  cfg.MaxAttempts,
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return opts
}

type ServiceParams struct {
	Options          Options
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          *metrics.OutboxMetrics
}

// Service drains order events from the outbox table into Pub/Sub. Events of
// one order keep their commit order: once an event for an order fails, the
// order's later events wait for the next batch.
type Service struct {
	opts      Options
	logg      *logger.Logger
	db        dbClient
	repo      outboxRepository
	pubsub    pubSubClient
	registry  registryResolver
	dlq       dlqRepository
	metrics   *metrics.OutboxMetrics
	publishTo publisherFactory
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}

	dlq := params.DLQRepository
	if dlq == nil {
		dlq = outbox.NewDLQRepository()
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			return newOrderedPublisher(params.PubSub.Publisher(topic))
		}
	}

	return &Service{
		opts:      withDefaults(params.Options),
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		pubsub:    params.PubSub,
		registry:  params.Registry,
		dlq:       dlq,
		metrics:   params.Metrics,
		publishTo: factory,
	}, nil
}

func withDefaults(opts Options) Options {
	return OptionsFromConfig(config.OutboxConfig{
		BatchSize:      opts.BatchSize,
		PollIntervalMS: int(opts.PollInterval / time.Millisecond),
		MaxAttempts:    opts.MaxAttempts,
	})
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "pubsub": s.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	interval := s.opts.PollInterval
	backoff := interval
	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return err
		}

		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
		case processed:
			backoff = interval
		default:
			backoff = interval
			if err := sleep(ctx, withJitter(interval)); err != nil {
				return err
			}
		}
	}
}

type delivery int

const (
	delivered delivery = iota
	retryLater
	deadLettered
	deferred
)

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.opts.BatchSize, s.opts.MaxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0

		blocked := map[string]bool{}
		for _, event := range events {
			outcome, err := s.deliver(ctx, tx, event, blocked[orderingKey(event)])
			if err != nil {
				return err
			}
			if outcome == retryLater || outcome == deferred {
				blocked[orderingKey(event)] = true
			}
			s.metrics.Observe(string(event.EventType), outcomeLabel(outcome))
		}
		return nil
	})
	return processed, err
}

// deliver publishes one event and records the result on its row.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, blocked bool) (delivery, error) {
	if blocked {
		s.logg.Debug(s.logg.WithFields(ctx, s.eventFields(event, outbox.PayloadEnvelope{}, "")), "outbox event deferred behind earlier failure")
		return deferred, nil
	}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return deadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, nil)
	}

	fields := s.eventFields(event, resolved.Envelope, resolved.Descriptor.Topic)
	pubErr := s.publishResolved(ctx, event, resolved)
	if pubErr == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return delivered, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return delivered, nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return deadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.opts.MaxAttempts {
		fields["terminal_reason"] = "max_attempts"
		return deadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", pubErr), fields)
	}

	warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", pubErr.Error())
	s.logg.Warn(warnCtx, "outbox publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return retryLater, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return retryLater, nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, "")
	}
	fields["error_reason"] = reason
	warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error())
	s.logg.Warn(warnCtx, "outbox event moved to dead letter table")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.opts.MaxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publishResolved(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publishTo(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	key := orderingKey(event)
	msg := &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: key,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID,
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
			"schema_version": strconv.Itoa(resolved.Envelope.Version),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	if _, err := result.Get(publishCtx); err != nil {
		pub.Resume(key)
		return err
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"batch_size":     s.opts.BatchSize,
		"attempt_count":  event.AttemptCount,
	}
	if event.AggregateType == enums.AggregateOrder {
		fields["order_id"] = event.AggregateID
	} else {
		fields["aggregate_id"] = event.AggregateID
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// orderingKey groups events per aggregate so subscribers see an order's
// history in sequence.
func orderingKey(event models.OutboxEvent) string {
	return string(event.AggregateType) + ":" + event.AggregateID
}

func outcomeLabel(d delivery) string {
	switch d {
	case delivered:
		return "published"
	case retryLater:
		return "retry"
	case deadLettered:
		return "dead_letter"
	default:
		return "deferred"
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type orderedPublisher struct {
	p *gcppubsub.Publisher
}

func newOrderedPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	p.EnableMessageOrdering = true
	return &orderedPublisher{p: p}
}

func (o *orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return o.p.Publish(ctx, msg)
}

func (o *orderedPublisher) Resume(key string) {
	o.p.ResumePublish(key)
}
