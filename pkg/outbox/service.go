package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
)

// SchemaVersion is stamped on envelopes that do not name one.
const SchemaVersion = 1

var (
	ErrTxRequired   = errors.New("outbox: emit requires a transaction")
	ErrInvalidEvent = errors.New("outbox: invalid event")
)

// DomainEvent is what services hand to the emitter. Data is the event body and
// must marshal to JSON.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Emitter queues domain events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type keyed interface {
	OrderKey() string
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit writes the event row in tx. Nothing is published until tx commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	if err := checkEvent(event); err != nil {
		return err
	}
	row, envelope, err := s.newRow(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
		return fmt.Errorf("insert outbox %s: %w", event.EventType, err)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"event_id":     envelope.EventID,
		"event_type":   event.EventType,
		"aggregate_id": event.AggregateID,
	}), "outbox event queued")
	return nil
}

func checkEvent(event DomainEvent) error {
	switch {
	case !event.EventType.IsValid():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.EventType)
	case !event.AggregateType.IsValid():
		return fmt.Errorf("%w: unknown aggregate %q", ErrInvalidEvent, event.AggregateType)
	case strings.TrimSpace(event.AggregateID) == "":
		return fmt.Errorf("%w: aggregate id required", ErrInvalidEvent)
	case event.Data == nil:
		return fmt.Errorf("%w: %s has no data", ErrInvalidEvent, event.EventType)
	}
	if k, ok := event.Data.(keyed); ok && k.OrderKey() != event.AggregateID {
		return fmt.Errorf("%w: data for %s queued under %s", ErrInvalidEvent, k.OrderKey(), event.AggregateID)
	}
	return nil
}

func (s *Service) newRow(event DomainEvent) (models.OutboxEvent, PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("marshal %s data: %w", event.EventType, err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	version := event.Version
	if version == 0 {
		version = SchemaVersion
	}
	envelope := PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       raw,
	}, envelope, nil
}
