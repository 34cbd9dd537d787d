package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/quickdelivery-backend/pkg/config"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox/payloads"
)

// maxSchemaVersion is the newest envelope version this publisher understands.
const maxSchemaVersion = 1

// EventDescriptor routes one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row decoded and checked, ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that will never publish and belong in the DLQ.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// orderPayload is implemented by every order event body.
type orderPayload interface {
	OrderKey() string
}

// EventRegistry knows every order event the service emits.
type EventRegistry struct {
	entries  map[enums.OutboxEventType]EventDescriptor
	validate *validator.Validate
}

// NewEventRegistry routes all order events to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.DomainTopic)
	if topic == "" {
		return nil, fmt.Errorf("domain topic is required")
	}
	r := &EventRegistry{
		entries:  make(map[enums.OutboxEventType]EventDescriptor),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	register[payloads.OrderPlacedEvent](r, enums.EventOrderPlaced, topic)
	register[payloads.OrderStatusChangedEvent](r, enums.EventOrderStatusChanged, topic)
	register[payloads.OrderCancelledEvent](r, enums.EventOrderCancelled, topic)
	register[payloads.OrderRatedEvent](r, enums.EventOrderRated, topic)
	return r, nil
}

func register[T orderPayload](r *EventRegistry, eventType enums.OutboxEventType, topic string) {
	r.entries[eventType] = EventDescriptor{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		Topic:         topic,
		decode: func(data json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(data, payload); err != nil {
				return nil, err
			}
			if err := r.validate.Struct(payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// Resolve decodes the row. Every failure is non-retryable: a row that does not
// decode now never will.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, rejectf("unsupported event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return nil, rejectf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	}
	if strings.TrimSpace(event.AggregateID) == "" {
		return nil, rejectf("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, rejectf("decode envelope: %w", err)
	}
	if envelope.Version < 1 || envelope.Version > maxSchemaVersion {
		return nil, rejectf("unsupported schema version %d for %s", envelope.Version, event.EventType)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, rejectf("payload missing for %s", event.EventType)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, rejectf("decode %s payload: %w", event.EventType, err)
	}
	if key := payload.(orderPayload).OrderKey(); key != event.AggregateID {
		return nil, rejectf("payload order %s does not match aggregate %s", key, event.AggregateID)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func rejectf(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
