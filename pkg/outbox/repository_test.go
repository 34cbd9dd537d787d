package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/quickdelivery-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quickdelivery-backend/pkg/db/models"
	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox"
	"github.com/angelmondragon/quickdelivery-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelope(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	ctx := context.Background()
	occurred := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "QD-1",
			Actor:         &outbox.ActorRef{SessionID: "sess-1"},
			Data:          map[string]string{"reason": "Ordered by mistake"},
			OccurredAt:    occurred,
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, client.DB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "QD-1", rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.True(t, envelope.OccurredAt.Equal(occurred))
	assert.Equal(t, "sess-1", envelope.Actor.SessionID)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{EventType: "order.unknown", AggregateID: "QD-1"})
	})
	require.ErrorIs(t, err, outbox.ErrInvalidEvent)
}

func TestEmitRejectsMisroutedData(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "QD-1",
			Data:          payloads.OrderRatedEvent{OrderID: "QD-2", Stars: 4, RatedAt: time.Now()},
		})
	})
	require.ErrorIs(t, err, outbox.ErrInvalidEvent)

	var count int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)

	require.ErrorIs(t, svc.Emit(ctx, nil, outbox.DomainEvent{}), outbox.ErrTxRequired)
}

func TestPublishBookkeeping(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()

	for _, id := range []string{"QD-1", "QD-2", "QD-3"} {
		id := id
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPlaced,
				AggregateType: enums.AggregateOrder,
				AggregateID:   id,
				Data:          map[string]string{"orderId": id},
			})
		}))
	}

	db := client.DB()
	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(db, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(db, rows[1].ID, errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkTerminalTx(db, rows[2].ID, errors.New("bad payload"), 3))

	pending, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, rows[1].ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "pubsub unavailable", *pending[0].LastError)
}

func TestDeletePublishedBefore(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	db := client.DB()
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	fresh := time.Now().UTC()

	rows := []models.OutboxEvent{
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: "old-published", Payload: json.RawMessage(`{}`), CreatedAt: old, PublishedAt: &old},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: "fresh-published", Payload: json.RawMessage(`{}`), CreatedAt: fresh, PublishedAt: &fresh},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: "old-exhausted", Payload: json.RawMessage(`{}`), CreatedAt: old, AttemptCount: 10},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: "old-pending", Payload: json.RawMessage(`{}`), CreatedAt: old, AttemptCount: 1},
	}
	for i := range rows {
		rows[i].ID = uuidFor(i)
		require.NoError(t, repo.Insert(db, rows[i]))
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), db, time.Now().UTC().Add(-30*24*time.Hour), 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Order("aggregate_id").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, "fresh-published", remaining[0].AggregateID)
	assert.Equal(t, "old-pending", remaining[1].AggregateID)
}

func uuidFor(i int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(i)})
}

func TestDLQInsertIsOncePerEvent(t *testing.T) {
	client := dbtest.Open(t)
	dlq := outbox.NewDLQRepository()
	db := client.DB()
	eventID := uuidFor(42)
	long := strings.Repeat("é", 600)

	for i := 0; i < 2; i++ {
		require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
			EventID:       eventID,
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "QD-1",
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &long,
			FailedAt:      time.Now().UTC(),
		}))
	}

	var entries []models.OutboxDLQ
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ErrorMessage)
	assert.LessOrEqual(t, len(*entries[0].ErrorMessage), 1024)
	assert.True(t, utf8.ValidString(*entries[0].ErrorMessage))
}

func TestDLQDeleteFailedBefore(t *testing.T) {
	client := dbtest.Open(t)
	dlq := outbox.NewDLQRepository()
	db := client.DB()
	now := time.Now().UTC()

	for i, failed := range []time.Time{now.Add(-100 * 24 * time.Hour), now} {
		require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
			EventID:       uuidFor(100 + i),
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "QD-2",
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			FailedAt:      failed,
		}))
	}

	deleted, err := dlq.DeleteFailedBefore(context.Background(), db, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
