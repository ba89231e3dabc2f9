package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/surplus-backend/pkg/db/dbtest"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)

	aggregateID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: enums.RoleCustomer}
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Actor:         actor,
		Data:          map[string]string{"order_number": "ORD1"},
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, aggregateID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.NotEmpty(t, envelope.EventID)
	require.Equal(t, actor.UserID, envelope.Actor.UserID)
	require.JSONEq(t, `{"order_number":"ORD1"}`, string(envelope.Data))
}

func TestEmitRejectsUnknownEventAndMissingTx(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{
		EventType:   enums.EventOrderCreated,
		AggregateID: uuid.New(),
	}))
	require.Error(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType:   enums.OutboxEventType("nope"),
		AggregateID: uuid.New(),
	}))
	require.Error(t, svc.Emit(context.Background(), conn, DomainEvent{
		EventType: enums.EventOrderCreated,
	}))
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	first := models.OutboxEvent{
		EventType:     enums.EventProductCreated,
		AggregateType: enums.AggregateProduct,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"data":{}}`),
	}
	second := first
	second.AggregateID = uuid.New()
	require.NoError(t, repo.Insert(conn, first))
	require.NoError(t, repo.Insert(conn, second))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("pubsub down")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	require.Equal(t, "pubsub down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, rows[0].ID, errors.New("gave up"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)

	long := make([]byte, maxDLQErrorLen+100)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	eventID := uuid.New()
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	stored, err := dlq.FindByEventID(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Len(t, *stored.ErrorMessage, maxDLQErrorLen)

	missing, err := dlq.FindByEventID(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)

	require.ErrorIs(t, dlq.InsertTx(nil, models.OutboxDLQ{}), errTxRequired)
}

func TestClipUTF8KeepsRunesWhole(t *testing.T) {
	require.Equal(t, "ab", clipUTF8("ab", 5))
	// "ध" is three bytes; a four byte budget keeps only the first rune.
	require.Equal(t, "ध", clipUTF8("धध", 4))
	require.Equal(t, "", clipUTF8("ध", 2))
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	base := models.OutboxEvent{
		EventType:     enums.EventProductCreated,
		AggregateType: enums.AggregateProduct,
		Payload:       json.RawMessage(`{"data":{}}`),
	}
	published, dead, pending := base, base, base
	published.AggregateID = uuid.New()
	dead.AggregateID = uuid.New()
	pending.AggregateID = uuid.New()
	require.NoError(t, repo.Insert(conn, published))
	require.NoError(t, repo.Insert(conn, dead))
	require.NoError(t, repo.Insert(conn, pending))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	byAggregate := map[uuid.UUID]uuid.UUID{}
	for _, row := range rows {
		byAggregate[row.AggregateID] = row.ID
	}
	require.NoError(t, repo.MarkPublishedTx(conn, byAggregate[published.AggregateID]))
	require.NoError(t, repo.MarkTerminalTx(conn, byAggregate[dead.AggregateID], errors.New("gave up"), 3))

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().UTC().Add(48*time.Hour), 3)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, pending.AggregateID, remaining[0].AggregateID)
}
