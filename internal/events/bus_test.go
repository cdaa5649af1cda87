package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/events"
)

type stubStore struct {
	lastParams dbgen.InsertDomainEventParams
	err        error
}

func (s *stubStore) InsertDomainEvent(_ context.Context, arg dbgen.InsertDomainEventParams) (dbgen.DomainEvent, error) {
	if s.err != nil {
		return dbgen.DomainEvent{}, s.err
	}
	s.lastParams = arg
	return dbgen.DomainEvent{
		ID:          uuid.NewString(),
		Topic:       arg.Topic,
		AggregateID: arg.AggregateID,
		Payload:     arg.Payload,
		OccurredAt:  time.Now(),
	}, nil
}

type captureNotifier struct {
	events []dbgen.DomainEvent
}

func (c *captureNotifier) Notify(_ context.Context, event dbgen.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	invoiceID := uuid.NewString()
	event, err := bus.Emit(context.Background(), events.TopicSaleCompleted, invoiceID, map[string]any{"number": "INV-2026-000001"})
	require.NoError(t, err)
	require.Equal(t, events.TopicSaleCompleted, store.lastParams.Topic)
	require.Equal(t, invoiceID, store.lastParams.AggregateID)
	require.JSONEq(t, `{"number":"INV-2026-000001"}`, string(store.lastParams.Payload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "INV-2026-000001", decoded["number"])
}

func TestEmitValidatesInput(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	ctx := context.Background()

	_, err := bus.Emit(ctx, " ", "agg", nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, events.TopicSessionOpened, "", nil)
	require.Error(t, err)
	_, err = bus.Emit(ctx, events.TopicSessionOpened, "agg", "not json")
	require.Error(t, err)

	var nilBus *events.Bus
	_, err = nilBus.Emit(ctx, events.TopicSessionOpened, "agg", nil)
	require.Error(t, err)
}

func TestEmitEncodesRawPayloads(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}
	ctx := context.Background()

	_, err := bus.Emit(ctx, events.TopicSessionClosed, "agg", nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(store.lastParams.Payload))

	_, err = bus.Emit(ctx, events.TopicSessionClosed, "agg", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(store.lastParams.Payload))

	_, err = bus.Emit(ctx, events.TopicSessionClosed, "agg", `{"b":2}`)
	require.NoError(t, err)
	require.JSONEq(t, `{"b":2}`, string(store.lastParams.Payload))
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	calls := 0
	failing := events.NotifierFunc(func(context.Context, dbgen.DomainEvent) error {
		calls++
		return errors.New("queue unavailable")
	})
	capture := &captureNotifier{}
	bus := events.Bus{Store: &stubStore{}, Notifiers: []events.Notifier{failing, nil, capture}}

	event, err := bus.Emit(context.Background(), events.TopicSaleCompleted, "inv-1", map[string]string{"k": "v"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue unavailable")
	require.NotEmpty(t, event.ID)
	require.Equal(t, 1, calls)
	require.Len(t, capture.events, 1)
}

func TestEmitStoreFailure(t *testing.T) {
	notifier := &captureNotifier{}
	bus := events.Bus{Store: &stubStore{err: errors.New("db down")}, Notifiers: []events.Notifier{notifier}}
	_, err := bus.Emit(context.Background(), events.TopicSaleCompleted, "inv-1", nil)
	require.ErrorContains(t, err, "persist event")
	require.Empty(t, notifier.events)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := events.LogNotifier{Logger: zerolog.New(&buf)}
	require.NoError(t, n.Notify(context.Background(), dbgen.DomainEvent{
		ID:          "ev-1",
		Topic:       events.TopicSessionOpened,
		AggregateID: "sess-1",
		Payload:     []byte(`{"operatorId":"op-1"}`),
	}))
	require.Contains(t, buf.String(), `"topic":"session.opened"`)
	require.Contains(t, buf.String(), `"operatorId":"op-1"`)
}
