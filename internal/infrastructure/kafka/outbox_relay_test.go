package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/infrastructure/persistence/memory"
	"github.com/jehnsen/coop-lending/pkg/events"
	pkgkafka "github.com/jehnsen/coop-lending/pkg/kafka"
)

type mockMessagePublisher struct {
	publishFunc func(ctx context.Context, topic string, messages ...pkgkafka.Message) error
	topics      []string
	messages    []pkgkafka.Message
}

func (m *mockMessagePublisher) Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error {
	if m.publishFunc != nil {
		if err := m.publishFunc(ctx, topic, messages...); err != nil {
			return err
		}
	}
	m.topics = append(m.topics, topic)
	m.messages = append(m.messages, messages...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedOutbox(t *testing.T, store *memory.Store, loanIDs ...string) {
	t.Helper()
	err := store.WithinTransaction(context.Background(), func(ctx context.Context, tx port.LoanTx) error {
		for _, id := range loanIDs {
			evt := events.NewBaseEvent("loan.applied", id, "loan", "tenant-1")
			if err := tx.AppendEvents(ctx, evt); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestKafkaEventPublisher_BuildsMessages(t *testing.T) {
	producer := &mockMessagePublisher{}
	pub := NewKafkaEventPublisher(producer, "", testLogger())

	entry := events.OutboxEntry{
		ID:            "evt-1",
		AggregateID:   "loan-1",
		AggregateType: "loan",
		EventType:     "loan.approved",
		TenantID:      "tenant-1",
		Payload:       []byte(`{"id":"evt-1"}`),
	}
	require.NoError(t, pub.PublishEntries(context.Background(), entry))

	require.Len(t, producer.messages, 1)
	assert.Equal(t, []string{DefaultTopic}, producer.topics)
	msg := producer.messages[0]
	assert.Equal(t, []byte("loan-1"), msg.Key)
	assert.Equal(t, entry.Payload, msg.Value)
	assert.Equal(t, "loan.approved", msg.Headers["event_type"])
	assert.Equal(t, "evt-1", msg.Headers["event_id"])
	assert.Equal(t, "tenant-1", msg.Headers["tenant_id"])
}

func TestKafkaEventPublisher_EmptyIsNoop(t *testing.T) {
	producer := &mockMessagePublisher{}
	pub := NewKafkaEventPublisher(producer, "custom.topic", testLogger())

	require.NoError(t, pub.PublishEntries(context.Background()))
	assert.Empty(t, producer.topics)
}

func TestOutboxRelay_PublishesAndMarks(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "loan-1", "loan-2", "loan-3")

	producer := &mockMessagePublisher{}
	relay := NewOutboxRelay(store, NewKafkaEventPublisher(producer, "", testLogger()),
		RelayConfig{BatchSize: 2}, testLogger())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	relay.now = func() time.Time { return fixed }

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, producer.messages, 3)
	assert.Equal(t, []byte("loan-1"), producer.messages[0].Key, "entries relay oldest first")
	for _, e := range store.Outbox() {
		require.NotNil(t, e.PublishedAt)
		assert.Equal(t, fixed, *e.PublishedAt)
	}
}

func TestOutboxRelay_FailedPublishCountsAttempt(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "loan-1")

	broker := errors.New("broker unavailable")
	producer := &mockMessagePublisher{
		publishFunc: func(context.Context, string, ...pkgkafka.Message) error { return broker },
	}
	relay := NewOutboxRelay(store, NewKafkaEventPublisher(producer, "", testLogger()),
		RelayConfig{}, testLogger())

	_, err := relay.RelayOnce(context.Background())
	require.ErrorIs(t, err, broker)

	entries := store.Outbox()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].PublishedAt, "entry stays pending for the next poll")
	assert.Equal(t, 1, entries[0].Attempts)

	producer.publishFunc = nil
	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "loan-1")

	producer := &mockMessagePublisher{}
	relay := NewOutboxRelay(store, NewKafkaEventPublisher(producer, "", testLogger()),
		RelayConfig{Interval: 5 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return store.Outbox()[0].PublishedAt != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
