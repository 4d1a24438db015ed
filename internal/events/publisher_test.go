package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/booking-system/user-service/internal/observability"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

type recordingTransport struct {
	mu       sync.Mutex
	messages []Message
	err      error
	block    chan struct{}
	closed   bool
}

func (r *recordingTransport) Send(_ context.Context, msg Message) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingTransport) snapshot() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func updateEvent(userID string, seq int) Event {
	return New("svc", UserUpdated{UserID: userID, UpdatedFields: map[string]any{"seq": seq}})
}

func TestAsyncPublisherPreservesPerKeyOrder(t *testing.T) {
	transport := &recordingTransport{}
	publisher := NewAsyncPublisher(transport, zap.NewNop(), nil, PublisherConfig{Shards: 4, BufferSize: 512})

	const perKey = 50
	keys := []string{"u-1", "u-2", "u-3"}
	sent := map[string][]string{}
	for i := 0; i < perKey; i++ {
		for _, key := range keys {
			event := updateEvent(key, i)
			sent[key] = append(sent[key], event.ID)
			require.NoError(t, publisher.Publish(context.Background(), event.Topic(), key, event))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, publisher.Close(ctx))
	assert.True(t, transport.closed)

	received := map[string][]string{}
	for _, msg := range transport.snapshot() {
		decoded, err := Decode(msg.Value)
		require.NoError(t, err)
		assert.Equal(t, msg.Key, decoded.Key())
		received[msg.Key] = append(received[msg.Key], decoded.ID)
	}
	for _, key := range keys {
		assert.Equal(t, sent[key], received[key], "order for %s", key)
	}
}

func TestAsyncPublisherRecordsDeliveryFailure(t *testing.T) {
	transport := &recordingTransport{err: errors.New("broker down")}
	metrics := observability.NewMetrics()
	publisher := NewAsyncPublisher(transport, zap.NewNop(), metrics, PublisherConfig{Shards: 1})

	event := updateEvent("u-1", 0)
	// delivery is asynchronous; the caller never sees the broker error
	require.NoError(t, publisher.Publish(context.Background(), event.Topic(), "u-1", event))
	require.NoError(t, publisher.Close(context.Background()))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.PublishFailures[TopicUserUpdated])
	assert.Zero(t, snap.Published[TopicUserUpdated])
}

func TestAsyncPublisherRejectsWhenClosed(t *testing.T) {
	publisher := NewAsyncPublisher(&recordingTransport{}, zap.NewNop(), nil, PublisherConfig{})
	require.NoError(t, publisher.Close(context.Background()))

	event := updateEvent("u-1", 0)
	err := publisher.Publish(context.Background(), event.Topic(), "u-1", event)
	assert.ErrorIs(t, err, apperrors.ErrPublishFailure)
}

func TestAsyncPublisherRejectsWhenBufferFull(t *testing.T) {
	transport := &recordingTransport{block: make(chan struct{})}
	metrics := observability.NewMetrics()
	publisher := NewAsyncPublisher(transport, zap.NewNop(), metrics, PublisherConfig{Shards: 1, BufferSize: 1})

	var failures int
	for i := 0; i < 5; i++ {
		event := updateEvent("u-1", i)
		if err := publisher.Publish(context.Background(), event.Topic(), "u-1", event); err != nil {
			assert.ErrorIs(t, err, apperrors.ErrPublishFailure)
			failures++
		}
	}
	// one message may be in flight and one buffered; the rest are rejected
	assert.GreaterOrEqual(t, failures, 3)
	assert.Equal(t, int64(failures), metrics.Snapshot().PublishFailures[TopicUserUpdated])

	close(transport.block)
	require.NoError(t, publisher.Close(context.Background()))
	assert.Len(t, transport.snapshot(), 5-failures)
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &recordingTransport{}
	failing := &recordingTransport{err: fmt.Errorf("nope")}
	transport := Fanout(ok, failing)

	err := transport.Send(context.Background(), Message{Topic: "t", Key: "k"})
	assert.Error(t, err)
	assert.Len(t, ok.snapshot(), 1)
	require.NoError(t, transport.Close())
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
}

func TestDispatcherDeliversByTopic(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	var got []string
	dispatcher.Subscribe("a", func(_ context.Context, msg Message) error {
		got = append(got, msg.Key)
		return nil
	})
	dispatcher.Subscribe("a", func(context.Context, Message) error {
		return errors.New("handler failed")
	})

	require.NoError(t, dispatcher.Send(context.Background(), Message{Topic: "a", Key: "1"}))
	require.NoError(t, dispatcher.Send(context.Background(), Message{Topic: "b", Key: "2"}))
	assert.Equal(t, []string{"1"}, got)
}

func TestDispatcherUnsubscribe(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	var first, second int
	stopFirst := dispatcher.Subscribe("a", func(context.Context, Message) error {
		first++
		return nil
	})
	dispatcher.Subscribe("a", func(context.Context, Message) error {
		second++
		return nil
	})

	require.NoError(t, dispatcher.Send(context.Background(), Message{Topic: "a"}))
	stopFirst()
	stopFirst()
	require.NoError(t, dispatcher.Send(context.Background(), Message{Topic: "a"}))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}
