package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/booking-system/user-service/internal/observability"
	apperrors "github.com/booking-system/user-service/pkg/util"
)

var (
	errPublisherClosed = errors.New("publisher closed")
	errBufferFull      = errors.New("publish buffer full")
)

// Publisher hands lifecycle events to the messaging transport.
type Publisher interface {
	Publish(ctx context.Context, topic, partitionKey string, event Event) error
}

// PublisherConfig tunes the asynchronous publisher.
type PublisherConfig struct {
	Shards      int
	BufferSize  int
	SendTimeout time.Duration
}

func (c PublisherConfig) withDefaults() PublisherConfig {
	if c.Shards <= 0 {
		c.Shards = 4
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 256
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 5 * time.Second
	}
	return c
}

// AsyncPublisher is a fire-and-forget publisher. Each message is routed to a
// shard chosen by hashing its partition key; a shard delivers sequentially,
// so messages sharing a key leave in submission order.
type AsyncPublisher struct {
	transport Transport
	logger    *zap.Logger
	metrics   *observability.Metrics
	cfg       PublisherConfig

	mu     sync.RWMutex
	closed bool
	shards []chan Message
	wg     sync.WaitGroup
}

// NewAsyncPublisher starts the shard workers.
func NewAsyncPublisher(transport Transport, logger *zap.Logger, metrics *observability.Metrics, cfg PublisherConfig) *AsyncPublisher {
	cfg = cfg.withDefaults()
	p := &AsyncPublisher{
		transport: transport,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		shards:    make([]chan Message, cfg.Shards),
	}
	for i := range p.shards {
		ch := make(chan Message, cfg.BufferSize)
		p.shards[i] = ch
		p.wg.Add(1)
		go p.run(ch)
	}
	return p
}

// Publish encodes the event and queues it without waiting for delivery.
// A returned error is a PUBLISH_FAILURE: the event was not queued.
func (p *AsyncPublisher) Publish(_ context.Context, topic, partitionKey string, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return p.fail(topic, partitionKey, err)
	}
	msg := Message{Topic: topic, Key: partitionKey, Value: value}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.fail(topic, partitionKey, errPublisherClosed)
	}
	select {
	case p.shards[p.shardFor(partitionKey)] <- msg:
		return nil
	default:
		return p.fail(topic, partitionKey, errBufferFull)
	}
}

// Close stops intake and waits for queued messages to drain or ctx to expire.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		for _, ch := range p.shards {
			close(ch)
		}
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return p.transport.Close()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AsyncPublisher) shardFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(p.shards)))
}

func (p *AsyncPublisher) run(ch <-chan Message) {
	defer p.wg.Done()
	for msg := range ch {
		p.deliver(msg)
	}
}

func (p *AsyncPublisher) deliver(msg Message) {
	// the request that produced msg may already be gone
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.SendTimeout)
	defer cancel()

	if err := p.transport.Send(ctx, msg); err != nil {
		p.logger.Error("event delivery failed",
			zap.String("topic", msg.Topic),
			zap.String("key", msg.Key),
			zap.Error(err))
		p.metrics.RecordPublishFailure(msg.Topic)
		return
	}
	p.metrics.RecordPublished(msg.Topic)
	p.logger.Debug("event delivered", zap.String("topic", msg.Topic), zap.String("key", msg.Key))
}

func (p *AsyncPublisher) fail(topic, key string, err error) error {
	p.metrics.RecordPublishFailure(topic)
	p.logger.Error("event not queued", zap.String("topic", topic), zap.String("key", key), zap.Error(err))
	return apperrors.NewPublishFailure(topic, err)
}
