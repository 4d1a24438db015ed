package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StreamAdder is the subset of the redis client the stream transport needs.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamTransport appends messages to a Redis stream named after the topic.
type RedisStreamTransport struct {
	client StreamAdder
	maxLen int64
}

// NewRedisStreamTransport creates the transport. maxLen <= 0 disables trimming.
func NewRedisStreamTransport(client StreamAdder, maxLen int64) *RedisStreamTransport {
	return &RedisStreamTransport{client: client, maxLen: maxLen}
}

func (t *RedisStreamTransport) Send(ctx context.Context, msg Message) error {
	args := &redis.XAddArgs{
		Stream: msg.Topic,
		Values: map[string]any{
			"key":   msg.Key,
			"event": msg.Value,
		},
	}
	if t.maxLen > 0 {
		args.MaxLen = t.maxLen
		args.Approx = true
	}
	if err := t.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", msg.Topic, err)
	}
	return nil
}

// Close is a no-op; the client is owned by persistence.Redis.
func (t *RedisStreamTransport) Close() error { return nil }
