package events

import (
	"context"
	"fmt"
	"time"

	skafka "github.com/segmentio/kafka-go"
)

// KafkaWriter is the subset of kafka.Writer the transport uses.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka transport.
type KafkaConfig struct {
	Brokers      []string
	ClientID     string
	BatchTimeout time.Duration
	MaxAttempts  int
}

// KafkaTransport writes messages to Kafka. The topic comes from each message,
// and the hash balancer keeps one key on one partition so per-key order holds.
type KafkaTransport struct {
	writer KafkaWriter
}

// NewKafkaTransport creates a transport backed by a kafka.Writer.
func NewKafkaTransport(cfg KafkaConfig) *KafkaTransport {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	w := &skafka.Writer{
		Addr:                   skafka.TCP(cfg.Brokers...),
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireAll,
		BatchTimeout:           batchTimeout,
		MaxAttempts:            cfg.MaxAttempts,
		AllowAutoTopicCreation: true,
	}
	if cfg.ClientID != "" {
		w.Transport = &skafka.Transport{ClientID: cfg.ClientID}
	}
	return &KafkaTransport{writer: w}
}

// NewKafkaTransportWithWriter allows injecting a test writer.
func NewKafkaTransportWithWriter(w KafkaWriter) *KafkaTransport {
	return &KafkaTransport{writer: w}
}

func (t *KafkaTransport) Send(ctx context.Context, msg Message) error {
	err := t.writer.WriteMessages(ctx, skafka.Message{
		Topic: msg.Topic,
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("kafka write %s: %w", msg.Topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
