package events

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Message is an encoded event on its way to a broker.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Transport delivers encoded messages. Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

type fanout struct {
	transports []Transport
}

// Fanout sends every message to all transports and joins their errors.
func Fanout(transports ...Transport) Transport {
	if len(transports) == 1 {
		return transports[0]
	}
	return &fanout{transports: transports}
}

func (f *fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, t := range f.transports {
		if err := t.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) Close() error {
	var errs []error
	for _, t := range f.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogTransport writes messages to the logger. Used when no broker is configured.
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport creates a transport that only logs.
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.logger.Info("event",
		zap.String("topic", msg.Topic),
		zap.String("key", msg.Key),
		zap.ByteString("value", msg.Value))
	return nil
}

func (t *LogTransport) Close() error { return nil }
