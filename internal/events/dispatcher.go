package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MessageHandler handles a message delivered in process.
type MessageHandler func(context.Context, Message) error

// Dispatcher delivers messages to in-process subscribers keyed by topic.
// It is a Transport, so it can sit behind the publisher next to a broker.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]subscription
	nextID    uint64
	logger    *zap.Logger
}

type subscription struct {
	id      uint64
	handler MessageHandler
}

// NewDispatcher creates a dispatcher instance.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]subscription),
		logger:    logger,
	}
}

// Send synchronously invokes handlers subscribed to the message topic.
// Handler errors are logged; the remaining handlers still run.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	d.mu.RLock()
	subs := append([]subscription{}, d.listeners[msg.Topic]...)
	d.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, msg); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("topic", msg.Topic),
				zap.String("key", msg.Key),
				zap.Error(err))
		}
	}
	return nil
}

// Subscribe registers a handler for the given topic and returns a function
// that removes it. A Send already in flight may still reach the handler.
func (d *Dispatcher) Subscribe(topic string, handler MessageHandler) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.listeners[topic] = append(d.listeners[topic], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(topic, id) })
	}
}

func (d *Dispatcher) remove(topic string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.listeners[topic]
	for i, sub := range subs {
		if sub.id == id {
			d.listeners[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(d.listeners[topic]) == 0 {
		delete(d.listeners, topic)
	}
}

func (d *Dispatcher) Close() error { return nil }
