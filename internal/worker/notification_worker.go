package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/booking-system/user-service/internal/events"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 128
)

// ErrQueueFull is returned to the dispatcher when a notification cannot be queued.
var ErrQueueFull = errors.New("notification queue full")

// Config sizes the worker pool.
type Config struct {
	Workers   int
	QueueSize int
}

// NotificationWorker takes notification.requested messages off the
// dispatcher's delivery path and hands them to a handler on its own
// goroutines, so slow delivery never stalls event publishing.
type NotificationWorker struct {
	dispatcher *events.Dispatcher
	handle     events.MessageHandler
	logger     *zap.Logger
	cfg        Config

	mu          sync.RWMutex
	queue       chan events.Message
	unsubscribe func()
	running     bool
	wg          sync.WaitGroup
}

// NewNotificationWorker builds a stopped worker.
func NewNotificationWorker(dispatcher *events.Dispatcher, handle events.MessageHandler, logger *zap.Logger, cfg Config) *NotificationWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{dispatcher: dispatcher, handle: handle, logger: logger, cfg: cfg}
}

// Start subscribes to notification requests and launches the pool. Handlers
// run with ctx until Stop.
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("notification worker already started")
	}

	w.queue = make(chan events.Message, w.cfg.QueueSize)
	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, w.queue)
	}
	w.unsubscribe = w.dispatcher.Subscribe(events.TopicNotificationRequested, w.enqueue)
	w.running = true

	w.logger.Info("notification worker started",
		zap.Int("workers", w.cfg.Workers),
		zap.Int("queue_size", w.cfg.QueueSize))
	return nil
}

// Stop unsubscribes, lets the pool finish queued messages and waits until
// it does or ctx ends.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.unsubscribe()
	w.running = false
	close(w.queue)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("notification worker stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification worker drain: %w", ctx.Err())
	}
}

func (w *NotificationWorker) enqueue(_ context.Context, msg events.Message) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.running {
		return nil
	}
	select {
	case w.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *NotificationWorker) run(ctx context.Context, queue <-chan events.Message) {
	defer w.wg.Done()
	for msg := range queue {
		if err := w.handle(ctx, msg); err != nil {
			w.logger.Warn("notification not delivered",
				zap.String("key", msg.Key),
				zap.Error(err))
		}
	}
}
