package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/models"
)

var (
	// ErrBufferFull is returned when the queue is full and the event was dropped.
	ErrBufferFull = errors.New("event buffer full")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("event publisher closed")
)

const (
	DefaultBufferSize     = 1024
	DefaultPublishTimeout = 10 * time.Second
)

// Async queues events and publishes them from a single background goroutine,
// preserving order. Publish never blocks; a full queue drops the event.
type Async struct {
	sink    Publisher
	events  chan models.Event
	done    chan struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

type AsyncOption func(*Async)

func WithBufferSize(size int) AsyncOption {
	return func(a *Async) {
		if size > 0 {
			a.events = make(chan models.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) AsyncOption {
	return func(a *Async) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) AsyncOption {
	return func(a *Async) { a.metrics = m }
}

// WithPublishTimeout bounds each sink call.
func WithPublishTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewAsync(sink Publisher, opts ...AsyncOption) *Async {
	a := &Async{
		sink:    sink,
		events:  make(chan models.Event, DefaultBufferSize),
		done:    make(chan struct{}),
		logger:  slog.Default(),
		timeout: DefaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Publish enqueues event. It returns ErrBufferFull when the queue is full.
func (a *Async) Publish(ctx context.Context, event models.Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		a.metrics.IncEvent(string(event.Type), "dropped")
		a.logger.WarnContext(ctx, "event buffer full, event dropped",
			"event_type", string(event.Type),
			"address", event.Address.String(),
		)
		return ErrBufferFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		err := a.sink.Publish(ctx, event)
		cancel()
		if err != nil {
			a.metrics.IncEvent(string(event.Type), "error")
			a.logger.Error("failed to publish wallet event",
				"event_id", event.ID,
				"event_type", string(event.Type),
				"address", event.Address.String(),
				"error", err,
			)
			continue
		}
		a.metrics.IncEvent(string(event.Type), "ok")
	}
}

// Close stops accepting events and waits, bounded by ctx, for the queue to drain.
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many events are queued.
func (a *Async) Pending() int {
	return len(a.events)
}
