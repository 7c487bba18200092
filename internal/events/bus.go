package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"flightsurety/pkg/requestcontext"
)

// Publisher is what services depend on to announce committed state changes.
type Publisher interface {
	Publish(ctx context.Context, payload Payload)
}

// Handler consumes one event. Errors are logged by the bus; the publisher
// already committed and is never told.
type Handler func(ctx context.Context, event Event) error

// ErrClosed is returned by Close when the bus was already closed.
var ErrClosed = errors.New("event bus closed")

const defaultAsyncBuffer = 1024

// Bus fans events out to subscribers.
//
// By default delivery is synchronous: Publish returns after every handler
// ran, in subscription order. WithAsyncBuffer moves delivery to a single
// worker goroutine so publishers never wait on subscribers; ordering is kept.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	all      []Handler

	logger *slog.Logger

	queue     chan Event
	done      chan struct{}
	closeMu   sync.RWMutex
	closeOnce sync.Once
	closed    bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithAsyncBuffer enables asynchronous delivery with a queue of size n.
func WithAsyncBuffer(n int) Option {
	return func(b *Bus) {
		if n <= 0 {
			n = defaultAsyncBuffer
		}
		b.queue = make(chan Event, n)
	}
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[Kind][]Handler),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.queue != nil {
		b.done = make(chan struct{})
		go b.run()
	}
	return b
}

// Subscribe registers h for events of kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// SubscribeAll registers h for every event. Used by sinks.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

// Publish wraps payload in an envelope and delivers it. Events published after
// Close are dropped.
func (b *Bus) Publish(ctx context.Context, payload Payload) {
	event := Event{
		ID:         uuid.New(),
		Kind:       payload.Kind(),
		OccurredAt: requestcontext.Now(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		Payload:    payload,
	}

	// Delivery must not be cut short by the publisher's request ending.
	ctx = context.WithoutCancel(ctx)

	if b.queue == nil {
		b.deliver(ctx, event)
		return
	}

	b.closeMu.RLock()
	if b.closed {
		b.closeMu.RUnlock()
		b.logger.WarnContext(ctx, "event dropped after bus close", "event_kind", event.Kind)
		return
	}
	var queued bool
	select {
	case b.queue <- event:
		queued = true
	default:
	}
	b.closeMu.RUnlock()

	if !queued {
		// A full queue would block handlers that publish from the worker.
		b.logger.WarnContext(ctx, "event queue full, delivering inline", "event_kind", event.Kind)
		b.deliver(ctx, event)
	}
}

// Close stops accepting events and waits until queued events are delivered
// or ctx expires.
func (b *Bus) Close(ctx context.Context) error {
	err := ErrClosed
	b.closeOnce.Do(func() {
		err = nil
		b.closeMu.Lock()
		b.closed = true
		if b.queue != nil {
			close(b.queue)
		}
		b.closeMu.Unlock()
	})
	if err != nil || b.done == nil {
		return err
	}
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) run() {
	defer close(b.done)
	for event := range b.queue {
		b.deliver(context.Background(), event)
	}
}

func (b *Bus) deliver(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event.Kind])+len(b.all))
	handlers = append(handlers, b.handlers[event.Kind]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				"event_kind", event.Kind,
				"event_id", event.ID,
				"request_id", event.RequestID,
				"error", err,
			)
		}
	}
}
