// Package eventbus is the in-process publish/subscribe bus that carries
// agent and market lifecycle events to metrics and log subscribers.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"salesintel/internal/domain"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 256

type delivery struct {
	ctx   context.Context
	event domain.Event
}

// subscriber owns one queue and one goroutine, so each handler sees events
// in publish order and a slow handler never blocks publishers.
type subscriber struct {
	eventType domain.EventType // empty matches every event
	handler   domain.EventHandler
	queue     chan delivery
}

// Bus is an in-process, goroutine-safe event bus.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	nextID  uint64
	closed  bool
	buffer  int
	dropped atomic.Uint64
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// New creates an event bus with DefaultBuffer-sized subscriber queues.
func New(logger *slog.Logger) *Bus {
	return NewWithBuffer(logger, DefaultBuffer)
}

// NewWithBuffer creates an event bus with the given subscriber queue length.
func NewWithBuffer(logger *slog.Logger, buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[uint64]*subscriber),
		buffer: buffer,
		logger: logger,
	}
}

// Publish enqueues event for every matching subscriber. When a subscriber's
// queue is full the event is dropped for that subscriber and counted.
// Handlers receive a context detached from the publisher's cancellation.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	d := delivery{ctx: context.WithoutCancel(ctx), event: event}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if s.eventType != "" && s.eventType != event.Type {
			continue
		}
		select {
		case s.queue <- d:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped, subscriber queue full", "event", string(event.Type))
		}
	}
}

// Subscribe registers a handler for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(eventType, handler)
}

// SubscribeAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add("", handler)
}

func (b *Bus) add(eventType domain.EventType, handler domain.EventHandler) func() {
	s := &subscriber{
		eventType: eventType,
		handler:   handler,
		queue:     make(chan delivery, b.buffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs[id] = s
	b.wg.Add(1)
	b.mu.Unlock()

	go b.run(s)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(s.queue)
			}
		})
	}
}

func (b *Bus) run(s *subscriber) {
	defer b.wg.Done()
	for d := range s.queue {
		b.invoke(s, d)
	}
}

func (b *Bus) invoke(s *subscriber, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(d.event.Type),
				"panic", r,
			)
		}
	}()
	s.handler(d.ctx, d.event)
}

// Dropped returns how many deliveries were discarded because a queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops accepting events, lets every subscriber drain its queue and
// waits for them to finish. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
