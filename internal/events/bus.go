// internal/events/bus.go
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler processes events of a specific type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls f(ctx, event).
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription represents an active handler registration.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}

// Bus is the in-memory event bus the engine publishes on. Delivery is
// asynchronous; publishers never block on slow subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler

	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	queue  chan Event
}

// NewBus creates a bus with the given delivery queue size and starts
// its dispatch loop.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[EventType]map[string]Handler),
		logger:   logger.Named("event-bus"),
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan Event, bufferSize),
	}

	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t EventType, h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.handlers[t] == nil {
		b.handlers[t] = make(map[string]Handler)
	}
	b.handlers[t][id] = h

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(t)),
		zap.String("subscription_id", id))

	return &subscription{id: id, bus: b, typ: t}
}

// SubscribeFunc registers a plain function for one event type.
func (b *Bus) SubscribeFunc(t EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(t, HandlerFunc(fn))
}

// Publish enqueues an event for asynchronous delivery. A full queue
// drops the event rather than blocking the trading path.
func (b *Bus) Publish(event Event) error {
	// Checked before the send: a ready Done case and a ready buffered
	// send would otherwise race inside the select, letting a publish on
	// a stopped bus succeed into a queue nobody drains.
	if b.ctx.Err() != nil {
		return fmt.Errorf("event bus is shutting down")
	}

	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is shutting down")
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())))
		return fmt.Errorf("event queue full")
	}
}

// PublishSync delivers an event to all current handlers before
// returning. Handler errors are collected, logged and reported; they
// never affect engine state.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	registered := b.handlers[event.Type()]
	handlers := make(map[string]Handler, len(registered))
	for id, h := range registered {
		handlers[id] = h
	}
	b.mu.RUnlock()

	var errs []error
	for id, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %v", errs)
	}
	return nil
}

func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			// Drain whatever is still queued before exiting.
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			if err := b.PublishSync(b.ctx, event); err != nil {
				b.logger.Error("Failed to deliver event",
					zap.String("event_type", string(event.Type())),
					zap.Error(err))
			}
		}
	}
}

func (b *Bus) unsubscribe(id string, t EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[t]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, t)
		}
	}
}

// Shutdown stops dispatching and waits for in-flight deliveries, or
// for the context to expire.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}
