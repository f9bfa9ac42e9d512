package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/checkout/internal/domain/shared"
	"go.uber.org/zap"
)

var errHandlerPanicked = errors.New("event handler panicked")

// BusConfig tunes delivery of the in-memory bus
type BusConfig struct {
	// Async hands events to background goroutines; Publish returns immediately
	Async bool
	// HandlerTimeout bounds one delivery attempt
	HandlerTimeout time.Duration
	// MaxAttempts per handler, at least 1
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number between attempts
	RetryBackoff time.Duration
}

// DefaultBusConfig returns the configuration used by the server
func DefaultBusConfig() BusConfig {
	return BusConfig{
		Async:          true,
		HandlerTimeout: 10 * time.Second,
		MaxAttempts:    3,
		RetryBackoff:   500 * time.Millisecond,
	}
}

// InMemoryEventBus implements EventBus with in-process pub/sub.
// Handler errors are logged and never reach the publisher.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler

	config  BusConfig
	logger  *zap.Logger
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(config BusConfig, logger *zap.Logger) *InMemoryEventBus {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = DefaultBusConfig().HandlerTimeout
	}
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandler),
		config:   config,
		logger:   logger,
	}
}

// Publish delivers events to every matching handler
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.handlersFor(event.EventType()) {
			if !b.config.Async {
				b.deliver(ctx, handler, event)
				continue
			}
			b.wg.Add(1)
			go func(h shared.EventHandler, e shared.DomainEvent) {
				defer b.wg.Done()
				b.deliver(context.WithoutCancel(ctx), h, e)
			}(handler, event)
		}
	}
	return nil
}

// Subscribe registers a handler; no event types means the handler's own list,
// and an empty list there means every event
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
	}
	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], handler)
	}
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = without(b.wildcard, handler)
	for t, hs := range b.handlers {
		if hs = without(hs, handler); len(hs) == 0 {
			delete(b.handlers, t)
		} else {
			b.handlers[t] = hs
		}
	}
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started", zap.Bool("async", b.config.Async))
	return nil
}

// Stop waits for in-flight deliveries or until ctx is done
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stopped with deliveries in flight")
		return ctx.Err()
	}
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]shared.EventHandler, 0, len(b.handlers[eventType])+len(b.wildcard))
	out = append(out, b.handlers[eventType]...)
	return append(out, b.wildcard...)
}

func (b *InMemoryEventBus) deliver(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	var err error
	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		if err = b.attempt(ctx, handler, event); err == nil {
			return
		}
		if attempt < b.config.MaxAttempts && b.config.RetryBackoff > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.config.RetryBackoff * time.Duration(attempt)):
			}
		}
	}
	b.logger.Error("handler failed to process event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.Int("attempts", b.config.MaxAttempts),
		zap.Error(err),
	)
}

func (b *InMemoryEventBus) attempt(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			err = errHandlerPanicked
		}
	}()
	return handler.Handle(ctx, event)
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	out := handlers[:0:0]
	for _, h := range handlers {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
