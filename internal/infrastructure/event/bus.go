package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/schoolledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers ledger events to in-process subscribers such as
// the audit log and the metrics recorder.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	wg       sync.WaitGroup
}

// BusOption configures an InMemoryEventBus
type BusOption func(*busOptions)

type busOptions struct {
	knownTypes []string
}

// WithKnownEventTypes makes Subscribe warn about event types outside the given set
func WithKnownEventTypes(types ...string) BusOption {
	return func(o *busOptions) {
		o.knownTypes = append(o.knownTypes, types...)
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	o := &busOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(o.knownTypes...),
		logger:   logger,
	}
}

// Publish dispatches events to all registered handlers synchronously.
// A failing handler is logged and does not stop delivery to the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.wg.Add(1)
	defer b.wg.Done()

	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatchToHandler(ctx, handler, event); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("school_id", event.SchoolID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit event types the handler's own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	if unknown := b.registry.Register(handler, eventTypes...); len(unknown) > 0 {
		b.logger.Warn("handler subscribed to unknown event types",
			zap.Strings("event_types", unknown),
		)
	}
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// SubscribedTypes returns the event types with at least one typed subscriber
func (b *InMemoryEventBus) SubscribedTypes() []string {
	return b.registry.SubscribedTypes()
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the event bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

// Stop waits for in-flight deliveries to finish
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.wg.Wait()
	b.logger.Info("event bus stopped")
	return nil
}

// dispatchToHandler converts a handler panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
