package shared

import "context"

// EventHandler handles domain events
type EventHandler interface {
	// Handle processes a domain event
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler is interested in.
	// An empty slice means the handler receives all events.
	EventTypes() []string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	// Subscribe registers a handler; with no event types the handler receives all events
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus combines publisher and subscriber capabilities
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// OutboxEventSaver saves domain events to the outbox table inside the caller's transaction.
// txProvider is the transaction handle of the persistence layer (*gorm.DB).
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, txProvider any, events ...DomainEvent) error
}

// NopEventPublisher drops events; used when no outbox is configured
type NopEventPublisher struct{}

// Publish discards the events
func (NopEventPublisher) Publish(context.Context, ...DomainEvent) error {
	return nil
}
