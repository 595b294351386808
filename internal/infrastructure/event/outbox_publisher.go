package event

import (
	"context"
	"fmt"

	"github.com/schoolledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher writes domain events to the outbox inside the caller's transaction
type OutboxPublisher struct {
	serializer *EventSerializer
	clock      shared.Clock
	maxRetries int
}

// OutboxPublisherOption configures an OutboxPublisher
type OutboxPublisherOption func(*OutboxPublisher)

// WithPublisherClock sets the clock used to stamp entries
func WithPublisherClock(clock shared.Clock) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		p.clock = clock
	}
}

// WithMaxRetries overrides shared.DefaultMaxRetries for new entries
func WithMaxRetries(maxRetries int) OutboxPublisherOption {
	return func(p *OutboxPublisher) {
		if maxRetries > 0 {
			p.maxRetries = maxRetries
		}
	}
}

// NewOutboxPublisher creates a new outbox publisher
func NewOutboxPublisher(serializer *EventSerializer, opts ...OutboxPublisherOption) *OutboxPublisher {
	p := &OutboxPublisher{
		serializer: serializer,
		clock:      shared.SystemClock{},
		maxRetries: shared.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishWithTx stores events in the outbox within the provided transaction,
// so they commit or roll back together with the ledger change that raised them.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	now := p.clock.Now()
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return fmt.Errorf("failed to serialize %s event: %w", event.EventType(), err)
		}

		entry := shared.NewOutboxEntry(event, payload, now)
		entry.MaxRetries = p.maxRetries
		entries = append(entries, entry)
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider any, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("txProvider must be a *gorm.DB, got %T", txProvider)
	}

	return p.PublishWithTx(ctx, tx, events...)
}

// Ensure OutboxPublisher implements OutboxEventSaver
var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
