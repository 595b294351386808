package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

// Retry defaults for outbox delivery
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// OutboxEntry is a ledger event persisted in the same transaction as the change that raised it
type OutboxEntry struct {
	ID            uuid.UUID
	SchoolID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry creates a pending outbox entry for a domain event
func NewOutboxEntry(event DomainEvent, payload []byte, at time.Time) *OutboxEntry {
	return &OutboxEntry{
		ID:            uuid.New(),
		SchoolID:      event.SchoolID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

// CanRetry returns true if a failed entry still has attempts left
func (e *OutboxEntry) CanRetry() bool {
	return e.Status == OutboxStatusFailed && e.RetryCount < e.MaxRetries
}

// MarkProcessing claims the entry for delivery
func (e *OutboxEntry) MarkProcessing(at time.Time) error {
	if e.Status != OutboxStatusPending && e.Status != OutboxStatusFailed {
		return errors.New("can only mark pending or failed entries as processing")
	}
	e.Status = OutboxStatusProcessing
	e.UpdatedAt = at
	return nil
}

// MarkSent records successful delivery
func (e *OutboxEntry) MarkSent(at time.Time) {
	e.Status = OutboxStatusSent
	e.ProcessedAt = &at
	e.UpdatedAt = at
}

// MarkFailed records a delivery failure and schedules the next attempt.
// Entries that exhaust MaxRetries become dead letters.
func (e *OutboxEntry) MarkFailed(errMsg string, at time.Time) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = at

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := at.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// RetryBackoff returns the delay before attempt n (1-based): 1s, 2s, 4s ... capped at MaxBackoff
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := DefaultBaseBackoff << uint(attempt-1)
	if backoff <= 0 || backoff > MaxBackoff {
		return MaxBackoff
	}
	return backoff
}

// ResetForRetry moves a dead letter back to pending
func (e *OutboxEntry) ResetForRetry(at time.Time) error {
	if e.Status != OutboxStatusDead {
		return errors.New("can only retry dead letter entries")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = at
	return nil
}

// IsDead returns true if the entry is a dead letter
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository defines outbox persistence
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending retrieves pending entries up to the limit, oldest first
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable retrieves failed entries due for retry before the given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	// MarkProcessing atomically claims entries and returns those claimed
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
