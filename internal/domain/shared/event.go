package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the ledger.
// Every event names the school it belongs to and the actor that caused it.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	SchoolID() uuid.UUID
	Actor() ActorRef
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	SchoolIDValue uuid.UUID `json:"school_id"`
	ActorValue    ActorRef  `json:"actor"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// SchoolID returns the owning school
func (e *BaseDomainEvent) SchoolID() uuid.UUID {
	return e.SchoolIDValue
}

// Actor returns who caused the event
func (e *BaseDomainEvent) Actor() ActorRef {
	return e.ActorValue
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggType string, aggID, schoolID uuid.UUID, actor ActorRef, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     at,
		AggID:         aggID,
		AggType:       aggType,
		SchoolIDValue: schoolID,
		ActorValue:    actor,
	}
}
