package shared

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides versioning for optimistic locking and pending domain events
type BaseAggregateRoot struct {
	BaseEntity
	Version          int
	persistedVersion int
	domainEvents     []DomainEvent
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// PersistedVersion returns the version last read from or written to storage.
// Zero means the aggregate has never been stored.
func (a *BaseAggregateRoot) PersistedVersion() int {
	return a.persistedVersion
}

// MarkPersisted records the current version as the stored one
func (a *BaseAggregateRoot) MarkPersisted() {
	a.persistedVersion = a.Version
}

// IsDirty reports whether the version moved past the stored one
func (a *BaseAggregateRoot) IsDirty() bool {
	return a.Version != a.persistedVersion
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root at version 1
func NewBaseAggregateRoot(at time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(at),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// SchoolAggregateRoot scopes an aggregate to a single school.
// The school is always passed explicitly by the caller and never inferred.
type SchoolAggregateRoot struct {
	BaseAggregateRoot
	SchoolID  uuid.UUID
	CreatedBy ActorRef
}

// NewSchoolAggregateRoot creates a new school-scoped aggregate root
func NewSchoolAggregateRoot(schoolID uuid.UUID, createdBy ActorRef, at time.Time) SchoolAggregateRoot {
	return SchoolAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(at),
		SchoolID:          schoolID,
		CreatedBy:         createdBy,
	}
}

// BelongsTo reports whether the aggregate is owned by the given school
func (s *SchoolAggregateRoot) BelongsTo(schoolID uuid.UUID) bool {
	return s.SchoolID == schoolID
}

// Mutated touches UpdatedAt and bumps the version once per unit of work:
// several mutations before the next save share one increment.
func (s *SchoolAggregateRoot) Mutated(at time.Time) {
	s.Touch(at)
	if !s.IsDirty() {
		s.IncrementVersion()
	}
}
