package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ConcessionCreatedEvent is raised when a concession is requested
type ConcessionCreatedEvent struct {
	shared.BaseDomainEvent
	ConcessionID    uuid.UUID       `json:"concession_id"`
	StudentID       uuid.UUID       `json:"student_id"`
	Category        FeeCategory     `json:"fee_category"`
	AcademicYearID  uuid.UUID       `json:"academic_year_id"`
	CalculationType CalculationType `json:"calculation_type"`
	Value           decimal.Decimal `json:"value"`
}

// EventType returns the event type name
func (e *ConcessionCreatedEvent) EventType() string {
	return EventTypeConcessionCreated
}

// NewConcessionCreatedEvent creates a new ConcessionCreatedEvent
func NewConcessionCreatedEvent(c *Concession, actor shared.ActorRef, at time.Time) *ConcessionCreatedEvent {
	return &ConcessionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConcessionCreated, AggregateTypeConcession, c.ID, c.SchoolID, actor, at),
		ConcessionID:    c.ID,
		StudentID:       c.StudentID,
		Category:        c.Category,
		AcademicYearID:  c.AcademicYearID,
		CalculationType: c.CalculationType,
		Value:           c.Value,
	}
}

// ConcessionApprovedEvent is raised on the pending to approved transition
type ConcessionApprovedEvent struct {
	shared.BaseDomainEvent
	ConcessionID    uuid.UUID       `json:"concession_id"`
	StudentID       uuid.UUID       `json:"student_id"`
	Category        FeeCategory     `json:"fee_category"`
	CalculationType CalculationType `json:"calculation_type"`
	Value           decimal.Decimal `json:"value"`
}

// EventType returns the event type name
func (e *ConcessionApprovedEvent) EventType() string {
	return EventTypeConcessionApproved
}

// NewConcessionApprovedEvent creates a new ConcessionApprovedEvent
func NewConcessionApprovedEvent(c *Concession, actor shared.ActorRef, at time.Time) *ConcessionApprovedEvent {
	return &ConcessionApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConcessionApproved, AggregateTypeConcession, c.ID, c.SchoolID, actor, at),
		ConcessionID:    c.ID,
		StudentID:       c.StudentID,
		Category:        c.Category,
		CalculationType: c.CalculationType,
		Value:           c.Value,
	}
}

// ConcessionRejectedEvent is raised when a concession is rejected
type ConcessionRejectedEvent struct {
	shared.BaseDomainEvent
	ConcessionID uuid.UUID `json:"concession_id"`
	StudentID    uuid.UUID `json:"student_id"`
	WasApproved  bool      `json:"was_approved"`
	Reason       string    `json:"reason"`
}

// EventType returns the event type name
func (e *ConcessionRejectedEvent) EventType() string {
	return EventTypeConcessionRejected
}

// NewConcessionRejectedEvent creates a new ConcessionRejectedEvent
func NewConcessionRejectedEvent(c *Concession, wasApproved bool, actor shared.ActorRef, at time.Time) *ConcessionRejectedEvent {
	return &ConcessionRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConcessionRejected, AggregateTypeConcession, c.ID, c.SchoolID, actor, at),
		ConcessionID:    c.ID,
		StudentID:       c.StudentID,
		WasApproved:     wasApproved,
		Reason:          c.RejectionReason,
	}
}
