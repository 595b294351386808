package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
)

// PromotionEvent carries the class and year pair of a promotion at the time of a transition
type PromotionEvent struct {
	shared.BaseDomainEvent
	PromotionID        uuid.UUID       `json:"promotion_id"`
	StudentID          uuid.UUID       `json:"student_id"`
	FromClassID        uuid.UUID       `json:"from_class_id"`
	ToClassID          uuid.UUID       `json:"to_class_id"`
	FromAcademicYearID uuid.UUID       `json:"from_academic_year_id"`
	ToAcademicYearID   uuid.UUID       `json:"to_academic_year_id"`
	Status             PromotionStatus `json:"status"`
	Reason             string          `json:"reason,omitempty"`
}

func newPromotionEvent(eventType string, p *StudentPromotion, reason string, actor shared.ActorRef, at time.Time) PromotionEvent {
	return PromotionEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(eventType, AggregateTypeStudentPromotion, p.ID, p.SchoolID, actor, at),
		PromotionID:        p.ID,
		StudentID:          p.StudentID,
		FromClassID:        p.FromClassID,
		ToClassID:          p.ToClassID,
		FromAcademicYearID: p.FromAcademicYearID,
		ToAcademicYearID:   p.ToAcademicYearID,
		Status:             p.Status,
		Reason:             reason,
	}
}

// PromotionCreatedEvent is raised when a promotion is requested
type PromotionCreatedEvent struct {
	PromotionEvent
}

// NewPromotionCreatedEvent creates a new PromotionCreatedEvent
func NewPromotionCreatedEvent(p *StudentPromotion, actor shared.ActorRef, at time.Time) *PromotionCreatedEvent {
	return &PromotionCreatedEvent{newPromotionEvent(EventTypePromotionCreated, p, p.Remarks, actor, at)}
}

// PromotionCompletedEvent is raised after the class pointer moved
type PromotionCompletedEvent struct {
	PromotionEvent
}

// NewPromotionCompletedEvent creates a new PromotionCompletedEvent
func NewPromotionCompletedEvent(p *StudentPromotion, actor shared.ActorRef, at time.Time) *PromotionCompletedEvent {
	return &PromotionCompletedEvent{newPromotionEvent(EventTypePromotionCompleted, p, "", actor, at)}
}

// PromotionFailedEvent is raised when processing a promotion failed
type PromotionFailedEvent struct {
	PromotionEvent
}

// NewPromotionFailedEvent creates a new PromotionFailedEvent
func NewPromotionFailedEvent(p *StudentPromotion, actor shared.ActorRef, at time.Time) *PromotionFailedEvent {
	return &PromotionFailedEvent{newPromotionEvent(EventTypePromotionFailed, p, p.FailureReason, actor, at)}
}

// PromotionRolledBackEvent is raised when a completed promotion is reverted
type PromotionRolledBackEvent struct {
	PromotionEvent
}

// NewPromotionRolledBackEvent creates a new PromotionRolledBackEvent
func NewPromotionRolledBackEvent(p *StudentPromotion, actor shared.ActorRef, at time.Time) *PromotionRolledBackEvent {
	return &PromotionRolledBackEvent{newPromotionEvent(EventTypePromotionRolledBack, p, p.RollbackReason, actor, at)}
}
