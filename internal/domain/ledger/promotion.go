package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
)

// PromotionStatus is the lifecycle state of a promotion
type PromotionStatus string

const (
	PromotionStatusPending    PromotionStatus = "pending"
	PromotionStatusCompleted  PromotionStatus = "completed"
	PromotionStatusFailed     PromotionStatus = "failed"
	PromotionStatusRolledBack PromotionStatus = "rolled_back"
)

// IsValid checks if the promotion status is known
func (s PromotionStatus) IsValid() bool {
	switch s {
	case PromotionStatusPending, PromotionStatusCompleted, PromotionStatusFailed, PromotionStatusRolledBack:
		return true
	}
	return false
}

// StudentPromotion moves a student from one class and academic year to the next.
// It only re-points the student's class; fee records of either year are left alone.
type StudentPromotion struct {
	shared.SchoolAggregateRoot
	StudentID          uuid.UUID        `json:"student_id"`
	FromClassID        uuid.UUID        `json:"from_class_id"`
	ToClassID          uuid.UUID        `json:"to_class_id"`
	FromAcademicYearID uuid.UUID        `json:"from_academic_year_id"`
	ToAcademicYearID   uuid.UUID        `json:"to_academic_year_id"`
	Status             PromotionStatus  `json:"status"`
	PromotedBy         shared.ActorRef  `json:"promoted_by"`
	PromotionDate      time.Time        `json:"promotion_date"`
	ProcessedAt        *time.Time       `json:"processed_at,omitempty"`
	FailureReason      string           `json:"failure_reason,omitempty"`
	RollbackReason     string           `json:"rollback_reason,omitempty"`
	RolledBackBy       *shared.ActorRef `json:"rolled_back_by,omitempty"`
	RolledBackAt       *time.Time       `json:"rolled_back_at,omitempty"`
	Remarks            string           `json:"remarks,omitempty"`
}

// NewPromotionInput describes a requested promotion
type NewPromotionInput struct {
	StudentID          uuid.UUID
	FromClassID        uuid.UUID
	ToClassID          uuid.UUID
	FromAcademicYearID uuid.UUID
	ToAcademicYearID   uuid.UUID
	PromotionDate      time.Time
	PromotedBy         shared.ActorRef
	Remarks            string
}

// NewStudentPromotion creates a pending promotion
func NewStudentPromotion(schoolID uuid.UUID, in NewPromotionInput, now time.Time) (*StudentPromotion, error) {
	if in.StudentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if in.FromClassID == uuid.Nil || in.ToClassID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CLASS", "Both classes are required")
	}
	if in.FromAcademicYearID == uuid.Nil || in.ToAcademicYearID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACADEMIC_YEAR", "Both academic years are required")
	}
	if in.FromAcademicYearID == in.ToAcademicYearID {
		return nil, shared.NewDomainError("INVALID_ACADEMIC_YEAR", "Promotion must move to a different academic year")
	}
	if in.PromotedBy.IsZero() {
		in.PromotedBy = shared.SystemActor
	}
	if in.PromotionDate.IsZero() {
		in.PromotionDate = now
	}

	p := &StudentPromotion{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID, in.PromotedBy, now),
		StudentID:           in.StudentID,
		FromClassID:         in.FromClassID,
		ToClassID:           in.ToClassID,
		FromAcademicYearID:  in.FromAcademicYearID,
		ToAcademicYearID:    in.ToAcademicYearID,
		Status:              PromotionStatusPending,
		PromotedBy:          in.PromotedBy,
		PromotionDate:       in.PromotionDate,
		Remarks:             in.Remarks,
	}
	p.AddDomainEvent(NewPromotionCreatedEvent(p, in.PromotedBy, now))
	return p, nil
}

// CanProcess returns nil if the promotion is still waiting to be applied
func (p *StudentPromotion) CanProcess() error {
	if p.Status != PromotionStatusPending {
		return invalidTransition(p.ID, string(p.Status), string(PromotionStatusCompleted))
	}
	return nil
}

// MarkCompleted records that the student's class pointer was moved
func (p *StudentPromotion) MarkCompleted(actor shared.ActorRef, now time.Time) error {
	if err := p.CanProcess(); err != nil {
		return err
	}
	processedAt := now
	p.Status = PromotionStatusCompleted
	p.ProcessedAt = &processedAt
	p.FailureReason = ""
	p.Mutated(now)
	p.AddDomainEvent(NewPromotionCompletedEvent(p, actor, now))
	return nil
}

// MarkFailed records why the promotion could not be applied
func (p *StudentPromotion) MarkFailed(reason string, actor shared.ActorRef, now time.Time) error {
	if p.Status != PromotionStatusPending {
		return invalidTransition(p.ID, string(p.Status), string(PromotionStatusFailed))
	}
	if strings.TrimSpace(reason) == "" {
		reason = "unknown failure"
	}
	processedAt := now
	p.Status = PromotionStatusFailed
	p.ProcessedAt = &processedAt
	p.FailureReason = reason
	p.Mutated(now)
	p.AddDomainEvent(NewPromotionFailedEvent(p, actor, now))
	return nil
}

// Rollback reverts a completed promotion. The caller moves the class pointer back.
func (p *StudentPromotion) Rollback(reason string, actor shared.ActorRef, now time.Time) error {
	if p.Status != PromotionStatusCompleted {
		return invalidTransition(p.ID, string(p.Status), string(PromotionStatusRolledBack))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Rollback reason is required")
	}
	rolledBackAt := now
	p.Status = PromotionStatusRolledBack
	p.RollbackReason = reason
	p.RolledBackBy = shared.ActorPtr(actor)
	p.RolledBackAt = &rolledBackAt
	p.Mutated(now)
	p.AddDomainEvent(NewPromotionRolledBackEvent(p, actor, now))
	return nil
}

// PromotionStatistics counts promotions by status for one year pair
type PromotionStatistics struct {
	FromAcademicYearID uuid.UUID `json:"from_academic_year_id"`
	ToAcademicYearID   uuid.UUID `json:"to_academic_year_id"`
	Total              int64     `json:"total"`
	Pending            int64     `json:"pending"`
	Completed          int64     `json:"completed"`
	Failed             int64     `json:"failed"`
	RolledBack         int64     `json:"rolled_back"`
}

// Add counts n promotions of the given status
func (s *PromotionStatistics) Add(status PromotionStatus, n int64) {
	switch status {
	case PromotionStatusPending:
		s.Pending += n
	case PromotionStatusCompleted:
		s.Completed += n
	case PromotionStatusFailed:
		s.Failed += n
	case PromotionStatusRolledBack:
		s.RolledBack += n
	default:
		return
	}
	s.Total += n
}
