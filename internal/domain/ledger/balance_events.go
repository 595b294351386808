package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BalanceCarriedForwardEvent is raised when a year-end balance is recorded
type BalanceCarriedForwardEvent struct {
	shared.BaseDomainEvent
	BalanceID     uuid.UUID          `json:"balance_id"`
	StudentID     uuid.UUID          `json:"student_id"`
	FromYearID    uuid.UUID          `json:"from_academic_year_id"`
	ToYearID      uuid.UUID          `json:"to_academic_year_id"`
	BalanceAmount decimal.Decimal    `json:"balance_amount"`
	Source        CarryForwardSource `json:"source"`
}

// EventType returns the event type name
func (e *BalanceCarriedForwardEvent) EventType() string {
	return EventTypeBalanceCarriedForward
}

// NewBalanceCarriedForwardEvent creates a new BalanceCarriedForwardEvent
func NewBalanceCarriedForwardEvent(b *PreviousYearBalance, source CarryForwardSource, actor shared.ActorRef, at time.Time) *BalanceCarriedForwardEvent {
	return &BalanceCarriedForwardEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceCarriedForward, AggregateTypePreviousYearBalance, b.ID, b.SchoolID, actor, at),
		BalanceID:       b.ID,
		StudentID:       b.StudentID,
		FromYearID:      b.PreviousAcademicYearID,
		ToYearID:        b.AcademicYearID,
		BalanceAmount:   b.BalanceAmount,
		Source:          source,
	}
}

// BalanceAdjustedEvent carries the final balance before and after an adjustment
type BalanceAdjustedEvent struct {
	shared.BaseDomainEvent
	BalanceID        uuid.UUID       `json:"balance_id"`
	StudentID        uuid.UUID       `json:"student_id"`
	AdjustmentAmount decimal.Decimal `json:"adjustment_amount"`
	Reason           string          `json:"reason"`
	Before           decimal.Decimal `json:"final_balance_before"`
	After            decimal.Decimal `json:"final_balance_after"`
	SignFlipped      bool            `json:"sign_flipped"`
}

// EventType returns the event type name
func (e *BalanceAdjustedEvent) EventType() string {
	return EventTypeBalanceAdjusted
}

// NewBalanceAdjustedEvent creates a new BalanceAdjustedEvent
func NewBalanceAdjustedEvent(b *PreviousYearBalance, before decimal.Decimal, actor shared.ActorRef, at time.Time) *BalanceAdjustedEvent {
	return &BalanceAdjustedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeBalanceAdjusted, AggregateTypePreviousYearBalance, b.ID, b.SchoolID, actor, at),
		BalanceID:        b.ID,
		StudentID:        b.StudentID,
		AdjustmentAmount: b.AdjustmentAmount,
		Reason:           b.AdjustmentReason,
		Before:           before,
		After:            b.FinalBalance,
		SignFlipped:      before.Sign()*b.FinalBalance.Sign() < 0,
	}
}

// BalanceClearedEvent is raised when a balance is settled
type BalanceClearedEvent struct {
	shared.BaseDomainEvent
	BalanceID uuid.UUID `json:"balance_id"`
	StudentID uuid.UUID `json:"student_id"`
}

// EventType returns the event type name
func (e *BalanceClearedEvent) EventType() string {
	return EventTypeBalanceCleared
}

// NewBalanceClearedEvent creates a new BalanceClearedEvent
func NewBalanceClearedEvent(b *PreviousYearBalance, actor shared.ActorRef, at time.Time) *BalanceClearedEvent {
	return &BalanceClearedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceCleared, AggregateTypePreviousYearBalance, b.ID, b.SchoolID, actor, at),
		BalanceID:       b.ID,
		StudentID:       b.StudentID,
	}
}
