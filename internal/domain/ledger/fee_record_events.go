package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type names used on events
const (
	AggregateTypeFeeRecord           = "FeeRecord"
	AggregateTypePayment             = "Payment"
	AggregateTypeConcession          = "Concession"
	AggregateTypePreviousYearBalance = "PreviousYearBalance"
	AggregateTypeStudentPromotion    = "StudentPromotion"
)

// Event type names
const (
	EventTypeFeeRecordCreated      = "FeeRecordCreated"
	EventTypeFeeAmountChanged      = "FeeAmountChanged"
	EventTypeFeeStatusChanged      = "FeeStatusChanged"
	EventTypePaymentApplied        = "PaymentApplied"
	EventTypePaymentCancelled      = "PaymentCancelled"
	EventTypeConcessionCreated     = "ConcessionCreated"
	EventTypeConcessionApproved    = "ConcessionApproved"
	EventTypeConcessionRejected    = "ConcessionRejected"
	EventTypeBalanceCarriedForward = "BalanceCarriedForward"
	EventTypeBalanceAdjusted       = "BalanceAdjusted"
	EventTypeBalanceCleared        = "BalanceCleared"
	EventTypePromotionCreated      = "PromotionCreated"
	EventTypePromotionCompleted    = "PromotionCompleted"
	EventTypePromotionFailed       = "PromotionFailed"
	EventTypePromotionRolledBack   = "PromotionRolledBack"
)

// FeeRecordCreatedEvent is raised when a fee is assigned to a student
type FeeRecordCreatedEvent struct {
	shared.BaseDomainEvent
	FeeRecordID       uuid.UUID       `json:"fee_record_id"`
	StudentID         uuid.UUID       `json:"student_id"`
	AcademicYearID    uuid.UUID       `json:"academic_year_id"`
	FeeStructureID    uuid.UUID       `json:"fee_structure_id"`
	Category          FeeCategory     `json:"fee_category"`
	BaseAmount        decimal.Decimal `json:"base_amount"`
	DueDate           time.Time       `json:"due_date"`
	InstallmentNumber int             `json:"installment_number"`
	InstallmentOf     int             `json:"installment_of"`
}

// EventType returns the event type name
func (e *FeeRecordCreatedEvent) EventType() string {
	return EventTypeFeeRecordCreated
}

// NewFeeRecordCreatedEvent creates a new FeeRecordCreatedEvent
func NewFeeRecordCreatedEvent(f *FeeRecord, actor shared.ActorRef, at time.Time) *FeeRecordCreatedEvent {
	return &FeeRecordCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeFeeRecordCreated, AggregateTypeFeeRecord, f.ID, f.SchoolID, actor, at),
		FeeRecordID:       f.ID,
		StudentID:         f.StudentID,
		AcademicYearID:    f.AcademicYearID,
		FeeStructureID:    f.FeeStructureID,
		Category:          f.Category,
		BaseAmount:        f.BaseAmount,
		DueDate:           f.DueDate,
		InstallmentNumber: f.InstallmentNumber,
		InstallmentOf:     f.InstallmentOf,
	}
}

// FeeAmountChangedEvent carries before and after amounts for every monetary mutation
type FeeAmountChangedEvent struct {
	shared.BaseDomainEvent
	FeeRecordID uuid.UUID      `json:"fee_record_id"`
	StudentID   uuid.UUID      `json:"student_id"`
	Change      AmountChange   `json:"change"`
	Reason      string         `json:"reason,omitempty"`
	Before      AmountSnapshot `json:"before"`
	After       AmountSnapshot `json:"after"`
}

// EventType returns the event type name
func (e *FeeAmountChangedEvent) EventType() string {
	return EventTypeFeeAmountChanged
}

// NewFeeAmountChangedEvent creates a new FeeAmountChangedEvent from the record's current state
func NewFeeAmountChangedEvent(f *FeeRecord, change AmountChange, reason string, before AmountSnapshot, actor shared.ActorRef, at time.Time) *FeeAmountChangedEvent {
	return &FeeAmountChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeAmountChanged, AggregateTypeFeeRecord, f.ID, f.SchoolID, actor, at),
		FeeRecordID:     f.ID,
		StudentID:       f.StudentID,
		Change:          change,
		Reason:          reason,
		Before:          before,
		After:           f.Snapshot(),
	}
}

// FeeStatusChangedEvent is raised whenever the fee status moves
type FeeStatusChangedEvent struct {
	shared.BaseDomainEvent
	FeeRecordID     uuid.UUID       `json:"fee_record_id"`
	StudentID       uuid.UUID       `json:"student_id"`
	FromStatus      FeeStatus       `json:"from_status"`
	ToStatus        FeeStatus       `json:"to_status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

// EventType returns the event type name
func (e *FeeStatusChangedEvent) EventType() string {
	return EventTypeFeeStatusChanged
}

// NewFeeStatusChangedEvent creates a new FeeStatusChangedEvent
func NewFeeStatusChangedEvent(f *FeeRecord, from FeeStatus, actor shared.ActorRef, at time.Time) *FeeStatusChangedEvent {
	return &FeeStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeStatusChanged, AggregateTypeFeeRecord, f.ID, f.SchoolID, actor, at),
		FeeRecordID:     f.ID,
		StudentID:       f.StudentID,
		FromStatus:      from,
		ToStatus:        f.Status,
		PaymentStatus:   f.PaymentStatus,
		RemainingAmount: f.RemainingAmount,
	}
}
