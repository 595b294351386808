package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentAppliedEvent is raised when a payment completes against a fee record
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	FeeRecordID   uuid.UUID       `json:"fee_record_id"`
	StudentID     uuid.UUID       `json:"student_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	FeeBefore     AmountSnapshot  `json:"fee_before"`
	FeeAfter      AmountSnapshot  `json:"fee_after"`
	FeeStatus     FeeStatus       `json:"fee_status"`
}

// EventType returns the event type name
func (e *PaymentAppliedEvent) EventType() string {
	return EventTypePaymentApplied
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(p *Payment, fee *FeeRecord, before AmountSnapshot, at time.Time) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, AggregateTypePayment, p.ID, p.SchoolID, p.CollectedBy, at),
		PaymentID:       p.ID,
		FeeRecordID:     fee.ID,
		StudentID:       p.StudentID,
		ReceiptNumber:   p.ReceiptNumber,
		Method:          p.Method,
		Amount:          p.Amount,
		FeeBefore:       before,
		FeeAfter:        fee.Snapshot(),
		FeeStatus:       fee.Status,
	}
}

// PaymentCancelledEvent is the compensating entry for a cancelled payment
type PaymentCancelledEvent struct {
	shared.BaseDomainEvent
	PaymentID      uuid.UUID       `json:"payment_id"`
	FeeRecordID    uuid.UUID       `json:"fee_record_id"`
	StudentID      uuid.UUID       `json:"student_id"`
	ReceiptNumber  string          `json:"receipt_number"`
	ReversedAmount decimal.Decimal `json:"reversed_amount"`
	Reason         string          `json:"reason"`
	FeeBefore      AmountSnapshot  `json:"fee_before"`
	FeeAfter       AmountSnapshot  `json:"fee_after"`
	FeeStatus      FeeStatus       `json:"fee_status"`
}

// EventType returns the event type name
func (e *PaymentCancelledEvent) EventType() string {
	return EventTypePaymentCancelled
}

// NewPaymentCancelledEvent creates a new PaymentCancelledEvent
func NewPaymentCancelledEvent(p *Payment, fee *FeeRecord, before AmountSnapshot, actor shared.ActorRef, at time.Time) *PaymentCancelledEvent {
	reversed := decimal.Zero
	if !before.Paid.Equal(fee.PaidAmount) {
		reversed = p.Amount.Neg()
	}
	return &PaymentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCancelled, AggregateTypePayment, p.ID, p.SchoolID, actor, at),
		PaymentID:       p.ID,
		FeeRecordID:     fee.ID,
		StudentID:       p.StudentID,
		ReceiptNumber:   p.ReceiptNumber,
		ReversedAmount:  reversed,
		Reason:          p.CancelReason,
		FeeBefore:       before,
		FeeAfter:        fee.Snapshot(),
		FeeStatus:       fee.Status,
	}
}
