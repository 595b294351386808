package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how the funds were received
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodCard         PaymentMethod = "card"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodOnline, PaymentMethodCheque,
		PaymentMethodBankTransfer, PaymentMethodUPI, PaymentMethodCard:
		return true
	}
	return false
}

// PaymentRecordStatus is the status of a single payment
type PaymentRecordStatus string

const (
	PaymentRecordStatusPending   PaymentRecordStatus = "pending"
	PaymentRecordStatusCompleted PaymentRecordStatus = "completed"
	PaymentRecordStatusCancelled PaymentRecordStatus = "cancelled"
)

// IsValid checks if the payment record status is valid
func (s PaymentRecordStatus) IsValid() bool {
	return s == PaymentRecordStatusPending || s == PaymentRecordStatusCompleted || s == PaymentRecordStatusCancelled
}

// Payment is one funds-received event against exactly one fee record.
// Only completed payments count toward the fee record's paid amount.
// A completed payment is never deleted; cancelling it is a compensating reversal.
type Payment struct {
	shared.SchoolAggregateRoot
	FeeRecordID      uuid.UUID           `json:"fee_record_id"`
	StudentID        uuid.UUID           `json:"student_id"`
	Amount           decimal.Decimal     `json:"amount"`
	LateFeeComponent decimal.Decimal     `json:"late_fee_component"`
	Method           PaymentMethod       `json:"method"`
	ReceiptNumber    string              `json:"receipt_number"`
	TransactionID    string              `json:"transaction_id,omitempty"`
	ChequeNumber     string              `json:"cheque_number,omitempty"`
	BankName         string              `json:"bank_name,omitempty"`
	PaymentDate      time.Time           `json:"payment_date"`
	CollectedBy      shared.ActorRef     `json:"collected_by"`
	Status           PaymentRecordStatus `json:"status"`
	ProcessedAt      *time.Time          `json:"processed_at,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	CancelledBy      *shared.ActorRef    `json:"cancelled_by,omitempty"`
	CancelReason     string              `json:"cancel_reason,omitempty"`
	Remarks          string              `json:"remarks,omitempty"`
}

// NewPaymentInput carries the details of received funds
type NewPaymentInput struct {
	FeeRecordID      uuid.UUID
	Amount           decimal.Decimal
	LateFeeComponent decimal.Decimal
	Method           PaymentMethod
	ReceiptNumber    string
	TransactionID    string
	ChequeNumber     string
	BankName         string
	PaymentDate      time.Time
	CollectedBy      shared.ActorRef
	Remarks          string
}

// NewPayment creates a pending payment for the given fee record
func NewPayment(fee *FeeRecord, in NewPaymentInput, now time.Time) (*Payment, error) {
	if fee == nil {
		return nil, shared.NewDomainError("INVALID_FEE_RECORD", "Fee record is required")
	}
	receipt := strings.TrimSpace(in.ReceiptNumber)
	if receipt == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if len(receipt) > 50 {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot exceed 50 characters")
	}
	if !in.Amount.IsPositive() {
		return nil, invalidAmount(fee.ID, "amount", fee.RemainingAmount, in.Amount, "Payment amount must be positive")
	}
	if in.LateFeeComponent.IsNegative() || in.LateFeeComponent.GreaterThan(in.Amount) {
		return nil, invalidAmount(fee.ID, "late_fee_component", decimal.Zero, in.LateFeeComponent,
			"Late fee component must be between zero and the payment amount")
	}
	if !in.Method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", in.Method))
	}
	if in.Method == PaymentMethodCheque && strings.TrimSpace(in.ChequeNumber) == "" {
		return nil, shared.NewDomainError("INVALID_CHEQUE_NUMBER", "Cheque number is required for cheque payments")
	}
	if in.CollectedBy.IsZero() {
		in.CollectedBy = shared.SystemActor
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = now
	}

	return &Payment{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(fee.SchoolID, in.CollectedBy, now),
		FeeRecordID:         fee.ID,
		StudentID:           fee.StudentID,
		Amount:              in.Amount,
		LateFeeComponent:    in.LateFeeComponent,
		Method:              in.Method,
		ReceiptNumber:       receipt,
		TransactionID:       in.TransactionID,
		ChequeNumber:        in.ChequeNumber,
		BankName:            in.BankName,
		PaymentDate:         in.PaymentDate,
		CollectedBy:         in.CollectedBy,
		Status:              PaymentRecordStatusPending,
		Remarks:             in.Remarks,
	}, nil
}

// IsCompleted returns true if the payment counts toward the paid amount
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentRecordStatusCompleted
}

func (p *Payment) markCompleted(now time.Time) error {
	if p.Status != PaymentRecordStatusPending {
		return invalidTransition(p.ID, string(p.Status), string(PaymentRecordStatusCompleted))
	}
	processedAt := now
	p.Status = PaymentRecordStatusCompleted
	p.ProcessedAt = &processedAt
	p.Mutated(now)
	return nil
}

func (p *Payment) markCancelled(reason string, actor shared.ActorRef, now time.Time) error {
	if p.Status == PaymentRecordStatusCancelled {
		return invalidTransition(p.ID, string(p.Status), string(PaymentRecordStatusCancelled))
	}
	cancelledAt := now
	p.Status = PaymentRecordStatusCancelled
	p.CancelledAt = &cancelledAt
	p.CancelledBy = shared.ActorPtr(actor)
	p.CancelReason = reason
	p.Mutated(now)
	return nil
}

// ApplyPayment completes the payment and applies it to its fee record as one unit.
// On error neither the payment nor the fee record is modified.
func ApplyPayment(fee *FeeRecord, p *Payment, now time.Time) error {
	if p.FeeRecordID != fee.ID || p.SchoolID != fee.SchoolID {
		return shared.NewDomainError("PAYMENT_MISMATCH", "Payment does not belong to this fee record")
	}
	if p.Status != PaymentRecordStatusPending {
		return invalidTransition(p.ID, string(p.Status), string(PaymentRecordStatusCompleted))
	}
	if err := fee.CanAcceptPayment(p.Amount); err != nil {
		return err
	}

	before := fee.Snapshot()
	if err := fee.ApplyPayment(p.Amount, p.ReceiptNumber, p.CollectedBy, now); err != nil {
		return err
	}
	if err := p.markCompleted(now); err != nil {
		return err
	}
	p.AddDomainEvent(NewPaymentAppliedEvent(p, fee, before, now))
	return nil
}

// CancelPayment cancels a payment and removes it from the fee record's paid amount.
// Completed fee records only allow this through the explicit reversal path.
func CancelPayment(fee *FeeRecord, p *Payment, reason string, allowReversal bool, actor shared.ActorRef, now time.Time) error {
	if p.FeeRecordID != fee.ID || p.SchoolID != fee.SchoolID {
		return shared.NewDomainError("PAYMENT_MISMATCH", "Payment does not belong to this fee record")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	if p.Status == PaymentRecordStatusCancelled {
		return invalidTransition(p.ID, string(p.Status), string(PaymentRecordStatusCancelled))
	}

	before := fee.Snapshot()
	if p.IsCompleted() {
		if err := fee.RevertPayment(p.Amount, reason, allowReversal, actor, now); err != nil {
			return err
		}
	}
	if err := p.markCancelled(reason, actor, now); err != nil {
		return err
	}
	p.AddDomainEvent(NewPaymentCancelledEvent(p, fee, before, actor, now))
	return nil
}
