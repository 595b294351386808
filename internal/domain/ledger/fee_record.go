package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FeeStatus represents the lifecycle status of a fee record
type FeeStatus string

const (
	FeeStatusPending   FeeStatus = "pending"
	FeeStatusOverdue   FeeStatus = "overdue"
	FeeStatusCompleted FeeStatus = "completed"
	FeeStatusCancelled FeeStatus = "cancelled"
	FeeStatusWaived    FeeStatus = "waived"
	FeeStatusVoided    FeeStatus = "voided" // soft-retired, kept for history
)

// IsValid checks if the status is a valid FeeStatus
func (s FeeStatus) IsValid() bool {
	switch s {
	case FeeStatusPending, FeeStatusOverdue, FeeStatusCompleted,
		FeeStatusCancelled, FeeStatusWaived, FeeStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of FeeStatus
func (s FeeStatus) String() string {
	return string(s)
}

// IsTerminal returns true once no further amount or payment mutation is accepted
func (s FeeStatus) IsTerminal() bool {
	return s == FeeStatusCompleted || s == FeeStatusCancelled || s == FeeStatusWaived || s == FeeStatusVoided
}

// IsClosed returns true for terminal states that recomputation never leaves
func (s FeeStatus) IsClosed() bool {
	return s == FeeStatusCancelled || s == FeeStatusWaived || s == FeeStatusVoided
}

// IsOpen returns true while the record still collects money
func (s FeeStatus) IsOpen() bool {
	return s == FeeStatusPending || s == FeeStatusOverdue
}

// PaymentStatus is derived from paid and remaining amounts only
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusFullyPaid     PaymentStatus = "fully_paid"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPartiallyPaid || s == PaymentStatusFullyPaid
}

// FeeCategory classifies what a fee is charged for
type FeeCategory string

const (
	FeeCategoryTuition       FeeCategory = "tuition"
	FeeCategoryAdmission     FeeCategory = "admission"
	FeeCategoryLibrary       FeeCategory = "library"
	FeeCategoryLaboratory    FeeCategory = "laboratory"
	FeeCategorySports        FeeCategory = "sports"
	FeeCategoryTransport     FeeCategory = "transport"
	FeeCategoryExamination   FeeCategory = "examination"
	FeeCategoryDevelopment   FeeCategory = "development"
	FeeCategoryMiscellaneous FeeCategory = "miscellaneous"
)

// IsValid checks if the category is known
func (c FeeCategory) IsValid() bool {
	switch c {
	case FeeCategoryTuition, FeeCategoryAdmission, FeeCategoryLibrary, FeeCategoryLaboratory,
		FeeCategorySports, FeeCategoryTransport, FeeCategoryExamination, FeeCategoryDevelopment,
		FeeCategoryMiscellaneous:
		return true
	}
	return false
}

// FeeType says whether a fee applies to every student
type FeeType string

const (
	FeeTypeMandatory   FeeType = "mandatory"
	FeeTypeOptional    FeeType = "optional"
	FeeTypeConditional FeeType = "conditional"
)

// IsValid checks if the fee type is known
func (t FeeType) IsValid() bool {
	return t == FeeTypeMandatory || t == FeeTypeOptional || t == FeeTypeConditional
}

// AmountChange names the kind of mutation recorded in a FeeAmountChangedEvent
type AmountChange string

const (
	AmountChangeFine              AmountChange = "fine"
	AmountChangeFineReversal      AmountChange = "fine_reversal"
	AmountChangeDiscount          AmountChange = "discount"
	AmountChangeWaiver            AmountChange = "waiver"
	AmountChangeConcession        AmountChange = "concession"
	AmountChangeConcessionRemoved AmountChange = "concession_removed"
	AmountChangePayment           AmountChange = "payment"
	AmountChangePaymentReversal   AmountChange = "payment_reversal"
)

// AmountSnapshot captures the monetary state of a fee record at one point in time
type AmountSnapshot struct {
	Base      decimal.Decimal `json:"base_amount"`
	Fine      decimal.Decimal `json:"fine_amount"`
	Discount  decimal.Decimal `json:"discount_amount"`
	Waiver    decimal.Decimal `json:"waiver_amount"`
	Total     decimal.Decimal `json:"total_amount"`
	Paid      decimal.Decimal `json:"paid_amount"`
	Remaining decimal.Decimal `json:"remaining_amount"`
}

// FeeRecord is one student's obligation for one fee-structure instance in one academic year.
//
// Amounts are composed as total = base + fine - discount - waiver and every mutator
// recomputes the derived amounts and status before returning.
type FeeRecord struct {
	shared.SchoolAggregateRoot
	StudentID         uuid.UUID            `json:"student_id"`
	FeeStructureID    uuid.UUID            `json:"fee_structure_id"`
	AcademicYearID    uuid.UUID            `json:"academic_year_id"`
	ClassID           uuid.UUID            `json:"class_id"`
	Category          FeeCategory          `json:"fee_category"`
	FeeType           FeeType              `json:"fee_type"`
	Currency          valueobject.Currency `json:"currency"`
	BaseAmount        decimal.Decimal      `json:"base_amount"`
	FineAmount        decimal.Decimal      `json:"fine_amount"`
	DiscountAmount    decimal.Decimal      `json:"discount_amount"`
	WaiverAmount      decimal.Decimal      `json:"waiver_amount"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	PaidAmount        decimal.Decimal      `json:"paid_amount"`
	RemainingAmount   decimal.Decimal      `json:"remaining_amount"`
	DueDate           time.Time            `json:"due_date"`
	Status            FeeStatus            `json:"status"`
	PaymentStatus     PaymentStatus        `json:"payment_status"`
	InstallmentNumber int                  `json:"installment_number"`
	InstallmentOf     int                  `json:"installment_of"`
	ConcessionID      *uuid.UUID           `json:"concession_id,omitempty"` // concession currently feeding the discount
	FineReason        string               `json:"fine_reason,omitempty"`
	DiscountReason    string               `json:"discount_reason,omitempty"`
	WaiverReason      string               `json:"waiver_reason,omitempty"`
	CancelReason      string               `json:"cancel_reason,omitempty"`
	Remarks           string               `json:"remarks,omitempty"`
	ApprovedBy        *shared.ActorRef     `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time           `json:"approved_at,omitempty"`
	PaidAt            *time.Time           `json:"paid_at,omitempty"`
	CancelledAt       *time.Time           `json:"cancelled_at,omitempty"`
	WaivedAt          *time.Time           `json:"waived_at,omitempty"`
	VoidedAt          *time.Time           `json:"voided_at,omitempty"`
}

// NewFeeRecordInput carries what is needed to assign a fee to a student
type NewFeeRecordInput struct {
	StudentID         uuid.UUID
	FeeStructureID    uuid.UUID
	AcademicYearID    uuid.UUID
	ClassID           uuid.UUID
	Category          FeeCategory
	FeeType           FeeType
	Currency          valueobject.Currency
	BaseAmount        decimal.Decimal
	DueDate           time.Time
	InstallmentNumber int
	InstallmentOf     int
	CreatedBy         shared.ActorRef
}

// NewFeeRecord creates a fee record. The record starts pending and unpaid, then
// goes through the same recomputation as every other mutation.
func NewFeeRecord(schoolID uuid.UUID, in NewFeeRecordInput, now time.Time) (*FeeRecord, error) {
	if schoolID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SCHOOL", "School ID cannot be empty")
	}
	if in.StudentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if in.AcademicYearID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACADEMIC_YEAR", "Academic year ID cannot be empty")
	}
	if in.Category == "" {
		in.Category = FeeCategoryTuition
	}
	if !in.Category.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEE_CATEGORY", fmt.Sprintf("Unknown fee category %q", in.Category))
	}
	if in.FeeType == "" {
		in.FeeType = FeeTypeMandatory
	}
	if !in.FeeType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEE_TYPE", fmt.Sprintf("Unknown fee type %q", in.FeeType))
	}
	if in.BaseAmount.IsNegative() {
		return nil, invalidAmount(uuid.Nil, "base_amount", decimal.Zero, in.BaseAmount, "Base amount cannot be negative")
	}
	if in.DueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if in.InstallmentNumber == 0 {
		in.InstallmentNumber = 1
	}
	if in.InstallmentOf == 0 {
		in.InstallmentOf = 1
	}
	if in.InstallmentNumber < 1 || in.InstallmentOf < 1 || in.InstallmentNumber > in.InstallmentOf {
		return nil, shared.NewDomainError("INVALID_INSTALLMENT",
			fmt.Sprintf("Installment %d of %d is not valid", in.InstallmentNumber, in.InstallmentOf))
	}
	if in.Currency == "" {
		in.Currency = valueobject.DefaultCurrency
	}
	if in.CreatedBy.IsZero() {
		in.CreatedBy = shared.SystemActor
	}

	f := &FeeRecord{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID, in.CreatedBy, now),
		StudentID:           in.StudentID,
		FeeStructureID:      in.FeeStructureID,
		AcademicYearID:      in.AcademicYearID,
		ClassID:             in.ClassID,
		Category:            in.Category,
		FeeType:             in.FeeType,
		Currency:            in.Currency,
		BaseAmount:          in.BaseAmount,
		FineAmount:          decimal.Zero,
		DiscountAmount:      decimal.Zero,
		WaiverAmount:        decimal.Zero,
		PaidAmount:          decimal.Zero,
		DueDate:             in.DueDate,
		Status:              FeeStatusPending,
		PaymentStatus:       PaymentStatusUnpaid,
		InstallmentNumber:   in.InstallmentNumber,
		InstallmentOf:       in.InstallmentOf,
	}
	f.recomputeAmounts()
	f.AddDomainEvent(NewFeeRecordCreatedEvent(f, in.CreatedBy, now))
	f.RecomputeStatus(now, in.CreatedBy)

	return f, nil
}

// Snapshot returns the current monetary state
func (f *FeeRecord) Snapshot() AmountSnapshot {
	return AmountSnapshot{
		Base:      f.BaseAmount,
		Fine:      f.FineAmount,
		Discount:  f.DiscountAmount,
		Waiver:    f.WaiverAmount,
		Total:     f.TotalAmount,
		Paid:      f.PaidAmount,
		Remaining: f.RemainingAmount,
	}
}

// recomputeAmounts derives total and remaining from the stored components
func (f *FeeRecord) recomputeAmounts() {
	f.TotalAmount = f.BaseAmount.Add(f.FineAmount).Sub(f.DiscountAmount).Sub(f.WaiverAmount)
	remaining := f.TotalAmount.Sub(f.PaidAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	f.RemainingAmount = remaining
}

// derivePaymentStatus is a function of remaining and paid only
func derivePaymentStatus(remaining, paid decimal.Decimal) PaymentStatus {
	switch {
	case remaining.IsZero():
		return PaymentStatusFullyPaid
	case paid.IsPositive():
		return PaymentStatusPartiallyPaid
	default:
		return PaymentStatusUnpaid
	}
}

// deriveStatus computes the status implied by the current amounts at the given instant.
// Cancelled, waived and voided records keep their status.
func (f *FeeRecord) deriveStatus(now time.Time) FeeStatus {
	if f.Status.IsClosed() {
		return f.Status
	}
	if f.RemainingAmount.IsZero() {
		return FeeStatusCompleted
	}
	if now.After(f.DueDate) {
		return FeeStatusOverdue
	}
	return FeeStatusPending
}

// IsOverdueAt reports whether the record is past due with money outstanding
func (f *FeeRecord) IsOverdueAt(now time.Time) bool {
	return !f.Status.IsClosed() && f.RemainingAmount.IsPositive() && now.After(f.DueDate)
}

// RecomputeStatus re-derives amounts, payment status and status. It is idempotent:
// calling it again with unchanged inputs changes nothing and raises no event.
// It returns true if the status changed.
func (f *FeeRecord) RecomputeStatus(now time.Time, actor shared.ActorRef) bool {
	f.recomputeAmounts()
	f.PaymentStatus = derivePaymentStatus(f.RemainingAmount, f.PaidAmount)

	next := f.deriveStatus(now)
	if next == f.Status {
		return false
	}
	previous := f.Status
	f.Status = next
	switch {
	case next == FeeStatusCompleted:
		paidAt := now
		f.PaidAt = &paidAt
	case previous == FeeStatusCompleted:
		f.PaidAt = nil
	}
	f.AddDomainEvent(NewFeeStatusChangedEvent(f, previous, actor, now))
	return true
}

// RefreshStatus recomputes the status and, when it changed, bumps the version
func (f *FeeRecord) RefreshStatus(now time.Time, actor shared.ActorRef) bool {
	if !f.RecomputeStatus(now, actor) {
		return false
	}
	f.Mutated(now)
	return true
}

func (f *FeeRecord) ensureMutable(action string) error {
	if f.Status.IsTerminal() {
		return terminalState(f.ID, f.Status, action)
	}
	return nil
}

// commit finishes an amount mutation: recompute, record the change and bump the version
func (f *FeeRecord) commit(change AmountChange, reason string, before AmountSnapshot, actor shared.ActorRef, now time.Time) {
	f.recomputeAmounts()
	f.AddDomainEvent(NewFeeAmountChangedEvent(f, change, reason, before, actor, now))
	f.RecomputeStatus(now, actor)
	f.Mutated(now)
}

func (f *FeeRecord) appendRemark(line string) {
	if f.Remarks == "" {
		f.Remarks = line
		return
	}
	f.Remarks = strings.Join([]string{f.Remarks, line}, "\n")
}

// composedTotal returns the total the record would have with the given discount and waiver
func (f *FeeRecord) composedTotal(discount, waiver decimal.Decimal) decimal.Decimal {
	return f.BaseAmount.Add(f.FineAmount).Sub(discount).Sub(waiver)
}

// ApplyFine adds to the accumulated fine
func (f *FeeRecord) ApplyFine(amount decimal.Decimal, reason string, actor shared.ActorRef, now time.Time) error {
	if err := f.ensureMutable("fine"); err != nil {
		return err
	}
	if amount.IsNegative() {
		return invalidAmount(f.ID, "fine_amount", f.FineAmount, amount, "Fine amount cannot be negative")
	}

	before := f.Snapshot()
	f.FineAmount = f.FineAmount.Add(amount)
	f.FineReason = reason
	f.appendRemark("Fine applied: " + reason)
	f.commit(AmountChangeFine, reason, before, actor, now)
	return nil
}

// ReverseFine removes part of the accumulated fine. This is the only path that lowers it.
func (f *FeeRecord) ReverseFine(amount decimal.Decimal, reason string, actor shared.ActorRef, now time.Time) error {
	if err := f.ensureMutable("reverse fine on"); err != nil {
		return err
	}
	if amount.IsNegative() || amount.GreaterThan(f.FineAmount) {
		return invalidAmount(f.ID, "fine_amount", f.FineAmount, amount, "Fine reversal must be between zero and the accumulated fine")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Fine reversal reason is required")
	}
	if f.composedTotal(f.DiscountAmount, f.WaiverAmount).Sub(amount).IsNegative() {
		return invalidAmount(f.ID, "fine_amount", f.FineAmount, amount, "Fine reversal would make the total negative")
	}

	before := f.Snapshot()
	f.FineAmount = f.FineAmount.Sub(amount)
	f.appendRemark("Fine reversed: " + reason)
	f.commit(AmountChangeFineReversal, reason, before, actor, now)
	return nil
}

// ApplyDiscount sets the discount. The new value replaces any earlier discount.
func (f *FeeRecord) ApplyDiscount(amount decimal.Decimal, reason string, actor shared.ActorRef, now time.Time) error {
	if err := f.ensureMutable("discount"); err != nil {
		return err
	}
	if err := f.checkReduction("discount_amount", f.DiscountAmount, amount, f.WaiverAmount); err != nil {
		return err
	}

	before := f.Snapshot()
	f.DiscountAmount = amount
	f.DiscountReason = reason
	f.ConcessionID = nil
	f.appendRemark("Discount applied: " + reason)
	f.commit(AmountChangeDiscount, reason, before, actor, now)
	return nil
}

// ApplyWaiver sets the waiver. The new value replaces any earlier waiver.
func (f *FeeRecord) ApplyWaiver(amount decimal.Decimal, reason string, actor shared.ActorRef, now time.Time) error {
	if err := f.ensureMutable("waive amount on"); err != nil {
		return err
	}
	if err := f.checkReduction("waiver_amount", f.WaiverAmount, amount, f.DiscountAmount); err != nil {
		return err
	}

	before := f.Snapshot()
	f.WaiverAmount = amount
	f.WaiverReason = reason
	f.appendRemark("Waiver applied: " + reason)
	f.commit(AmountChangeWaiver, reason, before, actor, now)
	return nil
}

// checkReduction validates a discount or waiver: within [0, base] and total stays >= 0
func (f *FeeRecord) checkReduction(field string, current, amount, other decimal.Decimal) error {
	if amount.IsNegative() {
		return invalidAmount(f.ID, field, current, amount, "Amount cannot be negative")
	}
	if amount.GreaterThan(f.BaseAmount) {
		return invalidAmount(f.ID, field, current, amount,
			fmt.Sprintf("Amount %s exceeds base amount %s", amount.String(), f.BaseAmount.String()))
	}
	if f.BaseAmount.Add(f.FineAmount).Sub(amount).Sub(other).IsNegative() {
		return invalidAmount(f.ID, field, current, amount, "Discount and waiver together exceed the fee total")
	}
	return nil
}

// ApplyConcession feeds an approved concession's resolved amount into the discount.
// The amount is capped so the total never goes below zero.
func (f *FeeRecord) ApplyConcession(concessionID uuid.UUID, amount decimal.Decimal, name string, actor shared.ActorRef, now time.Time) error {
	if err := f.ensureMutable("apply concession to"); err != nil {
		return err
	}
	if amount.IsNegative() {
		return invalidAmount(f.ID, "discount_amount", f.DiscountAmount, amount, "Concession amount cannot be negative")
	}
	ceiling := decimal.Min(f.BaseAmount, f.BaseAmount.Add(f.FineAmount).Sub(f.WaiverAmount))
	if ceiling.IsNegative() {
		ceiling = decimal.Zero
	}
	amount = decimal.Min(amount, ceiling)

	if f.ConcessionID != nil && *f.ConcessionID == concessionID && f.DiscountAmount.Equal(amount) {
		return nil
	}

	before := f.Snapshot()
	id := concessionID
	f.ConcessionID = &id
	f.DiscountAmount = amount
	f.DiscountReason = "Concession: " + name
	f.ApprovedBy = shared.ActorPtr(actor)
	approvedAt := now
	f.ApprovedAt = &approvedAt
	f.appendRemark("Discount applied: concession " + name)
	f.commit(AmountChangeConcession, name, before, actor, now)
	return nil
}

// RemoveConcession drops the discount contributed by the given concession.
// It returns false when that concession is not the one feeding the discount.
// A completed record reopens when the restored total exceeds what was paid;
// cancelled, waived and voided records are never touched.
func (f *FeeRecord) RemoveConcession(concessionID uuid.UUID, reason string, actor shared.ActorRef, now time.Time) (bool, error) {
	if f.ConcessionID == nil || *f.ConcessionID != concessionID {
		return false, nil
	}
	if f.Status.IsClosed() {
		return false, terminalState(f.ID, f.Status, "remove concession from")
	}

	before := f.Snapshot()
	f.ConcessionID = nil
	f.DiscountAmount = decimal.Zero
	f.DiscountReason = ""
	f.appendRemark("Concession removed: " + reason)
	f.commit(AmountChangeConcessionRemoved, reason, before, actor, now)
	return true, nil
}

// Cancel closes the record. The remaining balance is no longer collectible.
func (f *FeeRecord) Cancel(reason string, actor shared.ActorRef, now time.Time) error {
	if err := f.ensureMutable("cancel"); err != nil {
		return err
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	f.close(FeeStatusCancelled, actor, now)
	f.CancelReason = reason
	cancelledAt := now
	f.CancelledAt = &cancelledAt
	f.appendRemark("Cancelled: " + reason)
	return nil
}

// WaiveAll administratively waives the whole obligation
func (f *FeeRecord) WaiveAll(reason string, actor shared.ActorRef, now time.Time) error {
	if err := f.ensureMutable("waive"); err != nil {
		return err
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Waive reason is required")
	}
	f.close(FeeStatusWaived, actor, now)
	f.WaiverReason = reason
	waivedAt := now
	f.WaivedAt = &waivedAt
	f.appendRemark("Waived: " + reason)
	return nil
}

// Void soft-retires the record. Voided records stay queryable but count for nothing.
func (f *FeeRecord) Void(reason string, actor shared.ActorRef, now time.Time) error {
	if f.Status == FeeStatusVoided {
		return invalidTransition(f.ID, string(f.Status), string(FeeStatusVoided))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}
	f.close(FeeStatusVoided, actor, now)
	voidedAt := now
	f.VoidedAt = &voidedAt
	f.appendRemark("Voided: " + reason)
	return nil
}

func (f *FeeRecord) close(status FeeStatus, actor shared.ActorRef, now time.Time) {
	previous := f.Status
	f.Status = status
	f.AddDomainEvent(NewFeeStatusChangedEvent(f, previous, actor, now))
	f.Mutated(now)
}

// CanAcceptPayment returns nil when a payment of amount may be applied
func (f *FeeRecord) CanAcceptPayment(amount decimal.Decimal) error {
	if err := f.ensureMutable("apply payment to"); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return invalidAmount(f.ID, "amount", f.RemainingAmount, amount, "Payment amount must be positive")
	}
	if amount.GreaterThan(f.RemainingAmount) {
		return shared.NewDomainError(CodeOverpaymentRejected,
			fmt.Sprintf("Payment %s exceeds remaining amount %s", amount.String(), f.RemainingAmount.String())).
			WithDetail("record_id", f.ID.String()).
			WithDetail("field", "remaining_amount").
			WithDetail("current", f.RemainingAmount.String()).
			WithDetail("attempted", amount.String())
	}
	return nil
}

// ApplyPayment adds a completed payment to the paid amount
func (f *FeeRecord) ApplyPayment(amount decimal.Decimal, receiptNumber string, actor shared.ActorRef, now time.Time) error {
	if err := f.CanAcceptPayment(amount); err != nil {
		return err
	}
	before := f.Snapshot()
	f.PaidAmount = f.PaidAmount.Add(amount)
	f.commit(AmountChangePayment, "Receipt "+receiptNumber, before, actor, now)
	return nil
}

// RevertPayment removes a cancelled payment from the paid amount. A completed record only
// accepts this through the explicit reversal path (allowReversal); closed records never do.
func (f *FeeRecord) RevertPayment(amount decimal.Decimal, reason string, allowReversal bool, actor shared.ActorRef, now time.Time) error {
	if f.Status.IsClosed() || (f.Status == FeeStatusCompleted && !allowReversal) {
		return terminalState(f.ID, f.Status, "reverse payment on")
	}
	if !amount.IsPositive() || amount.GreaterThan(f.PaidAmount) {
		return invalidAmount(f.ID, "paid_amount", f.PaidAmount, amount, "Reversal must be positive and within the paid amount")
	}
	before := f.Snapshot()
	f.PaidAmount = f.PaidAmount.Sub(amount)
	f.appendRemark("Payment reversed: " + reason)
	f.commit(AmountChangePaymentReversal, reason, before, actor, now)
	return nil
}

// SyncPaidAmount replaces the paid amount with the sum of completed payments.
// Used by reconciliation when stored and derived values disagree.
func (f *FeeRecord) SyncPaidAmount(completedSum decimal.Decimal, now time.Time) bool {
	if f.PaidAmount.Equal(completedSum) {
		return false
	}
	before := f.Snapshot()
	f.PaidAmount = completedSum
	f.commit(AmountChangePayment, "reconciled with completed payments", before, shared.SystemActor, now)
	return true
}

// Collectible returns the amount that still counts toward a student's balance
func (f *FeeRecord) Collectible() decimal.Decimal {
	if f.Status.IsClosed() {
		return decimal.Zero
	}
	return f.RemainingAmount
}

// GetRemainingMoney returns the remaining amount as Money
func (f *FeeRecord) GetRemainingMoney() valueobject.Money {
	return valueobject.MustMoney(f.RemainingAmount, f.Currency)
}

// GetBaseMoney returns the base amount as Money
func (f *FeeRecord) GetBaseMoney() valueobject.Money {
	return valueobject.MustMoney(f.BaseAmount, f.Currency)
}
