package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BalanceStatus is the settlement state of a carried-forward balance
type BalanceStatus string

const (
	BalanceStatusPending  BalanceStatus = "pending"
	BalanceStatusAdjusted BalanceStatus = "adjusted"
	BalanceStatusCleared  BalanceStatus = "cleared"
)

// IsValid checks if the balance status is known
func (s BalanceStatus) IsValid() bool {
	return s == BalanceStatusPending || s == BalanceStatusAdjusted || s == BalanceStatusCleared
}

// IsUnresolved returns true while the balance still counts toward the student
func (s BalanceStatus) IsUnresolved() bool {
	return s != BalanceStatusCleared
}

// PreviousYearBalance is the net unresolved amount of one academic year carried into the next.
// A positive balance is owed by the student, a negative one is a credit.
type PreviousYearBalance struct {
	shared.SchoolAggregateRoot
	StudentID              uuid.UUID        `json:"student_id"`
	AcademicYearID         uuid.UUID        `json:"academic_year_id"`
	PreviousAcademicYearID uuid.UUID        `json:"previous_academic_year_id"`
	BalanceAmount          decimal.Decimal  `json:"balance_amount"`
	AdjustmentAmount       decimal.Decimal  `json:"adjustment_amount"`
	FinalBalance           decimal.Decimal  `json:"final_balance"`
	Status                 BalanceStatus    `json:"status"`
	AdjustmentReason       string           `json:"adjustment_reason,omitempty"`
	ProcessedBy            *shared.ActorRef `json:"processed_by,omitempty"`
	ProcessedAt            *time.Time       `json:"processed_at,omitempty"`
	Remarks                string           `json:"remarks,omitempty"`
}

// CarryForwardSource summarizes what a carried-forward balance was computed from
type CarryForwardSource struct {
	FeeRecordCount int             `json:"fee_record_count"`
	FeeRemaining   decimal.Decimal `json:"fee_remaining"`
	PriorBalance   decimal.Decimal `json:"prior_balance"`
}

// Total returns the amount to carry forward
func (s CarryForwardSource) Total() decimal.Decimal {
	return s.FeeRemaining.Add(s.PriorBalance)
}

// NewPreviousYearBalance records a balance carried from fromYear into toYear
func NewPreviousYearBalance(schoolID, studentID, fromYear, toYear uuid.UUID, source CarryForwardSource, actor shared.ActorRef, now time.Time) (*PreviousYearBalance, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if fromYear == uuid.Nil || toYear == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACADEMIC_YEAR", "Both academic years are required")
	}
	if fromYear == toYear {
		return nil, shared.NewDomainError("INVALID_ACADEMIC_YEAR", "Cannot carry a balance into the same academic year")
	}
	if actor.IsZero() {
		actor = shared.SystemActor
	}

	balance := source.Total()
	processedAt := now
	b := &PreviousYearBalance{
		SchoolAggregateRoot:    shared.NewSchoolAggregateRoot(schoolID, actor, now),
		StudentID:              studentID,
		AcademicYearID:         toYear,
		PreviousAcademicYearID: fromYear,
		BalanceAmount:          balance,
		AdjustmentAmount:       decimal.Zero,
		FinalBalance:           balance,
		Status:                 BalanceStatusPending,
		ProcessedBy:            shared.ActorPtr(actor),
		ProcessedAt:            &processedAt,
		Remarks: fmt.Sprintf("Carried forward from %d fee records (%s) and prior balance %s",
			source.FeeRecordCount, source.FeeRemaining.StringFixed(2), source.PriorBalance.StringFixed(2)),
	}
	b.AddDomainEvent(NewBalanceCarriedForwardEvent(b, source, actor, now))
	return b, nil
}

// Adjust replaces the adjustment and recomputes final = balance - adjustment.
// The balance moves to adjusted, which is also the only way its sign may flip.
func (b *PreviousYearBalance) Adjust(adjustment decimal.Decimal, reason string, actor shared.ActorRef, now time.Time) error {
	if b.Status == BalanceStatusCleared {
		return invalidTransition(b.ID, string(b.Status), string(BalanceStatusAdjusted))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Adjustment reason is required")
	}
	before := b.FinalBalance
	b.AdjustmentAmount = adjustment
	b.FinalBalance = b.BalanceAmount.Sub(adjustment)
	b.AdjustmentReason = reason
	b.Status = BalanceStatusAdjusted
	b.process(actor, now)
	b.AddDomainEvent(NewBalanceAdjustedEvent(b, before, actor, now))
	return nil
}

// Clear settles the balance. Only a balance whose final amount is zero can be cleared.
func (b *PreviousYearBalance) Clear(remark string, actor shared.ActorRef, now time.Time) error {
	if b.Status == BalanceStatusCleared {
		return invalidTransition(b.ID, string(b.Status), string(BalanceStatusCleared))
	}
	if !b.FinalBalance.IsZero() {
		return invalidAmount(b.ID, "final_balance", b.FinalBalance, decimal.Zero,
			fmt.Sprintf("Final balance %s must be settled before clearing", b.FinalBalance.String()))
	}
	b.Status = BalanceStatusCleared
	if remark != "" {
		b.Remarks = strings.TrimSpace(b.Remarks + "\n" + remark)
	}
	b.process(actor, now)
	b.AddDomainEvent(NewBalanceClearedEvent(b, actor, now))
	return nil
}

// Outstanding returns the amount still counting toward the student
func (b *PreviousYearBalance) Outstanding() decimal.Decimal {
	if !b.Status.IsUnresolved() {
		return decimal.Zero
	}
	return b.FinalBalance
}

func (b *PreviousYearBalance) process(actor shared.ActorRef, now time.Time) {
	processedAt := now
	b.ProcessedBy = shared.ActorPtr(actor)
	b.ProcessedAt = &processedAt
	b.Mutated(now)
}
