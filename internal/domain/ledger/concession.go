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

// CalculationType says how a concession's value is interpreted
type CalculationType string

const (
	CalculationTypePercentage CalculationType = "percentage"
	CalculationTypeFixed      CalculationType = "fixed"
)

// IsValid checks if the calculation type is known
func (c CalculationType) IsValid() bool {
	return c == CalculationTypePercentage || c == CalculationTypeFixed
}

// ConcessionStatus is the approval state of a concession
type ConcessionStatus string

const (
	ConcessionStatusPending  ConcessionStatus = "pending"
	ConcessionStatusApproved ConcessionStatus = "approved"
	ConcessionStatusRejected ConcessionStatus = "rejected"
)

// IsValid checks if the status is known
func (s ConcessionStatus) IsValid() bool {
	return s == ConcessionStatusPending || s == ConcessionStatusApproved || s == ConcessionStatusRejected
}

var maxPercentage = decimal.NewFromInt(100)

// Concession is an approval-gated reduction on one fee category for one student and year.
// Only approved, unexpired concessions contribute to a fee record's discount.
type Concession struct {
	shared.SchoolAggregateRoot
	StudentID       uuid.UUID        `json:"student_id"`
	Category        FeeCategory      `json:"fee_category"`
	AcademicYearID  uuid.UUID        `json:"academic_year_id"`
	Name            string           `json:"name"`
	ConcessionType  string           `json:"concession_type,omitempty"` // sibling, merit, staff ...
	CalculationType CalculationType  `json:"calculation_type"`
	Value           decimal.Decimal  `json:"value"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
	Status          ConcessionStatus `json:"status"`
	ApprovedBy      *shared.ActorRef `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	RejectedBy      *shared.ActorRef `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
}

// NewConcessionInput carries the fields of a concession request
type NewConcessionInput struct {
	StudentID       uuid.UUID
	Category        FeeCategory
	AcademicYearID  uuid.UUID
	Name            string
	ConcessionType  string
	CalculationType CalculationType
	Value           decimal.Decimal
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	RequestedBy     shared.ActorRef
}

// NewConcession creates a pending concession. Fixed values are checked against the
// base amount of matching fee records separately, see ValidateAgainstBase.
func NewConcession(schoolID uuid.UUID, in NewConcessionInput, now time.Time) (*Concession, error) {
	if in.StudentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if in.AcademicYearID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACADEMIC_YEAR", "Academic year ID cannot be empty")
	}
	if !in.Category.IsValid() {
		return nil, shared.NewDomainError("INVALID_FEE_CATEGORY", fmt.Sprintf("Unknown fee category %q", in.Category))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Concession name cannot be empty")
	}
	if !in.CalculationType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CALCULATION_TYPE", fmt.Sprintf("Unknown calculation type %q", in.CalculationType))
	}
	if in.Value.IsNegative() {
		return nil, invalidAmount(uuid.Nil, "value", decimal.Zero, in.Value, "Concession value cannot be negative")
	}
	if in.CalculationType == CalculationTypePercentage && in.Value.GreaterThan(maxPercentage) {
		return nil, invalidAmount(uuid.Nil, "value", maxPercentage, in.Value, "Percentage concession cannot exceed 100")
	}
	if in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom) {
		return nil, shared.NewDomainError("INVALID_VALIDITY", "Valid until must not be before valid from")
	}
	if in.RequestedBy.IsZero() {
		in.RequestedBy = shared.SystemActor
	}

	c := &Concession{
		SchoolAggregateRoot: shared.NewSchoolAggregateRoot(schoolID, in.RequestedBy, now),
		StudentID:           in.StudentID,
		Category:            in.Category,
		AcademicYearID:      in.AcademicYearID,
		Name:                name,
		ConcessionType:      in.ConcessionType,
		CalculationType:     in.CalculationType,
		Value:               in.Value,
		ValidFrom:           in.ValidFrom,
		ValidUntil:          in.ValidUntil,
		Status:              ConcessionStatusPending,
	}
	c.AddDomainEvent(NewConcessionCreatedEvent(c, in.RequestedBy, now))
	return c, nil
}

// ValidateAgainstBase checks a fixed value against the base amount it will reduce
func (c *Concession) ValidateAgainstBase(base decimal.Decimal) error {
	if c.CalculationType == CalculationTypeFixed && c.Value.GreaterThan(base) {
		return invalidAmount(c.ID, "value", base, c.Value, "Fixed concession cannot exceed the base amount")
	}
	return nil
}

// ResolveAmount returns the discount this concession contributes on the given base:
// base*value/100 rounded half-up to the minor unit for percentage, min(value, base) for fixed.
func (c *Concession) ResolveAmount(base valueobject.Money) valueobject.Money {
	if c.CalculationType == CalculationTypePercentage {
		return base.Percentage(c.Value)
	}
	fixed := valueobject.MustMoney(c.Value, base.Currency())
	resolved, _ := fixed.Min(base)
	return resolved.FloorAtZero()
}

// IsWithinValidity reports whether now falls inside the validity window
func (c *Concession) IsWithinValidity(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// IsActiveAt returns true if the concession is approved and unexpired
func (c *Concession) IsActiveAt(now time.Time) bool {
	return c.Status == ConcessionStatusApproved && (c.ValidUntil == nil || !now.After(*c.ValidUntil))
}

// BlocksNewConcession reports whether this concession prevents another one on the same scope
func (c *Concession) BlocksNewConcession(now time.Time) bool {
	return c.Status == ConcessionStatusPending || c.IsActiveAt(now)
}

// Approve moves a pending concession to approved. Approving an approved concession
// is a no-op and returns false.
func (c *Concession) Approve(approver shared.ActorRef, now time.Time) (bool, error) {
	switch c.Status {
	case ConcessionStatusApproved:
		return false, nil
	case ConcessionStatusRejected:
		return false, invalidTransition(c.ID, string(c.Status), string(ConcessionStatusApproved))
	}
	if err := approver.Validate(); err != nil {
		return false, err
	}
	approvedAt := now
	c.Status = ConcessionStatusApproved
	c.ApprovedBy = shared.ActorPtr(approver)
	c.ApprovedAt = &approvedAt
	c.Mutated(now)
	c.AddDomainEvent(NewConcessionApprovedEvent(c, approver, now))
	return true, nil
}

// Reject moves a pending or approved concession to rejected.
// It returns whether the concession had been approved, i.e. may be feeding discounts.
func (c *Concession) Reject(approver shared.ActorRef, reason string, now time.Time) (bool, error) {
	if c.Status == ConcessionStatusRejected {
		return false, invalidTransition(c.ID, string(c.Status), string(ConcessionStatusRejected))
	}
	if strings.TrimSpace(reason) == "" {
		return false, shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	if err := approver.Validate(); err != nil {
		return false, err
	}
	wasApproved := c.Status == ConcessionStatusApproved
	rejectedAt := now
	c.Status = ConcessionStatusRejected
	c.RejectedBy = shared.ActorPtr(approver)
	c.RejectedAt = &rejectedAt
	c.RejectionReason = reason
	c.Mutated(now)
	c.AddDomainEvent(NewConcessionRejectedEvent(c, wasApproved, approver, now))
	return wasApproved, nil
}

// AppliesTo reports whether the concession targets the given fee record
func (c *Concession) AppliesTo(f *FeeRecord) bool {
	return c.SchoolID == f.SchoolID &&
		c.StudentID == f.StudentID &&
		c.Category == f.Category &&
		c.AcademicYearID == f.AcademicYearID
}
