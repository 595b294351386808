package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FeeRecordModel is the persistence model for the FeeRecord aggregate root.
type FeeRecordModel struct {
	SchoolAggregateModel
	StudentID         uuid.UUID        `gorm:"type:uuid;not null;index:idx_fee_record_student_year,priority:2;uniqueIndex:idx_fee_record_instance,priority:2"`
	FeeStructureID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_fee_record_instance,priority:3"`
	AcademicYearID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_fee_record_student_year,priority:3;uniqueIndex:idx_fee_record_instance,priority:4"`
	ClassID           uuid.UUID        `gorm:"type:uuid;not null;index"`
	Category          string           `gorm:"type:varchar(30);not null;index"`
	FeeType           string           `gorm:"type:varchar(20);not null"`
	Currency          string           `gorm:"type:varchar(3);not null"`
	BaseAmount        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	FineAmount        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	WaiverAmount      decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	PaidAmount        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	RemainingAmount   decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	DueDate           time.Time        `gorm:"not null;index"`
	Status            string           `gorm:"type:varchar(20);not null;index"`
	PaymentStatus     string           `gorm:"type:varchar(20);not null"`
	InstallmentNumber int              `gorm:"not null;default:1;uniqueIndex:idx_fee_record_instance,priority:5"`
	InstallmentOf     int              `gorm:"not null;default:1"`
	ConcessionID      *uuid.UUID       `gorm:"type:uuid;index"`
	FineReason        string           `gorm:"type:text"`
	DiscountReason    string           `gorm:"type:text"`
	WaiverReason      string           `gorm:"type:text"`
	CancelReason      string           `gorm:"type:text"`
	Remarks           string           `gorm:"type:text"`
	ApprovedBy        *shared.ActorRef `gorm:"type:varchar(64)"`
	ApprovedAt        *time.Time
	PaidAt            *time.Time
	CancelledAt       *time.Time
	WaivedAt          *time.Time
	VoidedAt          *time.Time
}

// TableName returns the table name for GORM
func (FeeRecordModel) TableName() string {
	return "fee_records"
}

// ToDomain converts the persistence model to a domain FeeRecord.
func (m *FeeRecordModel) ToDomain() *ledger.FeeRecord {
	return &ledger.FeeRecord{
		SchoolAggregateRoot: m.ToDomainSchoolAggregateRoot(),
		StudentID:           m.StudentID,
		FeeStructureID:      m.FeeStructureID,
		AcademicYearID:      m.AcademicYearID,
		ClassID:             m.ClassID,
		Category:            ledger.FeeCategory(m.Category),
		FeeType:             ledger.FeeType(m.FeeType),
		Currency:            valueobject.Currency(m.Currency),
		BaseAmount:          m.BaseAmount,
		FineAmount:          m.FineAmount,
		DiscountAmount:      m.DiscountAmount,
		WaiverAmount:        m.WaiverAmount,
		TotalAmount:         m.TotalAmount,
		PaidAmount:          m.PaidAmount,
		RemainingAmount:     m.RemainingAmount,
		DueDate:             m.DueDate,
		Status:              ledger.FeeStatus(m.Status),
		PaymentStatus:       ledger.PaymentStatus(m.PaymentStatus),
		InstallmentNumber:   m.InstallmentNumber,
		InstallmentOf:       m.InstallmentOf,
		ConcessionID:        m.ConcessionID,
		FineReason:          m.FineReason,
		DiscountReason:      m.DiscountReason,
		WaiverReason:        m.WaiverReason,
		CancelReason:        m.CancelReason,
		Remarks:             m.Remarks,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
		WaivedAt:            m.WaivedAt,
		VoidedAt:            m.VoidedAt,
	}
}

// FromDomain populates the persistence model from a domain FeeRecord.
func (m *FeeRecordModel) FromDomain(f *ledger.FeeRecord) {
	m.FromDomainSchoolAggregateRoot(f.SchoolAggregateRoot)
	m.StudentID = f.StudentID
	m.FeeStructureID = f.FeeStructureID
	m.AcademicYearID = f.AcademicYearID
	m.ClassID = f.ClassID
	m.Category = string(f.Category)
	m.FeeType = string(f.FeeType)
	m.Currency = string(f.Currency)
	m.BaseAmount = f.BaseAmount
	m.FineAmount = f.FineAmount
	m.DiscountAmount = f.DiscountAmount
	m.WaiverAmount = f.WaiverAmount
	m.TotalAmount = f.TotalAmount
	m.PaidAmount = f.PaidAmount
	m.RemainingAmount = f.RemainingAmount
	m.DueDate = f.DueDate
	m.Status = string(f.Status)
	m.PaymentStatus = string(f.PaymentStatus)
	m.InstallmentNumber = f.InstallmentNumber
	m.InstallmentOf = f.InstallmentOf
	m.ConcessionID = f.ConcessionID
	m.FineReason = f.FineReason
	m.DiscountReason = f.DiscountReason
	m.WaiverReason = f.WaiverReason
	m.CancelReason = f.CancelReason
	m.Remarks = f.Remarks
	m.ApprovedBy = f.ApprovedBy
	m.ApprovedAt = f.ApprovedAt
	m.PaidAt = f.PaidAt
	m.CancelledAt = f.CancelledAt
	m.WaivedAt = f.WaivedAt
	m.VoidedAt = f.VoidedAt
}

// FeeRecordModelFromDomain creates a new persistence model from a domain FeeRecord.
func FeeRecordModelFromDomain(f *ledger.FeeRecord) *FeeRecordModel {
	m := &FeeRecordModel{}
	m.FromDomain(f)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
// Receipt numbers are unique within a school.
type PaymentModel struct {
	AggregateModel
	SchoolID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_payment_receipt,priority:1"`
	CreatedBy        shared.ActorRef `gorm:"type:varchar(64)"`
	FeeRecordID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	StudentID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LateFeeComponent decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Method           string          `gorm:"type:varchar(20);not null"`
	ReceiptNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_receipt,priority:2"`
	TransactionID    string          `gorm:"type:varchar(100)"`
	ChequeNumber     string          `gorm:"type:varchar(50)"`
	BankName         string          `gorm:"type:varchar(100)"`
	PaymentDate      time.Time       `gorm:"not null"`
	CollectedBy      shared.ActorRef `gorm:"type:varchar(64)"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	ProcessedAt      *time.Time
	CancelledAt      *time.Time
	CancelledBy      *shared.ActorRef `gorm:"type:varchar(64)"`
	CancelReason     string           `gorm:"type:text"`
	Remarks          string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "fee_payments"
}

// ToDomain converts the persistence model to a domain Payment.
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		SchoolAggregateRoot: m.toSchoolRoot(m.SchoolID, m.CreatedBy),
		FeeRecordID:         m.FeeRecordID,
		StudentID:           m.StudentID,
		Amount:              m.Amount,
		LateFeeComponent:    m.LateFeeComponent,
		Method:              ledger.PaymentMethod(m.Method),
		ReceiptNumber:       m.ReceiptNumber,
		TransactionID:       m.TransactionID,
		ChequeNumber:        m.ChequeNumber,
		BankName:            m.BankName,
		PaymentDate:         m.PaymentDate,
		CollectedBy:         m.CollectedBy,
		Status:              ledger.PaymentRecordStatus(m.Status),
		ProcessedAt:         m.ProcessedAt,
		CancelledAt:         m.CancelledAt,
		CancelledBy:         m.CancelledBy,
		CancelReason:        m.CancelReason,
		Remarks:             m.Remarks,
	}
}

// FromDomain populates the persistence model from a domain Payment.
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.SchoolID = p.SchoolID
	m.CreatedBy = p.SchoolAggregateRoot.CreatedBy
	m.FeeRecordID = p.FeeRecordID
	m.StudentID = p.StudentID
	m.Amount = p.Amount
	m.LateFeeComponent = p.LateFeeComponent
	m.Method = string(p.Method)
	m.ReceiptNumber = p.ReceiptNumber
	m.TransactionID = p.TransactionID
	m.ChequeNumber = p.ChequeNumber
	m.BankName = p.BankName
	m.PaymentDate = p.PaymentDate
	m.CollectedBy = p.CollectedBy
	m.Status = string(p.Status)
	m.ProcessedAt = p.ProcessedAt
	m.CancelledAt = p.CancelledAt
	m.CancelledBy = p.CancelledBy
	m.CancelReason = p.CancelReason
	m.Remarks = p.Remarks
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// ConcessionModel is the persistence model for the Concession aggregate root.
type ConcessionModel struct {
	SchoolAggregateModel
	StudentID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_concession_scope,priority:1"`
	Category        string          `gorm:"type:varchar(30);not null;index:idx_concession_scope,priority:2"`
	AcademicYearID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_concession_scope,priority:3"`
	Name            string          `gorm:"type:varchar(100);not null"`
	ConcessionType  string          `gorm:"type:varchar(50)"`
	CalculationType string          `gorm:"type:varchar(20);not null"`
	Value           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	Status          string           `gorm:"type:varchar(20);not null;index"`
	ApprovedBy      *shared.ActorRef `gorm:"type:varchar(64)"`
	ApprovedAt      *time.Time
	RejectedBy      *shared.ActorRef `gorm:"type:varchar(64)"`
	RejectedAt      *time.Time
	RejectionReason string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ConcessionModel) TableName() string {
	return "concessions"
}

// ToDomain converts the persistence model to a domain Concession.
func (m *ConcessionModel) ToDomain() *ledger.Concession {
	return &ledger.Concession{
		SchoolAggregateRoot: m.ToDomainSchoolAggregateRoot(),
		StudentID:           m.StudentID,
		Category:            ledger.FeeCategory(m.Category),
		AcademicYearID:      m.AcademicYearID,
		Name:                m.Name,
		ConcessionType:      m.ConcessionType,
		CalculationType:     ledger.CalculationType(m.CalculationType),
		Value:               m.Value,
		ValidFrom:           m.ValidFrom,
		ValidUntil:          m.ValidUntil,
		Status:              ledger.ConcessionStatus(m.Status),
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		RejectedBy:          m.RejectedBy,
		RejectedAt:          m.RejectedAt,
		RejectionReason:     m.RejectionReason,
	}
}

// FromDomain populates the persistence model from a domain Concession.
func (m *ConcessionModel) FromDomain(c *ledger.Concession) {
	m.FromDomainSchoolAggregateRoot(c.SchoolAggregateRoot)
	m.StudentID = c.StudentID
	m.Category = string(c.Category)
	m.AcademicYearID = c.AcademicYearID
	m.Name = c.Name
	m.ConcessionType = c.ConcessionType
	m.CalculationType = string(c.CalculationType)
	m.Value = c.Value
	m.ValidFrom = c.ValidFrom
	m.ValidUntil = c.ValidUntil
	m.Status = string(c.Status)
	m.ApprovedBy = c.ApprovedBy
	m.ApprovedAt = c.ApprovedAt
	m.RejectedBy = c.RejectedBy
	m.RejectedAt = c.RejectedAt
	m.RejectionReason = c.RejectionReason
}

// ConcessionModelFromDomain creates a new persistence model from a domain Concession.
func ConcessionModelFromDomain(c *ledger.Concession) *ConcessionModel {
	m := &ConcessionModel{}
	m.FromDomain(c)
	return m
}

// PreviousYearBalanceModel is the persistence model for a carried-forward balance.
// A student has at most one balance carried into an academic year.
type PreviousYearBalanceModel struct {
	SchoolAggregateModel
	StudentID              uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_balance_student_year,priority:2"`
	AcademicYearID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_balance_student_year,priority:3"`
	PreviousAcademicYearID uuid.UUID        `gorm:"type:uuid;not null;index"`
	BalanceAmount          decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	AdjustmentAmount       decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	FinalBalance           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Status                 string           `gorm:"type:varchar(20);not null;index"`
	AdjustmentReason       string           `gorm:"type:text"`
	ProcessedBy            *shared.ActorRef `gorm:"type:varchar(64)"`
	ProcessedAt            *time.Time
	Remarks                string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PreviousYearBalanceModel) TableName() string {
	return "previous_year_balances"
}

// ToDomain converts the persistence model to a domain PreviousYearBalance.
func (m *PreviousYearBalanceModel) ToDomain() *ledger.PreviousYearBalance {
	return &ledger.PreviousYearBalance{
		SchoolAggregateRoot:    m.ToDomainSchoolAggregateRoot(),
		StudentID:              m.StudentID,
		AcademicYearID:         m.AcademicYearID,
		PreviousAcademicYearID: m.PreviousAcademicYearID,
		BalanceAmount:          m.BalanceAmount,
		AdjustmentAmount:       m.AdjustmentAmount,
		FinalBalance:           m.FinalBalance,
		Status:                 ledger.BalanceStatus(m.Status),
		AdjustmentReason:       m.AdjustmentReason,
		ProcessedBy:            m.ProcessedBy,
		ProcessedAt:            m.ProcessedAt,
		Remarks:                m.Remarks,
	}
}

// FromDomain populates the persistence model from a domain PreviousYearBalance.
func (m *PreviousYearBalanceModel) FromDomain(b *ledger.PreviousYearBalance) {
	m.FromDomainSchoolAggregateRoot(b.SchoolAggregateRoot)
	m.StudentID = b.StudentID
	m.AcademicYearID = b.AcademicYearID
	m.PreviousAcademicYearID = b.PreviousAcademicYearID
	m.BalanceAmount = b.BalanceAmount
	m.AdjustmentAmount = b.AdjustmentAmount
	m.FinalBalance = b.FinalBalance
	m.Status = string(b.Status)
	m.AdjustmentReason = b.AdjustmentReason
	m.ProcessedBy = b.ProcessedBy
	m.ProcessedAt = b.ProcessedAt
	m.Remarks = b.Remarks
}

// PreviousYearBalanceModelFromDomain creates a new persistence model from a domain PreviousYearBalance.
func PreviousYearBalanceModelFromDomain(b *ledger.PreviousYearBalance) *PreviousYearBalanceModel {
	m := &PreviousYearBalanceModel{}
	m.FromDomain(b)
	return m
}

// StudentPromotionModel is the persistence model for a class promotion.
// A student is promoted at most once per year pair.
type StudentPromotionModel struct {
	SchoolAggregateModel
	StudentID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_promotion_student_years,priority:2"`
	FromClassID        uuid.UUID       `gorm:"type:uuid;not null"`
	ToClassID          uuid.UUID       `gorm:"type:uuid;not null"`
	FromAcademicYearID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_promotion_student_years,priority:3"`
	ToAcademicYearID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_promotion_student_years,priority:4"`
	Status             string          `gorm:"type:varchar(20);not null;index"`
	PromotedBy         shared.ActorRef `gorm:"type:varchar(64)"`
	PromotionDate      time.Time       `gorm:"not null"`
	ProcessedAt        *time.Time
	FailureReason      string           `gorm:"type:text"`
	RollbackReason     string           `gorm:"type:text"`
	RolledBackBy       *shared.ActorRef `gorm:"type:varchar(64)"`
	RolledBackAt       *time.Time
	Remarks            string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StudentPromotionModel) TableName() string {
	return "student_promotions"
}

// ToDomain converts the persistence model to a domain StudentPromotion.
func (m *StudentPromotionModel) ToDomain() *ledger.StudentPromotion {
	return &ledger.StudentPromotion{
		SchoolAggregateRoot: m.ToDomainSchoolAggregateRoot(),
		StudentID:           m.StudentID,
		FromClassID:         m.FromClassID,
		ToClassID:           m.ToClassID,
		FromAcademicYearID:  m.FromAcademicYearID,
		ToAcademicYearID:    m.ToAcademicYearID,
		Status:              ledger.PromotionStatus(m.Status),
		PromotedBy:          m.PromotedBy,
		PromotionDate:       m.PromotionDate,
		ProcessedAt:         m.ProcessedAt,
		FailureReason:       m.FailureReason,
		RollbackReason:      m.RollbackReason,
		RolledBackBy:        m.RolledBackBy,
		RolledBackAt:        m.RolledBackAt,
		Remarks:             m.Remarks,
	}
}

// FromDomain populates the persistence model from a domain StudentPromotion.
func (m *StudentPromotionModel) FromDomain(p *ledger.StudentPromotion) {
	m.FromDomainSchoolAggregateRoot(p.SchoolAggregateRoot)
	m.StudentID = p.StudentID
	m.FromClassID = p.FromClassID
	m.ToClassID = p.ToClassID
	m.FromAcademicYearID = p.FromAcademicYearID
	m.ToAcademicYearID = p.ToAcademicYearID
	m.Status = string(p.Status)
	m.PromotedBy = p.PromotedBy
	m.PromotionDate = p.PromotionDate
	m.ProcessedAt = p.ProcessedAt
	m.FailureReason = p.FailureReason
	m.RollbackReason = p.RollbackReason
	m.RolledBackBy = p.RolledBackBy
	m.RolledBackAt = p.RolledBackAt
	m.Remarks = p.Remarks
}

// StudentPromotionModelFromDomain creates a new persistence model from a domain StudentPromotion.
func StudentPromotionModelFromDomain(p *ledger.StudentPromotion) *StudentPromotionModel {
	m := &StudentPromotionModel{}
	m.FromDomain(p)
	return m
}

// StudentModel maps the class pointer columns of the students table.
// The rest of the row is owned by student management.
type StudentModel struct {
	BaseModel
	SchoolID              uuid.UUID `gorm:"type:uuid;not null;index:idx_student_class_year,priority:1"`
	CurrentClassID        uuid.UUID `gorm:"type:uuid;not null;index:idx_student_class_year,priority:2"`
	CurrentAcademicYearID uuid.UUID `gorm:"type:uuid;not null;index:idx_student_class_year,priority:3"`
	Version               int       `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (StudentModel) TableName() string {
	return "students"
}

// ToDomain converts the persistence model to a domain StudentPlacement.
func (m *StudentModel) ToDomain() *ledger.StudentPlacement {
	return &ledger.StudentPlacement{
		ID:                    m.ID,
		SchoolID:              m.SchoolID,
		CurrentClassID:        m.CurrentClassID,
		CurrentAcademicYearID: m.CurrentAcademicYearID,
		Version:               m.Version,
	}
}

// FeeStructureModel maps the fee_structures table read by the structure resolver.
type FeeStructureModel struct {
	BaseModel
	SchoolID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_fee_structure_lookup,priority:1"`
	ClassID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_fee_structure_lookup,priority:2"`
	AcademicYearID uuid.UUID       `gorm:"type:uuid;not null;index:idx_fee_structure_lookup,priority:3"`
	Category       string          `gorm:"type:varchar(30);not null;index:idx_fee_structure_lookup,priority:4"`
	FeeType        string          `gorm:"type:varchar(20);not null"`
	Name           string          `gorm:"type:varchar(100);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DueDate        time.Time       `gorm:"not null"`
	IsActive       bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (FeeStructureModel) TableName() string {
	return "fee_structures"
}

// ToDomain converts the persistence model to a domain FeeStructure.
func (m *FeeStructureModel) ToDomain() *ledger.FeeStructure {
	return &ledger.FeeStructure{
		ID:             m.ID,
		SchoolID:       m.SchoolID,
		ClassID:        m.ClassID,
		AcademicYearID: m.AcademicYearID,
		Category:       ledger.FeeCategory(m.Category),
		FeeType:        ledger.FeeType(m.FeeType),
		Name:           m.Name,
		Amount:         m.Amount,
		DueDate:        m.DueDate,
		IsActive:       m.IsActive,
	}
}
