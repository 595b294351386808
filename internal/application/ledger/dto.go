package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Fee record DTOs
// ============================================================================

// CreateFeeRecordRequest assigns an explicit fee to a student
type CreateFeeRecordRequest struct {
	StudentID         uuid.UUID       `json:"student_id" binding:"required"`
	FeeStructureID    uuid.UUID       `json:"fee_structure_id"`
	AcademicYearID    uuid.UUID       `json:"academic_year_id" binding:"required"`
	ClassID           uuid.UUID       `json:"class_id"`
	Category          string          `json:"fee_category" binding:"omitempty,oneof=tuition admission library laboratory sports transport examination development miscellaneous"`
	FeeType           string          `json:"fee_type" binding:"omitempty,oneof=mandatory optional conditional"`
	BaseAmount        decimal.Decimal `json:"base_amount" binding:"required"`
	DueDate           time.Time       `json:"due_date" binding:"required"`
	InstallmentNumber int             `json:"installment_number" binding:"omitempty,min=1"`
	InstallmentOf     int             `json:"installment_of" binding:"omitempty,min=1"`
}

// AssignFeeRequest creates fee records from the fee structure of a class
type AssignFeeRequest struct {
	StudentID      uuid.UUID `json:"student_id" binding:"required"`
	ClassID        uuid.UUID `json:"class_id" binding:"required"`
	AcademicYearID uuid.UUID `json:"academic_year_id" binding:"required"`
	Category       string    `json:"fee_category" binding:"required"`
	Installments   int       `json:"installments" binding:"omitempty,min=1,max=12"`
}

// AmountRequest carries an amount with the reason for applying it
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason" binding:"max=255"`
}

// ReasonRequest carries the reason for a status transition
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// FeeRecordListFilter defines list options for fee records
type FeeRecordListFilter struct {
	StudentID      *uuid.UUID `form:"student_id"`
	AcademicYearID *uuid.UUID `form:"academic_year_id"`
	ClassID        *uuid.UUID `form:"class_id"`
	Category       string     `form:"fee_category"`
	Status         string     `form:"status"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string     `form:"order_by" binding:"omitempty,oneof=created_at due_date remaining_amount"`
	OrderDir       string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// FeeRecordResponse is the API view of a fee record
type FeeRecordResponse struct {
	ID                uuid.UUID        `json:"id"`
	SchoolID          uuid.UUID        `json:"school_id"`
	StudentID         uuid.UUID        `json:"student_id"`
	FeeStructureID    uuid.UUID        `json:"fee_structure_id"`
	AcademicYearID    uuid.UUID        `json:"academic_year_id"`
	ClassID           uuid.UUID        `json:"class_id"`
	Category          string           `json:"fee_category"`
	FeeType           string           `json:"fee_type"`
	Currency          string           `json:"currency"`
	BaseAmount        decimal.Decimal  `json:"base_amount"`
	FineAmount        decimal.Decimal  `json:"fine_amount"`
	DiscountAmount    decimal.Decimal  `json:"discount_amount"`
	WaiverAmount      decimal.Decimal  `json:"waiver_amount"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	PaidAmount        decimal.Decimal  `json:"paid_amount"`
	RemainingAmount   decimal.Decimal  `json:"remaining_amount"`
	DueDate           time.Time        `json:"due_date"`
	Status            string           `json:"status"`
	PaymentStatus     string           `json:"payment_status"`
	IsOverdue         bool             `json:"is_overdue"`
	InstallmentNumber int              `json:"installment_number"`
	InstallmentOf     int              `json:"installment_of"`
	ConcessionID      *uuid.UUID       `json:"concession_id,omitempty"`
	FineReason        string           `json:"fine_reason,omitempty"`
	DiscountReason    string           `json:"discount_reason,omitempty"`
	WaiverReason      string           `json:"waiver_reason,omitempty"`
	CancelReason      string           `json:"cancel_reason,omitempty"`
	Remarks           string           `json:"remarks,omitempty"`
	CreatedBy         string           `json:"created_by"`
	ApprovedBy        *shared.ActorRef `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	PaidAt            *time.Time       `json:"paid_at,omitempty"`
	CancelledAt       *time.Time       `json:"cancelled_at,omitempty"`
	WaivedAt          *time.Time       `json:"waived_at,omitempty"`
	VoidedAt          *time.Time       `json:"voided_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Version           int              `json:"version"`
}

// RefreshOverdueResult reports a batch status recomputation
type RefreshOverdueResult struct {
	Checked   int `json:"checked"`
	Updated   int `json:"updated"`
	Conflicts int `json:"conflicts"`
}

// ToFeeRecordResponse converts a domain FeeRecord to its response DTO
func ToFeeRecordResponse(f *ledger.FeeRecord, now time.Time) FeeRecordResponse {
	return FeeRecordResponse{
		ID:                f.ID,
		SchoolID:          f.SchoolID,
		StudentID:         f.StudentID,
		FeeStructureID:    f.FeeStructureID,
		AcademicYearID:    f.AcademicYearID,
		ClassID:           f.ClassID,
		Category:          string(f.Category),
		FeeType:           string(f.FeeType),
		Currency:          string(f.Currency),
		BaseAmount:        f.BaseAmount,
		FineAmount:        f.FineAmount,
		DiscountAmount:    f.DiscountAmount,
		WaiverAmount:      f.WaiverAmount,
		TotalAmount:       f.TotalAmount,
		PaidAmount:        f.PaidAmount,
		RemainingAmount:   f.RemainingAmount,
		DueDate:           f.DueDate,
		Status:            string(f.Status),
		PaymentStatus:     string(f.PaymentStatus),
		IsOverdue:         f.IsOverdueAt(now),
		InstallmentNumber: f.InstallmentNumber,
		InstallmentOf:     f.InstallmentOf,
		ConcessionID:      f.ConcessionID,
		FineReason:        f.FineReason,
		DiscountReason:    f.DiscountReason,
		WaiverReason:      f.WaiverReason,
		CancelReason:      f.CancelReason,
		Remarks:           f.Remarks,
		CreatedBy:         f.CreatedBy.String(),
		ApprovedBy:        f.ApprovedBy,
		ApprovedAt:        f.ApprovedAt,
		PaidAt:            f.PaidAt,
		CancelledAt:       f.CancelledAt,
		WaivedAt:          f.WaivedAt,
		VoidedAt:          f.VoidedAt,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
		Version:           f.Version,
	}
}

// ToFeeRecordResponses converts a slice of domain FeeRecords
func ToFeeRecordResponses(records []ledger.FeeRecord, now time.Time) []FeeRecordResponse {
	responses := make([]FeeRecordResponse, len(records))
	for i := range records {
		responses[i] = ToFeeRecordResponse(&records[i], now)
	}
	return responses
}

// ============================================================================
// Payment DTOs
// ============================================================================

// RecordPaymentRequest records funds received against a fee record
type RecordPaymentRequest struct {
	FeeRecordID      uuid.UUID       `json:"fee_record_id" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	LateFeeComponent decimal.Decimal `json:"late_fee_component"`
	Method           string          `json:"method" binding:"required,oneof=cash online cheque bank_transfer upi card"`
	ReceiptNumber    string          `json:"receipt_number" binding:"required,max=50"`
	TransactionID    string          `json:"transaction_id" binding:"max=100"`
	ChequeNumber     string          `json:"cheque_number" binding:"max=50"`
	BankName         string          `json:"bank_name" binding:"max=100"`
	PaymentDate      *time.Time      `json:"payment_date"`
	Remarks          string          `json:"remarks" binding:"max=500"`
}

// CancelPaymentRequest cancels a payment
type CancelPaymentRequest struct {
	Reason        string `json:"reason" binding:"required,max=255"`
	AllowReversal bool   `json:"allow_reversal"`
}

// PaymentResponse is the API view of a payment
type PaymentResponse struct {
	ID               uuid.UUID       `json:"id"`
	SchoolID         uuid.UUID       `json:"school_id"`
	FeeRecordID      uuid.UUID       `json:"fee_record_id"`
	StudentID        uuid.UUID       `json:"student_id"`
	Amount           decimal.Decimal `json:"amount"`
	LateFeeComponent decimal.Decimal `json:"late_fee_component"`
	Method           string          `json:"method"`
	ReceiptNumber    string          `json:"receipt_number"`
	TransactionID    string          `json:"transaction_id,omitempty"`
	ChequeNumber     string          `json:"cheque_number,omitempty"`
	BankName         string          `json:"bank_name,omitempty"`
	PaymentDate      time.Time       `json:"payment_date"`
	CollectedBy      string          `json:"collected_by"`
	Status           string          `json:"status"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	Remarks          string          `json:"remarks,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PaymentResult is a payment together with the fee record it changed
type PaymentResult struct {
	Payment   PaymentResponse   `json:"payment"`
	FeeRecord FeeRecordResponse `json:"fee_record"`
}

// ToPaymentResponse converts a domain Payment to its response DTO
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID,
		SchoolID:         p.SchoolID,
		FeeRecordID:      p.FeeRecordID,
		StudentID:        p.StudentID,
		Amount:           p.Amount,
		LateFeeComponent: p.LateFeeComponent,
		Method:           string(p.Method),
		ReceiptNumber:    p.ReceiptNumber,
		TransactionID:    p.TransactionID,
		ChequeNumber:     p.ChequeNumber,
		BankName:         p.BankName,
		PaymentDate:      p.PaymentDate,
		CollectedBy:      p.CollectedBy.String(),
		Status:           string(p.Status),
		ProcessedAt:      p.ProcessedAt,
		CancelledAt:      p.CancelledAt,
		CancelReason:     p.CancelReason,
		Remarks:          p.Remarks,
		CreatedAt:        p.CreatedAt,
	}
}

// ToPaymentResponses converts a slice of domain Payments
func ToPaymentResponses(payments []ledger.Payment) []PaymentResponse {
	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = ToPaymentResponse(&payments[i])
	}
	return responses
}

// ============================================================================
// Concession DTOs
// ============================================================================

// CreateConcessionRequest requests a concession
type CreateConcessionRequest struct {
	StudentID       uuid.UUID       `json:"student_id" binding:"required"`
	Category        string          `json:"fee_category" binding:"required"`
	AcademicYearID  uuid.UUID       `json:"academic_year_id" binding:"required"`
	Name            string          `json:"name" binding:"required,max=100"`
	ConcessionType  string          `json:"concession_type" binding:"max=50"`
	CalculationType string          `json:"calculation_type" binding:"required,oneof=percentage fixed"`
	Value           decimal.Decimal `json:"value" binding:"required"`
	ValidFrom       *time.Time      `json:"valid_from"`
	ValidUntil      *time.Time      `json:"valid_until"`
}

// ConcessionListFilter defines list options for concessions
type ConcessionListFilter struct {
	StudentID      *uuid.UUID `form:"student_id"`
	AcademicYearID *uuid.UUID `form:"academic_year_id"`
	Status         string     `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Page           int        `form:"page" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ConcessionResponse is the API view of a concession
type ConcessionResponse struct {
	ID              uuid.UUID        `json:"id"`
	SchoolID        uuid.UUID        `json:"school_id"`
	StudentID       uuid.UUID        `json:"student_id"`
	Category        string           `json:"fee_category"`
	AcademicYearID  uuid.UUID        `json:"academic_year_id"`
	Name            string           `json:"name"`
	ConcessionType  string           `json:"concession_type,omitempty"`
	CalculationType string           `json:"calculation_type"`
	Value           decimal.Decimal  `json:"value"`
	ValidFrom       *time.Time       `json:"valid_from,omitempty"`
	ValidUntil      *time.Time       `json:"valid_until,omitempty"`
	Status          string           `json:"status"`
	ApprovedBy      *shared.ActorRef `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	RejectedBy      *shared.ActorRef `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	AffectedRecords int              `json:"affected_records"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ToConcessionResponse converts a domain Concession to its response DTO
func ToConcessionResponse(c *ledger.Concession) ConcessionResponse {
	return ConcessionResponse{
		ID:              c.ID,
		SchoolID:        c.SchoolID,
		StudentID:       c.StudentID,
		Category:        string(c.Category),
		AcademicYearID:  c.AcademicYearID,
		Name:            c.Name,
		ConcessionType:  c.ConcessionType,
		CalculationType: string(c.CalculationType),
		Value:           c.Value,
		ValidFrom:       c.ValidFrom,
		ValidUntil:      c.ValidUntil,
		Status:          string(c.Status),
		ApprovedBy:      c.ApprovedBy,
		ApprovedAt:      c.ApprovedAt,
		RejectedBy:      c.RejectedBy,
		RejectedAt:      c.RejectedAt,
		RejectionReason: c.RejectionReason,
		CreatedAt:       c.CreatedAt,
	}
}

// ResolvedConcession is a preview of a concession's contribution to one fee record
type ResolvedConcession struct {
	ConcessionID uuid.UUID       `json:"concession_id"`
	FeeRecordID  uuid.UUID       `json:"fee_record_id"`
	BaseAmount   decimal.Decimal `json:"base_amount"`
	Amount       decimal.Decimal `json:"amount"`
	Active       bool            `json:"active"`
}

// ============================================================================
// Carry-forward DTOs
// ============================================================================

// CarryForwardRequest carries one student's balance into the next year
type CarryForwardRequest struct {
	StudentID  uuid.UUID `json:"student_id" binding:"required"`
	FromYearID uuid.UUID `json:"from_academic_year_id" binding:"required"`
	ToYearID   uuid.UUID `json:"to_academic_year_id" binding:"required"`
}

// BulkCarryForwardRequest carries balances for many students.
// With no student IDs every student holding fee records in the source year is processed.
type BulkCarryForwardRequest struct {
	FromYearID uuid.UUID        `json:"from_academic_year_id" binding:"required"`
	ToYearID   uuid.UUID        `json:"to_academic_year_id" binding:"required"`
	StudentIDs []uuid.UUID      `json:"student_ids"`
	Threshold  *decimal.Decimal `json:"threshold"`
}

// AdjustBalanceRequest adjusts a carried-forward balance
type AdjustBalanceRequest struct {
	Adjustment decimal.Decimal `json:"adjustment_amount" binding:"required"`
	Reason     string          `json:"reason" binding:"required,max=255"`
}

// ClearBalanceRequest clears a settled balance
type ClearBalanceRequest struct {
	Remarks string `json:"remarks" binding:"max=500"`
}

// BalanceResponse is the API view of a carried-forward balance
type BalanceResponse struct {
	ID                     uuid.UUID        `json:"id"`
	SchoolID               uuid.UUID        `json:"school_id"`
	StudentID              uuid.UUID        `json:"student_id"`
	AcademicYearID         uuid.UUID        `json:"academic_year_id"`
	PreviousAcademicYearID uuid.UUID        `json:"previous_academic_year_id"`
	BalanceAmount          decimal.Decimal  `json:"balance_amount"`
	AdjustmentAmount       decimal.Decimal  `json:"adjustment_amount"`
	FinalBalance           decimal.Decimal  `json:"final_balance"`
	Status                 string           `json:"status"`
	AdjustmentReason       string           `json:"adjustment_reason,omitempty"`
	ProcessedBy            *shared.ActorRef `json:"processed_by,omitempty"`
	ProcessedAt            *time.Time       `json:"processed_at,omitempty"`
	Remarks                string           `json:"remarks,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
}

// ToBalanceResponse converts a domain PreviousYearBalance to its response DTO
func ToBalanceResponse(b *ledger.PreviousYearBalance) BalanceResponse {
	return BalanceResponse{
		ID:                     b.ID,
		SchoolID:               b.SchoolID,
		StudentID:              b.StudentID,
		AcademicYearID:         b.AcademicYearID,
		PreviousAcademicYearID: b.PreviousAcademicYearID,
		BalanceAmount:          b.BalanceAmount,
		AdjustmentAmount:       b.AdjustmentAmount,
		FinalBalance:           b.FinalBalance,
		Status:                 string(b.Status),
		AdjustmentReason:       b.AdjustmentReason,
		ProcessedBy:            b.ProcessedBy,
		ProcessedAt:            b.ProcessedAt,
		Remarks:                b.Remarks,
		CreatedAt:              b.CreatedAt,
	}
}

// UnitFailure is one failed unit of a bulk operation
type UnitFailure struct {
	StudentID uuid.UUID `json:"student_id"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

// BulkCarryForwardResult aggregates a bulk carry-forward run
type BulkCarryForwardResult struct {
	Processed         int           `json:"processed"`
	Created           []uuid.UUID   `json:"created"`
	SkippedDuplicates int           `json:"skipped_duplicates"`
	BelowThreshold    int           `json:"below_threshold"`
	Failed            []UnitFailure `json:"failed"`
}

// ReconcileRequest asks for a reconciliation of one academic year
type ReconcileRequest struct {
	AcademicYearID uuid.UUID `form:"academic_year_id" json:"academic_year_id" binding:"required"`
	Repair         bool      `form:"repair" json:"repair"`
}

// Discrepancy is a fee record whose stored paid amount disagrees with its completed payments
type Discrepancy struct {
	FeeRecordID  uuid.UUID       `json:"fee_record_id"`
	StudentID    uuid.UUID       `json:"student_id"`
	StoredPaid   decimal.Decimal `json:"stored_paid"`
	PaymentsPaid decimal.Decimal `json:"payments_paid"`
	Repaired     bool            `json:"repaired"`
}

// ReconciliationSummary summarizes the balances of one academic year
type ReconciliationSummary struct {
	AcademicYearID       uuid.UUID       `json:"academic_year_id"`
	TotalStudents        int             `json:"total_students"`
	StudentsWithBalance  int             `json:"students_with_balance"`
	TotalBilled          decimal.Decimal `json:"total_billed"`
	TotalCollected       decimal.Decimal `json:"total_collected"`
	TotalBalance         decimal.Decimal `json:"total_balance"`
	CarriedInCount       int             `json:"carried_in_count"`
	CarriedInOutstanding decimal.Decimal `json:"carried_in_outstanding"`
	Discrepancies        []Discrepancy   `json:"discrepancies"`
}

// ============================================================================
// Promotion DTOs
// ============================================================================

// PromoteRequest requests a single promotion
type PromoteRequest struct {
	StudentID          uuid.UUID  `json:"student_id" binding:"required"`
	FromClassID        uuid.UUID  `json:"from_class_id" binding:"required"`
	ToClassID          uuid.UUID  `json:"to_class_id" binding:"required"`
	FromYearID         uuid.UUID  `json:"from_academic_year_id" binding:"required"`
	ToYearID           uuid.UUID  `json:"to_academic_year_id" binding:"required"`
	PromotionDate      *time.Time `json:"promotion_date"`
	Remarks            string     `json:"remarks" binding:"max=500"`
	ProcessImmediately bool       `json:"process_immediately"`
}

// BulkPromoteRequest promotes a whole class.
// With no student IDs every student currently placed in the source class is promoted.
type BulkPromoteRequest struct {
	FromClassID        uuid.UUID   `json:"from_class_id" binding:"required"`
	ToClassID          uuid.UUID   `json:"to_class_id" binding:"required"`
	FromYearID         uuid.UUID   `json:"from_academic_year_id" binding:"required"`
	ToYearID           uuid.UUID   `json:"to_academic_year_id" binding:"required"`
	StudentIDs         []uuid.UUID `json:"student_ids"`
	ProcessImmediately bool        `json:"process_immediately"`
}

// PromotionResponse is the API view of a promotion
type PromotionResponse struct {
	ID                 uuid.UUID        `json:"id"`
	SchoolID           uuid.UUID        `json:"school_id"`
	StudentID          uuid.UUID        `json:"student_id"`
	FromClassID        uuid.UUID        `json:"from_class_id"`
	ToClassID          uuid.UUID        `json:"to_class_id"`
	FromAcademicYearID uuid.UUID        `json:"from_academic_year_id"`
	ToAcademicYearID   uuid.UUID        `json:"to_academic_year_id"`
	Status             string           `json:"status"`
	PromotedBy         string           `json:"promoted_by"`
	PromotionDate      time.Time        `json:"promotion_date"`
	ProcessedAt        *time.Time       `json:"processed_at,omitempty"`
	FailureReason      string           `json:"failure_reason,omitempty"`
	RollbackReason     string           `json:"rollback_reason,omitempty"`
	RolledBackBy       *shared.ActorRef `json:"rolled_back_by,omitempty"`
	RolledBackAt       *time.Time       `json:"rolled_back_at,omitempty"`
	Remarks            string           `json:"remarks,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// ToPromotionResponse converts a domain StudentPromotion to its response DTO
func ToPromotionResponse(p *ledger.StudentPromotion) PromotionResponse {
	return PromotionResponse{
		ID:                 p.ID,
		SchoolID:           p.SchoolID,
		StudentID:          p.StudentID,
		FromClassID:        p.FromClassID,
		ToClassID:          p.ToClassID,
		FromAcademicYearID: p.FromAcademicYearID,
		ToAcademicYearID:   p.ToAcademicYearID,
		Status:             string(p.Status),
		PromotedBy:         p.PromotedBy.String(),
		PromotionDate:      p.PromotionDate,
		ProcessedAt:        p.ProcessedAt,
		FailureReason:      p.FailureReason,
		RollbackReason:     p.RollbackReason,
		RolledBackBy:       p.RolledBackBy,
		RolledBackAt:       p.RolledBackAt,
		Remarks:            p.Remarks,
		CreatedAt:          p.CreatedAt,
	}
}

// BulkPromotionResult aggregates a bulk promotion run
type BulkPromotionResult struct {
	Processed         int           `json:"processed"`
	Created           []uuid.UUID   `json:"created"`
	Completed         int           `json:"completed"`
	SkippedDuplicates int           `json:"skipped_duplicates"`
	Failed            []UnitFailure `json:"failed"`
}
