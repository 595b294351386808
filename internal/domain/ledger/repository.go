package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FeeRecordFilter defines filtering options for fee record queries
type FeeRecordFilter struct {
	shared.Filter
	StudentID      *uuid.UUID   // Filter by student
	AcademicYearID *uuid.UUID   // Filter by academic year
	ClassID        *uuid.UUID   // Filter by class at assignment time
	Category       *FeeCategory // Filter by fee category
	Statuses       []FeeStatus  // Filter by any of the statuses
}

// FeeRecordRepository defines persistence for fee records. Every call is scoped to one school.
type FeeRecordRepository interface {
	// FindByID finds a fee record by ID
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*FeeRecord, error)

	// FindAll finds fee records with filtering
	FindAll(ctx context.Context, schoolID uuid.UUID, filter FeeRecordFilter) ([]FeeRecord, error)

	// Count counts fee records matching the filter
	Count(ctx context.Context, schoolID uuid.UUID, filter FeeRecordFilter) (int64, error)

	// FindByStudentAndYear finds every fee record of a student in an academic year
	FindByStudentAndYear(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) ([]FeeRecord, error)

	// FindByConcessionScope finds fee records a concession applies to
	FindByConcessionScope(ctx context.Context, schoolID, studentID uuid.UUID, category FeeCategory, academicYearID uuid.UUID) ([]FeeRecord, error)

	// FindOpen finds pending and overdue fee records
	FindOpen(ctx context.Context, schoolID uuid.UUID) ([]FeeRecord, error)

	// FindByYear finds every fee record of an academic year
	FindByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]FeeRecord, error)

	// FindStudentIDsByYear lists the students holding fee records in an academic year
	FindStudentIDsByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]uuid.UUID, error)

	// Save creates or updates a fee record
	Save(ctx context.Context, record *FeeRecord) error

	// SaveWithLock updates a fee record only if its stored version is unchanged
	SaveWithLock(ctx context.Context, record *FeeRecord) error
}

// PaymentRepository defines persistence for payments
type PaymentRepository interface {
	// FindByID finds a payment by ID
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*Payment, error)

	// FindByReceiptNumber finds a payment by its receipt number
	FindByReceiptNumber(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (*Payment, error)

	// ExistsByReceiptNumber checks if a receipt number is already used
	ExistsByReceiptNumber(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (bool, error)

	// FindByFeeRecord finds every payment recorded against a fee record
	FindByFeeRecord(ctx context.Context, schoolID, feeRecordID uuid.UUID) ([]Payment, error)

	// SumCompletedByFeeRecords sums completed payments per fee record
	SumCompletedByFeeRecords(ctx context.Context, schoolID uuid.UUID, feeRecordIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error
}

// ConcessionFilter defines filtering options for concession queries
type ConcessionFilter struct {
	shared.Filter
	StudentID      *uuid.UUID
	AcademicYearID *uuid.UUID
	Status         *ConcessionStatus
}

// ConcessionRepository defines persistence for concessions
type ConcessionRepository interface {
	// FindByID finds a concession by ID
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*Concession, error)

	// FindAll finds concessions with filtering
	FindAll(ctx context.Context, schoolID uuid.UUID, filter ConcessionFilter) ([]Concession, error)

	// FindByScope finds concessions for a student, fee category and academic year
	FindByScope(ctx context.Context, schoolID, studentID uuid.UUID, category FeeCategory, academicYearID uuid.UUID) ([]Concession, error)

	// Save creates or updates a concession
	Save(ctx context.Context, concession *Concession) error
}

// PreviousYearBalanceRepository defines persistence for carried-forward balances
type PreviousYearBalanceRepository interface {
	// FindByID finds a balance by ID
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*PreviousYearBalance, error)

	// ExistsForStudent checks if a balance was already carried into the academic year
	ExistsForStudent(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) (bool, error)

	// FindUnresolvedForStudent finds balances carried into the academic year that are not cleared
	FindUnresolvedForStudent(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) ([]PreviousYearBalance, error)

	// FindByYear finds every balance carried into the academic year
	FindByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]PreviousYearBalance, error)

	// Save creates or updates a balance
	Save(ctx context.Context, balance *PreviousYearBalance) error

	// SaveWithLock updates a balance only if its stored version is unchanged
	SaveWithLock(ctx context.Context, balance *PreviousYearBalance) error
}

// StudentPromotionRepository defines persistence for promotions
type StudentPromotionRepository interface {
	// FindByID finds a promotion by ID
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*StudentPromotion, error)

	// ExistsForStudent checks if a promotion exists for the student and year pair
	ExistsForStudent(ctx context.Context, schoolID, studentID, fromYearID, toYearID uuid.UUID) (bool, error)

	// CountByStatus counts promotions per status for a year pair
	CountByStatus(ctx context.Context, schoolID, fromYearID, toYearID uuid.UUID) (map[PromotionStatus]int64, error)

	// Save creates or updates a promotion
	Save(ctx context.Context, promotion *StudentPromotion) error
}

// StudentPlacementRepository reads and moves a student's class pointer
type StudentPlacementRepository interface {
	// FindByID finds the placement of a student
	FindByID(ctx context.Context, schoolID, studentID uuid.UUID) (*StudentPlacement, error)

	// FindIDsByClass lists students currently placed in a class for an academic year
	FindIDsByClass(ctx context.Context, schoolID, classID, academicYearID uuid.UUID) ([]uuid.UUID, error)

	// SaveWithLock updates the class pointer only if the stored version is unchanged
	SaveWithLock(ctx context.Context, placement *StudentPlacement) error
}
