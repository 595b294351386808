package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeStructure is the configured base obligation for a class, year and category
type FeeStructure struct {
	ID             uuid.UUID       `json:"id"`
	SchoolID       uuid.UUID       `json:"school_id"`
	ClassID        uuid.UUID       `json:"class_id"`
	AcademicYearID uuid.UUID       `json:"academic_year_id"`
	Category       FeeCategory     `json:"fee_category"`
	FeeType        FeeType         `json:"fee_type"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        time.Time       `json:"due_date"`
	IsActive       bool            `json:"is_active"`
}

// FeeStructureQuery selects the structure a fee record is created from
type FeeStructureQuery struct {
	ClassID        uuid.UUID
	AcademicYearID uuid.UUID
	Category       FeeCategory
}

// FeeStructureResolver supplies the base amount and due date for a fee assignment.
// Structures themselves are maintained outside the ledger.
type FeeStructureResolver interface {
	Resolve(ctx context.Context, schoolID uuid.UUID, query FeeStructureQuery) (*FeeStructure, error)
}
