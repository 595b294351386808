package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFeeStructureResolver resolves fee structures from the fee_structures table.
// An active structure wins over an inactive one for the same class, year and category.
type GormFeeStructureResolver struct {
	db *gorm.DB
}

// NewGormFeeStructureResolver creates a new GormFeeStructureResolver
func NewGormFeeStructureResolver(db *gorm.DB) *GormFeeStructureResolver {
	return &GormFeeStructureResolver{db: db}
}

// Resolve finds the structure a fee record is assigned from
func (r *GormFeeStructureResolver) Resolve(ctx context.Context, schoolID uuid.UUID, query ledger.FeeStructureQuery) (*ledger.FeeStructure, error) {
	var model models.FeeStructureModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND class_id = ? AND academic_year_id = ? AND category = ?",
			schoolID, query.ClassID, query.AcademicYearID, string(query.Category)).
		Order("is_active DESC, due_date ASC").
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Ensure GormFeeStructureResolver implements FeeStructureResolver
var _ ledger.FeeStructureResolver = (*GormFeeStructureResolver)(nil)
