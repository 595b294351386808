package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStudentPromotionRepository implements StudentPromotionRepository using GORM
type GormStudentPromotionRepository struct {
	db *gorm.DB
}

// NewGormStudentPromotionRepository creates a new GormStudentPromotionRepository
func NewGormStudentPromotionRepository(db *gorm.DB) *GormStudentPromotionRepository {
	return &GormStudentPromotionRepository{db: db}
}

// FindByID finds a promotion by ID within a school
func (r *GormStudentPromotionRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.StudentPromotion, error) {
	var model models.StudentPromotionModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsForStudent checks if a promotion was recorded for the student and year pair
func (r *GormStudentPromotionRepository) ExistsForStudent(ctx context.Context, schoolID, studentID, fromYearID, toYearID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.StudentPromotionModel{}).
		Where("school_id = ? AND student_id = ? AND from_academic_year_id = ? AND to_academic_year_id = ?",
			schoolID, studentID, fromYearID, toYearID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// promotionStatusCount is the row shape of the per-status aggregate
type promotionStatusCount struct {
	Status string
	Count  int64
}

// CountByStatus counts promotions per status for a year pair
func (r *GormStudentPromotionRepository) CountByStatus(ctx context.Context, schoolID, fromYearID, toYearID uuid.UUID) (map[ledger.PromotionStatus]int64, error) {
	var rows []promotionStatusCount
	if err := r.db.WithContext(ctx).
		Model(&models.StudentPromotionModel{}).
		Select("status, COUNT(*) AS count").
		Where("school_id = ? AND from_academic_year_id = ? AND to_academic_year_id = ?", schoolID, fromYearID, toYearID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[ledger.PromotionStatus]int64, len(rows))
	for _, row := range rows {
		counts[ledger.PromotionStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// Save creates a new promotion or overwrites a stored one.
// A second promotion for the same student and year pair fails with shared.ErrAlreadyExists.
func (r *GormStudentPromotionRepository) Save(ctx context.Context, promotion *ledger.StudentPromotion) error {
	model := models.StudentPromotionModelFromDomain(promotion)
	db := r.db.WithContext(ctx)

	var err error
	if promotion.PersistedVersion() == 0 {
		err = db.Create(model).Error
	} else {
		err = db.Save(model).Error
	}
	if err != nil {
		return translateError(err)
	}
	promotion.MarkPersisted()
	return nil
}

// Ensure GormStudentPromotionRepository implements StudentPromotionRepository
var _ ledger.StudentPromotionRepository = (*GormStudentPromotionRepository)(nil)
