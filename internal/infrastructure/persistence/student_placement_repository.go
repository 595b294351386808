package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStudentPlacementRepository reads and moves the class pointer on the students table
type GormStudentPlacementRepository struct {
	db *gorm.DB
}

// NewGormStudentPlacementRepository creates a new GormStudentPlacementRepository
func NewGormStudentPlacementRepository(db *gorm.DB) *GormStudentPlacementRepository {
	return &GormStudentPlacementRepository{db: db}
}

// FindByID finds the placement of a student within a school
func (r *GormStudentPlacementRepository) FindByID(ctx context.Context, schoolID, studentID uuid.UUID) (*ledger.StudentPlacement, error) {
	var model models.StudentModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, studentID).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindIDsByClass lists students currently placed in a class for an academic year
func (r *GormStudentPlacementRepository) FindIDsByClass(ctx context.Context, schoolID, classID, academicYearID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.StudentModel{}).
		Where("school_id = ? AND current_class_id = ? AND current_academic_year_id = ?", schoolID, classID, academicYearID).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveWithLock saves the class pointer with optimistic locking (checks version).
// MoveTo has already bumped Version, so the stored row must still hold Version-1.
func (r *GormStudentPlacementRepository) SaveWithLock(ctx context.Context, placement *ledger.StudentPlacement) error {
	result := r.db.WithContext(ctx).
		Model(&models.StudentModel{}).
		Where("id = ? AND school_id = ? AND version = ?", placement.ID, placement.SchoolID, placement.Version-1).
		Updates(map[string]any{
			"current_class_id":         placement.CurrentClassID,
			"current_academic_year_id": placement.CurrentAcademicYearID,
			"version":                  placement.Version,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return versionConflict("student_id", placement.ID)
	}
	return nil
}

// Ensure GormStudentPlacementRepository implements StudentPlacementRepository
var _ ledger.StudentPlacementRepository = (*GormStudentPlacementRepository)(nil)
