package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormConcessionRepository implements ConcessionRepository using GORM
type GormConcessionRepository struct {
	db *gorm.DB
}

// NewGormConcessionRepository creates a new GormConcessionRepository
func NewGormConcessionRepository(db *gorm.DB) *GormConcessionRepository {
	return &GormConcessionRepository{db: db}
}

// FindByID finds a concession by ID within a school
func (r *GormConcessionRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.Concession, error) {
	var model models.ConcessionModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds concessions matching the filter
func (r *GormConcessionRepository) FindAll(ctx context.Context, schoolID uuid.UUID, filter ledger.ConcessionFilter) ([]ledger.Concession, error) {
	query := r.db.WithContext(ctx).Model(&models.ConcessionModel{}).Where("school_id = ?", schoolID)
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.AcademicYearID != nil {
		query = query.Where("academic_year_id = ?", *filter.AcademicYearID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	query = applyPagination(query, filter.Filter)

	orderBy := ValidateSortField(filter.OrderBy, ConcessionSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	var concessionModels []models.ConcessionModel
	if err := query.Find(&concessionModels).Error; err != nil {
		return nil, err
	}
	return concessionsToDomain(concessionModels), nil
}

// FindByScope finds concessions for a student, fee category and academic year, oldest first
func (r *GormConcessionRepository) FindByScope(ctx context.Context, schoolID, studentID uuid.UUID, category ledger.FeeCategory, academicYearID uuid.UUID) ([]ledger.Concession, error) {
	var concessionModels []models.ConcessionModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND student_id = ? AND category = ? AND academic_year_id = ?",
			schoolID, studentID, string(category), academicYearID).
		Order("created_at ASC").
		Find(&concessionModels).Error; err != nil {
		return nil, err
	}
	return concessionsToDomain(concessionModels), nil
}

// Save creates a new concession or overwrites a stored one
func (r *GormConcessionRepository) Save(ctx context.Context, concession *ledger.Concession) error {
	model := models.ConcessionModelFromDomain(concession)
	db := r.db.WithContext(ctx)

	var err error
	if concession.PersistedVersion() == 0 {
		err = db.Create(model).Error
	} else {
		err = db.Save(model).Error
	}
	if err != nil {
		return translateError(err)
	}
	concession.MarkPersisted()
	return nil
}

func concessionsToDomain(concessionModels []models.ConcessionModel) []ledger.Concession {
	concessions := make([]ledger.Concession, len(concessionModels))
	for i := range concessionModels {
		concessions[i] = *concessionModels[i].ToDomain()
	}
	return concessions
}

// Ensure GormConcessionRepository implements ConcessionRepository
var _ ledger.ConcessionRepository = (*GormConcessionRepository)(nil)
