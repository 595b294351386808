package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPreviousYearBalanceRepository implements PreviousYearBalanceRepository using GORM
type GormPreviousYearBalanceRepository struct {
	db *gorm.DB
}

// NewGormPreviousYearBalanceRepository creates a new GormPreviousYearBalanceRepository
func NewGormPreviousYearBalanceRepository(db *gorm.DB) *GormPreviousYearBalanceRepository {
	return &GormPreviousYearBalanceRepository{db: db}
}

// FindByID finds a carried-forward balance by ID within a school
func (r *GormPreviousYearBalanceRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.PreviousYearBalance, error) {
	var model models.PreviousYearBalanceModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsForStudent checks if a balance was already carried into the academic year for the student
func (r *GormPreviousYearBalanceRepository) ExistsForStudent(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PreviousYearBalanceModel{}).
		Where("school_id = ? AND student_id = ? AND academic_year_id = ?", schoolID, studentID, academicYearID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindUnresolvedForStudent finds balances carried into the academic year that are not cleared yet
func (r *GormPreviousYearBalanceRepository) FindUnresolvedForStudent(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) ([]ledger.PreviousYearBalance, error) {
	var balanceModels []models.PreviousYearBalanceModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND student_id = ? AND academic_year_id = ? AND status <> ?",
			schoolID, studentID, academicYearID, string(ledger.BalanceStatusCleared)).
		Order("created_at ASC").
		Find(&balanceModels).Error; err != nil {
		return nil, err
	}
	return balancesToDomain(balanceModels), nil
}

// FindByYear finds every balance carried into the academic year
func (r *GormPreviousYearBalanceRepository) FindByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]ledger.PreviousYearBalance, error) {
	var balanceModels []models.PreviousYearBalanceModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND academic_year_id = ?", schoolID, academicYearID).
		Order("student_id ASC").
		Find(&balanceModels).Error; err != nil {
		return nil, err
	}
	return balancesToDomain(balanceModels), nil
}

// Save creates a new balance or overwrites a stored one.
// A second balance for the same student and year fails with shared.ErrAlreadyExists.
func (r *GormPreviousYearBalanceRepository) Save(ctx context.Context, balance *ledger.PreviousYearBalance) error {
	model := models.PreviousYearBalanceModelFromDomain(balance)
	db := r.db.WithContext(ctx)

	var err error
	if balance.PersistedVersion() == 0 {
		err = db.Create(model).Error
	} else {
		err = db.Save(model).Error
	}
	if err != nil {
		return translateError(err)
	}
	balance.MarkPersisted()
	return nil
}

// SaveWithLock updates an adjusted or cleared balance only if the stored version is still
// the one it was read at
func (r *GormPreviousYearBalanceRepository) SaveWithLock(ctx context.Context, balance *ledger.PreviousYearBalance) error {
	result := r.db.WithContext(ctx).
		Model(&models.PreviousYearBalanceModel{}).
		Where("id = ? AND school_id = ? AND version = ?", balance.ID, balance.SchoolID, balance.PersistedVersion()).
		Updates(map[string]any{
			"adjustment_amount": balance.AdjustmentAmount,
			"final_balance":     balance.FinalBalance,
			"status":            string(balance.Status),
			"adjustment_reason": balance.AdjustmentReason,
			"processed_by":      balance.ProcessedBy,
			"processed_at":      balance.ProcessedAt,
			"remarks":           balance.Remarks,
			"version":           balance.Version,
			"updated_at":        balance.UpdatedAt,
		})

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("balance_id", balance.ID)
	}
	balance.MarkPersisted()
	return nil
}

func balancesToDomain(balanceModels []models.PreviousYearBalanceModel) []ledger.PreviousYearBalance {
	balances := make([]ledger.PreviousYearBalance, len(balanceModels))
	for i := range balanceModels {
		balances[i] = *balanceModels[i].ToDomain()
	}
	return balances
}

// Ensure GormPreviousYearBalanceRepository implements PreviousYearBalanceRepository
var _ ledger.PreviousYearBalanceRepository = (*GormPreviousYearBalanceRepository)(nil)
