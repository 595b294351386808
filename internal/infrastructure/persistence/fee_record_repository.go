package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFeeRecordRepository implements FeeRecordRepository using GORM
type GormFeeRecordRepository struct {
	db *gorm.DB
}

// NewGormFeeRecordRepository creates a new GormFeeRecordRepository
func NewGormFeeRecordRepository(db *gorm.DB) *GormFeeRecordRepository {
	return &GormFeeRecordRepository{db: db}
}

// FindByID finds a fee record by ID within a school
func (r *GormFeeRecordRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.FeeRecord, error) {
	var model models.FeeRecordModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds fee records matching the filter
func (r *GormFeeRecordRepository) FindAll(ctx context.Context, schoolID uuid.UUID, filter ledger.FeeRecordFilter) ([]ledger.FeeRecord, error) {
	var feeModels []models.FeeRecordModel
	query := r.applyFilter(r.scoped(ctx, schoolID), filter)
	query = applyPagination(query, filter.Filter)

	orderBy := ValidateSortField(filter.OrderBy, FeeRecordSortFields, "")
	if orderBy == "" {
		query = query.Order("due_date ASC, installment_number ASC")
	} else {
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	}

	if err := query.Find(&feeModels).Error; err != nil {
		return nil, err
	}
	return feeRecordsToDomain(feeModels), nil
}

// Count counts fee records matching the filter
func (r *GormFeeRecordRepository) Count(ctx context.Context, schoolID uuid.UUID, filter ledger.FeeRecordFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.scoped(ctx, schoolID), filter).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByStudentAndYear finds every fee record of a student in an academic year
func (r *GormFeeRecordRepository) FindByStudentAndYear(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) ([]ledger.FeeRecord, error) {
	var feeModels []models.FeeRecordModel
	if err := r.scoped(ctx, schoolID).
		Where("student_id = ? AND academic_year_id = ?", studentID, academicYearID).
		Order("due_date ASC, installment_number ASC").
		Find(&feeModels).Error; err != nil {
		return nil, err
	}
	return feeRecordsToDomain(feeModels), nil
}

// FindByConcessionScope finds the fee records a concession for the student, category and year applies to
func (r *GormFeeRecordRepository) FindByConcessionScope(ctx context.Context, schoolID, studentID uuid.UUID, category ledger.FeeCategory, academicYearID uuid.UUID) ([]ledger.FeeRecord, error) {
	var feeModels []models.FeeRecordModel
	if err := r.scoped(ctx, schoolID).
		Where("student_id = ? AND category = ? AND academic_year_id = ?", studentID, string(category), academicYearID).
		Order("due_date ASC, installment_number ASC").
		Find(&feeModels).Error; err != nil {
		return nil, err
	}
	return feeRecordsToDomain(feeModels), nil
}

// FindOpen finds fee records that can still be billed against: pending and overdue
func (r *GormFeeRecordRepository) FindOpen(ctx context.Context, schoolID uuid.UUID) ([]ledger.FeeRecord, error) {
	var feeModels []models.FeeRecordModel
	if err := r.scoped(ctx, schoolID).
		Where("status IN ?", []string{string(ledger.FeeStatusPending), string(ledger.FeeStatusOverdue)}).
		Order("due_date ASC").
		Find(&feeModels).Error; err != nil {
		return nil, err
	}
	return feeRecordsToDomain(feeModels), nil
}

// FindByYear finds every fee record of an academic year
func (r *GormFeeRecordRepository) FindByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]ledger.FeeRecord, error) {
	var feeModels []models.FeeRecordModel
	if err := r.scoped(ctx, schoolID).
		Where("academic_year_id = ?", academicYearID).
		Order("student_id ASC, due_date ASC").
		Find(&feeModels).Error; err != nil {
		return nil, err
	}
	return feeRecordsToDomain(feeModels), nil
}

// FindStudentIDsByYear lists the distinct students holding fee records in an academic year
func (r *GormFeeRecordRepository) FindStudentIDsByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.scoped(ctx, schoolID).
		Where("academic_year_id = ?", academicYearID).
		Distinct("student_id").
		Order("student_id ASC").
		Pluck("student_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates a new fee record or overwrites a stored one
func (r *GormFeeRecordRepository) Save(ctx context.Context, record *ledger.FeeRecord) error {
	model := models.FeeRecordModelFromDomain(record)
	db := r.db.WithContext(ctx)

	var err error
	if record.PersistedVersion() == 0 {
		err = db.Create(model).Error
	} else {
		err = db.Save(model).Error
	}
	if err != nil {
		return translateError(err)
	}
	record.MarkPersisted()
	return nil
}

// SaveWithLock updates a fee record only if the stored version is still the one it was read at
func (r *GormFeeRecordRepository) SaveWithLock(ctx context.Context, record *ledger.FeeRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.FeeRecordModel{}).
		Where("id = ? AND school_id = ? AND version = ?", record.ID, record.SchoolID, record.PersistedVersion()).
		Updates(map[string]any{
			"base_amount":      record.BaseAmount,
			"fine_amount":      record.FineAmount,
			"discount_amount":  record.DiscountAmount,
			"waiver_amount":    record.WaiverAmount,
			"total_amount":     record.TotalAmount,
			"paid_amount":      record.PaidAmount,
			"remaining_amount": record.RemainingAmount,
			"due_date":         record.DueDate,
			"status":           string(record.Status),
			"payment_status":   string(record.PaymentStatus),
			"concession_id":    record.ConcessionID,
			"fine_reason":      record.FineReason,
			"discount_reason":  record.DiscountReason,
			"waiver_reason":    record.WaiverReason,
			"cancel_reason":    record.CancelReason,
			"remarks":          record.Remarks,
			"approved_by":      record.ApprovedBy,
			"approved_at":      record.ApprovedAt,
			"paid_at":          record.PaidAt,
			"cancelled_at":     record.CancelledAt,
			"waived_at":        record.WaivedAt,
			"voided_at":        record.VoidedAt,
			"version":          record.Version,
			"updated_at":       record.UpdatedAt,
		})

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return versionConflict("fee_record_id", record.ID)
	}
	record.MarkPersisted()
	return nil
}

func (r *GormFeeRecordRepository) scoped(ctx context.Context, schoolID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.FeeRecordModel{}).Where("school_id = ?", schoolID)
}

// applyFilter applies filter conditions without pagination or ordering
func (r *GormFeeRecordRepository) applyFilter(query *gorm.DB, filter ledger.FeeRecordFilter) *gorm.DB {
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.AcademicYearID != nil {
		query = query.Where("academic_year_id = ?", *filter.AcademicYearID)
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", string(*filter.Category))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}
	return query
}

// applyPagination applies page and page size when both are set
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

func feeRecordsToDomain(feeModels []models.FeeRecordModel) []ledger.FeeRecord {
	records := make([]ledger.FeeRecord, len(feeModels))
	for i := range feeModels {
		records[i] = *feeModels[i].ToDomain()
	}
	return records
}

// Ensure GormFeeRecordRepository implements FeeRecordRepository
var _ ledger.FeeRecordRepository = (*GormFeeRecordRepository)(nil)
