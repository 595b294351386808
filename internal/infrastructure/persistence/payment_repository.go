package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID within a school
func (r *GormPaymentRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND id = ?", schoolID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByReceiptNumber finds a payment by its receipt number within a school
func (r *GormPaymentRepository) FindByReceiptNumber(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND receipt_number = ?", schoolID, receiptNumber).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsByReceiptNumber checks if a receipt number is already used in the school
func (r *GormPaymentRepository) ExistsByReceiptNumber(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("school_id = ? AND receipt_number = ?", schoolID, receiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByFeeRecord finds every payment recorded against a fee record, oldest first
func (r *GormPaymentRepository) FindByFeeRecord(ctx context.Context, schoolID, feeRecordID uuid.UUID) ([]ledger.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("school_id = ? AND fee_record_id = ?", schoolID, feeRecordID).
		Order("payment_date ASC, created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]ledger.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// paymentSum is the row shape of the completed-payment aggregate
type paymentSum struct {
	FeeRecordID uuid.UUID
	Total       decimal.Decimal
}

// SumCompletedByFeeRecords sums completed payments per fee record.
// Fee records without completed payments are absent from the result.
func (r *GormPaymentRepository) SumCompletedByFeeRecords(ctx context.Context, schoolID uuid.UUID, feeRecordIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	sums := make(map[uuid.UUID]decimal.Decimal, len(feeRecordIDs))
	if len(feeRecordIDs) == 0 {
		return sums, nil
	}

	var rows []paymentSum
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("fee_record_id, SUM(amount) AS total").
		Where("school_id = ? AND fee_record_id IN ? AND status = ?", schoolID, feeRecordIDs, string(ledger.PaymentRecordStatusCompleted)).
		Group("fee_record_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		sums[row.FeeRecordID] = row.Total
	}
	return sums, nil
}

// Save creates a new payment or overwrites a stored one.
// A receipt number reused within the school fails with shared.ErrAlreadyExists.
func (r *GormPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	db := r.db.WithContext(ctx)

	var err error
	if payment.PersistedVersion() == 0 {
		err = db.Create(model).Error
	} else {
		err = db.Save(model).Error
	}
	if err != nil {
		return translateError(err)
	}
	payment.MarkPersisted()
	return nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
