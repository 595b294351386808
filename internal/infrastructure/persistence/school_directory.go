package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSchoolDirectory lists schools across the whole ledger. It is the one
// reader that deliberately spans schools, so it bypasses the school scope guard.
type GormSchoolDirectory struct {
	db *gorm.DB
}

// NewGormSchoolDirectory creates a new GormSchoolDirectory
func NewGormSchoolDirectory(db *gorm.DB) *GormSchoolDirectory {
	return &GormSchoolDirectory{db: db}
}

// ActiveSchoolIDs returns every school with at least one open fee record
func (d *GormSchoolDirectory) ActiveSchoolIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := d.db.WithContext(ctx).
		Unscoped().
		Model(&models.FeeRecordModel{}).
		Where("status IN ?", []string{string(ledger.FeeStatusPending), string(ledger.FeeStatusOverdue)}).
		Distinct().
		Order("school_id").
		Pluck("school_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
