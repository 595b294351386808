package persistence

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/models"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/schoolscope"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newMockGormDB creates a GORM DB backed by sqlmock that speaks the postgres dialect
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

// setupLedgerTestDB opens an in-memory SQLite database with the ledger tables migrated
func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.FeeRecordModel{},
		&models.PaymentModel{},
		&models.ConcessionModel{},
		&models.PreviousYearBalanceModel{},
		&models.StudentPromotionModel{},
		&models.StudentModel{},
		&models.FeeStructureModel{},
		&models.OutboxEntryModel{},
	)
	require.NoError(t, err)
	require.NoError(t, schoolscope.Register(db, schoolscope.DefaultConfig()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: databases are per connection
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}
