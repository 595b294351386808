//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/migration"
	"github.com/schoolledger/backend/internal/infrastructure/persistence/schoolscope"
	"github.com/schoolledger/backend/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// One container per package run; each test works in its own schools
	sharedContainer   *tcpostgres.PostgresContainer
	sharedContainerMu sync.Mutex
	sharedDSN         string
)

// newPostgresTestDB returns a GORM connection to a migrated PostgreSQL
// container with the school scope guard registered.
func newPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	sharedContainerMu.Lock()
	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("school_ledger_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("ledger-test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			sharedContainerMu.Unlock()
			require.NoError(t, err, "Failed to start PostgreSQL container")
		}
		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			sharedContainerMu.Unlock()
			require.NoError(t, err, "Failed to get connection string")
		}
		migrateSchema(t, dsn)
		sharedContainer = container
		sharedDSN = dsn
	}
	dsn := sharedDSN
	sharedContainerMu.Unlock()

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, schoolscope.Register(db, schoolscope.DefaultConfig()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func migrateSchema(t *testing.T, dsn string) {
	t.Helper()
	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	migrator, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = migrator.Close() }()
	require.NoError(t, migrator.Up(), "Failed to run migrations")
}

func TestPostgres_FeeRecordOptimisticLock(t *testing.T) {
	db := newPostgresTestDB(t)
	repo := NewGormFeeRecordRepository(db)
	ctx := context.Background()
	fx := newFeeFixture()

	record := fx.feeRecord(t, 10000)
	require.NoError(t, repo.Save(ctx, record))

	first, err := repo.FindByID(ctx, fx.schoolID, record.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, fx.schoolID, record.ID)
	require.NoError(t, err)

	require.NoError(t, first.ApplyFine(decimal.NewFromInt(250), "late", shared.SystemActor, testNow))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.ApplyDiscount(decimal.NewFromInt(100), "sibling", shared.SystemActor, testNow))
	assert.ErrorIs(t, repo.SaveWithLock(ctx, second), shared.ErrConcurrencyConflict)

	stored, err := repo.FindByID(ctx, fx.schoolID, record.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(10250)))
}

func TestPostgres_ReceiptNumbersAreUniquePerSchool(t *testing.T) {
	db := newPostgresTestDB(t)
	feeRepo := NewGormFeeRecordRepository(db)
	payments := NewGormPaymentRepository(db)
	ctx := context.Background()
	receipt := "RCPT-" + uuid.NewString()[:8]

	fx := newFeeFixture()
	fee := fx.feeRecord(t, 5000)
	require.NoError(t, feeRepo.Save(ctx, fee))
	require.NoError(t, payments.Save(ctx, fx.payment(t, fee, 1000, receipt)))
	assert.ErrorIs(t, payments.Save(ctx, fx.payment(t, fee, 500, receipt)), shared.ErrAlreadyExists)

	other := newFeeFixture()
	otherFee := other.feeRecord(t, 5000)
	require.NoError(t, feeRepo.Save(ctx, otherFee))
	assert.NoError(t, payments.Save(ctx, other.payment(t, otherFee, 1000, receipt)))
}

func TestPostgres_SchoolScopeGuard(t *testing.T) {
	db := newPostgresTestDB(t)
	ctx := context.Background()

	var count int64
	err := db.WithContext(ctx).Table("fee_records").Count(&count).Error
	assert.ErrorIs(t, err, schoolscope.ErrSchoolScopeRequired)

	fx := newFeeFixture()
	require.NoError(t, NewGormFeeRecordRepository(db).Save(ctx, fx.feeRecord(t, 3000)))

	ids, err := NewGormSchoolDirectory(db).ActiveSchoolIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, fx.schoolID)

	open, err := NewGormFeeRecordRepository(db).FindOpen(ctx, fx.schoolID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, ledger.FeeStatusPending, open[0].Status)
}
