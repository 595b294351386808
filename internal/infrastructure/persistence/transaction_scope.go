package persistence

import (
	"context"

	appledger "github.com/schoolledger/backend/internal/application/ledger"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Events published inside a unit of work go to the outbox through the same transaction.
type GormTransactionScope struct {
	db    *gorm.DB
	saver shared.OutboxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope.
// A nil saver drops events published inside the transaction.
func NewGormTransactionScope(db *gorm.DB, saver shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, saver: saver}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx, saver: s.saver}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all ledger repositories within a transaction.
type gormTransactionalRepositories struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

// FeeRecordRepo returns the fee record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) FeeRecordRepo() ledger.FeeRecordRepository {
	return NewGormFeeRecordRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PaymentRepo() ledger.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// ConcessionRepo returns the concession repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ConcessionRepo() ledger.ConcessionRepository {
	return NewGormConcessionRepository(r.tx)
}

// BalanceRepo returns the carried-forward balance repository scoped to the current transaction.
func (r *gormTransactionalRepositories) BalanceRepo() ledger.PreviousYearBalanceRepository {
	return NewGormPreviousYearBalanceRepository(r.tx)
}

// PromotionRepo returns the promotion repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PromotionRepo() ledger.StudentPromotionRepository {
	return NewGormStudentPromotionRepository(r.tx)
}

// PlacementRepo returns the student placement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) PlacementRepo() ledger.StudentPlacementRepository {
	return NewGormStudentPlacementRepository(r.tx)
}

// EventPublisher returns a publisher that writes to the outbox inside the current transaction.
func (r *gormTransactionalRepositories) EventPublisher() shared.EventPublisher {
	if r.saver == nil {
		return shared.NopEventPublisher{}
	}
	return &outboxTxPublisher{saver: r.saver, tx: r.tx}
}

// outboxTxPublisher adapts an OutboxEventSaver bound to one transaction to EventPublisher
type outboxTxPublisher struct {
	saver shared.OutboxEventSaver
	tx    *gorm.DB
}

// Publish saves the events to the outbox
func (p *outboxTxPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return p.saver.SaveEvents(ctx, p.tx, events...)
}

// NewRepositories builds the non-transactional ledger repositories on db
func NewRepositories(db *gorm.DB) appledger.Repositories {
	return appledger.Repositories{
		FeeRecords:  NewGormFeeRecordRepository(db),
		Payments:    NewGormPaymentRepository(db),
		Concessions: NewGormConcessionRepository(db),
		Balances:    NewGormPreviousYearBalanceRepository(db),
		Promotions:  NewGormStudentPromotionRepository(db),
		Placements:  NewGormStudentPlacementRepository(db),
	}
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
