package ledger

import (
	"context"

	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every repository handed to fn shares one database transaction, which is committed
// when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes the repositories of one unit of work.
//
// EventPublisher writes domain events to the outbox inside the same transaction,
// so an event exists if and only if the state change that raised it was committed.
type TransactionalRepositories interface {
	FeeRecordRepo() ledger.FeeRecordRepository
	PaymentRepo() ledger.PaymentRepository
	ConcessionRepo() ledger.ConcessionRepository
	BalanceRepo() ledger.PreviousYearBalanceRepository
	PromotionRepo() ledger.StudentPromotionRepository
	PlacementRepo() ledger.StudentPlacementRepository
	EventPublisher() shared.EventPublisher
}

// Repositories groups the non-transactional repositories a scope is built from
type Repositories struct {
	FeeRecords  ledger.FeeRecordRepository
	Payments    ledger.PaymentRepository
	Concessions ledger.ConcessionRepository
	Balances    ledger.PreviousYearBalanceRepository
	Promotions  ledger.StudentPromotionRepository
	Placements  ledger.StudentPlacementRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used in tests and wherever transaction support is not required.
type NoOpTransactionScope struct {
	repos     Repositories
	publisher shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope. A nil publisher drops events.
func NewNoOpTransactionScope(repos Repositories, publisher shared.EventPublisher) *NoOpTransactionScope {
	if publisher == nil {
		publisher = shared.NopEventPublisher{}
	}
	return &NoOpTransactionScope{repos: repos, publisher: publisher}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// FeeRecordRepo returns the fee record repository
func (s *NoOpTransactionScope) FeeRecordRepo() ledger.FeeRecordRepository {
	return s.repos.FeeRecords
}

// PaymentRepo returns the payment repository
func (s *NoOpTransactionScope) PaymentRepo() ledger.PaymentRepository {
	return s.repos.Payments
}

// ConcessionRepo returns the concession repository
func (s *NoOpTransactionScope) ConcessionRepo() ledger.ConcessionRepository {
	return s.repos.Concessions
}

// BalanceRepo returns the previous year balance repository
func (s *NoOpTransactionScope) BalanceRepo() ledger.PreviousYearBalanceRepository {
	return s.repos.Balances
}

// PromotionRepo returns the promotion repository
func (s *NoOpTransactionScope) PromotionRepo() ledger.StudentPromotionRepository {
	return s.repos.Promotions
}

// PlacementRepo returns the student placement repository
func (s *NoOpTransactionScope) PlacementRepo() ledger.StudentPlacementRepository {
	return s.repos.Placements
}

// EventPublisher returns the configured publisher
func (s *NoOpTransactionScope) EventPublisher() shared.EventPublisher {
	return s.publisher
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

// eventSource is an aggregate carrying pending domain events
type eventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// publishEvents hands the pending events of the aggregates to the publisher and clears them
func publishEvents(ctx context.Context, publisher shared.EventPublisher, sources ...eventSource) error {
	var events []shared.DomainEvent
	for _, src := range sources {
		events = append(events, src.GetDomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		return err
	}
	for _, src := range sources {
		src.ClearDomainEvents()
	}
	return nil
}
