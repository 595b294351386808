package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testNow    = time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	testSchool = uuid.MustParse("0b9d4a52-8f0e-4a43-9b0f-5a2f1d7c3e01")
	testClerk  = shared.UserActor(uuid.MustParse("6f1c2d9e-0a51-4a8f-9a37-3c1f0b6c7d11"))
	testClock  = shared.FixedClock{At: testNow}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockFeeRecordRepository is a mock implementation of ledger.FeeRecordRepository
type MockFeeRecordRepository struct {
	mock.Mock
}

func (m *MockFeeRecordRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.FeeRecord, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.FeeRecord), args.Error(1)
}

func (m *MockFeeRecordRepository) FindAll(ctx context.Context, schoolID uuid.UUID, filter ledger.FeeRecordFilter) ([]ledger.FeeRecord, error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).([]ledger.FeeRecord), args.Error(1)
}

func (m *MockFeeRecordRepository) Count(ctx context.Context, schoolID uuid.UUID, filter ledger.FeeRecordFilter) (int64, error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFeeRecordRepository) FindByStudentAndYear(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) ([]ledger.FeeRecord, error) {
	args := m.Called(ctx, schoolID, studentID, academicYearID)
	return args.Get(0).([]ledger.FeeRecord), args.Error(1)
}

func (m *MockFeeRecordRepository) FindByConcessionScope(ctx context.Context, schoolID, studentID uuid.UUID, category ledger.FeeCategory, academicYearID uuid.UUID) ([]ledger.FeeRecord, error) {
	args := m.Called(ctx, schoolID, studentID, category, academicYearID)
	return args.Get(0).([]ledger.FeeRecord), args.Error(1)
}

func (m *MockFeeRecordRepository) FindOpen(ctx context.Context, schoolID uuid.UUID) ([]ledger.FeeRecord, error) {
	args := m.Called(ctx, schoolID)
	return args.Get(0).([]ledger.FeeRecord), args.Error(1)
}

func (m *MockFeeRecordRepository) FindByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]ledger.FeeRecord, error) {
	args := m.Called(ctx, schoolID, academicYearID)
	return args.Get(0).([]ledger.FeeRecord), args.Error(1)
}

func (m *MockFeeRecordRepository) FindStudentIDsByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, schoolID, academicYearID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockFeeRecordRepository) Save(ctx context.Context, record *ledger.FeeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockFeeRecordRepository) SaveWithLock(ctx context.Context, record *ledger.FeeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of ledger.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.Payment, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByReceiptNumber(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (*ledger.Payment, error) {
	args := m.Called(ctx, schoolID, receiptNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ExistsByReceiptNumber(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (bool, error) {
	args := m.Called(ctx, schoolID, receiptNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) FindByFeeRecord(ctx context.Context, schoolID, feeRecordID uuid.UUID) ([]ledger.Payment, error) {
	args := m.Called(ctx, schoolID, feeRecordID)
	return args.Get(0).([]ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumCompletedByFeeRecords(ctx context.Context, schoolID uuid.UUID, feeRecordIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	args := m.Called(ctx, schoolID, feeRecordIDs)
	return args.Get(0).(map[uuid.UUID]decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockConcessionRepository is a mock implementation of ledger.ConcessionRepository
type MockConcessionRepository struct {
	mock.Mock
}

func (m *MockConcessionRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.Concession, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Concession), args.Error(1)
}

func (m *MockConcessionRepository) FindAll(ctx context.Context, schoolID uuid.UUID, filter ledger.ConcessionFilter) ([]ledger.Concession, error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).([]ledger.Concession), args.Error(1)
}

func (m *MockConcessionRepository) FindByScope(ctx context.Context, schoolID, studentID uuid.UUID, category ledger.FeeCategory, academicYearID uuid.UUID) ([]ledger.Concession, error) {
	args := m.Called(ctx, schoolID, studentID, category, academicYearID)
	return args.Get(0).([]ledger.Concession), args.Error(1)
}

func (m *MockConcessionRepository) Save(ctx context.Context, concession *ledger.Concession) error {
	args := m.Called(ctx, concession)
	return args.Error(0)
}

// MockBalanceRepository is a mock implementation of ledger.PreviousYearBalanceRepository
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.PreviousYearBalance, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PreviousYearBalance), args.Error(1)
}

func (m *MockBalanceRepository) ExistsForStudent(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) (bool, error) {
	args := m.Called(ctx, schoolID, studentID, academicYearID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBalanceRepository) FindUnresolvedForStudent(ctx context.Context, schoolID, studentID, academicYearID uuid.UUID) ([]ledger.PreviousYearBalance, error) {
	args := m.Called(ctx, schoolID, studentID, academicYearID)
	return args.Get(0).([]ledger.PreviousYearBalance), args.Error(1)
}

func (m *MockBalanceRepository) FindByYear(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]ledger.PreviousYearBalance, error) {
	args := m.Called(ctx, schoolID, academicYearID)
	return args.Get(0).([]ledger.PreviousYearBalance), args.Error(1)
}

func (m *MockBalanceRepository) Save(ctx context.Context, balance *ledger.PreviousYearBalance) error {
	args := m.Called(ctx, balance)
	return args.Error(0)
}

func (m *MockBalanceRepository) SaveWithLock(ctx context.Context, balance *ledger.PreviousYearBalance) error {
	args := m.Called(ctx, balance)
	return args.Error(0)
}

// MockPromotionRepository is a mock implementation of ledger.StudentPromotionRepository
type MockPromotionRepository struct {
	mock.Mock
}

func (m *MockPromotionRepository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*ledger.StudentPromotion, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.StudentPromotion), args.Error(1)
}

func (m *MockPromotionRepository) ExistsForStudent(ctx context.Context, schoolID, studentID, fromYearID, toYearID uuid.UUID) (bool, error) {
	args := m.Called(ctx, schoolID, studentID, fromYearID, toYearID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPromotionRepository) CountByStatus(ctx context.Context, schoolID, fromYearID, toYearID uuid.UUID) (map[ledger.PromotionStatus]int64, error) {
	args := m.Called(ctx, schoolID, fromYearID, toYearID)
	return args.Get(0).(map[ledger.PromotionStatus]int64), args.Error(1)
}

func (m *MockPromotionRepository) Save(ctx context.Context, promotion *ledger.StudentPromotion) error {
	args := m.Called(ctx, promotion)
	return args.Error(0)
}

// MockPlacementRepository is a mock implementation of ledger.StudentPlacementRepository
type MockPlacementRepository struct {
	mock.Mock
}

func (m *MockPlacementRepository) FindByID(ctx context.Context, schoolID, studentID uuid.UUID) (*ledger.StudentPlacement, error) {
	args := m.Called(ctx, schoolID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.StudentPlacement), args.Error(1)
}

func (m *MockPlacementRepository) FindIDsByClass(ctx context.Context, schoolID, classID, academicYearID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, schoolID, classID, academicYearID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockPlacementRepository) SaveWithLock(ctx context.Context, placement *ledger.StudentPlacement) error {
	args := m.Called(ctx, placement)
	return args.Error(0)
}

// MockFeeStructureResolver is a mock implementation of ledger.FeeStructureResolver
type MockFeeStructureResolver struct {
	mock.Mock
}

func (m *MockFeeStructureResolver) Resolve(ctx context.Context, schoolID uuid.UUID, query ledger.FeeStructureQuery) (*ledger.FeeStructure, error) {
	args := m.Called(ctx, schoolID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.FeeStructure), args.Error(1)
}

// testRepos bundles the mocks behind a NoOpTransactionScope
type testRepos struct {
	fees       *MockFeeRecordRepository
	payments   *MockPaymentRepository
	concession *MockConcessionRepository
	balances   *MockBalanceRepository
	promotions *MockPromotionRepository
	placements *MockPlacementRepository
	publisher  *MockEventPublisher
}

func newTestRepos() *testRepos {
	return &testRepos{
		fees:       new(MockFeeRecordRepository),
		payments:   new(MockPaymentRepository),
		concession: new(MockConcessionRepository),
		balances:   new(MockBalanceRepository),
		promotions: new(MockPromotionRepository),
		placements: new(MockPlacementRepository),
		publisher:  NewMockEventPublisher(),
	}
}

func (r *testRepos) repositories() Repositories {
	return Repositories{
		FeeRecords:  r.fees,
		Payments:    r.payments,
		Concessions: r.concession,
		Balances:    r.balances,
		Promotions:  r.promotions,
		Placements:  r.placements,
	}
}

func (r *testRepos) scope() TransactionScope {
	return NewNoOpTransactionScope(r.repositories(), r.publisher)
}

// loadedFeeRecord builds a fee record as a repository would return it
func loadedFeeRecord(t *testing.T, base string, due time.Time) *ledger.FeeRecord {
	t.Helper()
	return loadedFeeRecordFor(t, uuid.New(), uuid.New(), base, due)
}

func loadedFeeRecordFor(t *testing.T, studentID, yearID uuid.UUID, base string, due time.Time) *ledger.FeeRecord {
	t.Helper()
	f, err := ledger.NewFeeRecord(testSchool, ledger.NewFeeRecordInput{
		StudentID:      studentID,
		FeeStructureID: uuid.New(),
		AcademicYearID: yearID,
		ClassID:        uuid.New(),
		Category:       ledger.FeeCategoryTuition,
		BaseAmount:     dec(base),
		DueDate:        due,
		CreatedBy:      testClerk,
	}, testNow.AddDate(0, -1, 0))
	require.NoError(t, err)
	return persisted(f)
}

// loadedConcession builds a concession as a repository would return it, approved unless pending is set
func loadedConcession(t *testing.T, studentID, yearID uuid.UUID, calc ledger.CalculationType, value string, pending bool) *ledger.Concession {
	t.Helper()
	c, err := ledger.NewConcession(testSchool, ledger.NewConcessionInput{
		StudentID:       studentID,
		Category:        ledger.FeeCategoryTuition,
		AcademicYearID:  yearID,
		Name:            "Sibling",
		CalculationType: calc,
		Value:           dec(value),
		RequestedBy:     testClerk,
	}, testNow.AddDate(0, -2, 0))
	require.NoError(t, err)
	if !pending {
		_, err = c.Approve(testClerk, testNow.AddDate(0, -2, 0))
		require.NoError(t, err)
	}
	return persisted(c)
}

func persisted[T interface {
	MarkPersisted()
	ClearDomainEvents()
}](agg T) T {
	agg.MarkPersisted()
	agg.ClearDomainEvents()
	return agg
}

// memoryStore is an in-memory shared.IdempotencyStore
type memoryStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: make(map[string]bool)}
}

func (s *memoryStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryStore) Close() error { return nil }
