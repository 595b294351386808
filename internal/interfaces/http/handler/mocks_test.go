package handler

import (
	"context"

	"github.com/google/uuid"
	eventapp "github.com/schoolledger/backend/internal/application/event"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockFeeService is a mock implementation of FeeService
type MockFeeService struct {
	mock.Mock
}

func (m *MockFeeService) feeRecord(args mock.Arguments) (*ledgerapp.FeeRecordResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.FeeRecordResponse), args.Error(1)
}

func (m *MockFeeService) CreateFeeRecord(ctx context.Context, schoolID uuid.UUID, req ledgerapp.CreateFeeRecordRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, req, actor))
}

func (m *MockFeeService) AssignFromStructure(ctx context.Context, schoolID uuid.UUID, req ledgerapp.AssignFeeRequest, actor shared.ActorRef) ([]ledgerapp.FeeRecordResponse, error) {
	args := m.Called(ctx, schoolID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.FeeRecordResponse), args.Error(1)
}

func (m *MockFeeService) ApplyFine(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockFeeService) ReverseFine(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockFeeService) ApplyDiscount(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockFeeService) ApplyWaiver(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockFeeService) Cancel(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockFeeService) WaiveAll(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockFeeService) Void(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockFeeService) RecomputeStatus(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id))
}

func (m *MockFeeService) RefreshOverdue(ctx context.Context, schoolID uuid.UUID) (*ledgerapp.RefreshOverdueResult, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.RefreshOverdueResult), args.Error(1)
}

func (m *MockFeeService) GetFeeRecord(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.FeeRecordResponse, error) {
	return m.feeRecord(m.Called(ctx, schoolID, id))
}

func (m *MockFeeService) ListFeeRecords(ctx context.Context, schoolID uuid.UUID, filter ledgerapp.FeeRecordListFilter) ([]ledgerapp.FeeRecordResponse, int64, error) {
	args := m.Called(ctx, schoolID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]ledgerapp.FeeRecordResponse), args.Get(1).(int64), args.Error(2)
}

// MockPaymentService is a mock implementation of PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, schoolID uuid.UUID, req ledgerapp.RecordPaymentRequest, actor shared.ActorRef) (*ledgerapp.PaymentResult, error) {
	args := m.Called(ctx, schoolID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResult), args.Error(1)
}

func (m *MockPaymentService) CancelPayment(ctx context.Context, schoolID, paymentID uuid.UUID, req ledgerapp.CancelPaymentRequest, actor shared.ActorRef) (*ledgerapp.PaymentResult, error) {
	args := m.Called(ctx, schoolID, paymentID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResult), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.PaymentResponse, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) GetPaymentByReceipt(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (*ledgerapp.PaymentResponse, error) {
	args := m.Called(ctx, schoolID, receiptNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) ListPaymentsForFee(ctx context.Context, schoolID, feeRecordID uuid.UUID) ([]ledgerapp.PaymentResponse, error) {
	args := m.Called(ctx, schoolID, feeRecordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.PaymentResponse), args.Error(1)
}

// MockConcessionService is a mock implementation of ConcessionService
type MockConcessionService struct {
	mock.Mock
}

func (m *MockConcessionService) concession(args mock.Arguments) (*ledgerapp.ConcessionResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ConcessionResponse), args.Error(1)
}

func (m *MockConcessionService) CreateConcession(ctx context.Context, schoolID uuid.UUID, req ledgerapp.CreateConcessionRequest, actor shared.ActorRef) (*ledgerapp.ConcessionResponse, error) {
	return m.concession(m.Called(ctx, schoolID, req, actor))
}

func (m *MockConcessionService) ApproveConcession(ctx context.Context, schoolID, id uuid.UUID, approver shared.ActorRef) (*ledgerapp.ConcessionResponse, error) {
	return m.concession(m.Called(ctx, schoolID, id, approver))
}

func (m *MockConcessionService) RejectConcession(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, approver shared.ActorRef) (*ledgerapp.ConcessionResponse, error) {
	return m.concession(m.Called(ctx, schoolID, id, req, approver))
}

func (m *MockConcessionService) ApplyToFeeRecord(ctx context.Context, schoolID, feeRecordID uuid.UUID, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error) {
	args := m.Called(ctx, schoolID, feeRecordID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.FeeRecordResponse), args.Error(1)
}

func (m *MockConcessionService) ResolveAmount(ctx context.Context, schoolID, concessionID, feeRecordID uuid.UUID) (*ledgerapp.ResolvedConcession, error) {
	args := m.Called(ctx, schoolID, concessionID, feeRecordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ResolvedConcession), args.Error(1)
}

func (m *MockConcessionService) GetConcession(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.ConcessionResponse, error) {
	return m.concession(m.Called(ctx, schoolID, id))
}

func (m *MockConcessionService) ListConcessions(ctx context.Context, schoolID uuid.UUID, filter ledgerapp.ConcessionListFilter) ([]ledgerapp.ConcessionResponse, error) {
	args := m.Called(ctx, schoolID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.ConcessionResponse), args.Error(1)
}

// MockCarryForwardService is a mock implementation of CarryForwardService
type MockCarryForwardService struct {
	mock.Mock
}

func (m *MockCarryForwardService) balance(args mock.Arguments) (*ledgerapp.BalanceResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.BalanceResponse), args.Error(1)
}

func (m *MockCarryForwardService) ComputeCarryForward(ctx context.Context, schoolID uuid.UUID, req ledgerapp.CarryForwardRequest, actor shared.ActorRef) (*ledgerapp.BalanceResponse, error) {
	return m.balance(m.Called(ctx, schoolID, req, actor))
}

func (m *MockCarryForwardService) BulkCarryForward(ctx context.Context, schoolID uuid.UUID, req ledgerapp.BulkCarryForwardRequest, actor shared.ActorRef) (*ledgerapp.BulkCarryForwardResult, error) {
	args := m.Called(ctx, schoolID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.BulkCarryForwardResult), args.Error(1)
}

func (m *MockCarryForwardService) AdjustBalance(ctx context.Context, schoolID, balanceID uuid.UUID, req ledgerapp.AdjustBalanceRequest, actor shared.ActorRef) (*ledgerapp.BalanceResponse, error) {
	return m.balance(m.Called(ctx, schoolID, balanceID, req, actor))
}

func (m *MockCarryForwardService) ClearBalance(ctx context.Context, schoolID, balanceID uuid.UUID, req ledgerapp.ClearBalanceRequest, actor shared.ActorRef) (*ledgerapp.BalanceResponse, error) {
	return m.balance(m.Called(ctx, schoolID, balanceID, req, actor))
}

func (m *MockCarryForwardService) GetBalance(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.BalanceResponse, error) {
	return m.balance(m.Called(ctx, schoolID, id))
}

func (m *MockCarryForwardService) ListBalances(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]ledgerapp.BalanceResponse, error) {
	args := m.Called(ctx, schoolID, academicYearID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.BalanceResponse), args.Error(1)
}

func (m *MockCarryForwardService) Reconcile(ctx context.Context, schoolID uuid.UUID, req ledgerapp.ReconcileRequest) (*ledgerapp.ReconciliationSummary, error) {
	args := m.Called(ctx, schoolID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ReconciliationSummary), args.Error(1)
}

// MockPromotionService is a mock implementation of PromotionService
type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) promotion(args mock.Arguments) (*ledgerapp.PromotionResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PromotionResponse), args.Error(1)
}

func (m *MockPromotionService) Promote(ctx context.Context, schoolID uuid.UUID, req ledgerapp.PromoteRequest, actor shared.ActorRef) (*ledgerapp.PromotionResponse, error) {
	return m.promotion(m.Called(ctx, schoolID, req, actor))
}

func (m *MockPromotionService) ProcessPromotion(ctx context.Context, schoolID, id uuid.UUID, actor shared.ActorRef) (*ledgerapp.PromotionResponse, error) {
	return m.promotion(m.Called(ctx, schoolID, id, actor))
}

func (m *MockPromotionService) RollbackPromotion(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.PromotionResponse, error) {
	return m.promotion(m.Called(ctx, schoolID, id, req, actor))
}

func (m *MockPromotionService) BulkPromote(ctx context.Context, schoolID uuid.UUID, req ledgerapp.BulkPromoteRequest, actor shared.ActorRef) (*ledgerapp.BulkPromotionResult, error) {
	args := m.Called(ctx, schoolID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.BulkPromotionResult), args.Error(1)
}

func (m *MockPromotionService) GetPromotion(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.PromotionResponse, error) {
	return m.promotion(m.Called(ctx, schoolID, id))
}

func (m *MockPromotionService) Statistics(ctx context.Context, schoolID, fromYearID, toYearID uuid.UUID) (*ledger.PromotionStatistics, error) {
	args := m.Called(ctx, schoolID, fromYearID, toYearID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PromotionStatistics), args.Error(1)
}

// MockOutboxService is a mock implementation of OutboxService
type MockOutboxService struct {
	mock.Mock
}

func (m *MockOutboxService) entry(args mock.Arguments) (*eventapp.OutboxEntryDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxService) ListDeadLetters(ctx context.Context, page, pageSize int) (*eventapp.OutboxListResult, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.OutboxListResult), args.Error(1)
}

func (m *MockOutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*eventapp.OutboxEntryDTO, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockOutboxService) RetryDeadLetter(ctx context.Context, id uuid.UUID) (*eventapp.OutboxEntryDTO, error) {
	return m.entry(m.Called(ctx, id))
}

func (m *MockOutboxService) RetryAllDeadLetters(ctx context.Context) (*eventapp.RetryAllResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.RetryAllResult), args.Error(1)
}

func (m *MockOutboxService) Stats(ctx context.Context) (*eventapp.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventapp.OutboxStatsDTO), args.Error(1)
}

var (
	_ FeeService          = (*MockFeeService)(nil)
	_ PaymentService      = (*MockPaymentService)(nil)
	_ ConcessionService   = (*MockConcessionService)(nil)
	_ CarryForwardService = (*MockCarryForwardService)(nil)
	_ PromotionService    = (*MockPromotionService)(nil)
	_ OutboxService       = (*MockOutboxService)(nil)
)
