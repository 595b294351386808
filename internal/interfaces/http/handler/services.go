package handler

import (
	"context"

	"github.com/google/uuid"
	eventapp "github.com/schoolledger/backend/internal/application/event"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
)

// FeeService is the part of ledgerapp.FeeService the HTTP layer calls
type FeeService interface {
	CreateFeeRecord(ctx context.Context, schoolID uuid.UUID, req ledgerapp.CreateFeeRecordRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	AssignFromStructure(ctx context.Context, schoolID uuid.UUID, req ledgerapp.AssignFeeRequest, actor shared.ActorRef) ([]ledgerapp.FeeRecordResponse, error)
	ApplyFine(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	ReverseFine(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	ApplyDiscount(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	ApplyWaiver(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.AmountRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	Cancel(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	WaiveAll(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	Void(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	RecomputeStatus(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.FeeRecordResponse, error)
	RefreshOverdue(ctx context.Context, schoolID uuid.UUID) (*ledgerapp.RefreshOverdueResult, error)
	GetFeeRecord(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.FeeRecordResponse, error)
	ListFeeRecords(ctx context.Context, schoolID uuid.UUID, filter ledgerapp.FeeRecordListFilter) ([]ledgerapp.FeeRecordResponse, int64, error)
}

// PaymentService is the part of ledgerapp.PaymentService the HTTP layer calls
type PaymentService interface {
	RecordPayment(ctx context.Context, schoolID uuid.UUID, req ledgerapp.RecordPaymentRequest, actor shared.ActorRef) (*ledgerapp.PaymentResult, error)
	CancelPayment(ctx context.Context, schoolID, paymentID uuid.UUID, req ledgerapp.CancelPaymentRequest, actor shared.ActorRef) (*ledgerapp.PaymentResult, error)
	GetPayment(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.PaymentResponse, error)
	GetPaymentByReceipt(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (*ledgerapp.PaymentResponse, error)
	ListPaymentsForFee(ctx context.Context, schoolID, feeRecordID uuid.UUID) ([]ledgerapp.PaymentResponse, error)
}

// ConcessionService is the part of ledgerapp.ConcessionService the HTTP layer calls
type ConcessionService interface {
	CreateConcession(ctx context.Context, schoolID uuid.UUID, req ledgerapp.CreateConcessionRequest, actor shared.ActorRef) (*ledgerapp.ConcessionResponse, error)
	ApproveConcession(ctx context.Context, schoolID, id uuid.UUID, approver shared.ActorRef) (*ledgerapp.ConcessionResponse, error)
	RejectConcession(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, approver shared.ActorRef) (*ledgerapp.ConcessionResponse, error)
	ApplyToFeeRecord(ctx context.Context, schoolID, feeRecordID uuid.UUID, actor shared.ActorRef) (*ledgerapp.FeeRecordResponse, error)
	ResolveAmount(ctx context.Context, schoolID, concessionID, feeRecordID uuid.UUID) (*ledgerapp.ResolvedConcession, error)
	GetConcession(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.ConcessionResponse, error)
	ListConcessions(ctx context.Context, schoolID uuid.UUID, filter ledgerapp.ConcessionListFilter) ([]ledgerapp.ConcessionResponse, error)
}

// CarryForwardService is the part of ledgerapp.CarryForwardService the HTTP layer calls
type CarryForwardService interface {
	ComputeCarryForward(ctx context.Context, schoolID uuid.UUID, req ledgerapp.CarryForwardRequest, actor shared.ActorRef) (*ledgerapp.BalanceResponse, error)
	BulkCarryForward(ctx context.Context, schoolID uuid.UUID, req ledgerapp.BulkCarryForwardRequest, actor shared.ActorRef) (*ledgerapp.BulkCarryForwardResult, error)
	AdjustBalance(ctx context.Context, schoolID, balanceID uuid.UUID, req ledgerapp.AdjustBalanceRequest, actor shared.ActorRef) (*ledgerapp.BalanceResponse, error)
	ClearBalance(ctx context.Context, schoolID, balanceID uuid.UUID, req ledgerapp.ClearBalanceRequest, actor shared.ActorRef) (*ledgerapp.BalanceResponse, error)
	GetBalance(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.BalanceResponse, error)
	ListBalances(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]ledgerapp.BalanceResponse, error)
	Reconcile(ctx context.Context, schoolID uuid.UUID, req ledgerapp.ReconcileRequest) (*ledgerapp.ReconciliationSummary, error)
}

// PromotionService is the part of ledgerapp.PromotionService the HTTP layer calls
type PromotionService interface {
	Promote(ctx context.Context, schoolID uuid.UUID, req ledgerapp.PromoteRequest, actor shared.ActorRef) (*ledgerapp.PromotionResponse, error)
	ProcessPromotion(ctx context.Context, schoolID, id uuid.UUID, actor shared.ActorRef) (*ledgerapp.PromotionResponse, error)
	RollbackPromotion(ctx context.Context, schoolID, id uuid.UUID, req ledgerapp.ReasonRequest, actor shared.ActorRef) (*ledgerapp.PromotionResponse, error)
	BulkPromote(ctx context.Context, schoolID uuid.UUID, req ledgerapp.BulkPromoteRequest, actor shared.ActorRef) (*ledgerapp.BulkPromotionResult, error)
	GetPromotion(ctx context.Context, schoolID, id uuid.UUID) (*ledgerapp.PromotionResponse, error)
	Statistics(ctx context.Context, schoolID, fromYearID, toYearID uuid.UUID) (*ledger.PromotionStatistics, error)
}

// OutboxService is the operator view of event delivery
type OutboxService interface {
	ListDeadLetters(ctx context.Context, page, pageSize int) (*eventapp.OutboxListResult, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*eventapp.OutboxEntryDTO, error)
	RetryDeadLetter(ctx context.Context, id uuid.UUID) (*eventapp.OutboxEntryDTO, error)
	RetryAllDeadLetters(ctx context.Context) (*eventapp.RetryAllResult, error)
	Stats(ctx context.Context) (*eventapp.OutboxStatsDTO, error)
}

var (
	_ FeeService          = (*ledgerapp.FeeService)(nil)
	_ PaymentService      = (*ledgerapp.PaymentService)(nil)
	_ ConcessionService   = (*ledgerapp.ConcessionService)(nil)
	_ CarryForwardService = (*ledgerapp.CarryForwardService)(nil)
	_ PromotionService    = (*ledgerapp.PromotionService)(nil)
	_ OutboxService       = (*eventapp.OutboxService)(nil)
)
