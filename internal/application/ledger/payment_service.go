package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultReceiptTTL is how long a used receipt number stays in the receipt cache
const DefaultReceiptTTL = 24 * time.Hour

// PaymentService records and cancels payments against fee records.
//
// Applying a payment and recomputing its fee record is one transaction guarded by an
// optimistic version check on the fee record. A payment that loses the race is retried
// once against the fresh record, where the overpayment rule then sees the other payment.
type PaymentService struct {
	txScope    TransactionScope
	repos      Repositories
	clock      shared.Clock
	logger     *zap.Logger
	receipts   shared.IdempotencyStore
	receiptTTL time.Duration
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(txScope TransactionScope, repos Repositories, clock shared.Clock, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		txScope:    txScope,
		repos:      repos,
		clock:      orSystemClock(clock),
		logger:     orNop(logger),
		receiptTTL: DefaultReceiptTTL,
	}
}

// SetReceiptCache sets a cache of used receipt numbers that short-circuits resubmitted
// payments before any database work. The unique key in storage stays authoritative.
func (s *PaymentService) SetReceiptCache(store shared.IdempotencyStore, ttl time.Duration) {
	s.receipts = store
	if ttl > 0 {
		s.receiptTTL = ttl
	}
}

func receiptKey(schoolID uuid.UUID, receiptNumber string) string {
	return "receipt:" + schoolID.String() + ":" + strings.TrimSpace(receiptNumber)
}

func duplicateReceipt(receiptNumber string) error {
	return shared.NewDomainErrorOfKind(shared.KindConflict, ledger.CodeDuplicateReceipt,
		fmt.Sprintf("Receipt number %s is already used", receiptNumber)).
		WithDetail("field", "receipt_number").
		WithDetail("attempted", receiptNumber)
}

// RecordPayment applies received funds to a fee record
func (s *PaymentService) RecordPayment(ctx context.Context, schoolID uuid.UUID, req RecordPaymentRequest, actor shared.ActorRef) (*PaymentResult, error) {
	req.ReceiptNumber = strings.TrimSpace(req.ReceiptNumber)
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrFeeRecordID, req.FeeRecordID.String(),
		telemetry.SpanAttrReceiptNumber, req.ReceiptNumber,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	var result *PaymentResult
	err := runOperation(ctx, span, telemetry.OperationRecordPayment, schoolID, func(c context.Context) error {
		key := receiptKey(schoolID, req.ReceiptNumber)
		if s.receipts != nil {
			seen, err := s.receipts.IsProcessed(c, key)
			if err != nil {
				s.logger.Warn("Receipt cache unavailable, relying on storage", zap.Error(err))
			} else if seen {
				return duplicateReceipt(req.ReceiptNumber)
			}
		}

		res, err := s.recordOnce(c, schoolID, req, actor)
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Info("Fee record changed concurrently, retrying payment",
				zap.String("fee_record_id", req.FeeRecordID.String()),
				zap.String("receipt_number", req.ReceiptNumber),
			)
			telemetry.AddEvent(span, "payment_retry")
			res, err = s.recordOnce(c, schoolID, req, actor)
		}
		if err != nil {
			return err
		}

		if s.receipts != nil {
			if _, err := s.receipts.MarkProcessed(c, key, s.receiptTTL); err != nil {
				s.logger.Warn("Failed to cache receipt number", zap.Error(err))
			}
		}
		telemetry.AddEvent(span, "payment_applied",
			telemetry.SpanAttrPaymentID, res.Payment.ID.String(),
			"remaining_amount", res.FeeRecord.RemainingAmount.String(),
		)
		result = res
		return nil
	})
	return result, err
}

func (s *PaymentService) recordOnce(ctx context.Context, schoolID uuid.UUID, req RecordPaymentRequest, actor shared.ActorRef) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := s.clock.Now()
		fee, err := repos.FeeRecordRepo().FindByID(ctx, schoolID, req.FeeRecordID)
		if err != nil {
			return wrap(err, "get fee record")
		}
		exists, err := repos.PaymentRepo().ExistsByReceiptNumber(ctx, schoolID, req.ReceiptNumber)
		if err != nil {
			return wrap(err, "check receipt number")
		}
		if exists {
			return duplicateReceipt(req.ReceiptNumber)
		}

		in := ledger.NewPaymentInput{
			FeeRecordID:      fee.ID,
			Amount:           req.Amount,
			LateFeeComponent: req.LateFeeComponent,
			Method:           ledger.PaymentMethod(req.Method),
			ReceiptNumber:    req.ReceiptNumber,
			TransactionID:    req.TransactionID,
			ChequeNumber:     req.ChequeNumber,
			BankName:         req.BankName,
			CollectedBy:      actor,
			Remarks:          req.Remarks,
		}
		if req.PaymentDate != nil {
			in.PaymentDate = *req.PaymentDate
		}
		payment, err := ledger.NewPayment(fee, in, now)
		if err != nil {
			return err
		}
		if err := ledger.ApplyPayment(fee, payment, now); err != nil {
			return err
		}

		if err := repos.FeeRecordRepo().SaveWithLock(ctx, fee); err != nil {
			return wrap(err, "save fee record")
		}
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return duplicateReceipt(req.ReceiptNumber)
			}
			return wrap(err, "save payment")
		}
		if err := publishEvents(ctx, repos.EventPublisher(), fee, payment); err != nil {
			return wrap(err, "publish payment events")
		}

		result = &PaymentResult{
			Payment:   ToPaymentResponse(payment),
			FeeRecord: ToFeeRecordResponse(fee, now),
		}
		return nil
	})
	return result, err
}

// CancelPayment cancels a payment and takes it out of its fee record's paid amount.
// A completed fee record only accepts this with AllowReversal set.
func (s *PaymentService) CancelPayment(ctx context.Context, schoolID, paymentID uuid.UUID, req CancelPaymentRequest, actor shared.ActorRef) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "cancel")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
		"allow_reversal", req.AllowReversal,
	)

	var result *PaymentResult
	err := runOperation(ctx, span, telemetry.OperationCancelPayment, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			payment, err := repos.PaymentRepo().FindByID(c, schoolID, paymentID)
			if err != nil {
				return wrap(err, "get payment")
			}
			fee, err := repos.FeeRecordRepo().FindByID(c, schoolID, payment.FeeRecordID)
			if err != nil {
				return wrap(err, "get fee record")
			}
			if err := ledger.CancelPayment(fee, payment, req.Reason, req.AllowReversal, actor, now); err != nil {
				return err
			}
			if fee.IsDirty() {
				if err := repos.FeeRecordRepo().SaveWithLock(c, fee); err != nil {
					return wrap(err, "save fee record")
				}
			}
			if err := repos.PaymentRepo().Save(c, payment); err != nil {
				return wrap(err, "save payment")
			}
			if err := publishEvents(c, repos.EventPublisher(), fee, payment); err != nil {
				return wrap(err, "publish payment events")
			}
			result = &PaymentResult{
				Payment:   ToPaymentResponse(payment),
				FeeRecord: ToFeeRecordResponse(fee, now),
			}
			return nil
		})
	})
	return result, err
}

// GetPayment retrieves a payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, schoolID, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.repos.Payments.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, wrap(err, "get payment")
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// GetPaymentByReceipt retrieves a payment by its receipt number
func (s *PaymentService) GetPaymentByReceipt(ctx context.Context, schoolID uuid.UUID, receiptNumber string) (*PaymentResponse, error) {
	payment, err := s.repos.Payments.FindByReceiptNumber(ctx, schoolID, strings.TrimSpace(receiptNumber))
	if err != nil {
		return nil, wrap(err, "get payment")
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// ListPaymentsForFee lists every payment recorded against a fee record
func (s *PaymentService) ListPaymentsForFee(ctx context.Context, schoolID, feeRecordID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.repos.FeeRecords.FindByID(ctx, schoolID, feeRecordID); err != nil {
		return nil, wrap(err, "get fee record")
	}
	payments, err := s.repos.Payments.FindByFeeRecord(ctx, schoolID, feeRecordID)
	if err != nil {
		return nil, wrap(err, "list payments")
	}
	return ToPaymentResponses(payments), nil
}
