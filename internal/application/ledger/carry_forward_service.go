package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CarryForwardService moves unresolved balances across academic-year boundaries and
// reconciles stored fee record amounts against their payments
type CarryForwardService struct {
	txScope   TransactionScope
	repos     Repositories
	clock     shared.Clock
	logger    *zap.Logger
	threshold decimal.Decimal
}

// NewCarryForwardService creates a new CarryForwardService
func NewCarryForwardService(txScope TransactionScope, repos Repositories, clock shared.Clock, logger *zap.Logger) *CarryForwardService {
	return &CarryForwardService{
		txScope:   txScope,
		repos:     repos,
		clock:     orSystemClock(clock),
		logger:    orNop(logger),
		threshold: decimal.Zero,
	}
}

// SetDefaultThreshold sets the bulk threshold used when a request carries none
func (s *CarryForwardService) SetDefaultThreshold(threshold decimal.Decimal) {
	s.threshold = threshold.Abs()
}

// ComputeCarryForward carries one student's unresolved balance of fromYear into toYear.
// The balance is the remaining amount over the student's fee records of fromYear that are
// not cancelled, waived or voided, plus any unresolved balance carried into fromYear.
// Source records are only read.
func (s *CarryForwardService) ComputeCarryForward(ctx context.Context, schoolID uuid.UUID, req CarryForwardRequest, actor shared.ActorRef) (*BalanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "carry_forward", "compute")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrAcademicYearID, req.ToYearID.String(),
	)

	var result *BalanceResponse
	err := runOperation(ctx, span, telemetry.OperationCarryForward, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			balance, err := s.carryForward(c, repos, schoolID, req.StudentID, req.FromYearID, req.ToYearID, nil, actor)
			if err != nil {
				return err
			}
			resp := ToBalanceResponse(balance)
			result = &resp
			return nil
		})
	})
	return result, err
}

// errBelowThreshold marks a unit of a bulk run whose balance is too small to carry
var errBelowThreshold = errors.New("balance below threshold")

// carryForward computes and saves one balance. With a threshold, balances whose absolute
// value is below it are not saved and errBelowThreshold is returned.
func (s *CarryForwardService) carryForward(
	ctx context.Context,
	repos TransactionalRepositories,
	schoolID, studentID, fromYearID, toYearID uuid.UUID,
	threshold *decimal.Decimal,
	actor shared.ActorRef,
) (*ledger.PreviousYearBalance, error) {
	exists, err := repos.BalanceRepo().ExistsForStudent(ctx, schoolID, studentID, toYearID)
	if err != nil {
		return nil, wrap(err, "check carried-forward balance")
	}
	if exists {
		return nil, duplicateCarryForward(studentID, toYearID)
	}

	source, err := s.collectSource(ctx, repos, schoolID, studentID, fromYearID)
	if err != nil {
		return nil, err
	}
	if threshold != nil && source.Total().Abs().LessThan(*threshold) {
		return nil, errBelowThreshold
	}

	balance, err := ledger.NewPreviousYearBalance(schoolID, studentID, fromYearID, toYearID, source, actor, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := repos.BalanceRepo().Save(ctx, balance); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, duplicateCarryForward(studentID, toYearID)
		}
		return nil, wrap(err, "save carried-forward balance")
	}
	if err := publishEvents(ctx, repos.EventPublisher(), balance); err != nil {
		return nil, wrap(err, "publish balance events")
	}
	return balance, nil
}

func (s *CarryForwardService) collectSource(ctx context.Context, repos TransactionalRepositories, schoolID, studentID, fromYearID uuid.UUID) (ledger.CarryForwardSource, error) {
	source := ledger.CarryForwardSource{FeeRemaining: decimal.Zero, PriorBalance: decimal.Zero}

	records, err := repos.FeeRecordRepo().FindByStudentAndYear(ctx, schoolID, studentID, fromYearID)
	if err != nil {
		return source, wrap(err, "load fee records")
	}
	for i := range records {
		if records[i].Status.IsClosed() {
			continue
		}
		source.FeeRecordCount++
		source.FeeRemaining = source.FeeRemaining.Add(records[i].Collectible())
	}

	prior, err := repos.BalanceRepo().FindUnresolvedForStudent(ctx, schoolID, studentID, fromYearID)
	if err != nil {
		return source, wrap(err, "load prior balances")
	}
	for i := range prior {
		source.PriorBalance = source.PriorBalance.Add(prior[i].Outstanding())
	}
	return source, nil
}

func duplicateCarryForward(studentID, toYearID uuid.UUID) error {
	return shared.NewDomainErrorOfKind(shared.KindConflict, ledger.CodeDuplicateCarryForward,
		"A balance was already carried into this academic year for the student").
		WithDetail("student_id", studentID.String()).
		WithDetail("academic_year_id", toYearID.String())
}

// BulkCarryForward carries balances for many students. Each student is its own
// transaction: duplicates and balances below the threshold are counted and skipped,
// failures are collected and the run continues.
func (s *CarryForwardService) BulkCarryForward(ctx context.Context, schoolID uuid.UUID, req BulkCarryForwardRequest, actor shared.ActorRef) (*BulkCarryForwardResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "carry_forward", "bulk")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrAcademicYearID, req.ToYearID.String(),
	)

	result := &BulkCarryForwardResult{Created: []uuid.UUID{}, Failed: []UnitFailure{}}
	err := runOperation(ctx, span, telemetry.OperationCarryForward, schoolID, func(c context.Context) error {
		if req.FromYearID == req.ToYearID {
			return shared.NewDomainError("INVALID_ACADEMIC_YEAR", "Balances must be carried into a different academic year")
		}
		studentIDs := req.StudentIDs
		if len(studentIDs) == 0 {
			ids, err := s.repos.FeeRecords.FindStudentIDsByYear(c, schoolID, req.FromYearID)
			if err != nil {
				return wrap(err, "list students")
			}
			studentIDs = ids
		}
		threshold := s.threshold
		if req.Threshold != nil {
			threshold = req.Threshold.Abs()
		}
		telemetry.SetAttribute(span, telemetry.SpanAttrBatchSize, len(studentIDs))

		for _, studentID := range studentIDs {
			result.Processed++
			var created *ledger.PreviousYearBalance
			err := s.txScope.Execute(c, func(repos TransactionalRepositories) error {
				balance, err := s.carryForward(c, repos, schoolID, studentID, req.FromYearID, req.ToYearID, &threshold, actor)
				created = balance
				return err
			})
			switch {
			case err == nil:
				result.Created = append(result.Created, created.ID)
			case errors.Is(err, errBelowThreshold):
				result.BelowThreshold++
			case errors.Is(err, ledger.ErrDuplicateCarryForward):
				result.SkippedDuplicates++
			default:
				result.Failed = append(result.Failed, unitFailure(studentID, err))
				s.logger.Warn("Carry-forward failed for student",
					zap.String("student_id", studentID.String()),
					zap.Error(err),
				)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bulk carry-forward finished",
		zap.String("school_id", schoolID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped_duplicates", result.SkippedDuplicates),
		zap.Int("below_threshold", result.BelowThreshold),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// AdjustBalance sets the adjustment of a carried-forward balance
func (s *CarryForwardService) AdjustBalance(ctx context.Context, schoolID, balanceID uuid.UUID, req AdjustBalanceRequest, actor shared.ActorRef) (*BalanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "carry_forward", "adjust")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrBalanceID, balanceID.String(),
		telemetry.SpanAttrAmount, req.Adjustment.String(),
	)

	return s.mutateBalance(ctx, span, schoolID, balanceID, func(b *ledger.PreviousYearBalance, now time.Time) error {
		return b.Adjust(req.Adjustment, req.Reason, actor, now)
	})
}

// ClearBalance marks a carried-forward balance whose final amount is zero as cleared
func (s *CarryForwardService) ClearBalance(ctx context.Context, schoolID, balanceID uuid.UUID, req ClearBalanceRequest, actor shared.ActorRef) (*BalanceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "carry_forward", "clear")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrBalanceID, balanceID.String(),
	)

	return s.mutateBalance(ctx, span, schoolID, balanceID, func(b *ledger.PreviousYearBalance, now time.Time) error {
		return b.Clear(req.Remarks, actor, now)
	})
}

func (s *CarryForwardService) mutateBalance(ctx context.Context, span trace.Span, schoolID, balanceID uuid.UUID, fn func(b *ledger.PreviousYearBalance, now time.Time) error) (*BalanceResponse, error) {
	var result *BalanceResponse
	err := runOperation(ctx, span, telemetry.OperationCarryForward, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			balance, err := repos.BalanceRepo().FindByID(c, schoolID, balanceID)
			if err != nil {
				return wrap(err, "get balance")
			}
			if err := fn(balance, now); err != nil {
				return err
			}
			if err := repos.BalanceRepo().SaveWithLock(c, balance); err != nil {
				return wrap(err, "save balance")
			}
			if err := publishEvents(c, repos.EventPublisher(), balance); err != nil {
				return wrap(err, "publish balance events")
			}
			resp := ToBalanceResponse(balance)
			result = &resp
			return nil
		})
	})
	return result, err
}

// GetBalance retrieves a carried-forward balance by ID
func (s *CarryForwardService) GetBalance(ctx context.Context, schoolID, id uuid.UUID) (*BalanceResponse, error) {
	balance, err := s.repos.Balances.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, wrap(err, "get balance")
	}
	resp := ToBalanceResponse(balance)
	return &resp, nil
}

// ListBalances lists every balance carried into an academic year
func (s *CarryForwardService) ListBalances(ctx context.Context, schoolID, academicYearID uuid.UUID) ([]BalanceResponse, error) {
	balances, err := s.repos.Balances.FindByYear(ctx, schoolID, academicYearID)
	if err != nil {
		return nil, wrap(err, "list balances")
	}
	responses := make([]BalanceResponse, len(balances))
	for i := range balances {
		responses[i] = ToBalanceResponse(&balances[i])
	}
	return responses, nil
}

// Reconcile summarizes the balances of an academic year and lists fee records whose
// stored paid amount disagrees with the sum of their completed payments. With Repair set
// each disagreeing record is resynchronized in its own transaction.
func (s *CarryForwardService) Reconcile(ctx context.Context, schoolID uuid.UUID, req ReconcileRequest) (*ReconciliationSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "carry_forward", "reconcile")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrAcademicYearID, req.AcademicYearID.String(),
		"repair", req.Repair,
	)

	var summary *ReconciliationSummary
	err := runOperation(ctx, span, telemetry.OperationReconcile, schoolID, func(c context.Context) error {
		records, err := s.repos.FeeRecords.FindByYear(c, schoolID, req.AcademicYearID)
		if err != nil {
			return wrap(err, "load fee records")
		}
		ids := make([]uuid.UUID, len(records))
		for i := range records {
			ids[i] = records[i].ID
		}
		paid, err := s.repos.Payments.SumCompletedByFeeRecords(c, schoolID, ids)
		if err != nil {
			return wrap(err, "sum payments")
		}
		carried, err := s.repos.Balances.FindByYear(c, schoolID, req.AcademicYearID)
		if err != nil {
			return wrap(err, "load balances")
		}

		out := &ReconciliationSummary{
			AcademicYearID:       req.AcademicYearID,
			TotalBilled:          decimal.Zero,
			TotalCollected:       decimal.Zero,
			TotalBalance:         decimal.Zero,
			CarriedInOutstanding: decimal.Zero,
			Discrepancies:        []Discrepancy{},
		}
		owed := make(map[uuid.UUID]decimal.Decimal)
		now := s.clock.Now()
		for i := range records {
			record := &records[i]
			if _, ok := owed[record.StudentID]; !ok {
				owed[record.StudentID] = decimal.Zero
			}
			if !record.Status.IsClosed() {
				out.TotalBilled = out.TotalBilled.Add(record.TotalAmount)
			}
			out.TotalCollected = out.TotalCollected.Add(record.PaidAmount)
			owed[record.StudentID] = owed[record.StudentID].Add(record.Collectible())

			completed, ok := paid[record.ID]
			if !ok {
				completed = decimal.Zero
			}
			if record.PaidAmount.Equal(completed) {
				continue
			}
			discrepancy := Discrepancy{
				FeeRecordID:  record.ID,
				StudentID:    record.StudentID,
				StoredPaid:   record.PaidAmount,
				PaymentsPaid: completed,
			}
			if req.Repair {
				repaired, err := s.repair(c, record, completed, now)
				if err != nil {
					return err
				}
				discrepancy.Repaired = repaired
			}
			out.Discrepancies = append(out.Discrepancies, discrepancy)
		}
		for i := range carried {
			out.CarriedInCount++
			outstanding := carried[i].Outstanding()
			out.CarriedInOutstanding = out.CarriedInOutstanding.Add(outstanding)
			owed[carried[i].StudentID] = owed[carried[i].StudentID].Add(outstanding)
		}
		out.TotalStudents = len(owed)
		for _, amount := range owed {
			out.TotalBalance = out.TotalBalance.Add(amount)
			if !amount.IsZero() {
				out.StudentsWithBalance++
			}
		}
		summary = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(summary.Discrepancies) > 0 {
		s.logger.Warn("Fee records disagree with their payments",
			zap.String("school_id", schoolID.String()),
			zap.String("academic_year_id", req.AcademicYearID.String()),
			zap.Int("discrepancies", len(summary.Discrepancies)),
		)
	}
	return summary, nil
}

// repair resynchronizes one fee record's paid amount. A record changed since it was read
// is reported as not repaired.
func (s *CarryForwardService) repair(ctx context.Context, record *ledger.FeeRecord, completed decimal.Decimal, now time.Time) (bool, error) {
	if !record.SyncPaidAmount(completed, now) {
		return false, nil
	}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.FeeRecordRepo().SaveWithLock(ctx, record); err != nil {
			return err
		}
		return publishEvents(ctx, repos.EventPublisher(), record)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return false, nil
	default:
		return false, fmt.Errorf("failed to repair fee record %s: %w", record.ID, err)
	}
}
