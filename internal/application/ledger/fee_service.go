package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/domain/shared/valueobject"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FeeService assigns fees to students and applies amount and status changes to fee records
type FeeService struct {
	txScope  TransactionScope
	repos    Repositories
	resolver ledger.FeeStructureResolver
	clock    shared.Clock
	currency valueobject.Currency
	logger   *zap.Logger
}

// NewFeeService creates a new FeeService
func NewFeeService(
	txScope TransactionScope,
	repos Repositories,
	resolver ledger.FeeStructureResolver,
	clock shared.Clock,
	logger *zap.Logger,
) *FeeService {
	return &FeeService{
		txScope:  txScope,
		repos:    repos,
		resolver: resolver,
		clock:    orSystemClock(clock),
		currency: valueobject.DefaultCurrency,
		logger:   orNop(logger),
	}
}

// SetCurrency sets the currency new fee records are denominated in
func (s *FeeService) SetCurrency(currency valueobject.Currency) {
	if currency != "" {
		s.currency = currency
	}
}

// CreateFeeRecord assigns an explicit fee to a student.
// An approved concession already covering the record is applied before it is saved.
func (s *FeeService) CreateFeeRecord(ctx context.Context, schoolID uuid.UUID, req CreateFeeRecordRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fee_record", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrAmount, req.BaseAmount.String(),
	)

	var result *FeeRecordResponse
	err := runOperation(ctx, span, telemetry.OperationAssignFee, schoolID, func(c context.Context) error {
		now := s.clock.Now()
		in := ledger.NewFeeRecordInput{
			StudentID:         req.StudentID,
			FeeStructureID:    req.FeeStructureID,
			AcademicYearID:    req.AcademicYearID,
			ClassID:           req.ClassID,
			Category:          ledger.FeeCategory(req.Category),
			FeeType:           ledger.FeeType(req.FeeType),
			Currency:          s.currency,
			BaseAmount:        req.BaseAmount,
			DueDate:           req.DueDate,
			InstallmentNumber: req.InstallmentNumber,
			InstallmentOf:     req.InstallmentOf,
			CreatedBy:         actor,
		}
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			record, err := s.createRecord(c, repos, schoolID, in, now)
			if err != nil {
				return err
			}
			resp := ToFeeRecordResponse(record, now)
			result = &resp
			return nil
		})
	})
	return result, err
}

// AssignFromStructure creates a student's fee records from the structure configured for
// the class, academic year and category. With more than one installment the amount is
// split evenly and due dates fall one month apart.
func (s *FeeService) AssignFromStructure(ctx context.Context, schoolID uuid.UUID, req AssignFeeRequest, actor shared.ActorRef) ([]FeeRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fee_record", "assign_from_structure")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrFeeCategory, req.Category,
	)

	var result []FeeRecordResponse
	err := runOperation(ctx, span, telemetry.OperationAssignFee, schoolID, func(c context.Context) error {
		category := ledger.FeeCategory(req.Category)
		if !category.IsValid() {
			return shared.NewDomainError("INVALID_FEE_CATEGORY", fmt.Sprintf("Unknown fee category %q", req.Category))
		}
		structure, err := s.resolver.Resolve(c, schoolID, ledger.FeeStructureQuery{
			ClassID:        req.ClassID,
			AcademicYearID: req.AcademicYearID,
			Category:       category,
		})
		if err != nil {
			return wrap(err, "resolve fee structure")
		}
		if !structure.IsActive {
			return shared.NewDomainError("FEE_STRUCTURE_INACTIVE", "Fee structure is not active")
		}

		installments := req.Installments
		if installments < 1 {
			installments = 1
		}
		total, err := valueobject.NewMoney(structure.Amount, s.currency)
		if err != nil {
			return err
		}
		parts, err := total.Allocate(installments)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			responses := make([]FeeRecordResponse, 0, len(parts))
			for i, part := range parts {
				record, err := s.createRecord(c, repos, schoolID, ledger.NewFeeRecordInput{
					StudentID:         req.StudentID,
					FeeStructureID:    structure.ID,
					AcademicYearID:    structure.AcademicYearID,
					ClassID:           structure.ClassID,
					Category:          structure.Category,
					FeeType:           structure.FeeType,
					Currency:          s.currency,
					BaseAmount:        part.Amount(),
					DueDate:           structure.DueDate.AddDate(0, i, 0),
					InstallmentNumber: i + 1,
					InstallmentOf:     installments,
					CreatedBy:         actor,
				}, now)
				if err != nil {
					return err
				}
				responses = append(responses, ToFeeRecordResponse(record, now))
			}
			result = responses
			return nil
		})
	})
	return result, err
}

func (s *FeeService) createRecord(ctx context.Context, repos TransactionalRepositories, schoolID uuid.UUID, in ledger.NewFeeRecordInput, now time.Time) (*ledger.FeeRecord, error) {
	record, err := ledger.NewFeeRecord(schoolID, in, now)
	if err != nil {
		return nil, err
	}
	if err := applyActiveConcession(ctx, repos.ConcessionRepo(), record, in.CreatedBy, now); err != nil {
		return nil, err
	}
	if err := repos.FeeRecordRepo().Save(ctx, record); err != nil {
		return nil, conflictOnDuplicate(wrap(err, "save fee record"), ledger.CodeDuplicateFeeRecord,
			fmt.Sprintf("Installment %d of this fee is already assigned to the student", record.InstallmentNumber))
	}
	if err := publishEvents(ctx, repos.EventPublisher(), record); err != nil {
		return nil, wrap(err, "publish fee record events")
	}
	return record, nil
}

// ApplyFine adds to the accumulated fine of a fee record
func (s *FeeService) ApplyFine(ctx context.Context, schoolID, id uuid.UUID, req AmountRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "apply_fine", schoolID, id)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, req.Amount.String())

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		return f.ApplyFine(req.Amount, req.Reason, actor, now)
	})
}

// ReverseFine removes part of the accumulated fine of a fee record
func (s *FeeService) ReverseFine(ctx context.Context, schoolID, id uuid.UUID, req AmountRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "reverse_fine", schoolID, id)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, req.Amount.String())

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		return f.ReverseFine(req.Amount, req.Reason, actor, now)
	})
}

// ApplyDiscount replaces the discount of a fee record
func (s *FeeService) ApplyDiscount(ctx context.Context, schoolID, id uuid.UUID, req AmountRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "apply_discount", schoolID, id)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, req.Amount.String())

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		return f.ApplyDiscount(req.Amount, req.Reason, actor, now)
	})
}

// ApplyWaiver replaces the waiver of a fee record
func (s *FeeService) ApplyWaiver(ctx context.Context, schoolID, id uuid.UUID, req AmountRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "apply_waiver", schoolID, id)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, req.Amount.String())

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		return f.ApplyWaiver(req.Amount, req.Reason, actor, now)
	})
}

// Cancel closes a fee record as cancelled
func (s *FeeService) Cancel(ctx context.Context, schoolID, id uuid.UUID, req ReasonRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "cancel", schoolID, id)
	defer span.End()

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		return f.Cancel(req.Reason, actor, now)
	})
}

// WaiveAll closes a fee record as waived
func (s *FeeService) WaiveAll(ctx context.Context, schoolID, id uuid.UUID, req ReasonRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "waive_all", schoolID, id)
	defer span.End()

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		return f.WaiveAll(req.Reason, actor, now)
	})
}

// Void soft-retires a fee record
func (s *FeeService) Void(ctx context.Context, schoolID, id uuid.UUID, req ReasonRequest, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "void", schoolID, id)
	defer span.End()

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		return f.Void(req.Reason, actor, now)
	})
}

// RecomputeStatus re-derives the status of one fee record at the current time.
// Nothing is written when the status is unchanged.
func (s *FeeService) RecomputeStatus(ctx context.Context, schoolID, id uuid.UUID) (*FeeRecordResponse, error) {
	ctx, span := s.startSpan(ctx, "recompute_status", schoolID, id)
	defer span.End()

	return s.mutate(ctx, span, schoolID, id, func(f *ledger.FeeRecord, now time.Time) error {
		f.RefreshStatus(now, shared.SystemActor)
		return nil
	})
}

// RefreshOverdue recomputes the status of every open fee record of a school.
// Each record is written in its own transaction; records changed concurrently are
// counted as conflicts and left for the next run.
func (s *FeeService) RefreshOverdue(ctx context.Context, schoolID uuid.UUID) (*RefreshOverdueResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fee_record", "refresh_overdue")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrSchoolID, schoolID.String())

	result := &RefreshOverdueResult{}
	err := runOperation(ctx, span, telemetry.OperationRefreshOverdue, schoolID, func(c context.Context) error {
		records, err := s.repos.FeeRecords.FindOpen(c, schoolID)
		if err != nil {
			return wrap(err, "load open fee records")
		}
		now := s.clock.Now()
		for i := range records {
			record := &records[i]
			result.Checked++
			if !record.RefreshStatus(now, shared.SystemActor) {
				continue
			}
			err := s.txScope.Execute(c, func(repos TransactionalRepositories) error {
				if err := repos.FeeRecordRepo().SaveWithLock(c, record); err != nil {
					return err
				}
				return publishEvents(c, repos.EventPublisher(), record)
			})
			switch {
			case err == nil:
				result.Updated++
			case errors.Is(err, shared.ErrConcurrencyConflict):
				result.Conflicts++
			default:
				return wrap(err, "refresh fee record status")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrBatchSize, result.Checked)
	s.logger.Info("Refreshed fee record statuses",
		zap.String("school_id", schoolID.String()),
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("conflicts", result.Conflicts),
	)
	return result, nil
}

// GetFeeRecord retrieves a fee record by ID
func (s *FeeService) GetFeeRecord(ctx context.Context, schoolID, id uuid.UUID) (*FeeRecordResponse, error) {
	record, err := s.repos.FeeRecords.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, wrap(err, "get fee record")
	}
	resp := ToFeeRecordResponse(record, s.clock.Now())
	return &resp, nil
}

// ListFeeRecords lists fee records with filtering and pagination
func (s *FeeService) ListFeeRecords(ctx context.Context, schoolID uuid.UUID, filter FeeRecordListFilter) ([]FeeRecordResponse, int64, error) {
	query := ledger.FeeRecordFilter{
		Filter:         shared.DefaultFilter(),
		StudentID:      filter.StudentID,
		AcademicYearID: filter.AcademicYearID,
		ClassID:        filter.ClassID,
	}
	if filter.Page > 0 {
		query.Page = filter.Page
	}
	if filter.PageSize > 0 {
		query.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		query.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		query.OrderDir = filter.OrderDir
	}
	if filter.Category != "" {
		category := ledger.FeeCategory(filter.Category)
		query.Category = &category
	}
	if filter.Status != "" {
		status := ledger.FeeStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown fee status %q", filter.Status))
		}
		query.Statuses = []ledger.FeeStatus{status}
	}

	records, err := s.repos.FeeRecords.FindAll(ctx, schoolID, query)
	if err != nil {
		return nil, 0, wrap(err, "list fee records")
	}
	total, err := s.repos.FeeRecords.Count(ctx, schoolID, query)
	if err != nil {
		return nil, 0, wrap(err, "count fee records")
	}
	return ToFeeRecordResponses(records, s.clock.Now()), total, nil
}

func (s *FeeService) startSpan(ctx context.Context, method string, schoolID, id uuid.UUID) (context.Context, trace.Span) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fee_record", method)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrFeeRecordID, id.String(),
	)
	return ctx, span
}

// mutate loads a fee record, applies fn and saves it with a version check, all in one transaction
func (s *FeeService) mutate(ctx context.Context, span trace.Span, schoolID, id uuid.UUID, fn func(f *ledger.FeeRecord, now time.Time) error) (*FeeRecordResponse, error) {
	var result *FeeRecordResponse
	err := runOperation(ctx, span, telemetry.OperationAdjustFee, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			record, err := repos.FeeRecordRepo().FindByID(c, schoolID, id)
			if err != nil {
				return wrap(err, "get fee record")
			}
			if err := fn(record, now); err != nil {
				return err
			}
			if record.IsDirty() {
				if err := repos.FeeRecordRepo().SaveWithLock(c, record); err != nil {
					return wrap(err, "save fee record")
				}
				if err := publishEvents(c, repos.EventPublisher(), record); err != nil {
					return wrap(err, "publish fee record events")
				}
			}
			telemetry.SetAttribute(span, telemetry.SpanAttrFeeStatus, string(record.Status))
			resp := ToFeeRecordResponse(record, now)
			result = &resp
			return nil
		})
	})
	return result, err
}

// applyActiveConcession feeds the active concession covering the record, if any, into its discount
func applyActiveConcession(ctx context.Context, repo ledger.ConcessionRepository, f *ledger.FeeRecord, actor shared.ActorRef, now time.Time) error {
	concessions, err := repo.FindByScope(ctx, f.SchoolID, f.StudentID, f.Category, f.AcademicYearID)
	if err != nil {
		return wrap(err, "load concessions")
	}
	for i := range concessions {
		c := &concessions[i]
		if !c.IsActiveAt(now) || !c.IsWithinValidity(now) {
			continue
		}
		amount := c.ResolveAmount(f.GetBaseMoney())
		return f.ApplyConcession(c.ID, amount.Amount(), c.Name, actor, now)
	}
	return nil
}
