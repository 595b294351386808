package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ConcessionService manages approval-gated concessions and keeps the discounts of
// matching fee records in step with them
type ConcessionService struct {
	txScope TransactionScope
	repos   Repositories
	clock   shared.Clock
	logger  *zap.Logger
}

// NewConcessionService creates a new ConcessionService
func NewConcessionService(txScope TransactionScope, repos Repositories, clock shared.Clock, logger *zap.Logger) *ConcessionService {
	return &ConcessionService{
		txScope: txScope,
		repos:   repos,
		clock:   orSystemClock(clock),
		logger:  orNop(logger),
	}
}

// CreateConcession requests a concession. Only one pending or active concession may
// exist per student, fee category and academic year.
func (s *ConcessionService) CreateConcession(ctx context.Context, schoolID uuid.UUID, req CreateConcessionRequest, actor shared.ActorRef) (*ConcessionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concession", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrFeeCategory, req.Category,
	)

	var result *ConcessionResponse
	err := runOperation(ctx, span, telemetry.OperationConcession, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			concession, err := ledger.NewConcession(schoolID, ledger.NewConcessionInput{
				StudentID:       req.StudentID,
				Category:        ledger.FeeCategory(req.Category),
				AcademicYearID:  req.AcademicYearID,
				Name:            req.Name,
				ConcessionType:  req.ConcessionType,
				CalculationType: ledger.CalculationType(req.CalculationType),
				Value:           req.Value,
				ValidFrom:       req.ValidFrom,
				ValidUntil:      req.ValidUntil,
				RequestedBy:     actor,
			}, now)
			if err != nil {
				return err
			}

			existing, err := repos.ConcessionRepo().FindByScope(c, schoolID, concession.StudentID, concession.Category, concession.AcademicYearID)
			if err != nil {
				return wrap(err, "load concessions")
			}
			for i := range existing {
				if existing[i].BlocksNewConcession(now) {
					return shared.NewDomainErrorOfKind(shared.KindConflict, ledger.CodeDuplicateConcession,
						fmt.Sprintf("A %s concession already exists for this student, fee category and year", existing[i].Status)).
						WithDetail("record_id", existing[i].ID.String())
				}
			}

			if concession.CalculationType == ledger.CalculationTypeFixed {
				records, err := repos.FeeRecordRepo().FindByConcessionScope(c, schoolID, concession.StudentID, concession.Category, concession.AcademicYearID)
				if err != nil {
					return wrap(err, "load fee records")
				}
				for i := range records {
					if records[i].Status.IsClosed() {
						continue
					}
					if err := concession.ValidateAgainstBase(records[i].BaseAmount); err != nil {
						return err
					}
				}
			}

			if err := repos.ConcessionRepo().Save(c, concession); err != nil {
				return conflictOnDuplicate(wrap(err, "save concession"), ledger.CodeDuplicateConcession, "Concession already exists")
			}
			if err := publishEvents(c, repos.EventPublisher(), concession); err != nil {
				return wrap(err, "publish concession events")
			}
			resp := ToConcessionResponse(concession)
			result = &resp
			return nil
		})
	})
	return result, err
}

// ApproveConcession approves a concession and feeds its resolved amount into the discount
// of every matching open fee record. Approving an approved concession changes nothing.
func (s *ConcessionService) ApproveConcession(ctx context.Context, schoolID, id uuid.UUID, approver shared.ActorRef) (*ConcessionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concession", "approve")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrConcessionID, id.String(),
	)

	var result *ConcessionResponse
	err := runOperation(ctx, span, telemetry.OperationConcession, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			concession, err := repos.ConcessionRepo().FindByID(c, schoolID, id)
			if err != nil {
				return wrap(err, "get concession")
			}
			changed, err := concession.Approve(approver, now)
			if err != nil {
				return err
			}
			resp := ToConcessionResponse(concession)
			if !changed {
				result = &resp
				return nil
			}

			affected := 0
			if concession.IsActiveAt(now) && concession.IsWithinValidity(now) {
				affected, err = s.forEachRecord(c, repos, concession, false, func(f *ledger.FeeRecord) error {
					amount := concession.ResolveAmount(f.GetBaseMoney())
					return f.ApplyConcession(concession.ID, amount.Amount(), concession.Name, approver, now)
				})
				if err != nil {
					return err
				}
			}

			if err := repos.ConcessionRepo().Save(c, concession); err != nil {
				return wrap(err, "save concession")
			}
			if err := publishEvents(c, repos.EventPublisher(), concession); err != nil {
				return wrap(err, "publish concession events")
			}
			resp.AffectedRecords = affected
			result = &resp
			return nil
		})
	})
	return result, err
}

// RejectConcession rejects a pending or approved concession. An approved concession's
// contribution is removed from every fee record it was feeding, including completed
// ones, which reopen when the restored total is no longer covered.
func (s *ConcessionService) RejectConcession(ctx context.Context, schoolID, id uuid.UUID, req ReasonRequest, approver shared.ActorRef) (*ConcessionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concession", "reject")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrConcessionID, id.String(),
	)

	var result *ConcessionResponse
	err := runOperation(ctx, span, telemetry.OperationConcession, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			concession, err := repos.ConcessionRepo().FindByID(c, schoolID, id)
			if err != nil {
				return wrap(err, "get concession")
			}
			wasApproved, err := concession.Reject(approver, req.Reason, now)
			if err != nil {
				return err
			}

			affected := 0
			if wasApproved {
				affected, err = s.forEachRecord(c, repos, concession, true, func(f *ledger.FeeRecord) error {
					_, err := f.RemoveConcession(concession.ID, req.Reason, approver, now)
					return err
				})
				if err != nil {
					return err
				}
			}

			if err := repos.ConcessionRepo().Save(c, concession); err != nil {
				return wrap(err, "save concession")
			}
			if err := publishEvents(c, repos.EventPublisher(), concession); err != nil {
				return wrap(err, "publish concession events")
			}
			resp := ToConcessionResponse(concession)
			resp.AffectedRecords = affected
			result = &resp
			return nil
		})
	})
	return result, err
}

// ApplyToFeeRecord applies the active concession covering a fee record, if any.
// Used for fee records created before the concession was approved or became valid.
func (s *ConcessionService) ApplyToFeeRecord(ctx context.Context, schoolID, feeRecordID uuid.UUID, actor shared.ActorRef) (*FeeRecordResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "concession", "apply_to_fee_record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrFeeRecordID, feeRecordID.String(),
	)

	var result *FeeRecordResponse
	err := runOperation(ctx, span, telemetry.OperationConcession, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			record, err := repos.FeeRecordRepo().FindByID(c, schoolID, feeRecordID)
			if err != nil {
				return wrap(err, "get fee record")
			}
			if err := applyActiveConcession(c, repos.ConcessionRepo(), record, actor, now); err != nil {
				return err
			}
			if err := s.saveIfChanged(c, repos, record); err != nil {
				return err
			}
			resp := ToFeeRecordResponse(record, now)
			result = &resp
			return nil
		})
	})
	return result, err
}

// ResolveAmount previews the discount a concession contributes to a fee record
func (s *ConcessionService) ResolveAmount(ctx context.Context, schoolID, concessionID, feeRecordID uuid.UUID) (*ResolvedConcession, error) {
	concession, err := s.repos.Concessions.FindByID(ctx, schoolID, concessionID)
	if err != nil {
		return nil, wrap(err, "get concession")
	}
	record, err := s.repos.FeeRecords.FindByID(ctx, schoolID, feeRecordID)
	if err != nil {
		return nil, wrap(err, "get fee record")
	}
	if !concession.AppliesTo(record) {
		return nil, shared.NewDomainError("CONCESSION_SCOPE_MISMATCH", "Concession does not cover this fee record")
	}
	amount := concession.ResolveAmount(record.GetBaseMoney())
	return &ResolvedConcession{
		ConcessionID: concession.ID,
		FeeRecordID:  record.ID,
		BaseAmount:   record.BaseAmount,
		Amount:       amount.Amount(),
		Active:       concession.IsActiveAt(s.clock.Now()),
	}, nil
}

// GetConcession retrieves a concession by ID
func (s *ConcessionService) GetConcession(ctx context.Context, schoolID, id uuid.UUID) (*ConcessionResponse, error) {
	concession, err := s.repos.Concessions.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, wrap(err, "get concession")
	}
	resp := ToConcessionResponse(concession)
	return &resp, nil
}

// ListConcessions lists concessions with filtering
func (s *ConcessionService) ListConcessions(ctx context.Context, schoolID uuid.UUID, filter ConcessionListFilter) ([]ConcessionResponse, error) {
	query := ledger.ConcessionFilter{
		Filter:         shared.DefaultFilter(),
		StudentID:      filter.StudentID,
		AcademicYearID: filter.AcademicYearID,
	}
	if filter.Page > 0 {
		query.Page = filter.Page
	}
	if filter.PageSize > 0 {
		query.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := ledger.ConcessionStatus(filter.Status)
		query.Status = &status
	}
	concessions, err := s.repos.Concessions.FindAll(ctx, schoolID, query)
	if err != nil {
		return nil, wrap(err, "list concessions")
	}
	responses := make([]ConcessionResponse, len(concessions))
	for i := range concessions {
		responses[i] = ToConcessionResponse(&concessions[i])
	}
	return responses, nil
}

// forEachRecord runs fn on every non-terminal fee record in the concession's scope
// and saves the ones it changed. With includeCompleted, completed records are
// visited too. It returns the number of records changed.
func (s *ConcessionService) forEachRecord(ctx context.Context, repos TransactionalRepositories, concession *ledger.Concession, includeCompleted bool, fn func(f *ledger.FeeRecord) error) (int, error) {
	records, err := repos.FeeRecordRepo().FindByConcessionScope(ctx, concession.SchoolID, concession.StudentID, concession.Category, concession.AcademicYearID)
	if err != nil {
		return 0, wrap(err, "load fee records")
	}
	changed := 0
	for i := range records {
		record := &records[i]
		if record.Status.IsClosed() || (record.Status == ledger.FeeStatusCompleted && !includeCompleted) {
			continue
		}
		if err := fn(record); err != nil {
			return 0, err
		}
		if !record.IsDirty() {
			continue
		}
		if err := s.saveIfChanged(ctx, repos, record); err != nil {
			return 0, err
		}
		changed++
	}
	if changed > 0 {
		s.logger.Info("Concession change applied to fee records",
			zap.String("concession_id", concession.ID.String()),
			zap.String("status", string(concession.Status)),
			zap.Int("records", changed),
		)
	}
	return changed, nil
}

func (s *ConcessionService) saveIfChanged(ctx context.Context, repos TransactionalRepositories, record *ledger.FeeRecord) error {
	if !record.IsDirty() {
		return nil
	}
	if err := repos.FeeRecordRepo().SaveWithLock(ctx, record); err != nil {
		return wrap(err, "save fee record")
	}
	return wrap(publishEvents(ctx, repos.EventPublisher(), record), "publish fee record events")
}
