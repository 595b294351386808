package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PromotionService moves students between classes across academic years.
// Promotions only re-point a student's class; fee records are never touched.
type PromotionService struct {
	txScope TransactionScope
	repos   Repositories
	clock   shared.Clock
	logger  *zap.Logger
}

// NewPromotionService creates a new PromotionService
func NewPromotionService(txScope TransactionScope, repos Repositories, clock shared.Clock, logger *zap.Logger) *PromotionService {
	return &PromotionService{
		txScope: txScope,
		repos:   repos,
		clock:   orSystemClock(clock),
		logger:  orNop(logger),
	}
}

// Promote records a pending promotion and, when requested, processes it right away.
// If processing fails the promotion is kept as failed and the error is returned with it.
func (s *PromotionService) Promote(ctx context.Context, schoolID uuid.UUID, req PromoteRequest, actor shared.ActorRef) (*PromotionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "promote")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrStudentID, req.StudentID.String(),
		telemetry.SpanAttrAcademicYearID, req.ToYearID.String(),
	)

	in := ledger.NewPromotionInput{
		StudentID:          req.StudentID,
		FromClassID:        req.FromClassID,
		ToClassID:          req.ToClassID,
		FromAcademicYearID: req.FromYearID,
		ToAcademicYearID:   req.ToYearID,
		PromotedBy:         actor,
		Remarks:            req.Remarks,
	}
	if req.PromotionDate != nil {
		in.PromotionDate = *req.PromotionDate
	}

	var promotion *ledger.StudentPromotion
	err := runOperation(ctx, span, telemetry.OperationPromote, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			p, err := s.create(c, repos, schoolID, in)
			promotion = p
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if req.ProcessImmediately {
		return s.ProcessPromotion(ctx, schoolID, promotion.ID, actor)
	}
	resp := ToPromotionResponse(promotion)
	return &resp, nil
}

func (s *PromotionService) create(ctx context.Context, repos TransactionalRepositories, schoolID uuid.UUID, in ledger.NewPromotionInput) (*ledger.StudentPromotion, error) {
	promotion, err := ledger.NewStudentPromotion(schoolID, in, s.clock.Now())
	if err != nil {
		return nil, err
	}

	exists, err := repos.PromotionRepo().ExistsForStudent(ctx, schoolID, in.StudentID, in.FromAcademicYearID, in.ToAcademicYearID)
	if err != nil {
		return nil, wrap(err, "check promotion")
	}
	if exists {
		return nil, duplicatePromotion(in.StudentID, in.ToAcademicYearID)
	}
	if err := repos.PromotionRepo().Save(ctx, promotion); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, duplicatePromotion(in.StudentID, in.ToAcademicYearID)
		}
		return nil, wrap(err, "save promotion")
	}
	if err := publishEvents(ctx, repos.EventPublisher(), promotion); err != nil {
		return nil, wrap(err, "publish promotion events")
	}
	return promotion, nil
}

func duplicatePromotion(studentID, toYearID uuid.UUID) error {
	return shared.NewDomainErrorOfKind(shared.KindConflict, ledger.CodeDuplicatePromotion,
		"The student already has a promotion for this academic year pair").
		WithDetail("student_id", studentID.String()).
		WithDetail("academic_year_id", toYearID.String())
}

// ProcessPromotion moves the student's class pointer and completes the promotion in one
// transaction. When that fails the promotion is marked failed in a separate write and the
// pointer is left untouched.
func (s *PromotionService) ProcessPromotion(ctx context.Context, schoolID, id uuid.UUID, actor shared.ActorRef) (*PromotionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "process")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrPromotionID, id.String(),
	)

	var result *PromotionResponse
	err := runOperation(ctx, span, telemetry.OperationPromote, schoolID, func(c context.Context) error {
		var processErr error
		txErr := s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			promotion, err := repos.PromotionRepo().FindByID(c, schoolID, id)
			if err != nil {
				return wrap(err, "get promotion")
			}
			if err := promotion.CanProcess(); err != nil {
				return err
			}

			// failures from here on are recorded on the promotion
			processErr = s.movePlacement(c, repos, schoolID, promotion.StudentID, promotion.FromClassID, promotion.ToClassID, promotion.ToAcademicYearID)
			if processErr != nil {
				return processErr
			}
			if processErr = promotion.MarkCompleted(actor, now); processErr != nil {
				return processErr
			}
			if processErr = repos.PromotionRepo().Save(c, promotion); processErr != nil {
				return wrap(processErr, "save promotion")
			}
			if processErr = publishEvents(c, repos.EventPublisher(), promotion); processErr != nil {
				return wrap(processErr, "publish promotion events")
			}
			resp := ToPromotionResponse(promotion)
			result = &resp
			return nil
		})
		if txErr == nil {
			return nil
		}
		if processErr == nil {
			return txErr
		}

		failed, err := s.markFailed(c, schoolID, id, processErr, actor)
		if err != nil {
			s.logger.Error("Failed to record promotion failure",
				zap.String("promotion_id", id.String()),
				zap.Error(err),
			)
			return txErr
		}
		result = failed
		return txErr
	})
	return result, err
}

func (s *PromotionService) movePlacement(ctx context.Context, repos TransactionalRepositories, schoolID, studentID, fromClassID, toClassID, toYearID uuid.UUID) error {
	placement, err := repos.PlacementRepo().FindByID(ctx, schoolID, studentID)
	if err != nil {
		return wrap(err, "get student placement")
	}
	if err := placement.MoveTo(fromClassID, toClassID, toYearID); err != nil {
		return err
	}
	if err := repos.PlacementRepo().SaveWithLock(ctx, placement); err != nil {
		return wrap(err, "save student placement")
	}
	return nil
}

func (s *PromotionService) markFailed(ctx context.Context, schoolID, id uuid.UUID, cause error, actor shared.ActorRef) (*PromotionResponse, error) {
	var result *PromotionResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		promotion, err := repos.PromotionRepo().FindByID(ctx, schoolID, id)
		if err != nil {
			return err
		}
		if err := promotion.MarkFailed(cause.Error(), actor, s.clock.Now()); err != nil {
			return err
		}
		if err := repos.PromotionRepo().Save(ctx, promotion); err != nil {
			return err
		}
		if err := publishEvents(ctx, repos.EventPublisher(), promotion); err != nil {
			return err
		}
		resp := ToPromotionResponse(promotion)
		result = &resp
		return nil
	})
	return result, err
}

// RollbackPromotion reverts a completed promotion and moves the student back.
// Fee records of either academic year are not touched.
func (s *PromotionService) RollbackPromotion(ctx context.Context, schoolID, id uuid.UUID, req ReasonRequest, actor shared.ActorRef) (*PromotionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "rollback")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrPromotionID, id.String(),
	)

	var result *PromotionResponse
	err := runOperation(ctx, span, telemetry.OperationPromote, schoolID, func(c context.Context) error {
		return s.txScope.Execute(c, func(repos TransactionalRepositories) error {
			now := s.clock.Now()
			promotion, err := repos.PromotionRepo().FindByID(c, schoolID, id)
			if err != nil {
				return wrap(err, "get promotion")
			}
			if err := promotion.Rollback(req.Reason, actor, now); err != nil {
				return err
			}
			if err := s.movePlacement(c, repos, schoolID, promotion.StudentID, promotion.ToClassID, promotion.FromClassID, promotion.FromAcademicYearID); err != nil {
				return err
			}
			if err := repos.PromotionRepo().Save(c, promotion); err != nil {
				return wrap(err, "save promotion")
			}
			if err := publishEvents(c, repos.EventPublisher(), promotion); err != nil {
				return wrap(err, "publish promotion events")
			}
			resp := ToPromotionResponse(promotion)
			result = &resp
			return nil
		})
	})
	return result, err
}

// BulkPromote promotes many students from one class. Each student is its own unit:
// duplicates are counted and skipped, failures are collected and the run continues.
func (s *PromotionService) BulkPromote(ctx context.Context, schoolID uuid.UUID, req BulkPromoteRequest, actor shared.ActorRef) (*BulkPromotionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "promotion", "bulk")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSchoolID, schoolID.String(),
		telemetry.SpanAttrAcademicYearID, req.ToYearID.String(),
	)

	result := &BulkPromotionResult{Created: []uuid.UUID{}, Failed: []UnitFailure{}}
	err := runOperation(ctx, span, telemetry.OperationPromote, schoolID, func(c context.Context) error {
		studentIDs := req.StudentIDs
		if len(studentIDs) == 0 {
			ids, err := s.repos.Placements.FindIDsByClass(c, schoolID, req.FromClassID, req.FromYearID)
			if err != nil {
				return wrap(err, "list students")
			}
			studentIDs = ids
		}
		telemetry.SetAttribute(span, telemetry.SpanAttrBatchSize, len(studentIDs))

		for _, studentID := range studentIDs {
			result.Processed++
			in := ledger.NewPromotionInput{
				StudentID:          studentID,
				FromClassID:        req.FromClassID,
				ToClassID:          req.ToClassID,
				FromAcademicYearID: req.FromYearID,
				ToAcademicYearID:   req.ToYearID,
				PromotedBy:         actor,
			}
			var promotion *ledger.StudentPromotion
			err := s.txScope.Execute(c, func(repos TransactionalRepositories) error {
				p, err := s.create(c, repos, schoolID, in)
				promotion = p
				return err
			})
			switch {
			case errors.Is(err, ledger.ErrDuplicatePromotion):
				result.SkippedDuplicates++
				continue
			case err != nil:
				result.Failed = append(result.Failed, unitFailure(studentID, err))
				continue
			}
			result.Created = append(result.Created, promotion.ID)

			if !req.ProcessImmediately {
				continue
			}
			if _, err := s.ProcessPromotion(c, schoolID, promotion.ID, actor); err != nil {
				result.Failed = append(result.Failed, unitFailure(studentID, err))
				continue
			}
			result.Completed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bulk promotion finished",
		zap.String("school_id", schoolID.String()),
		zap.String("from_class_id", req.FromClassID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("created", len(result.Created)),
		zap.Int("completed", result.Completed),
		zap.Int("skipped_duplicates", result.SkippedDuplicates),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// GetPromotion retrieves a promotion by ID
func (s *PromotionService) GetPromotion(ctx context.Context, schoolID, id uuid.UUID) (*PromotionResponse, error) {
	promotion, err := s.repos.Promotions.FindByID(ctx, schoolID, id)
	if err != nil {
		return nil, wrap(err, "get promotion")
	}
	resp := ToPromotionResponse(promotion)
	return &resp, nil
}

// Statistics counts promotions by status for an academic year pair
func (s *PromotionService) Statistics(ctx context.Context, schoolID, fromYearID, toYearID uuid.UUID) (*ledger.PromotionStatistics, error) {
	counts, err := s.repos.Promotions.CountByStatus(ctx, schoolID, fromYearID, toYearID)
	if err != nil {
		return nil, wrap(err, "count promotions")
	}
	stats := &ledger.PromotionStatistics{FromAcademicYearID: fromYearID, ToAcademicYearID: toYearID}
	for status, n := range counts {
		stats.Add(status, n)
	}
	return stats, nil
}
