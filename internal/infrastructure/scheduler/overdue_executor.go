package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	ledgerapp "github.com/schoolledger/backend/internal/application/ledger"
	"go.uber.org/zap"
)

// OverdueRefresher recomputes the status of a school's open fee records
type OverdueRefresher interface {
	RefreshOverdue(ctx context.Context, schoolID uuid.UUID) (*ledgerapp.RefreshOverdueResult, error)
}

// OverdueExecutor runs the overdue refresh for the job's school
type OverdueExecutor struct {
	refresher OverdueRefresher
	logger    *zap.Logger
}

// NewOverdueExecutor creates a new OverdueExecutor
func NewOverdueExecutor(refresher OverdueRefresher, logger *zap.Logger) *OverdueExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueExecutor{
		refresher: refresher,
		logger:    logger,
	}
}

// Execute implements JobExecutor
func (e *OverdueExecutor) Execute(ctx context.Context, job *Job) error {
	result, err := e.refresher.RefreshOverdue(ctx, job.SchoolID)
	if err != nil {
		return fmt.Errorf("refresh overdue for school %s: %w", job.SchoolID, err)
	}

	e.logger.Info("Overdue refresh completed",
		zap.String("school_id", job.SchoolID.String()),
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("conflicts", result.Conflicts),
	)
	return nil
}

var _ JobExecutor = (*OverdueExecutor)(nil)
