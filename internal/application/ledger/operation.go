package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/schoolledger/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// runOperation executes fn under the profiling labels of the operation and records
// a returned error on the span
func runOperation(ctx context.Context, span trace.Span, operation string, schoolID uuid.UUID, fn func(context.Context) error) error {
	var opErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(operation, schoolID.String()), func(c context.Context) {
		opErr = fn(c)
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
	}
	return opErr
}

// conflictOnDuplicate turns a storage unique-key violation into the given ledger conflict
func conflictOnDuplicate(err error, code, message string) error {
	if errors.Is(err, shared.ErrAlreadyExists) {
		return shared.NewDomainErrorOfKind(shared.KindConflict, code, message)
	}
	return err
}

// unitFailure converts a per-unit error of a bulk operation into its reported form
func unitFailure(studentID uuid.UUID, err error) UnitFailure {
	failure := UnitFailure{StudentID: studentID, Code: "INTERNAL_ERROR", Message: err.Error()}
	var de *shared.DomainError
	if errors.As(err, &de) {
		failure.Code = de.Code
		failure.Message = de.Message
	}
	return failure
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func orSystemClock(clock shared.Clock) shared.Clock {
	if clock == nil {
		return shared.SystemClock{}
	}
	return clock
}

func wrap(err error, action string) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
