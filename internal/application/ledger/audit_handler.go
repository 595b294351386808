package ledger

import (
	"context"

	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ledgerEventTypes is every event the ledger raises
var ledgerEventTypes = []string{
	ledger.EventTypeFeeRecordCreated,
	ledger.EventTypeFeeAmountChanged,
	ledger.EventTypeFeeStatusChanged,
	ledger.EventTypePaymentApplied,
	ledger.EventTypePaymentCancelled,
	ledger.EventTypeConcessionCreated,
	ledger.EventTypeConcessionApproved,
	ledger.EventTypeConcessionRejected,
	ledger.EventTypeBalanceCarriedForward,
	ledger.EventTypeBalanceAdjusted,
	ledger.EventTypeBalanceCleared,
	ledger.EventTypePromotionCreated,
	ledger.EventTypePromotionCompleted,
	ledger.EventTypePromotionFailed,
	ledger.EventTypePromotionRolledBack,
}

// AuditLogHandler writes one structured audit line per ledger event.
// Money-moving events carry their before and after amounts.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a handler logging under the "audit" name
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: orNop(logger).Named("audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditLogHandler) EventTypes() []string {
	return ledgerEventTypes
}

// Handle logs the event and always returns nil.
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("school_id", event.SchoolID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("actor", event.Actor().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	h.logger.Info("Ledger event", append(fields, auditFields(event)...)...)
	return nil
}

func auditFields(event shared.DomainEvent) []zap.Field {
	switch e := event.(type) {
	case *ledger.FeeRecordCreatedEvent:
		return []zap.Field{
			zap.String("student_id", e.StudentID.String()),
			zap.String("fee_category", string(e.Category)),
			zap.String("base_amount", e.BaseAmount.StringFixed(2)),
			zap.Int("installment", e.InstallmentNumber),
		}
	case *ledger.FeeAmountChangedEvent:
		return []zap.Field{
			zap.String("student_id", e.StudentID.String()),
			zap.String("change", string(e.Change)),
			zap.String("reason", e.Reason),
			zap.String("total_before", e.Before.Total.StringFixed(2)),
			zap.String("total_after", e.After.Total.StringFixed(2)),
			zap.String("remaining_after", e.After.Remaining.StringFixed(2)),
		}
	case *ledger.FeeStatusChangedEvent:
		return []zap.Field{
			zap.String("from_status", string(e.FromStatus)),
			zap.String("to_status", string(e.ToStatus)),
			zap.String("remaining_amount", e.RemainingAmount.StringFixed(2)),
		}
	case *ledger.PaymentAppliedEvent:
		return []zap.Field{
			zap.String("student_id", e.StudentID.String()),
			zap.String("fee_record_id", e.FeeRecordID.String()),
			zap.String("receipt_number", e.ReceiptNumber),
			zap.String("method", string(e.Method)),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("paid_before", e.FeeBefore.Paid.StringFixed(2)),
			zap.String("paid_after", e.FeeAfter.Paid.StringFixed(2)),
		}
	case *ledger.PaymentCancelledEvent:
		return []zap.Field{
			zap.String("fee_record_id", e.FeeRecordID.String()),
			zap.String("receipt_number", e.ReceiptNumber),
			zap.String("reversed_amount", e.ReversedAmount.StringFixed(2)),
			zap.String("reason", e.Reason),
		}
	case *ledger.ConcessionRejectedEvent:
		return []zap.Field{
			zap.String("student_id", e.StudentID.String()),
			zap.Bool("was_approved", e.WasApproved),
			zap.String("reason", e.Reason),
		}
	case *ledger.BalanceCarriedForwardEvent:
		return []zap.Field{
			zap.String("student_id", e.StudentID.String()),
			zap.String("balance_amount", e.BalanceAmount.StringFixed(2)),
			zap.String("source", string(e.Source)),
		}
	case *ledger.BalanceAdjustedEvent:
		return []zap.Field{
			zap.String("adjustment_amount", e.AdjustmentAmount.StringFixed(2)),
			zap.String("final_before", e.Before.StringFixed(2)),
			zap.String("final_after", e.After.StringFixed(2)),
			zap.Bool("sign_flipped", e.SignFlipped),
		}
	}
	return nil
}
