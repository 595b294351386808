package ledger

import (
	"context"

	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerMetricsRecorder receives counts derived from ledger events.
// telemetry.LedgerMetrics is the production implementation.
type LedgerMetricsRecorder interface {
	FeeRecordCreated(schoolID, category string)
	FeeAmountChanged(schoolID, change string)
	FeeStatusChanged(schoolID, toStatus string)
	PaymentApplied(schoolID, method string, amount decimal.Decimal)
	PaymentCancelled(schoolID string)
	ConcessionEvent(schoolID, event string)
	BalanceEvent(schoolID, event string)
	PromotionEvent(schoolID, event string)
	EventHandled(eventType string)
}

// MetricsEventHandler turns ledger events into business metrics
type MetricsEventHandler struct {
	recorder LedgerMetricsRecorder
}

// NewMetricsEventHandler creates a new MetricsEventHandler
func NewMetricsEventHandler(recorder LedgerMetricsRecorder) *MetricsEventHandler {
	return &MetricsEventHandler{recorder: recorder}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsEventHandler) EventTypes() []string {
	return ledgerEventTypes
}

// Handle records the event
func (h *MetricsEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	school := event.SchoolID().String()
	h.recorder.EventHandled(event.EventType())

	switch e := event.(type) {
	case *ledger.FeeRecordCreatedEvent:
		h.recorder.FeeRecordCreated(school, string(e.Category))
	case *ledger.FeeAmountChangedEvent:
		h.recorder.FeeAmountChanged(school, string(e.Change))
	case *ledger.FeeStatusChangedEvent:
		h.recorder.FeeStatusChanged(school, string(e.ToStatus))
	case *ledger.PaymentAppliedEvent:
		h.recorder.PaymentApplied(school, string(e.Method), e.Amount)
	case *ledger.PaymentCancelledEvent:
		h.recorder.PaymentCancelled(school)
	case *ledger.ConcessionCreatedEvent:
		h.recorder.ConcessionEvent(school, "created")
	case *ledger.ConcessionApprovedEvent:
		h.recorder.ConcessionEvent(school, "approved")
	case *ledger.ConcessionRejectedEvent:
		h.recorder.ConcessionEvent(school, "rejected")
	case *ledger.BalanceCarriedForwardEvent:
		h.recorder.BalanceEvent(school, "carried_forward")
	case *ledger.BalanceAdjustedEvent:
		h.recorder.BalanceEvent(school, "adjusted")
	case *ledger.BalanceClearedEvent:
		h.recorder.BalanceEvent(school, "cleared")
	case *ledger.PromotionCreatedEvent:
		h.recorder.PromotionEvent(school, "created")
	case *ledger.PromotionCompletedEvent:
		h.recorder.PromotionEvent(school, "completed")
	case *ledger.PromotionFailedEvent:
		h.recorder.PromotionEvent(school, "failed")
	case *ledger.PromotionRolledBackEvent:
		h.recorder.PromotionEvent(school, "rolled_back")
	}
	return nil
}
