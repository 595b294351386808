package event

import (
	"github.com/schoolledger/backend/internal/domain/ledger"
)

// RegisterLedgerEvents registers every ledger event type with the serializer.
// The OutboxProcessor cannot deserialize a stored event whose type is missing here.
func RegisterLedgerEvents(serializer *EventSerializer) {
	// Fee record
	serializer.Register(ledger.EventTypeFeeRecordCreated, &ledger.FeeRecordCreatedEvent{})
	serializer.Register(ledger.EventTypeFeeAmountChanged, &ledger.FeeAmountChangedEvent{})
	serializer.Register(ledger.EventTypeFeeStatusChanged, &ledger.FeeStatusChangedEvent{})

	// Payment
	serializer.Register(ledger.EventTypePaymentApplied, &ledger.PaymentAppliedEvent{})
	serializer.Register(ledger.EventTypePaymentCancelled, &ledger.PaymentCancelledEvent{})

	// Concession
	serializer.Register(ledger.EventTypeConcessionCreated, &ledger.ConcessionCreatedEvent{})
	serializer.Register(ledger.EventTypeConcessionApproved, &ledger.ConcessionApprovedEvent{})
	serializer.Register(ledger.EventTypeConcessionRejected, &ledger.ConcessionRejectedEvent{})

	// Previous year balance
	serializer.Register(ledger.EventTypeBalanceCarriedForward, &ledger.BalanceCarriedForwardEvent{})
	serializer.Register(ledger.EventTypeBalanceAdjusted, &ledger.BalanceAdjustedEvent{})
	serializer.Register(ledger.EventTypeBalanceCleared, &ledger.BalanceClearedEvent{})

	// Promotion
	serializer.Register(ledger.EventTypePromotionCreated, &ledger.PromotionCreatedEvent{})
	serializer.Register(ledger.EventTypePromotionCompleted, &ledger.PromotionCompletedEvent{})
	serializer.Register(ledger.EventTypePromotionFailed, &ledger.PromotionFailedEvent{})
	serializer.Register(ledger.EventTypePromotionRolledBack, &ledger.PromotionRolledBackEvent{})
}

// LedgerEventTypes lists every event type RegisterLedgerEvents knows about
func LedgerEventTypes() []string {
	return []string{
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
}
