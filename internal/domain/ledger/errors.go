package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Ledger error codes
const (
	CodeInvalidAmount          = "INVALID_AMOUNT"
	CodeOverpaymentRejected    = "OVERPAYMENT_REJECTED"
	CodeDuplicateReceipt       = "DUPLICATE_RECEIPT"
	CodeDuplicateConcession    = "DUPLICATE_CONCESSION"
	CodeDuplicateCarryForward  = "DUPLICATE_CARRY_FORWARD"
	CodeDuplicatePromotion     = "DUPLICATE_PROMOTION"
	CodeDuplicateFeeRecord     = "DUPLICATE_FEE_RECORD"
	CodeTerminalStateViolation = "TERMINAL_STATE_VIOLATION"
	CodeInvalidTransition      = "INVALID_TRANSITION"
)

// Sentinels for errors.Is; returned errors carry the same code plus details.
var (
	ErrInvalidAmount          = shared.NewDomainError(CodeInvalidAmount, "Invalid amount")
	ErrOverpaymentRejected    = shared.NewDomainError(CodeOverpaymentRejected, "Payment exceeds remaining amount")
	ErrDuplicateReceipt       = shared.NewDomainErrorOfKind(shared.KindConflict, CodeDuplicateReceipt, "Receipt number already used")
	ErrDuplicateConcession    = shared.NewDomainErrorOfKind(shared.KindConflict, CodeDuplicateConcession, "Concession already exists")
	ErrDuplicateCarryForward  = shared.NewDomainErrorOfKind(shared.KindConflict, CodeDuplicateCarryForward, "Balance already carried forward")
	ErrDuplicatePromotion     = shared.NewDomainErrorOfKind(shared.KindConflict, CodeDuplicatePromotion, "Promotion already exists")
	ErrDuplicateFeeRecord     = shared.NewDomainErrorOfKind(shared.KindConflict, CodeDuplicateFeeRecord, "Fee record already exists")
	ErrTerminalStateViolation = shared.NewDomainError(CodeTerminalStateViolation, "Record is in a terminal state")
	ErrInvalidTransition      = shared.NewDomainError(CodeInvalidTransition, "Invalid status transition")
)

func invalidAmount(recordID uuid.UUID, field string, current, attempted decimal.Decimal, msg string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidAmount, msg).
		WithDetail("record_id", recordID.String()).
		WithDetail("field", field).
		WithDetail("current", current.String()).
		WithDetail("attempted", attempted.String())
}

func terminalState(recordID uuid.UUID, status FeeStatus, action string) *shared.DomainError {
	return shared.NewDomainError(CodeTerminalStateViolation,
		fmt.Sprintf("Cannot %s fee record in %s status", action, status)).
		WithDetail("record_id", recordID.String()).
		WithDetail("field", "status").
		WithDetail("current", string(status))
}

func invalidTransition(recordID uuid.UUID, from, to string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("Cannot move from %s to %s", from, to)).
		WithDetail("record_id", recordID.String()).
		WithDetail("field", "status").
		WithDetail("current", from).
		WithDetail("attempted", to)
}
