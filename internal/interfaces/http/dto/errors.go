package dto

import "net/http"

// Error codes returned by the HTTP layer itself. Ledger rule violations keep their
// domain error code, e.g. OVERPAYMENT_REJECTED.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeSchoolRequired  = "SCHOOL_REQUIRED"
	ErrCodeInvalidActor    = "INVALID_ACTOR"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
)

// Domain error codes surfaced unchanged
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"

	ErrCodeInvalidAmount          = "INVALID_AMOUNT"
	ErrCodeOverpaymentRejected    = "OVERPAYMENT_REJECTED"
	ErrCodeDuplicateReceipt       = "DUPLICATE_RECEIPT"
	ErrCodeDuplicateConcession    = "DUPLICATE_CONCESSION"
	ErrCodeDuplicateCarryForward  = "DUPLICATE_CARRY_FORWARD"
	ErrCodeDuplicatePromotion     = "DUPLICATE_PROMOTION"
	ErrCodeDuplicateFeeRecord     = "DUPLICATE_FEE_RECORD"
	ErrCodeTerminalStateViolation = "TERMINAL_STATE_VIOLATION"
	ErrCodeInvalidTransition      = "INVALID_TRANSITION"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:     http.StatusBadRequest,
	ErrCodeValidation:     http.StatusBadRequest,
	ErrCodeInvalidJSON:    http.StatusBadRequest,
	ErrCodeSchoolRequired: http.StatusBadRequest,
	ErrCodeInvalidActor:   http.StatusBadRequest,
	ErrCodeInvalidInput:   http.StatusBadRequest,
	ErrCodeInvalidAmount:  http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,

	ErrCodeForbidden: http.StatusForbidden,
	ErrCodeNotFound:  http.StatusNotFound,

	// Collisions with existing state -> 409 Conflict
	ErrCodeAlreadyExists:         http.StatusConflict,
	ErrCodeConcurrencyConflict:   http.StatusConflict,
	ErrCodeDuplicateReceipt:      http.StatusConflict,
	ErrCodeDuplicateConcession:   http.StatusConflict,
	ErrCodeDuplicateCarryForward: http.StatusConflict,
	ErrCodeDuplicatePromotion:    http.StatusConflict,
	ErrCodeDuplicateFeeRecord:    http.StatusConflict,

	// Ledger rule violations -> 422 Unprocessable Entity
	ErrCodeInvalidState:           http.StatusUnprocessableEntity,
	ErrCodeOverpaymentRejected:    http.StatusUnprocessableEntity,
	ErrCodeTerminalStateViolation: http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:      http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// The second result is false when the code is not mapped.
func GetHTTPStatus(code string) (int, bool) {
	status, ok := ErrorCodeHTTPStatus[code]
	return status, ok
}
