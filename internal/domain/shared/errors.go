package shared

import "errors"

// ErrorKind separates rejected input from conditions the caller may retry
type ErrorKind string

const (
	// KindInput means the request was rejected and must not be retried as-is
	KindInput ErrorKind = "input"
	// KindNotFound means the referenced record does not exist for the school
	KindNotFound ErrorKind = "not_found"
	// KindConflict means the request collides with existing state
	KindConflict ErrorKind = "conflict"
	// KindSystem means the system could not complete the operation; callers may retry
	KindSystem ErrorKind = "system"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Kind    ErrorKind      `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code, so errors.Is works against the sentinels
// even when the returned error carries details.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail attaches context such as record id, field, current and attempted value
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// IsRetryable reports whether the caller may retry the operation
func (e *DomainError) IsRetryable() bool {
	return e.Kind == KindSystem || e.Code == ErrConcurrencyConflict.Code
}

// NewDomainError creates a new input-rejected domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindInput,
	}
}

// NewDomainErrorOfKind creates a domain error of the given kind
func NewDomainErrorOfKind(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    kind,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainErrorOfKind(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainErrorOfKind(KindConflict, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainErrorOfKind(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// IsClientError reports whether err is a rejection of the caller's input
// (4xx-equivalent) rather than a system failure.
func IsClientError(err error) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	return de.Kind != KindSystem
}
