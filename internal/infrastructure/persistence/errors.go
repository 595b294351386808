package persistence

import (
	"errors"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps GORM sentinel errors onto the ledger's domain errors.
// Unique violations only surface as gorm.ErrDuplicatedKey when TranslateError is on.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	default:
		return err
	}
}

// versionConflict reports a lost optimistic lock on the given record.
// It matches shared.ErrConcurrencyConflict under errors.Is.
func versionConflict(field string, id uuid.UUID) error {
	return shared.NewDomainErrorOfKind(shared.KindConflict, shared.ErrConcurrencyConflict.Code, shared.ErrConcurrencyConflict.Message).
		WithDetail(field, id.String())
}
