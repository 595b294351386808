// Package schoolscope keeps ledger queries inside one school.
//
// Every ledger repository names its school explicitly. The guard registered by
// Register rejects reads and writes on school-owned tables that carry no
// school_id condition, so a forgotten filter fails loudly instead of leaking
// another school's rows.
//
// Usage:
//
//	schoolscope.Register(db, schoolscope.DefaultConfig())
//	db.Scopes(schoolscope.School(schoolID)).Find(&records)
package schoolscope

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrSchoolScopeRequired is returned when a statement on a school-owned table has no school condition
var ErrSchoolScopeRequired = errors.New("school_id condition is required on school-owned tables")

// DefaultColumn is the school column on every ledger table
const DefaultColumn = "school_id"

// LedgerTables lists the tables owned by one school each
var LedgerTables = []string{
	"fee_records",
	"fee_payments",
	"concessions",
	"previous_year_balances",
	"student_promotions",
	"students",
	"fee_structures",
}

// Config holds configuration for the guard
type Config struct {
	// Column is the name of the school ID column
	Column string
	// Tables are the guarded table names
	Tables []string
}

// DefaultConfig guards the ledger tables on school_id
func DefaultConfig() Config {
	return Config{
		Column: DefaultColumn,
		Tables: LedgerTables,
	}
}

// School applies the school filter to a query
func School(schoolID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if schoolID == uuid.Nil {
			_ = db.AddError(ErrSchoolScopeRequired)
			return db
		}
		return db.Where(DefaultColumn+" = ?", schoolID)
	}
}
