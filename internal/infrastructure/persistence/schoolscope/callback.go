package schoolscope

import (
	"reflect"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	callbackQuery  = "schoolscope:before_query"
	callbackRow    = "schoolscope:before_row"
	callbackUpdate = "schoolscope:before_update"
	callbackDelete = "schoolscope:before_delete"
)

// Guard provides GORM callback hooks that enforce school scoping
type Guard struct {
	column string
	tables map[string]struct{}
}

// NewGuard creates a guard for the configured tables
func NewGuard(cfg Config) *Guard {
	if cfg.Column == "" {
		cfg.Column = DefaultColumn
	}
	tables := make(map[string]struct{}, len(cfg.Tables))
	for _, t := range cfg.Tables {
		tables[t] = struct{}{}
	}
	return &Guard{column: cfg.Column, tables: tables}
}

// Register installs the guard on db.
// Creates are not guarded: school_id is set on the aggregate itself.
func Register(db *gorm.DB, cfg Config) error {
	g := NewGuard(cfg)
	if err := db.Callback().Query().Before("gorm:query").Register(callbackQuery, g.check); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register(callbackRow, g.check); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register(callbackUpdate, g.check); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register(callbackDelete, g.check)
}

// Unregister removes the guard callbacks
func Unregister(db *gorm.DB) {
	_ = db.Callback().Query().Remove(callbackQuery)
	_ = db.Callback().Row().Remove(callbackRow)
	_ = db.Callback().Update().Remove(callbackUpdate)
	_ = db.Callback().Delete().Remove(callbackDelete)
}

func (g *Guard) check(db *gorm.DB) {
	if db.Error != nil || db.Statement.Unscoped || !g.guards(db) {
		return
	}
	if g.hasSchoolCondition(db) {
		return
	}

	// Save and Update on a loaded model carry the school on the row itself
	if schoolID, ok := g.schoolFromModel(db); ok {
		db.Statement.AddClause(clause.Where{
			Exprs: []clause.Expression{
				clause.Eq{
					Column: clause.Column{Table: clause.CurrentTable, Name: g.column},
					Value:  schoolID,
				},
			},
		})
		return
	}

	_ = db.AddError(ErrSchoolScopeRequired)
}

func (g *Guard) guards(db *gorm.DB) bool {
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	_, ok := g.tables[table]
	return ok
}

func (g *Guard) hasSchoolCondition(db *gorm.DB) bool {
	whereClause, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := whereClause.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if g.exprContainsSchool(expr) {
			return true
		}
	}
	return false
}

func (g *Guard) exprContainsSchool(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Expr:
		return strings.Contains(e.SQL, g.column)
	case clause.NamedExpr:
		return strings.Contains(e.SQL, g.column)
	case clause.Eq:
		return g.isColumn(e.Column)
	case clause.IN:
		return g.isColumn(e.Column)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if g.exprContainsSchool(cond) {
				return true
			}
		}
	}
	return false
}

func (g *Guard) isColumn(column any) bool {
	switch c := column.(type) {
	case clause.Column:
		return c.Name == g.column
	case string:
		return c == g.column
	}
	return false
}

func (g *Guard) schoolFromModel(db *gorm.DB) (uuid.UUID, bool) {
	if db.Statement.Schema == nil {
		return uuid.Nil, false
	}
	field := db.Statement.Schema.LookUpField(g.column)
	if field == nil {
		return uuid.Nil, false
	}
	rv := reflect.Indirect(db.Statement.ReflectValue)
	if rv.Kind() != reflect.Struct && db.Statement.Model != nil {
		rv = reflect.Indirect(reflect.ValueOf(db.Statement.Model))
	}
	if rv.Kind() != reflect.Struct {
		return uuid.Nil, false
	}
	value, zero := field.ValueOf(db.Statement.Context, rv)
	if zero {
		return uuid.Nil, false
	}
	schoolID, ok := value.(uuid.UUID)
	return schoolID, ok && schoolID != uuid.Nil
}
