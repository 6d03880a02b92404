package abarorm

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/schema"
)

// Dialector database dialector
type Dialector interface {
	Name() string
	// Initialize checks the configuration before any connection is made
	Initialize(*DB) error
	// Connect opens a connection handle. Handles the dialector does not own
	// (owned == false) are never closed by the library.
	Connect(ctx context.Context) (conn *sql.DB, owned bool, err error)
	Migrator(db *DB) Migrator
	DataTypeOf(*schema.Field) string
	DefaultValueOf(*schema.Field) string
	// ConvertValue maps a canonical field value to what the driver stores
	ConvertValue(field *schema.Field, value interface{}) interface{}
	BindVarTo(writer clause.Writer, stmt *Statement, v interface{})
	QuoteTo(clause.Writer, string)
	Explain(sql string, vars ...interface{}) string
	// ContainsExpr builds a substring match of value in column
	ContainsExpr(column clause.Column, value string, caseInsensitive bool) clause.Expression
	// SupportLastInsertID false means inserts return the identity with RETURNING
	SupportLastInsertID() bool
}

// ErrorTranslator is implemented by dialectors that map driver errors to the
// package sentinels
type ErrorTranslator interface {
	Translate(err error) error
}

// Migrator synchronizes schemas with live tables
type Migrator interface {
	AutoMigrate(ctx context.Context, schemas ...*schema.Schema) error
	CreateTable(ctx context.Context, schemas ...*schema.Schema) error
	CreateTableSQL(s *schema.Schema) string
	HasTable(ctx context.Context, table string) (bool, error)
	ColumnTypes(ctx context.Context, table string) ([]ColumnType, error)
	ColumnNames(ctx context.Context, table string) ([]string, error)
	HasColumn(ctx context.Context, s *schema.Schema, name string) (bool, error)
	AddColumn(ctx context.Context, s *schema.Schema, name string) error
}

// ColumnType describes a live column
type ColumnType interface {
	Name() string
	DatabaseTypeName() string
	PrimaryKey() (isPrimaryKey bool, ok bool)
	Nullable() (nullable bool, ok bool)
	DefaultValue() (value string, ok bool)
}

// ConnPool runs statements; both *sqlx.DB and a pinned *sqlx.Conn serve
type ConnPool interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}
