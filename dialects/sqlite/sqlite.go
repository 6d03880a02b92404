package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	sqlitedriver "modernc.org/sqlite"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/errtranslator"
	"github.com/abarorm/abarorm/logger"
	"github.com/abarorm/abarorm/migrator"
	"github.com/abarorm/abarorm/schema"
)

// DriverName is the default driver name for SQLite.
const DriverName = "sqlite"

// Date and time layouts of stored temporal values
const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02 15:04:05"
	TimeFormat     = "15:04:05"
)

// FoldFunction is the SQL function folding text case the way in-memory
// lookups do. LIKE only folds ASCII letters.
const FoldFunction = "abar_fold"

func init() {
	sqlitedriver.MustRegisterDeterministicScalarFunction(FoldFunction, 1, foldValue)
}

func foldValue(_ *sqlitedriver.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	}
	return args[0], nil
}

type Config struct {
	DriverName string
	// DSN is a file path or a file: URI
	DSN string
	// Conn is a caller-owned handle, reused and never closed
	Conn *sql.DB
	// DisableForeignKeys leaves the foreign_keys pragma off
	DisableForeignKeys bool
}

type Dialector struct {
	*Config
}

func Open(dsn string) abarorm.Dialector {
	return &Dialector{Config: &Config{DSN: dsn}}
}

func New(config Config) abarorm.Dialector {
	return &Dialector{Config: &config}
}

func (dialector Dialector) Name() string {
	return "sqlite"
}

func (dialector Dialector) Initialize(db *abarorm.DB) error {
	if dialector.DriverName == "" {
		dialector.DriverName = DriverName
	}
	if dialector.Conn == nil && strings.TrimSpace(dialector.DSN) == "" {
		return fmt.Errorf("%w: sqlite needs a database file", abarorm.ErrInvalidConfig)
	}
	return nil
}

// DataSourceName appends the foreign_keys pragma to the configured DSN
func (dialector Dialector) DataSourceName() string {
	dsn := dialector.DSN
	if dialector.DisableForeignKeys || strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_pragma=foreign_keys(1)"
	}
	return dsn + "?_pragma=foreign_keys(1)"
}

func (dialector Dialector) Connect(ctx context.Context) (*sql.DB, bool, error) {
	if dialector.Conn != nil {
		return dialector.Conn, false, nil
	}

	conn, err := sql.Open(dialector.DriverName, dialector.DataSourceName())
	if err != nil {
		return nil, false, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, false, err
	}
	return conn, true, nil
}

func (dialector Dialector) Migrator(db *abarorm.DB) abarorm.Migrator {
	return Migrator{migrator.New(migrator.Config{
		DB:             db,
		Dialector:      dialector,
		IdentityColumn: `"id" INTEGER PRIMARY KEY AUTOINCREMENT`,
	})}
}

func (dialector Dialector) DataTypeOf(field *schema.Field) string {
	switch field.Kind {
	case schema.Char, schema.Email, schema.URL:
		return "VARCHAR(" + strconv.Itoa(field.MaxLength) + ")"
	case schema.Text, schema.UUID:
		return "TEXT"
	case schema.Integer, schema.ForeignKey:
		return "INTEGER"
	case schema.Float:
		return "FLOAT"
	case schema.Decimal:
		return fmt.Sprintf("DECIMAL(%d, %d)", field.MaxDigits, field.DecimalPlaces)
	case schema.Boolean:
		return "BOOLEAN"
	case schema.Date:
		return "DATE"
	case schema.DateTime:
		return "DATETIME"
	case schema.Time:
		return "TIME"
	}
	return string(field.Kind)
}

func (dialector Dialector) DefaultValueOf(field *schema.Field) string {
	return migrator.Literal(dialector.ConvertValue(field, field.Default))
}

// ConvertValue stores booleans as 0/1 and temporal values as ISO text
func (dialector Dialector) ConvertValue(field *schema.Field, value interface{}) interface{} {
	switch v := value.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		switch field.Kind {
		case schema.Date:
			return v.Format(DateFormat)
		case schema.Time:
			return v.Format(TimeFormat)
		}
		return v.UTC().Format(DateTimeFormat)
	case uuid.UUID:
		return v.String()
	}
	return value
}

func (dialector Dialector) BindVarTo(writer clause.Writer, stmt *abarorm.Statement, v interface{}) {
	writer.WriteByte('?')
}

func (dialector Dialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('"')
	writer.WriteString(strings.ReplaceAll(str, `"`, `""`))
	writer.WriteByte('"')
}

func (dialector Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `"`, vars...)
}

// ContainsExpr matches with INSTR, on case folded operands when
// caseInsensitive
func (dialector Dialector) ContainsExpr(column clause.Column, value string, caseInsensitive bool) clause.Expression {
	if caseInsensitive {
		return clause.Expr{
			SQL:  "INSTR(" + FoldFunction + "(?), " + FoldFunction + "(?)) > 0",
			Vars: []interface{}{column, value},
		}
	}
	return clause.Expr{SQL: "INSTR(?, ?) > 0", Vars: []interface{}{column, value}}
}

func (dialector Dialector) SupportLastInsertID() bool {
	return true
}

func (dialector Dialector) Translate(err error) error {
	return (&errtranslator.SqliteErrTranslator{}).Translate(err)
}
