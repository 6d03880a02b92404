package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/errtranslator"
	"github.com/abarorm/abarorm/logger"
	"github.com/abarorm/abarorm/migrator"
	"github.com/abarorm/abarorm/schema"
)

// DefaultPort of PostgreSQL servers
const DefaultPort = 5432

const TimeFormat = "15:04:05"

type Config struct {
	DriverName string
	// DSN takes precedence over the connection fields below
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Conn is a caller-owned handle, reused and never closed
	Conn *sql.DB
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
	return "postgres"
}

func (dialector Dialector) Initialize(db *abarorm.DB) error {
	if dialector.DriverName == "" {
		dialector.DriverName = "postgres"
	}
	if dialector.Conn != nil || dialector.DSN != "" {
		return nil
	}
	if dialector.DBName == "" {
		return fmt.Errorf("%w: postgres needs a database name", abarorm.ErrInvalidConfig)
	}
	if dialector.User == "" {
		return fmt.Errorf("%w: postgres needs a user", abarorm.ErrInvalidConfig)
	}
	return nil
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// DataSourceName formats the connection fields as key/value pairs
func (dialector Dialector) DataSourceName() string {
	if dialector.DSN != "" {
		return dialector.DSN
	}

	host := dialector.Host
	if host == "" {
		host = "localhost"
	}
	port := dialector.Port
	if port == 0 {
		port = DefaultPort
	}
	sslMode := dialector.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	pairs := []string{
		"host=" + host,
		"port=" + strconv.Itoa(port),
		"user='" + dsnEscaper.Replace(dialector.User) + "'",
		"password='" + dsnEscaper.Replace(dialector.Password) + "'",
		"dbname='" + dsnEscaper.Replace(dialector.DBName) + "'",
		"sslmode=" + sslMode,
	}
	return strings.Join(pairs, " ")
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
	return migrator.New(migrator.Config{
		DB:             db,
		Dialector:      dialector,
		IdentityColumn: `"id" SERIAL PRIMARY KEY`,
	})
}

func (dialector Dialector) DataTypeOf(field *schema.Field) string {
	switch field.Kind {
	case schema.Char, schema.Email, schema.URL:
		return "VARCHAR(" + strconv.Itoa(field.MaxLength) + ")"
	case schema.Text:
		return "TEXT"
	case schema.Integer, schema.ForeignKey:
		return "INTEGER"
	case schema.Float:
		return "DOUBLE PRECISION"
	case schema.Decimal:
		return fmt.Sprintf("DECIMAL(%d, %d)", field.MaxDigits, field.DecimalPlaces)
	case schema.Boolean:
		return "BOOLEAN"
	case schema.Date:
		return "DATE"
	case schema.DateTime:
		return "TIMESTAMP"
	case schema.Time:
		return "TIME"
	case schema.UUID:
		return "UUID"
	}
	return string(field.Kind)
}

func (dialector Dialector) DefaultValueOf(field *schema.Field) string {
	return migrator.Literal(dialector.ConvertValue(field, field.Default))
}

// ConvertValue keeps native values. Times of day are sent as text and
// datetimes in UTC, TIMESTAMP columns drop the offset.
func (dialector Dialector) ConvertValue(field *schema.Field, value interface{}) interface{} {
	switch v := value.(type) {
	case time.Time:
		switch field.Kind {
		case schema.Time:
			return v.Format(TimeFormat)
		case schema.DateTime:
			return v.UTC()
		}
	case uuid.UUID:
		return v.String()
	}
	return value
}

func (dialector Dialector) BindVarTo(writer clause.Writer, stmt *abarorm.Statement, v interface{}) {
	writer.WriteByte('$')
	writer.WriteString(strconv.Itoa(len(stmt.Vars)))
}

func (dialector Dialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('"')
	writer.WriteString(strings.ReplaceAll(str, `"`, `""`))
	writer.WriteByte('"')
}

var numericPlaceholder = regexp.MustCompile(`\$(\d+)`)

func (dialector Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, numericPlaceholder, `'`, vars...)
}

func (dialector Dialector) ContainsExpr(column clause.Column, value string, caseInsensitive bool) clause.Expression {
	if caseInsensitive {
		return clause.Expr{SQL: "? ILIKE ?", Vars: []interface{}{column, clause.LikePattern(value)}}
	}
	return clause.Expr{SQL: "? LIKE ?", Vars: []interface{}{column, clause.LikePattern(value)}}
}

// SupportLastInsertID is false, inserts return the identity with RETURNING
func (dialector Dialector) SupportLastInsertID() bool {
	return false
}

func (dialector Dialector) Translate(err error) error {
	return (&errtranslator.PostgresErrTranslator{}).Translate(err)
}
