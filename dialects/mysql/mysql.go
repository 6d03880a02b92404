package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/errtranslator"
	"github.com/abarorm/abarorm/logger"
	"github.com/abarorm/abarorm/migrator"
	"github.com/abarorm/abarorm/schema"
)

// DefaultPort of MySQL servers
const DefaultPort = 3306

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
	return "mysql"
}

func (dialector Dialector) Initialize(db *abarorm.DB) error {
	if dialector.DriverName == "" {
		dialector.DriverName = "mysql"
	}
	db.ClauseBuilders["VALUES"] = clause.ClauseBuilderFunc(buildValues)
	if dialector.Conn != nil || dialector.DSN != "" {
		return nil
	}
	if dialector.DBName == "" {
		return fmt.Errorf("%w: mysql needs a database name", abarorm.ErrInvalidConfig)
	}
	if dialector.User == "" {
		return fmt.Errorf("%w: mysql needs a user", abarorm.ErrInvalidConfig)
	}
	return nil
}

// buildValues writes rows without columns as "() VALUES ()", MySQL has no
// DEFAULT VALUES form
func buildValues(c clause.Clause, builder clause.Builder) {
	values, ok := c.Expression.(clause.Values)
	if !ok || len(values.Columns) > 0 {
		c.Build(builder)
		return
	}

	builder.WriteString("() VALUES ")
	for idx := range values.Values {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString("()")
	}
	if len(values.Values) == 0 {
		builder.WriteString("()")
	}
}

// DataSourceName formats the connection fields. Found rows are reported as
// affected so updates writing unchanged values still count.
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

	cfg := mysql.NewConfig()
	cfg.User = dialector.User
	cfg.Passwd = dialector.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = dialector.DBName
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
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
		DB:                    db,
		Dialector:             dialector,
		IdentityColumn:        "`id` INT AUTO_INCREMENT PRIMARY KEY",
		TableLevelForeignKeys: true,
	})}
}

func (dialector Dialector) DataTypeOf(field *schema.Field) string {
	switch field.Kind {
	case schema.Char, schema.Email, schema.URL:
		return "VARCHAR(" + strconv.Itoa(field.MaxLength) + ")"
	case schema.Text:
		return "TEXT"
	case schema.Integer, schema.ForeignKey:
		return "INT"
	case schema.Float:
		return "DOUBLE"
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
	case schema.UUID:
		return "CHAR(36)"
	}
	return string(field.Kind)
}

func (dialector Dialector) DefaultValueOf(field *schema.Field) string {
	return migrator.Literal(dialector.ConvertValue(field, field.Default))
}

// ConvertValue stores booleans as 0/1; dates and datetimes stay native
func (dialector Dialector) ConvertValue(field *schema.Field, value interface{}) interface{} {
	switch v := value.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		if field.Kind == schema.Time {
			return v.Format(TimeFormat)
		}
	case uuid.UUID:
		return v.String()
	}
	return value
}

func (dialector Dialector) BindVarTo(writer clause.Writer, stmt *abarorm.Statement, v interface{}) {
	writer.WriteByte('?')
}

func (dialector Dialector) QuoteTo(writer clause.Writer, str string) {
	writer.WriteByte('`')
	writer.WriteString(strings.ReplaceAll(str, "`", "``"))
	writer.WriteByte('`')
}

func (dialector Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `'`, vars...)
}

// ContainsExpr compares binary strings for case-sensitive matches
func (dialector Dialector) ContainsExpr(column clause.Column, value string, caseInsensitive bool) clause.Expression {
	if caseInsensitive {
		return clause.Expr{SQL: "LOWER(?) LIKE LOWER(?)", Vars: []interface{}{column, clause.LikePattern(value)}}
	}
	return clause.Expr{SQL: "? LIKE BINARY ?", Vars: []interface{}{column, clause.LikePattern(value)}}
}

func (dialector Dialector) SupportLastInsertID() bool {
	return true
}

func (dialector Dialector) Translate(err error) error {
	return (&errtranslator.MysqlErrTranslator{}).Translate(err)
}
