package migrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/schema"
	"github.com/abarorm/abarorm/utils"
)

// Migrator m struct
type Migrator struct {
	Config
}

// Config schema config
type Config struct {
	DB *abarorm.DB
	abarorm.Dialector
	// IdentityColumn is the DDL of the implicit identity column
	IdentityColumn string
	// TableLevelForeignKeys writes FOREIGN KEY clauses after the columns
	// instead of inline REFERENCES
	TableLevelForeignKeys bool
}

// New returns the default migrator of a dialector
func New(config Config) Migrator {
	if config.IdentityColumn == "" {
		config.IdentityColumn = "id INTEGER PRIMARY KEY"
	}
	return Migrator{Config: config}
}

// Raw binds vars to the placeholders of sql the way the dialect expects
func (m Migrator) Raw(ctx context.Context, sql string, vars ...interface{}) (string, []interface{}) {
	stmt := m.DB.NewStatement(ctx, nil)
	clause.Expr{SQL: sql, Vars: vars}.Build(stmt)
	return stmt.SQL.String(), stmt.Vars
}

// AutoMigrate creates missing tables then adds the declared columns they lack.
// Existing columns are never altered or dropped.
func (m Migrator) AutoMigrate(ctx context.Context, schemas ...*schema.Schema) error {
	for _, s := range schemas {
		err := m.DB.Connection(ctx, func(tx *abarorm.DB) error {
			migrator := tx.Migrator()
			if err := migrator.CreateTable(ctx, s); err != nil {
				return err
			}

			// columns of a dry run table are unknown
			if tx.DryRun {
				return nil
			}

			columns, err := migrator.ColumnNames(ctx, s.Table)
			if err != nil {
				return err
			}

			for _, field := range s.Fields {
				if utils.Contains(columns, field.DBName) {
					continue
				}
				if err := migrator.AddColumn(ctx, s, field.DBName); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// FullDataTypeOf renders the column definition after the column name
func (m Migrator) FullDataTypeOf(field *schema.Field) string {
	var sb strings.Builder
	sb.WriteString(m.Dialector.DataTypeOf(field))

	if field.Unique {
		sb.WriteString(" UNIQUE")
	}
	if field.Null {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}

	if field.HasDefault && field.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(m.Dialector.DefaultValueOf(field))
	} else if field.Null {
		sb.WriteString(" DEFAULT NULL")
	}
	return sb.String()
}

func (m Migrator) references(field *schema.Field) string {
	return fmt.Sprintf("REFERENCES %s (%s) ON DELETE %s",
		m.Quote(field.ToTable), m.Quote(schema.PrimaryKey), field.OnDelete)
}

// Quote quotes an identifier for the dialect
func (m Migrator) Quote(name string) string {
	var sb strings.Builder
	m.Dialector.QuoteTo(&sb, name)
	return sb.String()
}

// columnSQL renders one column definition
func (m Migrator) columnSQL(field *schema.Field) string {
	def := m.Quote(field.DBName) + " " + m.FullDataTypeOf(field)
	if field.Kind == schema.ForeignKey && !m.TableLevelForeignKeys {
		def += " " + m.references(field)
	}
	return def
}

// CreateTableSQL renders the CREATE TABLE IF NOT EXISTS statement of s
func (m Migrator) CreateTableSQL(s *schema.Schema) string {
	defs := make([]string, 0, len(s.Fields)+1)
	defs = append(defs, m.IdentityColumn)
	for _, field := range s.Fields {
		defs = append(defs, m.columnSQL(field))
	}

	if m.TableLevelForeignKeys {
		for _, field := range s.ForeignKeys() {
			defs = append(defs, fmt.Sprintf("FOREIGN KEY (%s) %s", m.Quote(field.DBName), m.references(field)))
		}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", m.Quote(s.Table), strings.Join(defs, ", "))
}

// CreateTable creates the tables of schemas that do not exist yet
func (m Migrator) CreateTable(ctx context.Context, schemas ...*schema.Schema) error {
	for _, s := range schemas {
		if _, err := m.DB.Exec(ctx, m.DB.Migrator().CreateTableSQL(s)); err != nil {
			return fmt.Errorf("create table %s: %w", s.Table, err)
		}
	}
	return nil
}

// HasTable looks the table up in the current schema
func (m Migrator) HasTable(ctx context.Context, table string) (bool, error) {
	query, vars := m.Raw(ctx,
		"SELECT count(*) AS count FROM information_schema.tables WHERE table_schema = CURRENT_SCHEMA() AND table_name = ? AND table_type = ?",
		table, "BASE TABLE")
	return m.Exists(ctx, query, vars...)
}

// Exists runs a count query and reports whether it counted anything
func (m Migrator) Exists(ctx context.Context, query string, vars ...interface{}) (bool, error) {
	rows, err := m.DB.Query(ctx, query, vars...)
	if err != nil || len(rows) == 0 {
		return false, err
	}
	for _, v := range rows[0] {
		n, err := strconv.ParseInt(utils.ToString(v), 10, 64)
		if err != nil {
			return false, fmt.Errorf("count of %q: %w", query, err)
		}
		return n > 0, nil
	}
	return false, nil
}

// ColumnTypes describes the live columns of table in ordinal order
func (m Migrator) ColumnTypes(ctx context.Context, table string) ([]abarorm.ColumnType, error) {
	query, vars := m.Raw(ctx,
		"SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns WHERE table_schema = CURRENT_SCHEMA() AND table_name = ? ORDER BY ordinal_position",
		table)
	rows, err := m.DB.Query(ctx, query, vars...)
	if err != nil {
		return nil, err
	}

	columnTypes := make([]abarorm.ColumnType, 0, len(rows))
	for _, row := range rows {
		columnTypes = append(columnTypes, ColumnType{
			NameValue:         NullString(Value(row, "column_name")),
			DataTypeValue:     NullString(Value(row, "data_type")),
			NullableValue:     NullBool(Value(row, "is_nullable")),
			DefaultValueValue: NullString(Value(row, "column_default")),
		})
	}
	return columnTypes, nil
}

// ColumnNames lists the live columns of table in ordinal order
func (m Migrator) ColumnNames(ctx context.Context, table string) ([]string, error) {
	columnTypes, err := m.DB.Migrator().ColumnTypes(ctx, table)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(columnTypes))
	for _, columnType := range columnTypes {
		names = append(names, columnType.Name())
	}
	return names, nil
}

// HasColumn reports whether the live table of s has the column of name
func (m Migrator) HasColumn(ctx context.Context, s *schema.Schema, name string) (bool, error) {
	if field := s.LookUpField(name); field != nil {
		name = field.DBName
	}

	columns, err := m.DB.Migrator().ColumnNames(ctx, s.Table)
	if err != nil {
		return false, err
	}
	return utils.Contains(columns, name), nil
}

// AddColumn adds the column of a declared field. When the full definition is
// refused for a NOT NULL conflict, the column is added nullable instead.
func (m Migrator) AddColumn(ctx context.Context, s *schema.Schema, name string) error {
	field := s.LookUpField(name)
	if field == nil {
		return fmt.Errorf("%w: %s has no field %q", abarorm.ErrInvalidField, s.Name, name)
	}

	table := m.Quote(s.Table)
	query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, m.columnSQL(field))
	if field.Kind == schema.ForeignKey && m.TableLevelForeignKeys {
		query += fmt.Sprintf(", ADD FOREIGN KEY (%s) %s", m.Quote(field.DBName), m.references(field))
	}

	_, err := m.DB.Exec(ctx, query)
	if err == nil {
		return nil
	}
	if !errors.Is(err, abarorm.ErrNotNullViolation) && !strings.Contains(strings.ToUpper(err.Error()), "NOT NULL") {
		return fmt.Errorf("add column %s.%s: %w", s.Table, field.DBName, err)
	}

	m.DB.Logger.Warn(ctx, "adding column %s.%s as NULL, NOT NULL constraint failed: %v", s.Table, field.DBName, err)
	fallback := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s NULL", table, m.Quote(field.DBName), m.Dialector.DataTypeOf(field))
	if _, err := m.DB.Exec(ctx, fallback); err != nil {
		return fmt.Errorf("add column %s.%s: %w", s.Table, field.DBName, err)
	}
	return nil
}

// Literal renders a driver value as an SQL literal for DEFAULT clauses
func Literal(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case uuid.UUID:
		return "'" + v.String() + "'"
	case []byte:
		return Literal(string(v))
	}
	return utils.ToString(v)
}
