package migrator

import (
	"database/sql"
	"strings"

	"github.com/abarorm/abarorm/utils"
)

// ColumnType column type implements ColumnType interface
type ColumnType struct {
	NameValue         sql.NullString
	DataTypeValue     sql.NullString
	PrimaryKeyValue   sql.NullBool
	NullableValue     sql.NullBool
	DefaultValueValue sql.NullString
}

// Name returns the name or alias of the column.
func (ct ColumnType) Name() string {
	return ct.NameValue.String
}

// DatabaseTypeName returns the database system name of the column type, like
// `varchar(16)` or `INTEGER`
func (ct ColumnType) DatabaseTypeName() string {
	return ct.DataTypeValue.String
}

// PrimaryKey returns the column is primary key or not.
func (ct ColumnType) PrimaryKey() (isPrimaryKey bool, ok bool) {
	return ct.PrimaryKeyValue.Bool, ct.PrimaryKeyValue.Valid
}

// Nullable reports whether the column may be null.
func (ct ColumnType) Nullable() (nullable bool, ok bool) {
	return ct.NullableValue.Bool, ct.NullableValue.Valid
}

// DefaultValue returns the default value of current column.
func (ct ColumnType) DefaultValue() (value string, ok bool) {
	return ct.DefaultValueValue.String, ct.DefaultValueValue.Valid
}

// NullString reads an optional text value of an introspection row
func NullString(v interface{}) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: utils.ToString(v), Valid: true}
}

// NullBool reads a flag of an introspection row: YES/NO, 1/0 or PRI
func NullBool(v interface{}) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	switch s := strings.ToUpper(utils.ToString(v)); s {
	case "YES", "1", "TRUE", "T", "PRI":
		return sql.NullBool{Bool: true, Valid: true}
	}
	return sql.NullBool{Valid: true}
}

// Value reads a column of an introspection row, whatever case the driver
// reports its name in
func Value(row map[string]interface{}, column string) interface{} {
	if v, ok := row[column]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, column) {
			return v
		}
	}
	return nil
}
