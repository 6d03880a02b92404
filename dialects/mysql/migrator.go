package mysql

import (
	"context"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/migrator"
)

type Migrator struct {
	migrator.Migrator
}

func (m Migrator) HasTable(ctx context.Context, table string) (bool, error) {
	return m.Exists(ctx,
		"SELECT count(*) AS count FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ? AND table_type = ?",
		table, "BASE TABLE")
}

// ColumnTypes reads SHOW COLUMNS, in table order
func (m Migrator) ColumnTypes(ctx context.Context, table string) ([]abarorm.ColumnType, error) {
	rows, err := m.DB.Query(ctx, "SHOW COLUMNS FROM "+m.Quote(table))
	if err != nil {
		return nil, err
	}

	columnTypes := make([]abarorm.ColumnType, 0, len(rows))
	for _, row := range rows {
		columnTypes = append(columnTypes, migrator.ColumnType{
			NameValue:         migrator.NullString(row["Field"]),
			DataTypeValue:     migrator.NullString(row["Type"]),
			PrimaryKeyValue:   migrator.NullBool(row["Key"]),
			NullableValue:     migrator.NullBool(row["Null"]),
			DefaultValueValue: migrator.NullString(row["Default"]),
		})
	}
	return columnTypes, nil
}
