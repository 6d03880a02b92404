package sqlite

import (
	"context"
	"database/sql"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/migrator"
)

type Migrator struct {
	migrator.Migrator
}

func (m Migrator) HasTable(ctx context.Context, table string) (bool, error) {
	return m.Exists(ctx, "SELECT count(*) AS count FROM sqlite_master WHERE type = ? AND name = ?", "table", table)
}

// ColumnTypes reads PRAGMA table_info, which lists nothing for a missing table
func (m Migrator) ColumnTypes(ctx context.Context, table string) ([]abarorm.ColumnType, error) {
	rows, err := m.DB.Query(ctx, "PRAGMA table_info("+m.Quote(table)+")")
	if err != nil {
		return nil, err
	}

	columnTypes := make([]abarorm.ColumnType, 0, len(rows))
	for _, row := range rows {
		notNull := migrator.NullBool(row["notnull"])
		columnTypes = append(columnTypes, migrator.ColumnType{
			NameValue:         migrator.NullString(row["name"]),
			DataTypeValue:     migrator.NullString(row["type"]),
			PrimaryKeyValue:   migrator.NullBool(row["pk"]),
			NullableValue:     sql.NullBool{Bool: !notNull.Bool, Valid: notNull.Valid},
			DefaultValueValue: migrator.NullString(row["dflt_value"]),
		})
	}
	return columnTypes, nil
}
