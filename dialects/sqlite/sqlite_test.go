package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abarorm/abarorm"
	"github.com/abarorm/abarorm/dialects/sqlite"
	"github.com/abarorm/abarorm/logger"
	"github.com/abarorm/abarorm/schema"
)

type Author struct {
	ID    int64
	Name  string `abar:"size:60;unique"`
	Email string `abar:"type:email;null"`
}

type Book struct {
	ID     int64
	Title  string  `abar:"size:120"`
	Rating float64 `abar:"default:2.5"`
	Author int64   `abar:"fk:Author;on_delete:restrict;related_name:books"`
	Editor *int64  `abar:"fk:Author;on_delete:set null"`
}

func openDB(t *testing.T) *abarorm.DB {
	t.Helper()
	db, err := abarorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &abarorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	return db
}

func TestDataSourceName(t *testing.T) {
	tests := []struct {
		config sqlite.Config
		dsn    string
	}{
		{sqlite.Config{DSN: "app.db"}, "app.db?_pragma=foreign_keys(1)"},
		{sqlite.Config{DSN: "file:app.db?mode=ro"}, "file:app.db?mode=ro&_pragma=foreign_keys(1)"},
		{sqlite.Config{DSN: "app.db?_pragma=foreign_keys(0)"}, "app.db?_pragma=foreign_keys(0)"},
		{sqlite.Config{DSN: "app.db", DisableForeignKeys: true}, "app.db"},
	}

	for _, tt := range tests {
		t.Run(tt.config.DSN, func(t *testing.T) {
			dialector := sqlite.New(tt.config).(*sqlite.Dialector)
			assert.Equal(t, tt.dsn, dialector.DataSourceName())
		})
	}
}

func TestCreateTableSQL(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	authors, err := abarorm.Register[Author](ctx, db)
	require.NoError(t, err)
	books, err := abarorm.Register[Book](ctx, db)
	require.NoError(t, err)

	migrator := db.Migrator()
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "author" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" VARCHAR(60) UNIQUE NOT NULL, "email" VARCHAR(255) NULL DEFAULT NULL)`,
		migrator.CreateTableSQL(authors.Schema()))
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "book" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "title" VARCHAR(120) NOT NULL, "rating" FLOAT NOT NULL DEFAULT 2.5, `+
			`"author" INTEGER NOT NULL REFERENCES "author" ("id") ON DELETE RESTRICT, "editor" INTEGER NULL DEFAULT NULL REFERENCES "author" ("id") ON DELETE SET NULL)`,
		migrator.CreateTableSQL(books.Schema()))

	exists, err := migrator.HasTable(ctx, "book")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = migrator.HasTable(ctx, "chapter")
	require.NoError(t, err)
	assert.False(t, exists)

	names, err := migrator.ColumnNames(ctx, "book")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "rating", "author", "editor"}, names)

	hasColumn, err := migrator.HasColumn(ctx, books.Schema(), "Editor")
	require.NoError(t, err)
	assert.True(t, hasColumn)

	columnTypes, err := migrator.ColumnTypes(ctx, "book")
	require.NoError(t, err)
	require.Len(t, columnTypes, 5)

	primaryKey, ok := columnTypes[0].PrimaryKey()
	assert.True(t, ok)
	assert.True(t, primaryKey)
	assert.Equal(t, "FLOAT", columnTypes[2].DatabaseTypeName())
	defaultValue, ok := columnTypes[2].DefaultValue()
	assert.True(t, ok)
	assert.Equal(t, "2.5", defaultValue)
	nullable, _ := columnTypes[4].Nullable()
	assert.True(t, nullable)
}

func TestConstraints(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	authors, err := abarorm.Register[Author](ctx, db)
	require.NoError(t, err)
	books, err := abarorm.Register[Book](ctx, db)
	require.NoError(t, err)

	authorID, err := authors.Create(ctx, abarorm.Values{"name": "Le Guin"})
	require.NoError(t, err)
	editorID, err := authors.Create(ctx, abarorm.Values{"name": "Editor"})
	require.NoError(t, err)
	bookID, err := books.Create(ctx, abarorm.Values{"title": "Earthsea", "author": authorID, "editor": editorID})
	require.NoError(t, err)

	// restricted while referenced
	_, err = authors.Delete(ctx, abarorm.Where{"id": authorID})
	assert.ErrorIs(t, err, abarorm.ErrForeignKeyViolated)

	// the referencing column is cleared
	_, err = authors.Delete(ctx, abarorm.Where{"id": editorID})
	require.NoError(t, err)
	book, err := books.Get(ctx, abarorm.Where{"id": bookID})
	require.NoError(t, err)
	assert.Nil(t, book.Editor)
	assert.Equal(t, 2.5, book.Rating)

	_, err = db.Exec(ctx, `INSERT INTO "book" ("title", "author") VALUES (?, ?)`, "Ghost", 404)
	assert.ErrorIs(t, err, abarorm.ErrForeignKeyViolated)

	_, err = db.Exec(ctx, `INSERT INTO "book" ("title", "author") VALUES (?, ?)`, nil, authorID)
	assert.ErrorIs(t, err, abarorm.ErrNotNullViolation)

	_, err = authors.Create(ctx, abarorm.Values{"name": "Le Guin"})
	assert.ErrorIs(t, err, abarorm.ErrDuplicatedKey)

	related, err := authors.Related("books", authorID)
	require.NoError(t, err)
	count, err := related.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestContains(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	authors, err := abarorm.Register[Author](ctx, db)
	require.NoError(t, err)
	_, err = authors.BulkCreate(ctx, []abarorm.Values{
		{"name": "100% Pure"},
		{"name": "100 Pure"},
		{"name": "snake_case"},
		{"name": "snakeXcase"},
		{"name": "Ébène"},
	})
	require.NoError(t, err)

	tests := []struct {
		where abarorm.Where
		count int
	}{
		{abarorm.Where{"name__icontains": "0%"}, 1},
		{abarorm.Where{"name__icontains": "PURE"}, 2},
		{abarorm.Where{"name__icontains": "e_c"}, 1},
		{abarorm.Where{"name__contains": "Pure"}, 2},
		{abarorm.Where{"name__contains": "pure"}, 0},
		{abarorm.Where{"name__icontains": "éBÈ"}, 1},
		{abarorm.Where{"name__contains": "ébè"}, 0},
	}

	all, err := authors.All(ctx)
	require.NoError(t, err)
	for _, tt := range tests {
		qs, err := authors.Filter(ctx, tt.where)
		require.NoError(t, err)
		assert.Equal(t, tt.count, qs.Count(), tt.where)

		inMemory, err := all.Filter(tt.where)
		require.NoError(t, err)
		assert.Equal(t, tt.count, inMemory.Count(), tt.where)
	}
}

func TestConvertValue(t *testing.T) {
	dialector := sqlite.New(sqlite.Config{})
	moment := time.Date(2024, 1, 2, 13, 14, 15, 0, time.FixedZone("CET", 3600))
	token := uuid.New()

	tests := []struct {
		kind  schema.Kind
		value interface{}
		want  interface{}
	}{
		{schema.Boolean, true, int64(1)},
		{schema.Date, moment, "2024-01-02"},
		{schema.Time, moment, "13:14:15"},
		{schema.DateTime, moment, "2024-01-02 12:14:15"},
		{schema.UUID, token, token.String()},
		{schema.Char, "text", "text"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			field, err := schema.NewField("value", tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dialector.ConvertValue(field, tt.value))
		})
	}

	field, err := schema.NewField("flag", schema.Boolean, schema.Default(true))
	require.NoError(t, err)
	assert.Equal(t, "1", dialector.DefaultValueOf(field))
}
