package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abarorm/abarorm/config"
)

func blogConfig(t *testing.T) config.Config {
	return config.Config{
		Database: config.Database{DBName: filepath.Join(t.TempDir(), "blog.db")},
		Log:      config.Log{Level: "silent"},
		Models: []config.Model{
			{Name: "Category", Fields: []config.Field{{Name: "title", Type: "char", Size: 100}}},
			{Name: "Post", Fields: []config.Field{
				{Name: "title", Type: "char", Size: 200},
				{Name: "category", Type: "fk", To: "Category", OnDelete: "set null", Null: true},
			}},
		},
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := blogConfig(t)

	var out bytes.Buffer
	require.NoError(t, run(ctx, cfg, []string{"ping"}, &out))
	assert.Equal(t, "ok\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, cfg, []string{"sync"}, &out))
	assert.Equal(t, "Category -> category\nPost -> post\n", out.String())

	out.Reset()
	require.NoError(t, run(ctx, cfg, []string{"columns", "post"}, &out))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "COLUMN")
	assert.Contains(t, string(lines[1]), "PRI")
	assert.Contains(t, string(lines[3]), "category")

	err := run(ctx, cfg, []string{"columns", "comment"}, &out)
	assert.Error(t, err)
}

func TestRunDDL(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), blogConfig(t), []string{"ddl"}, &out))
	assert.Equal(t,
		`CREATE TABLE IF NOT EXISTS "category" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "title" VARCHAR(100) NOT NULL);`+"\n"+
			`CREATE TABLE IF NOT EXISTS "post" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "title" VARCHAR(200) NOT NULL, `+
			`"category" INTEGER NULL DEFAULT NULL REFERENCES "category" ("id") ON DELETE SET NULL);`+"\n",
		out.String())
}

func TestRunUsage(t *testing.T) {
	cfg := blogConfig(t)
	for _, args := range [][]string{{"drop"}, {"columns"}, {"sync", "now"}} {
		err := run(context.Background(), cfg, args, &bytes.Buffer{})
		assert.ErrorIs(t, err, errUsage, args)
	}
}
