package abarorm

import (
	"context"
	"fmt"
	"strings"

	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/schema"
)

// Statement statement
type Statement struct {
	*DB
	Context context.Context
	Table   string
	Schema  *schema.Schema
	Clauses map[string]clause.Clause
	SQL     strings.Builder
	Vars    []interface{}
}

// NewStatement starts a statement against the table of s
func (db *DB) NewStatement(ctx context.Context, s *schema.Schema) *Statement {
	stmt := &Statement{
		DB:      db,
		Context: ctx,
		Schema:  s,
		Clauses: map[string]clause.Clause{},
	}
	if s != nil {
		stmt.Table = s.Table
	}
	return stmt
}

// WriteString write string
func (stmt *Statement) WriteString(str string) (int, error) {
	return stmt.SQL.WriteString(str)
}

// WriteByte write byte
func (stmt *Statement) WriteByte(c byte) error {
	return stmt.SQL.WriteByte(c)
}

// WriteQuoted write quoted value
func (stmt *Statement) WriteQuoted(value interface{}) {
	stmt.QuoteTo(&stmt.SQL, value)
}

// QuoteTo write quoted value to writer
func (stmt *Statement) QuoteTo(writer clause.Writer, field interface{}) {
	switch v := field.(type) {
	case clause.Table:
		if v.Raw {
			writer.WriteString(v.Name)
		} else if v.Name == "" {
			stmt.Dialector.QuoteTo(writer, stmt.Table)
		} else {
			stmt.Dialector.QuoteTo(writer, v.Name)
		}
	case clause.Column:
		if v.Table != "" {
			stmt.Dialector.QuoteTo(writer, v.Table)
			writer.WriteByte('.')
		}

		if v.Raw {
			writer.WriteString(v.Name)
		} else {
			stmt.Dialector.QuoteTo(writer, v.Name)
		}
	case []clause.Column:
		writer.WriteByte('(')
		for idx, d := range v {
			if idx > 0 {
				writer.WriteByte(',')
			}
			stmt.QuoteTo(writer, d)
		}
		writer.WriteByte(')')
	case string:
		stmt.Dialector.QuoteTo(writer, v)
	default:
		stmt.Dialector.QuoteTo(writer, fmt.Sprint(field))
	}
}

// Quote returns quoted value
func (stmt *Statement) Quote(field interface{}) string {
	var builder strings.Builder
	stmt.QuoteTo(&builder, field)
	return builder.String()
}

// AddVar add var
func (stmt *Statement) AddVar(writer clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			writer.WriteByte(',')
		}

		switch v := v.(type) {
		case clause.Column, clause.Table:
			stmt.QuoteTo(writer, v)
		case clause.Expression:
			v.Build(stmt)
		case []interface{}:
			if len(v) > 0 {
				writer.WriteByte('(')
				stmt.AddVar(writer, v...)
				writer.WriteByte(')')
			} else {
				writer.WriteString("(NULL)")
			}
		default:
			stmt.Vars = append(stmt.Vars, v)
			stmt.Dialector.BindVarTo(writer, stmt, v)
		}
	}
}

// AddClause add clause
func (stmt *Statement) AddClause(v clause.Interface) {
	name := v.Name()
	c, ok := stmt.Clauses[name]
	if !ok {
		c.Name = name
	}
	v.MergeClause(&c)
	stmt.Clauses[name] = c
}

// Build build sql with clauses names
func (stmt *Statement) Build(clauses ...string) {
	var firstClauseWritten bool

	for _, name := range clauses {
		if c, ok := stmt.Clauses[name]; ok {
			if firstClauseWritten {
				stmt.WriteByte(' ')
			}

			firstClauseWritten = true
			if b, ok := stmt.ClauseBuilders[name]; ok {
				b.Build(c, stmt)
			} else {
				c.Build(stmt)
			}
		}
	}
}

// String returns the statement with its vars inlined, for logging
func (stmt *Statement) String() string {
	return stmt.Dialector.Explain(stmt.SQL.String(), stmt.Vars...)
}
