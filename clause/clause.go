// Package clause assembles the SQL of the few statement shapes the ORM runs:
// single table SELECT, INSERT, UPDATE and DELETE with AND-ed conditions.
package clause

// Interface is one named part of a statement
type Interface interface {
	Name() string
	Build(Builder)
	// MergeClause folds the part into the clause already registered under
	// the same name
	MergeClause(*Clause)
}

// Writer writes SQL text
type Writer interface {
	WriteByte(byte) error
	WriteString(string) (int, error)
}

// Builder receives SQL text, identifiers and bound values. AddVar writes the
// placeholder of each value and records it.
type Builder interface {
	Writer
	WriteQuoted(field interface{})
	AddVar(Writer, ...interface{})
}

// Clause is a keyword followed by its expression. Parts that write their own
// keyword clear Name when merged.
type Clause struct {
	Name       string
	Expression Expression
}

// ClauseBuilder renders a clause in place of Clause.Build, for dialects that
// spell a part differently
type ClauseBuilder interface {
	Build(Clause, Builder)
}

// ClauseBuilderFunc adapts a function to ClauseBuilder
type ClauseBuilderFunc func(Clause, Builder)

func (f ClauseBuilderFunc) Build(c Clause, builder Builder) { f(c, builder) }

// Build writes "NAME expression"
func (c Clause) Build(builder Builder) {
	if c.Expression == nil {
		return
	}
	if c.Name != "" {
		builder.WriteString(c.Name)
		builder.WriteByte(' ')
	}
	c.Expression.Build(builder)
}

// Column is a column identifier, quoted unless Raw
type Column struct {
	Table string
	Name  string
	Raw   bool
}

// Table is a table identifier, quoted unless Raw. An empty name stands for
// the table of the statement.
type Table struct {
	Name string
	Raw  bool
}

func writeColumns(builder Builder, columns []Column) {
	for idx, column := range columns {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(column)
	}
}
