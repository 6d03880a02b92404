package clause

// Select lists the returned columns, all of them when empty
type Select struct {
	Columns []Column
}

func (Select) Name() string { return "SELECT" }

func (s Select) Build(builder Builder) {
	if len(s.Columns) == 0 {
		builder.WriteByte('*')
		return
	}
	writeColumns(builder, s.Columns)
}

func (s Select) MergeClause(c *Clause) { c.Expression = s }

type From struct {
	Tables []Table
}

func (From) Name() string { return "FROM" }

func (from From) Build(builder Builder) {
	for idx, table := range from.Tables {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(table)
	}
}

func (from From) MergeClause(c *Clause) { c.Expression = from }

type Insert struct {
	Table Table
}

func (Insert) Name() string { return "INSERT" }

func (insert Insert) Build(builder Builder) {
	builder.WriteString("INTO ")
	builder.WriteQuoted(insert.Table)
}

func (insert Insert) MergeClause(c *Clause) { c.Expression = insert }

// Values holds one row of vars per entry of Values. Without columns the row
// takes the column defaults.
type Values struct {
	Columns []Column
	Values  [][]interface{}
}

func (Values) Name() string { return "VALUES" }

func (values Values) Build(builder Builder) {
	if len(values.Columns) == 0 {
		builder.WriteString("DEFAULT VALUES")
		return
	}

	builder.WriteByte('(')
	writeColumns(builder, values.Columns)
	builder.WriteString(") VALUES ")
	for idx, row := range values.Values {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteByte('(')
		builder.AddVar(builder, row...)
		builder.WriteByte(')')
	}
}

func (values Values) MergeClause(c *Clause) {
	c.Name = ""
	c.Expression = values
}

type Update struct {
	Table Table
}

func (Update) Name() string { return "UPDATE" }

func (update Update) Build(builder Builder) { builder.WriteQuoted(update.Table) }

func (update Update) MergeClause(c *Clause) { c.Expression = update }

type Assignment struct {
	Column Column
	Value  interface{}
}

// Set assigns values to columns, in order
type Set []Assignment

func (Set) Name() string { return "SET" }

func (set Set) Build(builder Builder) {
	for idx, assignment := range set {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(assignment.Column)
		builder.WriteByte('=')
		builder.AddVar(builder, assignment.Value)
	}
}

func (set Set) MergeClause(c *Clause) {
	if prev, ok := c.Expression.(Set); ok {
		set = append(append(Set{}, prev...), set...)
	}
	c.Expression = set
}

type Delete struct{}

func (Delete) Name() string { return "DELETE" }

func (Delete) Build(builder Builder) { builder.WriteString("DELETE") }

func (d Delete) MergeClause(c *Clause) {
	c.Name = ""
	c.Expression = d
}

// Returning asks the database to send back columns of the written row
type Returning struct {
	Columns []Column
}

func (Returning) Name() string { return "RETURNING" }

func (returning Returning) Build(builder Builder) { writeColumns(builder, returning.Columns) }

func (returning Returning) MergeClause(c *Clause) { c.Expression = returning }

// Where joins its expressions with AND. Merged clauses keep the earlier
// expressions first.
type Where struct {
	Exprs []Expression
}

func (Where) Name() string { return "WHERE" }

func (where Where) Build(builder Builder) {
	for idx, expr := range where.Exprs {
		if idx > 0 {
			builder.WriteString(" AND ")
		}
		expr.Build(builder)
	}
}

func (where Where) MergeClause(c *Clause) {
	if prev, ok := c.Expression.(Where); ok {
		where.Exprs = append(append([]Expression{}, prev.Exprs...), where.Exprs...)
	}
	c.Expression = where
}

type OrderByColumn struct {
	Column Column
	Desc   bool
}

type OrderBy struct {
	Columns []OrderByColumn
}

func (OrderBy) Name() string { return "ORDER BY" }

func (orderBy OrderBy) Build(builder Builder) {
	for idx, column := range orderBy.Columns {
		if idx > 0 {
			builder.WriteByte(',')
		}
		builder.WriteQuoted(column.Column)
		if column.Desc {
			builder.WriteString(" DESC")
		}
	}
}

func (orderBy OrderBy) MergeClause(c *Clause) {
	if prev, ok := c.Expression.(OrderBy); ok {
		orderBy.Columns = append(append([]OrderByColumn{}, prev.Columns...), orderBy.Columns...)
	}
	c.Expression = orderBy
}

// Limit caps the number of rows; a nil or negative Limit writes nothing
type Limit struct {
	Limit *int
}

func (Limit) Name() string { return "LIMIT" }

func (limit Limit) Build(builder Builder) {
	if limit.Limit != nil && *limit.Limit >= 0 {
		builder.WriteString("LIMIT ")
		builder.AddVar(builder, *limit.Limit)
	}
}

func (limit Limit) MergeClause(c *Clause) {
	c.Name = ""
	if prev, ok := c.Expression.(Limit); ok && limit.Limit == nil {
		limit.Limit = prev.Limit
	}
	c.Expression = limit
}
