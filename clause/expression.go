package clause

import (
	"reflect"
)

// Expression writes a fragment of SQL
type Expression interface {
	Build(builder Builder)
}

// Expr is raw SQL in which each ? takes the next of Vars. Column and Table
// vars are quoted, others are bound.
type Expr struct {
	SQL  string
	Vars []interface{}
}

func (expr Expr) Build(builder Builder) {
	var idx int
	for _, v := range []byte(expr.SQL) {
		if v == '?' && idx < len(expr.Vars) {
			builder.AddVar(builder, expr.Vars[idx])
			idx++
		} else {
			builder.WriteByte(v)
		}
	}
}

// IN matches any of Values. An empty set matches nothing and a single value
// is compared with =.
type IN struct {
	Column interface{}
	Values []interface{}
}

func (in IN) Build(builder Builder) {
	switch len(in.Values) {
	case 0:
		builder.WriteQuoted(in.Column)
		builder.WriteString(" IN (NULL)")
	case 1:
		Eq{Column: in.Column, Value: in.Values[0]}.Build(builder)
	default:
		builder.WriteQuoted(in.Column)
		builder.WriteString(" IN (")
		builder.AddVar(builder, in.Values...)
		builder.WriteByte(')')
	}
}

// Eq compares with =, or IS NULL for a nil value
type Eq struct {
	Column interface{}
	Value  interface{}
}

func (eq Eq) Build(builder Builder) {
	if isNil(eq.Value) {
		builder.WriteQuoted(eq.Column)
		builder.WriteString(" IS NULL")
		return
	}
	compare(builder, eq.Column, "=", eq.Value)
}

// Neq compares with <>, or IS NOT NULL for a nil value
type Neq Eq

func (neq Neq) Build(builder Builder) {
	if isNil(neq.Value) {
		builder.WriteQuoted(neq.Column)
		builder.WriteString(" IS NOT NULL")
		return
	}
	compare(builder, neq.Column, "<>", neq.Value)
}

type Gt Eq

func (gt Gt) Build(builder Builder) { compare(builder, gt.Column, ">", gt.Value) }

type Gte Eq

func (gte Gte) Build(builder Builder) { compare(builder, gte.Column, ">=", gte.Value) }

type Lt Eq

func (lt Lt) Build(builder Builder) { compare(builder, lt.Column, "<", lt.Value) }

type Lte Eq

func (lte Lte) Build(builder Builder) { compare(builder, lte.Column, "<=", lte.Value) }

func compare(builder Builder, column interface{}, op string, value interface{}) {
	builder.WriteQuoted(column)
	builder.WriteByte(' ')
	builder.WriteString(op)
	builder.WriteByte(' ')
	builder.AddVar(builder, value)
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
