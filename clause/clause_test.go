package clause_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/abarorm/abarorm/clause"
)

// testBuilder quotes with double quotes and numbers placeholders like
// PostgreSQL when numbered is set
type testBuilder struct {
	strings.Builder
	Vars     []interface{}
	numbered bool
}

func (b *testBuilder) WriteQuoted(field interface{}) {
	switch v := field.(type) {
	case clause.Table:
		b.WriteString(`"` + v.Name + `"`)
	case clause.Column:
		if v.Raw {
			b.WriteString(v.Name)
			return
		}
		if v.Table != "" {
			b.WriteString(`"` + v.Table + `".`)
		}
		b.WriteString(`"` + v.Name + `"`)
	default:
		b.WriteString(`"` + fmt.Sprint(v) + `"`)
	}
}

func (b *testBuilder) AddVar(w clause.Writer, vars ...interface{}) {
	for idx, v := range vars {
		if idx > 0 {
			w.WriteByte(',')
		}
		switch v := v.(type) {
		case clause.Column, clause.Table:
			b.WriteQuoted(v)
		case clause.Expression:
			v.Build(b)
		default:
			b.Vars = append(b.Vars, v)
			if b.numbered {
				w.WriteString(fmt.Sprintf("$%d", len(b.Vars)))
			} else {
				w.WriteByte('?')
			}
		}
	}
}

func build(numbered bool, clauses ...clause.Interface) (string, []interface{}) {
	b := &testBuilder{numbered: numbered}
	for idx, c := range clauses {
		if idx > 0 {
			b.WriteByte(' ')
		}
		var merged clause.Clause
		merged.Name = c.Name()
		c.MergeClause(&merged)
		merged.Build(b)
	}
	return b.String(), b.Vars
}

func checkBuildClauses(t *testing.T, clauses []clause.Interface, result string, vars []interface{}) {
	t.Helper()
	sql, gotVars := build(false, clauses...)
	if sql != result {
		t.Errorf("SQL expects %v got %v", result, sql)
	}
	if !reflect.DeepEqual(gotVars, vars) {
		t.Errorf("Vars expects %+v got %v", vars, gotVars)
	}
}

func TestClause(t *testing.T) {
	limit := 1
	results := []struct {
		Clauses []clause.Interface
		Result  string
		Vars    []interface{}
	}{
		{
			[]clause.Interface{
				clause.Select{},
				clause.From{Tables: []clause.Table{{Name: "post"}}},
				clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "category"}, Value: int64(1)}}},
			},
			`SELECT * FROM "post" WHERE "category" = ?`,
			[]interface{}{int64(1)},
		},
		{
			[]clause.Interface{
				clause.Select{Columns: []clause.Column{{Name: "id"}}},
				clause.From{Tables: []clause.Table{{Name: "category"}}},
				clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "id"}, Value: 3}}},
				clause.Limit{Limit: &limit},
			},
			`SELECT "id" FROM "category" WHERE "id" = ? LIMIT ?`,
			[]interface{}{3, 1},
		},
		{
			[]clause.Interface{
				clause.Insert{Table: clause.Table{Name: "category"}},
				clause.Values{
					Columns: []clause.Column{{Name: "title"}, {Name: "active"}},
					Values:  [][]interface{}{{"Movies", true}, {"Books", false}},
				},
			},
			`INSERT INTO "category" ("title","active") VALUES (?,?),(?,?)`,
			[]interface{}{"Movies", true, "Books", false},
		},
		{
			[]clause.Interface{
				clause.Insert{Table: clause.Table{Name: "category"}},
				clause.Values{},
			},
			`INSERT INTO "category" DEFAULT VALUES`,
			nil,
		},
		{
			[]clause.Interface{
				clause.Update{Table: clause.Table{Name: "post"}},
				clause.Set{{Column: clause.Column{Name: "title"}, Value: "Godfather"}},
				clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "id"}, Value: 1}}},
			},
			`UPDATE "post" SET "title"=? WHERE "id" = ?`,
			[]interface{}{"Godfather", 1},
		},
		{
			[]clause.Interface{
				clause.Delete{},
				clause.From{Tables: []clause.Table{{Name: "post"}}},
				clause.Where{Exprs: []clause.Expression{clause.Gte{Column: clause.Column{Name: "score"}, Value: 5}}},
			},
			`DELETE FROM "post" WHERE "score" >= ?`,
			[]interface{}{5},
		},
		{
			[]clause.Interface{
				clause.Select{},
				clause.From{Tables: []clause.Table{{Name: "post"}}},
				clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "title"}, Desc: true}, {Column: clause.Column{Name: "id"}}}},
			},
			`SELECT * FROM "post" ORDER BY "title" DESC,"id"`,
			nil,
		},
	}

	for idx, result := range results {
		t.Run(fmt.Sprintf("case #%v", idx), func(t *testing.T) {
			checkBuildClauses(t, result.Clauses, result.Result, result.Vars)
		})
	}
}

func TestExpression(t *testing.T) {
	column := clause.Column{Name: "title"}
	results := []struct {
		Expressions []clause.Expression
		ExpectedSQL string
		Vars        []interface{}
	}{
		{[]clause.Expression{clause.Eq{Column: column, Value: "a"}}, `"title" = ?`, []interface{}{"a"}},
		{[]clause.Expression{clause.Eq{Column: column, Value: nil}}, `"title" IS NULL`, nil},
		{[]clause.Expression{clause.Eq{Column: column, Value: (*string)(nil)}}, `"title" IS NULL`, nil},
		{[]clause.Expression{clause.Neq{Column: column, Value: nil}}, `"title" IS NOT NULL`, nil},
		{[]clause.Expression{clause.Neq{Column: column, Value: "a"}}, `"title" <> ?`, []interface{}{"a"}},
		{[]clause.Expression{clause.Gt{Column: column, Value: 1}}, `"title" > ?`, []interface{}{1}},
		{[]clause.Expression{clause.Lt{Column: column, Value: 1}}, `"title" < ?`, []interface{}{1}},
		{[]clause.Expression{clause.Lte{Column: column, Value: 1}}, `"title" <= ?`, []interface{}{1}},
		{[]clause.Expression{clause.IN{Column: column, Values: []interface{}{"a", "b"}}}, `"title" IN (?,?)`, []interface{}{"a", "b"}},
		{[]clause.Expression{clause.IN{Column: column, Values: []interface{}{"a"}}}, `"title" = ?`, []interface{}{"a"}},
		{[]clause.Expression{clause.IN{Column: column}}, `"title" IN (NULL)`, nil},
		{[]clause.Expression{clause.Gte{Column: column, Value: 2}}, `"title" >= ?`, []interface{}{2}},
		{[]clause.Expression{clause.IN{Column: column, Values: []interface{}{nil}}}, `"title" IS NULL`, nil},
		{[]clause.Expression{clause.Expr{SQL: "? LIKE ? ESCAPE '\\'", Vars: []interface{}{column, clause.LikePattern("5%_off")}}}, `"title" LIKE ? ESCAPE '\'`, []interface{}{`%5\%\_off%`}},
		{[]clause.Expression{clause.Expr{SQL: "INSTR(?, ?) > 0", Vars: []interface{}{column, "ab"}}}, `INSTR("title", ?) > 0`, []interface{}{"ab"}},
		{[]clause.Expression{clause.Expr{SQL: "LOWER(?) LIKE LOWER(?)", Vars: []interface{}{column, "%ab%"}}}, `LOWER("title") LIKE LOWER(?)`, []interface{}{"%ab%"}},
	}

	for idx, result := range results {
		t.Run(fmt.Sprintf("case #%v", idx), func(t *testing.T) {
			sql, vars := build(false, clause.Where{Exprs: result.Expressions})
			sql = strings.TrimPrefix(sql, "WHERE ")
			if sql != result.ExpectedSQL {
				t.Errorf("SQL expects %v got %v", result.ExpectedSQL, sql)
			}
			if !reflect.DeepEqual(vars, result.Vars) {
				t.Errorf("Vars expects %+v got %v", result.Vars, vars)
			}
		})
	}
}

func TestNumberedPlaceholders(t *testing.T) {
	sql, vars := build(true,
		clause.Update{Table: clause.Table{Name: "post"}},
		clause.Set{{Column: clause.Column{Name: "title"}, Value: "b"}, {Column: clause.Column{Name: "score"}, Value: 2}},
		clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Name: "id"}, Value: 9},
			clause.IN{Column: clause.Column{Name: "category"}, Values: []interface{}{1, 2}},
		}},
	)
	expected := `UPDATE "post" SET "title"=$1,"score"=$2 WHERE "id" = $3 AND "category" IN ($4,$5)`
	if sql != expected {
		t.Errorf("SQL expects %v got %v", expected, sql)
	}
	if len(vars) != 5 {
		t.Errorf("expects 5 vars, got %v", vars)
	}
}

func TestMergeClauses(t *testing.T) {
	var c clause.Clause
	c.Name = "WHERE"
	clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "a"}, Value: 1}}}.MergeClause(&c)
	clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "b"}, Value: 2}}}.MergeClause(&c)

	b := &testBuilder{}
	c.Build(b)
	if b.String() != `WHERE "a" = ? AND "b" = ?` {
		t.Errorf("unexpected merged where %v", b.String())
	}

	var l clause.Clause
	one, ten := 1, 10
	clause.Limit{Limit: &ten}.MergeClause(&l)
	clause.Limit{Limit: &one}.MergeClause(&l)
	clause.Limit{}.MergeClause(&l)
	lb := &testBuilder{}
	l.Build(lb)
	if lb.String() != "LIMIT ?" || !reflect.DeepEqual(lb.Vars, []interface{}{1}) {
		t.Errorf("unexpected merged limit %v %v", lb.String(), lb.Vars)
	}

	var o clause.Clause
	o.Name = "ORDER BY"
	clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "title"}}}}.MergeClause(&o)
	clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "id"}, Desc: true}}}.MergeClause(&o)
	ob := &testBuilder{}
	o.Build(ob)
	if ob.String() != `ORDER BY "title","id" DESC` {
		t.Errorf("unexpected merged order by %v", ob.String())
	}
}
