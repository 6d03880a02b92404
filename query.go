package abarorm

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/abarorm/abarorm/clause"
	"github.com/abarorm/abarorm/schema"
	"github.com/abarorm/abarorm/utils"
)

// Where filters rows: keys are field names with an optional lookup suffix
// (title__icontains, score__gte), combined with AND
type Where map[string]interface{}

// Values maps field names to values for writes
type Values map[string]interface{}

// Record is a row of a model without a static Go type
type Record map[string]interface{}

// Lookup suffixes
const (
	lookupExact      = ""
	lookupGte        = "gte"
	lookupLte        = "lte"
	lookupGt         = "gt"
	lookupLt         = "lt"
	lookupNe         = "ne"
	lookupContains   = "contains"
	lookupIContains  = "icontains"
	lookupIn         = "in"
	lookupSeparator  = "__"
	descendingPrefix = "-"
)

var lookups = []string{lookupGte, lookupLte, lookupGt, lookupLt, lookupNe, lookupContains, lookupIContains, lookupIn}

// splitLookup separates a known lookup suffix from a filter key
func splitLookup(key string) (name, lookup string) {
	if idx := strings.LastIndex(key, lookupSeparator); idx > 0 {
		if suffix := key[idx+len(lookupSeparator):]; utils.Contains(lookups, suffix) {
			return key[:idx], suffix
		}
	}
	return key, lookupExact
}

var identityField = func() *schema.Field {
	field, err := schema.NewField(schema.PrimaryKey, schema.Integer)
	if err != nil {
		panic(err)
	}
	field.DBName = schema.PrimaryKey
	return field
}()

// lookUpField finds a field, or the identity, by column or Go name
func (t *table) lookUpField(name string) (*schema.Field, error) {
	if name == schema.PrimaryKey || name == "ID" {
		return identityField, nil
	}
	if field := t.schema.LookUpField(name); field != nil {
		return field, nil
	}
	return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidField, t.schema.Name, name)
}

// conditions translates a filter into WHERE expressions. Keys are processed
// in sorted order so the generated SQL is stable.
func (t *table) conditions(where Where) ([]clause.Expression, error) {
	exprs := make([]clause.Expression, 0, len(where))
	for _, key := range utils.SortedKeys(where) {
		name, lookup := splitLookup(key)
		field, err := t.lookUpField(name)
		if err != nil {
			return nil, err
		}

		column := clause.Column{Name: field.DBName}
		value := where[key]

		switch lookup {
		case lookupContains, lookupIContains:
			exprs = append(exprs, t.db.Dialector.ContainsExpr(column, utils.ToString(value), lookup == lookupIContains))
			continue
		case lookupIn:
			values, err := t.filterValues(field, value)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, clause.IN{Column: column, Values: values})
			continue
		}

		v, err := t.filterValue(field, value)
		if err != nil {
			return nil, err
		}

		switch lookup {
		case lookupExact:
			exprs = append(exprs, clause.Eq{Column: column, Value: v})
		case lookupNe:
			exprs = append(exprs, clause.Neq{Column: column, Value: v})
		case lookupGt, lookupGte, lookupLt, lookupLte:
			if v == nil {
				return nil, fmt.Errorf("%w: %s cannot be compared with null", ErrInvalidField, key)
			}
			switch lookup {
			case lookupGt:
				exprs = append(exprs, clause.Gt{Column: column, Value: v})
			case lookupGte:
				exprs = append(exprs, clause.Gte{Column: column, Value: v})
			case lookupLt:
				exprs = append(exprs, clause.Lt{Column: column, Value: v})
			case lookupLte:
				exprs = append(exprs, clause.Lte{Column: column, Value: v})
			}
		}
	}
	return exprs, nil
}

// filterValue converts a comparison value the way writes do, without the
// length or format checks, and maps it for the driver
func (t *table) filterValue(field *schema.Field, value interface{}) (interface{}, error) {
	value, err := t.resolveRelation(field, value)
	if err != nil || value == nil {
		return nil, err
	}

	v, err := field.Convert(value)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return t.db.Dialector.ConvertValue(field, v), nil
}

func (t *table) filterValues(field *schema.Field, value interface{}) ([]interface{}, error) {
	rv := reflect.ValueOf(value)
	if value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: %s__in expects a slice, got %T", ErrInvalidField, field.DBName, value)
	}

	values := make([]interface{}, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := t.filterValue(field, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// QueryOption tunes a read
type QueryOption func(*queryOptions)

type queryOptions struct {
	orderBy []string
	limit   *int
}

// OrderBy sorts by field, descending when prefixed with "-"
func OrderBy(fields ...string) QueryOption {
	return func(o *queryOptions) {
		o.orderBy = append(o.orderBy, fields...)
	}
}

// Limit caps the number of rows read
func Limit(n int) QueryOption {
	return func(o *queryOptions) {
		o.limit = &n
	}
}

func (t *table) orderBy(fields []string) (clause.OrderBy, error) {
	var orderBy clause.OrderBy
	for _, name := range fields {
		desc := strings.HasPrefix(name, descendingPrefix)
		field, err := t.lookUpField(strings.TrimPrefix(name, descendingPrefix))
		if err != nil {
			return orderBy, err
		}
		orderBy.Columns = append(orderBy.Columns, clause.OrderByColumn{
			Column: clause.Column{Name: field.DBName},
			Desc:   desc,
		})
	}
	return orderBy, nil
}
