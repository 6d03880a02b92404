package abarorm

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/abarorm/abarorm/schema"
	"github.com/abarorm/abarorm/utils"
)

// QuerySet holds rows already fetched. Its methods narrow, order and page
// them in memory without querying again.
type QuerySet[M any] struct {
	Results []M
	// TotalCount is the number of results before pagination
	TotalCount int
	Page       int
	PageSize   int

	table *table
	codec codec[M]
}

func newQuerySet[M any](t *table, c codec[M], results []M) *QuerySet[M] {
	return &QuerySet[M]{
		Results:    results,
		TotalCount: len(results),
		Page:       1,
		PageSize:   len(results),
		table:      t,
		codec:      c,
	}
}

// Count returns the number of current results
func (qs *QuerySet[M]) Count() int {
	return len(qs.Results)
}

// First returns the first result, or the zero value when empty
func (qs *QuerySet[M]) First() M {
	var zero M
	if len(qs.Results) == 0 {
		return zero
	}
	return qs.Results[0]
}

// Last returns the last result, or the zero value when empty
func (qs *QuerySet[M]) Last() M {
	var zero M
	if len(qs.Results) == 0 {
		return zero
	}
	return qs.Results[len(qs.Results)-1]
}

// Exists reports whether there is any result
func (qs *QuerySet[M]) Exists() bool {
	return len(qs.Results) > 0
}

// ToDict returns the results as maps keyed by column name, identity included
func (qs *QuerySet[M]) ToDict() []map[string]interface{} {
	dicts := make([]map[string]interface{}, 0, len(qs.Results))
	for _, result := range qs.Results {
		dicts = append(dicts, qs.codec.dict(qs.table.schema, result))
	}
	return dicts
}

func (qs *QuerySet[M]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<QuerySet %s count=%d", qs.table.schema.Name, len(qs.Results))
	for idx, dict := range qs.ToDict() {
		if idx == 3 {
			sb.WriteString(" ...")
			break
		}
		sb.WriteByte(' ')
		sb.WriteString(formatDict(dict))
	}
	sb.WriteByte('>')
	return sb.String()
}

func formatDict(dict map[string]interface{}) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for idx, key := range utils.SortedKeys(dict) {
		if idx > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", key, dict[key])
	}
	sb.WriteByte('}')
	return sb.String()
}

func (qs *QuerySet[M]) narrow(results []M) *QuerySet[M] {
	return newQuerySet(qs.table, qs.codec, results)
}

// Filter keeps the results matching where, with the same lookups as
// Model.Filter
func (qs *QuerySet[M]) Filter(where Where) (*QuerySet[M], error) {
	type condition struct {
		field  *schema.Field
		lookup string
		value  interface{}
	}

	conditions := make([]condition, 0, len(where))
	for _, key := range utils.SortedKeys(where) {
		name, lookup := splitLookup(key)
		field, err := qs.table.lookUpField(name)
		if err != nil {
			return nil, err
		}

		value := where[key]
		switch lookup {
		case lookupContains, lookupIContains:
			value = utils.ToString(value)
		case lookupIn:
			rv := reflect.ValueOf(value)
			if value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
				return nil, fmt.Errorf("%w: %s expects a slice, got %T", ErrInvalidField, key, value)
			}
			values := make([]interface{}, 0, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				v, err := qs.canonical(field, rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				values = append(values, v)
			}
			value = values
		default:
			if value, err = qs.canonical(field, value); err != nil {
				return nil, err
			}
		}
		conditions = append(conditions, condition{field: field, lookup: lookup, value: value})
	}

	var results []M
	for _, result := range qs.Results {
		dict := qs.codec.dict(qs.table.schema, result)
		matched := true
		for _, c := range conditions {
			if !match(dict[c.field.DBName], c.lookup, c.value) {
				matched = false
				break
			}
		}
		if matched {
			results = append(results, result)
		}
	}
	return qs.narrow(results), nil
}

func (qs *QuerySet[M]) canonical(field *schema.Field, value interface{}) (interface{}, error) {
	value, err := qs.table.resolveRelation(field, value)
	if err != nil || value == nil {
		return nil, err
	}
	return field.Convert(value)
}

func match(actual interface{}, lookup string, want interface{}) bool {
	switch lookup {
	case lookupExact:
		return equal(actual, want)
	case lookupNe:
		return !equal(actual, want)
	case lookupContains:
		return actual != nil && strings.Contains(utils.ToString(actual), want.(string))
	case lookupIContains:
		return actual != nil && strings.Contains(fold(utils.ToString(actual)), fold(want.(string)))
	case lookupIn:
		for _, v := range want.([]interface{}) {
			if equal(actual, v) {
				return true
			}
		}
		return false
	}

	c, ok := compare(actual, want)
	if !ok {
		return false
	}
	switch lookup {
	case lookupGt:
		return c > 0
	case lookupGte:
		return c >= 0
	case lookupLt:
		return c < 0
	case lookupLte:
		return c <= 0
	}
	return false
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two canonical values of the same kind
func compare(a, b interface{}) (int, bool) {
	switch va := a.(type) {
	case int64:
		switch vb := b.(type) {
		case int64:
			return compareOrdered(va, vb), true
		case float64:
			return compareOrdered(float64(va), vb), true
		}
	case float64:
		switch vb := b.(type) {
		case float64:
			return compareOrdered(va, vb), true
		case int64:
			return compareOrdered(va, float64(vb)), true
		}
	case string:
		if vb, ok := b.(string); ok {
			return strings.Compare(va, vb), true
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case va == vb:
				return 0, true
			case vb:
				return -1, true
			}
			return 1, true
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb), true
		}
	}
	return 0, false
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Contains keeps the results whose field contains value: case-insensitive
// substrings for text, digits for numbers, YYYY-MM-DD for times, equality
// for the rest
func (qs *QuerySet[M]) Contains(name string, value interface{}) (*QuerySet[M], error) {
	field, err := qs.table.lookUpField(name)
	if err != nil {
		return nil, err
	}

	var results []M
	for _, result := range qs.Results {
		actual := qs.codec.dict(qs.table.schema, result)[field.DBName]
		if contains(field, actual, value) {
			results = append(results, result)
		}
	}
	return qs.narrow(results), nil
}

const dateLayout = "2006-01-02"

func contains(field *schema.Field, actual, value interface{}) bool {
	switch v := actual.(type) {
	case nil:
		return value == nil
	case string:
		return strings.Contains(fold(v), fold(utils.ToString(value)))
	case int64, float64:
		return strings.Contains(utils.ToString(v), utils.ToString(value))
	case time.Time:
		if t, ok := value.(time.Time); ok {
			return strings.Contains(v.Format(dateLayout), t.Format(dateLayout))
		}
		return strings.Contains(v.Format(dateLayout), utils.ToString(value))
	}

	if want, err := field.Convert(value); err == nil {
		return equal(actual, want)
	}
	return reflect.DeepEqual(actual, value)
}

// OrderBy sorts the results by a field, descending when prefixed with "-".
// Equal elements keep their order; nulls sort first.
func (qs *QuerySet[M]) OrderBy(name string) (*QuerySet[M], error) {
	desc := strings.HasPrefix(name, descendingPrefix)
	field, err := qs.table.lookUpField(strings.TrimPrefix(name, descendingPrefix))
	if err != nil {
		return nil, err
	}

	keys := make([]interface{}, len(qs.Results))
	for idx, result := range qs.Results {
		keys[idx] = qs.codec.dict(qs.table.schema, result)[field.DBName]
	}

	indexes := make([]int, len(qs.Results))
	for idx := range indexes {
		indexes[idx] = idx
	}
	sort.SliceStable(indexes, func(i, j int) bool {
		a, b := keys[indexes[i]], keys[indexes[j]]
		if desc {
			a, b = b, a
		}
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		c, _ := compare(a, b)
		return c < 0
	})

	results := make([]M, len(indexes))
	for i, idx := range indexes {
		results[i] = qs.Results[idx]
	}
	return qs.narrow(results), nil
}

// Paginate keeps one page of the results. Pages start at 1.
func (qs *QuerySet[M]) Paginate(page, pageSize int) (*QuerySet[M], error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page %d, page size %d", ErrInvalidPagination, page, pageSize)
	}

	offset := (page - 1) * pageSize
	var results []M
	if offset < len(qs.Results) {
		end := offset + pageSize
		if end > len(qs.Results) {
			end = len(qs.Results)
		}
		results = qs.Results[offset:end]
	}

	return &QuerySet[M]{
		Results:    results,
		TotalCount: len(qs.Results),
		Page:       page,
		PageSize:   pageSize,
		table:      qs.table,
		codec:      qs.codec,
	}, nil
}
