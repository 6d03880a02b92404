package schema

import (
	"strings"
	"sync"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Namer namer interface
type Namer interface {
	TableName(model string) string
	ColumnName(table, column string) string
}

// NamingStrategy tables, columns naming strategy
type NamingStrategy struct {
	TablePrefix string
	Pluralize   bool
}

// TableName derives the table of a model: the lower-cased model name,
// optionally prefixed and pluralized
func (ns NamingStrategy) TableName(model string) string {
	table := strings.ToLower(model)
	if ns.Pluralize {
		table = inflection.Plural(table)
	}
	return ns.TablePrefix + table
}

// ColumnName convert string to column name
func (ns NamingStrategy) ColumnName(table, column string) string {
	return toDBName(column)
}

var columnNames sync.Map

// ToDBName converts a Go identifier to snake case. A run of capitals is one
// word, so CategoryID becomes category_id and HTTPServer http_server.
func ToDBName(name string) string {
	return toDBName(name)
}

func toDBName(name string) string {
	if name == "" {
		return ""
	}
	if v, ok := columnNames.Load(name); ok {
		return v.(string)
	}

	runes := []rune(name)
	var buf strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && runes[i-1] != '_' {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				buf.WriteByte('_')
			}
		}
		buf.WriteRune(unicode.ToLower(r))
	}

	columnName := buf.String()
	columnNames.Store(name, columnName)
	return columnName
}
