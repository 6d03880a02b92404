package clause

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern matches value anywhere in a LIKE operand, with the wildcards
// of value escaped by a backslash
func LikePattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}
