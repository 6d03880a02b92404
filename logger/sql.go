package logger

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	tmFmtWithMS = "2006-01-02 15:04:05.999"
	nullStr     = "NULL"
)

func isPrintable(s string) bool {
	for _, r := range s {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// ExplainSQL renders sql with its bound vars inlined, for logging only.
// numericPlaceholder matches positional placeholders such as $1; when it is
// nil, every ? is treated as the next var.
func ExplainSQL(sql string, numericPlaceholder *regexp.Regexp, escaper string, vars ...interface{}) string {
	formatted := make([]string, len(vars))

	for idx, v := range vars {
		if valuer, ok := v.(driver.Valuer); ok {
			v, _ = valuer.Value()
		}

		switch v := v.(type) {
		case bool:
			formatted[idx] = strconv.FormatBool(v)
		case time.Time:
			if v.IsZero() {
				formatted[idx] = escaper + "0000-00-00 00:00:00" + escaper
			} else {
				formatted[idx] = escaper + v.Format(tmFmtWithMS) + escaper
			}
		case *time.Time:
			if v == nil {
				formatted[idx] = nullStr
			} else {
				formatted[idx] = escaper + v.Format(tmFmtWithMS) + escaper
			}
		case uuid.UUID:
			formatted[idx] = escaper + v.String() + escaper
		case []byte:
			if s := string(v); isPrintable(s) {
				formatted[idx] = escaper + strings.ReplaceAll(s, escaper, escaper+escaper) + escaper
			} else {
				formatted[idx] = escaper + "<binary>" + escaper
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			formatted[idx] = fmt.Sprintf("%d", v)
		case float32:
			formatted[idx] = strconv.FormatFloat(float64(v), 'f', -1, 32)
		case float64:
			formatted[idx] = strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			formatted[idx] = escaper + strings.ReplaceAll(v, escaper, escaper+escaper) + escaper
		default:
			if v == nil {
				formatted[idx] = nullStr
			} else {
				formatted[idx] = escaper + strings.ReplaceAll(fmt.Sprint(v), escaper, escaper+escaper) + escaper
			}
		}
	}

	if numericPlaceholder == nil {
		var idx int
		var newSQL strings.Builder

		for _, v := range []byte(sql) {
			if v == '?' && len(formatted) > idx {
				newSQL.WriteString(formatted[idx])
				idx++
				continue
			}
			newSQL.WriteByte(v)
		}

		return newSQL.String()
	}

	return numericPlaceholder.ReplaceAllStringFunc(sql, func(v string) string {
		// positional vars start from 1 ($1, $2)
		n, err := strconv.Atoi(strings.TrimLeft(v, "$@:"))
		if err != nil || n < 1 || n > len(formatted) {
			return v
		}
		return formatted[n-1]
	})
}
