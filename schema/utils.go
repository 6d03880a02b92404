package schema

import (
	"reflect"
	"strings"
)

// ParseTagSetting parses an `abar` tag into upper-cased keys. Flags without a
// value map to their own key; `\;` escapes the separator inside values.
func ParseTagSetting(str string, sep string) map[string]string {
	settings := map[string]string{}
	for _, entry := range splitEscaped(str, sep) {
		key, value, hasValue := strings.Cut(entry, ":")
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if !hasValue {
			value = key
		}
		settings[key] = value
	}
	return settings
}

// splitEscaped splits str around sep, except where sep follows a backslash
func splitEscaped(str, sep string) []string {
	var (
		entries []string
		current strings.Builder
	)
	for str != "" {
		idx := strings.Index(str, sep)
		if idx < 0 {
			current.WriteString(str)
			break
		}
		if idx > 0 && str[idx-1] == '\\' {
			current.WriteString(str[:idx-1])
			current.WriteString(sep)
		} else {
			current.WriteString(str[:idx])
			entries = append(entries, current.String())
			current.Reset()
		}
		str = str[idx+len(sep):]
	}
	return append(entries, current.String())
}

// flag reports whether a boolean setting is switched on; `null` and
// `null:true` are on, `null:false` is off
func flag(settings map[string]string, key string) (value, ok bool) {
	v, ok := settings[key]
	if !ok {
		return false, false
	}
	return v == key || !strings.EqualFold(strings.TrimSpace(v), "false"), true
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
