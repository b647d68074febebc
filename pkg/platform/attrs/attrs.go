// Package attrs reads values back out of slog-style key/value lists so audit
// events can be built from the same arguments passed to the logger.
package attrs

import (
	"fmt"
	"log/slog"
)

// ExtractString returns the value logged under key, or "". Pairs and
// slog.Attr entries are both understood. Stringers are rendered.
func ExtractString(list []any, key string) string {
	for i := 0; i < len(list); i++ {
		if a, ok := list[i].(slog.Attr); ok {
			if a.Key == key {
				return a.Value.String()
			}
			continue
		}
		k, ok := list[i].(string)
		if !ok || i+1 >= len(list) {
			continue
		}
		i++
		if k != key {
			continue
		}
		switch v := list[i].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
		return ""
	}
	return ""
}

// ExtractFirst tries keys in order and returns the first non-empty value.
func ExtractFirst(list []any, keys ...string) string {
	for _, key := range keys {
		if v := ExtractString(list, key); v != "" {
			return v
		}
	}
	return ""
}
