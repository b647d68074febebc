// Package strings holds slice helpers for list-valued settings.
package strings

import (
	"strings"
)

// SplitList splits a comma-separated value and dedupes the parts.
func SplitList(value string) []string {
	return Dedupe(strings.Split(value, ","))
}

// Dedupe trims each value and drops blanks and repeats, keeping first-seen
// order. A nil input stays nil.
func Dedupe(values []string) []string {
	return dedupe(values, func(s string) string { return s })
}

// DedupeFold is Dedupe with lower-casing, for host and domain names.
func DedupeFold(values []string) []string {
	return dedupe(values, strings.ToLower)
}

func dedupe(values []string, normalize func(string) string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = normalize(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
