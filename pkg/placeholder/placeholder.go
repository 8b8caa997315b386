// Package placeholder renders subject/body templates that reference contact
// columns with {fieldName} tokens.
//
// Substitution happens in a single left-to-right pass: replaced values are never
// re-scanned, so a value containing "{name}" is inserted as-is. Tokens for
// fields missing from the row stay in the output verbatim. No escaping is applied.
package placeholder

import (
	"slices"
	"sort"
	"strings"
)

// Render replaces every {key} in template with row[key] for each key present in row.
func Render(template string, row map[string]string) string {
	if len(row) == 0 || !strings.Contains(template, "{") {
		return template
	}

	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	// Longest token first so overlapping candidates resolve the same way every call.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", row[k])
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

// Fields lists distinct placeholder names in order of first appearance.
func Fields(template string) []string {
	var fields []string
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return fields
		}
		rest = rest[open+1:]

		end := strings.IndexAny(rest, "{}")
		if end < 0 {
			return fields
		}
		if rest[end] == '{' {
			rest = rest[end:]
			continue
		}

		if name := rest[:end]; name != "" && !slices.Contains(fields, name) {
			fields = append(fields, name)
		}
		rest = rest[end+1:]
	}
}
