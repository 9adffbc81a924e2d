// Package listkit provides the pure list-shaping utilities shared by every
// domain list view: text/category filtering, stable sorting, month-range
// filtering and batch selection. All functions are polymorphic over the item
// type via accessor functions and never mutate their input.
package listkit

import "strings"

// Filter returns the items whose name contains query (case-insensitive
// substring) and whose category equals category when one is given. An empty
// query or empty category is a pass-through for that dimension. Relative
// order is preserved. A nil accessor yields no match for its dimension.
func Filter[T any](items []T, query, category string, nameOf, categoryOf func(T) string) []T {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if query != "" {
			if nameOf == nil || !strings.Contains(strings.ToLower(nameOf(it)), query) {
				continue
			}
		}
		if category != "" {
			if categoryOf == nil || categoryOf(it) != category {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}
