// Package sliceutil provides generic slice helpers.
package sliceutil

// UniqueBy keeps the first item of each key, preserving order.
// Items whose key is the zero value are dropped.
func UniqueBy[T any, K comparable](items []T, key func(T) K) []T {
	var zero K
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if k == zero {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
