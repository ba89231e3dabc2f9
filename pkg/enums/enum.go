// Package enums holds the closed string sets persisted in the database and
// accepted on the wire.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func member[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

// lookup matches raw, trimmed and lower-cased, against set.
func lookup[T ~string](set []T, raw, what string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if member(set, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", what, raw)
}
