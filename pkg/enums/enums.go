// Package enums holds the string-backed domain enumerations persisted in
// the database and exchanged over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parse matches value case-insensitively against the known members of T.
func parse[T ~string](kind, value string, members []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(members, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
