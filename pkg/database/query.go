package database

import "strings"

// OrderClause builds an ORDER BY clause from a client-supplied
// ordering key resolved against a column allowlist. A leading '-'
// selects descending order. Unknown keys fall back to the default
// clause; callers validate keys before they reach the query.
func OrderClause(ordering string, columns map[string]string, fallback string) string {
	column, ok := columns[strings.TrimPrefix(ordering, "-")]
	if !ok {
		return " ORDER BY " + fallback
	}

	direction := " ASC"
	if strings.HasPrefix(ordering, "-") {
		direction = " DESC"
	}

	return " ORDER BY " + column + direction
}

// ValidOrdering reports whether an ordering key resolves against the
// given allowlist. The empty key is valid and selects the default.
func ValidOrdering(ordering string, columns map[string]string) bool {
	if ordering == "" {
		return true
	}
	_, ok := columns[strings.TrimPrefix(ordering, "-")]
	return ok
}
