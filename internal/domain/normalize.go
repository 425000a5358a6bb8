package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for customer fullName normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeSearch prepares free-text search input for matching and cache keys.
func NormalizeSearch(s string) string {
	return strings.ToLower(NormalizeHumanName(s))
}
