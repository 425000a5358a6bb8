// Package pagination holds the offset/limit slicing shared by the in-memory record stores.
package pagination

import (
	"strings"

	"github.com/Overland-East-Bay/fleet-console-api/internal/domain"
)

// Slice returns the part of items addressed by w. Out-of-range windows yield an empty slice.
func Slice[T any](items []T, w domain.Window) []T {
	if w.Offset >= len(items) || w.Limit <= 0 {
		return []T{}
	}
	end := w.Offset + w.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-w.Offset)
	copy(out, items[w.Offset:end])
	return out
}

// Contains reports whether haystack contains the already-normalized needle, case-insensitively.
func Contains(needle string, haystack ...string) bool {
	if needle == "" {
		return true
	}
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}
