package utils

import "strings"

// Truncate returns the first limit runes of s, appending an ellipsis when s was longer.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	return Truncate(strings.TrimSpace(s), limit)
}
