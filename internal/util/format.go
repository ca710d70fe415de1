package util

import "strings"

// Truncate shortens s to at most max runes, appending an ellipsis marker when
// anything was cut. Max values below 4 fall back to a plain hard cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max < 4 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// TrimStack reduces a raw stack trace (as produced by runtime/debug.Stack) to
// its first maxLines lines. The goroutine header line counts toward the limit.
func TrimStack(stack []byte, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(strings.TrimRight(string(stack), "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n")
}
