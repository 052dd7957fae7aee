// Package textutil holds small string helpers shared by the content
// pipeline.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns at most max runes of s. It never splits a UTF-8
// sequence.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	i := 0
	for n := range s {
		if i == max {
			return s[:n]
		}
		i++
	}
	return s
}

// Ellipsize is Truncate with a trailing "..." when s was cut.
func Ellipsize(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return Truncate(s, max)
	}
	return Truncate(s, max-3) + "..."
}

// CollapseSpace trims s and folds every run of whitespace into a single
// space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
