// Package normalize cleans user-entered text before it is stored. Content is
// kept as typed: only surrounding whitespace and NUL bytes are removed and
// Unicode is composed to NFC.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Text returns s without NUL bytes or surrounding whitespace, in NFC form.
func Text(s string) string {
	s = dropNUL(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(norm.NFC.String(s))
}

// Tags cleans each tag with Text and drops empty ones. Order and spelling
// are preserved. The result is never nil.
func Tags(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = Text(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Fold returns a caseless form of s for comparisons.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// dropNUL removes null bytes, which some clipboard sources leave behind.
func dropNUL(s string) string {
	if !strings.ContainsRune(s, 0) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
