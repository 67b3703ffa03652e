package utils

import "strings"

// DerivePlainText strips markup from rich HTML note content and returns the
// plain-text projection used by the search index. The pass suppresses every
// character between '<' and '>', normalizes non-breaking spaces and then
// collapses runs of whitespace. It is pure and idempotent: applying it to
// its own output returns the same string, and markup-only input yields "".
func DerivePlainText(content string) string {
	var b strings.Builder
	b.Grow(len(content))

	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>':
			inTag = false
		case inTag:
			// swallowed
		default:
			b.WriteRune(r)
		}
	}

	text := b.String()
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, " ", " ")

	return strings.Join(strings.Fields(text), " ")
}
