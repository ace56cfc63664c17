package tddf

import (
	"strings"
	"unicode/utf8"
)

// Line is one physical line of a file. Number is 1-based.
type Line struct {
	Number int
	Text   string
	Length int
}

// SplitLines splits raw content into physical lines. A single trailing newline
// and fully empty trailing lines are dropped; interior blank lines are kept so
// line numbers stay stable. A trailing carriage return is stripped from every
// line.
func SplitLines(data []byte) []Line {
	if len(data) == 0 {
		return nil
	}

	parts := strings.Split(string(data), "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}

	end := len(parts)
	for end > 0 && parts[end-1] == "" {
		end--
	}

	lines := make([]Line, 0, end)
	for i := range end {
		lines = append(lines, Line{
			Number: i + 1,
			Text:   parts[i],
			Length: len(parts[i]),
		})
	}

	return lines
}

// Sanitize makes a line storable as database text without moving any field:
// every NUL byte becomes a space and every invalid UTF-8 byte becomes '?'.
func Sanitize(line string) string {
	if utf8.ValidString(line) && !strings.ContainsRune(line, 0) {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))

	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])

		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteByte('?')
		case r == 0:
			b.WriteByte(' ')
		default:
			b.WriteString(line[i : i+size])
		}

		i += size
	}

	return b.String()
}
