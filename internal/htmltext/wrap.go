package htmltext

import (
	"strings"
	"unicode/utf8"
)

// wrapText re-flows lines longer than width. Quoted lines (">") and table
// rows ("|") are never wrapped, and a line's leading indentation is carried
// onto its continuation lines as a hanging prefix. Widths are measured in
// runes, not bytes.
func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" ||
			strings.HasPrefix(line, ">") ||
			strings.HasPrefix(line, "|") ||
			utf8.RuneCountInString(line) <= width {
			out = append(out, line)
			continue
		}
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{line}
	}

	var wrapped []string
	cur := indent + words[0]
	for _, word := range words[1:] {
		// A single word longer than the width is left unbroken.
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(word) > width {
			wrapped = append(wrapped, cur)
			cur = indent + word
			continue
		}
		cur += " " + word
	}
	return append(wrapped, cur)
}
