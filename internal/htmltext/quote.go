package htmltext

import (
	"regexp"
	"strings"
)

// separator is the canonical quote-boundary marker line.
const separator = "---"

// quoteNotice replaces stripped quoted content in HideQuoted output.
const quoteNotice = "[Prior quoted messages removed]"

// quotePasses are applied in order; each marks the line where its match
// starts. The passes overlap on purpose: mail clients emit header blocks in
// too many shapes for one grammar, so recall is bought with redundant
// patterns and the duplicates are collapsed afterwards. Labels are matched
// case-sensitively and English-only.
var quotePasses = []*regexp.Regexp{
	// Canonical header block: From / Sent-or-Date / To / optional Cc / Subject.
	regexp.MustCompile(`(?m)^From:[^\n]*\n(?:Sent|Date):[^\n]*\nTo:[^\n]*\n(?:Cc:[^\n]*\n)?Subject:[^\n]*`),
	// Same shape but requiring an address in the From and To lines.
	regexp.MustCompile(`(?m)^From:[^\n]*@[^\n]*\n(?:Sent|Date):[^\n]*\nTo:[^\n]*@[^\n]*\n(?:Cc:[^\n]*\n)?Subject:[^\n]*`),
	// Outlook banner: a run of underscores, "Original Message", then From.
	regexp.MustCompile(`(?s)_{5,}.*?Original Message.*?\nFrom:[^\n]*`),
	// Gmail attribution line.
	regexp.MustCompile(`(?m)^On [^\n]+ wrote:[ \t]*$`),
	// Loose: a From line with any other header line somewhere below it.
	regexp.MustCompile(`(?ms)^From:[^\n]*\n.*?^(?:To|Sent|Date|Subject):[^\n]*`),
	// Bare From line.
	regexp.MustCompile(`(?m)^From:[^\n]*`),
	// From / Sent-or-Date / To triple with no Subject.
	regexp.MustCompile(`(?m)^From:[^\n]*\n(?:Sent|Date):[^\n]*\nTo:[^\n]*`),
	// From followed by a contiguous run of header lines.
	regexp.MustCompile(`(?m)^From:[^\n]*(?:\n(?:Sent|Date|To|Subject):[^\n]*)+`),
}

// MarkQuoted inserts a "---" separator line before each detected
// quoted-message boundary and collapses duplicate separators. It accepts
// rendered output or already-plain text such as a pasted reply chain, and
// normalizes line endings the same way Render does.
func MarkQuoted(text string) string {
	if text == "" {
		return text
	}
	text = normalizeNewlines(text)
	for _, re := range quotePasses {
		text = markBefore(text, re)
	}
	return dedupeSeparators(text)
}

// HideQuoted returns the content before the first separator, with a fixed
// notice in place of the removed quoted messages. Text without a separator
// is returned unchanged.
func HideQuoted(text string) string {
	idx := strings.Index(text, "\n"+separator+"\n")
	if idx < 0 {
		return text
	}
	return strings.TrimRight(text[:idx], "\n") + "\n\n" + quoteNotice
}

// markBefore inserts a separator at the start of the line containing each
// match, skipping lines that already have a separator directly above.
func markBefore(text string, re *regexp.Regexp) string {
	matches := re.FindAllStringIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*(len(separator)+1))
	prev := 0
	lastLine := -1
	for _, m := range matches {
		start := lineStart(text, m[0])
		if start == lastLine || start < prev {
			continue
		}
		b.WriteString(text[prev:start])
		if !separatorAbove(text, start) {
			b.WriteString(separator + "\n")
		}
		prev = start
		lastLine = start
	}
	b.WriteString(text[prev:])
	return b.String()
}

// lineStart returns the index of the first byte of the line containing i.
func lineStart(s string, i int) int {
	return strings.LastIndex(s[:i], "\n") + 1
}

// separatorAbove reports whether the line immediately before position
// start is already a separator.
func separatorAbove(s string, start int) bool {
	if start == 0 {
		return false
	}
	prevStart := lineStart(s, start-1)
	return isSeparatorLine(s[prevStart : start-1])
}

func isSeparatorLine(line string) bool {
	return strings.TrimSpace(line) == separator
}

// dedupeSeparators collapses runs of separators (blank lines between them
// included) down to one, and drops a separator that has no content above
// it, since a boundary at the top of the document marks nothing.
func dedupeSeparators(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isSeparatorLine(line) {
			j := len(out) - 1
			for j >= 0 && strings.TrimSpace(out[j]) == "" {
				j--
			}
			if j < 0 {
				// Nothing but whitespace above: a leading separator is
				// meaningless, drop it.
				continue
			}
			if isSeparatorLine(out[j]) {
				// Fold this separator (and the blanks) into the previous one.
				out = out[:j+1]
				continue
			}
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
