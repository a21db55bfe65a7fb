package htmltext

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	olBlockRe = regexp.MustCompile(`(?is)<ol\b[^>]*>(.*?)</ol\s*>`)
	liOpenRe  = regexp.MustCompile(`(?i)<li\b[^>]*>`)
	liCloseRe = regexp.MustCompile(`(?i)</li\s*>`)
	ulTagRe   = regexp.MustCompile(`(?i)</?ul\b[^>]*>`)
	olTagRe   = regexp.MustCompile(`(?i)</?ol\b[^>]*>`)
)

// renderLists rewrites ordered lists first so their items are numbered,
// then treats every remaining <li> as an unordered bullet. Numbering
// restarts at 1 for each <ol> block. Nesting is flattened to a single
// indent level.
func renderLists(text string, opts *Options) string {
	text = olBlockRe.ReplaceAllStringFunc(text, func(block string) string {
		inner := olBlockRe.FindStringSubmatch(block)[1]
		indent := strings.Repeat(" ", opts.ListIndent)
		n := 0
		inner = liOpenRe.ReplaceAllStringFunc(inner, func(string) string {
			n++
			return "\n" + indent + strconv.Itoa(n) + ". "
		})
		inner = liCloseRe.ReplaceAllString(inner, "")
		return "\n" + inner + "\n"
	})

	bullet := "\n" + strings.Repeat(" ", opts.BulletIndent) + "• "
	text = liOpenRe.ReplaceAllString(text, bullet)
	text = liCloseRe.ReplaceAllString(text, "")
	text = ulTagRe.ReplaceAllString(text, "\n")
	// Unclosed <ol> tags never matched a block above; drop them here.
	return olTagRe.ReplaceAllString(text, "\n")
}
