// Package htmltext converts HTML email bodies to readable plain text.
//
// The converter is a pipeline of ordered string substitutions over the raw
// markup rather than a DOM parse. Real email HTML is routinely malformed
// (unbalanced tags, bare ampersands, inline MSO noise), and the flat
// pipeline degrades gracefully where a strict parser would not. Every
// function in this package is pure and never fails: for any input string
// the result is a best-effort plain-text rendering.
package htmltext

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Heading rendering styles accepted by Options.HeadingStyle.
const (
	HeadingUnderline = "underline"
	HeadingLinebreak = "linebreak"
	HeadingHashify   = "hashify"
)

// Options controls the rendering pipeline. The zero value is meaningful
// (WordWrap 0 disables wrapping, Tables false skips grid conversion), so
// callers that want partial overrides should start from DefaultOptions.
type Options struct {
	// WordWrap is the column width for re-flowing long lines. Values <= 0
	// disable wrapping.
	WordWrap int

	// PreserveNewlines is accepted for compatibility and currently has no
	// effect: the cleanup stage always collapses runs of newlines.
	PreserveNewlines bool

	// Tables enables conversion of <table> blocks to pipe-delimited grids.
	Tables bool

	// UppercaseHeadings is accepted for compatibility and currently has no
	// effect on heading rendering.
	UppercaseHeadings bool

	// PreserveHrefLinks appends " [url]" after link text whenever the href
	// differs from the visible text.
	PreserveHrefLinks bool

	// BulletIndent is the number of leading spaces before a "•" marker.
	BulletIndent int

	// ListIndent is the number of leading spaces before an ordered-list
	// number.
	ListIndent int

	// HeadingStyle selects how <h1>-<h6> are rendered: HeadingHashify emits
	// markdown-style "#" prefixes, HeadingLinebreak emits a bare line break.
	// HeadingUnderline is accepted and renders identically to
	// HeadingLinebreak.
	HeadingStyle string

	// MaxLineLength is accepted for compatibility; wrapping is governed by
	// WordWrap alone.
	MaxLineLength int

	// HideQuotedContent asks consumers to drop everything after the first
	// quote separator. The renderer itself never honors this flag; callers
	// apply HideQuoted to the converted output.
	HideQuotedContent bool
}

// DefaultOptions returns the default rendering configuration.
func DefaultOptions() Options {
	return Options{
		WordWrap:          80,
		Tables:            true,
		PreserveHrefLinks: true,
		BulletIndent:      2,
		ListIndent:        2,
		HeadingStyle:      HeadingLinebreak,
		MaxLineLength:     100,
	}
}

var (
	divRe     = regexp.MustCompile(`(?i)<div\b[^>]*>`)
	brRe      = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	pOpenRe   = regexp.MustCompile(`(?i)<p\b[^>]*>`)
	pCloseRe  = regexp.MustCompile(`(?i)</p\s*>`)
	hOpenRe   = regexp.MustCompile(`(?i)<h([1-6])\b[^>]*>`)
	hCloseRe  = regexp.MustCompile(`(?i)</h[1-6]\s*>`)
	bqOpenRe  = regexp.MustCompile(`(?i)<blockquote\b[^>]*>`)
	bqCloseRe = regexp.MustCompile(`(?i)</blockquote\s*>`)
	preRe     = regexp.MustCompile(`(?i)</?pre\b[^>]*>`)
	hrRe      = regexp.MustCompile(`(?i)<hr\b[^>]*>`)
	inlineRe  = regexp.MustCompile(`(?i)</?(?:b|strong|i|em|u|strike|del|mark)\b[^>]*>`)
	linkRe    = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']*)["'][^>]*>(.*?)</a>`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)

	decEntityRe = regexp.MustCompile(`&#(\d+);`)
	hexEntityRe = regexp.MustCompile(`&#[xX]([0-9a-fA-F]+);`)

	blankLineRe  = regexp.MustCompile(`(?m)^[ \t]+$`)
	multiNLRe    = regexp.MustCompile(`\n{2,}`)
	trailingWSRe = regexp.MustCompile(`(?m)[ \t]+$`)
)

const hrLine = "----------------------------------------"

// Convert renders an HTML (or already-plain) email body to plain text and
// marks quoted-content boundaries. It is the single entry point most
// callers want; nil opts means DefaultOptions.
func Convert(body string, opts *Options) string {
	return MarkQuoted(Render(body, opts))
}

// Render converts an HTML string to plain text without quote marking.
// Line endings are normalized to "\n" and entities decoded first; if the
// decoded string contains no '<' it is returned as-is, so plain-text bodies
// pass through (normalized but otherwise unchanged).
func Render(html string, opts *Options) string {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}

	text := decodeEntities(normalizeNewlines(html))
	if !strings.Contains(text, "<") {
		return text
	}

	// Attribute noise on divs carries no information downstream.
	text = divRe.ReplaceAllString(text, "<div>")

	text = brRe.ReplaceAllString(text, "\n")
	text = pOpenRe.ReplaceAllString(text, "<p>")
	text = pCloseRe.ReplaceAllString(text, "\n")

	text = renderHeadings(text, opts)
	text = renderLists(text, opts)
	if opts.Tables {
		text = renderTables(text)
	}
	text = renderLinks(text, opts)

	text = bqOpenRe.ReplaceAllString(text, "\n> ")
	text = bqCloseRe.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "> >", ">>")

	text = preRe.ReplaceAllString(text, "\n")
	text = hrRe.ReplaceAllString(text, "\n"+hrLine+"\n")

	text = inlineRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, "")

	text = decodePercent(text)
	text = cleanupWhitespace(text)

	if opts.WordWrap > 0 {
		text = wrapText(text, opts.WordWrap)
	}

	return trailingWSRe.ReplaceAllString(text, "")
}

func renderHeadings(text string, opts *Options) string {
	hashify := opts.HeadingStyle == HeadingHashify
	text = hOpenRe.ReplaceAllStringFunc(text, func(m string) string {
		if hashify {
			level, err := strconv.Atoi(hOpenRe.FindStringSubmatch(m)[1])
			if err == nil {
				return "\n" + strings.Repeat("#", level) + " "
			}
		}
		return "\n"
	})
	return hCloseRe.ReplaceAllString(text, "\n")
}

func renderLinks(text string, opts *Options) string {
	if !opts.PreserveHrefLinks {
		return text
	}
	return linkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		url := sub[1]
		label := strings.TrimSpace(tagRe.ReplaceAllString(sub[2], ""))
		if url == "" || url == label || url == "mailto:"+label {
			return label
		}
		return label + " [" + url + "]"
	})
}

// namedEntities are decoded in this exact order; &amp; deliberately comes
// after &lt;/&gt; so that double-escaped entities stay escaped once.
var namedEntities = [...]struct{ entity, text string }{
	{"&nbsp;", " "},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&amp;", "&"},
	{"&quot;", `"`},
	{"&apos;", "'"},
}

func decodeEntities(text string) string {
	for _, e := range namedEntities {
		text = strings.ReplaceAll(text, e.entity, e.text)
	}
	text = decEntityRe.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.Atoi(m[2 : len(m)-1])
		if err != nil || n > utf8.MaxRune || !utf8.ValidRune(rune(n)) {
			return m
		}
		return string(rune(n))
	})
	return hexEntityRe.ReplaceAllStringFunc(text, func(m string) string {
		n, err := strconv.ParseInt(m[3:len(m)-1], 16, 32)
		if err != nil || n > utf8.MaxRune || !utf8.ValidRune(rune(n)) {
			return m
		}
		return string(rune(n))
	})
}

// decodePercent decodes %XX escapes byte-wise, so adjacent escapes that
// spell a multi-byte UTF-8 sequence come out as one character. Sequences
// that are not two hex digits are left untouched.
func decodePercent(text string) string {
	if !strings.Contains(text, "%") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] == '%' && i+2 < len(text) {
			hi, ok1 := hexDigit(text[i+1])
			lo, ok2 := hexDigit(text[i+2])
			if ok1 && ok2 {
				b.WriteByte(hi<<4 | lo)
				i += 3
				continue
			}
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// normalizeNewlines rewrites CRLF and bare CR line endings to "\n". Mail
// bodies arrive with CRLF off the wire, and every later stage anchors on
// "\n" alone.
func normalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

func cleanupWhitespace(text string) string {
	text = blankLineRe.ReplaceAllString(text, "")
	text = multiNLRe.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, "\t", "    ")
	text = trailingWSRe.ReplaceAllString(text, "")
	// Trim newlines only: leading spaces on the first line are meaningful
	// indentation (list markers, wrapped continuations).
	return strings.Trim(text, "\n")
}
