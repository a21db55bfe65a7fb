// Package render turns Markdown into an HTML email body for the compose
// flow, and back into its plain-text alternative.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/minkyo-dev/mailtext/internal/htmltext"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		highlighting.NewHighlighting(
			highlighting.WithStyle("github"),
		),
	),
	// Raw HTML passes through so composed mail can embed tables directly.
	goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
)

const htmlTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;line-height:1.6;color:#333;max-width:800px;margin:0 auto;padding:20px;">
%s
</body>
</html>`

// HTML converts Markdown to a complete HTML email document with inline
// styles and github-style code highlighting.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}
	return fmt.Sprintf(htmlTemplate, buf.String()), nil
}

// Text renders Markdown to HTML and converts the result back to plain
// text, producing the text/plain alternative for a composed message.
func Text(markdown string, opts *htmltext.Options) (string, error) {
	html, err := HTML(markdown)
	if err != nil {
		return "", err
	}
	return htmltext.Convert(html, opts), nil
}
