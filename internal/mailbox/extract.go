package mailbox

import (
	"io"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

func init() {
	// Newsletters still arrive in ISO-8859-1 and EUC-KR.
	gomessage.CharsetReader = charset.Reader
}

// extractBodies reads an RFC 822 message and returns its first text/html
// and text/plain inline parts. Either may be empty.
func extractBodies(r io.Reader) (html, text string) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", ""
	}
	defer mr.Close()
	return ReadBodies(mr)
}

// ReadBodies walks the remaining parts of an open mail reader and returns
// its first text/html and text/plain inline parts. Either may be empty.
// Attachments are skipped.
func ReadBodies(mr *mail.Reader) (html, text string) {
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := h.ContentType()
		if err != nil {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		switch contentType {
		case "text/html":
			if html == "" {
				html = string(b)
			}
		case "text/plain":
			if text == "" {
				text = string(b)
			}
		}
	}
	return html, text
}
