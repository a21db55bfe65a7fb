// Package mailfile reads messages from local files: single RFC 822 (.eml)
// files and mbox archives exported by mail clients.
package mailfile

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/minkyo-dev/mailtext/internal/mailbox"
)

// ReadEML parses a single RFC 822 message file.
func ReadEML(path string) (*mailbox.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open eml: %w", err)
	}
	defer f.Close()

	msg, err := ParseMessage(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return msg, nil
}

// ParseMessage parses an RFC 822 message from r. The UID stays zero:
// file-sourced messages have no server identity.
func ParseMessage(r io.Reader) (*mailbox.Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, err
	}
	defer mr.Close()

	msg := &mailbox.Message{}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}
	if id, err := mr.Header.MessageID(); err == nil {
		msg.MessageID = id
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	if to, err := mr.Header.AddressList("To"); err == nil && len(to) > 0 {
		msg.To = to[0].Address
	}
	msg.HTMLBody, msg.TextBody = mailbox.ReadBodies(mr)
	return msg, nil
}

// StableUID derives a deterministic UID for a file-sourced message so that
// importing the same message twice updates one archive row instead of
// adding another. Server UIDs are 32-bit, so a CRC fits the column.
func StableUID(msg *mailbox.Message) uint32 {
	if msg.MessageID != "" {
		return crc32.ChecksumIEEE([]byte(msg.MessageID))
	}
	key := msg.Subject + "\x00" + msg.From + "\x00" + msg.Date.UTC().Format(time.RFC3339)
	return crc32.ChecksumIEEE([]byte(key))
}
