package mailfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minkyo-dev/mailtext/internal/mailbox"
)

func crlf(lines ...string) string {
	return strings.Join(lines, "\r\n")
}

func sampleEML() string {
	return crlf(
		"From: Alice <alice@example.com>",
		"To: Me <me@example.com>",
		"Subject: =?utf-8?q?Caf=C3=A9_receipt?=",
		"Date: Thu, 20 Aug 2026 09:30:00 +0000",
		"Message-ID: <receipt-1@example.com>",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=\"b1\"",
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain version",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html version</p>",
		"--b1--",
		"",
	)
}

func TestReadEML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.eml")
	require.NoError(t, os.WriteFile(path, []byte(sampleEML()), 0600))

	msg, err := ReadEML(path)
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", msg.From)
	assert.Equal(t, "me@example.com", msg.To)
	assert.Equal(t, "Café receipt", msg.Subject, "RFC 2047 제목은 디코딩되어야 함")
	assert.Equal(t, "receipt-1@example.com", msg.MessageID)
	assert.True(t, msg.Date.Equal(time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "<p>html version</p>", msg.HTMLBody)
	assert.Equal(t, "plain version", msg.TextBody)
	assert.Zero(t, msg.UID)
}

func TestReadEML_MissingFile(t *testing.T) {
	_, err := ReadEML(filepath.Join(t.TempDir(), "nope.eml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open eml")
}

func TestParseMessage_SinglePartHTML(t *testing.T) {
	raw := crlf(
		"From: alice@example.com",
		"To: me@example.com",
		"Subject: Hello",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<div>only html</div>",
	)

	msg, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "<div>only html</div>", msg.HTMLBody)
	assert.Empty(t, msg.TextBody)
}

func TestParseMessage_MissingHeaders(t *testing.T) {
	raw := crlf(
		"Content-Type: text/plain; charset=utf-8",
		"",
		"body only",
	)

	msg, err := ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, msg.Date.IsZero(), "Date 헤더가 없으면 zero time이어야 함")
	assert.Empty(t, msg.From)
	assert.Empty(t, msg.Subject)
	assert.Equal(t, "body only", msg.TextBody)
}

func TestParseMessage_Garbage(t *testing.T) {
	_, err := ParseMessage(strings.NewReader("no mime structure here at all"))
	require.Error(t, err)
}

func TestStableUID(t *testing.T) {
	t.Run("same message id gives same uid", func(t *testing.T) {
		a := &mailbox.Message{MessageID: "receipt-1@example.com", Subject: "A"}
		b := &mailbox.Message{MessageID: "receipt-1@example.com", Subject: "B"}
		assert.Equal(t, StableUID(a), StableUID(b))
	})

	t.Run("different message ids differ", func(t *testing.T) {
		a := &mailbox.Message{MessageID: "one@example.com"}
		b := &mailbox.Message{MessageID: "two@example.com"}
		assert.NotEqual(t, StableUID(a), StableUID(b))
	})

	t.Run("falls back to envelope fields", func(t *testing.T) {
		// Message-ID가 없으면 제목/보낸사람/날짜 조합으로 구분한다.
		when := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
		a := &mailbox.Message{Subject: "Hi", From: "a@example.com", Date: when}
		b := &mailbox.Message{Subject: "Hi", From: "b@example.com", Date: when}
		assert.NotZero(t, StableUID(a))
		assert.NotEqual(t, StableUID(a), StableUID(b))
	})
}
