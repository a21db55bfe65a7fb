package mailbox

import (
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
)

func gmailListing() []*imap.ListData {
	return []*imap.ListData{
		{Mailbox: "INBOX"},
		{Mailbox: "Receipts"},
		{Mailbox: "[Gmail]", Attrs: []imap.MailboxAttr{imap.MailboxAttrNoSelect}},
		{Mailbox: "[Gmail]/Sent Mail", Attrs: []imap.MailboxAttr{imap.MailboxAttrSent}},
		{Mailbox: "[Gmail]/Bin", Attrs: []imap.MailboxAttr{imap.MailboxAttrTrash}},
		{Mailbox: "[Gmail]/Drafts", Attrs: []imap.MailboxAttr{imap.MailboxAttrDrafts}},
	}
}

func TestResolveFolder_ExactMatch(t *testing.T) {
	got, ok := resolveFolder("Receipts", gmailListing())
	assert.True(t, ok)
	assert.Equal(t, "Receipts", got)
}

func TestResolveFolder_CaseInsensitive(t *testing.T) {
	got, ok := resolveFolder("receipts", gmailListing())
	assert.True(t, ok)
	assert.Equal(t, "Receipts", got)
}

func TestResolveFolder_WellKnownAliases(t *testing.T) {
	tests := []struct {
		alias string
		want  string
	}{
		{"sent", "[Gmail]/Sent Mail"},
		{"Sent", "[Gmail]/Sent Mail"},
		{"trash", "[Gmail]/Bin"},
		{"drafts", "[Gmail]/Drafts"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			got, ok := resolveFolder(tt.alias, gmailListing())
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFolder_ExactBeatsAlias(t *testing.T) {
	// 서버에 "Sent"라는 이름의 폴더가 실제로 있으면 별칭보다 우선한다
	list := append(gmailListing(), &imap.ListData{Mailbox: "Sent"})

	got, ok := resolveFolder("Sent", list)
	assert.True(t, ok)
	assert.Equal(t, "Sent", got)
}

func TestResolveFolder_Unknown(t *testing.T) {
	_, ok := resolveFolder("Nonexistent", gmailListing())
	assert.False(t, ok)

	// junk 별칭에 해당하는 폴더가 목록에 없음
	_, ok = resolveFolder("spam", gmailListing())
	assert.False(t, ok)
}

func TestUIDsAfter(t *testing.T) {
	uids := []imap.UID{3, 5, 9}

	assert.Equal(t, []imap.UID{5, 9}, uidsAfter(uids, 3))
	assert.Equal(t, []imap.UID{3, 5, 9}, uidsAfter(uids, 0))

	// "N:*"는 따라잡은 폴더에서도 최신 UID를 돌려주므로 여기서 걸러진다
	assert.Nil(t, uidsAfter(uids, 9))
	assert.Nil(t, uidsAfter(nil, 7))
}
