// Package integration contains end-to-end tests that use real external services.
//
// Required environment variables:
//
//	E2E_IMAP_USER     — Gmail address (e.g. mailtext.e2e@gmail.com)
//	E2E_IMAP_PASSWORD — Gmail app password
//
// Run:
//
//	E2E_IMAP_USER=mailtext.e2e@gmail.com E2E_IMAP_PASSWORD=xxx \
//	  go test ./_test/integration/... -v -count=1 -timeout 120s
package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minkyo-dev/mailtext/internal/config"
	"github.com/minkyo-dev/mailtext/internal/mailbox"
	"github.com/minkyo-dev/mailtext/internal/mailfile"
	"github.com/minkyo-dev/mailtext/internal/storage"
	"github.com/minkyo-dev/mailtext/internal/watch"
)

func skipIfNoCredentials(t *testing.T) (user, pass string) {
	t.Helper()
	user = os.Getenv("E2E_IMAP_USER")
	pass = os.Getenv("E2E_IMAP_PASSWORD")
	if user == "" || pass == "" {
		t.Skip("E2E_IMAP_USER / E2E_IMAP_PASSWORD not set, skipping E2E test")
	}
	return user, pass
}

func newTestConfig(user, pass string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.IMAP = config.IMAPConfig{
		Provider:    "gmail",
		Host:        "imap.gmail.com",
		Port:        993,
		User:        user,
		AppPassword: pass,
	}
	return &cfg
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.New(dir)
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })
	return store
}

// TestE2E_IMAPConnection tests that login and folder listing work with real
// credentials.
func TestE2E_IMAPConnection(t *testing.T) {
	user, pass := skipIfNoCredentials(t)
	cfg := newTestConfig(user, pass)

	client, err := mailbox.Connect(&cfg.IMAP, pass)
	require.NoError(t, err, "IMAP login should succeed")
	defer client.Close()

	folders, err := client.ListFolders()
	require.NoError(t, err)
	require.NotEmpty(t, folders, "a Gmail account always has folders")

	var hasInbox bool
	for _, f := range folders {
		t.Logf("  folder: %s (%d unseen / %d)", f.Name, f.Unseen, f.Total)
		if strings.EqualFold(f.Name, "INBOX") {
			hasInbox = true
		}
	}
	assert.True(t, hasInbox, "INBOX가 목록에 있어야 함")
}

// TestE2E_FetchAndConvert fetches the newest messages and runs them through
// the conversion pipeline.
func TestE2E_FetchAndConvert(t *testing.T) {
	user, pass := skipIfNoCredentials(t)
	cfg := newTestConfig(user, pass)

	client, err := mailbox.Connect(&cfg.IMAP, pass)
	require.NoError(t, err)
	defer client.Close()

	msgs, err := client.FetchLatest("INBOX", 3)
	require.NoError(t, err, "fetch should succeed")

	opts := cfg.ConvertOptions()
	for _, m := range msgs {
		stored := watch.ConvertMessage("INBOX", m, opts)
		t.Logf("  uid=%d subject=%q", stored.UID, stored.Subject)
		assert.NotContains(t, stored.BodyText, "<div", "변환된 본문에 태그가 남으면 안 됨")
		assert.NotContains(t, stored.BodyText, "<p>")
	}
}

// TestE2E_WatchSync runs one watch cycle against the live mailbox and
// verifies the messages land in SQLite.
func TestE2E_WatchSync(t *testing.T) {
	user, pass := skipIfNoCredentials(t)
	cfg := newTestConfig(user, pass)
	store := newTestStore(t)

	client, err := mailbox.Connect(&cfg.IMAP, pass)
	require.NoError(t, err)
	defer client.Close()

	n, err := watch.Sync(store, client, "INBOX", cfg.ConvertOptions())
	require.NoError(t, err, "sync should succeed")
	t.Logf("Synced %d messages", n)

	count, err := store.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, n, count)

	// Second sync starts past the high-water mark and stores nothing new.
	again, err := watch.Sync(store, client, "INBOX", cfg.ConvertOptions())
	require.NoError(t, err)
	assert.Zero(t, again, "같은 메시지를 두 번 저장하면 안 됨")
}

// TestE2E_ConfigLoad verifies a config written with real credentials loads
// and validates.
func TestE2E_ConfigLoad(t *testing.T) {
	user, pass := skipIfNoCredentials(t)

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	cfgContent := `[general]
data_dir = "` + dataDir + `"

[imap]
provider = "gmail"
host = "imap.gmail.com"
port = 993
user = "` + user + `"
app_password = "` + pass + `"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(cfgContent), 0o600))

	cfg, err := config.LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, user, cfg.IMAP.User)
	assert.Equal(t, "imap.gmail.com", cfg.IMAP.Host)
	require.NoError(t, cfg.ValidateIMAP())
}

// TestE2E_OfflinePipeline exercises the whole local path without a network:
// an .eml goes through parsing and conversion into the archive and is read
// back out.
func TestE2E_OfflinePipeline(t *testing.T) {
	store := newTestStore(t)

	raw := strings.Join([]string{
		"From: newsletter@example.com",
		"To: me@example.com",
		"Subject: Weekly digest",
		"Date: Thu, 20 Aug 2026 09:30:00 +0000",
		"Message-ID: <digest-34@example.com>",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<h1>Digest</h1><p>Read <a href=\"https://example.com/a\">this</a>.</p>",
		"<p>On Mon, Aug 17, 2026 at 9:00 AM Bob <bob@example.com> wrote:</p>",
		"<blockquote>last week's issue</blockquote>",
	}, "\r\n")

	msg, err := mailfile.ParseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	uid := mailfile.StableUID(msg)
	require.NotZero(t, uid)

	cfg := config.DefaultConfig()
	stored := watch.ConvertMessage("local", msg, cfg.ConvertOptions())
	stored.UID = uid
	require.NoError(t, store.SaveMessage(stored))

	got, err := store.GetMessageByUID("local", uid)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Weekly digest", got.Subject)
	assert.Contains(t, got.BodyText, "this [https://example.com/a]")
	assert.Contains(t, got.BodyText, "---", "인용 경계가 저장된 본문에 표시되어야 함")
	assert.Contains(t, got.BodyText, "> last week's issue")
	assert.NotContains(t, got.BodyText, "<h1>")

	// Archiving the same message again must update, not duplicate.
	again := watch.ConvertMessage("local", msg, cfg.ConvertOptions())
	again.UID = uid
	require.NoError(t, store.SaveMessage(again))

	count, err := store.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
