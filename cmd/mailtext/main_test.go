package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}

	expected := []string{
		"init", "convert", "eml", "mbox", "read", "list", "folders",
		"archive", "compose", "watch", "doctor",
		"install-service", "uninstall-service", "update",
	}
	for _, name := range expected {
		assert.True(t, names[name], "missing subcommand: %s", name)
	}
}

func TestRootCmd_HasVersion(t *testing.T) {
	root := newRootCmd()
	assert.NotEmpty(t, root.Version)
}

func findCommand(t *testing.T, name string) *cobra.Command {
	t.Helper()
	for _, cmd := range newRootCmd().Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	t.Fatalf("subcommand %s not found", name)
	return nil
}

func TestConvertCmd_HasOverrideFlags(t *testing.T) {
	cmd := findCommand(t, "convert")
	for _, name := range []string{
		"text", "wordwrap", "no-tables", "no-links",
		"heading-style", "hide-quoted", "bullet-indent", "list-indent",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "--%s flag should exist", name)
	}
}

func TestReadCmd_HasFlags(t *testing.T) {
	cmd := findCommand(t, "read")
	for _, name := range []string{"folder", "save", "mark-seen"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "--%s flag should exist", name)
	}
}

func TestDoctorCmd_HasFixAndNetworkFlags(t *testing.T) {
	cmd := findCommand(t, "doctor")
	assert.NotNil(t, cmd.Flags().Lookup("fix"), "--fix flag should exist")
	assert.NotNil(t, cmd.Flags().Lookup("network"), "--network flag should exist")
}

func TestArchiveCmd_HasFlags(t *testing.T) {
	cmd := findCommand(t, "archive")
	for _, name := range []string{"search", "show", "folder", "limit"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "--%s flag should exist", name)
	}
}

// runCLI executes the root command against a clean fake home so tests never
// touch the real ~/.mailtext.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConvertCmd_ConvertsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>Hello <b>world</b></p>"), 0o600))

	out, err := runCLI(t, "convert", path)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", strings.TrimSpace(out))
}

func TestConvertCmd_HideQuoted(t *testing.T) {
	body := "<p>Thanks!</p>" +
		"<p>On Mon, Aug 17, 2026 at 9:00 AM Bob &lt;bob@example.com&gt; wrote:</p>" +
		"<blockquote>earlier text</blockquote>"
	path := filepath.Join(t.TempDir(), "reply.html")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := runCLI(t, "convert", path, "--hide-quoted")
	require.NoError(t, err)
	assert.Contains(t, out, "Thanks!")
	assert.Contains(t, out, "[Prior quoted messages removed]")
	assert.NotContains(t, out, "earlier text", "숨김 모드에서는 인용 본문이 보이면 안 됨")
}

func TestConvertCmd_TextOnly(t *testing.T) {
	// --text는 HTML 렌더링을 건너뛰고 인용 경계만 표시한다.
	body := "Sure thing.\n\nOn Mon, Aug 17, 2026 at 9:00 AM Bob <bob@example.com> wrote:\n> earlier"
	path := filepath.Join(t.TempDir(), "reply.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := runCLI(t, "convert", path, "--text")
	require.NoError(t, err)
	assert.Contains(t, out, "---")
	assert.Contains(t, out, "> earlier")
}

func TestEMLCmd_PrintsHeaderBlock(t *testing.T) {
	raw := strings.Join([]string{
		"From: alice@example.com",
		"To: me@example.com",
		"Subject: Receipt",
		"Date: Thu, 20 Aug 2026 09:30:00 +0000",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>Total: <b>42</b></p>",
	}, "\r\n")
	path := filepath.Join(t.TempDir(), "receipt.eml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	out, err := runCLI(t, "eml", path)
	require.NoError(t, err)
	assert.Contains(t, out, "From: alice@example.com")
	assert.Contains(t, out, "Subject: Receipt")
	assert.Contains(t, out, "Total: 42")
}

func TestMboxCmd_WritesPerMessageFiles(t *testing.T) {
	mboxData := strings.Join([]string{
		"From alice@example.com Thu Aug 20 09:30:00 2026",
		"From: alice@example.com",
		"Subject: First",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"hello",
		"",
		"From bob@example.com Thu Aug 20 10:30:00 2026",
		"From: bob@example.com",
		"Subject: Second",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"world",
		"",
	}, "\n")
	path := filepath.Join(t.TempDir(), "export.mbox")
	require.NoError(t, os.WriteFile(path, []byte(mboxData), 0o600))
	outDir := filepath.Join(t.TempDir(), "txt")

	out, err := runCLI(t, "mbox", path, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 messages")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "메시지마다 .txt 파일이 하나씩 생겨야 함")
	for _, e := range entries {
		assert.True(t, strings.HasSuffix(e.Name(), ".txt"))
	}
}

func TestComposeCmd_WritesHTMLFile(t *testing.T) {
	draft := filepath.Join(t.TempDir(), "draft.md")
	require.NoError(t, os.WriteFile(draft, []byte("Hello **world**"), 0o600))
	outFile := filepath.Join(t.TempDir(), "out.html")

	_, err := runCLI(t, "compose", draft, "-o", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<strong>world</strong>")
}

func TestComposeCmd_TextAlternative(t *testing.T) {
	draft := filepath.Join(t.TempDir(), "draft.md")
	require.NoError(t, os.WriteFile(draft, []byte("# Notes\n\nShip it"), 0o600))

	out, err := runCLI(t, "compose", draft, "--text")
	require.NoError(t, err)
	assert.Contains(t, out, "<!-- text/plain alternative -->")
	assert.Contains(t, out, "Ship it")
}
