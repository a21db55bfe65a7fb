package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSystemdUnit(t *testing.T) {
	unit := generateSystemdUnit("/usr/local/bin/mailtext", "testuser", "/home/testuser")

	assert.Contains(t, unit, "Description=mailtext watch")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/mailtext watch")
	assert.Contains(t, unit, "User=testuser")
	assert.Contains(t, unit, "Environment=HOME=/home/testuser")
	assert.Contains(t, unit, "After=network.target")
	assert.Contains(t, unit, "Restart=on-failure")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}

func TestGenerateLaunchdPlist(t *testing.T) {
	plist := generateLaunchdPlist("/usr/local/bin/mailtext", "/home/testuser/.mailtext/data")

	assert.Contains(t, plist, "<string>com.mailtext</string>")
	assert.Contains(t, plist, "<string>/usr/local/bin/mailtext</string>")
	assert.Contains(t, plist, "<string>watch</string>")
	assert.Contains(t, plist, "<true/>") // RunAtLoad or KeepAlive
	assert.Contains(t, plist, "mailtext.log")
	assert.Contains(t, plist, "mailtext.err")
}

func TestGenerateSystemdUnit_Structure(t *testing.T) {
	unit := generateSystemdUnit("/bin/cp", "u", "/h")
	sections := []string{"[Unit]", "[Service]", "[Install]"}
	for _, s := range sections {
		assert.True(t, strings.Contains(unit, s), "missing section: %s", s)
	}
}

func TestGenerateLaunchdPlist_XMLValid(t *testing.T) {
	plist := generateLaunchdPlist("/bin/cp", "/tmp/data")
	assert.True(t, strings.HasPrefix(plist, "<?xml"))
	assert.Contains(t, plist, "</plist>")
}
