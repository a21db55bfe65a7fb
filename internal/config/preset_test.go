package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreset_Gmail(t *testing.T) {
	// Gmail 프리셋이 존재하고 올바른 값을 가지는지 확인
	preset, ok := Presets["gmail"]
	require.True(t, ok, "Gmail 프리셋이 존재해야 함")

	assert.Equal(t, "imap.gmail.com", preset.Host)
	assert.Equal(t, 993, preset.Port)
}

func TestPreset_Outlook(t *testing.T) {
	// Outlook 프리셋이 존재하고 올바른 값을 가지는지 확인
	preset, ok := Presets["outlook"]
	require.True(t, ok, "Outlook 프리셋이 존재해야 함")

	assert.Equal(t, "outlook.office365.com", preset.Host)
	assert.Equal(t, 993, preset.Port)
}

func TestPreset_ICloud(t *testing.T) {
	// iCloud 프리셋이 존재하고 올바른 값을 가지는지 확인
	preset, ok := Presets["icloud"]
	require.True(t, ok, "iCloud 프리셋이 존재해야 함")

	assert.Equal(t, "imap.mail.me.com", preset.Host)
	assert.Equal(t, 993, preset.Port)
}

func TestPreset_EveryProviderHasHelp(t *testing.T) {
	// 프리셋이 있는 프로바이더는 앱 비밀번호 안내도 있어야 함
	for key := range Presets {
		_, ok := providerHelp[key]
		assert.True(t, ok, "providerHelp[%q] 누락", key)
	}
}
