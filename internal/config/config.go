// Package config handles configuration loading, validation, and init wizard.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/minkyo-dev/mailtext/internal/htmltext"
)

// Config는 전체 설정을 나타내는 구조체
type Config struct {
	General GeneralConfig `toml:"general"`
	IMAP    IMAPConfig    `toml:"imap"`
	Convert ConvertConfig `toml:"convert"`
}

// GeneralConfig는 일반 설정
type GeneralConfig struct {
	DataDir         string `toml:"data_dir"`
	DefaultFolder   string `toml:"default_folder"`
	PollIntervalSec int    `toml:"poll_interval_sec"`
	RetentionDays   int    `toml:"retention_days"`
}

// IMAPConfig는 메일 계정 설정
type IMAPConfig struct {
	Provider    string `toml:"provider"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	User        string `toml:"user"`
	AppPassword string `toml:"app_password"`
	UseKeyring  bool   `toml:"use_keyring"`
}

// ConvertConfig는 본문 변환 기본 옵션. 개별 명령의 플래그가 우선한다.
type ConvertConfig struct {
	WordWrap      int    `toml:"wordwrap"`
	Tables        bool   `toml:"tables"`
	PreserveLinks bool   `toml:"preserve_links"`
	BulletIndent  int    `toml:"bullet_indent"`
	ListIndent    int    `toml:"list_indent"`
	HeadingStyle  string `toml:"heading_style"`
	HideQuoted    bool   `toml:"hide_quoted"`
}

// DefaultConfig는 내장 기본값을 반환한다. 설정 파일은 이 값 위에
// 디코딩되므로 생략된 키는 기본값을 유지한다. convert.tables 같은
// 불리언 키는 zero value로 기본값을 구분할 수 없어서 이 방식이 필요하다.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DataDir:         filepath.Join(ConfigDir(), "data"),
			DefaultFolder:   "INBOX",
			PollIntervalSec: 60,
			RetentionDays:   90,
		},
		IMAP: IMAPConfig{
			Port: 993,
		},
		Convert: ConvertConfig{
			WordWrap:      80,
			Tables:        true,
			PreserveLinks: true,
			BulletIndent:  2,
			ListIndent:    2,
			HeadingStyle:  htmltext.HeadingLinebreak,
		},
	}
}

// Load는 기본 설정 디렉터리에서 설정을 로드한다.
func Load() (*Config, error) {
	return LoadFrom(ConfigDir())
}

// LoadFrom은 지정된 디렉터리에서 config.toml을 읽어 설정을 로드한다.
func LoadFrom(configDir string) (*Config, error) {
	path := filepath.Join(configDir, "config.toml")

	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: run 'mailtext init' to create one")
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault는 설정 파일이 없으면 기본값을 반환한다. convert, eml 같은
// 순수 변환 명령은 init 없이도 동작해야 한다. 파일이 있는데 깨진 경우는
// 오류를 그대로 돌려준다.
func LoadOrDefault() (*Config, error) {
	path := filepath.Join(ConfigDir(), "config.toml")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		applyEnvOverrides(&cfg)
		return &cfg, nil
	}
	return Load()
}

// ConfigDir은 설정 디렉터리 경로(~/.mailtext)를 반환한다.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mailtext")
}

// ConvertOptions는 [convert] 섹션을 렌더러 옵션으로 변환한다.
func (c *Config) ConvertOptions() *htmltext.Options {
	opts := htmltext.DefaultOptions()
	opts.WordWrap = c.Convert.WordWrap
	opts.Tables = c.Convert.Tables
	opts.PreserveHrefLinks = c.Convert.PreserveLinks
	opts.BulletIndent = c.Convert.BulletIndent
	opts.ListIndent = c.Convert.ListIndent
	opts.HeadingStyle = c.Convert.HeadingStyle
	opts.HideQuotedContent = c.Convert.HideQuoted
	return &opts
}

func applyEnvOverrides(cfg *Config) {
	envStr("MAILTEXT_DATA_DIR", &cfg.General.DataDir)
	envStr("MAILTEXT_FOLDER", &cfg.General.DefaultFolder)
	envInt("MAILTEXT_POLL_INTERVAL", &cfg.General.PollIntervalSec)
	envInt("MAILTEXT_RETENTION_DAYS", &cfg.General.RetentionDays)
	envStr("MAILTEXT_IMAP_HOST", &cfg.IMAP.Host)
	envInt("MAILTEXT_IMAP_PORT", &cfg.IMAP.Port)
	envStr("MAILTEXT_IMAP_USER", &cfg.IMAP.User)
	envStr("MAILTEXT_IMAP_PASSWORD", &cfg.IMAP.AppPassword)
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func validate(cfg *Config) error {
	if cfg.General.DataDir == "" {
		return errors.New("general.data_dir is required")
	}
	switch cfg.Convert.HeadingStyle {
	case htmltext.HeadingUnderline, htmltext.HeadingLinebreak, htmltext.HeadingHashify:
	default:
		return fmt.Errorf("convert.heading_style must be underline, linebreak, or hashify, got %q",
			cfg.Convert.HeadingStyle)
	}
	if cfg.Convert.WordWrap < 0 {
		return errors.New("convert.wordwrap must be zero or positive")
	}
	if cfg.General.PollIntervalSec <= 0 {
		return errors.New("general.poll_interval_sec must be positive")
	}
	return nil
}

// ValidateIMAP은 네트워크 명령이 요구하는 계정 필드를 검사한다.
func (c *Config) ValidateIMAP() error {
	if c.IMAP.Host == "" {
		return errors.New("imap.host is required: run 'mailtext init'")
	}
	if c.IMAP.User == "" {
		return errors.New("imap.user is required: run 'mailtext init'")
	}
	return nil
}
