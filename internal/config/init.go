package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/minkyo-dev/mailtext/internal/credential"
)

// initWizard holds the I/O dependencies for the init wizard.
type initWizard struct {
	in           *bufio.Scanner
	out          io.Writer
	connTester   func(*Config, string)             // nil이면 기본 testConnection 사용
	keyringStore func(user, password string) error // nil이면 credential.Set 사용
}

// providerHelp는 프로바이더별 앱 비밀번호 발급 안내 메시지
var providerHelp = map[string]string{
	"gmail": `  ┌─ Help ─────────────────────────────────────────┐
  │ How to get a Gmail App Password:               │
  │                                                │
  │ 1. Enable 2-Step Verification:                 │
  │    Google Account > Security > 2-Step Verify   │
  │ 2. Create App Password:                        │
  │    https://myaccount.google.com/apppasswords   │
  │ 3. Enter app name > Copy the 16-char password  │
  └────────────────────────────────────────────────┘`,
	"outlook": `  ┌─ Help ─────────────────────────────────────────┐
  │ How to get an Outlook App Password:            │
  │                                                │
  │ 1. Enable 2-Step Verification:                 │
  │    Microsoft Account > Security > Advanced     │
  │ 2. Create App Password:                        │
  │    Security > App Passwords > Create           │
  │ 3. Copy the generated password                 │
  └────────────────────────────────────────────────┘`,
	"icloud": `  ┌─ Help ─────────────────────────────────────────┐
  │ How to get an iCloud App-Specific Password:    │
  │                                                │
  │ 1. Sign in at https://appleid.apple.com        │
  │ 2. Account Settings > Sign-In and Security >   │
  │    App-Specific Passwords > Generate           │
  │ 3. Copy the generated password                 │
  └────────────────────────────────────────────────┘`,
}

// RunInit는 대화형 설정 마법사를 실행한다.
func RunInit() error {
	w := &initWizard{
		in:  bufio.NewScanner(os.Stdin),
		out: os.Stdout,
	}
	return w.run()
}

func (w *initWizard) printf(format string, args ...any) {
	fmt.Fprintf(w.out, format, args...)
}

func (w *initWizard) readLine() string {
	if w.in.Scan() {
		return strings.TrimSpace(w.in.Text())
	}
	return ""
}

// prompt shows a prompt and returns user input. If input is empty, returns defaultVal.
func (w *initWizard) prompt(label, defaultVal string) string {
	if defaultVal != "" {
		w.printf("  %s (default: %s)\n  > ", label, defaultVal)
	} else {
		w.printf("  %s\n  > ", label)
	}
	input := w.readLine()
	if input == "" {
		return defaultVal
	}
	return input
}

// promptSecret shows a prompt for sensitive input. Shows [unchanged] if defaultVal is set.
func (w *initWizard) promptSecret(label, defaultVal string) string {
	if defaultVal != "" {
		w.printf("  %s [unchanged]\n  Change? (y/N) > ", label)
		if answer := w.readLine(); answer != "y" && answer != "Y" {
			return defaultVal
		}
	}
	w.printf("  %s\n  > ", label)
	return w.readLine()
}

// promptChoice shows a numbered menu and returns the selected index (0-based).
func (w *initWizard) promptChoice(options []string, defaultIdx int) int {
	for i, opt := range options {
		w.printf("  (%d) %s\n", i+1, opt)
	}
	w.printf("  > ")
	input := w.readLine()
	if input == "" {
		return defaultIdx
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(options) {
		return defaultIdx
	}
	return n - 1
}

// promptInt reads an integer with a default value.
func (w *initWizard) promptInt(label string, current, fallback int) int {
	def := current
	if def == 0 {
		def = fallback
	}
	s := w.prompt(label, strconv.Itoa(def))
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// promptBool reads a yes/no answer. Empty input keeps the current value.
func (w *initWizard) promptBool(label string, current bool) bool {
	hint := "y/N"
	if current {
		hint = "Y/n"
	}
	w.printf("  %s (%s)\n  > ", label, hint)
	switch strings.ToLower(w.readLine()) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	}
	return current
}

// run은 3단계 마법사 흐름을 실행한다.
func (w *initWizard) run() error {
	w.printf("\nmailtext Setup\n")
	w.printf("==============\n\n")

	// Load existing config if present
	existing, _ := Load()
	if existing != nil {
		w.printf("Existing config found. Values shown as defaults.\n\n")
	}

	cfg := DefaultConfig()
	if existing != nil {
		cfg = *existing
	}

	// [1/3] Data Directory
	w.printf("[1/3] Data Directory\n")
	cfg.General.DataDir = w.prompt("Where should mailtext store fetched mail?", cfg.General.DataDir)

	// [2/3] IMAP Account
	w.printf("\n[2/3] IMAP Account\n")
	password := w.stepAccount(&cfg, existing)

	// [3/3] Conversion Defaults
	w.printf("\n[3/3] Conversion Defaults\n")
	w.stepConvert(&cfg)

	// Save
	if err := w.save(&cfg); err != nil {
		return err
	}

	// Connection test
	if w.connTester != nil {
		w.connTester(&cfg, password)
	} else {
		w.printf("\nTesting IMAP connection...\n")
		w.testConnection(&cfg, password)
	}

	w.printf("\nRun 'mailtext read' to fetch your latest message.\n")
	return nil
}

// runWithoutConnTest는 연결 테스트 없이 실행 (테스트용)
func (w *initWizard) runWithoutConnTest() error {
	w.connTester = func(_ *Config, _ string) {} // no-op
	return w.run()
}

func (w *initWizard) stepAccount(cfg *Config, existing *Config) string {
	w.printf("  Select your mail provider:\n")
	providers := []string{"Gmail", "Outlook", "iCloud", "Other (manual setup)"}
	providerKeys := []string{"gmail", "outlook", "icloud", "other"}

	defaultIdx := 0
	if existing != nil {
		for i, k := range providerKeys {
			if k == existing.IMAP.Provider {
				defaultIdx = i
				break
			}
		}
	}

	idx := w.promptChoice(providers, defaultIdx)
	key := providerKeys[idx]
	cfg.IMAP.Provider = key

	if preset, ok := Presets[key]; ok {
		cfg.IMAP.Host = preset.Host
		cfg.IMAP.Port = preset.Port
		w.printf("\n  ✓ IMAP: %s:%d\n\n", cfg.IMAP.Host, cfg.IMAP.Port)
	} else {
		// Manual setup
		cfg.IMAP.Host = w.prompt("IMAP host", cfg.IMAP.Host)
		cfg.IMAP.Port = w.promptInt("IMAP port", cfg.IMAP.Port, 993)
		w.printf("\n")
	}

	cfg.IMAP.User = w.prompt("Email address", cfg.IMAP.User)

	// Show help for known providers
	if help, ok := providerHelp[key]; ok {
		w.printf("\n%s\n\n", help)
	}

	existingPassword := ""
	if existing != nil {
		existingPassword = existing.IMAP.AppPassword
	}
	password := w.promptSecret("App password", existingPassword)

	useKeyring := existing != nil && existing.IMAP.UseKeyring
	if w.promptBool("Store the app password in the system keyring?", useKeyring) {
		store := w.keyringStore
		if store == nil {
			store = credential.Set
		}
		if err := store(cfg.IMAP.User, password); err != nil {
			w.printf("  ✗ keyring unavailable: %v\n", err)
			w.printf("  Keeping the password in the config file instead.\n")
			cfg.IMAP.UseKeyring = false
			cfg.IMAP.AppPassword = password
		} else {
			cfg.IMAP.UseKeyring = true
			cfg.IMAP.AppPassword = ""
		}
	} else {
		cfg.IMAP.UseKeyring = false
		cfg.IMAP.AppPassword = password
	}

	return password
}

func (w *initWizard) stepConvert(cfg *Config) {
	cfg.Convert.WordWrap = w.promptInt("Wrap lines at column (0 disables)", cfg.Convert.WordWrap, 80)

	styles := []string{
		"linebreak - heading text on its own line",
		"hashify   - markdown-style # prefixes",
		"underline - same output as linebreak",
	}
	styleKeys := []string{"linebreak", "hashify", "underline"}

	defaultIdx := 0
	for i, k := range styleKeys {
		if k == cfg.Convert.HeadingStyle {
			defaultIdx = i
			break
		}
	}

	w.printf("  Heading style for converted messages:\n")
	idx := w.promptChoice(styles, defaultIdx)
	cfg.Convert.HeadingStyle = styleKeys[idx]

	cfg.Convert.HideQuoted = w.promptBool("Hide quoted reply chains by default?", cfg.Convert.HideQuoted)
}

func (w *initWizard) save(cfg *Config) error {
	configDir := ConfigDir()
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.MkdirAll(cfg.General.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	w.printf("\n✅ Config saved: %s\n", path)
	w.printf("✅ Data directory created: %s\n", cfg.General.DataDir)
	return nil
}

func (w *initWizard) testConnection(cfg *Config, password string) {
	if password == "" && cfg.IMAP.UseKeyring {
		if stored, err := credential.Get(cfg.IMAP.User); err == nil {
			password = stored
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port)
	w.printf("  IMAP: %s ... ", addr)
	if err := testIMAP(cfg, password); err != nil {
		w.printf("✗ %v\n", err)
	} else {
		w.printf("✅ connected\n")
	}
}

func testIMAP(cfg *Config, password string) error {
	addr := fmt.Sprintf("%s:%d", cfg.IMAP.Host, cfg.IMAP.Port)
	c, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Login(cfg.IMAP.User, password).Wait()
}
