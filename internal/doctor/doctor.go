// Package doctor provides environment diagnostics for mailtext.
package doctor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minkyo-dev/mailtext/internal/config"
	"github.com/minkyo-dev/mailtext/internal/credential"
	"github.com/minkyo-dev/mailtext/internal/mailbox"
	"github.com/minkyo-dev/mailtext/internal/storage"
)

const (
	statusOK    = "ok"
	statusError = "error"
	statusWarn  = "warn"
	statusFixed = "fixed"
)

// CheckResult holds the outcome of a single diagnostic check.
type CheckResult struct {
	Name    string
	Status  string
	Message string
	Hint    string
}

func checkConfig(configDir string) (*config.Config, CheckResult) {
	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err != nil {
		return nil, CheckResult{
			Name:    "Config",
			Status:  statusError,
			Message: path + ": not found",
			Hint:    "Run 'mailtext init' to create one",
		}
	}
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return nil, CheckResult{
			Name:    "Config",
			Status:  statusError,
			Message: err.Error(),
		}
	}
	return cfg, CheckResult{Name: "Config", Status: statusOK, Message: path}
}

func checkDataDir(dataDir string, fix bool) CheckResult {
	if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
		return CheckResult{Name: "Data directory", Status: statusOK, Message: dataDir}
	}
	if fix {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return CheckResult{
				Name:    "Data directory",
				Status:  statusError,
				Message: "not found, fix failed: " + err.Error(),
			}
		}
		return CheckResult{
			Name:    "Data directory",
			Status:  statusFixed,
			Message: "not found → Created",
		}
	}
	return CheckResult{
		Name:    "Data directory",
		Status:  statusError,
		Message: dataDir + ": not found",
		Hint:    "Run 'mailtext doctor --fix' to create",
	}
}

func checkDatabase(dataDir string) CheckResult {
	store, err := storage.New(dataDir)
	if err != nil {
		return CheckResult{Name: "Database", Status: statusError, Message: err.Error()}
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return CheckResult{Name: "Database", Status: statusError, Message: "migrate: " + err.Error()}
	}
	count, err := store.MessageCount()
	if err != nil {
		return CheckResult{Name: "Database", Status: statusError, Message: err.Error()}
	}
	return CheckResult{
		Name:    "Database",
		Status:  statusOK,
		Message: fmt.Sprintf("%s (%d messages)", filepath.Join(dataDir, "mailtext.db"), count),
	}
}

// checkKeyring is warn-only: a missing keyring entry degrades to the
// config-file password, it does not break the tool.
func checkKeyring(cfg *config.Config) CheckResult {
	if !cfg.IMAP.UseKeyring {
		return CheckResult{Name: "Keyring", Status: statusOK, Message: "not in use"}
	}
	if _, err := credential.Get(cfg.IMAP.User); err != nil {
		return CheckResult{
			Name:    "Keyring",
			Status:  statusWarn,
			Message: "app password not readable: " + err.Error(),
			Hint:    "Run 'mailtext init' to store the password again",
		}
	}
	return CheckResult{Name: "Keyring", Status: statusOK, Message: "app password present"}
}

func checkIMAP(cfg *config.Config) CheckResult {
	if err := cfg.ValidateIMAP(); err != nil {
		return CheckResult{
			Name:    "IMAP",
			Status:  statusError,
			Message: err.Error(),
			Hint:    "Run 'mailtext init' to configure the account",
		}
	}
	password, err := credential.ResolvePassword(cfg.IMAP.User, cfg.IMAP.AppPassword, cfg.IMAP.UseKeyring)
	if err != nil {
		return CheckResult{Name: "IMAP", Status: statusError, Message: err.Error()}
	}
	client, err := mailbox.Connect(&cfg.IMAP, password)
	if err != nil {
		return CheckResult{
			Name:    "IMAP",
			Status:  statusError,
			Message: err.Error(),
			Hint:    "Check the host, user and app password",
		}
	}
	client.Close()
	return CheckResult{
		Name:    "IMAP",
		Status:  statusOK,
		Message: fmt.Sprintf("%s:%d login ok", cfg.IMAP.Host, cfg.IMAP.Port),
	}
}

func icon(status string) string {
	switch status {
	case statusOK, statusFixed:
		return "✅"
	case statusWarn:
		return "⚠️ "
	default:
		return "❌"
	}
}

func printResult(w io.Writer, r CheckResult) {
	fmt.Fprintf(w, "  %s %s: %s\n", icon(r.Status), r.Name, r.Message)
}

type summary struct {
	errors, warnings, fixed int
}

func countResults(results []CheckResult) summary {
	var s summary
	for _, r := range results {
		switch r.Status {
		case statusError:
			s.errors++
		case statusWarn:
			s.warnings++
		case statusFixed:
			s.fixed++
		}
	}
	return s
}

func printHints(w io.Writer, results []CheckResult) {
	var any bool
	for _, r := range results {
		if r.Hint != "" && (r.Status == statusError || r.Status == statusWarn) {
			if !any {
				fmt.Fprintln(w)
				any = true
			}
			fmt.Fprintf(w, "  %s %s: %s\n", icon(r.Status), r.Name, r.Hint)
		}
	}
}

// RunDoctor runs all diagnostic checks and writes results to w. The IMAP
// login check only runs with network=true. Returns the exit code:
// 0=all pass, 1=errors, 2=warnings only.
func RunDoctor(w io.Writer, configDir string, fix, network bool) int {
	fmt.Fprintln(w, "Checking environment...")
	fmt.Fprintln(w)

	cfg, cfgResult := checkConfig(configDir)
	results := []CheckResult{cfgResult}

	if cfg != nil {
		dirResult := checkDataDir(cfg.General.DataDir, fix)
		results = append(results, dirResult)
		if dirResult.Status == statusOK || dirResult.Status == statusFixed {
			results = append(results, checkDatabase(cfg.General.DataDir))
		}
		results = append(results, checkKeyring(cfg))
		if network {
			results = append(results, checkIMAP(cfg))
		}
	}

	for _, r := range results {
		printResult(w, r)
	}

	s := countResults(results)
	printHints(w, results)

	if cfg != nil && !network {
		fmt.Fprintln(w, "\n  Run with --network to test the IMAP login.")
	}

	if s.fixed > 0 {
		fmt.Fprintf(w, "\nFixed %d issue(s).", s.fixed)
		if s.errors > 0 || s.warnings > 0 {
			fmt.Fprintf(w, " %d error(s), %d warning(s) remaining.", s.errors, s.warnings)
		}
		fmt.Fprintln(w)
	}

	if s.errors > 0 {
		return 1
	}
	if s.warnings > 0 {
		return 2
	}
	return 0
}
