// Package main is the entry point for mailtext.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/minkyo-dev/mailtext/internal/config"
	"github.com/minkyo-dev/mailtext/internal/credential"
	"github.com/minkyo-dev/mailtext/internal/doctor"
	"github.com/minkyo-dev/mailtext/internal/htmltext"
	"github.com/minkyo-dev/mailtext/internal/mailbox"
	"github.com/minkyo-dev/mailtext/internal/mailfile"
	"github.com/minkyo-dev/mailtext/internal/render"
	"github.com/minkyo-dev/mailtext/internal/service"
	"github.com/minkyo-dev/mailtext/internal/storage"
	"github.com/minkyo-dev/mailtext/internal/updater"
	"github.com/minkyo-dev/mailtext/internal/watch"
)

var version = "dev"

// localFolder is the archive folder for messages imported from files
// rather than fetched over IMAP.
const localFolder = "local"

// foldersCacheTTL is how long the cached folder listing is served without
// contacting the server.
const foldersCacheTTL = 10 * time.Minute

const mboxWorkers = 4

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mailtext",
		Short: "mailtext - Read HTML email as plain text",
		Long:  "mailtext - Read HTML email as plain text",
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			// Check for updates after any command (non-blocking)
			go updater.New(version).CheckAndNotify(config.ConfigDir())
		},
	}
	root.Version = version
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newInitCmd(),
		newConvertCmd(),
		newEMLCmd(),
		newMboxCmd(),
		newReadCmd(),
		newListCmd(),
		newFoldersCmd(),
		newArchiveCmd(),
		newComposeCmd(),
		newWatchCmd(),
		newDoctorCmd(),
		newInstallServiceCmd(),
		newUninstallServiceCmd(),
		newUpdateCmd(),
	)
	return root
}

// convertFlags carries the per-invocation overrides for the conversion
// pipeline. Flags left unset fall back to the [convert] section of
// config.toml.
type convertFlags struct {
	textOnly     bool
	wordwrap     int
	noTables     bool
	noLinks      bool
	headingStyle string
	hideQuoted   bool
	bulletIndent int
	listIndent   int
}

func (f *convertFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.textOnly, "text", false, "Treat input as plain text and only mark quoted content")
	flags.IntVar(&f.wordwrap, "wordwrap", 0, "Wrap lines at this column (0 disables wrapping)")
	flags.BoolVar(&f.noTables, "no-tables", false, "Leave tables as flowing text instead of grids")
	flags.BoolVar(&f.noLinks, "no-links", false, "Drop link targets instead of appending [url]")
	flags.StringVar(&f.headingStyle, "heading-style", "", "Heading rendering: underline, linebreak or hashify")
	flags.BoolVar(&f.hideQuoted, "hide-quoted", false, "Replace quoted messages with a removal notice")
	flags.IntVar(&f.bulletIndent, "bullet-indent", 0, "Spaces before bullet markers")
	flags.IntVar(&f.listIndent, "list-indent", 0, "Spaces before ordered list numbers")
}

// apply copies only the flags the user actually set, so an explicit
// "--wordwrap 0" wins over the configured width.
func (f *convertFlags) apply(cmd *cobra.Command, opts *htmltext.Options) {
	set := cmd.Flags().Changed
	if set("wordwrap") {
		opts.WordWrap = f.wordwrap
	}
	if f.noTables {
		opts.Tables = false
	}
	if f.noLinks {
		opts.PreserveHrefLinks = false
	}
	if f.headingStyle != "" {
		opts.HeadingStyle = f.headingStyle
	}
	if f.hideQuoted {
		opts.HideQuotedContent = true
	}
	if set("bullet-indent") {
		opts.BulletIndent = f.bulletIndent
	}
	if set("list-indent") {
		opts.ListIndent = f.listIndent
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Setup configuration wizard",
		RunE: func(_ *cobra.Command, _ []string) error {
			return config.RunInit()
		},
	}
}

func newConvertCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert an HTML email body to plain text",
		Long:  "Convert an HTML email body to plain text. Reads the file argument, or stdin when none is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, &f)
		},
	}
	f.register(cmd)
	return cmd
}

func runConvert(cmd *cobra.Command, args []string, f *convertFlags) error {
	body, err := readInput(args)
	if err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	opts := cfg.ConvertOptions()
	f.apply(cmd, opts)

	var text string
	if f.textOnly {
		text = htmltext.MarkQuoted(string(body))
	} else {
		text = htmltext.Convert(string(body), opts)
	}
	fmt.Fprintln(cmd.OutOrStdout(), displayText(text, opts))
	return nil
}

func newEMLCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "eml <file>",
		Short: "Convert a saved .eml message to plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEML(cmd, args[0], save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Archive the converted message in the local database")
	return cmd
}

func runEML(cmd *cobra.Command, path string, save bool) error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	msg, err := mailfile.ReadEML(path)
	if err != nil {
		return err
	}
	msg.UID = imap.UID(mailfile.StableUID(msg))

	opts := cfg.ConvertOptions()
	stored := watch.ConvertMessage(localFolder, msg, opts)
	printMessage(cmd.OutOrStdout(), stored, opts)

	if save {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveMessage(stored); err != nil {
			return fmt.Errorf("archive message: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nSaved as %s\n", shortID(stored.ID))
	}
	return nil
}

func newMboxCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "mbox <file>",
		Short: "Convert every message in an mbox archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMbox(cmd, args[0], outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Write one .txt file per message into this directory")
	return cmd
}

func runMbox(cmd *cobra.Command, path, outDir string) error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	opts := cfg.ConvertOptions()
	w := cmd.OutOrStdout()

	if outDir == "" {
		first := true
		return mailfile.ForEachMbox(path, func(m *mailbox.Message) error {
			stored := watch.ConvertMessage(localFolder, m, opts)
			if !first {
				fmt.Fprintln(w)
			}
			first = false
			fmt.Fprintf(w, "=== %s (%s)\n\n", stored.Subject, stored.From)
			fmt.Fprintln(w, displayText(stored.BodyText, opts))
			return nil
		})
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// ForEachMbox hands over fully parsed messages, so conversion and
	// writing can fan out while the file is still being walked.
	g := new(errgroup.Group)
	g.SetLimit(mboxWorkers)
	var written atomic.Int64
	walkErr := mailfile.ForEachMbox(path, func(m *mailbox.Message) error {
		g.Go(func() error {
			stored := watch.ConvertMessage(localFolder, m, opts)
			name := uuid.NewString() + ".txt"
			var buf []byte
			buf = fmt.Appendf(buf, "From: %s\nSubject: %s\nDate: %s\n\n%s\n",
				stored.From, stored.Subject, stored.Date.Format(time.RFC1123Z),
				displayText(stored.BodyText, opts))
			if err := os.WriteFile(filepath.Join(outDir, name), buf, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			written.Add(1)
			return nil
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if walkErr != nil {
		return walkErr
	}
	fmt.Fprintf(w, "Wrote %d messages to %s\n", written.Load(), outDir)
	return nil
}

func newReadCmd() *cobra.Command {
	var folder string
	var save, markSeen bool
	cmd := &cobra.Command{
		Use:   "read [uid]",
		Short: "Fetch a message over IMAP and print it as plain text",
		Long:  "Fetch a message over IMAP and print it as plain text. Without a UID the newest message in the folder is read.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd, args, folder, save, markSeen)
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Folder to read from (defaults to general.default_folder)")
	cmd.Flags().BoolVar(&save, "save", false, "Archive the converted message in the local database")
	cmd.Flags().BoolVar(&markSeen, "mark-seen", false, "Add the \\Seen flag on the server")
	return cmd
}

func runRead(cmd *cobra.Command, args []string, folder string, save, markSeen bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, err := dialIMAP(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	resolved, err := client.ResolveFolder(pickFolder(cfg, folder))
	if err != nil {
		return err
	}

	var msg *mailbox.Message
	if len(args) == 1 {
		uid, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid uid %q", args[0])
		}
		msg, err = client.FetchUID(resolved, imap.UID(uid))
		if err != nil {
			return err
		}
	} else {
		msgs, err := client.FetchLatest(resolved, 1)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return fmt.Errorf("folder %q is empty", resolved)
		}
		msg = msgs[0]
	}

	opts := cfg.ConvertOptions()
	stored := watch.ConvertMessage(resolved, msg, opts)
	printMessage(cmd.OutOrStdout(), stored, opts)

	if save {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveMessage(stored); err != nil {
			return fmt.Errorf("archive message: %w", err)
		}
	}
	if markSeen {
		if err := client.MarkSeen(resolved, msg.UID); err != nil {
			return fmt.Errorf("mark seen: %w", err)
		}
	}
	return nil
}

func newListCmd() *cobra.Command {
	var folder string
	var unseen bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent messages in a folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, folder, unseen, limit)
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Folder to list (defaults to general.default_folder)")
	cmd.Flags().BoolVar(&unseen, "unseen", false, "Only list messages without the \\Seen flag")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of messages to list")
	return cmd
}

func runList(cmd *cobra.Command, folder string, unseen bool, limit int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, err := dialIMAP(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	resolved, err := client.ResolveFolder(pickFolder(cfg, folder))
	if err != nil {
		return err
	}
	summaries, err := client.ListRecent(resolved, unseen, limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintf(w, "No messages in %s\n", resolved)
		return nil
	}
	// Newest first on screen.
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		marker := " "
		if !s.Seen {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %7d  %s  %-28s  %s\n",
			marker, s.UID, s.Date.Local().Format("01-02 15:04"),
			truncate(s.From, 28), s.Subject)
	}
	return nil
}

func newFoldersCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List folders with message counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFolders(cmd, refresh)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Contact the server even when the cache is fresh")
	return cmd
}

func runFolders(cmd *cobra.Command, refresh bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	cached, err := store.ListFolders()
	if err != nil {
		return err
	}
	refreshedAt, err := store.FoldersRefreshedAt()
	if err != nil {
		return err
	}

	if !refresh && len(cached) > 0 && time.Since(refreshedAt) < foldersCacheTTL {
		printFolders(w, cached)
		fmt.Fprintf(w, "\nAs of %s. Use --refresh for a live view.\n",
			refreshedAt.Local().Format("15:04"))
		return nil
	}

	client, err := dialIMAP(cfg)
	if err != nil {
		if len(cached) > 0 {
			fmt.Fprintf(w, "⚠️ server unreachable, showing cached list: %v\n\n", err)
			printFolders(w, cached)
			return nil
		}
		return err
	}
	defer client.Close()

	live, err := client.ListFolders()
	if err != nil {
		return err
	}
	fresh := make([]*storage.Folder, 0, len(live))
	for _, f := range live {
		fresh = append(fresh, &storage.Folder{Name: f.Name, Unseen: f.Unseen, Total: f.Total})
	}
	if err := store.ReplaceFolders(context.Background(), fresh); err != nil {
		return fmt.Errorf("cache folders: %w", err)
	}
	printFolders(w, fresh)
	return nil
}

func printFolders(w io.Writer, folders []*storage.Folder) {
	for _, f := range folders {
		fmt.Fprintf(w, "%-28s %5d unseen / %d\n", f.Name, f.Unseen, f.Total)
	}
}

func newArchiveCmd() *cobra.Command {
	var search, show, folder string
	var limit int
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse locally archived messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runArchive(cmd, search, show, folder, limit)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Filter by sender, subject or body text")
	cmd.Flags().StringVar(&show, "show", "", "Print one archived message by ID (a prefix is enough)")
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Only list messages archived from this folder")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of messages to list")
	return cmd
}

func runArchive(cmd *cobra.Command, search, show, folder string, limit int) error {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if show != "" {
		msg, err := store.GetMessageByPrefix(show)
		if err != nil {
			return err
		}
		if msg == nil {
			return fmt.Errorf("no archived message with id %q", show)
		}
		printMessage(w, msg, cfg.ConvertOptions())
		return nil
	}

	var msgs []*storage.Message
	if folder != "" {
		if search != "" {
			return fmt.Errorf("--search and --folder cannot be combined")
		}
		msgs, err = store.ListMessages(folder, limit)
	} else {
		msgs, err = store.SearchMessages(search, limit)
	}
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No archived messages. Run 'mailtext watch' or use --save to build the archive.")
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "%s  %s  %-28s  %s\n",
			shortID(m.ID), m.Date.Local().Format("2006-01-02"),
			truncate(m.From, 28), m.Subject)
	}
	return nil
}

func newComposeCmd() *cobra.Command {
	var outFile string
	var withText bool
	cmd := &cobra.Command{
		Use:   "compose <file.md>",
		Short: "Render a Markdown draft as an HTML email body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd, args[0], outFile, withText)
		},
	}
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&withText, "text", false, "Append the plain-text alternative after the HTML")
	return cmd
}

func runCompose(cmd *cobra.Command, path, outFile string, withText bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}
	html, err := render.HTML(string(data))
	if err != nil {
		return err
	}

	out := html
	if withText {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			return err
		}
		text, err := render.Text(string(data), cfg.ConvertOptions())
		if err != nil {
			return err
		}
		out = html + "\n<!-- text/plain alternative -->\n" + text + "\n"
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the mailbox and archive new mail as plain text",
		RunE:  runWatchCmd,
	}
}

func runWatchCmd(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	dial := func() (mailbox.Client, error) { return dialIMAP(cfg) }
	return watch.RunWatch(context.Background(), cfg, store, dial)
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and diagnose issues",
	}
	fix := cmd.Flags().Bool("fix", false, "Attempt to automatically fix issues")
	network := cmd.Flags().Bool("network", false, "Also test the IMAP login")
	cmd.RunE = func(_ *cobra.Command, _ []string) error {
		if code := doctor.RunDoctor(os.Stdout, config.ConfigDir(), *fix, *network); code != 0 {
			os.Exit(code)
		}
		return nil
	}
	return cmd
}

func newInstallServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install-service",
		Short: "Register the watch mode as a system service",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return service.InstallService(cfg.General.DataDir)
		},
	}
}

func newUninstallServiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall-service",
		Short: "Remove the system service",
		RunE: func(_ *cobra.Command, _ []string) error {
			return service.UninstallService()
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update to the latest version",
		RunE: func(_ *cobra.Command, _ []string) error {
			return updater.New(version).RunUpdate()
		},
	}
}

// --- Shared helpers ---

func readInput(args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
	return io.ReadAll(os.Stdin)
}

func dialIMAP(cfg *config.Config) (mailbox.Client, error) {
	if err := cfg.ValidateIMAP(); err != nil {
		return nil, err
	}
	password, err := credential.ResolvePassword(cfg.IMAP.User, cfg.IMAP.AppPassword, cfg.IMAP.UseKeyring)
	if err != nil {
		return nil, err
	}
	return mailbox.Connect(&cfg.IMAP, password)
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.New(cfg.General.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func pickFolder(cfg *config.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.General.DefaultFolder
}

// displayText applies the display-only hide-quoted stage. Archived bodies
// keep the full marked text; hiding happens when a message is printed.
func displayText(text string, opts *htmltext.Options) string {
	if opts.HideQuotedContent {
		return htmltext.HideQuoted(text)
	}
	return text
}

func printMessage(w io.Writer, msg *storage.Message, opts *htmltext.Options) {
	fmt.Fprintf(w, "From: %s\n", msg.From)
	if msg.To != "" {
		fmt.Fprintf(w, "To: %s\n", msg.To)
	}
	fmt.Fprintf(w, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(w, "Date: %s\n\n", msg.Date.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(w, displayText(msg.BodyText, opts))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
