// Package watch implements the long-running fetch loop behind
// "mailtext watch".
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/emersion/go-imap/v2"
	"golang.org/x/sync/errgroup"

	"github.com/minkyo-dev/mailtext/internal/config"
	"github.com/minkyo-dev/mailtext/internal/htmltext"
	"github.com/minkyo-dev/mailtext/internal/mailbox"
	"github.com/minkyo-dev/mailtext/internal/storage"
)

const defaultPruneInterval = 24 * time.Hour

// DialFunc opens a logged-in IMAP session. Injected so tests can supply a
// fake client.
type DialFunc func() (mailbox.Client, error)

type watcher struct {
	cfg        *config.Config
	store      *storage.Store
	dial       DialFunc
	pollEvery  time.Duration // override for testing; 0 means use cfg
	pruneEvery time.Duration // override for testing; 0 means daily
}

// RunWatch polls the configured folder until the context is canceled or a
// SIGINT/SIGTERM arrives. Poll and prune failures are logged, never fatal.
func RunWatch(ctx context.Context, cfg *config.Config, store *storage.Store, dial DialFunc) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := &watcher{cfg: cfg, store: store, dial: dial}
	return w.run(ctx)
}

func (w *watcher) run(ctx context.Context) error {
	pollEvery := w.pollEvery
	if pollEvery == 0 {
		pollEvery = time.Duration(w.cfg.General.PollIntervalSec) * time.Second
	}
	pruneEvery := w.pruneEvery
	if pruneEvery == 0 {
		pruneEvery = defaultPruneInterval
	}

	slog.Info("watch started", "folder", w.cfg.General.DefaultFolder, "poll_interval", pollEvery)

	// Catch up right away instead of waiting out the first tick.
	if err := w.pollOnce(); err != nil {
		slog.Error("IMAP poll failed", "error", err)
	}
	w.pruneOnce()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.pollLoop(ctx, pollEvery)
	})

	g.Go(func() error {
		return w.pruneLoop(ctx, pruneEvery)
	})

	return g.Wait()
}

func (w *watcher) pollLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.pollOnce(); err != nil {
				slog.Error("IMAP poll failed", "error", err)
			}
		}
	}
}

func (w *watcher) pruneLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.pruneOnce()
		}
	}
}

func (w *watcher) pollOnce() error {
	client, err := w.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	folder, err := client.ResolveFolder(w.cfg.General.DefaultFolder)
	if err != nil {
		return err
	}

	n, err := Sync(w.store, client, folder, w.cfg.ConvertOptions())
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("fetched new mail", "folder", folder, "count", n)
	}
	return nil
}

func (w *watcher) pruneOnce() {
	n, err := w.store.PurgeMessages(w.cfg.General.RetentionDays)
	if err != nil {
		slog.Error("prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("pruned old messages", "count", n, "retention_days", w.cfg.General.RetentionDays)
	}
}

// Sync fetches every message in folder newer than the stored high-water
// mark, converts it, and saves it. Returns how many messages were stored.
// Per-message save failures are logged and skipped.
func Sync(store *storage.Store, client mailbox.Client, folder string, opts *htmltext.Options) (int, error) {
	last, err := store.LatestMessage(folder)
	if err != nil {
		return 0, fmt.Errorf("load high-water mark: %w", err)
	}
	var since imap.UID
	if last != nil {
		since = imap.UID(last.UID)
	}

	msgs, err := client.FetchSince(folder, since)
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, m := range msgs {
		// An "N:*" search hands the newest message back even on a
		// caught-up folder, so the mark is checked again here.
		if m.UID <= since {
			continue
		}
		if err := store.SaveMessage(ConvertMessage(folder, m, opts)); err != nil {
			slog.Warn("failed to store message", "uid", m.UID, "error", err)
			continue
		}
		saved++
	}
	return saved, nil
}

// ConvertMessage renders a fetched message into its storable form. The
// body text is the plain-text conversion, HTML preferred over the text
// part when both are present.
func ConvertMessage(folder string, m *mailbox.Message, opts *htmltext.Options) *storage.Message {
	source := m.HTMLBody
	if source == "" {
		source = m.TextBody
	}
	return &storage.Message{
		Folder:    folder,
		UID:       uint32(m.UID),
		MessageID: m.MessageID,
		From:      m.From,
		To:        m.To,
		Subject:   m.Subject,
		Date:      m.Date,
		BodyText:  htmltext.Convert(source, opts),
		BodyHTML:  m.HTMLBody,
	}
}
