package mailfile

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/emersion/go-mbox"

	"github.com/minkyo-dev/mailtext/internal/mailbox"
)

// ForEachMbox iterates the messages of an mbox archive in file order.
// Messages that fail to parse are logged and skipped. An error from fn
// aborts the walk.
func ForEachMbox(path string, fn func(*mailbox.Message) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer f.Close()

	mr := mbox.NewReader(f)
	for i := 0; ; i++ {
		msgReader, err := mr.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read mbox entry %d: %w", i, err)
		}
		msg, err := ParseMessage(msgReader)
		if err != nil {
			slog.Warn("skipping unparseable mbox message", "index", i, "error", err)
			continue
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}
