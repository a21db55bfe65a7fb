// Package mailbox talks to the IMAP server: folder listing, folder name
// resolution, and message fetching.
package mailbox

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/minkyo-dev/mailtext/internal/config"
)

// Message holds the parsed fields from a fetched IMAP message.
type Message struct {
	UID       imap.UID
	MessageID string
	From      string
	To        string
	Subject   string
	Date      time.Time
	HTMLBody  string
	TextBody  string
}

// Summary is an envelope-only view of a message, used for listings.
type Summary struct {
	UID     imap.UID
	From    string
	Subject string
	Date    time.Time
	Seen    bool
}

// Folder mirrors a LIST entry with its message counts.
type Folder struct {
	Name   string
	Unseen int
	Total  int
}

// Client abstracts IMAP operations for testability.
type Client interface {
	ListFolders() ([]*Folder, error)
	ResolveFolder(name string) (string, error)
	ListRecent(folder string, unseenOnly bool, limit int) ([]*Summary, error)
	FetchLatest(folder string, limit int) ([]*Message, error)
	FetchSince(folder string, sinceUID imap.UID) ([]*Message, error)
	FetchUID(folder string, uid imap.UID) (*Message, error)
	MarkSeen(folder string, uid imap.UID) error
	Close() error
}

// wellKnownAttrs maps folder aliases to SPECIAL-USE attributes so that
// "mailtext read sent" works regardless of the server's folder naming.
var wellKnownAttrs = map[string]imap.MailboxAttr{
	"sent":    imap.MailboxAttrSent,
	"trash":   imap.MailboxAttrTrash,
	"drafts":  imap.MailboxAttrDrafts,
	"junk":    imap.MailboxAttrJunk,
	"spam":    imap.MailboxAttrJunk,
	"archive": imap.MailboxAttrArchive,
}

// imapClient is the real IMAP implementation using emersion/go-imap v2.
type imapClient struct {
	client   *imapclient.Client
	selected string
}

// Connect dials the configured IMAP server over TLS and logs in.
func Connect(cfg *config.IMAPConfig, password string) (Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	if err := c.Login(cfg.User, password).Wait(); err != nil {
		c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return &imapClient{client: c}, nil
}

func (ic *imapClient) ListFolders() ([]*Folder, error) {
	options := &imap.ListOptions{
		ReturnStatus: &imap.StatusOptions{
			NumMessages: true,
			NumUnseen:   true,
		},
	}
	list, err := ic.client.List("", "*", options).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap list: %w", err)
	}

	var folders []*Folder
	for _, ld := range list {
		if hasAttr(ld.Attrs, imap.MailboxAttrNoSelect) {
			continue
		}
		f := &Folder{Name: ld.Mailbox}
		status := ld.Status
		if status == nil {
			// Server without LIST-STATUS: ask per folder.
			status, _ = ic.client.Status(ld.Mailbox, &imap.StatusOptions{
				NumMessages: true,
				NumUnseen:   true,
			}).Wait()
		}
		if status != nil {
			if status.NumMessages != nil {
				f.Total = int(*status.NumMessages)
			}
			if status.NumUnseen != nil {
				f.Unseen = int(*status.NumUnseen)
			}
		}
		folders = append(folders, f)
	}
	return folders, nil
}

func (ic *imapClient) ResolveFolder(name string) (string, error) {
	if name == "" || strings.EqualFold(name, "INBOX") {
		return "INBOX", nil
	}
	list, err := ic.client.List("", "*", nil).Collect()
	if err != nil {
		return "", fmt.Errorf("imap list: %w", err)
	}
	if resolved, ok := resolveFolder(name, list); ok {
		return resolved, nil
	}
	return "", fmt.Errorf("folder %q not found on server", name)
}

// resolveFolder matches a user-supplied folder name against the server
// listing: exact first, then case-insensitive, then SPECIAL-USE aliases.
func resolveFolder(name string, list []*imap.ListData) (string, bool) {
	for _, ld := range list {
		if ld.Mailbox == name {
			return name, true
		}
	}
	for _, ld := range list {
		if strings.EqualFold(ld.Mailbox, name) {
			return ld.Mailbox, true
		}
	}
	if attr, ok := wellKnownAttrs[strings.ToLower(name)]; ok {
		for _, ld := range list {
			if hasAttr(ld.Attrs, attr) {
				return ld.Mailbox, true
			}
		}
	}
	return "", false
}

func hasAttr(attrs []imap.MailboxAttr, want imap.MailboxAttr) bool {
	for _, a := range attrs {
		if a == want {
			return true
		}
	}
	return false
}

func (ic *imapClient) ensureSelected(folder string) error {
	if ic.selected == folder {
		return nil
	}
	if _, err := ic.client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("imap select %q: %w", folder, err)
	}
	ic.selected = folder
	return nil
}

// ListRecent returns envelope summaries for the newest messages in folder,
// oldest first. unseenOnly narrows the search to messages without \Seen.
func (ic *imapClient) ListRecent(folder string, unseenOnly bool, limit int) ([]*Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := ic.ensureSelected(folder); err != nil {
		return nil, err
	}

	criteria := &imap.SearchCriteria{}
	if unseenOnly {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}
	searchData, err := ic.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	fetchOptions := &imap.FetchOptions{UID: true, Envelope: true, Flags: true}
	buffers, err := ic.client.Fetch(imap.UIDSetNum(uids...), fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	summaries := make([]*Summary, 0, len(buffers))
	for _, buf := range buffers {
		s := &Summary{UID: buf.UID}
		if env := buf.Envelope; env != nil {
			s.Subject = env.Subject
			s.Date = env.Date
			if len(env.From) > 0 {
				s.From = env.From[0].Addr()
			}
		}
		for _, f := range buf.Flags {
			if f == imap.FlagSeen {
				s.Seen = true
			}
		}
		summaries = append(summaries, s)
	}
	// Fetch responses arrive in server order, not UID order.
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].UID < summaries[j].UID })
	return summaries, nil
}

func (ic *imapClient) FetchLatest(folder string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 1
	}
	if err := ic.ensureSelected(folder); err != nil {
		return nil, err
	}

	searchData, err := ic.client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	return ic.fetchUIDs(uids)
}

func (ic *imapClient) FetchSince(folder string, sinceUID imap.UID) ([]*Message, error) {
	if err := ic.ensureSelected(folder); err != nil {
		return nil, err
	}

	var set imap.UIDSet
	set.AddRange(sinceUID+1, 0)
	criteria := &imap.SearchCriteria{UID: []imap.UIDSet{set}}
	searchData, err := ic.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	uids := uidsAfter(searchData.AllUIDs(), sinceUID)
	if len(uids) == 0 {
		return nil, nil
	}
	return ic.fetchUIDs(uids)
}

// uidsAfter drops UIDs at or below mark. The "N:*" search range never goes
// empty: "*" is the highest UID in use and RFC 3501 reads x:y with x > y as
// y:x, so a caught-up folder gets its newest message back from the search.
func uidsAfter(uids []imap.UID, mark imap.UID) []imap.UID {
	var kept []imap.UID
	for _, uid := range uids {
		if uid > mark {
			kept = append(kept, uid)
		}
	}
	return kept
}

func (ic *imapClient) FetchUID(folder string, uid imap.UID) (*Message, error) {
	if err := ic.ensureSelected(folder); err != nil {
		return nil, err
	}
	msgs, err := ic.fetchUIDs([]imap.UID{uid})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message %d not found in %q", uid, folder)
	}
	return msgs[0], nil
}

func (ic *imapClient) fetchUIDs(uids []imap.UID) ([]*Message, error) {
	uidSet := imap.UIDSetNum(uids...)
	fetchOptions := &imap.FetchOptions{
		UID:      true,
		Envelope: true,
		BodySection: []*imap.FetchItemBodySection{
			{Specifier: imap.PartSpecifierNone},
		},
	}

	buffers, err := ic.client.Fetch(uidSet, fetchOptions).Collect()
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	var msgs []*Message
	for _, buf := range buffers {
		msgs = append(msgs, bufferToMessage(buf))
	}
	return msgs, nil
}

// MarkSeen adds the \Seen flag to one message.
func (ic *imapClient) MarkSeen(folder string, uid imap.UID) error {
	if err := ic.ensureSelected(folder); err != nil {
		return err
	}
	storeFlags := &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}
	return ic.client.Store(imap.UIDSetNum(uid), storeFlags, nil).Close()
}

func (ic *imapClient) Close() error {
	return ic.client.Close()
}

func bufferToMessage(buf *imapclient.FetchMessageBuffer) *Message {
	msg := &Message{UID: buf.UID}

	if env := buf.Envelope; env != nil {
		msg.Subject = env.Subject
		msg.MessageID = env.MessageID
		msg.Date = env.Date
		if len(env.From) > 0 {
			msg.From = env.From[0].Addr()
		}
		if len(env.To) > 0 {
			msg.To = env.To[0].Addr()
		}
	}

	bodySection := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone}
	if data := buf.FindBodySection(bodySection); data != nil {
		msg.HTMLBody, msg.TextBody = extractBodies(bytes.NewReader(data))
	}

	return msg
}
