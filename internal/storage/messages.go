package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveMessage inserts a message or updates the existing row for the same
// folder and UID. Refetching a message refreshes its converted body but
// keeps the original row ID; msg.ID is set to the stored ID either way.
func (s *Store) SaveMessage(msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.FetchedAt.IsZero() {
		msg.FetchedAt = time.Now()
	}
	if msg.Date.IsZero() {
		msg.Date = msg.FetchedAt
	}
	row := s.q().QueryRowContext(context.Background(),
		`INSERT INTO messages (id, folder, uid, message_id, from_addr, to_addr, subject, date, body_text, body_html, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(folder, uid) DO UPDATE SET
		   message_id = excluded.message_id,
		   from_addr = excluded.from_addr,
		   to_addr = excluded.to_addr,
		   subject = excluded.subject,
		   date = excluded.date,
		   body_text = excluded.body_text,
		   body_html = excluded.body_html,
		   fetched_at = excluded.fetched_at
		 RETURNING id`,
		msg.ID, msg.Folder, msg.UID, msg.MessageID, msg.From, msg.To,
		msg.Subject, formatTime(msg.Date), msg.BodyText, msg.BodyHTML,
		formatTime(msg.FetchedAt),
	)
	return row.Scan(&msg.ID)
}

// GetMessage retrieves a message by ID.
func (s *Store) GetMessage(id string) (*Message, error) {
	row := s.q().QueryRowContext(context.Background(),
		`SELECT id, folder, uid, message_id, from_addr, to_addr, subject, date, body_text, body_html, fetched_at
		 FROM messages WHERE id = ?`, id,
	)
	return scanMessage(row)
}

// GetMessageByPrefix finds the message whose ID starts with prefix, so
// listings can print short IDs. Returns (nil, nil) when nothing matches and
// an error when the prefix is ambiguous.
func (s *Store) GetMessageByPrefix(prefix string) (*Message, error) {
	rows, err := s.q().QueryContext(context.Background(),
		`SELECT id, folder, uid, message_id, from_addr, to_addr, subject, date, body_text, body_html, fetched_at
		 FROM messages WHERE id LIKE ? LIMIT 2`, prefix+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(msgs) {
	case 0:
		return nil, nil
	case 1:
		return msgs[0], nil
	default:
		return nil, fmt.Errorf("message id %q is ambiguous", prefix)
	}
}

// GetMessageByUID retrieves a message by folder and IMAP UID. Returns
// (nil, nil) when no such message is archived.
func (s *Store) GetMessageByUID(folder string, uid uint32) (*Message, error) {
	row := s.q().QueryRowContext(context.Background(),
		`SELECT id, folder, uid, message_id, from_addr, to_addr, subject, date, body_text, body_html, fetched_at
		 FROM messages WHERE folder = ? AND uid = ?`, folder, uid,
	)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return msg, err
}

// LatestMessage retrieves the newest archived message in a folder by UID.
// Returns (nil, nil) when the folder has no archived messages.
func (s *Store) LatestMessage(folder string) (*Message, error) {
	row := s.q().QueryRowContext(context.Background(),
		`SELECT id, folder, uid, message_id, from_addr, to_addr, subject, date, body_text, body_html, fetched_at
		 FROM messages WHERE folder = ? ORDER BY uid DESC LIMIT 1`, folder,
	)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return msg, err
}

// ListMessages retrieves the most recent messages in a folder.
func (s *Store) ListMessages(folder string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q().QueryContext(context.Background(),
		`SELECT id, folder, uid, message_id, from_addr, to_addr, subject, date, body_text, body_html, fetched_at
		 FROM messages WHERE folder = ? ORDER BY date DESC LIMIT ?`, folder, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// SearchMessages finds archived messages whose sender, subject, or body
// contains the query string. SQL LIKE wildcards in the query are honored.
func (s *Store) SearchMessages(query string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	rows, err := s.q().QueryContext(context.Background(),
		`SELECT id, folder, uid, message_id, from_addr, to_addr, subject, date, body_text, body_html, fetched_at
		 FROM messages
		 WHERE from_addr LIKE ? OR subject LIKE ? OR body_text LIKE ?
		 ORDER BY date DESC LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of archived messages.
func (s *Store) MessageCount() (int, error) {
	var n int
	err := s.q().QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM messages`,
	).Scan(&n)
	return n, err
}

// PurgeMessages removes messages fetched more than retentionDays ago and
// returns how many rows were deleted. retentionDays <= 0 keeps everything.
func (s *Store) PurgeMessages(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	res, err := s.q().ExecContext(context.Background(), fmt.Sprintf(
		`DELETE FROM messages WHERE fetched_at < datetime('now', '-%d days')`, retentionDays),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanMessage(row scanner) (*Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.Folder, &m.UID, &m.MessageID, &m.From, &m.To,
		&m.Subject, &m.Date, &m.BodyText, &m.BodyHTML, &m.FetchedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
