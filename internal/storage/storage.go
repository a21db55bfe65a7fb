// Package storage handles SQLite database operations.
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/minkyo-dev/mailtext/internal/storage/migrations"
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// Store wraps an SQLite database connection.
type Store struct {
	db *sql.DB
	tx *sql.Tx
}

// Message is a locally archived mail message. BodyText holds the converted
// plain text; BodyHTML keeps the original HTML part, empty when the source
// was already plain text.
type Message struct {
	ID        string
	Folder    string
	UID       uint32
	MessageID string
	From      string
	To        string
	Subject   string
	Date      time.Time
	BodyText  string
	BodyHTML  string
	FetchedAt time.Time
}

// Folder is a cached IMAP mailbox listing entry.
type Folder struct {
	Name        string
	Unseen      int
	Total       int
	RefreshedAt time.Time
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

// New creates a new Store backed by SQLite in dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(dataDir, "mailtext.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate runs pending database migrations.
func (s *Store) Migrate() error {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		content, err := migrations.Files.ReadFile("001_init.sql")
		if err != nil {
			return err
		}
		_, err = s.db.Exec(string(content))
		return err
	}
	return err
}

// Tx executes fn within a database transaction.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txStore := &Store{db: s.db, tx: sqlTx}
	if err := fn(txStore); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}
