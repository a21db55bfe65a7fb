package storage

import (
	"context"
	"database/sql"
	"time"
)

// ReplaceFolders swaps the cached folder listing for a fresh one.
func (s *Store) ReplaceFolders(ctx context.Context, folders []*Folder) error {
	now := time.Now()
	return s.Tx(ctx, func(tx *Store) error {
		if _, err := tx.q().ExecContext(ctx, `DELETE FROM folders`); err != nil {
			return err
		}
		for _, f := range folders {
			refreshed := f.RefreshedAt
			if refreshed.IsZero() {
				refreshed = now
			}
			_, err := tx.q().ExecContext(ctx,
				`INSERT INTO folders (name, unseen, total, refreshed_at) VALUES (?, ?, ?, ?)`,
				f.Name, f.Unseen, f.Total, formatTime(refreshed),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListFolders retrieves the cached folder listing sorted by name.
func (s *Store) ListFolders() ([]*Folder, error) {
	rows, err := s.q().QueryContext(context.Background(),
		`SELECT name, unseen, total, refreshed_at FROM folders ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.Name, &f.Unseen, &f.Total, &f.RefreshedAt); err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

// FoldersRefreshedAt returns when the folder cache was last replaced.
// The zero time means the cache is empty.
func (s *Store) FoldersRefreshedAt() (time.Time, error) {
	row := s.q().QueryRowContext(context.Background(),
		`SELECT refreshed_at FROM folders ORDER BY refreshed_at DESC LIMIT 1`,
	)
	var t time.Time
	err := row.Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
