package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS translations (
	original    TEXT PRIMARY KEY,
	translation TEXT NOT NULL,
	updated_at  INTEGER NOT NULL DEFAULT (unixepoch())
)`

// SQLiteStore keeps translations in a single sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT original, translation FROM translations`)
	if err != nil {
		return nil, fmt.Errorf("cache: load: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var original, translation string
		if err := rows.Scan(&original, &translation); err != nil {
			return nil, fmt.Errorf("cache: scan: %w", err)
		}
		entries[original] = translation
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, entries map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO translations (original, translation) VALUES (?, ?)
		ON CONFLICT(original) DO UPDATE SET translation = excluded.translation, updated_at = unixepoch()`)
	if err != nil {
		return fmt.Errorf("cache: prepare: %w", err)
	}
	defer stmt.Close()

	for original, translation := range entries {
		if _, err := stmt.ExecContext(ctx, original, translation); err != nil {
			return fmt.Errorf("cache: save %q: %w", original, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
