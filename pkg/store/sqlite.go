package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/Veraticus/colorout/pkg/interfaces"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS settings (
	path  TEXT NOT NULL,
	key   TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (path, key)
)`

// SQLiteStore keeps settings in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements KeyValueStore
var _ interfaces.KeyValueStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (creating if needed) the database at path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetValue implements KeyValueStore
func (s *SQLiteStore) GetValue(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT value FROM settings WHERE path = ? AND key = ?`, LogicalPath, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, true, nil
}

// SetValue implements KeyValueStore
func (s *SQLiteStore) SetValue(key, value string) error {
	return s.SetValues(map[string]string{key: value})
}

// SetValues implements KeyValueStore. All keys are written in one transaction.
func (s *SQLiteStore) SetValues(values map[string]string) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (path, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(path, key) DO UPDATE SET value = excluded.value`,
			LogicalPath, k, v); err != nil {
			return fmt.Errorf("failed to write setting %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}
