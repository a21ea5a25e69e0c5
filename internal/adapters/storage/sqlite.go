package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps every file as one row of the files table.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return ErrClosed
	}
	return nil
}

// Exists reports whether id has a row.
func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	id, err := CleanID(id)
	if err != nil {
		return false, err
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM files WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return n > 0, nil
}

// Load returns the stored bytes for id.
func (s *SQLiteStore) Load(ctx context.Context, id string) ([]byte, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	id, err := CleanID(id)
	if err != nil {
		return nil, err
	}
	return load(ctx, s.sqlDB, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func load(ctx context.Context, q queryer, id string) ([]byte, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM files WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return data, nil
}

// Save upserts id.
func (s *SQLiteStore) Save(ctx context.Context, id string, data []byte) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := CleanID(id)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO files (id, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
`, id, data, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save %s: %w", id, err)
	}
	return nil
}

// Append concatenates data onto id inside one transaction.
func (s *SQLiteStore) Append(ctx context.Context, id string, data []byte) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	id, err := CleanID(id)
	if err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := load(ctx, tx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	merged := append(existing, data...)
	if merged == nil {
		merged = []byte{}
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO files (id, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
`, id, merged, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("append %s: %w", id, err)
	}
	return tx.Commit()
}
