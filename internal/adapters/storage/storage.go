// Package storage provides the key/value file capability the tracker uses for
// local trace logs, backups and pending-state snapshots.
//
// A file id is a relative, slash-separated name such as "traces.csv".
// Backends: FileStore (a directory on disk), SQLiteStore (one table in a
// SQLite database) and MemoryStore (tests and ephemeral runs).
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Storage is the minimal file capability.
type Storage interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Load returns ErrNotFound when id does not exist.
	Load(ctx context.Context, id string) ([]byte, error)
	Save(ctx context.Context, id string, data []byte) error
}

// Appender is implemented by backends that can append without a full
// load/save cycle.
type Appender interface {
	Append(ctx context.Context, id string, data []byte) error
}

// Store is a Storage that owns resources.
type Store interface {
	Storage
	Appender
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// sqliteFileName is the database file Open creates inside dir.
const sqliteFileName = "gametrace.db"

// Open builds the named backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendFile, "":
		return NewFileStore(dir)
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, sqliteFileName))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// AppendTo appends data to id, using Append when s supports it and a
// load/concat/save cycle otherwise.
func AppendTo(ctx context.Context, s Storage, id string, data []byte) error {
	if a, ok := s.(Appender); ok {
		return a.Append(ctx, id, data)
	}
	existing, err := s.Load(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.Save(ctx, id, append(existing, data...))
}

// CleanID normalizes id and rejects names that escape the store root.
func CleanID(id string) (string, error) {
	id = strings.TrimSpace(strings.ReplaceAll(id, "\\", "/"))
	if id == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidID)
	}
	cleaned := path.Clean(id)
	if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return cleaned, nil
}
