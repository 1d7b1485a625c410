package internal

import (
	"database/sql"
	"errors"
	"fmt"
)

// Keys written by the login flow and read by the chat surface
const (
	KeyUsername = "username"
	KeyRole     = "role"
)

// ItemReader is the read-only view of the local store used at start-up
type ItemReader interface {
	GetItem(key string) (string, bool, error)
}

// Storage is a persistent local key-value store backed by SQLite
type Storage struct {
	db   *sql.DB
	path string
}

// NewStorage wraps an already opened database
func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db, path: ":memory:"}
}

// OpenStorage opens the store at path, creating the file and table if needed
func OpenStorage(path string) (*Storage, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	LogDebug("Opened local storage at %s", path)
	return &Storage{db: db, path: path}, nil
}

// OpenStorageReadOnly opens an existing store without creating or
// modifying it. Writes through the returned Storage fail.
func OpenStorageReadOnly(path string) (*Storage, error) {
	db, err := OpenDatabaseReadOnly(path)
	if err != nil {
		return nil, &StorageError{Path: path, Op: "open", Err: err}
	}
	LogDebug("Opened local storage read-only at %s", path)
	return &Storage{db: db, path: path}, nil
}

// Path returns the location of the backing file
func (s *Storage) Path() string {
	return s.path
}

// GetItem returns the value stored under key and whether it was present
func (s *Storage) GetItem(key string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM ItemTable WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	if !value.Valid {
		return "", false, nil
	}
	return value.String, true, nil
}

// SetItem stores value under key, replacing any previous value
func (s *Storage) SetItem(key, value string) error {
	if key == "" {
		return &StorageError{Path: s.path, Op: "write", Err: fmt.Errorf("empty key")}
	}
	if _, err := s.db.Exec("INSERT INTO ItemTable (key, value) VALUES (?, ?)", key, value); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *Storage) RemoveItem(key string) error {
	if _, err := s.db.Exec("DELETE FROM ItemTable WHERE key = ?", key); err != nil {
		return &StorageError{Path: s.path, Op: "delete", Err: err}
	}
	return nil
}

// Items returns all entries whose key matches the LIKE pattern
func (s *Storage) Items(pattern string) ([]KeyValuePair, error) {
	pairs, err := QueryItemTable(s.db, pattern)
	if err != nil {
		return nil, &StorageError{Path: s.path, Op: "read", Err: err}
	}
	return pairs, nil
}

// Close releases the underlying database
func (s *Storage) Close() error {
	return s.db.Close()
}
