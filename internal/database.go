package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// itemTableSchema mirrors the layout browsers and Electron apps use for
// localStorage: a flat key/value table where writes replace existing keys.
const itemTableSchema = `CREATE TABLE IF NOT EXISTS ItemTable (
	key TEXT UNIQUE ON CONFLICT REPLACE,
	value BLOB
)`

// OpenDatabase opens (creating if needed) the SQLite store at path and ensures
// the ItemTable exists
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := EnsureItemTable(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenDatabaseReadOnly opens an existing SQLite store in read-only mode.
// A missing file is an error and is never created.
func OpenDatabaseReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// the driver only forwards mode=ro to SQLite for file: URIs
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// EnsureItemTable creates the key/value table when missing
func EnsureItemTable(db *sql.DB) error {
	if _, err := db.Exec(itemTableSchema); err != nil {
		return fmt.Errorf("failed to create ItemTable: %w", err)
	}
	return nil
}

// QueryItemTable queries the ItemTable with a LIKE pattern
func QueryItemTable(db *sql.DB, pattern string) ([]KeyValuePair, error) {
	query := "SELECT key, value FROM ItemTable WHERE key LIKE ? AND value IS NOT NULL ORDER BY key"
	rows, err := db.Query(query, pattern)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var pairs []KeyValuePair
	for rows.Next() {
		var pair KeyValuePair
		var value sql.NullString
		if err := rows.Scan(&pair.Key, &value); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if value.Valid {
			pair.Value = value.String
			pairs = append(pairs, pair)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return pairs, nil
}

// KeyValuePair represents a key-value pair from ItemTable
type KeyValuePair struct {
	Key   string
	Value string
}
