// Package cache provides a persistent key-value store with content-aware
// memoization keys, so repeated runs over unchanged inputs are free.
package cache

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/siherrmann/panoptes/helper"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const storeFileName = "panoptes.db"

// Store is a persistent key-value store backed by a SQLite file in the cache
// directory. Entries persist indefinitely: there is no TTL and no eviction,
// invalidation happens purely through key changes when referenced file
// contents change.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// NewStore opens the cache store in dir, creating the directory and the
// backing database if absent.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, helper.NewError("create cache directory", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, storeFileName))
	if err != nil {
		return nil, helper.NewError("open cache database", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return nil, helper.NewError("create cache table", err)
	}

	logger.Debug("Opened cache store", slog.String("dir", dir))

	return &Store{db: db, log: logger}, nil
}

// Get returns the stored value for key and whether it was present
func (s *Store) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, helper.NewError("cache lookup", err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any existing entry. Concurrent
// writers computing the same key race with no coordination; the last write
// wins. This is a known limitation, not a guarantee.
func (s *Store) Put(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO cache (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key,
		value,
	)
	if err != nil {
		return helper.NewError("cache write", err)
	}
	return nil
}

// Close closes the backing database
func (s *Store) Close() error {
	return s.db.Close()
}

// Memoize returns the value stored under key, computing and storing it via
// compute on a miss. Values round-trip through JSON. An unreadable store is
// fatal; an entry that no longer decodes is recomputed and overwritten.
func Memoize[T any](store *Store, key string, compute func() (T, error)) (T, error) {
	var zero T

	raw, ok, err := store.Get(key)
	if err != nil {
		return zero, err
	}
	if ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, nil
		}
		store.log.Warn("Discarding undecodable cache entry", slog.String("key", key))
	}

	value, err := compute()
	if err != nil {
		return zero, err
	}

	raw, err = json.Marshal(value)
	if err != nil {
		return zero, helper.NewError("serialize cache value", err)
	}
	if err := store.Put(key, raw); err != nil {
		return zero, err
	}

	return value, nil
}
