// Package sqlitecache persists provider directions in SQLite so that a
// restarted service can keep serving routes it has already fetched.
package sqlitecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/farmroute/farmroute/internal/routing"
)

const schema = `
CREATE TABLE IF NOT EXISTS directions_cache (
	cache_key  TEXT PRIMARY KEY,
	provider   TEXT NOT NULL,
	payload    TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);
`

// Store is a routing.Store backed by a SQLite table.
type Store struct {
	db *sql.DB
}

var _ routing.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and prepares the schema.
// Use ":memory:" for a throwaway cache.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open directions cache %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open directions cache: verify connection to %q: %w", path, err)
	}

	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle and creates the table if missing.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("directions cache: db is nil")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("directions cache: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the cached response for key, or nil on a miss.
func (s *Store) Get(ctx context.Context, key string) (*routing.DirectionsResponse, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM directions_cache WHERE cache_key = ?`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get directions cache: query key=%q: %w", key, err)
	}

	var resp routing.DirectionsResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil, fmt.Errorf("get directions cache: decode key=%q: %w", key, err)
	}
	return &resp, nil
}

// Put stores resp under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, resp *routing.DirectionsResponse) error {
	if key == "" {
		return errors.New("insert directions cache: key must not be empty")
	}
	if resp == nil {
		return errors.New("insert directions cache: response is nil")
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("insert directions cache: encode: %w", err)
	}

	fetchedAt := resp.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO directions_cache (
		cache_key,
		provider,
		payload,
		fetched_at
	)
	VALUES (?, ?, ?, ?)`,
		key, resp.Provider, string(payload), fetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert directions cache key=%q: %w", key, err)
	}
	return nil
}

// Prune deletes entries fetched before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM directions_cache WHERE fetched_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune directions cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune directions cache: rows affected: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
