package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS assets (
	location   TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at INTEGER NOT NULL
)`

// Cache stores remote asset bodies in a sqlite database so repeated sessions
// do not refetch unchanged maps and flags.
type Cache struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// OpenCache opens (creating if needed) the cache database at path.
func OpenCache(path string, ttl time.Duration) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open cache database: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Cache{db: db, path: path, ttl: ttl, now: time.Now}, nil
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.path }

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached body for location. Expired entries are misses.
func (c *Cache) Get(ctx context.Context, location string) ([]byte, bool, error) {
	var body []byte
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM assets WHERE location = ?`, location,
	).Scan(&body, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.ttl > 0 && c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl {
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores body for location, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, location string, body []byte) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO assets (location, body, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(location) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		location, body, c.now().Unix(),
	)
	return err
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n)
	return n, err
}

// Purge removes every cached entry.
func (c *Cache) Purge(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM assets`)
	return err
}
