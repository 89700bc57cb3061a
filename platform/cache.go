package platform

import (
	"context"
	"database/sql"
	"time"

	"github.com/classboard/classboard/errors"
)

// Cache is a TTL key-value cache backed by the database, shared across
// restarts. Expired entries are invisible to reads and reclaimed by the
// cache sweep job.
type Cache struct {
	db *sql.DB
}

// NewCache creates a cache over an opened database
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Put upserts an entry with the given lifetime
func (c *Cache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	expiresAt := time.Now().UTC().Add(ttl).Format(SQLiteTime)
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expiresAt)
	if err != nil {
		return errors.Wrap(err, "failed to put cache entry")
	}
	return nil
}

// Get returns the entry's value and whether a live entry exists
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx,
		"SELECT value FROM cache_entries WHERE key = ? AND expires_at >= ?",
		key, nowUTC()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get cache entry")
	}
	return value, true, nil
}

// EvictExpired deletes entries past their expiry.
// Returns the number of entries removed.
func (c *Cache) EvictExpired(ctx context.Context) (int, error) {
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE expires_at < ?", nowUTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to evict cache entries")
	}
	evicted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(evicted), nil
}
