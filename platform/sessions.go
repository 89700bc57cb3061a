package platform

import (
	"context"
	"database/sql"
	"time"

	"github.com/classboard/classboard/errors"
)

// Sessions stores authentication sessions
type Sessions struct {
	db *sql.DB
}

// NewSessions creates a session store over an opened database
func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{db: db}
}

// Create inserts a session with the given lifetime
func (s *Sessions) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	expiresAt := time.Now().UTC().Add(ttl).Format(SQLiteTime)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO auth_sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}
	return nil
}

// Valid reports whether a token exists and has not expired
func (s *Sessions) Valid(ctx context.Context, token string) (bool, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id FROM auth_sessions WHERE token = ? AND expires_at >= ?",
		token, nowUTC()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to look up session")
	}
	return true, nil
}

// PruneExpired deletes sessions past their expiry.
// Returns the number of sessions removed.
func (s *Sessions) PruneExpired(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM auth_sessions WHERE expires_at < ?", nowUTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune sessions")
	}
	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(pruned), nil
}
